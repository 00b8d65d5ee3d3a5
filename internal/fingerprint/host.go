package fingerprint

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// HostSource reads hardware identifiers from the local machine. Probes are
// OS-specific where they have to be and fall back to coarse but stable values.
type HostSource struct{}

// NewHostSource returns the hardware source for the current host.
func NewHostSource() *HostSource {
	return &HostSource{}
}

// CPUID retrieves CPU identification information (OS-specific)
func (s *HostSource) CPUID() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if procID := os.Getenv("PROCESSOR_IDENTIFIER"); procID != "" {
			return procID, nil
		}
		return fmt.Sprintf("windows-%s-%s", runtime.GOARCH, os.Getenv("PROCESSOR_ARCHITECTURE")), nil
	case "linux":
		data, err := os.ReadFile("/proc/cpuinfo")
		if err == nil {
			for _, line := range strings.Split(string(data), "\n") {
				if strings.HasPrefix(line, "model name") || strings.HasPrefix(line, "cpu family") {
					return line, nil
				}
			}
		}
		return fmt.Sprintf("linux-%s", runtime.GOARCH), nil
	case "darwin":
		cpuInfo := fmt.Sprintf("darwin-%s", runtime.GOARCH)
		if hostType := os.Getenv("HOSTTYPE"); hostType != "" {
			cpuInfo = fmt.Sprintf("%s-%s", cpuInfo, hostType)
		}
		return cpuInfo, nil
	default:
		return fmt.Sprintf("%s-%s", runtime.GOOS, runtime.GOARCH), nil
	}
}

// DiskSerial retrieves an identifier for the primary disk. On Linux it reads
// the first block device serial from sysfs; elsewhere it falls back to the
// machine hostname, which is stable across restarts.
func (s *HostSource) DiskSerial() (string, error) {
	if runtime.GOOS == "linux" {
		entries, err := os.ReadDir("/sys/block")
		if err == nil {
			for _, entry := range entries {
				name := entry.Name()
				if strings.HasPrefix(name, "loop") || strings.HasPrefix(name, "ram") {
					continue
				}
				serial, err := os.ReadFile(filepath.Join("/sys/block", name, "device", "serial"))
				if err == nil && len(strings.TrimSpace(string(serial))) > 0 {
					return strings.TrimSpace(string(serial)), nil
				}
			}
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("failed to get hostname fallback: %w", err)
	}
	if hostname == "" {
		return "", fmt.Errorf("hostname is empty")
	}
	return hostname, nil
}

// MACAddress retrieves the primary network interface MAC address
func (s *HostSource) MACAddress() (string, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("failed to get network interfaces: %w", err)
	}

	// Prefer the first non-loopback, up interface with a MAC address
	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if mac := iface.HardwareAddr.String(); mac != "" && mac != "00:00:00:00:00:00" {
			return mac, nil
		}
	}

	// Fallback: any interface with a MAC address
	for _, iface := range interfaces {
		if mac := iface.HardwareAddr.String(); mac != "" && mac != "00:00:00:00:00:00" {
			return mac, nil
		}
	}

	return "", fmt.Errorf("no valid MAC address found")
}
