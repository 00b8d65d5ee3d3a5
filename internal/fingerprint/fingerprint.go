// Package fingerprint derives a stable, opaque hardware fingerprint used to
// bind sessions to one machine. The hardware probes live behind the Source
// interface so platforms and tests can inject their own.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	apperrors "gouauth/internal/errors"
)

// Source provides the raw hardware identifiers a fingerprint is derived from.
type Source interface {
	CPUID() (string, error)
	DiskSerial() (string, error)
	MACAddress() (string, error)
}

// unknownComponent substitutes a failed probe when partial derivation is
// allowed. It is a fixed string so the fingerprint stays stable across runs.
const unknownComponent = "unknown"

// Deriver combines hardware identifiers into one opaque stable fingerprint.
type Deriver struct {
	source Source
	logger *slog.Logger

	// allowPartial permits derivation when some (not all) probes fail.
	allowPartial bool

	cache       string
	cacheExpiry time.Time
	cacheTTL    time.Duration
	cacheMu     sync.RWMutex
}

// Option configures a Deriver.
type Option func(*Deriver)

// WithAllowPartial makes missing hardware sources non-fatal. Failed probes
// contribute a fixed placeholder; all three failing is still an error.
func WithAllowPartial() Option {
	return func(d *Deriver) { d.allowPartial = true }
}

// WithCacheTTL overrides how long a derived fingerprint is reused.
func WithCacheTTL(ttl time.Duration) Option {
	return func(d *Deriver) { d.cacheTTL = ttl }
}

// WithLogger sets the logger used for probe diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Deriver) { d.logger = logger.With(slog.String("component", "fingerprint")) }
}

// NewDeriver creates a Deriver over the given hardware source.
func NewDeriver(source Source, opts ...Option) *Deriver {
	d := &Deriver{
		source:   source,
		logger:   slog.Default(),
		cacheTTL: time.Hour,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Derive returns the hardware fingerprint: sha256 over the CPU identifier,
// disk serial and MAC address joined in that fixed order. Identical hardware
// always yields an identical fingerprint.
func (d *Deriver) Derive() (string, error) {
	d.cacheMu.RLock()
	if d.cache != "" && time.Now().Before(d.cacheExpiry) {
		cached := d.cache
		d.cacheMu.RUnlock()
		return cached, nil
	}
	d.cacheMu.RUnlock()

	fp, err := d.derive()
	if err != nil {
		return "", err
	}

	d.cacheMu.Lock()
	d.cache = fp
	d.cacheExpiry = time.Now().Add(d.cacheTTL)
	d.cacheMu.Unlock()

	return fp, nil
}

func (d *Deriver) derive() (string, error) {
	probes := []struct {
		name string
		read func() (string, error)
	}{
		{"cpu", d.source.CPUID},
		{"disk", d.source.DiskSerial},
		{"mac", d.source.MACAddress},
	}

	components := make([]string, 0, len(probes))
	failed := 0
	for _, probe := range probes {
		value, err := probe.read()
		if err != nil {
			failed++
			if !d.allowPartial {
				return "", fmt.Errorf("%w: reading %s: %v", apperrors.ErrHardwareRead, probe.name, err)
			}
			d.logger.Warn("hardware probe failed, using placeholder",
				slog.String("probe", probe.name),
				slog.String("error", err.Error()),
			)
			value = unknownComponent
		}
		components = append(components, normalize(value))
	}

	if failed == len(probes) {
		return "", fmt.Errorf("%w: no hardware source obtainable", apperrors.ErrHardwareRead)
	}

	// Fixed order: cpu|disk|mac. Changing this breaks every issued session.
	sum := sha256.Sum256([]byte(strings.Join(components, "|")))
	return hex.EncodeToString(sum[:]), nil
}

// normalize trims and lowercases an identifier so cosmetic differences in how
// the OS reports it do not change the fingerprint.
func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
