package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// GenerateKey mints a fresh license key value: PREFIX-XXXX-XXXX-XXXX with
// three random hex groups. Uniqueness is enforced by the store on insert.
func GenerateKey(prefix string) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "GOU"
	}

	groups := make([]string, 0, 4)
	groups = append(groups, prefix)
	for i := 0; i < 3; i++ {
		buf := make([]byte, 2)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read randomness: %w", err)
		}
		groups = append(groups, strings.ToUpper(hex.EncodeToString(buf)))
	}
	return strings.Join(groups, "-"), nil
}
