package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// MagicTokenBytes is the entropy of a login link token.
const MagicTokenBytes = 24

// RandomToken returns n random bytes encoded as unpadded base64url, safe to
// embed in a query string.
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
