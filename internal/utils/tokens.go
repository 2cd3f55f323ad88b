package utils

import (
	"crypto/rand"
	"encoding/base64"
	"io"
)

// SecureToken returns nBytes of cryptographic randomness, URL-safe
// base64 encoded.
func SecureToken(nBytes int) (string, error) {
	buf := make([]byte, nBytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}
