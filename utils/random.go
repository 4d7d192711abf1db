package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateCode returns 2n hex characters from n random bytes. Used for
// operator session tokens.
func GenerateCode(n int) (string, error) {
	byt := make([]byte, n)

	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	return hex.EncodeToString(byt), nil
}
