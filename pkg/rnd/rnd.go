package rnd

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateRandomString returns l random hex characters, used for reply
// topics and transport instance ids.
func GenerateRandomString(l int) (string, error) {
	b := make([]byte, (l+1)/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b)[:l], nil
}
