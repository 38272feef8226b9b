package invite

import (
	"crypto/rand"
	"fmt"
)

const (
	codeLength = 8
	// No 0/O or 1/I, codes get read aloud and retyped.
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// GenerateCode returns an 8-character invitation code.
func GenerateCode() (string, error) {
	raw := make([]byte, codeLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate invite code: %w", err)
	}
	code := make([]byte, codeLength)
	for i, b := range raw {
		code[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(code), nil
}
