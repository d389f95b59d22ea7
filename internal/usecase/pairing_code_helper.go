package usecase

import (
	"crypto/rand"
	"io"
)

// generatePairingCode creates a secure random pairing code.
// Format: 8 uppercase alphanumeric characters, e.g. "K7KQ2P9X".
func generatePairingCode() (string, error) {
	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const codeLength = 8

	buffer := make([]byte, codeLength)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return "", err
	}

	for i := 0; i < codeLength; i++ {
		buffer[i] = chars[int(buffer[i])%len(chars)]
	}

	return string(buffer), nil
}
