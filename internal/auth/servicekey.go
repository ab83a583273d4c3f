// servicekey.go handles generation and validation of long-lived machine
// credentials used by the back office to call the portal's webhook endpoints.
// The raw key is never stored — only its bcrypt hash, alongside a plaintext
// display prefix used for a fast indexed lookup before the expensive bcrypt
// comparison.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// ServiceKeyLength is the length of the random part of the key in bytes
	ServiceKeyLength = 32

	// DisplayPrefixLength is the number of characters to show in displays
	// and to store plaintext for prefix lookup
	DisplayPrefixLength = 10

	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 12
)

// GenerateServiceKey creates a new random service key with the given prefix.
// Returns: full key (to show once), bcrypt hash (to store), display prefix.
func GenerateServiceKey(prefix string) (key string, hash string, displayPrefix string, err error) {
	randomBytes := make([]byte, ServiceKeyLength)
	_, err = rand.Read(randomBytes)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	randomPart := base64.RawURLEncoding.EncodeToString(randomBytes)

	fullKey := prefix + randomPart

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(fullKey), BcryptCost)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to hash service key: %w", err)
	}

	displayPrefixStr := fullKey
	if len(fullKey) > DisplayPrefixLength {
		displayPrefixStr = fullKey[:DisplayPrefixLength]
	}

	return fullKey, string(hashBytes), displayPrefixStr, nil
}

// ValidateServiceKey checks if a provided key matches the stored hash
func ValidateServiceKey(providedKey, storedHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(providedKey))
	return err == nil
}
