package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// passwordAlgorithm tags the encoded format for forward compatibility.
	passwordAlgorithm = "pbkdf2_sha256"
	// DefaultIterations is the PBKDF2 iteration count for new hashes.
	DefaultIterations = 180000
	// saltLength is the random salt size in bytes.
	saltLength = 16
	// keyLength is the derived key size in bytes.
	keyLength = sha256.Size
)

// HashPassword derives a PBKDF2-HMAC-SHA256 hash and encodes it as
// "pbkdf2_sha256$<iterations>$<salt-hex>$<digest-hex>". The encoded string
// is self-describing, so stored hashes keep verifying if the defaults move.
func HashPassword(password string) (string, error) {
	return hashPasswordIter(password, DefaultIterations)
}

func hashPasswordIter(password string, iterations int) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("security: generate salt: %w", err)
	}
	digest := pbkdf2.Key([]byte(password), salt, iterations, keyLength, sha256.New)
	return fmt.Sprintf("%s$%d$%s$%s",
		passwordAlgorithm,
		iterations,
		hex.EncodeToString(salt),
		hex.EncodeToString(digest),
	), nil
}

// CheckPassword reports whether a plaintext password matches an encoded
// hash. Malformed input or an unrecognized algorithm tag yields false; the
// comparison is constant time.
func CheckPassword(encoded, password string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 || parts[0] != passwordAlgorithm {
		return false
	}
	iterations, errIter := strconv.Atoi(parts[1])
	if errIter != nil || iterations <= 0 {
		return false
	}
	salt, errSalt := hex.DecodeString(parts[2])
	if errSalt != nil {
		return false
	}
	stored, errDigest := hex.DecodeString(parts[3])
	if errDigest != nil || len(stored) == 0 {
		return false
	}
	computed := pbkdf2.Key([]byte(password), salt, iterations, len(stored), sha256.New)
	return hmac.Equal(computed, stored)
}
