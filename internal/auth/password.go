package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Tuned for small hosts while still using Argon2id.
const (
	argonMemory      = 32 * 1024 // 32 MiB
	argonIterations  = 2
	argonParallelism = 1
	argonKeyLen      = 32
	saltLen          = 16
)

func HashPassword(pw string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(pw), salt, argonIterations, argonMemory, argonParallelism, argonKeyLen)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argonMemory,
		argonIterations,
		argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword accepts argon2id hashes and bcrypt hashes ($2a$, $2b$, $2y$)
// carried over from imported accounts.
func VerifyPassword(encoded, pw string) bool {
	if strings.HasPrefix(encoded, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(pw)) == nil
	}
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}
	var mem uint32
	var it uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &it, &par); err != nil {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}
	other := argon2.IDKey([]byte(pw), salt, it, mem, par, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, other) == 1
}

// NeedsRehash reports whether a stored hash is not in the current argon2id format.
func NeedsRehash(encoded string) bool {
	return !strings.HasPrefix(encoded, "$argon2id$")
}
