// Package password hashes and verifies user credentials.
//
// New hashes are PBKDF2-HMAC-SHA256 in the modular crypt format used by
// passlib ("$pbkdf2-sha256$<rounds>$<salt>$<digest>"), so rows created by
// earlier deployments keep verifying. Bcrypt hashes are still accepted and
// reported by NeedsRehash.
package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const (
	DefaultIterations = 29000

	scheme        = "pbkdf2-sha256"
	keyLen        = 32
	randomSaltLen = 16
)

type Hasher struct {
	salt       []byte
	iterations int
}

// New returns a hasher using a server-wide salt. An empty salt makes every
// hash draw its own random salt.
func New(salt string, iterations int) *Hasher {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &Hasher{salt: []byte(salt), iterations: iterations}
}

func (h *Hasher) Hash(password string) (string, error) {
	salt := h.salt
	if len(salt) == 0 {
		salt = make([]byte, randomSaltLen)
		if _, err := rand.Read(salt); err != nil {
			return "", fmt.Errorf("generate salt: %w", err)
		}
	}
	dk := pbkdf2.Key([]byte(password), salt, h.iterations, keyLen, sha256.New)
	return fmt.Sprintf("$%s$%d$%s$%s", scheme, h.iterations, ab64Encode(salt), ab64Encode(dk)), nil
}

// Verify never fails loudly: malformed hashes are a non-match.
func (h *Hasher) Verify(password, encoded string) bool {
	if isBcrypt(encoded) {
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)) == nil
	}

	rounds, salt, digest, ok := parse(encoded)
	if !ok {
		return false
	}
	dk := pbkdf2.Key([]byte(password), salt, rounds, len(digest), sha256.New)
	return subtle.ConstantTimeCompare(dk, digest) == 1
}

// NeedsRehash reports whether encoded was produced with other parameters than h.
func (h *Hasher) NeedsRehash(encoded string) bool {
	rounds, salt, _, ok := parse(encoded)
	if !ok {
		return true
	}
	if rounds != h.iterations {
		return true
	}
	return len(h.salt) > 0 && subtle.ConstantTimeCompare(salt, h.salt) != 1
}

func parse(encoded string) (rounds int, salt, digest []byte, ok bool) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 || parts[0] != "" || parts[1] != scheme {
		return 0, nil, nil, false
	}
	rounds, err := strconv.Atoi(parts[2])
	if err != nil || rounds <= 0 {
		return 0, nil, nil, false
	}
	salt, err = ab64Decode(parts[3])
	if err != nil {
		return 0, nil, nil, false
	}
	digest, err = ab64Decode(parts[4])
	if err != nil || len(digest) == 0 {
		return 0, nil, nil, false
	}
	return rounds, salt, digest, true
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}

// passlib "adapted base64": standard alphabet, no padding, '.' instead of '+'.
func ab64Encode(b []byte) string {
	return strings.ReplaceAll(base64.RawStdEncoding.EncodeToString(b), "+", ".")
}

func ab64Decode(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.ReplaceAll(s, ".", "+"))
}
