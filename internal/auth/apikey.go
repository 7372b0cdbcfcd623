// Package auth provides the optional access-key gate for webmake.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	// KeyPrefix is the prefix of keys produced by GenerateKey.
	KeyPrefix = "wm_"

	// KeyBytes is the number of random bytes used for key generation.
	KeyBytes = 32

	saltBytes = 16

	// lookupChars is how many characters after KeyPrefix identify a key
	// without hashing.
	lookupChars = 8

	// Argon2id parameters (OWASP recommended for API key hashing)
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64MB
	argon2Threads = 4
	argon2KeyLen  = 32
)

var (
	// ErrMissingKey indicates the request carried no bearer key.
	ErrMissingKey = errors.New("missing access key")

	// ErrInvalidKey indicates the key did not match any configured key.
	ErrInvalidKey = errors.New("invalid access key")

	// ErrInvalidFormat indicates a key that lacks KeyPrefix.
	ErrInvalidFormat = errors.New("access key must start with " + KeyPrefix)

	// ErrMalformedHeader indicates an Authorization header that is not a bearer token.
	ErrMalformedHeader = errors.New("authorization header must use Bearer scheme")
)

// hashedKey is a configured key with only its Argon2id digest retained.
type hashedKey struct {
	hint string
	salt []byte
	hash []byte
}

// KeyRing holds the hashed access keys accepted by the server, indexed by
// their lookup prefix. The zero value and a nil *KeyRing accept nothing and
// report Enabled() == false.
type KeyRing struct {
	keys map[string]hashedKey
}

// NewKeyRing hashes each non-blank key with a fresh salt. Duplicates are
// kept once. Every key must carry KeyPrefix and differ from the others
// within its lookup prefix. The plaintext slice is not retained.
func NewKeyRing(plaintext []string) (*KeyRing, error) {
	ring := &KeyRing{keys: make(map[string]hashedKey, len(plaintext))}
	seen := make(map[string]bool, len(plaintext))
	for _, k := range plaintext {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true

		lookup, err := ParseKeyPrefix(k)
		if err != nil {
			return nil, fmt.Errorf("access key %s: %w", MaskKey(k), err)
		}
		if _, dup := ring.keys[lookup]; dup {
			return nil, fmt.Errorf("access keys share the lookup prefix %s****", lookup)
		}

		salt := make([]byte, saltBytes)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("failed to generate salt: %w", err)
		}
		ring.keys[lookup] = hashedKey{
			hint: MaskKey(k),
			salt: salt,
			hash: hashKey(k, salt),
		}
	}
	return ring, nil
}

// ParseKeyPrefix returns the non-secret lookup prefix of key: KeyPrefix plus
// up to lookupChars characters. Keys without KeyPrefix or with nothing after
// it are rejected.
func ParseKeyPrefix(key string) (string, error) {
	rest, ok := strings.CutPrefix(key, KeyPrefix)
	if !ok || rest == "" {
		return "", ErrInvalidFormat
	}
	if len(rest) > lookupChars {
		rest = rest[:lookupChars]
	}
	return KeyPrefix + rest, nil
}

// Enabled reports whether at least one key is configured.
func (r *KeyRing) Enabled() bool {
	return r != nil && len(r.keys) > 0
}

// Len returns the number of configured keys.
func (r *KeyRing) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Validate checks key against the configured key sharing its lookup prefix
// and returns that key's masked hint. Malformed or unknown prefixes are
// rejected without hashing.
func (r *KeyRing) Validate(key string) (string, error) {
	if key == "" {
		return "", ErrMissingKey
	}
	if !r.Enabled() {
		return "", ErrInvalidKey
	}
	lookup, err := ParseKeyPrefix(key)
	if err != nil {
		return "", ErrInvalidKey
	}
	k, ok := r.keys[lookup]
	if !ok {
		return "", ErrInvalidKey
	}
	if subtle.ConstantTimeCompare(hashKey(key, k.salt), k.hash) != 1 {
		return "", ErrInvalidKey
	}
	return k.hint, nil
}

// GenerateKey creates a new random key. It is shown once and never stored.
func GenerateKey() (string, error) {
	keyBytes := make([]byte, KeyBytes)
	if _, err := rand.Read(keyBytes); err != nil {
		return "", fmt.Errorf("failed to generate random key: %w", err)
	}
	return KeyPrefix + base64.RawURLEncoding.EncodeToString(keyBytes), nil
}

// BearerToken extracts the token from an Authorization: Bearer header.
// A missing header yields ErrMissingKey.
func BearerToken(r *http.Request) (string, error) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", ErrMissingKey
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMalformedHeader
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingKey
	}
	return token, nil
}

// hashKey hashes the key using Argon2id.
var hashKey = func(key string, salt []byte) []byte {
	return argon2.IDKey([]byte(key), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
}

// MaskKey returns a masked version of a key for logging.
// Example: "wm_abc12345..." -> "wm_abc1****"
func MaskKey(key string) string {
	if !strings.HasPrefix(key, KeyPrefix) {
		return "****"
	}

	keyPart := strings.TrimPrefix(key, KeyPrefix)
	if len(keyPart) < 4 {
		return KeyPrefix + "****"
	}

	return KeyPrefix + keyPart[:4] + "****"
}
