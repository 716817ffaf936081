package auth

import (
	"crypto/sha256"
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidAPIKey = errors.New("invalid api key")

// PasswordHasher defines hashing strategy for credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error
}

// BcryptHasher uses bcrypt to hash passwords.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates BcryptHasher with provided cost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns bcrypt hash for provided password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	encoded, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// Compare checks password against stored hash.
func (h *BcryptHasher) Compare(hash string, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// KeyVerifier checks the API key presented by event producers.
type KeyVerifier interface {
	Verify(key string) error
}

// HashedKeyVerifier accepts keys matching a single stored hash. Keys that
// already passed are remembered by digest so bcrypt runs once per key.
type HashedKeyVerifier struct {
	hash   string
	hasher PasswordHasher

	mu       sync.RWMutex
	verified map[[sha256.Size]byte]struct{}
}

// NewHashedKeyVerifier builds a verifier for hash. An empty hash rejects every key.
func NewHashedKeyVerifier(hash string, hasher PasswordHasher) *HashedKeyVerifier {
	return &HashedKeyVerifier{
		hash:     hash,
		hasher:   hasher,
		verified: make(map[[sha256.Size]byte]struct{}),
	}
}

// Verify returns ErrInvalidAPIKey unless key matches the stored hash.
func (v *HashedKeyVerifier) Verify(key string) error {
	if v.hash == "" || key == "" {
		return ErrInvalidAPIKey
	}

	digest := sha256.Sum256([]byte(key))
	v.mu.RLock()
	_, ok := v.verified[digest]
	v.mu.RUnlock()
	if ok {
		return nil
	}

	if err := v.hasher.Compare(v.hash, key); err != nil {
		return ErrInvalidAPIKey
	}

	v.mu.Lock()
	v.verified[digest] = struct{}{}
	v.mu.Unlock()
	return nil
}
