package password

import "golang.org/x/crypto/bcrypt"

// Hasher hides the credential hashing scheme from callers.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Matches(plaintext, digest string) bool
}

// BcryptHasher hashes passwords with bcrypt. The cost is tuned so that a
// single verification takes on the order of hundreds of milliseconds.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher builds a hasher with the given cost; values outside the
// bcrypt range fall back to cost 12.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = 12
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns the salted digest for the plaintext.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Matches reports whether the plaintext corresponds to the stored digest.
func (h *BcryptHasher) Matches(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
