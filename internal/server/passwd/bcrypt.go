package passwd

import "golang.org/x/crypto/bcrypt"

// BcryptHasher implements Hasher using bcrypt. The salt lives inside the hash
// string, and comparison timing does not correlate with prefix match length.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher with bcrypt's default cost.
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{cost: bcrypt.DefaultCost}
}

func (h *BcryptHasher) Hash(plaintext []byte) ([]byte, error) {
	return bcrypt.GenerateFromPassword(plaintext, h.cost)
}

func (h *BcryptHasher) Compare(hash, plaintext []byte) error {
	return bcrypt.CompareHashAndPassword(hash, plaintext)
}
