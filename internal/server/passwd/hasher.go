// Package passwd hashes and verifies account passwords.
package passwd

// Hasher abstracts the slow password hash so services can be tested with a
// cheap fake.
type Hasher interface {
	// Hash returns a salted hash of the plaintext. Output differs between
	// calls for the same input.
	Hash(plaintext []byte) ([]byte, error)

	// Compare returns nil when plaintext matches hash, a non-nil error
	// otherwise. It never distinguishes how close the candidate was.
	Compare(hash, plaintext []byte) error
}
