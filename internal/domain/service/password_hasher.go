// Package service defines interfaces for core, stateless domain logic.
// These services encapsulate business rules that don't naturally fit within a single entity.
package service

// PasswordHasher defines the interface for password hashing and verification.
// This abstracts the underlying hashing algorithm (e.g., bcrypt), keeping the domain pure.
type PasswordHasher interface {
	// Hash generates a salted hash from a plaintext password.
	// Two calls with the same input produce different hashes.
	Hash(password string) (string, error)

	// Verify compares a plaintext password with a hash in constant time.
	// A mismatch is reported as (false, nil); an error means the hash could not be evaluated.
	Verify(password, hash string) (bool, error)

	// NeedsRehash reports whether hash was produced with parameters other than the current ones.
	NeedsRehash(hash string) bool
}

// PasswordPolicy checks a plaintext password before it is hashed.
type PasswordPolicy interface {
	Validate(password string) error
}
