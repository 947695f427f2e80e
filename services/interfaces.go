package services

// PasswordHasher abstracts one-way password hashing and verification.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify reports whether password matches the stored hash. It must
	// return false, never panic, for malformed stored hashes.
	Verify(hashedPassword, password string) bool
}
