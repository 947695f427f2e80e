package auth_test

import (
	"crypto/rand"
	"testing"

	"github.com/civica-dev/accounts/internal/auth"
)

func TestPasswordHasher(t *testing.T) {
	hasher := auth.NewBcryptPasswordHasher(0)

	hash, err := hasher.Hash("password")
	if err != nil {
		t.Errorf("Hash failed: %v", err)
	}
	if hash == "password" {
		t.Error("hash must not equal the plaintext")
	}
	if !hasher.Verify(hash, "password") {
		t.Error("Verify failed for the matching password")
	}
	if hasher.Verify(hash, "not-the-password") {
		t.Error("Verify succeeded for a wrong password")
	}

	t.Run("TestMalformedStoredHash", func(t *testing.T) {
		if hasher.Verify("not-a-bcrypt-hash", "password") {
			t.Error("Verify succeeded for a malformed stored hash")
		}
	})

	t.Run("TestTooLongPassword", func(t *testing.T) {
		tooLongPass := make([]byte, 73)
		rand.Read(tooLongPass)

		_, err := hasher.Hash(string(tooLongPass))
		if err == nil {
			t.Errorf("Hash should have failed")
		}
	})

	t.Run("TestIndependentSalts", func(t *testing.T) {
		other, err := hasher.Hash("password")
		if err != nil {
			t.Fatalf("Hash failed: %v", err)
		}
		if other == hash {
			t.Error("two hashes of the same password should differ")
		}
	})
}
