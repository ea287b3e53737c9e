package auth

import (
	"errors"
	"testing"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hasher := NewPasswordHasherWithCost(4)

	hash, err := hasher.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == "correct-horse-battery" {
		t.Fatalf("hash must not equal the plaintext")
	}

	if err := hasher.Compare(hash, "correct-horse-battery"); err != nil {
		t.Fatalf("expected matching password to verify: %v", err)
	}
	if err := hasher.Compare(hash, "wrong"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected mismatch error, got %v", err)
	}
}

func TestHashesAreSalted(t *testing.T) {
	hasher := NewPasswordHasherWithCost(4)

	first, err := hasher.Hash("same-password")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	second, err := hasher.Hash("same-password")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if first == second {
		t.Fatalf("two hashes of the same password must differ")
	}
}
