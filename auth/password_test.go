package auth_test

import (
	"testing"

	"github.com/warp/rollcall/auth"
)

func TestPassword_HashAndVerify(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("hash must not equal the plaintext")
	}

	if !auth.VerifyPassword(hash, "s3cret") {
		t.Error("correct password should verify")
	}
	if auth.VerifyPassword(hash, "wrong") {
		t.Error("wrong password should not verify")
	}
}

func TestPassword_HashesAreSalted(t *testing.T) {
	a, err := auth.HashPassword("same")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := auth.HashPassword("same")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == b {
		t.Error("two hashes of the same password should differ")
	}
}
