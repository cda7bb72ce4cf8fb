package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/argon2"
)

func TestHashPassword_Verify(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=1$") {
		t.Errorf("hash = %q, want default argon2id parameters", hash)
	}

	tests := []struct {
		password string
		want     bool
	}{
		{"correct-horse-battery-staple", true},
		{"Correct-horse-battery-staple", false},
		{"", false},
	}
	for _, tt := range tests {
		ok, err := VerifyPassword(tt.password, hash)
		if err != nil {
			t.Fatalf("VerifyPassword(%q) error = %v", tt.password, err)
		}
		if ok != tt.want {
			t.Errorf("VerifyPassword(%q) = %v, want %v", tt.password, ok, tt.want)
		}
	}

	again, err := HashPassword("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if again == hash {
		t.Error("hashes of the same password share a salt")
	}
}

// Hashes written with other cost settings keep verifying after the defaults change.
func TestVerifyPassword_UsesEncodedParameters(t *testing.T) {
	salt := []byte("0123456789abcdef")
	cheap := phc{
		memory:  8 * 1024,
		time:    1,
		threads: 2,
		salt:    salt,
		hash:    argon2.IDKey([]byte("viewer-password"), salt, 1, 8*1024, 2, 16),
	}

	ok, err := VerifyPassword("viewer-password", cheap.String())
	if err != nil || !ok {
		t.Errorf("VerifyPassword() = %v, %v; want true, nil", ok, err)
	}
}

func TestVerifyPassword_Malformed(t *testing.T) {
	tests := map[string]string{
		"empty":         "",
		"plaintext":     "admin-password",
		"bcrypt":        "$2a$10$abcdefghijklmnopqrstuv",
		"missing hash":  "$argon2id$v=19$m=65536,t=3,p=1$c2FsdA",
		"old version":   "$argon2id$v=16$m=65536,t=3,p=1$c2FsdA$aGFzaA",
		"bad cost":      "$argon2id$v=19$memory$c2FsdA$aGFzaA",
		"bad salt":      "$argon2id$v=19$m=65536,t=3,p=1$!!!$aGFzaA",
		"empty digest":  "$argon2id$v=19$m=65536,t=3,p=1$c2FsdA$",
		"extra segment": "$argon2id$v=19$m=65536,t=3,p=1$c2FsdA$aGFzaA$x",
	}

	for name, hash := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := VerifyPassword("password", hash); !errors.Is(err, errMalformedHash) {
				t.Errorf("VerifyPassword() error = %v, want errMalformedHash", err)
			}
		})
	}
}

func TestDummyHashParses(t *testing.T) {
	if _, err := parsePHC(dummyHash); err != nil {
		t.Fatalf("parsePHC(dummyHash) error = %v", err)
	}
}
