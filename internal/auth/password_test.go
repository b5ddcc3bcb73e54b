// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("admin123")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	parts := strings.Split(hash, "$")
	if len(parts) != 3 {
		t.Fatalf("hash has %d parts, want 3: %s", len(parts), hash)
	}
	if parts[0] != ScryptTag {
		t.Errorf("tag = %q, want %q", parts[0], ScryptTag)
	}
	if len(parts[1]) != ScryptSaltLen*2 {
		t.Errorf("salt length = %d, want %d", len(parts[1]), ScryptSaltLen*2)
	}
	if len(parts[2]) != ScryptKeyLen*2 {
		t.Errorf("key length = %d, want %d", len(parts[2]), ScryptKeyLen*2)
	}
}

func TestHashPassword_UniqueSalt(t *testing.T) {
	a, _ := HashPassword("same")
	b, _ := HashPassword("same")
	if a == b {
		t.Fatal("two hashes of the same password are identical")
	}
}

func TestVerifyPassword_Correct(t *testing.T) {
	hash, err := HashPassword("admin123")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if !VerifyPassword("admin123", hash) {
		t.Fatal("Correct password was rejected")
	}
}

func TestVerifyPassword_Wrong(t *testing.T) {
	hash, err := HashPassword("admin123")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if VerifyPassword("admin124", hash) {
		t.Fatal("Wrong password was accepted")
	}
}

func TestVerifyPassword_Malformed(t *testing.T) {
	hashes := []string{
		"",
		"admin123",
		"scrypt$",
		"scrypt$abc",
		"scrypt$$deadbeef",
		"scrypt$abc$not-hex",
		"bcrypt$abc$deadbeef",
		"$argon2id$v=19$broken",
		"scrypt$abc$" + strings.Repeat("ab", 4096),
		"$argon2id$v=19$m=19456,t=2,p=0$c2FsdHNhbHQ$aGFzaGhhc2g",
		"$argon2id$v=19$m=19456,t=0,p=1$c2FsdHNhbHQ$aGFzaGhhc2g",
		"$argon2id$v=19$m=0,t=2,p=1$c2FsdHNhbHQ$aGFzaGhhc2g",
		"$argon2id$v=19$m=4294967295,t=2,p=1$c2FsdHNhbHQ$aGFzaGhhc2g",
		"$argon2id$v=19$m=19456,t=4294967295,p=1$c2FsdHNhbHQ$aGFzaGhhc2g",
		"$argon2id$v=19$m=19456,t=2,p=1$$aGFzaGhhc2g",
		"$argon2id$v=19$m=19456,t=2,p=1$c2FsdHNhbHQ$",
		"$argon2id$v=16$m=19456,t=2,p=1$c2FsdHNhbHQ$aGFzaGhhc2g",
	}

	for _, h := range hashes {
		t.Run(h, func(t *testing.T) {
			if VerifyPassword("admin123", h) {
				t.Errorf("VerifyPassword accepted malformed hash %q", h)
			}
		})
	}
}

func TestVerifyPassword_PlaintextNeverMatches(t *testing.T) {
	if VerifyPassword("admin123", "admin123") {
		t.Fatal("a plaintext value stored as the hash must not verify")
	}
}

func TestVerifyPassword_LegacyArgon2(t *testing.T) {
	// Hash of "changeme" written by the previous argon2id scheme
	legacy := "$argon2id$v=19$m=65536,t=1,p=4$mucMvOaS6lZ2LWNS1OEFKw$UYEWv8cvCOO6l2zGeqv3JPVe1nyy0x9GXBfYEuDM544"

	if !VerifyPassword("changeme", legacy) {
		t.Fatal("legacy hash rejected correct password")
	}
	if VerifyPassword("wrongpassword", legacy) {
		t.Fatal("legacy hash accepted wrong password")
	}
	if !NeedsRehash(legacy) {
		t.Error("legacy hash should need rehash")
	}
}

func TestNeedsRehash(t *testing.T) {
	current, err := HashPassword("x")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	tests := []struct {
		name string
		hash string
		want bool
	}{
		{"current", current, false},
		{"short key", "scrypt$abcd$deadbeef", true},
		{"unknown", "md5$abc$def", true},
		{"garbage", "garbage", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsRehash(tt.hash); got != tt.want {
				t.Errorf("NeedsRehash(%q) = %v, want %v", tt.hash, got, tt.want)
			}
		})
	}
}
