// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package auth provides admin password hashing and the signed session
// token carried in the admin_session cookie.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/scrypt"
)

// scrypt parameters. Changing any of them makes NeedsRehash report true for
// hashes derived with the old key length.
const (
	ScryptTag     = "scrypt"
	ScryptN       = 16384
	ScryptR       = 8
	ScryptP       = 1
	ScryptKeyLen  = 64
	ScryptSaltLen = 16
)

// Upper bounds on parameters read back from stored hashes.
const (
	maxKeyLen       = 128
	maxArgon2Memory = 256 * 1024 // KiB
	maxArgon2Time   = 16
)

// HashPassword derives a scrypt key from the password and a random salt.
// Returns encoded hash in format: scrypt$<salt hex>$<derived key hex>
func HashPassword(password string) (string, error) {
	raw := make([]byte, ScryptSaltLen)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	salt := hex.EncodeToString(raw)

	key, err := scrypt.Key([]byte(password), []byte(salt), ScryptN, ScryptR, ScryptP, ScryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("deriving key: %w", err)
	}

	return ScryptTag + "$" + salt + "$" + hex.EncodeToString(key), nil
}

// VerifyPassword reports whether password matches the stored hash.
// Malformed or unknown hashes never match.
func VerifyPassword(password, encodedHash string) bool {
	var (
		ok  bool
		err error
	)
	if strings.HasPrefix(encodedHash, "$argon2id$") {
		ok, err = verifyArgon2(password, encodedHash)
	} else {
		ok, err = verifyScrypt(password, encodedHash)
	}
	return err == nil && ok
}

// NeedsRehash reports whether a hash should be replaced by a fresh scrypt hash.
func NeedsRehash(encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 3 || parts[0] != ScryptTag {
		return true
	}
	return len(parts[2]) != hex.EncodedLen(ScryptKeyLen)
}

func verifyScrypt(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 3 {
		return false, fmt.Errorf("invalid hash format")
	}
	if parts[0] != ScryptTag {
		return false, fmt.Errorf("unsupported hash type: %s", parts[0])
	}
	if parts[1] == "" {
		return false, fmt.Errorf("empty salt")
	}

	expected, err := hex.DecodeString(parts[2])
	if err != nil {
		return false, fmt.Errorf("decoding key: %w", err)
	}
	if len(expected) == 0 || len(expected) > maxKeyLen {
		return false, fmt.Errorf("invalid key length %d", len(expected))
	}

	key, err := scrypt.Key([]byte(password), []byte(parts[1]), ScryptN, ScryptR, ScryptP, len(expected))
	if err != nil {
		return false, fmt.Errorf("deriving key: %w", err)
	}
	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}

// verifyArgon2 checks hashes written before the switch to scrypt.
// Format: $argon2id$v=19$m=19456,t=2,p=1$salt$hash
func verifyArgon2(input, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false, fmt.Errorf("invalid hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("parsing version: %w", err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("unsupported argon2 version %d", version)
	}

	var memory, timeCost uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &threads); err != nil {
		return false, fmt.Errorf("parsing parameters: %w", err)
	}
	if memory == 0 || memory > maxArgon2Memory || timeCost == 0 || timeCost > maxArgon2Time || threads == 0 {
		return false, fmt.Errorf("argon2 parameters out of range")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("decoding salt: %w", err)
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("decoding hash: %w", err)
	}
	if len(salt) == 0 || len(expectedHash) == 0 || len(expectedHash) > maxKeyLen {
		return false, fmt.Errorf("invalid salt or hash length")
	}

	hash := argon2.IDKey([]byte(input), salt, timeCost, memory, threads, uint32(len(expectedHash)))
	return subtle.ConstantTimeCompare(hash, expectedHash) == 1, nil
}
