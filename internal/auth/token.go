// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// SessionSubject discriminates admin session tokens from any other
	// value signed with the same secret.
	SessionSubject = "admin"

	// SessionTTL is the lifetime of an issued token and of its cookie.
	SessionTTL = 12 * time.Hour
)

// Token verification errors.
var (
	ErrMissingSecret  = errors.New("session token: signing secret required")
	ErrTokenFormat    = errors.New("session token: invalid format")
	ErrTokenSignature = errors.New("session token: bad signature")
	ErrTokenParse     = errors.New("session token: malformed payload")
	ErrTokenSubject   = errors.New("session token: wrong subject")
	ErrTokenClaims    = errors.New("session token: missing claims")
	ErrTokenExpired   = errors.New("session token: expired")
)

// tokenEncoding rejects non-zero trailing bits, so every encoded token has a
// single valid spelling.
var tokenEncoding = base64.RawURLEncoding.Strict()

// Identity is the admin identity carried inside a session token.
type Identity struct {
	UserID      int64  `json:"userId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// SessionClaims is the signed token payload. IssuedAt and ExpiresAt are Unix seconds.
type SessionClaims struct {
	Subject string `json:"sub"`
	Identity
	IssuedAt  int64 `json:"iat"`
	ExpiresAt int64 `json:"exp"`
}

// Expires returns the expiry as a time.Time.
func (c SessionClaims) Expires() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}

// TokenCodecConfig configures a TokenCodec.
type TokenCodecConfig struct {
	Secret []byte
	TTL    time.Duration    // defaults to SessionTTL
	Clock  func() time.Time // defaults to time.Now
}

// TokenCodec issues and verifies HMAC-SHA256 signed session tokens of the
// form base64url(payload) "." base64url(mac).
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	clock  func() time.Time
}

// NewTokenCodec constructs a codec with the provided configuration.
func NewTokenCodec(cfg TokenCodecConfig) (*TokenCodec, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = SessionTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TokenCodec{
		secret: append([]byte(nil), cfg.Secret...),
		ttl:    ttl,
		clock:  clock,
	}, nil
}

// TTL returns the lifetime of issued tokens.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a new token for the identity.
func (c *TokenCodec) Issue(id Identity) (string, SessionClaims, error) {
	now := c.clock()
	claims := SessionClaims{
		Subject:   SessionSubject,
		Identity:  id,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(c.ttl).Unix(),
	}

	payloadBytes, err := json.Marshal(claims)
	if err != nil {
		return "", SessionClaims{}, fmt.Errorf("marshal claims: %w", err)
	}
	payload := tokenEncoding.EncodeToString(payloadBytes)
	return payload + "." + tokenEncoding.EncodeToString(c.sign(payload)), claims, nil
}

// Verify checks the token signature and claims and returns the claims.
func (c *TokenCodec) Verify(token string) (SessionClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return SessionClaims{}, ErrTokenFormat
	}
	payload := parts[0]

	mac, err := tokenEncoding.DecodeString(parts[1])
	if err != nil || !hmac.Equal(mac, c.sign(payload)) {
		return SessionClaims{}, ErrTokenSignature
	}

	decoded, err := tokenEncoding.DecodeString(payload)
	if err != nil {
		return SessionClaims{}, ErrTokenParse
	}
	var claims SessionClaims
	if err := json.Unmarshal(decoded, &claims); err != nil {
		return SessionClaims{}, ErrTokenParse
	}

	if claims.Subject != SessionSubject {
		return SessionClaims{}, ErrTokenSubject
	}
	if claims.UserID == 0 || claims.Username == "" || claims.Role == "" || claims.ExpiresAt == 0 {
		return SessionClaims{}, ErrTokenClaims
	}
	if claims.ExpiresAt <= c.clock().Unix() {
		return SessionClaims{}, ErrTokenExpired
	}
	return claims, nil
}

func (c *TokenCodec) sign(payload string) []byte {
	sum := hmac.New(sha256.New, c.secret)
	_, _ = sum.Write([]byte(payload))
	return sum.Sum(nil)
}
