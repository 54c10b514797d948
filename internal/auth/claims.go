package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenTypeAccess is the value of the "type" claim on access tokens.
// Verification rejects any token without it, so a refresh-shaped JWT can
// never be replayed as an access token.
const tokenTypeAccess = "access"

// AccessClaims are the JWT claims carried by an access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Username  string `json:"username"`
	Role      Role   `json:"role"`
	TokenType string `json:"type"`
}

// TokenSigner mints and validates access tokens with a symmetric
// HMAC-SHA256 key. The key is read-only process state, initialised once;
// rotating it invalidates every outstanding access token (accepted
// behaviour — it forces re-login).
type TokenSigner struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenSigner creates a TokenSigner.
func NewTokenSigner(secret, issuer, audience string, ttl time.Duration) *TokenSigner {
	return &TokenSigner{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		now:      time.Now,
	}
}

// SetClock overrides the signer's clock. Tests use this to probe the
// expiry boundary without sleeping.
func (s *TokenSigner) SetClock(now func() time.Time) {
	s.now = now
}

// GenerateAccessToken creates a signed access token for a user.
// The token is self-contained: verification never touches the database.
func (s *TokenSigner) GenerateAccessToken(user *User) (string, error) {
	now := s.now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Username:  user.Username,
		Role:      user.Role,
		TokenType: tokenTypeAccess,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken validates an access token and returns the principal.
//
// It checks the signature, signing algorithm, issuer, audience, expiry,
// and the "type" claim. Every failure mode, including malformed input,
// yields ErrTokenInvalid — the caller treats them all as unauthenticated.
func (s *TokenSigner) ParseAccessToken(tokenString string) (*Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.TokenType != tokenTypeAccess {
		return nil, fmt.Errorf("%w: wrong token type", ErrTokenInvalid)
	}
	if claims.Subject == "" || claims.Username == "" {
		return nil, fmt.Errorf("%w: missing identity claims", ErrTokenInvalid)
	}
	if !IsValidRole(claims.Role) {
		return nil, fmt.Errorf("%w: unknown role", ErrTokenInvalid)
	}

	return &Principal{
		UserID:   claims.Subject,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

// refreshTokenBytes is the entropy of a raw refresh token (256-bit).
const refreshTokenBytes = 32

// GenerateRefreshToken creates a cryptographically random opaque token.
// The raw value goes to the client; only its hash is stored.
func GenerateRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
