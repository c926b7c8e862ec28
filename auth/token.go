package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// =============================================================================
// TOKEN SERVICE - HS256 access tokens handed out at login
// =============================================================================

// ErrInvalidToken is returned when a presented token fails validation
// for any reason (bad signature, expired, malformed).
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenService signs and validates access tokens. The token carries only
// the username; role and programs are re-read from the store on every
// request, so permission edits take effect without re-login.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret []byte, ttl time.Duration) *TokenService {
	return &TokenService{secret: secret, ttl: ttl}
}

// Generate signs an access token for username, valid for the service TTL.
func (s *TokenService) Generate(username string, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	})
	return token.SignedString(s.secret)
}

// Validate parses a token string and returns the username it was issued to.
func (s *TokenService) Validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// RandomSecret returns a random hex secret for deployments that don't
// configure one. Tokens die with the process; fine for dev, not for prod.
func RandomSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		panic(err) // crypto/rand failure is not recoverable
	}
	return hex.EncodeToString(bytes)
}
