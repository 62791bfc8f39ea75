package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// TokenService issues and verifies one-time action tokens. A token is
// bound to a single action, expires after the configured TTL, and is
// consumed on first successful verification so it cannot be replayed.
type TokenService struct {
	secretKey []byte
	ttl       time.Duration

	mu   sync.Mutex
	used map[string]time.Time // jti -> token expiry
}

// NewTokenService creates a new TokenService. A TTL of zero or less
// falls back to 15 minutes.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &TokenService{
		secretKey: []byte(secret),
		ttl:       ttl,
		used:      make(map[string]time.Time),
	}
}

// Issue creates a signed token for the given action.
func (s *TokenService) Issue(action string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"act": action,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// Verify checks signature, expiry and action, then consumes the token.
// A second verification of the same token fails.
func (s *TokenService) Verify(tokenStr, action string) bool {
	if tokenStr == "" {
		return false
	}
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return s.secretKey, nil
	})
	if err != nil || !token.Valid {
		return false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return false
	}
	if act, ok := claims["act"].(string); !ok || act != action {
		return false
	}
	jti, ok := claims["jti"].(string)
	if !ok || jti == "" {
		return false
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	if _, seen := s.used[jti]; seen {
		return false
	}
	s.used[jti] = time.Unix(int64(exp), 0)
	return true
}

// pruneLocked drops consumed entries whose tokens have expired anyway.
// Callers must hold mu.
func (s *TokenService) pruneLocked() {
	now := time.Now()
	for jti, exp := range s.used {
		if now.After(exp) {
			delete(s.used, jti)
		}
	}
}
