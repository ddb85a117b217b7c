package auth

import (
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Session holds the bearer token issued by the backend's auth service. Token
// issuance itself is out of scope here; the portal only carries the token and
// inspects its registered claims so polling can anticipate expiry instead of
// discovering it through 401s.
type Session struct {
	mu     sync.RWMutex
	token  string
	claims *jwt.RegisteredClaims
	now    func() time.Time
}

// NewSession builds a session around an already-issued token. An empty token
// yields an unauthenticated session, which is a valid state: polling
// continues across login and logout.
func NewSession(token string) *Session {
	s := &Session{now: time.Now}
	s.SetToken(token)
	return s
}

// SetToken replaces the carried token. The token is decoded without signature
// verification; only the backend holds the signing key, and the claims are
// used purely as a local hint.
func (s *Session) SetToken(token string) {
	var claims *jwt.RegisteredClaims
	if token != "" {
		parsed := &jwt.RegisteredClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(token, parsed); err == nil {
			claims = parsed
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.claims = claims
}

// Clear drops the token.
func (s *Session) Clear() {
	s.SetToken("")
}

// Token returns the raw bearer token, empty when unauthenticated.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Subject returns the token's subject claim, empty when unknown.
func (s *Session) Subject() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return ""
	}
	return s.claims.Subject
}

// ExpiresAt returns the token expiry, zero when the token carries none.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil || s.claims.ExpiresAt == nil {
		return time.Time{}
	}
	return s.claims.ExpiresAt.Time
}

// Authenticated reports whether a token is present and not known to be
// expired. A token without an exp claim counts as live.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return false
	}
	if s.claims == nil || s.claims.ExpiresAt == nil {
		return true
	}
	return s.now().Before(s.claims.ExpiresAt.Time)
}
