package auth

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Session owns the bearer token for a run. Reads are concurrent; refreshing
// is exclusive, and a caller holding a stale token that has already been
// replaced does not trigger a second exchange.
type Session struct {
	mu        sync.RWMutex
	issuer    Issuer
	token     Token
	refreshes int
	log       logrus.FieldLogger
}

// NewSession authenticates once and returns a Session holding the token.
// A failure here means no scenario can run.
func NewSession(ctx context.Context, issuer Issuer, log logrus.FieldLogger) (*Session, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	token, err := issuer.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	log.Debug("session established")
	return &Session{issuer: issuer, token: token, log: log}, nil
}

// Token returns the current token value.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token.Value
}

// Refresh replaces the token if it is still stale. On failure the old token
// is kept.
func (s *Session) Refresh(ctx context.Context, stale string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token.Value != stale {
		s.log.Debug("token already refreshed by another caller")
		return nil
	}

	token, err := s.issuer.Authenticate(ctx)
	if err != nil {
		s.log.WithError(err).Warn("token refresh failed")
		return err
	}
	s.token = token
	s.refreshes++
	s.log.WithField("refreshes", s.refreshes).Debug("token refreshed")
	return nil
}

// Refreshes returns how many times the token has been replaced.
func (s *Session) Refreshes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshes
}
