package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequenceIssuer hands out tok-1, tok-2, ... and fails when fail is set.
type sequenceIssuer struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (s *sequenceIssuer) Authenticate(ctx context.Context) (Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return Token{}, &AuthError{Endpoint: "https://console", StatusCode: 401}
	}
	return Token{Value: fmt.Sprintf("tok-%d", s.calls)}, nil
}

func (s *sequenceIssuer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestNewSession(t *testing.T) {
	logger, _ := test.NewNullLogger()
	issuer := &sequenceIssuer{}

	session, err := NewSession(context.Background(), issuer, logger)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", session.Token())
	assert.Equal(t, 0, session.Refreshes())
}

func TestNewSession_StartupFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := NewSession(context.Background(), &sequenceIssuer{fail: true}, logger)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestSession_Refresh(t *testing.T) {
	logger, _ := test.NewNullLogger()
	issuer := &sequenceIssuer{}
	session, err := NewSession(context.Background(), issuer, logger)
	require.NoError(t, err)

	require.NoError(t, session.Refresh(context.Background(), "tok-1"))
	assert.Equal(t, "tok-2", session.Token())
	assert.Equal(t, 1, session.Refreshes())

	// A caller still holding tok-1 must not trigger another exchange.
	require.NoError(t, session.Refresh(context.Background(), "tok-1"))
	assert.Equal(t, "tok-2", session.Token())
	assert.Equal(t, 2, issuer.Calls())
}

func TestSession_RefreshFailureKeepsToken(t *testing.T) {
	logger, hook := test.NewNullLogger()
	issuer := &sequenceIssuer{}
	session, err := NewSession(context.Background(), issuer, logger)
	require.NoError(t, err)

	issuer.mu.Lock()
	issuer.fail = true
	issuer.mu.Unlock()

	err = session.Refresh(context.Background(), "tok-1")
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.Equal(t, "tok-1", session.Token())
	assert.Equal(t, 0, session.Refreshes())

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestSession_ConcurrentRefreshIsSingleWriter(t *testing.T) {
	logger, _ := test.NewNullLogger()
	issuer := &sequenceIssuer{}
	session, err := NewSession(context.Background(), issuer, logger)
	require.NoError(t, err)

	stale := session.Token()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = session.Refresh(context.Background(), stale)
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, issuer.Calls(), "only one refresh should reach the issuer")
	assert.Equal(t, "tok-2", session.Token())
}

func TestIssuerFunc(t *testing.T) {
	boom := errors.New("boom")
	var issuer Issuer = IssuerFunc(func(context.Context) (Token, error) { return Token{}, boom })
	_, err := issuer.Authenticate(context.Background())
	assert.ErrorIs(t, err, boom)
}
