// Package auth exchanges console credentials for bearer tokens and keeps the
// current token for a profiling run.
package auth

import (
	"context"
	"net/http"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wesleyorama2/pageprof/internal/clock"
	lhttp "github.com/wesleyorama2/pageprof/internal/http"
	"github.com/wesleyorama2/pageprof/pkg/jsonpath"
	"github.com/wesleyorama2/pageprof/pkg/jsonschema"
)

// AuthenticatePath is appended to the endpoint for the credential exchange.
const AuthenticatePath = "authenticate"

var tokenResponseSchema = jsonschema.MustCompile("token-response", `{
	"type": "object",
	"required": ["token"],
	"properties": {
		"token": {"type": "string", "minLength": 1}
	}
}`)

// Credentials are exchanged for a token.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Token is a bearer token issued by the console.
type Token struct {
	Value    string
	IssuedAt time.Time
}

// Issuer produces fresh tokens.
type Issuer interface {
	Authenticate(ctx context.Context) (Token, error)
}

// IssuerFunc adapts a function to the Issuer interface.
type IssuerFunc func(ctx context.Context) (Token, error)

func (f IssuerFunc) Authenticate(ctx context.Context) (Token, error) { return f(ctx) }

// Authenticator performs the credential exchange against
// POST {endpoint}/authenticate.
type Authenticator struct {
	client *lhttp.Client
	creds  Credentials
	clock  clock.Clock
	log    logrus.FieldLogger
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithClock sets the clock used to stamp issued tokens.
func WithClock(c clock.Clock) Option {
	return func(a *Authenticator) { a.clock = c }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Authenticator) { a.log = l }
}

// NewAuthenticator returns an Authenticator that posts creds through client.
// The client's base URL is the console endpoint.
func NewAuthenticator(client *lhttp.Client, creds Credentials, opts ...Option) *Authenticator {
	a := &Authenticator{
		client: client,
		creds:  creds,
		clock:  clock.RealClock{},
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate exchanges the credentials for a new token. Every failure,
// including transport errors and malformed token responses, is an *AuthError.
func (a *Authenticator) Authenticate(ctx context.Context) (Token, error) {
	endpoint := a.client.BaseURL()
	a.log.WithField("endpoint", endpoint).Debug("requesting a new token")

	req := lhttp.NewRequest(http.MethodPost, AuthenticatePath).WithBody(a.creds)
	resp, err := a.client.Do(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return Token{}, ctx.Err()
		}
		return Token{}, &AuthError{
			Endpoint: endpoint,
			Err:      pkgerrors.Wrap(err, "credential exchange failed"),
		}
	}

	if resp.StatusCode != http.StatusOK {
		return Token{}, &AuthError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	if err := tokenResponseSchema.Validate(resp.Body()); err != nil {
		return Token{}, &AuthError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        pkgerrors.Wrap(err, "unexpected token response"),
		}
	}

	value, err := jsonpath.Extract(resp.GetBodyAsString(), "$.token")
	if err != nil {
		return Token{}, &AuthError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: err}
	}

	a.log.WithField("endpoint", endpoint).Debug("token issued")
	return Token{Value: value, IssuedAt: a.clock.Now()}, nil
}
