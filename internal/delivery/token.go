package delivery

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"gemstore/internal/model"

	"github.com/rs/zerolog"
)

// TokenFunc performs the provider's credentials exchange and returns a
// fresh bearer token.
type TokenFunc func(ctx context.Context) (string, error)

// TokenSource caches one bearer token per provider-credential pair and
// serializes refreshes: concurrent callers hitting an expired token
// trigger at most one exchange, the rest receive the cached result.
type TokenSource struct {
	provider string
	exchange TokenFunc
	logger   zerolog.Logger

	mu    sync.Mutex
	token string
}

// NewTokenSource creates a token source for one credential pair.
func NewTokenSource(provider string, exchange TokenFunc, logger zerolog.Logger) *TokenSource {
	return &TokenSource{
		provider: provider,
		exchange: exchange,
		logger:   logger.With().Str("component", "token-source").Str("provider", provider).Logger(),
	}
}

// Token returns the cached token, performing the credentials exchange
// first if no token is held. The mutex is held across the exchange so
// a caller arriving during a refresh waits for its result instead of
// issuing its own exchange.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		return s.token, nil
	}

	token, err := s.exchange(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("token exchange failed")
		return "", &model.AuthError{Provider: s.provider, Err: err}
	}
	if token == "" {
		return "", &model.AuthError{Provider: s.provider, Err: fmt.Errorf("provider returned empty token")}
	}

	s.token = token
	s.logger.Debug().Msg("token acquired")
	return token, nil
}

// Invalidate drops the cached token, but only if it still equals the
// stale one the caller saw rejected. A concurrent caller that already
// triggered a refresh keeps the new token intact.
func (s *TokenSource) Invalidate(stale string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == stale {
		s.token = ""
		s.logger.Debug().Msg("token invalidated")
	}
}

// AuthTransport decorates a provider transport with the bearer-token
// lifecycle: it injects the cached token and, on a 401 response,
// refreshes exactly once and replays the request. A second 401 is
// returned as-is; a failed refresh fails the call with an AuthError
// and no further retry.
type AuthTransport struct {
	Base   http.RoundTripper
	Tokens *TokenSource
}

// RoundTrip implements http.RoundTripper.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.Tokens.Token(req.Context())
	if err != nil {
		return nil, err
	}

	resp, err := t.send(req, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// Single auth retry. The response body is drained so the
	// underlying connection can be reused.
	resp.Body.Close()
	t.Tokens.Invalidate(token)

	token, err = t.Tokens.Token(req.Context())
	if err != nil {
		return nil, err
	}

	return t.send(req, token)
}

func (t *AuthTransport) send(req *http.Request, token string) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		clone.Body = body
	}
	clone.Header.Set("Authorization", "Bearer "+token)

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}
