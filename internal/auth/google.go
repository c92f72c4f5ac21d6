package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"signaware-client/internal/shared/server/respond"
	"signaware-client/internal/shared/telemetry"
)

const callbackPath = "/oauth/callback"

const closePage = `<!doctype html><html><body><p>Sign-in complete. You can close this window.</p></body></html>`

// GoogleProvider runs the OAuth 2.0 loopback flow for installed apps and
// returns a Google identity token for the backend.
type GoogleProvider struct {
	oauthConfig oauth2.Config
	host        string
	port        int
	stateTTL    time.Duration
	states      *stateStore
	opener      Opener
}

// Option customizes a GoogleProvider.
type Option func(*GoogleProvider)

// WithEndpoint overrides the Google authorization and token endpoints.
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(p *GoogleProvider) { p.oauthConfig.Endpoint = ep }
}

// WithStateTTL overrides how long an issued state stays valid.
func WithStateTTL(ttl time.Duration) Option {
	return func(p *GoogleProvider) { p.stateTTL = ttl }
}

// NewGoogleProvider builds a provider that listens on 127.0.0.1:port for the
// redirect. Port 0 picks a free port per sign-in. A nil opener uses the
// system browser.
func NewGoogleProvider(clientID, clientSecret string, port int, opener Opener, opts ...Option) *GoogleProvider {
	if opener == nil {
		opener = SystemBrowser{}
	}
	p := &GoogleProvider{
		oauthConfig: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		host:     "127.0.0.1",
		port:     port,
		stateTTL: 5 * time.Minute,
		states:   newStateStore(),
		opener:   opener,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type callbackResult struct {
	code string
	err  *ProviderError
}

// SignIn opens the consent page and blocks until the redirect arrives, the
// state expires, or ctx is done.
func (p *GoogleProvider) SignIn(ctx context.Context) (string, error) {
	if p.oauthConfig.ClientID == "" {
		return "", providerError(KindUnauthorized, "Google sign-in is not configured", nil)
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(p.host, strconv.Itoa(p.port)))
	if err != nil {
		return "", providerError(KindFailed, "could not start the sign-in callback listener", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	cfg := p.oauthConfig
	cfg.RedirectURL = fmt.Sprintf("http://%s:%d%s", p.host, addr.Port, callbackPath)

	state := uuid.NewString()
	p.states.put(state, time.Now().Add(p.stateTTL))
	defer p.states.drop(state)
	verifier := oauth2.GenerateVerifier()

	results := make(chan callbackResult, 1)
	srv := &http.Server{Handler: p.callbackRouter(results), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			telemetry.Warn("auth.google.callback_server", map[string]any{"error": err.Error()})
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
	if err := p.opener.Open(authURL); err != nil {
		return "", providerError(KindBlocked, "Could not open the browser for Google sign-in", err)
	}
	telemetry.Info("auth.google.started", map[string]any{"redirect": cfg.RedirectURL})

	timer := time.NewTimer(p.stateTTL)
	defer timer.Stop()

	var res callbackResult
	select {
	case <-ctx.Done():
		return "", providerError(KindCancelled, "Google sign-in was cancelled", ctx.Err())
	case <-timer.C:
		return "", providerError(KindCancelled, "Google sign-in timed out", context.DeadlineExceeded)
	case res = <-results:
	}
	if res.err != nil {
		return "", res.err
	}

	tok, err := cfg.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return "", exchangeError(err)
	}
	if idToken, ok := tok.Extra("id_token").(string); ok && idToken != "" {
		return idToken, nil
	}
	if tok.AccessToken == "" {
		return "", providerError(KindFailed, "Google returned no token", nil)
	}
	return tok.AccessToken, nil
}

func (p *GoogleProvider) callbackRouter(results chan<- callbackResult) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET(callbackPath, func(c *gin.Context) {
		deliver := func(res callbackResult) {
			select {
			case results <- res:
			default:
			}
		}

		// Only a redirect carrying the issued state may end the sign-in.
		state := c.Query("state")
		if state == "" || !p.states.consume(state) {
			respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
			return
		}

		if oauthErr := c.Query("error"); oauthErr != "" {
			perr := callbackError(oauthErr, c.Query("error_description"))
			deliver(callbackResult{err: perr})
			respond.Error(c, http.StatusBadRequest, oauthErr, perr.Message, nil)
			return
		}

		code := c.Query("code")
		if code == "" {
			deliver(callbackResult{err: providerError(KindFailed, "Google sign-in returned no code", nil)})
			respond.Error(c, http.StatusBadRequest, "invalid_request", "missing code", nil)
			return
		}

		deliver(callbackResult{code: code})
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(closePage))
	})
	return r
}

func callbackError(code, description string) *ProviderError {
	msg := description
	switch code {
	case "access_denied":
		if msg == "" {
			msg = "Google sign-in was cancelled"
		}
		return providerError(KindCancelled, msg, nil)
	case "unauthorized_client", "invalid_client", "redirect_uri_mismatch":
		if msg == "" {
			msg = "This app is not authorized for Google sign-in"
		}
		return providerError(KindUnauthorized, msg, nil)
	default:
		if msg == "" {
			msg = "Google sign-in failed: " + code
		}
		return providerError(KindFailed, msg, nil)
	}
}

func exchangeError(err error) *ProviderError {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		switch rErr.ErrorCode {
		case "invalid_client", "unauthorized_client", "redirect_uri_mismatch":
			return providerError(KindUnauthorized, "This app is not authorized for Google sign-in", err)
		}
		return providerError(KindFailed, "failed to exchange code", err)
	}
	if errors.Is(err, context.Canceled) {
		return providerError(KindCancelled, "Google sign-in was cancelled", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return providerError(KindNetwork, "Network error. Please check your connection.", err)
	}
	return providerError(KindFailed, "failed to exchange code", err)
}

type stateStore struct {
	items map[string]time.Time
	mu    sync.Mutex
}

func newStateStore() *stateStore {
	return &stateStore{items: make(map[string]time.Time)}
}

func (s *stateStore) put(state string, exp time.Time) {
	s.mu.Lock()
	s.items[state] = exp
	s.mu.Unlock()
}

// drop forgets state whether or not it was used.
func (s *stateStore) drop(state string) {
	s.mu.Lock()
	delete(s.items, state)
	s.mu.Unlock()
}

func (s *stateStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// consume removes state and reports whether it was issued and unexpired.
func (s *stateStore) consume(state string) bool {
	s.mu.Lock()
	exp, ok := s.items[state]
	if ok {
		delete(s.items, state)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	return !time.Now().After(exp)
}
