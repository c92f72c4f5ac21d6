// Package session owns the signed-in user's tokens and profile. State is
// hydrated from a kv.Store by Init and cleared by Logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"signaware-client/internal/gateway"
	sharedauth "signaware-client/internal/shared/auth"
	"signaware-client/internal/shared/storage/kv"
	"signaware-client/internal/shared/telemetry"
)

// refreshLeeway refreshes tokens that expire within this window.
const refreshLeeway = 30 * time.Second

// Gateway is the subset of the backend client used for authentication.
type Gateway interface {
	SignIn(ctx context.Context, creds gateway.Credentials) (gateway.AuthResponse, error)
	SignUp(ctx context.Context, req gateway.SignupRequest) (gateway.AuthResponse, error)
	GoogleAuth(ctx context.Context, idToken string) (gateway.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (gateway.AuthResponse, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (gateway.User, error)
	UpdateRole(ctx context.Context, userID, role string) (gateway.User, error)
}

// Provider obtains a third-party identity token, e.g. from Google.
type Provider interface {
	SignIn(ctx context.Context) (string, error)
}

// Profile is the signed-in user as shown to the user.
type Profile struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Avatar string `json:"avatar,omitempty"`
}

// Session is a snapshot of the authenticated state.
type Session struct {
	AccessToken  string  `json:"-"`
	RefreshToken string  `json:"-"`
	Profile      Profile `json:"user"`
}

// SignupData is what the signup form collects.
type SignupData struct {
	Name     string
	Email    string
	Password string
	Role     Role
}

// Store is the explicit session context shared by the CLI, the local server
// and the workflow. It is safe for concurrent use.
type Store struct {
	gw       Gateway
	kv       kv.Store
	provider Provider
	tokens   *Tokens
	now      func() time.Time

	mu      sync.RWMutex
	profile *Profile
}

// Option customizes a Store.
type Option func(*Store)

// WithTokens shares a token holder already handed to the gateway client.
func WithTokens(t *Tokens) Option {
	return func(s *Store) {
		if t != nil {
			s.tokens = t
		}
	}
}

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New builds a Store. provider may be nil when Google sign-in is not configured.
func New(gw Gateway, store kv.Store, provider Provider, opts ...Option) *Store {
	s := &Store{
		gw:       gw,
		kv:       store,
		provider: provider,
		tokens:   &Tokens{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init hydrates tokens from durable storage and validates them against the
// backend. An expired JWT is refreshed first when a refresh token exists.
// Any failure to restore the session clears it; only storage errors are returned.
func (s *Store) Init(ctx context.Context) error {
	token, err := s.kv.Get(ctx, kv.KeyAuthToken)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load auth token: %w", err)
	}
	refresh, err := s.kv.Get(ctx, kv.KeyRefreshToken)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return fmt.Errorf("load refresh token: %w", err)
	}
	s.tokens.set(token, refresh)

	if sharedauth.Expired(token, s.now(), refreshLeeway) && refresh != "" {
		if err := s.Refresh(ctx); err != nil {
			telemetry.Warn("session.init.refresh_failed", map[string]any{"error": err.Error()})
			s.clearLocal(ctx)
			return nil
		}
	}

	if _, err := s.GetCurrentUser(ctx); err != nil {
		telemetry.Warn("session.init.check_failed", map[string]any{"error": err.Error()})
		s.clearLocal(ctx)
		return nil
	}
	return nil
}

// Login signs in with email and password.
func (s *Store) Login(ctx context.Context, creds gateway.Credentials) (Session, error) {
	resp, err := s.gw.SignIn(ctx, creds)
	if err != nil {
		return Session{}, classify("login", err, "Login failed")
	}
	return s.establish(ctx, resp)
}

// Signup creates an account. The name is split into first and last name.
func (s *Store) Signup(ctx context.Context, data SignupData) (Session, error) {
	first, last := splitName(data.Name)
	req := gateway.SignupRequest{
		Email:     data.Email,
		Password:  data.Password,
		FirstName: first,
		LastName:  last,
	}
	if data.Role != "" {
		req.Role = data.Role.BackendTag()
	}
	resp, err := s.gw.SignUp(ctx, req)
	if err != nil {
		return Session{}, classify("signup", err, "Signup failed")
	}
	return s.establish(ctx, resp)
}

// SignInWithGoogle runs the provider flow and trades its token with the backend.
func (s *Store) SignInWithGoogle(ctx context.Context) (Session, error) {
	if s.provider == nil {
		return Session{}, &AuthError{Kind: KindProviderUnauthorized, Message: "Google sign-in is not configured"}
	}
	idToken, err := s.provider.SignIn(ctx)
	if err != nil {
		return Session{}, classify("google", err, "Google sign-in failed")
	}
	resp, err := s.gw.GoogleAuth(ctx, idToken)
	if err != nil {
		return Session{}, classify("google", err, "Google sign-in failed")
	}
	return s.establish(ctx, resp)
}

// GetCurrentUser asks the backend who the current token belongs to.
func (s *Store) GetCurrentUser(ctx context.Context) (Profile, error) {
	if s.tokens.Token() == "" {
		return Profile{}, errNotSignedIn
	}
	u, err := s.gw.Me(ctx)
	if err != nil {
		return Profile{}, classify("me", err, "Failed to load user")
	}
	p := profileFromUser(u)
	s.mu.Lock()
	s.profile = &p
	s.mu.Unlock()
	return p, nil
}

// Logout tells the backend, best effort, then always clears local state.
func (s *Store) Logout(ctx context.Context) {
	if s.tokens.Token() != "" {
		if err := s.gw.Logout(ctx); err != nil {
			telemetry.Warn("session.logout.server_failed", map[string]any{"error": err.Error()})
		}
	}
	s.clearLocal(ctx)
	telemetry.Info("session.logout", nil)
}

// Refresh exchanges the refresh token for a new access token.
func (s *Store) Refresh(ctx context.Context) error {
	_, refresh := s.tokens.get()
	if refresh == "" {
		return &AuthError{Kind: KindUnauthenticated, Message: "No refresh token"}
	}
	resp, err := s.gw.Refresh(ctx, refresh)
	if err != nil {
		return classify("refresh", err, "Session refresh failed")
	}
	access := resp.BearerToken()
	if access == "" {
		return &AuthError{Kind: KindUnknown, Message: "Invalid response format"}
	}
	if resp.RefreshToken != "" {
		refresh = resp.RefreshToken
	}
	s.tokens.set(access, refresh)
	s.persist(ctx, access, refresh)
	if resp.User.ID != "" {
		p := profileFromUser(resp.User)
		s.mu.Lock()
		s.profile = &p
		s.mu.Unlock()
	}
	return nil
}

// UpdateRole records the account type chosen after signup.
func (s *Store) UpdateRole(ctx context.Context, role Role) (Profile, error) {
	current, ok := s.Current()
	if !ok {
		p, err := s.GetCurrentUser(ctx)
		if err != nil {
			return Profile{}, err
		}
		current.Profile = p
	}
	u, err := s.gw.UpdateRole(ctx, current.Profile.ID, role.BackendTag())
	if err != nil {
		return Profile{}, classify("role", err, "Failed to update role")
	}
	p := current.Profile
	if u.ID != "" {
		p = profileFromUser(u)
	} else {
		p.Role = role
	}
	s.mu.Lock()
	s.profile = &p
	s.mu.Unlock()
	return p, nil
}

// IsAuthenticated reports whether an access token is held.
func (s *Store) IsAuthenticated() bool {
	return s.tokens.Token() != ""
}

// Token implements gateway.TokenSource.
func (s *Store) Token() string {
	return s.tokens.Token()
}

// Current returns the session when a profile has been loaded.
func (s *Store) Current() (Session, bool) {
	access, refresh := s.tokens.get()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil || access == "" {
		return Session{}, false
	}
	return Session{AccessToken: access, RefreshToken: refresh, Profile: *s.profile}, true
}

func (s *Store) establish(ctx context.Context, resp gateway.AuthResponse) (Session, error) {
	access := resp.BearerToken()
	if access == "" {
		return Session{}, &AuthError{Kind: KindUnknown, Message: "Invalid response format"}
	}
	s.tokens.set(access, resp.RefreshToken)
	s.persist(ctx, access, resp.RefreshToken)

	p := profileFromUser(resp.User)
	s.mu.Lock()
	s.profile = &p
	s.mu.Unlock()

	telemetry.Info("session.established", map[string]any{"user_id": p.ID, "role": string(p.Role)})
	return Session{AccessToken: access, RefreshToken: resp.RefreshToken, Profile: p}, nil
}

// persist writes tokens durably. Failures are logged; the in-memory
// session stays usable for this process.
func (s *Store) persist(ctx context.Context, access, refresh string) {
	if err := s.kv.Set(ctx, kv.KeyAuthToken, access); err != nil {
		telemetry.Error("session.persist_failed", map[string]any{"key": kv.KeyAuthToken, "error": err})
	}
	if refresh == "" {
		if err := s.kv.Delete(ctx, kv.KeyRefreshToken); err != nil {
			telemetry.Error("session.persist_failed", map[string]any{"key": kv.KeyRefreshToken, "error": err})
		}
		return
	}
	if err := s.kv.Set(ctx, kv.KeyRefreshToken, refresh); err != nil {
		telemetry.Error("session.persist_failed", map[string]any{"key": kv.KeyRefreshToken, "error": err})
	}
}

func (s *Store) clearLocal(ctx context.Context) {
	s.tokens.clear()
	s.mu.Lock()
	s.profile = nil
	s.mu.Unlock()
	// Clearing must survive a cancelled request context.
	if err := s.kv.Delete(context.WithoutCancel(ctx), kv.KeyAuthToken, kv.KeyRefreshToken); err != nil {
		telemetry.Error("session.clear_failed", map[string]any{"error": err})
	}
}

func profileFromUser(u gateway.User) Profile {
	return Profile{
		ID:     u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Role:   RoleFromTag(u.Role),
		Avatar: u.Avatar,
	}
}

func splitName(name string) (first, last string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
