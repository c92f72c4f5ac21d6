package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// SignIn exchanges email and password for tokens.
func (c *Client) SignIn(ctx context.Context, creds Credentials) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, call{name: "auth_signin", method: http.MethodPost, endpoint: "/auth/signin", body: creds, out: &out})
	return out, err
}

// SignUp creates an account and returns its tokens.
func (c *Client) SignUp(ctx context.Context, req SignupRequest) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, call{name: "auth_signup", method: http.MethodPost, endpoint: "/auth/signup", body: req, out: &out})
	return out, err
}

// GoogleAuth trades a Google identity token for backend tokens.
func (c *Client) GoogleAuth(ctx context.Context, idToken string) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, call{
		name:     "auth_google",
		method:   http.MethodPost,
		endpoint: "/auth/google",
		body:     map[string]string{"token": idToken},
		out:      &out,
	})
	return out, err
}

// Refresh exchanges a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, call{
		name:     "auth_refresh",
		method:   http.MethodPost,
		endpoint: "/auth/refresh",
		body:     map[string]string{"refreshToken": refreshToken},
		out:      &out,
	})
	return out, err
}

// Logout invalidates the current token on the backend.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, call{name: "auth_logout", method: http.MethodPost, endpoint: "/auth/logout"})
}

// Me returns the account behind the current token. The backend answers with
// either the bare user or {"user": ...}.
func (c *Client) Me(ctx context.Context) (User, error) {
	var raw json.RawMessage
	if err := c.do(ctx, call{name: "auth_me", method: http.MethodGet, endpoint: "/auth/me", out: &raw}); err != nil {
		return User{}, err
	}
	return decodeUser(raw)
}

// UpdateRole sets the backend role tag (lawyer, client, admin) for userID.
func (c *Client) UpdateRole(ctx context.Context, userID, role string) (User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, validationErrorf("user id is required")
	}
	var raw json.RawMessage
	err := c.do(ctx, call{
		name:     "user_role",
		method:   http.MethodPatch,
		endpoint: "/users/" + url.PathEscape(userID) + "/role",
		body:     map[string]string{"role": role},
		out:      &raw,
	})
	if err != nil {
		return User{}, err
	}
	return decodeUser(raw)
}

func decodeUser(raw json.RawMessage) (User, error) {
	if len(raw) == 0 {
		return User{}, &TransportError{Message: "Invalid response format"}
	}
	var wrapped struct {
		User *User `json:"user"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.User != nil {
		return *wrapped.User, nil
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return User{}, &TransportError{Message: "Invalid response format", Err: err}
	}
	return u, nil
}
