package session

import (
	"context"
	"errors"
	"net/http"

	"signaware-client/internal/auth"
	"signaware-client/internal/gateway"
)

// ErrorKind classifies authentication failures for display.
type ErrorKind string

const (
	KindInvalidCredentials   ErrorKind = "invalid_credentials"
	KindDuplicateAccount     ErrorKind = "duplicate_account"
	KindProviderCancelled    ErrorKind = "provider_cancelled"
	KindProviderBlocked      ErrorKind = "provider_blocked"
	KindProviderUnauthorized ErrorKind = "provider_unauthorized"
	KindNetwork              ErrorKind = "network"
	KindUnauthenticated      ErrorKind = "unauthenticated"
	KindUnknown              ErrorKind = "unknown"
)

// AuthError is returned by every failing session operation.
type AuthError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return e.Err }

// KindOf returns the kind of an *AuthError in err's chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var aErr *AuthError
	if errors.As(err, &aErr) {
		return aErr.Kind
	}
	return KindUnknown
}

var errNotSignedIn = &AuthError{Kind: KindUnauthenticated, Message: "No authentication token"}

// classify maps a gateway or provider failure from op onto an AuthError.
// Backend messages are kept verbatim; fallback is used when there is none.
func classify(op string, err error, fallback string) *AuthError {
	if err == nil {
		return nil
	}
	var aErr *AuthError
	if errors.As(err, &aErr) {
		return aErr
	}

	var pErr *auth.ProviderError
	if errors.As(err, &pErr) {
		kind := KindUnknown
		switch pErr.Kind {
		case auth.KindCancelled:
			kind = KindProviderCancelled
		case auth.KindBlocked:
			kind = KindProviderBlocked
		case auth.KindUnauthorized:
			kind = KindProviderUnauthorized
		case auth.KindNetwork:
			kind = KindNetwork
		}
		return &AuthError{Kind: kind, Message: messageOr(pErr.Message, fallback), Err: err}
	}

	var tErr *gateway.TransportError
	if errors.As(err, &tErr) {
		msg := messageOr(tErr.Message, fallback)
		switch {
		case tErr.StatusCode == 0 && errors.Is(err, context.Canceled):
			return &AuthError{Kind: KindUnknown, Message: msg, Err: err}
		case tErr.StatusCode == 0:
			return &AuthError{Kind: KindNetwork, Message: msg, Err: err}
		case tErr.StatusCode == http.StatusConflict && op == "signup":
			return &AuthError{Kind: KindDuplicateAccount, Message: msg, Err: err}
		case (tErr.StatusCode == http.StatusUnauthorized || tErr.StatusCode == http.StatusBadRequest) && op == "login":
			return &AuthError{Kind: KindInvalidCredentials, Message: msg, Err: err}
		case tErr.StatusCode == http.StatusUnauthorized || tErr.StatusCode == http.StatusForbidden:
			return &AuthError{Kind: KindUnauthenticated, Message: msg, Err: err}
		}
		return &AuthError{Kind: KindUnknown, Message: msg, Err: err}
	}

	if gateway.IsValidation(err) {
		return &AuthError{Kind: KindUnknown, Message: err.Error(), Err: err}
	}
	return &AuthError{Kind: KindUnknown, Message: fallback, Err: err}
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
