package auth

// ProviderErrorKind classifies Google sign-in failures.
type ProviderErrorKind string

const (
	KindCancelled    ProviderErrorKind = "cancelled"
	KindBlocked      ProviderErrorKind = "blocked"
	KindUnauthorized ProviderErrorKind = "unauthorized"
	KindNetwork      ProviderErrorKind = "network"
	KindFailed       ProviderErrorKind = "failed"
)

// ProviderError is returned by GoogleProvider.SignIn.
type ProviderError struct {
	Kind    ProviderErrorKind
	Message string
	Err     error
}

func (e *ProviderError) Error() string { return e.Message }

func (e *ProviderError) Unwrap() error { return e.Err }

func providerError(kind ProviderErrorKind, msg string, err error) *ProviderError {
	return &ProviderError{Kind: kind, Message: msg, Err: err}
}
