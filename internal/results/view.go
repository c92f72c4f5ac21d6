package results

import (
	"context"
	"errors"

	"signaware-client/internal/gateway"
)

// ViewState is the state of the result view. The zero value is loading.
type ViewState string

const (
	StateLoading   ViewState = ""
	StateError     ViewState = "error"
	StateEmpty     ViewState = "empty"
	StatePopulated ViewState = "populated"
)

// View is what the result screen renders.
type View struct {
	State    ViewState         `json:"state"`
	Analysis *gateway.Analysis `json:"analysis,omitempty"`
	Sections []Section         `json:"sections,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Load reads the stored payload into a terminal view state.
func Load(ctx context.Context, store *Store) View {
	a, err := store.Load(ctx)
	switch {
	case errors.Is(err, ErrNoResult):
		return View{State: StateEmpty}
	case errors.Is(err, ErrMalformedResult):
		return View{State: StateError, Error: "Failed to load analysis results"}
	case err != nil:
		return View{State: StateError, Error: err.Error()}
	}
	return View{State: StatePopulated, Analysis: &a, Sections: Sections(a)}
}

// Label returns the display name of the state.
func (s ViewState) Label() string {
	if s == StateLoading {
		return "loading"
	}
	return string(s)
}
