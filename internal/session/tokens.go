package session

import "sync"

// Tokens holds the in-memory access and refresh tokens. It is the
// gateway's TokenSource, so it exists before the gateway and the Store.
type Tokens struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

// Token returns the current access token, or "" when signed out.
func (t *Tokens) Token() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.access
}

func (t *Tokens) get() (access, refresh string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.access, t.refresh
}

func (t *Tokens) set(access, refresh string) {
	t.mu.Lock()
	t.access = access
	t.refresh = refresh
	t.mu.Unlock()
}

func (t *Tokens) clear() {
	t.set("", "")
}
