// Package session owns the terminal's credential pair. The pair is replaced
// and cleared wholesale; no caller ever observes an access token without its
// matching refresh token.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/picosretail/pos-terminal/internal/state"
)

// Credentials is the full session identity minted at login and replaced on
// every successful refresh.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Username     string `json:"username"`
}

func (c Credentials) IsZero() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// Store is the narrow session-state service injected into the transport
// layer. Implementations must treat Set and Clear as atomic whole-pair
// operations.
type Store interface {
	Get() (Credentials, bool)
	Set(ctx context.Context, creds Credentials) error
	Clear(ctx context.Context) error
	OnChange(fn func(creds Credentials, authenticated bool))
}

// MemoryStore keeps credentials in process memory. It is the base
// implementation and the test double for everything transport-shaped.
type MemoryStore struct {
	mu        sync.Mutex
	creds     Credentials
	held      bool
	listeners []func(Credentials, bool)
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get() (Credentials, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds, m.held
}

func (m *MemoryStore) Set(ctx context.Context, creds Credentials) error {
	if creds.AccessToken == "" || creds.RefreshToken == "" {
		return fmt.Errorf("credentials must carry both tokens")
	}
	m.mu.Lock()
	m.creds = creds
	m.held = true
	listeners := append([]func(Credentials, bool){}, m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(creds, true)
	}
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.creds = Credentials{}
	m.held = false
	listeners := append([]func(Credentials, bool){}, m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(Credentials{}, false)
	}
	return nil
}

func (m *MemoryStore) OnChange(fn func(Credentials, bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// PersistentStore mirrors credential writes into the local state store so a
// restarted terminal resumes its session.
type PersistentStore struct {
	*MemoryStore
	state *state.Store
}

func NewPersistentStore(ctx context.Context, st *state.Store) (*PersistentStore, error) {
	ps := &PersistentStore{MemoryStore: NewMemoryStore(), state: st}

	raw, ok, err := st.Get(ctx, state.KeyAuth)
	if err != nil {
		return nil, fmt.Errorf("restoring credentials: %w", err)
	}
	if ok {
		var creds Credentials
		if err := json.Unmarshal([]byte(raw), &creds); err == nil && !creds.IsZero() {
			if err := ps.MemoryStore.Set(ctx, creds); err != nil {
				return nil, err
			}
		}
	}
	return ps, nil
}

func (p *PersistentStore) Set(ctx context.Context, creds Credentials) error {
	raw, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	if err := p.state.Put(ctx, state.KeyAuth, string(raw)); err != nil {
		return err
	}
	return p.MemoryStore.Set(ctx, creds)
}

func (p *PersistentStore) Clear(ctx context.Context) error {
	if err := p.state.Delete(ctx, state.KeyAuth); err != nil {
		return err
	}
	return p.MemoryStore.Clear(ctx)
}
