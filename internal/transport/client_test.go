package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/picosretail/pos-terminal/internal/session"
	"github.com/picosretail/pos-terminal/pkg/config"
	pkgerrors "github.com/picosretail/pos-terminal/pkg/errors"
	"github.com/picosretail/pos-terminal/pkg/logger"
)

type scopeRecorder struct {
	calls atomic.Int32
}

func (s *scopeRecorder) ClearSessionScoped(ctx context.Context) error {
	s.calls.Add(1)
	return nil
}

func seededStore(t *testing.T, access, refresh string) *session.MemoryStore {
	t.Helper()
	store := session.NewMemoryStore()
	if err := store.Set(context.Background(), session.Credentials{
		AccessToken:  access,
		RefreshToken: refresh,
		Username:     "cashier",
	}); err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	return store
}

func newTestClient(t *testing.T, srv *httptest.Server, store session.Store, scope SessionScopeClearer, opts ...Option) *Client {
	t.Helper()
	cfg := config.APIConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}
	logg := logger.New(logger.Options{ServiceName: "test"})
	return New(cfg, store, scope, logg, opts...)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestDoAttachesBearer(t *testing.T) {
	t.Parallel()

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	client := newTestClient(t, srv, seededStore(t, "tok", "ref"), nil)

	var out map[string]string
	if err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/api/v1/products/"}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("unexpected Authorization header %q", gotAuth)
	}
	if out["status"] != "ok" {
		t.Fatalf("unexpected body %v", out)
	}
}

func TestDoNoAuthLeavesRequestUnauthenticated(t *testing.T) {
	t.Parallel()

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]string{})
	}))
	defer srv.Close()

	client := newTestClient(t, srv, seededStore(t, "tok", "ref"), nil)

	if err := client.Do(context.Background(), Request{Method: http.MethodPost, Path: "/api/v1/auth/login", NoAuth: true}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("login must go out unauthenticated, got %q", gotAuth)
	}
}

func TestDoRefreshesOnceAndRetries(t *testing.T) {
	t.Parallel()

	var refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["refresh_token"] != "old-refresh" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
		})
	})
	mux.HandleFunc("/api/v1/sales/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new-access" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"ticket_number": "T-1"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := seededStore(t, "stale-access", "old-refresh")
	client := newTestClient(t, srv, store, nil)

	var out map[string]string
	err := client.Do(context.Background(), Request{Method: http.MethodPost, Path: "/api/v1/sales/", JSONBody: map[string]any{}}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["ticket_number"] != "T-1" {
		t.Fatalf("caller must see the retried response, got %v", out)
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Fatalf("expected one refresh call, got %d", got)
	}

	creds, held := store.Get()
	if !held || creds.AccessToken != "new-access" || creds.RefreshToken != "new-refresh" {
		t.Fatalf("credential pair not replaced atomically: %+v", creds)
	}
	if creds.Username != "cashier" {
		t.Fatalf("username must survive refresh, got %q", creds.Username)
	}
}

func TestDoDoesNotRefreshTwice(t *testing.T) {
	t.Parallel()

	var refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
		})
	})
	mux.HandleFunc("/api/v1/reports/sales-summary", func(w http.ResponseWriter, r *http.Request) {
		// Denies even valid-looking tokens; the client must give up after one
		// refresh rather than loop.
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv, seededStore(t, "a", "r"), nil)

	err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/api/v1/reports/sales-summary"}, nil)
	if err == nil {
		t.Fatal("expected the second denial to surface")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected the denial itself, got %v", err)
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Fatalf("expected exactly one refresh attempt, got %d", got)
	}
}

func TestDoMasterPasswordDenialSkipsRefresh(t *testing.T) {
	t.Parallel()

	var refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "x", "refresh_token": "y"})
	})
	mux.HandleFunc("/api/v1/cash/close", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid master password"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv, seededStore(t, "a", "r"), nil)

	err := client.Do(context.Background(), Request{Method: http.MethodPost, Path: "/api/v1/cash/close", JSONBody: map[string]any{}}, nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeMasterPassword {
		t.Fatalf("expected master-password denial, got %v", err)
	}
	if refreshCalls.Load() != 0 {
		t.Fatal("business denial must not trigger the refresh path")
	}
}

func TestRefreshFailureTearsDownSession(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
	})
	mux.HandleFunc("/api/v1/products/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := seededStore(t, "a", "r")
	scope := &scopeRecorder{}
	var hookCalls atomic.Int32

	client := newTestClient(t, srv, store, scope, WithSessionExpiredHook(func() {
		hookCalls.Add(1)
	}))

	err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/api/v1/products/"}, nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeSessionExpired {
		t.Fatalf("caller must receive the refresh error, got %v", err)
	}

	if _, held := store.Get(); held {
		t.Fatal("credentials must be cleared on refresh failure")
	}
	if scope.calls.Load() != 1 {
		t.Fatalf("expected session state clear, got %d calls", scope.calls.Load())
	}
	if hookCalls.Load() != 1 {
		t.Fatalf("expected one expired-hook firing, got %d", hookCalls.Load())
	}
}

func TestConcurrentDenialsCoalesceIntoOneRefresh(t *testing.T) {
	t.Parallel()

	var refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		time.Sleep(50 * time.Millisecond)
		writeJSON(w, http.StatusOK, map[string]string{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
		})
	})
	mux.HandleFunc("/api/v1/customers/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new-access" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			return
		}
		writeJSON(w, http.StatusOK, []map[string]string{})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv, seededStore(t, "stale", "r"), nil)

	const concurrency = 5
	var wg sync.WaitGroup
	errs := make([]error, concurrency)
	for i := 0; i < concurrency; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/api/v1/customers/search"}, nil)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Fatalf("expected a single coalesced refresh, got %d", got)
	}
}

func TestNetworkFailureIsTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // reject all connections

	client := newTestClient(t, srv, session.NewMemoryStore(), nil)

	err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/api/v1/products/"}, nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
}
