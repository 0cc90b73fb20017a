package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/lifeledger/internal/api/middleware"
	"github.com/dvloznov/lifeledger/internal/auth"
	"github.com/dvloznov/lifeledger/internal/docstore/inmemory"
	"github.com/dvloznov/lifeledger/internal/domain"
	"github.com/dvloznov/lifeledger/internal/finance"
	"github.com/gorilla/websocket"
)

type tokenVerifier map[string]string

func (v tokenVerifier) Verify(_ context.Context, token string) (auth.Claims, error) {
	uid, ok := v[token]
	if !ok {
		return auth.Claims{}, auth.ErrInvalidToken
	}
	return auth.Claims{UserID: uid, SessionID: token}, nil
}

type testEnv struct {
	srv *httptest.Server
	hub *Hub
	fin *finance.Services
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := inmemory.NewStore()
	fin := finance.NewServices(store, nil)
	hub := NewHub()

	h := NewHandler(hub, map[string]Source{
		domain.CollTransactions: Typed(fin.Transactions.Subscribe),
	})
	mux := http.NewServeMux()
	mux.Handle("GET /subscribe/{collection}", middleware.Auth(tokenVerifier{"tok-ana": "ana"})(h))

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
		_ = store.Close()
	})
	return &testEnv{srv: srv, hub: hub, fin: fin}
}

func (e *testEnv) url(path string) string {
	return "ws" + strings.TrimPrefix(e.srv.URL, "http") + path
}

type txSnapshot struct {
	Collection string               `json:"collection"`
	Items      []domain.Transaction `json:"items"`
}

func readSnapshot(t *testing.T, conn *websocket.Conn) txSnapshot {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var s txSnapshot
	if err := conn.ReadJSON(&s); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return s
}

func TestStreamsSnapshots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tx := domain.Transaction{
		Description: "Mercado",
		Amount:      120,
		Type:        domain.Expense,
		Category:    "Alimentação",
		Date:        civil.Date{Year: 2024, Month: 3, Day: 10},
	}
	if _, err := env.fin.Transactions.Add(ctx, "ana", tx); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := env.fin.Transactions.Add(ctx, "bob", tx); err != nil {
		t.Fatalf("Add: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(env.url("/subscribe/transactions?access_token=tok-ana"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	first := readSnapshot(t, conn)
	if first.Collection != domain.CollTransactions || len(first.Items) != 1 || first.Items[0].UserID != "ana" {
		t.Fatalf("first snapshot = %+v", first)
	}

	tx.Description = "Padaria"
	if _, err := env.fin.Transactions.Add(ctx, "ana", tx); err != nil {
		t.Fatalf("Add: %v", err)
	}
	second := readSnapshot(t, conn)
	if len(second.Items) != 2 {
		t.Fatalf("second snapshot has %d items, want 2", len(second.Items))
	}

	if got := env.hub.Len(); got != 1 {
		t.Errorf("hub.Len() = %d, want 1", got)
	}

	env.hub.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) || closeErr.Code != websocket.CloseGoingAway {
		t.Errorf("read after hub close error = %v, want going away", err)
	}
}

func TestRejectsBadRequests(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		path   string
		header http.Header
		status int
	}{
		{"no token", "/subscribe/transactions", nil, http.StatusUnauthorized},
		{"bad token", "/subscribe/transactions?access_token=nope", nil, http.StatusUnauthorized},
		{"unknown collection", "/subscribe/sessions?access_token=tok-ana", nil, http.StatusNotFound},
		{"bearer header", "/subscribe/sessions", http.Header{"Authorization": {"Bearer tok-ana"}}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := websocket.DefaultDialer.Dial(env.url(tt.path), tt.header)
			if err == nil {
				conn.Close()
				t.Fatal("Dial succeeded, want handshake failure")
			}
			if resp == nil || resp.StatusCode != tt.status {
				t.Fatalf("Dial response = %v, want status %d", resp, tt.status)
			}
		})
	}
}

func TestClosedHubRefusesClients(t *testing.T) {
	env := newTestEnv(t)
	env.hub.Close()

	conn, _, err := websocket.DefaultDialer.Dial(env.url("/subscribe/transactions?access_token=tok-ana"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the connection to be closed")
	}
	if got := env.hub.Len(); got != 0 {
		t.Errorf("hub.Len() = %d, want 0", got)
	}
}

func TestClientPushKeepsLatest(t *testing.T) {
	c := &client{send: make(chan []byte, 1), done: make(chan struct{})}
	c.push([]byte("1"))
	c.push([]byte("2"))
	c.push([]byte("3"))
	if got := string(<-c.send); got != "3" {
		t.Errorf("pending snapshot = %q, want 3", got)
	}
	select {
	case msg := <-c.send:
		t.Errorf("unexpected extra snapshot %q", msg)
	default:
	}
}

func TestCollectionsSorted(t *testing.T) {
	h := NewHandler(NewHub(), map[string]Source{"b": nil, "a": nil})
	if got := strings.Join(h.Collections(), ","); got != "a,b" {
		t.Errorf("Collections() = %q", got)
	}
}
