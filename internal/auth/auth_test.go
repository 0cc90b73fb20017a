package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/lifeledger/internal/docstore/inmemory"
	"github.com/dvloznov/lifeledger/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService(t *testing.T, opts ...Option) (*Service, *clock) {
	t.Helper()
	store := inmemory.NewStore()
	t.Cleanup(func() { _ = store.Close() })
	c := &clock{t: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}
	s, err := NewService(store, "test-secret", time.Hour, append([]Option{WithClock(c.now)}, opts...)...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s, c
}

func TestRegisterLoginLogout(t *testing.T) {
	var hooked []string
	s, _ := newTestService(t, WithRegisterHook(func(_ context.Context, userID string) error {
		hooked = append(hooked, userID)
		return errors.New("hook errors are logged only")
	}))
	ctx := context.Background()

	reg, err := s.Register(ctx, "  Ana@Example.com ", "secret1", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.User.Email != "ana@example.com" || reg.User.Name != domain.DefaultUserName {
		t.Errorf("unexpected user: %+v", reg.User)
	}
	if len(hooked) != 1 || hooked[0] != reg.User.ID {
		t.Errorf("hook calls = %v", hooked)
	}

	claims, err := s.Verify(ctx, reg.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != reg.User.ID {
		t.Errorf("UserID = %q, want %q", claims.UserID, reg.User.ID)
	}

	if _, err := s.Register(ctx, "ANA@example.com", "another", "Ana"); !errors.Is(err, ErrEmailInUse) {
		t.Errorf("duplicate Register error = %v, want ErrEmailInUse", err)
	}

	login, err := s.Login(ctx, "ana@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := s.Logout(ctx, login.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := s.Verify(ctx, login.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify after logout error = %v, want ErrInvalidToken", err)
	}
	// Other sessions stay valid.
	if _, err := s.Verify(ctx, reg.Token); err != nil {
		t.Errorf("Verify first session: %v", err)
	}

	me, err := s.Me(ctx, reg.User.ID)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me != reg.User {
		t.Errorf("Me() = %+v, want %+v", me, reg.User)
	}
}

func TestLoginFailures(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	if _, err := s.Register(ctx, "bob@example.com", "hunter22", "Bob"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "bob@example.com", "hunter23"},
		{"unknown email", "alice@example.com", "hunter22"},
		{"malformed email", "bob", "hunter22"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Login(ctx, tt.email, tt.password); !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	if _, err := s.Register(ctx, "a@b.co", "12345", "A"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("short password error = %v, want ErrWeakPassword", err)
	}
	if _, err := s.Register(ctx, "not an email", "123456", "A"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("bad email error = %v, want ErrValidation", err)
	}
}

func TestVerifyRejects(t *testing.T) {
	s, c := newTestService(t)
	ctx := context.Background()

	sess, err := s.Register(ctx, "carol@example.com", "password", "Carol")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sess.User.ID,
		ID:        "some-session",
		ExpiresAt: jwt.NewNumericDate(c.t.Add(time.Hour)),
	}).SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", forged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Verify(ctx, tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
			}
		})
	}

	c.t = c.t.Add(2 * time.Hour)
	if _, err := s.Verify(ctx, sess.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired Verify error = %v, want ErrInvalidToken", err)
	}
}

func TestNewServiceRequiresSecret(t *testing.T) {
	if _, err := NewService(inmemory.NewStore(), "", time.Hour); err == nil {
		t.Fatal("expected error without secret")
	}
}

func TestContextUserID(t *testing.T) {
	ctx := WithUserID(context.Background(), "u1")
	if got := UserID(ctx); got != "u1" {
		t.Errorf("UserID() = %q, want u1", got)
	}
	if got := UserID(context.Background()); got != "" {
		t.Errorf("UserID() on empty ctx = %q", got)
	}
}
