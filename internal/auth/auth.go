// Package auth registers users, issues signed session tokens and verifies them.
// Passwords are stored as bcrypt hashes on the user profile; each token names
// a session document so that logout can revoke it before it expires.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/dvloznov/lifeledger/internal/docstore"
	"github.com/dvloznov/lifeledger/internal/domain"
	"github.com/dvloznov/lifeledger/internal/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailInUse         = errors.New("Este e-mail já está em uso.")
	ErrInvalidCredentials = errors.New("E-mail ou senha incorretos.")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrWeakPassword       = errors.New("password must have at least 6 characters")
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 6

// DefaultTokenTTL is used when NewService is given no TTL.
const DefaultTokenTTL = 24 * time.Hour

// Session is the result of a successful Register or Login.
type Session struct {
	Token     string           `json:"token"`
	ExpiresAt domain.Timestamp `json:"expiresAt"`
	User      domain.User      `json:"user"`
}

// Claims identifies the user and session behind a verified token.
type Claims struct {
	UserID    string
	SessionID string
}

// RegisterHook runs after a user is created, e.g. to seed default categories.
// A hook error is logged; the registration still succeeds.
type RegisterHook func(ctx context.Context, userID string) error

// Service implements sign-up, sign-in and sign-out.
type Service struct {
	docs   docstore.Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	hooks  []RegisterHook

	// registerMu serialises the email uniqueness check with the insert.
	registerMu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRegisterHook adds a hook run after every registration.
func WithRegisterHook(h RegisterHook) Option {
	return func(s *Service) { s.hooks = append(s.hooks, h) }
}

// NewService creates an auth service signing tokens with secret.
func NewService(docs docstore.Store, secret string, ttl time.Duration, opts ...Option) (*Service, error) {
	if secret == "" {
		return nil, fmt.Errorf("NewService: secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &Service{docs: docs, secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.Invalid("email", "is invalid")
	}
	return email, nil
}

// Register creates a user and signs them in. The name defaults to "Usuário".
func (s *Service) Register(ctx context.Context, email, password, name string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	if len(password) < MinPasswordLength {
		return Session{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("Register: hash password: %w", err)
	}

	s.registerMu.Lock()
	if _, err := s.findByEmail(ctx, email); err == nil {
		s.registerMu.Unlock()
		return Session{}, ErrEmailInUse
	} else if !errors.Is(err, docstore.ErrNotFound) {
		s.registerMu.Unlock()
		return Session{}, fmt.Errorf("Register: %w", err)
	}

	profile := domain.UserProfile{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    domain.NewTimestamp(s.now()),
	}
	if profile.Name == "" {
		profile.Name = domain.DefaultUserName
	}
	err = s.docs.Set(ctx, domain.CollUsers, profile.ID, profile, false)
	s.registerMu.Unlock()
	if err != nil {
		return Session{}, fmt.Errorf("Register: save profile: %w", err)
	}

	ctx = logger.WithUser(ctx, profile.ID)
	log := logger.FromContext(ctx)
	log.Info().Msg("User registered")
	for _, h := range s.hooks {
		if err := h(ctx, profile.ID); err != nil {
			log.Error().Err(err).Msg("Register hook failed")
		}
	}

	return s.openSession(ctx, &profile)
}

// Login checks the credentials and opens a new session.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}
	profile, err := s.findByEmail(ctx, email)
	if errors.Is(err, docstore.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("Login: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.openSession(ctx, profile)
}

// Logout revokes the session behind token.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.Verify(ctx, token)
	if err != nil {
		return err
	}
	if err := s.docs.Update(ctx, domain.CollSessions, claims.SessionID, map[string]any{"revoked": true}); err != nil {
		return fmt.Errorf("Logout: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().
		Str("user_id", claims.UserID).
		Str("session_id", claims.SessionID).
		Msg("Session revoked")
	return nil
}

// Verify checks the token signature and expiry and that its session is live.
func (s *Service) Verify(ctx context.Context, token string) (Claims, error) {
	var rc jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &rc, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid || rc.Subject == "" || rc.ID == "" {
		return Claims{}, ErrInvalidToken
	}

	doc, err := s.docs.Get(ctx, domain.CollSessions, rc.ID)
	if errors.Is(err, docstore.ErrNotFound) {
		return Claims{}, ErrInvalidToken
	}
	if err != nil {
		return Claims{}, fmt.Errorf("Verify: %w", err)
	}
	var sess domain.Session
	if err := docstore.Decode(doc, &sess); err != nil {
		return Claims{}, fmt.Errorf("Verify: %w", err)
	}
	if sess.Revoked || sess.UserID != rc.Subject || !s.now().Before(sess.ExpiresAt.Time) {
		return Claims{}, ErrInvalidToken
	}
	return Claims{UserID: rc.Subject, SessionID: rc.ID}, nil
}

// Me returns the public view of userID's profile.
func (s *Service) Me(ctx context.Context, userID string) (domain.User, error) {
	doc, err := s.docs.Get(ctx, domain.CollUsers, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("Me: %w", err)
	}
	var p domain.UserProfile
	if err := docstore.Decode(doc, &p); err != nil {
		return domain.User{}, fmt.Errorf("Me: %w", err)
	}
	return domain.MapUser(&p), nil
}

func (s *Service) findByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	docs, err := s.docs.Query(ctx, docstore.Query{
		Collection: domain.CollUsers,
		Filters:    []docstore.Filter{docstore.Where("email", docstore.Eq, email)},
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("user %s: %w", email, docstore.ErrNotFound)
	}
	var p domain.UserProfile
	if err := docstore.Decode(docs[0], &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) openSession(ctx context.Context, p *domain.UserProfile) (Session, error) {
	now := s.now()
	sess := domain.Session{
		ID:        uuid.New().String(),
		UserID:    p.ID,
		ExpiresAt: domain.NewTimestamp(now.Add(s.ttl)),
	}
	if err := s.docs.Set(ctx, domain.CollSessions, sess.ID, sess, false); err != nil {
		return Session{}, fmt.Errorf("open session: %w", err)
	}

	claims := jwt.RegisteredClaims{
		Subject:   p.ID,
		ID:        sess.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt.Time),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	return Session{Token: signed, ExpiresAt: sess.ExpiresAt, User: domain.MapUser(p)}, nil
}
