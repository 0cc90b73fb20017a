// Package finance implements the money side of the ledger: transactions,
// categories, bills, goals, credit cards and the dashboard summary. Every
// operation is scoped to the calling user; documents owned by someone else
// behave as if they did not exist.
package finance

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/lifeledger/internal/cache"
	"github.com/dvloznov/lifeledger/internal/docstore"
	"github.com/dvloznov/lifeledger/internal/domain"
	"github.com/dvloznov/lifeledger/internal/logger"
)

// ErrInsufficientFunds is returned when a goal withdrawal exceeds its balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// DefaultCacheTTL bounds how long a dashboard summary may be served from cache.
const DefaultCacheTTL = time.Minute

// Services bundles the finance services over one store.
type Services struct {
	Transactions *TransactionService
	Categories   *CategoryService
	Bills        *BillService
	Goals        *GoalService
	Cards        *CardService
	Summary      *SummaryService
}

// Option configures Services.
type Option func(*base)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// WithLocale sets the locale used for month names in descriptions.
func WithLocale(loc domain.Locale) Option {
	return func(b *base) { b.loc = loc }
}

// WithCacheTTL sets the summary cache lifetime.
func WithCacheTTL(ttl time.Duration) Option {
	return func(b *base) { b.cacheTTL = ttl }
}

// NewServices wires the finance services. A nil cache disables caching.
func NewServices(docs docstore.Store, c cache.Cache, opts ...Option) *Services {
	if c == nil {
		c = cache.Nop{}
	}
	b := &base{
		docs:     docs,
		cache:    c,
		now:      time.Now,
		loc:      domain.PortugueseBR,
		cacheTTL: DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(b)
	}

	txs := &TransactionService{base: b}
	return &Services{
		Transactions: txs,
		Categories:   &CategoryService{base: b},
		Bills:        &BillService{base: b, txs: txs},
		Goals:        &GoalService{base: b, txs: txs},
		Cards:        &CardService{base: b, txs: txs},
		Summary:      &SummaryService{base: b, txs: txs},
	}
}

// base holds what every service shares.
type base struct {
	docs     docstore.Store
	cache    cache.Cache
	now      func() time.Time
	loc      domain.Locale
	cacheTTL time.Duration
}

func (b *base) stamp() domain.Timestamp {
	return domain.NewTimestamp(b.now())
}

func (b *base) today() civil.Date {
	return domain.Today(b.now())
}

// invalidate drops cached read models derived from a user's ledger. Cache
// failures are logged and never fail the write that triggered them.
func (b *base) invalidate(ctx context.Context, userID string) {
	if err := b.cache.Delete(ctx, summaryKey(userID)); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to invalidate summary cache")
	}
}

func requirePositive(field string, v float64) error {
	if !(v > 0) {
		return domain.Invalid(field, "must be positive")
	}
	return nil
}
