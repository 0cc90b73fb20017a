// Package wellness tracks habits with their gamification and the daily
// mood and symptom journal.
package wellness

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/lifeledger/internal/docstore"
	"github.com/dvloznov/lifeledger/internal/domain"
)

// Option configures the wellness services.
type Option func(*clock)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *clock) { c.now = now }
}

type clock struct {
	now func() time.Time
}

func newClock(opts []Option) clock {
	c := clock{now: time.Now}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c clock) today() civil.Date {
	return domain.Today(c.now())
}

func (c clock) stamp() domain.Timestamp {
	return domain.NewTimestamp(c.now())
}

// Services bundles the habit and journal services.
type Services struct {
	Habits  *HabitService
	Journal *JournalService
}

// NewServices wires both services over one store.
func NewServices(docs docstore.Store, opts ...Option) *Services {
	c := newClock(opts)
	return &Services{
		Habits:  &HabitService{docs: docs, clock: c},
		Journal: &JournalService{docs: docs, clock: c},
	}
}
