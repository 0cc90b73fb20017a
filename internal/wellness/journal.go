package wellness

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/lifeledger/internal/docstore"
	"github.com/dvloznov/lifeledger/internal/domain"
)

// JournalService manages daily logs, one per user per day.
type JournalService struct {
	docs docstore.Store
	clock
}

// Range bounds a listing by date, inclusive. Zero bounds are open.
type Range struct {
	From civil.Date
	To   civil.Date
}

func (r Range) query() docstore.Query {
	q := docstore.Query{Collection: domain.CollDailyLogs, OrderBy: []docstore.Order{docstore.Asc("date")}}
	if !r.From.IsZero() {
		q.Filters = append(q.Filters, docstore.Where("date", docstore.Gte, r.From))
	}
	if !r.To.IsZero() {
		q.Filters = append(q.Filters, docstore.Where("date", docstore.Lte, r.To))
	}
	return q
}

// List returns userID's logs in r, oldest first.
func (s *JournalService) List(ctx context.Context, userID string, r Range) ([]domain.DailyLog, error) {
	logs, err := docstore.QueryOwned[domain.DailyLog](ctx, s.docs, userID, r.query())
	if err != nil {
		return nil, fmt.Errorf("ListLogs: %w", err)
	}
	return logs, nil
}

// Get returns the log for date.
func (s *JournalService) Get(ctx context.Context, userID string, date civil.Date) (domain.DailyLog, error) {
	return docstore.GetOwned[domain.DailyLog](ctx, s.docs, domain.CollDailyLogs, userID, domain.LogID(userID, date))
}

// Save creates or replaces the log for l.Date. A zero date means today.
func (s *JournalService) Save(ctx context.Context, userID string, l domain.DailyLog) (domain.DailyLog, error) {
	if l.Date.IsZero() {
		l.Date = s.today()
	}
	l.UserID = userID
	l.ID = domain.LogID(userID, l.Date)
	if err := l.Validate(); err != nil {
		return domain.DailyLog{}, err
	}
	if err := s.docs.Set(ctx, domain.CollDailyLogs, l.ID, l, false); err != nil {
		return domain.DailyLog{}, fmt.Errorf("SaveLog: %w", err)
	}
	return l, nil
}

// Delete removes the log for date.
func (s *JournalService) Delete(ctx context.Context, userID string, date civil.Date) error {
	id := domain.LogID(userID, date)
	if _, err := s.Get(ctx, userID, date); err != nil {
		return fmt.Errorf("DeleteLog: %w", err)
	}
	if err := s.docs.Delete(ctx, domain.CollDailyLogs, id); err != nil {
		return fmt.Errorf("DeleteLog: %w", err)
	}
	return nil
}

// Timeline returns the worst symptom severity per logged day in r.
func (s *JournalService) Timeline(ctx context.Context, userID string, r Range) ([]domain.SeverityPoint, error) {
	logs, err := s.List(ctx, userID, r)
	if err != nil {
		return nil, err
	}
	return domain.Timeline(logs), nil
}

// Insights compares spending on days tagged with each emotion against the
// average logged day.
func (s *JournalService) Insights(ctx context.Context, userID string) ([]domain.EmotionInsight, error) {
	logs, err := s.List(ctx, userID, Range{})
	if err != nil {
		return nil, err
	}
	txs, err := docstore.QueryOwned[domain.Transaction](ctx, s.docs, userID, docstore.Query{
		Collection: domain.CollTransactions,
		Filters:    []docstore.Filter{docstore.Where("type", docstore.Eq, domain.Expense)},
	})
	if err != nil {
		return nil, fmt.Errorf("Insights: %w", err)
	}
	return domain.EmotionalSpending(logs, txs), nil
}

// Subscribe streams userID's logs, oldest first.
func (s *JournalService) Subscribe(ctx context.Context, userID string, fn func([]domain.DailyLog)) (func(), error) {
	return docstore.SubscribeOwned(ctx, s.docs, userID, Range{}.query(), fn)
}
