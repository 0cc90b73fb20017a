package finance

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/lifeledger/internal/cache"
	"github.com/dvloznov/lifeledger/internal/domain"
	"github.com/dvloznov/lifeledger/internal/logger"
)

// TrendMonths is the length of the dashboard balance trend.
const TrendMonths = 12

// Dashboard is the finance overview for one user on one day.
type Dashboard struct {
	AsOf              civil.Date             `json:"asOf"`
	Balance           float64                `json:"balance"`
	Month             domain.Totals          `json:"month"`
	PreviousMonth     domain.Totals          `json:"previousMonth"`
	IncomeChange      float64                `json:"incomeChange"`
	ExpenseChange     float64                `json:"expenseChange"`
	Trend             []domain.TrendPoint    `json:"trend"`
	SpendingBy        []domain.CategoryTotal `json:"spendingByCategory"`
	BurnRate          domain.BurnRate        `json:"burnRate"`
	MonthlyCommitment float64                `json:"monthlyCommitment"`
}

// SummaryService computes dashboards, caching them per user until the next
// ledger write.
type SummaryService struct {
	*base
	txs *TransactionService
}

func summaryKey(userID string) string {
	return cache.Key("summary", userID)
}

// Invalidate drops userID's cached dashboard. Code that rewrites a user's
// documents outside these services calls it once the write has committed.
func (s *SummaryService) Invalidate(ctx context.Context, userID string) {
	s.invalidate(ctx, userID)
}

// Dashboard returns userID's overview for today.
func (s *SummaryService) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	log := logger.FromContext(ctx)
	today := s.today()
	key := summaryKey(userID)

	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		log.Warn().Err(err).Msg("Summary cache read failed")
	} else if ok {
		var d Dashboard
		if err := json.Unmarshal(raw, &d); err == nil && d.AsOf == today {
			return d, nil
		}
	}

	txs, err := s.txs.List(ctx, userID, TransactionFilter{})
	if err != nil {
		return Dashboard{}, fmt.Errorf("Dashboard: %w", err)
	}
	bills, err := (&BillService{base: s.base, txs: s.txs}).List(ctx, userID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("Dashboard: %w", err)
	}

	d := BuildDashboard(txs, bills, today)

	if raw, err := json.Marshal(d); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
			log.Warn().Err(err).Msg("Summary cache write failed")
		}
	}
	return d, nil
}

// BuildDashboard derives the overview from a user's full ledger.
func BuildDashboard(txs []domain.Transaction, bills []domain.Bill, today civil.Date) Dashboard {
	var upToToday []domain.Transaction
	for _, tx := range txs {
		if !tx.Date.After(today) {
			upToToday = append(upToToday, tx)
		}
	}

	month := domain.InMonth(txs, today)
	prev := domain.InMonth(txs, domain.AddMonths(domain.MonthStart(today), -1))
	cur, before := domain.Sum(month), domain.Sum(prev)

	return Dashboard{
		AsOf:              today,
		Balance:           domain.Sum(upToToday).Balance,
		Month:             cur,
		PreviousMonth:     before,
		IncomeChange:      domain.PercentChange(cur.Income, before.Income),
		ExpenseChange:     domain.PercentChange(cur.Expense, before.Expense),
		Trend:             domain.BalanceTrend(upToToday, today, TrendMonths),
		SpendingBy:        domain.SpendingByCategory(month),
		BurnRate:          domain.ProjectBurnRate(cur.Expense, cur.Income, today),
		MonthlyCommitment: domain.MonthlyCommitment(bills),
	}
}
