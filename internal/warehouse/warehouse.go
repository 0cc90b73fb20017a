// Package warehouse exports ledgers to BigQuery and reads reports back.
//
// Exports are append-only: every export writes a fresh copy of the user's
// transactions tagged with a new export id and then records the export in
// the exports table. Reports join against the user's latest recorded
// export, so rows from older or half-finished exports are never counted.
package warehouse

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/lifeledger/internal/domain"
	"github.com/dvloznov/lifeledger/internal/logger"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const (
	transactionsTable = "transactions"
	exportsTable      = "exports"

	// insertChunk bounds the rows sent in one streaming insert.
	insertChunk = 500
)

// Warehouse holds a shared BigQuery client bound to one dataset.
type Warehouse struct {
	client  *bigquery.Client
	project string
	dataset string
	now     func() time.Time
}

// New creates a Warehouse for project.dataset.
func New(ctx context.Context, project, dataset string) (*Warehouse, error) {
	if project == "" || dataset == "" {
		return nil, fmt.Errorf("NewWarehouse: project and dataset are required")
	}
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("NewWarehouse: bigquery client: %w", err)
	}
	return NewWithClient(client, project, dataset), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *bigquery.Client, project, dataset string) *Warehouse {
	return &Warehouse{client: client, project: project, dataset: dataset, now: time.Now}
}

// Close closes the BigQuery client connection.
func (w *Warehouse) Close() error {
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}

// ExportUser writes userID's transactions as a new export and returns the
// export id.
func (w *Warehouse) ExportUser(ctx context.Context, userID string, txs []domain.Transaction) (string, error) {
	return ExportUserWithClient(ctx, w.client, w.project, w.dataset, userID, txs, w.now())
}

// MonthlyTotals reads income and expense per month from userID's latest
// export, for months from..to inclusive.
func (w *Warehouse) MonthlyTotals(ctx context.Context, userID string, from, to civil.Date) ([]MonthlyTotal, error) {
	return QueryMonthlyTotalsWithClient(ctx, w.client, w.project, w.dataset, userID, from, to)
}

// ExportUserWithClient performs ExportUser using the provided client.
func ExportUserWithClient(ctx context.Context, client *bigquery.Client, project, dataset, userID string, txs []domain.Transaction, now time.Time) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("ExportUser: user id is required")
	}

	exportID := uuid.New().String()
	rows := make([]*TransactionRow, 0, len(txs))
	for _, tx := range txs {
		if tx.UserID != userID {
			continue
		}
		rows = append(rows, ToRow(exportID, tx, now))
	}

	ds := client.DatasetInProject(project, dataset)
	inserter := ds.Table(transactionsTable).Inserter()
	for start := 0; start < len(rows); start += insertChunk {
		end := min(start+insertChunk, len(rows))
		if err := inserter.Put(ctx, rows[start:end]); err != nil {
			return "", fmt.Errorf("ExportUser: inserting rows: %w", err)
		}
	}

	record := &ExportRow{ExportID: exportID, UserID: userID, RowCount: int64(len(rows)), ExportedTS: now.UTC()}
	if err := ds.Table(exportsTable).Inserter().Put(ctx, record); err != nil {
		return "", fmt.Errorf("ExportUser: recording export: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("export_id", exportID).
		Int("rows", len(rows)).
		Msg("Exported transactions to warehouse")
	return exportID, nil
}

// monthlyTotalsSQL builds the report query for project.dataset.
func monthlyTotalsSQL(project, dataset string) string {
	table := func(name string) string {
		return "`" + project + "." + dataset + "." + name + "`"
	}
	return `
		WITH latest AS (
			SELECT export_id
			FROM ` + table(exportsTable) + `
			WHERE user_id = @user_id
			ORDER BY exported_ts DESC
			LIMIT 1
		)
		SELECT
			FORMAT_DATE('%Y-%m', t.transaction_date) AS month,
			SUM(IF(t.type = 'income', t.amount, 0)) AS income,
			SUM(IF(t.type = 'expense', t.amount, 0)) AS expense
		FROM ` + table(transactionsTable) + ` t
		INNER JOIN latest USING (export_id)
		WHERE t.user_id = @user_id
		  AND t.transaction_date >= @start_date
		  AND t.transaction_date <= @end_date
		GROUP BY month
		ORDER BY month
	`
}

// QueryMonthlyTotalsWithClient performs MonthlyTotals using the provided client.
func QueryMonthlyTotalsWithClient(ctx context.Context, client *bigquery.Client, project, dataset, userID string, from, to civil.Date) ([]MonthlyTotal, error) {
	start, end := MonthRange(from, to)

	q := client.Query(monthlyTotalsSQL(project, dataset))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "start_date", Value: start},
		{Name: "end_date", Value: end},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryMonthlyTotals: query read: %w", err)
	}

	var totals []MonthlyTotal
	for {
		var r monthlyTotalRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryMonthlyTotals: iter next: %w", err)
		}
		totals = append(totals, r.total())
	}
	return totals, nil
}

// MonthRange returns the first day of from's month and the last day of to's
// month, swapping them if they are out of order.
func MonthRange(from, to civil.Date) (civil.Date, civil.Date) {
	if to.Before(from) {
		from, to = to, from
	}
	return domain.MonthStart(from), domain.MonthEnd(to)
}

// LocalMonthlyTotals computes the same figures as MonthlyTotals from
// transactions in hand, for when no warehouse is configured. Months without
// transactions are included with zero totals.
func LocalMonthlyTotals(txs []domain.Transaction, from, to civil.Date) []MonthlyTotal {
	start, end := MonthRange(from, to)
	var out []MonthlyTotal
	for m := start; !end.Before(m); m = domain.AddMonths(m, 1) {
		t := domain.Sum(domain.InMonth(txs, m))
		out = append(out, MonthlyTotal{
			Month:   fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)),
			Income:  t.Income,
			Expense: t.Expense,
			Balance: t.Balance,
		})
	}
	return out
}
