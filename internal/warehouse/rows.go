package warehouse

import (
	"math/big"
	"strconv"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/lifeledger/internal/domain"
)

// TransactionRow is one exported ledger entry in <dataset>.transactions.
type TransactionRow struct {
	ExportID      string `bigquery:"export_id"`      // REQUIRED
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	Amount *big.Rat `bigquery:"amount"` // REQUIRED NUMERIC, always positive
	Type   string   `bigquery:"type"`   // REQUIRED income|expense

	Description  string              `bigquery:"description"`   // REQUIRED
	CategoryName bigquery.NullString `bigquery:"category_name"` // NULLABLE
	CardID       bigquery.NullString `bigquery:"card_id"`       // NULLABLE

	CreatedTS  bigquery.NullTimestamp `bigquery:"created_ts"`  // NULLABLE
	ExportedTS time.Time              `bigquery:"exported_ts"` // REQUIRED
}

// ExportRow records a completed export in <dataset>.exports. Reports read
// only the rows of a user's latest export.
type ExportRow struct {
	ExportID   string    `bigquery:"export_id"`
	UserID     string    `bigquery:"user_id"`
	RowCount   int64     `bigquery:"row_count"`
	ExportedTS time.Time `bigquery:"exported_ts"`
}

// ToRow converts a transaction for export.
func ToRow(exportID string, tx domain.Transaction, exportedAt time.Time) *TransactionRow {
	row := &TransactionRow{
		ExportID:        exportID,
		TransactionID:   tx.ID,
		UserID:          tx.UserID,
		TransactionDate: tx.Date,
		Amount:          amountRat(tx.Amount),
		Type:            string(tx.Type),
		Description:     tx.Description,
		CategoryName:    nullString(tx.Category),
		CardID:          nullString(tx.CardID),
		ExportedTS:      exportedAt.UTC(),
	}
	if !tx.CreatedAt.IsZero() {
		row.CreatedTS = bigquery.NullTimestamp{Timestamp: tx.CreatedAt.UTC(), Valid: true}
	}
	return row
}

// amountRat converts a currency amount to NUMERIC, rounded to cents.
func amountRat(v float64) *big.Rat {
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(v, 'f', 2, 64))
	if !ok {
		return new(big.Rat)
	}
	return r
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

// MonthlyTotal is one row of the monthly report.
type MonthlyTotal struct {
	Month   string  `json:"month"` // YYYY-MM
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Balance float64 `json:"balance"`
}

type monthlyTotalRow struct {
	Month   string   `bigquery:"month"`
	Income  *big.Rat `bigquery:"income"`
	Expense *big.Rat `bigquery:"expense"`
}

func (r monthlyTotalRow) total() MonthlyTotal {
	income, expense := ratFloat(r.Income), ratFloat(r.Expense)
	return MonthlyTotal{Month: r.Month, Income: income, Expense: expense, Balance: income - expense}
}

func ratFloat(r *big.Rat) float64 {
	if r == nil {
		return 0
	}
	f, _ := r.Float64()
	return f
}
