package warehouse

import (
	"math"
	"math/big"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/lifeledger/internal/domain"
)

func TestToRow(t *testing.T) {
	exported := time.Date(2024, 3, 15, 12, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	created := domain.NewTimestamp(time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC))

	tests := []struct {
		name     string
		tx       domain.Transaction
		amount   string
		category bigquery.NullString
		card     bigquery.NullString
		created  bool
	}{
		{
			name: "card expense",
			tx: domain.Transaction{
				ID: "t1", UserID: "ana", Description: "Mercado", Amount: 12.349,
				Type: domain.Expense, Category: "Alimentação",
				Date: civil.Date{Year: 2024, Month: 3, Day: 10}, CreatedAt: created, CardID: "c1",
			},
			amount:   "247/20",
			category: bigquery.NullString{StringVal: "Alimentação", Valid: true},
			card:     bigquery.NullString{StringVal: "c1", Valid: true},
			created:  true,
		},
		{
			name: "bare income",
			tx: domain.Transaction{
				ID: "t2", UserID: "ana", Description: "Salário", Amount: 5000,
				Type: domain.Income, Date: civil.Date{Year: 2024, Month: 3, Day: 5},
			},
			amount: "5000/1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := ToRow("exp-1", tt.tx, exported)
			if row.ExportID != "exp-1" || row.TransactionID != tt.tx.ID || row.UserID != "ana" {
				t.Errorf("ids = %q %q %q", row.ExportID, row.TransactionID, row.UserID)
			}
			if got := row.Amount.String(); got != tt.amount {
				t.Errorf("Amount = %s, want %s", got, tt.amount)
			}
			if row.Type != string(tt.tx.Type) || row.TransactionDate != tt.tx.Date {
				t.Errorf("type/date = %q %v", row.Type, row.TransactionDate)
			}
			if row.CategoryName != tt.category || row.CardID != tt.card {
				t.Errorf("nullables = %+v %+v", row.CategoryName, row.CardID)
			}
			if row.CreatedTS.Valid != tt.created {
				t.Errorf("CreatedTS.Valid = %v, want %v", row.CreatedTS.Valid, tt.created)
			}
			if row.ExportedTS.Location() != time.UTC || !row.ExportedTS.Equal(exported) {
				t.Errorf("ExportedTS = %v", row.ExportedTS)
			}
		})
	}
}

func TestMonthlyTotalRow(t *testing.T) {
	r := monthlyTotalRow{Month: "2024-03", Income: big.NewRat(5000, 1), Expense: big.NewRat(247, 20)}
	got := r.total()
	if got.Month != "2024-03" || got.Income != 5000 || got.Expense != 12.35 {
		t.Errorf("total() = %+v", got)
	}
	if math.Abs(got.Balance-4987.65) > 1e-9 {
		t.Errorf("Balance = %v, want 4987.65", got.Balance)
	}

	empty := monthlyTotalRow{Month: "2024-04"}.total()
	if empty.Income != 0 || empty.Expense != 0 || empty.Balance != 0 {
		t.Errorf("nil sums = %+v", empty)
	}
}

func TestMonthRange(t *testing.T) {
	tests := []struct {
		name     string
		from, to civil.Date
		start    civil.Date
		end      civil.Date
	}{
		{
			"same month",
			civil.Date{Year: 2024, Month: 2, Day: 10}, civil.Date{Year: 2024, Month: 2, Day: 11},
			civil.Date{Year: 2024, Month: 2, Day: 1}, civil.Date{Year: 2024, Month: 2, Day: 29},
		},
		{
			"swapped across years",
			civil.Date{Year: 2024, Month: 1, Day: 31}, civil.Date{Year: 2023, Month: 11, Day: 5},
			civil.Date{Year: 2023, Month: 11, Day: 1}, civil.Date{Year: 2024, Month: 1, Day: 31},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := MonthRange(tt.from, tt.to)
			if start != tt.start || end != tt.end {
				t.Errorf("MonthRange() = %v..%v, want %v..%v", start, end, tt.start, tt.end)
			}
		})
	}
}

func TestMonthlyTotalsSQL(t *testing.T) {
	sql := monthlyTotalsSQL("proj", "ledger")
	for _, want := range []string{
		"FROM `proj.ledger.exports`",
		"FROM `proj.ledger.transactions` t",
		"INNER JOIN latest USING (export_id)",
		"@user_id", "@start_date", "@end_date",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("query missing %q", want)
		}
	}
}

func TestLocalMonthlyTotals(t *testing.T) {
	txs := []domain.Transaction{
		{Amount: 1000, Type: domain.Income, Date: civil.Date{Year: 2024, Month: 1, Day: 5}},
		{Amount: 250, Type: domain.Expense, Date: civil.Date{Year: 2024, Month: 1, Day: 20}},
		{Amount: 80, Type: domain.Expense, Date: civil.Date{Year: 2024, Month: 3, Day: 31}},
		{Amount: 999, Type: domain.Income, Date: civil.Date{Year: 2024, Month: 4, Day: 1}},
	}
	got := LocalMonthlyTotals(txs, civil.Date{Year: 2024, Month: 3, Day: 15}, civil.Date{Year: 2024, Month: 1, Day: 10})
	want := []MonthlyTotal{
		{Month: "2024-01", Income: 1000, Expense: 250, Balance: 750},
		{Month: "2024-02"},
		{Month: "2024-03", Expense: 80, Balance: -80},
	}
	if len(got) != len(want) {
		t.Fatalf("LocalMonthlyTotals() = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("month %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
