package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSum(t *testing.T) {
	txs := []Transaction{
		{Amount: 1000, Type: Income},
		{Amount: 250, Type: Expense},
		{Amount: 50, Type: Expense},
	}
	want := Totals{Income: 1000, Expense: 300, Balance: 700}
	if diff := cmp.Diff(want, Sum(txs)); diff != "" {
		t.Errorf("Sum mismatch (-want +got):\n%s", diff)
	}
}

func TestSpendingByCategory(t *testing.T) {
	txs := []Transaction{
		{Amount: 30, Type: Expense, Category: "Lazer"},
		{Amount: 50, Type: Expense, Category: "Moradia"},
		{Amount: 20, Type: Expense, Category: "Lazer"},
		{Amount: 999, Type: Income, Category: "Salário"},
	}
	want := []CategoryTotal{
		{Category: "Lazer", Total: 50, Percent: 50},
		{Category: "Moradia", Total: 50, Percent: 50},
	}
	if diff := cmp.Diff(want, SpendingByCategory(txs)); diff != "" {
		t.Errorf("SpendingByCategory mismatch (-want +got):\n%s", diff)
	}
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		cur, prev, want float64
	}{
		{150, 100, 50},
		{50, 100, -50},
		{0, 0, 0},
		{10, 0, 100},
		{-50, -100, 50},
	}
	for _, tt := range tests {
		if got := PercentChange(tt.cur, tt.prev); got != tt.want {
			t.Errorf("PercentChange(%v, %v) = %v, want %v", tt.cur, tt.prev, got, tt.want)
		}
	}
}

func TestBalanceTrend(t *testing.T) {
	txs := []Transaction{
		{Amount: 100, Type: Income, Date: date(2024, 1, 5)},
		{Amount: 30, Type: Expense, Date: date(2024, 2, 29)},
		{Amount: 10, Type: Expense, Date: date(2024, 3, 1)},
	}
	got := BalanceTrend(txs, date(2024, 3, 15), 3)
	want := []TrendPoint{
		{Month: "2024-01", Balance: 100},
		{Month: "2024-02", Balance: 70},
		{Month: "2024-03", Balance: 60},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BalanceTrend mismatch (-want +got):\n%s", diff)
	}
}

func TestProjectBurnRate(t *testing.T) {
	b := ProjectBurnRate(300, 1000, date(2024, 4, 10))
	if b.DailyRate != 30 {
		t.Errorf("DailyRate = %v, want 30", b.DailyRate)
	}
	if b.Projected != 900 {
		t.Errorf("Projected = %v, want 900", b.Projected)
	}
	if b.ExceedsIncome {
		t.Error("ExceedsIncome = true, want false")
	}

	b = ProjectBurnRate(600, 1000, date(2024, 4, 10))
	if !b.ExceedsIncome {
		t.Error("ExceedsIncome = false, want true")
	}
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name                 string
		total, page, perPage int
		want                 Page
	}{
		{"first page", 23, 1, 10, Page{Page: 1, PerPage: 10, Pages: 3, Total: 23, From: 1, To: 10, Label: "Mostrando 1 a 10 de 23"}},
		{"last page", 23, 3, 10, Page{Page: 3, PerPage: 10, Pages: 3, Total: 23, From: 21, To: 23, Label: "Mostrando 21 a 23 de 23"}},
		{"page clamped", 23, 9, 10, Page{Page: 3, PerPage: 10, Pages: 3, Total: 23, From: 21, To: 23, Label: "Mostrando 21 a 23 de 23"}},
		{"invalid per page", 7, 1, 7, Page{Page: 1, PerPage: 10, Pages: 1, Total: 7, From: 1, To: 7, Label: "Mostrando 1 a 7 de 7"}},
		{"empty", 0, 1, 5, Page{Page: 1, PerPage: 5, Pages: 1, Label: "Mostrando 0 a 0 de 0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Paginate(tt.total, tt.page, tt.perPage, PortugueseBR)); diff != "" {
				t.Errorf("Paginate mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTimestampJSON(t *testing.T) {
	ts := NewTimestamp(time.Date(2024, 5, 1, 12, 30, 0, 123456789, time.UTC))
	b, err := json.Marshal(ts)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `"2024-05-01T12:30:00.123Z"` {
		t.Errorf("Marshal = %s", b)
	}

	var back Timestamp
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !back.Equal(ts.Time) {
		t.Errorf("round trip = %v, want %v", back, ts)
	}
}
