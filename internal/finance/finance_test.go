package finance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/lifeledger/internal/docstore"
	"github.com/dvloznov/lifeledger/internal/docstore/inmemory"
	"github.com/dvloznov/lifeledger/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// fakeCache records deletes so tests can check invalidation.
type fakeCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deletes int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	c.deletes++
	return nil
}

var fixedNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func newTestServices(t *testing.T) (*Services, *fakeCache, docstore.Store) {
	t.Helper()
	store := inmemory.NewStore()
	t.Cleanup(func() { _ = store.Close() })
	c := newFakeCache()
	svc := NewServices(store, c, WithClock(func() time.Time { return fixedNow }))
	return svc, c, store
}

var ignoreGenerated = cmpopts.IgnoreFields(domain.Transaction{}, "ID", "CreatedAt")

func TestTransactionsAddValidates(t *testing.T) {
	svc, _, _ := newTestServices(t)
	ctx := context.Background()

	tests := []struct {
		name string
		tx   domain.Transaction
	}{
		{"missing description", domain.Transaction{Amount: 1, Type: domain.Expense, Category: "A"}},
		{"zero amount", domain.Transaction{Description: "x", Type: domain.Expense, Category: "A"}},
		{"bad type", domain.Transaction{Description: "x", Amount: 1, Type: "gift", Category: "A"}},
		{"missing category", domain.Transaction{Description: "x", Amount: 1, Type: domain.Income}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Transactions.Add(ctx, "u1", tt.tx); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("Add() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestTransactionsListAndPage(t *testing.T) {
	svc, c, _ := newTestServices(t)
	ctx := context.Background()

	seed := []domain.Transaction{
		{Description: "Salário", Amount: 5000, Type: domain.Income, Category: "Salário", Date: date(2024, 3, 5)},
		{Description: "Mercado", Amount: 300, Type: domain.Expense, Category: "Alimentação", Date: date(2024, 3, 10)},
		{Description: "Aluguel", Amount: 1500, Type: domain.Expense, Category: "Moradia", Date: date(2024, 2, 10)},
		{Description: "Padaria", Amount: 20, Type: domain.Expense, Category: "Alimentação", Date: date(2024, 3, 12)},
	}
	for _, tx := range seed {
		if _, err := svc.Transactions.Add(ctx, "u1", tx); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if _, err := svc.Transactions.Add(ctx, "u2", seed[0]); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if c.deletes != 5 {
		t.Errorf("cache deletes = %d, want 5", c.deletes)
	}

	march := date(2024, 3, 1)
	got, err := svc.Transactions.List(ctx, "u1", TransactionFilter{Month: &march, Type: domain.Expense})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var descs []string
	for _, tx := range got {
		descs = append(descs, tx.Description)
	}
	if diff := cmp.Diff([]string{"Padaria", "Mercado"}, descs); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}

	page, err := svc.Transactions.Page(ctx, "u1", TransactionFilter{}, 2, 3)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	// 3 is not an offered page size, so the default of 10 applies.
	if page.PerPage != 10 || page.Page.Page != 1 || len(page.Items) != 4 {
		t.Errorf("unexpected page: %+v", page.Page)
	}
	if page.Label != "Mostrando 1 a 4 de 4" {
		t.Errorf("Label = %q", page.Label)
	}

	page, err = svc.Transactions.Page(ctx, "u1", TransactionFilter{}, 2, 5)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if page.Page.Page != 1 || len(page.Items) != 4 {
		t.Errorf("out of range page not clamped: %+v", page.Page)
	}
}

func TestTransactionsOwnership(t *testing.T) {
	svc, _, _ := newTestServices(t)
	ctx := context.Background()

	tx, err := svc.Transactions.Add(ctx, "owner", domain.Transaction{
		Description: "x", Amount: 1, Type: domain.Expense, Category: "A", Date: date(2024, 3, 1),
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if _, err := svc.Transactions.Get(ctx, "intruder", tx.ID); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("Get by other user error = %v, want ErrNotFound", err)
	}
	if err := svc.Transactions.Delete(ctx, "intruder", tx.ID); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("Delete by other user error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Transactions.Get(ctx, "owner", tx.ID); err != nil {
		t.Errorf("Get by owner: %v", err)
	}
}

func TestTransactionsBatchOperations(t *testing.T) {
	svc, _, _ := newTestServices(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		tx, err := svc.Transactions.Add(ctx, "u1", domain.Transaction{
			Description: "item", Amount: float64(i + 1), Type: domain.Expense, Category: "A", Date: date(2024, 3, i+1),
		})
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		ids = append(ids, tx.ID)
	}

	cat := "B"
	updated, err := svc.Transactions.UpdateMany(ctx, "u1", ids[:2], TransactionPatch{Category: &cat})
	if err != nil {
		t.Fatalf("UpdateMany: %v", err)
	}
	for _, tx := range updated {
		if tx.Category != "B" {
			t.Errorf("category = %q, want B", tx.Category)
		}
	}

	// One missing id aborts the whole batch.
	if err := svc.Transactions.DeleteMany(ctx, "u1", []string{ids[0], "missing"}); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("DeleteMany error = %v, want ErrNotFound", err)
	}
	if err := svc.Transactions.DeleteMany(ctx, "u1", ids[:2]); err != nil {
		t.Fatalf("DeleteMany: %v", err)
	}
	left, err := svc.Transactions.List(ctx, "u1", TransactionFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(left) != 1 || left[0].ID != ids[2] || left[0].Category != "A" {
		t.Errorf("unexpected remaining transactions: %+v", left)
	}
}

func TestBillsPayAndStatus(t *testing.T) {
	svc, _, _ := newTestServices(t)
	ctx := context.Background()

	luz, err := svc.Bills.Add(ctx, "u1", domain.Bill{Name: "Luz", Amount: 120, DueDate: 10, Category: "Contas"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !luz.Active {
		t.Error("new bill should be active")
	}
	if _, err := svc.Bills.Add(ctx, "u1", domain.Bill{Name: "Água", Amount: 80, DueDate: 5, Category: "Moradia"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	statuses, err := svc.Bills.Statuses(ctx, "u1")
	if err != nil {
		t.Fatalf("Statuses: %v", err)
	}
	if len(statuses) != 2 || statuses[0].Name != "Água" || statuses[0].Paid || statuses[1].Paid {
		t.Fatalf("unexpected statuses before payment: %+v", statuses)
	}

	tx, err := svc.Bills.Pay(ctx, "u1", luz.ID, BillPayment{})
	if err != nil {
		t.Fatalf("Pay: %v", err)
	}
	want := domain.Transaction{
		UserID:      "u1",
		Description: "Pgto Luz - Março",
		Amount:      120,
		Type:        domain.Expense,
		Category:    "Contas",
		Date:        date(2024, 3, 15),
	}
	if diff := cmp.Diff(want, tx, ignoreGenerated); diff != "" {
		t.Errorf("payment mismatch (-want +got):\n%s", diff)
	}

	statuses, err = svc.Bills.Statuses(ctx, "u1")
	if err != nil {
		t.Fatalf("Statuses: %v", err)
	}
	if statuses[0].Paid || !statuses[1].Paid {
		t.Errorf("unexpected statuses after payment: %+v", statuses)
	}
	if statuses[1].LastPaidDate == nil || *statuses[1].LastPaidDate != date(2024, 3, 15) {
		t.Errorf("LastPaidDate = %v", statuses[1].LastPaidDate)
	}

	toggled, err := svc.Bills.ToggleActive(ctx, "u1", luz.ID)
	if err != nil {
		t.Fatalf("ToggleActive: %v", err)
	}
	if toggled.Active {
		t.Error("ToggleActive should deactivate")
	}
}

func TestGoalsDepositWithdraw(t *testing.T) {
	svc, _, _ := newTestServices(t)
	ctx := context.Background()

	g, err := svc.Goals.Add(ctx, "u1", domain.Goal{Name: "Viagem", TargetAmount: 1000, CurrentAmount: 999})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if g.CurrentAmount != 0 {
		t.Errorf("CurrentAmount = %v, want 0", g.CurrentAmount)
	}

	g, err = svc.Goals.Deposit(ctx, "u1", g.ID, 400)
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if g.CurrentAmount != 400 {
		t.Errorf("CurrentAmount = %v, want 400", g.CurrentAmount)
	}

	if _, err := svc.Goals.Withdraw(ctx, "u1", g.ID, 500); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("Withdraw error = %v, want ErrInsufficientFunds", err)
	}
	g, err = svc.Goals.Withdraw(ctx, "u1", g.ID, 150)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if g.CurrentAmount != 250 {
		t.Errorf("CurrentAmount = %v, want 250", g.CurrentAmount)
	}

	txs, err := svc.Transactions.List(ctx, "u1", TransactionFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := map[string]domain.Transaction{}
	for _, tx := range txs {
		got[tx.Description] = tx
	}
	dep, ok := got["Depósito: Viagem"]
	if !ok || dep.Type != domain.Expense || dep.Category != domain.CategoryInvestment || dep.Amount != 400 {
		t.Errorf("deposit mirror = %+v", dep)
	}
	wd, ok := got["Resgate: Viagem"]
	if !ok || wd.Type != domain.Income || wd.Category != domain.CategoryOther || wd.Amount != 150 {
		t.Errorf("withdraw mirror = %+v", wd)
	}

	stored, err := svc.Goals.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List goals: %v", err)
	}
	if len(stored) != 1 || stored[0].CurrentAmount != 250 {
		t.Errorf("stored goals = %+v", stored)
	}
}

func TestCardsExpensePayAnticipate(t *testing.T) {
	svc, _, _ := newTestServices(t)
	ctx := context.Background()

	card, err := svc.Cards.Add(ctx, "u1", domain.CreditCard{Name: "Nubank", Limit: 1000, ClosingDay: 1, DueDay: 10})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if card.Color != domain.DefaultCardColor {
		t.Errorf("Color = %q, want default", card.Color)
	}

	txs, err := svc.Cards.AddExpense(ctx, "u1", card.ID, domain.CardExpense{
		Description: "TV", Total: 300, Installments: 3, Date: date(2024, 1, 31),
	})
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if len(txs) != 3 || txs[2].Date != date(2024, 3, 31) || txs[1].Description != "TV (2/3) - Cartão: Nubank" {
		t.Fatalf("unexpected installments: %+v", txs)
	}

	views, err := svc.Cards.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if views[0].CurrentInvoice != 100 || views[0].InstallmentsBalance != 200 || views[0].Used != 300 || views[0].Available != 700 {
		t.Errorf("unexpected card after expense: %+v", views[0])
	}

	card, err = svc.Cards.PayInvoice(ctx, "u1", card.ID, 150, civil.Date{})
	if err != nil {
		t.Fatalf("PayInvoice: %v", err)
	}
	if card.CurrentInvoice != 0 {
		t.Errorf("CurrentInvoice = %v, want 0", card.CurrentInvoice)
	}

	anticipated, err := svc.Cards.AnticipateInstallment(ctx, "u1", card.ID, txs[2].ID)
	if err != nil {
		t.Fatalf("AnticipateInstallment: %v", err)
	}
	if anticipated.Date != date(2024, 3, 15) || anticipated.Description != "TV (3/3) - Cartão: Nubank (Adiantada)" {
		t.Errorf("unexpected anticipated transaction: %+v", anticipated)
	}
	if _, err := svc.Cards.AnticipateInstallment(ctx, "u1", card.ID, txs[2].ID); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("second anticipation error = %v, want ErrValidation", err)
	}

	card, err = svc.Cards.Get(ctx, "u1", card.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if card.CurrentInvoice != 100 || card.InstallmentsBalance != 100 {
		t.Errorf("unexpected balances after anticipation: %+v", card)
	}

	inv, err := svc.Cards.Invoice(ctx, "u1", card.ID, date(2024, 3, 1))
	if err != nil {
		t.Fatalf("Invoice: %v", err)
	}
	if len(inv.Transactions) != 1 || inv.Total != 100 || inv.Future {
		t.Errorf("unexpected March invoice: %+v", inv)
	}
}

func TestCategoriesSeedDefaultsIdempotent(t *testing.T) {
	svc, _, _ := newTestServices(t)
	ctx := context.Background()

	if _, err := svc.Categories.Add(ctx, "u1", domain.Category{Name: "moradia", Type: domain.Expense}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	added, err := svc.Categories.SeedDefaults(ctx, "u1")
	if err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	if added != len(domain.DefaultCategories)-1 {
		t.Errorf("added = %d, want %d", added, len(domain.DefaultCategories)-1)
	}
	again, err := svc.Categories.SeedDefaults(ctx, "u1")
	if err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	if again != 0 {
		t.Errorf("second seed added %d", again)
	}

	income, err := svc.Categories.List(ctx, "u1", domain.Income)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(income) != 3 {
		t.Errorf("income categories = %d, want 3", len(income))
	}

	if _, err := svc.Categories.Add(ctx, "u1", domain.Category{Name: "Saude", Type: domain.Expense}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("duplicate name error = %v, want ErrValidation", err)
	}
}

func TestDashboardCachedAndInvalidated(t *testing.T) {
	svc, c, _ := newTestServices(t)
	ctx := context.Background()

	add := func(desc string, amount float64, typ domain.TransactionType, d civil.Date) {
		t.Helper()
		if _, err := svc.Transactions.Add(ctx, "u1", domain.Transaction{
			Description: desc, Amount: amount, Type: typ, Category: "A", Date: d,
		}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	add("salary", 1000, domain.Income, date(2024, 3, 1))
	add("rent", 300, domain.Expense, date(2024, 3, 2))
	add("old", 200, domain.Expense, date(2024, 2, 2))
	add("future", 999, domain.Expense, date(2024, 4, 2))

	d, err := svc.Summary.Dashboard(ctx, "u1")
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.Balance != 500 {
		t.Errorf("Balance = %v, want 500", d.Balance)
	}
	if d.Month.Income != 1000 || d.Month.Expense != 300 {
		t.Errorf("Month = %+v", d.Month)
	}
	if d.ExpenseChange != 50 || d.IncomeChange != 100 {
		t.Errorf("changes = %v/%v", d.IncomeChange, d.ExpenseChange)
	}
	if len(d.Trend) != TrendMonths || d.Trend[TrendMonths-1].Balance != 500 || d.Trend[TrendMonths-2].Balance != -200 {
		t.Errorf("unexpected trend tail: %+v", d.Trend[TrendMonths-2:])
	}
	if _, ok := c.data[summaryKey("u1")]; !ok {
		t.Error("dashboard was not cached")
	}

	add("bonus", 100, domain.Income, date(2024, 3, 3))
	if _, ok := c.data[summaryKey("u1")]; ok {
		t.Error("cache not invalidated by write")
	}
	d, err = svc.Summary.Dashboard(ctx, "u1")
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.Balance != 600 {
		t.Errorf("Balance after write = %v, want 600", d.Balance)
	}
}

func TestDashboardRefreshedByBillWrites(t *testing.T) {
	svc, c, _ := newTestServices(t)
	ctx := context.Background()

	commitment := func() float64 {
		t.Helper()
		d, err := svc.Summary.Dashboard(ctx, "u1")
		if err != nil {
			t.Fatalf("Dashboard: %v", err)
		}
		return d.MonthlyCommitment
	}

	if got := commitment(); got != 0 {
		t.Fatalf("MonthlyCommitment = %v, want 0", got)
	}
	bill, err := svc.Bills.Add(ctx, "u1", domain.Bill{Name: "Internet", Amount: 120, DueDate: 8, Category: "Contas"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := commitment(); got != 120 {
		t.Errorf("after Add: MonthlyCommitment = %v, want 120", got)
	}

	amount := 150.0
	if _, err := svc.Bills.Update(ctx, "u1", bill.ID, BillPatch{Amount: &amount}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := commitment(); got != 150 {
		t.Errorf("after Update: MonthlyCommitment = %v, want 150", got)
	}

	if _, err := svc.Bills.ToggleActive(ctx, "u1", bill.ID); err != nil {
		t.Fatalf("ToggleActive: %v", err)
	}
	if got := commitment(); got != 0 {
		t.Errorf("after ToggleActive: MonthlyCommitment = %v, want 0", got)
	}

	if _, err := svc.Bills.ToggleActive(ctx, "u1", bill.ID); err != nil {
		t.Fatalf("ToggleActive: %v", err)
	}
	commitment()
	if err := svc.Bills.MarkAsPaid(ctx, "u1", bill.ID, date(2024, 3, 8)); err != nil {
		t.Fatalf("MarkAsPaid: %v", err)
	}
	if _, ok := c.data[summaryKey("u1")]; ok {
		t.Error("cache not invalidated by MarkAsPaid")
	}

	commitment()
	if err := svc.Bills.Delete(ctx, "u1", bill.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := commitment(); got != 0 {
		t.Errorf("after Delete: MonthlyCommitment = %v, want 0", got)
	}
}

func TestBillPriceIncreaseStatus(t *testing.T) {
	svc, _, _ := newTestServices(t)
	ctx := context.Background()

	bill, err := svc.Bills.Add(ctx, "u1", domain.Bill{Name: "Streaming", Amount: 20, DueDate: 5, Category: "Lazer"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	name := "Streaming Premium"
	if _, err := svc.Bills.Update(ctx, "u1", bill.ID, BillPatch{Name: &name}); err != nil {
		t.Fatalf("Update name: %v", err)
	}
	statuses, err := svc.Bills.Statuses(ctx, "u1")
	if err != nil {
		t.Fatalf("Statuses: %v", err)
	}
	if statuses[0].PriceIncreased || statuses[0].PreviousAmount != nil {
		t.Errorf("rename flagged as price change: %+v", statuses[0])
	}

	amount := 30.0
	updated, err := svc.Bills.Update(ctx, "u1", bill.ID, BillPatch{Amount: &amount})
	if err != nil {
		t.Fatalf("Update amount: %v", err)
	}
	if updated.PreviousAmount == nil || *updated.PreviousAmount != 20 {
		t.Errorf("PreviousAmount = %v, want 20", updated.PreviousAmount)
	}
	statuses, err = svc.Bills.Statuses(ctx, "u1")
	if err != nil {
		t.Fatalf("Statuses: %v", err)
	}
	if st := statuses[0]; !st.PriceIncreased || st.IncreaseAmount != 10 || st.IncreasePercent != 50 {
		t.Errorf("unexpected price change: %+v", st)
	}

	amount = 25
	if _, err := svc.Bills.Update(ctx, "u1", bill.ID, BillPatch{Amount: &amount}); err != nil {
		t.Fatalf("Update amount: %v", err)
	}
	statuses, err = svc.Bills.Statuses(ctx, "u1")
	if err != nil {
		t.Fatalf("Statuses: %v", err)
	}
	if statuses[0].PriceIncreased {
		t.Errorf("price cut flagged as increase: %+v", statuses[0])
	}
}

func TestSubscribeTransactions(t *testing.T) {
	svc, _, _ := newTestServices(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snaps := make(chan []domain.Transaction, 4)
	stop, err := svc.Transactions.Subscribe(ctx, "u1", func(txs []domain.Transaction) { snaps <- txs })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	next := func() []domain.Transaction {
		t.Helper()
		select {
		case s := <-snaps:
			return s
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for snapshot")
			return nil
		}
	}
	if first := next(); len(first) != 0 {
		t.Fatalf("first snapshot = %+v, want empty", first)
	}

	if _, err := svc.Transactions.Add(ctx, "u1", domain.Transaction{
		Description: "x", Amount: 1, Type: domain.Expense, Category: "A", Date: date(2024, 3, 1),
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := next(); len(got) != 1 || got[0].Description != "x" {
		t.Errorf("snapshot after add = %+v", got)
	}

	if _, err := svc.Transactions.Subscribe(ctx, "", func([]domain.Transaction) {}); err == nil {
		t.Error("expected error subscribing without a user")
	}
}
