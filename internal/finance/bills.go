package finance

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/lifeledger/internal/docstore"
	"github.com/dvloznov/lifeledger/internal/domain"
	"github.com/dvloznov/lifeledger/internal/logger"
)

// BillService manages recurring bills.
type BillService struct {
	*base
	txs *TransactionService
}

// BillPatch carries the fields of an edit; nil fields are left alone.
type BillPatch struct {
	Name     *string  `json:"name,omitempty"`
	Amount   *float64 `json:"amount,omitempty"`
	DueDate  *int     `json:"dueDate,omitempty"`
	Category *string  `json:"category,omitempty"`
}

// BillStatus is a bill with its derived paid-this-month flag and, when its
// amount went up on the last edit, the size of the increase.
type BillStatus struct {
	domain.Bill
	Paid            bool    `json:"paid"`
	PriceIncreased  bool    `json:"priceIncreased"`
	IncreaseAmount  float64 `json:"increaseAmount,omitempty"`
	IncreasePercent float64 `json:"increasePercent,omitempty"`
}

// BillPayment describes a call to Pay. Zero Amount pays the bill amount, a zero
// Date pays today and a zero RefMonth refers to the payment date's month.
type BillPayment struct {
	Amount   float64    `json:"amount"`
	Date     civil.Date `json:"date"`
	RefMonth time.Month `json:"refMonth"`
}

func byDueDate() []docstore.Order {
	return []docstore.Order{docstore.Asc("dueDate"), docstore.Asc("name")}
}

// List returns userID's bills by due day.
func (s *BillService) List(ctx context.Context, userID string) ([]domain.Bill, error) {
	q := docstore.Query{Collection: domain.CollBills, OrderBy: byDueDate()}
	bills, err := docstore.QueryOwned[domain.Bill](ctx, s.docs, userID, q)
	if err != nil {
		return nil, fmt.Errorf("ListBills: %w", err)
	}
	return bills, nil
}

// Statuses lists userID's bills, flagging those paid in the current month.
func (s *BillService) Statuses(ctx context.Context, userID string) ([]BillStatus, error) {
	bills, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.txs.Recent(ctx, userID, domain.RecentPaymentWindow)
	if err != nil {
		return nil, err
	}
	today := s.today()
	out := make([]BillStatus, len(bills))
	for i, b := range bills {
		out[i] = BillStatus{Bill: b, Paid: domain.IsBillPaid(b, recent, today, s.loc)}
		out[i].IncreaseAmount, out[i].IncreasePercent, out[i].PriceIncreased = domain.PriceIncrease(b)
	}
	return out, nil
}

// Add stores a new, active bill.
func (s *BillService) Add(ctx context.Context, userID string, b domain.Bill) (domain.Bill, error) {
	b.ID = ""
	b.UserID = userID
	b.Active = true
	b.LastPaidDate = nil
	b.PreviousAmount = nil
	if err := b.Validate(); err != nil {
		return domain.Bill{}, err
	}
	id, err := s.docs.Add(ctx, domain.CollBills, b)
	if err != nil {
		return domain.Bill{}, fmt.Errorf("AddBill: %w", err)
	}
	b.ID = id
	s.invalidate(ctx, userID)
	return b, nil
}

func (s *BillService) get(ctx context.Context, userID, id string) (domain.Bill, error) {
	return docstore.GetOwned[domain.Bill](ctx, s.docs, domain.CollBills, userID, id)
}

// Update applies patch to one bill.
func (s *BillService) Update(ctx context.Context, userID, id string, patch BillPatch) (domain.Bill, error) {
	b, err := s.get(ctx, userID, id)
	if err != nil {
		return domain.Bill{}, fmt.Errorf("UpdateBill: %w", err)
	}
	if patch.Name != nil {
		b.Name = *patch.Name
	}
	if patch.Amount != nil && *patch.Amount != b.Amount {
		prev := b.Amount
		b.PreviousAmount = &prev
		b.Amount = *patch.Amount
	}
	if patch.DueDate != nil {
		b.DueDate = *patch.DueDate
	}
	if patch.Category != nil {
		b.Category = *patch.Category
	}
	if err := b.Validate(); err != nil {
		return domain.Bill{}, err
	}
	if err := s.docs.Set(ctx, domain.CollBills, id, b, false); err != nil {
		return domain.Bill{}, fmt.Errorf("UpdateBill: %w", err)
	}
	s.invalidate(ctx, userID)
	return b, nil
}

// ToggleActive flips whether the bill counts towards the monthly commitment.
func (s *BillService) ToggleActive(ctx context.Context, userID, id string) (domain.Bill, error) {
	b, err := s.get(ctx, userID, id)
	if err != nil {
		return domain.Bill{}, fmt.Errorf("ToggleBill: %w", err)
	}
	b.Active = !b.Active
	if err := s.docs.Update(ctx, domain.CollBills, id, map[string]any{"active": b.Active}); err != nil {
		return domain.Bill{}, fmt.Errorf("ToggleBill: %w", err)
	}
	s.invalidate(ctx, userID)
	return b, nil
}

// MarkAsPaid records date as the bill's last payment.
func (s *BillService) MarkAsPaid(ctx context.Context, userID, id string, date civil.Date) error {
	if _, err := s.get(ctx, userID, id); err != nil {
		return fmt.Errorf("MarkBillPaid: %w", err)
	}
	if !date.IsValid() {
		return domain.Invalid("date", "is invalid")
	}
	if err := s.docs.Update(ctx, domain.CollBills, id, map[string]any{"lastPaidDate": date}); err != nil {
		return fmt.Errorf("MarkBillPaid: %w", err)
	}
	s.invalidate(ctx, userID)
	return nil
}

// Pay records the expense "Pgto <name> - <Month>" in the bill's category and
// marks the bill paid, in one batch.
func (s *BillService) Pay(ctx context.Context, userID, id string, p BillPayment) (domain.Transaction, error) {
	b, err := s.get(ctx, userID, id)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("PayBill: %w", err)
	}
	if p.Amount == 0 {
		p.Amount = b.Amount
	}
	if p.Date.IsZero() {
		p.Date = s.today()
	}
	if p.RefMonth == 0 {
		p.RefMonth = p.Date.Month
	}
	if p.RefMonth < time.January || p.RefMonth > time.December {
		return domain.Transaction{}, domain.Invalid("refMonth", "must be between 1 and 12")
	}

	batch := s.docs.Batch()
	tx, err := s.txs.stage(batch, userID, domain.Transaction{
		Description: domain.PaymentDescription(b, p.RefMonth, s.loc),
		Amount:      p.Amount,
		Type:        domain.Expense,
		Category:    b.Category,
		Date:        p.Date,
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	batch.Update(domain.CollBills, id, map[string]any{"lastPaidDate": p.Date})
	if err := batch.Commit(ctx); err != nil {
		return domain.Transaction{}, fmt.Errorf("PayBill: commit: %w", err)
	}
	s.invalidate(ctx, userID)

	log := logger.FromContext(ctx)
	log.Info().
		Str("bill_id", id).
		Str("transaction_id", tx.ID).
		Float64("amount", tx.Amount).
		Msg("Bill paid")
	return tx, nil
}

// Delete removes a bill. Past payment transactions are kept.
func (s *BillService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.get(ctx, userID, id); err != nil {
		return fmt.Errorf("DeleteBill: %w", err)
	}
	if err := s.docs.Delete(ctx, domain.CollBills, id); err != nil {
		return fmt.Errorf("DeleteBill: %w", err)
	}
	s.invalidate(ctx, userID)
	return nil
}

// Subscribe streams userID's bills by due day.
func (s *BillService) Subscribe(ctx context.Context, userID string, fn func([]domain.Bill)) (func(), error) {
	q := docstore.Query{Collection: domain.CollBills, OrderBy: byDueDate()}
	return docstore.SubscribeOwned(ctx, s.docs, userID, q, fn)
}
