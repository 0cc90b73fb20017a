package finance

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/lifeledger/internal/docstore"
	"github.com/dvloznov/lifeledger/internal/domain"
	"github.com/dvloznov/lifeledger/internal/logger"
)

// CardService manages credit cards, their invoices and installments.
type CardService struct {
	*base
	txs *TransactionService
}

// CardPatch carries the fields of an edit; nil fields are left alone.
// Balances change only through expenses, payments and anticipations.
type CardPatch struct {
	Name       *string  `json:"name,omitempty"`
	Limit      *float64 `json:"limit,omitempty"`
	ClosingDay *int     `json:"closingDay,omitempty"`
	DueDay     *int     `json:"dueDay,omitempty"`
	Color      *string  `json:"color,omitempty"`
	Brand      *string  `json:"brand,omitempty"`
}

// CardView is a card with its derived limit usage.
type CardView struct {
	domain.CreditCard
	domain.CardUsage
}

func cardsQuery() docstore.Query {
	return docstore.Query{Collection: domain.CollCards, OrderBy: []docstore.Order{docstore.Asc("name")}}
}

// List returns userID's cards with their usage.
func (s *CardService) List(ctx context.Context, userID string) ([]CardView, error) {
	cards, err := docstore.QueryOwned[domain.CreditCard](ctx, s.docs, userID, cardsQuery())
	if err != nil {
		return nil, fmt.Errorf("ListCards: %w", err)
	}
	out := make([]CardView, len(cards))
	for i, c := range cards {
		out[i] = CardView{CreditCard: c, CardUsage: domain.Usage(c)}
	}
	return out, nil
}

// Get returns one card.
func (s *CardService) Get(ctx context.Context, userID, id string) (domain.CreditCard, error) {
	return docstore.GetOwned[domain.CreditCard](ctx, s.docs, domain.CollCards, userID, id)
}

// Add stores a card with empty balances.
func (s *CardService) Add(ctx context.Context, userID string, c domain.CreditCard) (domain.CreditCard, error) {
	c.ID = ""
	c.UserID = userID
	c.CurrentInvoice = 0
	c.InstallmentsBalance = 0
	if c.Color == "" {
		c.Color = domain.DefaultCardColor
	}
	if err := c.Validate(); err != nil {
		return domain.CreditCard{}, err
	}
	id, err := s.docs.Add(ctx, domain.CollCards, c)
	if err != nil {
		return domain.CreditCard{}, fmt.Errorf("AddCard: %w", err)
	}
	c.ID = id
	return c, nil
}

// Update applies patch to one card.
func (s *CardService) Update(ctx context.Context, userID, id string, patch CardPatch) (domain.CreditCard, error) {
	c, err := s.Get(ctx, userID, id)
	if err != nil {
		return domain.CreditCard{}, fmt.Errorf("UpdateCard: %w", err)
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Limit != nil {
		c.Limit = *patch.Limit
	}
	if patch.ClosingDay != nil {
		c.ClosingDay = *patch.ClosingDay
	}
	if patch.DueDay != nil {
		c.DueDay = *patch.DueDay
	}
	if patch.Color != nil {
		c.Color = *patch.Color
	}
	if patch.Brand != nil {
		c.Brand = *patch.Brand
	}
	if err := c.Validate(); err != nil {
		return domain.CreditCard{}, err
	}
	if err := s.docs.Set(ctx, domain.CollCards, id, c, false); err != nil {
		return domain.CreditCard{}, fmt.Errorf("UpdateCard: %w", err)
	}
	return c, nil
}

// Delete removes a card. Its transactions are kept.
func (s *CardService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return fmt.Errorf("DeleteCard: %w", err)
	}
	if err := s.docs.Delete(ctx, domain.CollCards, id); err != nil {
		return fmt.Errorf("DeleteCard: %w", err)
	}
	return nil
}

// AddExpense charges a purchase to the card: the first installment goes on
// the current invoice, the rest on the installments balance, and one expense
// transaction per installment is written in the same batch.
func (s *CardService) AddExpense(ctx context.Context, userID, id string, e domain.CardExpense) ([]domain.Transaction, error) {
	if e.Date.IsZero() {
		e.Date = s.today()
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	card, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("AddCardExpense: %w", err)
	}

	plan := domain.PlanExpense(card, e)
	batch := s.docs.Batch()
	batch.Update(domain.CollCards, id, map[string]any{
		"currentInvoice":      card.CurrentInvoice + plan.InvoiceDelta,
		"installmentsBalance": card.InstallmentsBalance + plan.InstallmentsDelta,
	})
	written := make([]domain.Transaction, 0, len(plan.Transactions))
	for _, tx := range plan.Transactions {
		staged, err := s.txs.stage(batch, userID, tx)
		if err != nil {
			return nil, err
		}
		written = append(written, staged)
	}
	if err := batch.Commit(ctx); err != nil {
		return nil, fmt.Errorf("AddCardExpense: commit: %w", err)
	}
	s.invalidate(ctx, userID)

	log := logger.FromContext(ctx)
	log.Info().
		Str("card_id", id).
		Float64("total", e.Total).
		Int("installments", e.Installments).
		Msg("Card expense added")
	return written, nil
}

// PayInvoice lowers the current invoice by amount (never below zero) and
// records the payment as an expense in "Cartão de Crédito".
func (s *CardService) PayInvoice(ctx context.Context, userID, id string, amount float64, date civil.Date) (domain.CreditCard, error) {
	if err := requirePositive("amount", amount); err != nil {
		return domain.CreditCard{}, err
	}
	card, err := s.Get(ctx, userID, id)
	if err != nil {
		return domain.CreditCard{}, fmt.Errorf("PayInvoice: %w", err)
	}
	card = domain.ApplyPayment(card, amount)

	batch := s.docs.Batch()
	batch.Update(domain.CollCards, id, map[string]any{"currentInvoice": card.CurrentInvoice})
	if _, err := s.txs.stage(batch, userID, domain.Transaction{
		Description: domain.InvoicePaymentDescription(card.Name),
		Amount:      amount,
		Type:        domain.Expense,
		Category:    domain.CategoryCreditCard,
		Date:        date,
	}); err != nil {
		return domain.CreditCard{}, err
	}
	if err := batch.Commit(ctx); err != nil {
		return domain.CreditCard{}, fmt.Errorf("PayInvoice: commit: %w", err)
	}
	s.invalidate(ctx, userID)
	return card, nil
}

// AnticipateInstallment pays a future installment now: the transaction moves
// to today with " (Adiantada)" appended, and its amount moves from the
// installments balance onto the current invoice.
func (s *CardService) AnticipateInstallment(ctx context.Context, userID, cardID, txID string) (domain.Transaction, error) {
	card, err := s.Get(ctx, userID, cardID)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("AnticipateInstallment: %w", err)
	}
	tx, err := s.txs.Get(ctx, userID, txID)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("AnticipateInstallment: %w", err)
	}
	if tx.CardID != cardID {
		return domain.Transaction{}, domain.Invalid("transactionId", "does not belong to this card")
	}
	if strings.HasSuffix(tx.Description, domain.AnticipatedSuffix) {
		return domain.Transaction{}, domain.Invalid("transactionId", "installment already anticipated")
	}

	card = domain.ApplyAnticipation(card, tx.Amount)
	tx.Date = s.today()
	tx.Description += domain.AnticipatedSuffix

	batch := s.docs.Batch()
	batch.Update(domain.CollTransactions, txID, map[string]any{
		"date":        tx.Date,
		"description": tx.Description,
	})
	batch.Update(domain.CollCards, cardID, map[string]any{
		"currentInvoice":      card.CurrentInvoice,
		"installmentsBalance": card.InstallmentsBalance,
	})
	if err := batch.Commit(ctx); err != nil {
		return domain.Transaction{}, fmt.Errorf("AnticipateInstallment: commit: %w", err)
	}
	s.invalidate(ctx, userID)
	return tx, nil
}

// Invoice returns the card's transactions for month's calendar month. A zero
// month means the current one.
func (s *CardService) Invoice(ctx context.Context, userID, id string, month civil.Date) (domain.Invoice, error) {
	if month.IsZero() {
		month = s.today()
	}
	if _, err := s.Get(ctx, userID, id); err != nil {
		return domain.Invoice{}, fmt.Errorf("Invoice: %w", err)
	}
	txs, err := s.txs.List(ctx, userID, TransactionFilter{Month: &month, CardID: id})
	if err != nil {
		return domain.Invoice{}, fmt.Errorf("Invoice: %w", err)
	}
	return domain.InvoiceFor(txs, id, month, s.today()), nil
}

// Subscribe streams userID's cards by name.
func (s *CardService) Subscribe(ctx context.Context, userID string, fn func([]domain.CreditCard)) (func(), error) {
	return docstore.SubscribeOwned(ctx, s.docs, userID, cardsQuery(), fn)
}
