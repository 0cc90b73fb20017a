package finance

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/lifeledger/internal/docstore"
	"github.com/dvloznov/lifeledger/internal/domain"
	"github.com/dvloznov/lifeledger/internal/logger"
	"github.com/google/uuid"
)

// TransactionService manages ledger entries.
type TransactionService struct {
	*base
}

// TransactionFilter narrows List. Zero fields do not filter.
type TransactionFilter struct {
	Month    *civil.Date
	Type     domain.TransactionType
	Category string
	CardID   string
}

// TransactionPatch carries the fields of an edit; nil fields are left alone.
type TransactionPatch struct {
	Description *string                 `json:"description,omitempty"`
	Amount      *float64                `json:"amount,omitempty"`
	Type        *domain.TransactionType `json:"type,omitempty"`
	Category    *string                 `json:"category,omitempty"`
	Date        *civil.Date             `json:"date,omitempty"`
}

// Apply returns tx with the patch applied.
func (p TransactionPatch) Apply(tx domain.Transaction) domain.Transaction {
	if p.Description != nil {
		tx.Description = *p.Description
	}
	if p.Amount != nil {
		tx.Amount = *p.Amount
	}
	if p.Type != nil {
		tx.Type = *p.Type
	}
	if p.Category != nil {
		tx.Category = *p.Category
	}
	if p.Date != nil {
		tx.Date = *p.Date
	}
	return tx
}

// TransactionPage is one page of a filtered listing.
type TransactionPage struct {
	Items []domain.Transaction `json:"items"`
	domain.Page
}

func newestFirst(q docstore.Query) docstore.Query {
	q.OrderBy = []docstore.Order{docstore.Desc("date"), docstore.Desc("createdAt")}
	return q
}

// Add validates tx and stores it for userID, stamping owner and createdAt.
func (s *TransactionService) Add(ctx context.Context, userID string, tx domain.Transaction) (domain.Transaction, error) {
	tx = s.prepare(userID, tx)
	if err := tx.Validate(); err != nil {
		return domain.Transaction{}, err
	}

	id, err := s.docs.Add(ctx, domain.CollTransactions, tx)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("AddTransaction: %w", err)
	}
	tx.ID = id
	s.invalidate(ctx, userID)

	log := logger.FromContext(ctx)
	log.Debug().
		Str("transaction_id", id).
		Str("type", string(tx.Type)).
		Msg("Transaction added")
	return tx, nil
}

func (s *TransactionService) prepare(userID string, tx domain.Transaction) domain.Transaction {
	tx.ID = ""
	tx.UserID = userID
	tx.CreatedAt = s.stamp()
	if tx.Date.IsZero() {
		tx.Date = s.today()
	}
	return tx
}

// stage queues tx in b under a fresh id, for writes that must land together
// with another document.
func (s *TransactionService) stage(b docstore.Batch, userID string, tx domain.Transaction) (domain.Transaction, error) {
	tx = s.prepare(userID, tx)
	if err := tx.Validate(); err != nil {
		return domain.Transaction{}, err
	}
	tx.ID = uuid.New().String()
	b.Set(domain.CollTransactions, tx.ID, tx, false)
	return tx, nil
}

// Get returns one of userID's transactions.
func (s *TransactionService) Get(ctx context.Context, userID, id string) (domain.Transaction, error) {
	return docstore.GetOwned[domain.Transaction](ctx, s.docs, domain.CollTransactions, userID, id)
}

// List returns userID's transactions matching f, newest first.
func (s *TransactionService) List(ctx context.Context, userID string, f TransactionFilter) ([]domain.Transaction, error) {
	q := newestFirst(docstore.Query{Collection: domain.CollTransactions})
	if f.Month != nil {
		q.Filters = append(q.Filters,
			docstore.Where("date", docstore.Gte, domain.MonthStart(*f.Month)),
			docstore.Where("date", docstore.Lte, domain.MonthEnd(*f.Month)),
		)
	}
	if f.Type != "" {
		q.Filters = append(q.Filters, docstore.Where("type", docstore.Eq, f.Type))
	}
	if f.Category != "" {
		q.Filters = append(q.Filters, docstore.Where("category", docstore.Eq, f.Category))
	}
	if f.CardID != "" {
		q.Filters = append(q.Filters, docstore.Where("cardId", docstore.Eq, f.CardID))
	}

	txs, err := docstore.QueryOwned[domain.Transaction](ctx, s.docs, userID, q)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	return txs, nil
}

// Page returns one page of List. Invalid page sizes fall back to the default.
func (s *TransactionService) Page(ctx context.Context, userID string, f TransactionFilter, page, perPage int) (TransactionPage, error) {
	txs, err := s.List(ctx, userID, f)
	if err != nil {
		return TransactionPage{}, err
	}
	p := domain.Paginate(len(txs), page, perPage, s.loc)
	start, end := p.Slice(len(txs))
	return TransactionPage{Items: txs[start:end], Page: p}, nil
}

// Recent returns userID's n newest transactions.
func (s *TransactionService) Recent(ctx context.Context, userID string, n int) ([]domain.Transaction, error) {
	q := newestFirst(docstore.Query{Collection: domain.CollTransactions, Limit: n})
	txs, err := docstore.QueryOwned[domain.Transaction](ctx, s.docs, userID, q)
	if err != nil {
		return nil, fmt.Errorf("RecentTransactions: %w", err)
	}
	return txs, nil
}

// Update applies patch to one transaction.
func (s *TransactionService) Update(ctx context.Context, userID, id string, patch TransactionPatch) (domain.Transaction, error) {
	updated, err := s.UpdateMany(ctx, userID, []string{id}, patch)
	if err != nil {
		return domain.Transaction{}, err
	}
	return updated[0], nil
}

// UpdateMany applies the same patch to every listed transaction in one batch.
// Nothing is written if any id is missing or the result fails validation.
func (s *TransactionService) UpdateMany(ctx context.Context, userID string, ids []string, patch TransactionPatch) ([]domain.Transaction, error) {
	if len(ids) == 0 {
		return nil, domain.Invalid("ids", "must not be empty")
	}
	b := s.docs.Batch()
	out := make([]domain.Transaction, 0, len(ids))
	for _, id := range ids {
		tx, err := s.Get(ctx, userID, id)
		if err != nil {
			return nil, fmt.Errorf("UpdateTransactions: %w", err)
		}
		tx = patch.Apply(tx)
		if err := tx.Validate(); err != nil {
			return nil, err
		}
		b.Set(domain.CollTransactions, id, tx, false)
		out = append(out, tx)
	}
	if err := b.Commit(ctx); err != nil {
		return nil, fmt.Errorf("UpdateTransactions: commit: %w", err)
	}
	s.invalidate(ctx, userID)
	return out, nil
}

// Delete removes one transaction.
func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	return s.DeleteMany(ctx, userID, []string{id})
}

// DeleteMany removes every listed transaction in one batch.
func (s *TransactionService) DeleteMany(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return domain.Invalid("ids", "must not be empty")
	}
	b := s.docs.Batch()
	for _, id := range ids {
		if _, err := s.Get(ctx, userID, id); err != nil {
			return fmt.Errorf("DeleteTransactions: %w", err)
		}
		b.Delete(domain.CollTransactions, id)
	}
	if err := b.Commit(ctx); err != nil {
		return fmt.Errorf("DeleteTransactions: commit: %w", err)
	}
	s.invalidate(ctx, userID)

	log := logger.FromContext(ctx)
	log.Info().Int("count", len(ids)).Msg("Transactions deleted")
	return nil
}

// Subscribe streams userID's transactions, newest first.
func (s *TransactionService) Subscribe(ctx context.Context, userID string, fn func([]domain.Transaction)) (func(), error) {
	q := newestFirst(docstore.Query{Collection: domain.CollTransactions})
	return docstore.SubscribeOwned(ctx, s.docs, userID, q, fn)
}
