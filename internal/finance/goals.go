package finance

import (
	"context"
	"fmt"
	"math"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/lifeledger/internal/docstore"
	"github.com/dvloznov/lifeledger/internal/domain"
	"github.com/dvloznov/lifeledger/internal/logger"
)

// GoalService manages savings goals. Deposits and withdrawals write a
// mirrored transaction in the same batch as the balance change.
type GoalService struct {
	*base
	txs *TransactionService
}

// GoalPatch carries the fields of an edit; nil fields are left alone.
type GoalPatch struct {
	Name         *string     `json:"name,omitempty"`
	Description  *string     `json:"description,omitempty"`
	TargetAmount *float64    `json:"targetAmount,omitempty"`
	Deadline     *civil.Date `json:"deadline,omitempty"`
	Category     *string     `json:"category,omitempty"`
}

func goalsQuery() docstore.Query {
	return docstore.Query{Collection: domain.CollGoals, OrderBy: []docstore.Order{docstore.Desc("createdAt")}}
}

// List returns userID's goals, newest first.
func (s *GoalService) List(ctx context.Context, userID string) ([]domain.Goal, error) {
	goals, err := docstore.QueryOwned[domain.Goal](ctx, s.docs, userID, goalsQuery())
	if err != nil {
		return nil, fmt.Errorf("ListGoals: %w", err)
	}
	return goals, nil
}

// Add stores a new goal with nothing saved yet.
func (s *GoalService) Add(ctx context.Context, userID string, g domain.Goal) (domain.Goal, error) {
	g.ID = ""
	g.UserID = userID
	g.CurrentAmount = 0
	g.CreatedAt = s.stamp()
	if err := g.Validate(); err != nil {
		return domain.Goal{}, err
	}
	id, err := s.docs.Add(ctx, domain.CollGoals, g)
	if err != nil {
		return domain.Goal{}, fmt.Errorf("AddGoal: %w", err)
	}
	g.ID = id
	return g, nil
}

func (s *GoalService) get(ctx context.Context, userID, id string) (domain.Goal, error) {
	return docstore.GetOwned[domain.Goal](ctx, s.docs, domain.CollGoals, userID, id)
}

// Update applies patch to one goal. The saved amount only changes through
// Deposit and Withdraw.
func (s *GoalService) Update(ctx context.Context, userID, id string, patch GoalPatch) (domain.Goal, error) {
	g, err := s.get(ctx, userID, id)
	if err != nil {
		return domain.Goal{}, fmt.Errorf("UpdateGoal: %w", err)
	}
	if patch.Name != nil {
		g.Name = *patch.Name
	}
	if patch.Description != nil {
		g.Description = *patch.Description
	}
	if patch.TargetAmount != nil {
		g.TargetAmount = *patch.TargetAmount
	}
	if patch.Deadline != nil {
		g.Deadline = patch.Deadline
	}
	if patch.Category != nil {
		g.Category = *patch.Category
	}
	if err := g.Validate(); err != nil {
		return domain.Goal{}, err
	}
	if err := s.docs.Set(ctx, domain.CollGoals, id, g, false); err != nil {
		return domain.Goal{}, fmt.Errorf("UpdateGoal: %w", err)
	}
	return g, nil
}

// Delete removes a goal. Mirrored transactions are kept.
func (s *GoalService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.get(ctx, userID, id); err != nil {
		return fmt.Errorf("DeleteGoal: %w", err)
	}
	if err := s.docs.Delete(ctx, domain.CollGoals, id); err != nil {
		return fmt.Errorf("DeleteGoal: %w", err)
	}
	return nil
}

// Deposit adds amount to the goal and records it as an expense in the goal's
// category, or "Investimento" when it has none.
func (s *GoalService) Deposit(ctx context.Context, userID, id string, amount float64) (domain.Goal, error) {
	if err := requirePositive("amount", amount); err != nil {
		return domain.Goal{}, err
	}
	g, err := s.get(ctx, userID, id)
	if err != nil {
		return domain.Goal{}, fmt.Errorf("Deposit: %w", err)
	}
	g.CurrentAmount += amount

	return s.move(ctx, g, amount, domain.Transaction{
		Description: domain.DepositDescription(g),
		Amount:      amount,
		Type:        domain.Expense,
		Category:    g.DepositCategory(),
	})
}

// Withdraw takes amount out of the goal and records it as income in "Outros".
// Withdrawing more than is saved fails with ErrInsufficientFunds.
func (s *GoalService) Withdraw(ctx context.Context, userID, id string, amount float64) (domain.Goal, error) {
	if err := requirePositive("amount", amount); err != nil {
		return domain.Goal{}, err
	}
	g, err := s.get(ctx, userID, id)
	if err != nil {
		return domain.Goal{}, fmt.Errorf("Withdraw: %w", err)
	}
	if amount > g.CurrentAmount {
		return domain.Goal{}, fmt.Errorf("Withdraw %.2f from %.2f: %w", amount, g.CurrentAmount, ErrInsufficientFunds)
	}
	g.CurrentAmount = math.Max(0, g.CurrentAmount-amount)

	return s.move(ctx, g, amount, domain.Transaction{
		Description: domain.WithdrawDescription(g),
		Amount:      amount,
		Type:        domain.Income,
		Category:    domain.CategoryOther,
	})
}

func (s *GoalService) move(ctx context.Context, g domain.Goal, amount float64, mirror domain.Transaction) (domain.Goal, error) {
	batch := s.docs.Batch()
	batch.Update(domain.CollGoals, g.ID, map[string]any{"currentAmount": g.CurrentAmount})
	tx, err := s.txs.stage(batch, g.UserID, mirror)
	if err != nil {
		return domain.Goal{}, err
	}
	if err := batch.Commit(ctx); err != nil {
		return domain.Goal{}, fmt.Errorf("GoalMovement: commit: %w", err)
	}
	s.invalidate(ctx, g.UserID)

	log := logger.FromContext(ctx)
	log.Info().
		Str("goal_id", g.ID).
		Str("transaction_id", tx.ID).
		Str("type", string(tx.Type)).
		Float64("amount", amount).
		Msg("Goal balance changed")
	return g, nil
}

// Subscribe streams userID's goals, newest first.
func (s *GoalService) Subscribe(ctx context.Context, userID string, fn func([]domain.Goal)) (func(), error) {
	return docstore.SubscribeOwned(ctx, s.docs, userID, goalsQuery(), fn)
}
