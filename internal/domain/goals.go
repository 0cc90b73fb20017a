package domain

import (
	"math"
	"strings"
)

// Validate checks a goal has a name and a positive target.
func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return Invalid("name", "is required")
	}
	if !(g.TargetAmount > 0) {
		return Invalid("targetAmount", "must be positive")
	}
	return nil
}

// Progress is the percentage of the target reached, capped at 100.
func (g Goal) Progress() float64 {
	if g.TargetAmount <= 0 {
		return 0
	}
	return math.Min(100, g.CurrentAmount/g.TargetAmount*100)
}

// Completed reports whether the target has been reached.
func (g Goal) Completed() bool {
	return g.Progress() >= 100
}

// DepositCategory is the category of the expense mirrored by a deposit.
func (g Goal) DepositCategory() string {
	if g.Category != "" {
		return g.Category
	}
	return CategoryInvestment
}

// DepositDescription labels the expense recorded when funding g.
func DepositDescription(g Goal) string {
	return "Depósito: " + g.Name
}

// WithdrawDescription labels the income recorded when drawing from g.
func WithdrawDescription(g Goal) string {
	return "Resgate: " + g.Name
}
