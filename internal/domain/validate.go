package domain

import "strings"

// Validate checks the fields every transaction needs.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return Invalid("description", "is required")
	}
	if !(t.Amount > 0) {
		return Invalid("amount", "must be positive")
	}
	if !t.Type.Valid() {
		return Invalid("type", "must be income or expense")
	}
	if strings.TrimSpace(t.Category) == "" {
		return Invalid("category", "is required")
	}
	if !t.Date.IsValid() {
		return Invalid("date", "is invalid")
	}
	return nil
}

// Validate checks the card has a name, a non-negative limit and real days.
func (c CreditCard) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return Invalid("name", "is required")
	}
	if c.Limit < 0 {
		return Invalid("limit", "must not be negative")
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return Invalid("closingDay", "must be a day between 1 and 31")
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return Invalid("dueDay", "must be a day between 1 and 31")
	}
	return nil
}

// Icons a category may use.
var CategoryIcons = []string{
	"ShoppingBag", "Coffee", "Zap", "Home", "Wifi", "Car", "TrendingUp",
	"Briefcase", "Gift", "Heart", "Phone", "Tv", "DollarSign", "PiggyBank",
}

// DefaultIcon is the icon given to a category created without one.
func DefaultIcon(t TransactionType) string {
	if t == Income {
		return "TrendingUp"
	}
	return "ShoppingBag"
}

// Validate checks the category has a name, a type and a known icon.
func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return Invalid("name", "is required")
	}
	if !c.Type.Valid() {
		return Invalid("type", "must be income or expense")
	}
	if c.Icon != "" && !contains(CategoryIcons, c.Icon) {
		return Invalid("icon", "unknown icon "+c.Icon)
	}
	return nil
}

// DefaultCategories are seeded for every new user.
var DefaultCategories = []Category{
	{Name: "Salário", Type: Income, Icon: "Briefcase", Color: "#22c55e"},
	{Name: "Freelance", Type: Income, Icon: "DollarSign", Color: "#10b981"},
	{Name: "Rendimentos", Type: Income, Icon: "TrendingUp", Color: "#14b8a6"},
	{Name: "Alimentação", Type: Expense, Icon: "Coffee", Color: "#f97316"},
	{Name: "Moradia", Type: Expense, Icon: "Home", Color: "#6366f1"},
	{Name: "Transporte", Type: Expense, Icon: "Car", Color: "#0ea5e9"},
	{Name: "Contas", Type: Expense, Icon: "Zap", Color: "#eab308"},
	{Name: "Internet", Type: Expense, Icon: "Wifi", Color: "#8b5cf6"},
	{Name: "Saúde", Type: Expense, Icon: "Heart", Color: "#ef4444"},
	{Name: "Lazer", Type: Expense, Icon: "Tv", Color: "#ec4899"},
	{Name: CategoryInvestment, Type: Expense, Icon: "PiggyBank", Color: "#84cc16"},
	{Name: CategoryCreditCard, Type: Expense, Icon: "DollarSign", Color: "#64748b"},
	{Name: CategoryOther, Type: Expense, Icon: "ShoppingBag", Color: "#94a3b8"},
}
