package domain

import (
	"cloud.google.com/go/civil"
)

// Document collections. Every collection except Users and Sessions stores
// documents with a userId field naming the owner.
const (
	CollTransactions = "transactions"
	CollBills        = "bills"
	CollGoals        = "goals"
	CollCards        = "credit-cards"
	CollCategories   = "categories"
	CollUsers        = "users"
	CollSessions     = "sessions"
	CollHabits       = "habits"
	CollDailyLogs    = "daily-logs"
	CollLists        = "lists"
	CollListItems    = "list-items"
)

// UserCollections are the owner-scoped collections a user may subscribe to,
// back up and restore.
var UserCollections = []string{
	CollTransactions,
	CollBills,
	CollGoals,
	CollCards,
	CollCategories,
	CollHabits,
	CollDailyLogs,
	CollLists,
	CollListItems,
}

// IsUserCollection reports whether name is one of UserCollections.
func IsUserCollection(name string) bool {
	for _, c := range UserCollections {
		if c == name {
			return true
		}
	}
	return false
}

// Category names the app writes on its own.
const (
	CategoryOther      = "Outros"
	CategoryInvestment = "Investimento"
	CategoryCreditCard = "Cartão de Crédito"
)

// TransactionType distinguishes money in from money out.
type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// Valid reports whether t is income or expense.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Transaction is a single ledger entry. Category references a Category by name.
type Transaction struct {
	ID          string          `json:"id,omitempty"`
	UserID      string          `json:"userId"`
	Description string          `json:"description"`
	Amount      float64         `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Date        civil.Date      `json:"date"`
	CreatedAt   Timestamp       `json:"createdAt"`
	CardID      string          `json:"cardId,omitempty"`
}

// Signed returns the amount with expenses negative.
func (t Transaction) Signed() float64 {
	if t.Type == Expense {
		return -t.Amount
	}
	return t.Amount
}

// Bill is a recurring expected expense. DueDate is the day of the month.
// PreviousAmount is the amount before the last edit that changed it.
type Bill struct {
	ID             string      `json:"id,omitempty"`
	UserID         string      `json:"userId"`
	Name           string      `json:"name"`
	Amount         float64     `json:"amount"`
	DueDate        int         `json:"dueDate"`
	Category       string      `json:"category"`
	Active         bool        `json:"active"`
	LastPaidDate   *civil.Date `json:"lastPaidDate,omitempty"`
	PreviousAmount *float64    `json:"previousAmount,omitempty"`
}

// Goal is a savings target funded through mirrored transactions.
type Goal struct {
	ID            string      `json:"id,omitempty"`
	UserID        string      `json:"userId"`
	Name          string      `json:"name"`
	Description   string      `json:"description,omitempty"`
	TargetAmount  float64     `json:"targetAmount"`
	CurrentAmount float64     `json:"currentAmount"`
	Deadline      *civil.Date `json:"deadline,omitempty"`
	Category      string      `json:"category,omitempty"`
	CreatedAt     Timestamp   `json:"createdAt"`
}

// DefaultCardColor is used when a card is created without a color.
const DefaultCardColor = "#1a1a1a"

// CreditCard tracks the open invoice separately from installments still to come.
type CreditCard struct {
	ID                  string  `json:"id,omitempty"`
	UserID              string  `json:"userId"`
	Name                string  `json:"name"`
	Limit               float64 `json:"limit"`
	CurrentInvoice      float64 `json:"currentInvoice"`
	InstallmentsBalance float64 `json:"installmentsBalance"`
	ClosingDay          int     `json:"closingDay"`
	DueDay              int     `json:"dueDay"`
	Color               string  `json:"color"`
	Brand               string  `json:"brand,omitempty"`
}

// Category is a user-defined label for transactions.
type Category struct {
	ID     string          `json:"id,omitempty"`
	UserID string          `json:"userId"`
	Name   string          `json:"name"`
	Type   TransactionType `json:"type"`
	Icon   string          `json:"icon"`
	Color  string          `json:"color"`
}

// UserProfile is the users document keyed by user id.
type UserProfile struct {
	ID           string          `json:"id,omitempty"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Avatar       string          `json:"avatar,omitempty"`
	Preferences  map[string]bool `json:"preferences,omitempty"`
	PasswordHash string          `json:"passwordHash,omitempty"`
	CreatedAt    Timestamp       `json:"createdAt"`
}

// User is the public view of a profile.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

// DefaultUserName is shown for profiles without a display name.
const DefaultUserName = "Usuário"

// MapUser converts a profile into its public view.
func MapUser(p *UserProfile) User {
	name := p.Name
	if name == "" {
		name = DefaultUserName
	}
	return User{ID: p.ID, Name: name, Email: p.Email, Avatar: p.Avatar}
}

// Session backs one issued auth token.
type Session struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"userId"`
	ExpiresAt Timestamp `json:"expiresAt"`
	Revoked   bool      `json:"revoked"`
}

// Habit is a daily routine; each completed day is recorded in CompletedDates.
type Habit struct {
	ID             string       `json:"id,omitempty"`
	UserID         string       `json:"userId"`
	Name           string       `json:"name"`
	Time           string       `json:"time,omitempty"`
	Icon           string       `json:"icon,omitempty"`
	XP             int          `json:"xp"`
	CompletedDates []civil.Date `json:"completedDates"`
	CreatedAt      Timestamp    `json:"createdAt"`
}

// DailyLog is one day of mood, energy, symptoms and journaling.
type DailyLog struct {
	ID       string         `json:"id,omitempty"`
	UserID   string         `json:"userId"`
	Date     civil.Date     `json:"date"`
	Mood     int            `json:"mood"`
	Energy   int            `json:"energy"`
	Symptoms map[string]int `json:"symptoms,omitempty"`
	Emotion  string         `json:"emotion,omitempty"`
	Journal  string         `json:"journal,omitempty"`
}

// ListKind selects how a list's items are interpreted.
type ListKind string

const (
	ShoppingList ListKind = "shopping"
	TaskList     ListKind = "task"
)

// List groups shopping or task items.
type List struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Kind      ListKind  `json:"kind"`
	CreatedAt Timestamp `json:"createdAt"`
}

// Priority of a task item.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ListItem is an entry on a List. Price and Quantity apply to shopping lists,
// Priority to task lists; Checked doubles as "completed" for tasks.
type ListItem struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"userId"`
	ListID    string    `json:"listId"`
	Name      string    `json:"name"`
	Price     float64   `json:"price,omitempty"`
	Quantity  int       `json:"quantity,omitempty"`
	Checked   bool      `json:"checked"`
	Priority  Priority  `json:"priority,omitempty"`
	CreatedAt Timestamp `json:"createdAt"`
}
