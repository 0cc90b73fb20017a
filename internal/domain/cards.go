package domain

import (
	"fmt"
	"math"
	"time"

	"cloud.google.com/go/civil"
)

// AnticipatedSuffix marks a transaction whose installment was paid early.
const AnticipatedSuffix = " (Adiantada)"

// AddMonths moves d by n months, clamping the day to the target month's end
// (31 Jan + 1 month is 28 or 29 Feb).
func AddMonths(d civil.Date, n int) civil.Date {
	total := d.Year*12 + int(d.Month) - 1 + n
	year, month := total/12, total%12
	if month < 0 {
		month += 12
		year--
	}
	out := civil.Date{Year: year, Month: time.Month(month + 1), Day: d.Day}
	if last := DaysIn(out.Year, out.Month); out.Day > last {
		out.Day = last
	}
	return out
}

// InstallmentDescription labels installment i (zero-based) of n.
func InstallmentDescription(desc string, i, n int, cardName string) string {
	if n <= 1 {
		return fmt.Sprintf("%s - Cartão: %s", desc, cardName)
	}
	return fmt.Sprintf("%s (%d/%d) - Cartão: %s", desc, i+1, n, cardName)
}

// InvoicePaymentDescription labels the transaction recorded for an invoice payment.
func InvoicePaymentDescription(cardName string) string {
	return "Fatura " + cardName
}

// CardExpense is a purchase split into equal installments.
type CardExpense struct {
	Description  string     `json:"description"`
	Total        float64    `json:"total"`
	Installments int        `json:"installments"`
	Category     string     `json:"category,omitempty"`
	Date         civil.Date `json:"date"`
}

// Validate checks the purchase is positive and has at least one installment.
func (e CardExpense) Validate() error {
	if e.Description == "" {
		return Invalid("description", "is required")
	}
	if !(e.Total > 0) {
		return Invalid("total", "must be positive")
	}
	if e.Installments < 1 {
		return Invalid("installments", "must be at least 1")
	}
	if !e.Date.IsValid() {
		return Invalid("date", "is invalid")
	}
	return nil
}

// ExpensePlan is the effect of a CardExpense on a card and the ledger.
type ExpensePlan struct {
	Installment       float64
	InvoiceDelta      float64
	InstallmentsDelta float64
	Transactions      []Transaction
}

// PlanExpense splits e across installments. The first installment lands on the
// current invoice and the rest on the installments balance; one expense
// transaction is produced per month starting at e.Date.
func PlanExpense(card CreditCard, e CardExpense) ExpensePlan {
	n := e.Installments
	if n < 1 {
		n = 1
	}
	inst := e.Total / float64(n)
	category := e.Category
	if category == "" {
		category = CategoryOther
	}

	plan := ExpensePlan{
		Installment:       inst,
		InvoiceDelta:      inst,
		InstallmentsDelta: e.Total - inst,
		Transactions:      make([]Transaction, 0, n),
	}
	for i := 0; i < n; i++ {
		plan.Transactions = append(plan.Transactions, Transaction{
			UserID:      card.UserID,
			Description: InstallmentDescription(e.Description, i, n, card.Name),
			Amount:      inst,
			Type:        Expense,
			Category:    category,
			Date:        AddMonths(e.Date, i),
			CardID:      card.ID,
		})
	}
	return plan
}

// ApplyPayment lowers the invoice by amount, never below zero.
func ApplyPayment(card CreditCard, amount float64) CreditCard {
	card.CurrentInvoice = math.Max(0, card.CurrentInvoice-amount)
	return card
}

// ApplyAnticipation moves amount from future installments onto the current invoice.
func ApplyAnticipation(card CreditCard, amount float64) CreditCard {
	card.CurrentInvoice += amount
	card.InstallmentsBalance = math.Max(0, card.InstallmentsBalance-amount)
	return card
}

// CardUsage summarises how much of the limit is committed.
type CardUsage struct {
	Used        float64 `json:"used"`
	UsedPercent float64 `json:"usedPercent"`
	Available   float64 `json:"available"`
}

// Usage counts both the open invoice and future installments against the limit.
func Usage(card CreditCard) CardUsage {
	used := card.CurrentInvoice + card.InstallmentsBalance
	u := CardUsage{Used: used, Available: math.Max(0, card.Limit-used)}
	if card.Limit > 0 {
		u.UsedPercent = math.Min(100, used/card.Limit*100)
	}
	return u
}

// Invoice lists a card's transactions for one calendar month.
type Invoice struct {
	CardID       string        `json:"cardId"`
	Month        civil.Date    `json:"month"`
	Transactions []Transaction `json:"transactions"`
	Total        float64       `json:"total"`
	Future       bool          `json:"future"`
}

// InvoiceFor builds the invoice for month from txs. Future is set when month
// starts after today's month.
func InvoiceFor(txs []Transaction, cardID string, month, today civil.Date) Invoice {
	inv := Invoice{CardID: cardID, Month: MonthStart(month), Transactions: []Transaction{}}
	for _, tx := range txs {
		if tx.CardID != cardID || !SameMonth(tx.Date, month) {
			continue
		}
		inv.Transactions = append(inv.Transactions, tx)
		inv.Total += tx.Amount
	}
	inv.Future = MonthStart(month).After(MonthStart(today))
	return inv
}
