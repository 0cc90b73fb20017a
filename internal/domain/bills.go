package domain

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// RecentPaymentWindow is how many of the latest transactions are scanned
// when deciding whether a bill was paid this month.
const RecentPaymentWindow = 50

// paymentMarker is written by PaymentDescription and recognised by IsBillPaid.
const paymentMarker = "pgto"

// Validate checks the fields a bill cannot be saved without.
func (b Bill) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return Invalid("name", "is required")
	}
	if !(b.Amount > 0) {
		return Invalid("amount", "must be positive")
	}
	if b.DueDate < 1 || b.DueDate > 31 {
		return Invalid("dueDate", "must be a day between 1 and 31")
	}
	if strings.TrimSpace(b.Category) == "" {
		return Invalid("category", "is required")
	}
	return nil
}

// PaymentDescription labels the transaction recorded when paying bill for refMonth.
func PaymentDescription(b Bill, refMonth time.Month, loc Locale) string {
	return "Pgto " + b.Name + " - " + loc.MonthTitle(refMonth)
}

// IsBillPaid reports whether one of recent (newest first) pays b in today's
// month: same category, the month name in the description, and either the
// payment marker or the bill name. Only the first RecentPaymentWindow
// transactions are considered; matching ignores case and accents.
func IsBillPaid(b Bill, recent []Transaction, today civil.Date, loc Locale) bool {
	month := Fold(loc.MonthName(today.Month))
	name := Fold(b.Name)
	category := Fold(b.Category)

	if len(recent) > RecentPaymentWindow {
		recent = recent[:RecentPaymentWindow]
	}
	for _, tx := range recent {
		if Fold(tx.Category) != category {
			continue
		}
		desc := Fold(tx.Description)
		if !strings.Contains(desc, month) {
			continue
		}
		if strings.Contains(desc, paymentMarker) || (name != "" && strings.Contains(desc, name)) {
			return true
		}
	}
	return false
}

// PriceIncrease reports how much b went up since its previous amount, in
// absolute terms and as a percentage. ok is false when there is no previous
// amount or the price did not rise.
func PriceIncrease(b Bill) (delta, percent float64, ok bool) {
	if b.PreviousAmount == nil || *b.PreviousAmount <= 0 || b.Amount <= *b.PreviousAmount {
		return 0, 0, false
	}
	delta = b.Amount - *b.PreviousAmount
	return delta, delta / *b.PreviousAmount * 100, true
}

// MonthlyCommitment sums the amounts of active bills.
func MonthlyCommitment(bills []Bill) float64 {
	var total float64
	for _, b := range bills {
		if b.Active {
			total += b.Amount
		}
	}
	return total
}
