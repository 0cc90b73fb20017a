package domain

import (
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"
)

// Totals sums a set of transactions.
type Totals struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Balance float64 `json:"balance"`
}

// Sum totals income and expense; Balance is income minus expense.
func Sum(txs []Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		switch tx.Type {
		case Income:
			t.Income += tx.Amount
		case Expense:
			t.Expense += tx.Amount
		}
	}
	t.Balance = t.Income - t.Expense
	return t
}

// MonthStart returns the first day of d's month.
func MonthStart(d civil.Date) civil.Date {
	return civil.Date{Year: d.Year, Month: d.Month, Day: 1}
}

// MonthEnd returns the last day of d's month.
func MonthEnd(d civil.Date) civil.Date {
	return civil.Date{Year: d.Year, Month: d.Month, Day: DaysIn(d.Year, d.Month)}
}

// DaysIn returns the number of days in the month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// SameMonth reports whether a and b fall in the same calendar month.
func SameMonth(a, b civil.Date) bool {
	return a.Year == b.Year && a.Month == b.Month
}

// InMonth keeps the transactions dated in month's calendar month.
func InMonth(txs []Transaction, month civil.Date) []Transaction {
	var out []Transaction
	for _, tx := range txs {
		if SameMonth(tx.Date, month) {
			out = append(out, tx)
		}
	}
	return out
}

// CategoryTotal is the expense total for one category.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Percent  float64 `json:"percent"`
}

// SpendingByCategory groups expenses by category, largest first.
func SpendingByCategory(txs []Transaction) []CategoryTotal {
	sums := make(map[string]float64)
	var all float64
	for _, tx := range txs {
		if tx.Type != Expense {
			continue
		}
		sums[tx.Category] += tx.Amount
		all += tx.Amount
	}

	out := make([]CategoryTotal, 0, len(sums))
	for name, total := range sums {
		ct := CategoryTotal{Category: name, Total: total}
		if all > 0 {
			ct.Percent = total / all * 100
		}
		out = append(out, ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// PercentChange compares cur against prev. A zero prev yields 0 when cur is
// also zero and 100 otherwise.
func PercentChange(cur, prev float64) float64 {
	if prev == 0 {
		if cur == 0 {
			return 0
		}
		return 100
	}
	return (cur - prev) / abs(prev) * 100
}

// TrendPoint is the running balance at the end of a month.
type TrendPoint struct {
	Month   string  `json:"month"`
	Balance float64 `json:"balance"`
}

// BalanceTrend returns the running balance at the end of each of the n months
// ending with asOf's month, oldest first.
func BalanceTrend(txs []Transaction, asOf civil.Date, n int) []TrendPoint {
	if n <= 0 {
		return nil
	}
	points := make([]TrendPoint, n)
	ends := make([]civil.Date, n)
	for i := 0; i < n; i++ {
		m := AddMonths(MonthStart(asOf), i-(n-1))
		ends[i] = MonthEnd(m)
		points[i].Month = fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
	}
	for _, tx := range txs {
		for i := range ends {
			if !tx.Date.After(ends[i]) {
				points[i].Balance += tx.Signed()
			}
		}
	}
	return points
}

// BurnRate projects month-end spending from the spending so far.
type BurnRate struct {
	Spent         float64 `json:"spent"`
	Income        float64 `json:"income"`
	Day           int     `json:"day"`
	DaysInMonth   int     `json:"daysInMonth"`
	DailyRate     float64 `json:"dailyRate"`
	Projected     float64 `json:"projected"`
	ExceedsIncome bool    `json:"exceedsIncome"`
}

// ProjectBurnRate uses today's day of month as the elapsed period.
func ProjectBurnRate(spent, income float64, today civil.Date) BurnRate {
	days := DaysIn(today.Year, today.Month)
	b := BurnRate{Spent: spent, Income: income, Day: today.Day, DaysInMonth: days}
	if today.Day > 0 {
		b.DailyRate = spent / float64(today.Day)
	}
	b.Projected = spent + b.DailyRate*float64(days-today.Day)
	b.ExceedsIncome = b.Projected > income
	return b
}

// PerPageOptions are the page sizes offered to clients.
var PerPageOptions = []int{5, 10, 20, 50}

// DefaultPerPage is used when a request names no valid page size.
const DefaultPerPage = 10

// Page describes one slice of a paginated result.
type Page struct {
	Page    int    `json:"page"`
	PerPage int    `json:"perPage"`
	Pages   int    `json:"pages"`
	Total   int    `json:"total"`
	From    int    `json:"from"`
	To      int    `json:"to"`
	Label   string `json:"label"`
}

// Paginate clamps page into range and computes the 1-based From/To bounds.
// perPage values outside PerPageOptions fall back to DefaultPerPage.
func Paginate(total, page, perPage int, loc Locale) Page {
	valid := false
	for _, o := range PerPageOptions {
		if o == perPage {
			valid = true
			break
		}
	}
	if !valid {
		perPage = DefaultPerPage
	}
	pages := (total + perPage - 1) / perPage
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	p := Page{Page: page, PerPage: perPage, Pages: pages, Total: total}
	if total > 0 {
		p.From = (page-1)*perPage + 1
		p.To = p.From + perPage - 1
		if p.To > total {
			p.To = total
		}
	}
	p.Label = loc.ShowingLabel(p.From, p.To, total)
	return p
}

// Slice returns the elements of a slice of length Total covered by the page.
func (p Page) Slice(n int) (start, end int) {
	if p.Total == 0 || n == 0 {
		return 0, 0
	}
	start, end = p.From-1, p.To
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}
	return start, end
}

// Today converts a time to its civil date in the time's location.
func Today(t time.Time) civil.Date {
	return civil.DateOf(t)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
