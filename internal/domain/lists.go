package domain

import "strings"

// Validate checks the list has a name and a known kind.
func (l List) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return Invalid("name", "is required")
	}
	if l.Kind != ShoppingList && l.Kind != TaskList {
		return Invalid("kind", "must be shopping or task")
	}
	return nil
}

// Validate checks the item has a name, sane numbers and a known priority.
func (i ListItem) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return Invalid("name", "is required")
	}
	if i.Price < 0 {
		return Invalid("price", "must not be negative")
	}
	if i.Quantity < 0 {
		return Invalid("quantity", "must not be negative")
	}
	switch i.Priority {
	case "", PriorityHigh, PriorityMedium, PriorityLow:
	default:
		return Invalid("priority", "must be high, medium or low")
	}
	return nil
}

// ShoppingTotals splits a shopping list's value into what is still to buy and
// what is already in the cart.
type ShoppingTotals struct {
	Estimated float64 `json:"estimated"`
	InCart    float64 `json:"inCart"`
}

// TotalShopping prices each item as price times quantity.
func TotalShopping(items []ListItem) ShoppingTotals {
	var t ShoppingTotals
	for _, it := range items {
		v := it.Price * float64(it.Quantity)
		if it.Checked {
			t.InCart += v
		} else {
			t.Estimated += v
		}
	}
	return t
}

// TaskCounts summarises a task list.
type TaskCounts struct {
	Total      int              `json:"total"`
	Completed  int              `json:"completed"`
	Pending    int              `json:"pending"`
	ByPriority map[Priority]int `json:"byPriority"`
}

// CountTasks counts completed items and pending items per priority.
func CountTasks(items []ListItem) TaskCounts {
	c := TaskCounts{ByPriority: map[Priority]int{}}
	for _, it := range items {
		c.Total++
		if it.Checked {
			c.Completed++
			continue
		}
		c.Pending++
		p := it.Priority
		if p == "" {
			p = PriorityMedium
		}
		c.ByPriority[p]++
	}
	return c
}
