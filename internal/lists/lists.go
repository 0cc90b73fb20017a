// Package lists manages shopping and task lists and their items.
package lists

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/lifeledger/internal/docstore"
	"github.com/dvloznov/lifeledger/internal/domain"
)

// Service manages lists and list items.
type Service struct {
	docs docstore.Store
	now  func() time.Time
}

// NewService creates a lists service. A nil now uses time.Now.
func NewService(docs docstore.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{docs: docs, now: now}
}

// ItemPatch carries the fields of an item edit; nil fields are left alone.
type ItemPatch struct {
	Name     *string          `json:"name,omitempty"`
	Price    *float64         `json:"price,omitempty"`
	Quantity *int             `json:"quantity,omitempty"`
	Checked  *bool            `json:"checked,omitempty"`
	Priority *domain.Priority `json:"priority,omitempty"`
}

// Summary is a list with its item-derived figures. Shopping is set for
// shopping lists and Tasks for task lists.
type Summary struct {
	domain.List
	Items    int                    `json:"items"`
	Shopping *domain.ShoppingTotals `json:"shopping,omitempty"`
	Tasks    *domain.TaskCounts     `json:"tasks,omitempty"`
}

func listsQuery() docstore.Query {
	return docstore.Query{Collection: domain.CollLists, OrderBy: []docstore.Order{docstore.Desc("createdAt")}}
}

func itemsQuery(listID string) docstore.Query {
	return docstore.Query{
		Collection: domain.CollListItems,
		Filters:    []docstore.Filter{docstore.Where("listId", docstore.Eq, listID)},
		OrderBy:    []docstore.Order{docstore.Asc("createdAt")},
	}
}

// Lists returns userID's lists, newest first, with their summaries.
func (s *Service) Lists(ctx context.Context, userID string) ([]Summary, error) {
	lists, err := docstore.QueryOwned[domain.List](ctx, s.docs, userID, listsQuery())
	if err != nil {
		return nil, fmt.Errorf("Lists: %w", err)
	}
	out := make([]Summary, 0, len(lists))
	for _, l := range lists {
		items, err := s.items(ctx, userID, l.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, summarize(l, items))
	}
	return out, nil
}

func summarize(l domain.List, items []domain.ListItem) Summary {
	sum := Summary{List: l, Items: len(items)}
	switch l.Kind {
	case domain.ShoppingList:
		t := domain.TotalShopping(items)
		sum.Shopping = &t
	case domain.TaskList:
		c := domain.CountTasks(items)
		sum.Tasks = &c
	}
	return sum
}

// Create stores a new list.
func (s *Service) Create(ctx context.Context, userID string, l domain.List) (domain.List, error) {
	l.ID = ""
	l.UserID = userID
	l.CreatedAt = domain.NewTimestamp(s.now())
	if err := l.Validate(); err != nil {
		return domain.List{}, err
	}
	id, err := s.docs.Add(ctx, domain.CollLists, l)
	if err != nil {
		return domain.List{}, fmt.Errorf("CreateList: %w", err)
	}
	l.ID = id
	return l, nil
}

func (s *Service) list(ctx context.Context, userID, id string) (domain.List, error) {
	return docstore.GetOwned[domain.List](ctx, s.docs, domain.CollLists, userID, id)
}

// Delete removes a list together with its items in one batch.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.list(ctx, userID, id); err != nil {
		return fmt.Errorf("DeleteList: %w", err)
	}
	items, err := s.items(ctx, userID, id)
	if err != nil {
		return err
	}
	b := s.docs.Batch()
	for _, it := range items {
		b.Delete(domain.CollListItems, it.ID)
	}
	b.Delete(domain.CollLists, id)
	if err := b.Commit(ctx); err != nil {
		return fmt.Errorf("DeleteList: commit: %w", err)
	}
	return nil
}

// Items returns a list's items in the order they were added.
func (s *Service) Items(ctx context.Context, userID, listID string) ([]domain.ListItem, error) {
	if _, err := s.list(ctx, userID, listID); err != nil {
		return nil, fmt.Errorf("ListItems: %w", err)
	}
	return s.items(ctx, userID, listID)
}

func (s *Service) items(ctx context.Context, userID, listID string) ([]domain.ListItem, error) {
	items, err := docstore.QueryOwned[domain.ListItem](ctx, s.docs, userID, itemsQuery(listID))
	if err != nil {
		return nil, fmt.Errorf("ListItems: %w", err)
	}
	return items, nil
}

// AddItem appends an item to a list. Task items default to medium priority.
func (s *Service) AddItem(ctx context.Context, userID, listID string, it domain.ListItem) (domain.ListItem, error) {
	l, err := s.list(ctx, userID, listID)
	if err != nil {
		return domain.ListItem{}, fmt.Errorf("AddItem: %w", err)
	}
	it.ID = ""
	it.UserID = userID
	it.ListID = listID
	it.CreatedAt = domain.NewTimestamp(s.now())
	if l.Kind == domain.TaskList && it.Priority == "" {
		it.Priority = domain.PriorityMedium
	}
	if l.Kind == domain.ShoppingList && it.Quantity == 0 {
		it.Quantity = 1
	}
	if err := it.Validate(); err != nil {
		return domain.ListItem{}, err
	}
	id, err := s.docs.Add(ctx, domain.CollListItems, it)
	if err != nil {
		return domain.ListItem{}, fmt.Errorf("AddItem: %w", err)
	}
	it.ID = id
	return it, nil
}

func (s *Service) item(ctx context.Context, userID, listID, id string) (domain.ListItem, error) {
	it, err := docstore.GetOwned[domain.ListItem](ctx, s.docs, domain.CollListItems, userID, id)
	if err != nil {
		return domain.ListItem{}, err
	}
	if it.ListID != listID {
		return domain.ListItem{}, fmt.Errorf("item %s not on list %s: %w", id, listID, docstore.ErrNotFound)
	}
	return it, nil
}

// UpdateItem applies patch to one item.
func (s *Service) UpdateItem(ctx context.Context, userID, listID, id string, patch ItemPatch) (domain.ListItem, error) {
	it, err := s.item(ctx, userID, listID, id)
	if err != nil {
		return domain.ListItem{}, fmt.Errorf("UpdateItem: %w", err)
	}
	if patch.Name != nil {
		it.Name = *patch.Name
	}
	if patch.Price != nil {
		it.Price = *patch.Price
	}
	if patch.Quantity != nil {
		it.Quantity = *patch.Quantity
	}
	if patch.Checked != nil {
		it.Checked = *patch.Checked
	}
	if patch.Priority != nil {
		it.Priority = *patch.Priority
	}
	if err := it.Validate(); err != nil {
		return domain.ListItem{}, err
	}
	if err := s.docs.Set(ctx, domain.CollListItems, id, it, false); err != nil {
		return domain.ListItem{}, fmt.Errorf("UpdateItem: %w", err)
	}
	return it, nil
}

// ToggleItem flips an item's checked (or completed) flag.
func (s *Service) ToggleItem(ctx context.Context, userID, listID, id string) (domain.ListItem, error) {
	it, err := s.item(ctx, userID, listID, id)
	if err != nil {
		return domain.ListItem{}, fmt.Errorf("ToggleItem: %w", err)
	}
	it.Checked = !it.Checked
	if err := s.docs.Update(ctx, domain.CollListItems, id, map[string]any{"checked": it.Checked}); err != nil {
		return domain.ListItem{}, fmt.Errorf("ToggleItem: %w", err)
	}
	return it, nil
}

// DeleteItem removes one item.
func (s *Service) DeleteItem(ctx context.Context, userID, listID, id string) error {
	if _, err := s.item(ctx, userID, listID, id); err != nil {
		return fmt.Errorf("DeleteItem: %w", err)
	}
	if err := s.docs.Delete(ctx, domain.CollListItems, id); err != nil {
		return fmt.Errorf("DeleteItem: %w", err)
	}
	return nil
}

// Subscribe streams userID's lists, newest first.
func (s *Service) Subscribe(ctx context.Context, userID string, fn func([]domain.List)) (func(), error) {
	return docstore.SubscribeOwned(ctx, s.docs, userID, listsQuery(), fn)
}

// SubscribeItems streams userID's items across all lists.
func (s *Service) SubscribeItems(ctx context.Context, userID string, fn func([]domain.ListItem)) (func(), error) {
	q := docstore.Query{Collection: domain.CollListItems, OrderBy: []docstore.Order{docstore.Asc("createdAt")}}
	return docstore.SubscribeOwned(ctx, s.docs, userID, q, fn)
}
