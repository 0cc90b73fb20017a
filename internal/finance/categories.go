package finance

import (
	"context"
	"fmt"

	"github.com/dvloznov/lifeledger/internal/docstore"
	"github.com/dvloznov/lifeledger/internal/domain"
	"github.com/dvloznov/lifeledger/internal/logger"
	"github.com/google/uuid"
)

// CategoryService manages user-defined transaction categories.
type CategoryService struct {
	*base
}

// CategoryPatch carries the fields of an edit; nil fields are left alone.
type CategoryPatch struct {
	Name  *string                 `json:"name,omitempty"`
	Type  *domain.TransactionType `json:"type,omitempty"`
	Icon  *string                 `json:"icon,omitempty"`
	Color *string                 `json:"color,omitempty"`
}

func byName() []docstore.Order {
	return []docstore.Order{docstore.Asc("name")}
}

// List returns userID's categories by name, optionally only those of type t.
func (s *CategoryService) List(ctx context.Context, userID string, t domain.TransactionType) ([]domain.Category, error) {
	q := docstore.Query{Collection: domain.CollCategories, OrderBy: byName()}
	if t != "" {
		q.Filters = append(q.Filters, docstore.Where("type", docstore.Eq, t))
	}
	cats, err := docstore.QueryOwned[domain.Category](ctx, s.docs, userID, q)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: %w", err)
	}
	return cats, nil
}

// Add stores a category. Names are unique per user and type, ignoring case
// and accents.
func (s *CategoryService) Add(ctx context.Context, userID string, c domain.Category) (domain.Category, error) {
	c.ID = ""
	c.UserID = userID
	if c.Icon == "" {
		c.Icon = domain.DefaultIcon(c.Type)
	}
	if err := c.Validate(); err != nil {
		return domain.Category{}, err
	}
	if err := s.checkUnique(ctx, userID, c); err != nil {
		return domain.Category{}, err
	}

	id, err := s.docs.Add(ctx, domain.CollCategories, c)
	if err != nil {
		return domain.Category{}, fmt.Errorf("AddCategory: %w", err)
	}
	c.ID = id
	return c, nil
}

func (s *CategoryService) checkUnique(ctx context.Context, userID string, c domain.Category) error {
	existing, err := s.List(ctx, userID, c.Type)
	if err != nil {
		return err
	}
	name := domain.Fold(c.Name)
	for _, e := range existing {
		if e.ID != c.ID && domain.Fold(e.Name) == name {
			return domain.Invalid("name", "already exists")
		}
	}
	return nil
}

// Update applies patch to one category.
func (s *CategoryService) Update(ctx context.Context, userID, id string, patch CategoryPatch) (domain.Category, error) {
	c, err := docstore.GetOwned[domain.Category](ctx, s.docs, domain.CollCategories, userID, id)
	if err != nil {
		return domain.Category{}, fmt.Errorf("UpdateCategory: %w", err)
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Type != nil {
		c.Type = *patch.Type
	}
	if patch.Icon != nil {
		c.Icon = *patch.Icon
	}
	if patch.Color != nil {
		c.Color = *patch.Color
	}
	if err := c.Validate(); err != nil {
		return domain.Category{}, err
	}
	if err := s.checkUnique(ctx, userID, c); err != nil {
		return domain.Category{}, err
	}
	if err := s.docs.Set(ctx, domain.CollCategories, id, c, false); err != nil {
		return domain.Category{}, fmt.Errorf("UpdateCategory: %w", err)
	}
	return c, nil
}

// Delete removes a category. Transactions keep the name they were given.
func (s *CategoryService) Delete(ctx context.Context, userID, id string) error {
	if _, err := docstore.GetOwned[domain.Category](ctx, s.docs, domain.CollCategories, userID, id); err != nil {
		return fmt.Errorf("DeleteCategory: %w", err)
	}
	if err := s.docs.Delete(ctx, domain.CollCategories, id); err != nil {
		return fmt.Errorf("DeleteCategory: %w", err)
	}
	return nil
}

// SeedDefaults adds whichever default categories userID does not have yet.
// Seeded documents get ids derived from the user and name, so concurrent
// calls converge on the same set.
func (s *CategoryService) SeedDefaults(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, domain.Invalid("userId", "is required")
	}
	existing, err := s.List(ctx, userID, "")
	if err != nil {
		return 0, fmt.Errorf("SeedDefaults: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[string(c.Type)+"/"+domain.Fold(c.Name)] = true
	}

	b := s.docs.Batch()
	added := 0
	for _, c := range domain.DefaultCategories {
		if have[string(c.Type)+"/"+domain.Fold(c.Name)] {
			continue
		}
		c.UserID = userID
		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(userID+"/"+string(c.Type)+"/"+c.Name)).String()
		b.Set(domain.CollCategories, id, c, false)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := b.Commit(ctx); err != nil {
		return 0, fmt.Errorf("SeedDefaults: commit: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().Str("user_id", userID).Int("count", added).Msg("Seeded default categories")
	return added, nil
}

// Subscribe streams userID's categories by name.
func (s *CategoryService) Subscribe(ctx context.Context, userID string, fn func([]domain.Category)) (func(), error) {
	q := docstore.Query{Collection: domain.CollCategories, OrderBy: byName()}
	return docstore.SubscribeOwned(ctx, s.docs, userID, q, fn)
}
