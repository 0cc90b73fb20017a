// Package users reads and edits user profiles and preferences.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/lifeledger/internal/docstore"
	"github.com/dvloznov/lifeledger/internal/domain"
)

// Service manages the users collection.
type Service struct {
	docs docstore.Store
}

// NewService creates a users service.
func NewService(docs docstore.Store) *Service {
	return &Service{docs: docs}
}

// GetUserData returns userID's profile without its password hash, or nil when
// the user has no profile.
func (s *Service) GetUserData(ctx context.Context, userID string) (*domain.UserProfile, error) {
	doc, err := s.docs.Get(ctx, domain.CollUsers, userID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetUserData: %w", err)
	}
	var p domain.UserProfile
	if err := docstore.Decode(doc, &p); err != nil {
		return nil, fmt.Errorf("GetUserData: %w", err)
	}
	p.PasswordHash = ""
	return &p, nil
}

// UpdatePreferences merges prefs into the stored preferences.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, prefs map[string]bool) error {
	if userID == "" {
		return domain.Invalid("userId", "is required")
	}
	if len(prefs) == 0 {
		return nil
	}
	if err := s.docs.Set(ctx, domain.CollUsers, userID, map[string]any{"preferences": prefs}, true); err != nil {
		return fmt.Errorf("UpdatePreferences: %w", err)
	}
	return nil
}

// UpdateProfile changes the display name.
func (s *Service) UpdateProfile(ctx context.Context, userID, displayName string) (domain.User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return domain.User{}, domain.Invalid("name", "is required")
	}
	if err := s.docs.Update(ctx, domain.CollUsers, userID, map[string]any{"name": displayName}); err != nil {
		return domain.User{}, fmt.Errorf("UpdateProfile: %w", err)
	}
	p, err := s.GetUserData(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if p == nil {
		return domain.User{}, fmt.Errorf("UpdateProfile: %w", docstore.ErrNotFound)
	}
	return domain.MapUser(p), nil
}
