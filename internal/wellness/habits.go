package wellness

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/lifeledger/internal/docstore"
	"github.com/dvloznov/lifeledger/internal/domain"
	"github.com/dvloznov/lifeledger/internal/logger"
)

// HabitService manages habits and their completion history.
type HabitService struct {
	docs docstore.Store
	clock
}

// HabitPatch carries the fields of an edit; nil fields are left alone.
type HabitPatch struct {
	Name *string `json:"name,omitempty"`
	Time *string `json:"time,omitempty"`
	Icon *string `json:"icon,omitempty"`
	XP   *int    `json:"xp,omitempty"`
}

func habitsQuery() docstore.Query {
	return docstore.Query{Collection: domain.CollHabits, OrderBy: []docstore.Order{docstore.Asc("createdAt")}}
}

// List returns userID's habits with today's status, oldest first.
func (s *HabitService) List(ctx context.Context, userID string) ([]domain.HabitStatus, error) {
	habits, err := s.habits(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := s.today()
	out := make([]domain.HabitStatus, len(habits))
	for i, h := range habits {
		out[i] = domain.StatusOf(h, today)
	}
	return out, nil
}

func (s *HabitService) habits(ctx context.Context, userID string) ([]domain.Habit, error) {
	habits, err := docstore.QueryOwned[domain.Habit](ctx, s.docs, userID, habitsQuery())
	if err != nil {
		return nil, fmt.Errorf("ListHabits: %w", err)
	}
	return habits, nil
}

// Add stores a new habit with no completions.
func (s *HabitService) Add(ctx context.Context, userID string, h domain.Habit) (domain.Habit, error) {
	h.ID = ""
	h.UserID = userID
	h.CompletedDates = []civil.Date{}
	h.CreatedAt = s.stamp()
	if h.XP == 0 {
		h.XP = domain.DefaultHabitXP
	}
	if err := h.Validate(); err != nil {
		return domain.Habit{}, err
	}
	id, err := s.docs.Add(ctx, domain.CollHabits, h)
	if err != nil {
		return domain.Habit{}, fmt.Errorf("AddHabit: %w", err)
	}
	h.ID = id
	return h, nil
}

func (s *HabitService) get(ctx context.Context, userID, id string) (domain.Habit, error) {
	return docstore.GetOwned[domain.Habit](ctx, s.docs, domain.CollHabits, userID, id)
}

// Update applies patch to one habit.
func (s *HabitService) Update(ctx context.Context, userID, id string, patch HabitPatch) (domain.Habit, error) {
	h, err := s.get(ctx, userID, id)
	if err != nil {
		return domain.Habit{}, fmt.Errorf("UpdateHabit: %w", err)
	}
	if patch.Name != nil {
		h.Name = *patch.Name
	}
	if patch.Time != nil {
		h.Time = *patch.Time
	}
	if patch.Icon != nil {
		h.Icon = *patch.Icon
	}
	if patch.XP != nil {
		h.XP = *patch.XP
	}
	if err := h.Validate(); err != nil {
		return domain.Habit{}, err
	}
	if err := s.docs.Set(ctx, domain.CollHabits, id, h, false); err != nil {
		return domain.Habit{}, fmt.Errorf("UpdateHabit: %w", err)
	}
	return h, nil
}

// Delete removes a habit and its history.
func (s *HabitService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.get(ctx, userID, id); err != nil {
		return fmt.Errorf("DeleteHabit: %w", err)
	}
	if err := s.docs.Delete(ctx, domain.CollHabits, id); err != nil {
		return fmt.Errorf("DeleteHabit: %w", err)
	}
	return nil
}

// Toggle marks the habit done on day, or undone if it already was. A zero
// day means today.
func (s *HabitService) Toggle(ctx context.Context, userID, id string, day civil.Date) (domain.HabitStatus, error) {
	if day.IsZero() {
		day = s.today()
	}
	if !day.IsValid() {
		return domain.HabitStatus{}, domain.Invalid("date", "is invalid")
	}
	h, err := s.get(ctx, userID, id)
	if err != nil {
		return domain.HabitStatus{}, fmt.Errorf("ToggleHabit: %w", err)
	}
	h = h.Toggle(day)
	if err := s.docs.Update(ctx, domain.CollHabits, id, map[string]any{"completedDates": h.CompletedDates}); err != nil {
		return domain.HabitStatus{}, fmt.Errorf("ToggleHabit: %w", err)
	}

	status := domain.StatusOf(h, s.today())
	log := logger.FromContext(ctx)
	log.Debug().
		Str("habit_id", id).
		Bool("done", h.DoneOn(day)).
		Int("streak", status.Streak).
		Msg("Habit toggled")
	return status, nil
}

// Gamification returns userID's XP, level, streak, score and achievements.
func (s *HabitService) Gamification(ctx context.Context, userID string) (domain.Gamification, error) {
	habits, err := s.habits(ctx, userID)
	if err != nil {
		return domain.Gamification{}, err
	}
	return domain.Gamify(habits, s.today()), nil
}

// Subscribe streams userID's habits, oldest first.
func (s *HabitService) Subscribe(ctx context.Context, userID string, fn func([]domain.Habit)) (func(), error) {
	return docstore.SubscribeOwned(ctx, s.docs, userID, habitsQuery(), fn)
}
