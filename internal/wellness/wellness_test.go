package wellness

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/lifeledger/internal/docstore"
	"github.com/dvloznov/lifeledger/internal/docstore/inmemory"
	"github.com/dvloznov/lifeledger/internal/domain"
	"github.com/google/go-cmp/cmp"
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func newTestServices(t *testing.T) (*Services, docstore.Store) {
	t.Helper()
	store := inmemory.NewStore()
	t.Cleanup(func() { _ = store.Close() })
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	return NewServices(store, WithClock(func() time.Time { return now })), store
}

func TestHabitToggleAndGamification(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()

	h, err := svc.Habits.Add(ctx, "u1", domain.Habit{Name: "Ler"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if h.XP != domain.DefaultHabitXP {
		t.Errorf("XP = %d, want default", h.XP)
	}
	if _, err := svc.Habits.Add(ctx, "u1", domain.Habit{Name: "Correr", XP: 50}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	for _, d := range []civil.Date{date(2024, 3, 13), date(2024, 3, 14), {}} {
		if _, err := svc.Habits.Toggle(ctx, "u1", h.ID, d); err != nil {
			t.Fatalf("Toggle(%v): %v", d, err)
		}
	}

	list, err := svc.Habits.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len(List) = %d, want 2", len(list))
	}
	var ler domain.HabitStatus
	for _, s := range list {
		if s.ID == h.ID {
			ler = s
		}
	}
	if !ler.CompletedToday || ler.Streak != 3 {
		t.Errorf("status = %+v, want completed today with streak 3", ler)
	}

	g, err := svc.Habits.Gamification(ctx, "u1")
	if err != nil {
		t.Fatalf("Gamification: %v", err)
	}
	if g.TotalXP != 30 || g.Level != 1 || g.Streak != 3 || g.Score != 50 {
		t.Errorf("unexpected gamification: %+v", g)
	}

	// Toggling today again undoes it; the streak falls back to yesterday's.
	st, err := svc.Habits.Toggle(ctx, "u1", h.ID, civil.Date{})
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if st.CompletedToday || st.Streak != 2 {
		t.Errorf("status after untoggle = %+v", st)
	}

	if _, err := svc.Habits.Toggle(ctx, "intruder", h.ID, civil.Date{}); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("Toggle by other user error = %v, want ErrNotFound", err)
	}
}

func TestJournalUpsertAndInsights(t *testing.T) {
	svc, store := newTestServices(t)
	ctx := context.Background()

	first, err := svc.Journal.Save(ctx, "u1", domain.DailyLog{Mood: 3, Energy: 4, Emotion: "stress", Date: date(2024, 3, 10)})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Saving the same day again replaces the entry.
	if _, err := svc.Journal.Save(ctx, "u1", domain.DailyLog{
		Mood: 2, Energy: 4, Emotion: "stress", Date: date(2024, 3, 10),
		Symptoms: map[string]int{"headache": 7, "fatigue": 3},
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := svc.Journal.Save(ctx, "u1", domain.DailyLog{Mood: 8, Energy: 8, Emotion: "joy", Date: date(2024, 3, 11)}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := svc.Journal.Save(ctx, "u1", domain.DailyLog{Mood: 11, Energy: 1}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("out of range mood error = %v, want ErrValidation", err)
	}

	logs, err := svc.Journal.List(ctx, "u1", Range{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(logs) != 2 || logs[0].ID != first.ID || logs[0].Mood != 2 {
		t.Fatalf("unexpected logs: %+v", logs)
	}

	timeline, err := svc.Journal.Timeline(ctx, "u1", Range{From: date(2024, 3, 10), To: date(2024, 3, 10)})
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	want := []domain.SeverityPoint{{Date: date(2024, 3, 10), Severity: 7, Mood: 2, Energy: 4}}
	if diff := cmp.Diff(want, timeline); diff != "" {
		t.Errorf("timeline mismatch (-want +got):\n%s", diff)
	}

	for _, tx := range []domain.Transaction{
		{UserID: "u1", Description: "a", Amount: 300, Type: domain.Expense, Category: "A", Date: date(2024, 3, 10)},
		{UserID: "u1", Description: "b", Amount: 100, Type: domain.Expense, Category: "A", Date: date(2024, 3, 11)},
		{UserID: "u1", Description: "c", Amount: 999, Type: domain.Income, Category: "A", Date: date(2024, 3, 11)},
	} {
		if _, err := store.Add(ctx, domain.CollTransactions, tx); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	insights, err := svc.Journal.Insights(ctx, "u1")
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}
	wantInsights := []domain.EmotionInsight{
		{Emotion: "joy", Days: 1, AvgSpend: 100, DiffPercent: -50},
		{Emotion: "stress", Days: 1, AvgSpend: 300, DiffPercent: 50},
	}
	if diff := cmp.Diff(wantInsights, insights); diff != "" {
		t.Errorf("insights mismatch (-want +got):\n%s", diff)
	}

	if err := svc.Journal.Delete(ctx, "u1", date(2024, 3, 11)); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Journal.Get(ctx, "u1", date(2024, 3, 11)); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("Get after delete error = %v, want ErrNotFound", err)
	}
}
