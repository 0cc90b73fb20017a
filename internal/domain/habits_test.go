package domain

import (
	"testing"

	"cloud.google.com/go/civil"
)

func days(end civil.Date, n int) []civil.Date {
	var out []civil.Date
	for i := 0; i < n; i++ {
		out = append(out, end.AddDays(-i))
	}
	return out
}

func TestHabitStreak(t *testing.T) {
	today := date(2024, 6, 10)

	tests := []struct {
		name  string
		dates []civil.Date
		want  int
	}{
		{"none", nil, 0},
		{"today only", []civil.Date{today}, 1},
		{"ending yesterday", days(today.AddDays(-1), 3), 3},
		{"broken", []civil.Date{today, today.AddDays(-2)}, 1},
		{"stale", []civil.Date{today.AddDays(-3)}, 0},
		{"week", days(today, 7), 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Habit{CompletedDates: tt.dates}
			if got := h.Streak(today); got != tt.want {
				t.Errorf("Streak() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHabitToggle(t *testing.T) {
	today := date(2024, 6, 10)
	h := Habit{Name: "Ler", CompletedDates: []civil.Date{today.AddDays(-1)}}

	h = h.Toggle(today)
	if !h.DoneOn(today) || h.Streak(today) != 2 {
		t.Fatalf("after toggle on: %+v", h)
	}

	h = h.Toggle(today)
	if h.DoneOn(today) || len(h.CompletedDates) != 1 {
		t.Fatalf("after toggle off: %+v", h)
	}
}

func TestGamify(t *testing.T) {
	today := date(2024, 6, 10)
	habits := []Habit{
		{Name: "Meditar", XP: 50, CompletedDates: days(today, 7)},
		{Name: "Correr", XP: 20, CompletedDates: days(today, 7)},
	}

	g := Gamify(habits, today)

	if g.TotalXP != 490 {
		t.Errorf("TotalXP = %d, want 490", g.TotalXP)
	}
	if g.Level != 1 || g.CurrentXP != 490 || g.NextLevelXP != XPPerLevel {
		t.Errorf("level = %d xp %d/%d", g.Level, g.CurrentXP, g.NextLevelXP)
	}
	if g.Streak != 7 {
		t.Errorf("Streak = %d, want 7", g.Streak)
	}
	if g.Score != 100 {
		t.Errorf("Score = %v, want 100", g.Score)
	}

	unlocked := map[string]bool{}
	for _, a := range g.Achievements {
		unlocked[a.ID] = a.Unlocked
	}
	for id, want := range map[string]bool{
		"first-step":       true,
		"week-warrior":     true,
		"consistency-king": false,
		"first-month":      false,
		"level-10":         false,
		"perfect-week":     true,
	} {
		if unlocked[id] != want {
			t.Errorf("achievement %s unlocked = %v, want %v", id, unlocked[id], want)
		}
	}
}

func TestGamifyLevelsAndDefaultXP(t *testing.T) {
	today := date(2024, 6, 10)
	habits := []Habit{{Name: "Água", CompletedDates: days(today, 60)}}

	g := Gamify(habits, today)

	if g.TotalXP != 60*DefaultHabitXP {
		t.Errorf("TotalXP = %d", g.TotalXP)
	}
	if g.Level != 2 || g.CurrentXP != 100 {
		t.Errorf("Level = %d CurrentXP = %d, want 2 and 100", g.Level, g.CurrentXP)
	}
}

func TestGamifyEmpty(t *testing.T) {
	g := Gamify(nil, date(2024, 1, 1))
	if g.Level != 1 || g.Score != 0 || g.Streak != 0 {
		t.Errorf("empty gamification = %+v", g)
	}
}
