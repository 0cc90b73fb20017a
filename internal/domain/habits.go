package domain

import (
	"sort"
	"strings"

	"cloud.google.com/go/civil"
)

// XPPerLevel is the experience needed to advance one level.
const XPPerLevel = 500

// DefaultHabitXP is awarded per completion when a habit names none.
const DefaultHabitXP = 10

// Validate checks a habit has a name and non-negative XP.
func (h Habit) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return Invalid("name", "is required")
	}
	if h.XP < 0 {
		return Invalid("xp", "must not be negative")
	}
	return nil
}

// DoneOn reports whether h was completed on day.
func (h Habit) DoneOn(day civil.Date) bool {
	for _, d := range h.CompletedDates {
		if d == day {
			return true
		}
	}
	return false
}

// Toggle adds day to the completed dates, or removes it if present.
// The result is sorted and free of duplicates.
func (h Habit) Toggle(day civil.Date) Habit {
	var dates []civil.Date
	found := false
	for _, d := range h.CompletedDates {
		if d == day {
			found = true
			continue
		}
		dates = append(dates, d)
	}
	if !found {
		dates = append(dates, day)
	}
	h.CompletedDates = uniqueDates(dates)
	return h
}

// Streak counts consecutive completed days ending today. A habit not yet done
// today keeps the streak that ended yesterday.
func (h Habit) Streak(today civil.Date) int {
	return streak(dateSet(h.CompletedDates), today)
}

// HabitStatus is a habit with its derived state for today.
type HabitStatus struct {
	Habit
	CompletedToday bool `json:"completedToday"`
	Streak         int  `json:"streak"`
}

// StatusOf derives the status of h on today.
func StatusOf(h Habit, today civil.Date) HabitStatus {
	return HabitStatus{Habit: h, CompletedToday: h.DoneOn(today), Streak: h.Streak(today)}
}

// Achievement is an unlockable badge.
type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Unlocked    bool   `json:"unlocked"`
}

// Gamification summarises progress across all of a user's habits.
type Gamification struct {
	TotalXP      int           `json:"totalXp"`
	Level        int           `json:"level"`
	CurrentXP    int           `json:"currentXp"`
	NextLevelXP  int           `json:"nextLevelXp"`
	Streak       int           `json:"currentStreak"`
	Completions  int           `json:"completions"`
	Score        float64       `json:"score"`
	Achievements []Achievement `json:"achievements"`
}

// Gamify computes XP, level, the any-habit day streak, today's score and the
// achievement set.
func Gamify(habits []Habit, today civil.Date) Gamification {
	var g Gamification
	days := make(map[civil.Date]bool)
	bestStreak := 0
	doneToday := 0

	for _, h := range habits {
		dates := uniqueDates(h.CompletedDates)
		xp := h.XP
		if xp == 0 {
			xp = DefaultHabitXP
		}
		g.TotalXP += xp * len(dates)
		g.Completions += len(dates)
		for _, d := range dates {
			days[d] = true
		}
		if s := h.Streak(today); s > bestStreak {
			bestStreak = s
		}
		if h.DoneOn(today) {
			doneToday++
		}
	}

	g.Level = g.TotalXP/XPPerLevel + 1
	g.CurrentXP = g.TotalXP % XPPerLevel
	g.NextLevelXP = XPPerLevel
	g.Streak = streak(days, today)
	if len(habits) > 0 {
		g.Score = float64(doneToday) / float64(len(habits)) * 100
	}

	g.Achievements = []Achievement{
		{ID: "first-step", Title: "First Step", Description: "Complete your first habit", Unlocked: g.Completions >= 1},
		{ID: "week-warrior", Title: "Week Warrior", Description: "Reach a 7-day streak", Unlocked: bestStreak >= 7},
		{ID: "consistency-king", Title: "Consistency King", Description: "Complete 30 habits", Unlocked: g.Completions >= 30},
		{ID: "first-month", Title: "First Month", Description: "Reach a 30-day streak", Unlocked: bestStreak >= 30},
		{ID: "level-10", Title: "Level 10", Description: "Reach level 10", Unlocked: g.Level >= 10},
		{ID: "perfect-week", Title: "Perfect Week", Description: "Complete every habit for 7 days", Unlocked: perfectWeek(habits, today)},
	}
	return g
}

// perfectWeek reports whether every habit was done on each of the seven days
// ending today.
func perfectWeek(habits []Habit, today civil.Date) bool {
	if len(habits) == 0 {
		return false
	}
	for i := 0; i < 7; i++ {
		day := today.AddDays(-i)
		for _, h := range habits {
			if !h.DoneOn(day) {
				return false
			}
		}
	}
	return true
}

func streak(done map[civil.Date]bool, today civil.Date) int {
	day := today
	if !done[day] {
		day = day.AddDays(-1)
	}
	n := 0
	for done[day] {
		n++
		day = day.AddDays(-1)
	}
	return n
}

func dateSet(dates []civil.Date) map[civil.Date]bool {
	set := make(map[civil.Date]bool, len(dates))
	for _, d := range dates {
		set[d] = true
	}
	return set
}

func uniqueDates(dates []civil.Date) []civil.Date {
	set := dateSet(dates)
	out := make([]civil.Date, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
