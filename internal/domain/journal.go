package domain

import (
	"sort"

	"cloud.google.com/go/civil"
)

// Symptoms a daily log can rate.
var Symptoms = []string{"bloating", "headache", "anxiety", "nausea", "fatigue", "pain", "stress", "insomnia"}

// DefaultSeverity is the severity assigned when a symptom is added unrated.
const DefaultSeverity = 5

// Emotions a purchase day can be tagged with.
var Emotions = []string{"joy", "stress", "boredom", "excited", "anxious"}

// Validate checks scales are within 1..10 and names are known.
func (l DailyLog) Validate() error {
	if !l.Date.IsValid() {
		return Invalid("date", "is invalid")
	}
	if l.Mood < 1 || l.Mood > 10 {
		return Invalid("mood", "must be between 1 and 10")
	}
	if l.Energy < 1 || l.Energy > 10 {
		return Invalid("energy", "must be between 1 and 10")
	}
	for name, sev := range l.Symptoms {
		if !contains(Symptoms, name) {
			return Invalid("symptoms", "unknown symptom "+name)
		}
		if sev < 1 || sev > 10 {
			return Invalid("symptoms", name+" severity must be between 1 and 10")
		}
	}
	if l.Emotion != "" && !contains(Emotions, l.Emotion) {
		return Invalid("emotion", "unknown emotion "+l.Emotion)
	}
	return nil
}

// MoodBand buckets a 1..10 mood score: low up to 3, neutral up to 7, high above.
func MoodBand(mood int) string {
	switch {
	case mood <= 3:
		return "low"
	case mood <= 7:
		return "neutral"
	default:
		return "high"
	}
}

// MaxSeverity is the worst symptom severity logged for the day, 0 if none.
func (l DailyLog) MaxSeverity() int {
	max := 0
	for _, s := range l.Symptoms {
		if s > max {
			max = s
		}
	}
	return max
}

// SeverityPoint is one day on the symptom timeline.
type SeverityPoint struct {
	Date     civil.Date `json:"date"`
	Severity int        `json:"severity"`
	Mood     int        `json:"mood"`
	Energy   int        `json:"energy"`
}

// Timeline orders logs by date and reduces each to its worst severity.
func Timeline(logs []DailyLog) []SeverityPoint {
	out := make([]SeverityPoint, 0, len(logs))
	for _, l := range logs {
		out = append(out, SeverityPoint{Date: l.Date, Severity: l.MaxSeverity(), Mood: l.Mood, Energy: l.Energy})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// EmotionInsight compares spending on days tagged with an emotion against
// the average logged day.
type EmotionInsight struct {
	Emotion     string  `json:"emotion"`
	Days        int     `json:"days"`
	AvgSpend    float64 `json:"avgSpend"`
	DiffPercent float64 `json:"diffPercent"`
}

// EmotionalSpending returns one insight per emotion that appears in logs,
// in Emotions order. Days without logs are ignored.
func EmotionalSpending(logs []DailyLog, txs []Transaction) []EmotionInsight {
	spent := make(map[civil.Date]float64)
	for _, tx := range txs {
		if tx.Type == Expense {
			spent[tx.Date] += tx.Amount
		}
	}

	type agg struct {
		days  int
		total float64
	}
	byEmotion := make(map[string]*agg)
	var all agg
	for _, l := range logs {
		s := spent[l.Date]
		all.days++
		all.total += s
		if l.Emotion == "" {
			continue
		}
		a, ok := byEmotion[l.Emotion]
		if !ok {
			a = &agg{}
			byEmotion[l.Emotion] = a
		}
		a.days++
		a.total += s
	}
	if all.days == 0 {
		return []EmotionInsight{}
	}
	baseline := all.total / float64(all.days)

	out := []EmotionInsight{}
	for _, e := range Emotions {
		a, ok := byEmotion[e]
		if !ok {
			continue
		}
		avg := a.total / float64(a.days)
		out = append(out, EmotionInsight{
			Emotion:     e,
			Days:        a.days,
			AvgSpend:    avg,
			DiffPercent: PercentChange(avg, baseline),
		})
	}
	return out
}

// LogID is the document id of a user's log for date; one log per day.
func LogID(userID string, date civil.Date) string {
	return userID + "_" + date.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
