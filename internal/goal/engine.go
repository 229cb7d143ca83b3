// internal/goal/engine.go
package goal

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/unclebandit/campaignplanner-backend/internal/model"
)

// BaseRevenuePerCampaign is the tunable per-event revenue baseline.
const BaseRevenuePerCampaign = 500.0

// revenueMultipliers scales the baseline per campaign type.
var revenueMultipliers = map[model.CampaignType]float64{
	model.TypeRRBPromotion: 1.5,
	model.TypeCheeseClub:   2.0,
	model.TypeNurturing:    0.8,
	model.TypeCommunity:    0.7,
	model.TypeReengagement: 1.2,
	model.TypeSMSAlert:     1.3,
	model.TypeDefault:      1.0,
}

// MultiplierFor returns the revenue multiplier for a campaign type,
// falling back to the default multiplier for unknown or empty types.
func MultiplierFor(t model.CampaignType) float64 {
	if m, ok := revenueMultipliers[t]; ok {
		return m
	}
	return revenueMultipliers[model.TypeDefault]
}

// Engine derives revenue estimates and goal progress from a campaign set.
// Pure function of its inputs; Now is injectable for tests.
type Engine struct {
	Now func() time.Time
}

func NewEngine() Engine {
	return Engine{Now: time.Now}
}

// EstimateRevenue sums base x multiplier over every event whose date falls
// in the target month. Order of events does not matter.
func (Engine) EstimateRevenue(events []model.CampaignEvent, year int, month time.Month) float64 {
	total := 0.0
	for i := range events {
		if events[i].InMonth(year, month) {
			total += BaseRevenuePerCampaign * MultiplierFor(events[i].CampaignType)
		}
	}
	return total
}

// Progress is the month-to-date position against a revenue goal.
type Progress struct {
	Percentage    float64 `json:"percentage"`
	Remaining     float64 `json:"remaining"`
	IsOnTrack     bool    `json:"is_on_track"`
	DaysRemaining int     `json:"days_remaining"`
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// elapsedDays returns how many days of the goal month have elapsed at now,
// clamped to [1, daysInMonth] so run-rate math never divides by zero.
func elapsedDays(now time.Time, year int, month time.Month) int {
	total := daysInMonth(year, month)
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	if now.Before(monthStart) {
		return 1
	}
	if now.Year() == year && now.Month() == month {
		return now.Day()
	}
	return total
}

// Progress computes percentage, remaining amount and pacing for the goal.
//
// IsOnTrack uses both criteria the product references, OR-ed together: the
// goal is already met (percentage >= 100), or the linear run-rate
// extrapolation estimate/daysElapsed*daysInMonth would reach it by month end.
func (g Engine) Progress(goal model.Goal, estimate float64) Progress {
	now := time.Now()
	if g.Now != nil {
		now = g.Now()
	}
	month := time.Month(goal.Month)
	total := daysInMonth(goal.Year, month)
	elapsed := elapsedDays(now, goal.Year, month)

	target := goal.RevenueGoal
	if target < 1 {
		target = 1
	}
	percentage := estimate / target * 100

	remaining := goal.RevenueGoal - estimate
	if remaining < 0 {
		remaining = 0
	}

	runRate := estimate / float64(elapsed) * float64(total)
	return Progress{
		Percentage:    percentage,
		Remaining:     remaining,
		IsOnTrack:     percentage >= 100 || runRate >= goal.RevenueGoal,
		DaysRemaining: total - elapsed,
	}
}

// Recommendation is an advisory suggestion for closing a pacing gap.
type Recommendation struct {
	Priority     string             `json:"priority"` // high | medium | low
	CampaignType model.CampaignType `json:"campaign_type"`
	Reason       string             `json:"reason"`
}

// Recommend suggests higher-multiplier campaign types when the month's
// estimate is behind the linear pacing curve. Deterministic for identical
// inputs: candidates are ordered by multiplier descending, ties by name.
func (g Engine) Recommend(goal model.Goal, events []model.CampaignEvent) []Recommendation {
	now := time.Now()
	if g.Now != nil {
		now = g.Now()
	}
	month := time.Month(goal.Month)
	estimate := g.EstimateRevenue(events, goal.Year, month)

	total := daysInMonth(goal.Year, month)
	elapsed := elapsedDays(now, goal.Year, month)
	pacingTarget := goal.RevenueGoal * float64(elapsed) / float64(total)

	if estimate >= pacingTarget {
		return nil
	}

	target := goal.RevenueGoal
	if target < 1 {
		target = 1
	}
	behindRatio := (pacingTarget - estimate) / target

	priority := "low"
	switch {
	case behindRatio > 0.25:
		priority = "high"
	case behindRatio > 0.10:
		priority = "medium"
	}

	candidates := []model.CampaignType{}
	for _, t := range model.KnownCampaignTypes() {
		if MultiplierFor(t) > 1.0 {
			candidates = append(candidates, t)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		mi, mj := MultiplierFor(candidates[i]), MultiplierFor(candidates[j])
		if mi != mj {
			return mi > mj
		}
		return candidates[i] < candidates[j]
	})

	recs := make([]Recommendation, 0, len(candidates))
	for _, t := range candidates {
		recs = append(recs, Recommendation{
			Priority:     priority,
			CampaignType: t,
			Reason:       "adds an estimated " + formatAmount(BaseRevenuePerCampaign*MultiplierFor(t)) + " per campaign",
		})
	}
	return recs
}

func formatAmount(v float64) string {
	// goals are whole currency amounts in practice
	return "$" + strconv.FormatInt(int64(v+0.5), 10)
}

// typeKeywords maps each enumerated type to its trigger keywords, checked in
// priority order: promotion -> cheese club -> nurturing -> community ->
// re-engagement -> sms. First match wins.
var typeKeywords = []struct {
	campaignType model.CampaignType
	keywords     []string
}{
	{model.TypeRRBPromotion, []string{"rrb", "promotion", "promo", "sale", "discount"}},
	{model.TypeCheeseClub, []string{"cheese club", "cheese"}},
	{model.TypeNurturing, []string{"nurturing", "education", "educational", "newsletter", "tips"}},
	{model.TypeCommunity, []string{"community", "lifestyle", "social"}},
	{model.TypeReengagement, []string{"re-engagement", "reengagement", "win back", "winback", "lapsed"}},
	{model.TypeSMSAlert, []string{"sms", "text alert", "text blast"}},
}

// DetectCampaignType classifies an event by keyword match over its title and
// content. Total and deterministic: always returns a member of the
// enumeration, defaulting to default.
func DetectCampaignType(title, content string) model.CampaignType {
	haystack := strings.ToLower(title + " " + content)
	for _, rule := range typeKeywords {
		for _, kw := range rule.keywords {
			if strings.Contains(haystack, kw) {
				return rule.campaignType
			}
		}
	}
	return model.TypeDefault
}
