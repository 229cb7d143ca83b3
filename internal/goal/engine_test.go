package goal_test

import (
	"math"
	"testing"
	"time"

	"github.com/unclebandit/campaignplanner-backend/internal/goal"
	"github.com/unclebandit/campaignplanner-backend/internal/model"
)

func fixedEngine(now time.Time) goal.Engine {
	return goal.Engine{Now: func() time.Time { return now }}
}

func TestEstimateRevenueSingleEvent(t *testing.T) {
	engine := goal.NewEngine()
	events := []model.CampaignEvent{
		{ID: "e1", Date: "2025-09-15", Title: "Fall Sale", CampaignType: model.TypeRRBPromotion},
	}

	got := engine.EstimateRevenue(events, 2025, time.September)
	if got != 750 {
		t.Errorf("expected 750 (500 x 1.5), got %v", got)
	}
}

func TestEstimateRevenueIgnoresOtherMonths(t *testing.T) {
	engine := goal.NewEngine()
	events := []model.CampaignEvent{
		{ID: "e1", Date: "2025-09-15", CampaignType: model.TypeCheeseClub},
		{ID: "e2", Date: "2025-10-15", CampaignType: model.TypeCheeseClub},
		{ID: "e3", Date: "bad-date", CampaignType: model.TypeCheeseClub},
	}

	if got := engine.EstimateRevenue(events, 2025, time.September); got != 1000 {
		t.Errorf("expected 1000, got %v", got)
	}
}

func TestEstimateRevenueOrderIndependent(t *testing.T) {
	engine := goal.NewEngine()
	a := []model.CampaignEvent{
		{ID: "e1", Date: "2025-09-01", CampaignType: model.TypeSMSAlert},
		{ID: "e2", Date: "2025-09-02", CampaignType: model.TypeCommunity},
		{ID: "e3", Date: "2025-09-03"},
	}
	b := []model.CampaignEvent{a[2], a[0], a[1]}

	if engine.EstimateRevenue(a, 2025, time.September) != engine.EstimateRevenue(b, 2025, time.September) {
		t.Error("estimate must not depend on event order")
	}
}

func TestProgressOnTrackByRunRate(t *testing.T) {
	// 15 of 30 days elapsed, estimate 750 of 1000: run rate 1500 >= goal
	engine := fixedEngine(time.Date(2025, time.September, 15, 12, 0, 0, 0, time.UTC))
	g := model.Goal{ClientID: "c1", Year: 2025, Month: 9, RevenueGoal: 1000}

	p := engine.Progress(g, 750)
	if math.Abs(p.Percentage-75.0) > 0.001 {
		t.Errorf("expected 75%%, got %v", p.Percentage)
	}
	if p.Remaining != 250 {
		t.Errorf("expected 250 remaining, got %v", p.Remaining)
	}
	if !p.IsOnTrack {
		t.Error("run-rate extrapolation of 1500 should be on track for 1000")
	}
	if p.DaysRemaining != 15 {
		t.Errorf("expected 15 days remaining, got %d", p.DaysRemaining)
	}
}

func TestProgressBehindPace(t *testing.T) {
	// 20 of 30 days elapsed, estimate 200 of 1000: run rate 300 < goal
	engine := fixedEngine(time.Date(2025, time.September, 20, 0, 0, 0, 0, time.UTC))
	g := model.Goal{ClientID: "c1", Year: 2025, Month: 9, RevenueGoal: 1000}

	p := engine.Progress(g, 200)
	if p.IsOnTrack {
		t.Error("run rate 300 should not be on track for 1000")
	}
}

func TestProgressGoalMetIsAlwaysOnTrack(t *testing.T) {
	engine := fixedEngine(time.Date(2025, time.September, 29, 0, 0, 0, 0, time.UTC))
	g := model.Goal{ClientID: "c1", Year: 2025, Month: 9, RevenueGoal: 1000}

	p := engine.Progress(g, 1200)
	if !p.IsOnTrack {
		t.Error("120% of goal must be on track regardless of pacing")
	}
}

func TestProgressZeroGoalDoesNotDivideByZero(t *testing.T) {
	engine := fixedEngine(time.Date(2025, time.September, 10, 0, 0, 0, 0, time.UTC))
	g := model.Goal{ClientID: "c1", Year: 2025, Month: 9, RevenueGoal: 0}

	p := engine.Progress(g, 500)
	if math.IsInf(p.Percentage, 0) || math.IsNaN(p.Percentage) {
		t.Errorf("percentage must be finite, got %v", p.Percentage)
	}
}

func TestDetectCampaignTypeTotalAndDeterministic(t *testing.T) {
	cases := []struct {
		title, content string
		want           model.CampaignType
	}{
		{"Fall Sale promotion", "", model.TypeRRBPromotion},
		{"September Cheese Club box", "", model.TypeCheeseClub},
		{"Monthly newsletter", "pairing tips", model.TypeNurturing},
		{"Community tasting night", "", model.TypeCommunity},
		{"Win back lapsed members", "", model.TypeReengagement},
		{"SMS blast", "", model.TypeSMSAlert},
		{"Untitled", "nothing matches here", model.TypeDefault},
		{"", "", model.TypeDefault},
	}
	for _, tc := range cases {
		got := goal.DetectCampaignType(tc.title, tc.content)
		if got != tc.want {
			t.Errorf("DetectCampaignType(%q, %q) = %q, want %q", tc.title, tc.content, got, tc.want)
		}
		if !model.IsKnownCampaignType(got) {
			t.Errorf("detection must be total, got %q", got)
		}
		if again := goal.DetectCampaignType(tc.title, tc.content); again != got {
			t.Errorf("detection must be deterministic, got %q then %q", got, again)
		}
	}
}

func TestDetectCampaignTypePriorityOrder(t *testing.T) {
	// promotion keywords outrank cheese club keywords
	if got := goal.DetectCampaignType("Cheese promotion", ""); got != model.TypeRRBPromotion {
		t.Errorf("expected promotion to win, got %q", got)
	}
}

func TestRecommendEmptyWhenOnPace(t *testing.T) {
	engine := fixedEngine(time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC))
	g := model.Goal{ClientID: "c1", Year: 2025, Month: 9, RevenueGoal: 1000}
	events := []model.CampaignEvent{
		{ID: "e1", Date: "2025-09-10", CampaignType: model.TypeCheeseClub},
	}

	// estimate 1000 vs pacing target 500
	if recs := engine.Recommend(g, events); len(recs) != 0 {
		t.Errorf("expected no recommendations when ahead of pace, got %d", len(recs))
	}
}

func TestRecommendDeterministicAndPrioritized(t *testing.T) {
	engine := fixedEngine(time.Date(2025, time.September, 20, 0, 0, 0, 0, time.UTC))
	g := model.Goal{ClientID: "c1", Year: 2025, Month: 9, RevenueGoal: 10000}
	events := []model.CampaignEvent{
		{ID: "e1", Date: "2025-09-01", CampaignType: model.TypeCommunity},
	}

	first := engine.Recommend(g, events)
	second := engine.Recommend(g, events)
	if len(first) == 0 {
		t.Fatal("far behind pace, expected recommendations")
	}
	if len(first) != len(second) {
		t.Fatal("recommendations must be deterministic")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("recommendation %d differs between runs", i)
		}
	}
	if first[0].CampaignType != model.TypeCheeseClub {
		t.Errorf("highest multiplier type should lead, got %q", first[0].CampaignType)
	}
	if first[0].Priority != "high" {
		t.Errorf("expected high priority when badly behind, got %q", first[0].Priority)
	}
}
