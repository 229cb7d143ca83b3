// internal/assistant/context.go
package assistant

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/unclebandit/campaignplanner-backend/internal/goal"
	"github.com/unclebandit/campaignplanner-backend/internal/model"
)

// BuildContext serializes the current-month calendar and goal into the
// system prompt. The assistant is told to answer in prose, or with exactly
// one action object when the user asks for a mutation; the action shapes
// here must stay in lockstep with the action package's wire format.
func BuildContext(clientName string, year int, month time.Month, events []model.CampaignEvent, g *model.Goal, progress *goal.Progress) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a campaign planning assistant for the client %q.\n", clientName)
	fmt.Fprintf(&b, "The calendar below shows %s %d.\n\n", month, year)

	monthEvents := []model.CampaignEvent{}
	for _, e := range events {
		if e.InMonth(year, month) {
			monthEvents = append(monthEvents, e)
		}
	}
	sort.Slice(monthEvents, func(i, j int) bool {
		if monthEvents[i].Date != monthEvents[j].Date {
			return monthEvents[i].Date < monthEvents[j].Date
		}
		return monthEvents[i].ID < monthEvents[j].ID
	})

	if len(monthEvents) == 0 {
		b.WriteString("No campaigns are scheduled this month.\n")
	} else {
		b.WriteString("Scheduled campaigns:\n")
		for _, e := range monthEvents {
			fmt.Fprintf(&b, "- id=%s date=%s type=%q title=%q approval=%s\n",
				e.ID, e.Date, e.CampaignType, e.Title, e.ApprovalStatus)
		}
	}

	if g != nil {
		fmt.Fprintf(&b, "\nRevenue goal for the month: $%.0f (method: %s).\n", g.RevenueGoal, g.CalculationMethod)
		if progress != nil {
			fmt.Fprintf(&b, "Progress: %.1f%% of goal, $%.0f remaining, %d days left, on track: %t.\n",
				progress.Percentage, progress.Remaining, progress.DaysRemaining, progress.IsOnTrack)
		}
	} else {
		b.WriteString("\nNo revenue goal is set for this month.\n")
	}

	b.WriteString(`
When the user asks you to change the calendar, reply with exactly one JSON object and nothing else:
  {"action":"create","event":{"date":"YYYY-MM-DD","title":"...","content":"..."}}
  {"action":"update","eventId":"...","updates":{"date":"...","title":"...","content":"..."}}
  {"action":"delete","eventId":"..."}
  {"action":"delete_all"}
Use the event ids shown above. For anything else, answer in plain prose.
`)

	return b.String()
}
