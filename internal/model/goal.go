// internal/model/goal.go
package model

import "time"

// CalculationMethod records how a revenue goal was produced.
type CalculationMethod string

const (
	MethodManual      CalculationMethod = "manual"
	MethodAISuggested CalculationMethod = "ai_suggested"
	MethodHistorical  CalculationMethod = "historical"
)

// Goal is a monthly revenue goal for one client. At most one goal exists per
// (client, year, month); overriding a goal appends a GoalVersion instead of
// losing the prior value.
type Goal struct {
	ClientID          string            `db:"client_id" json:"client_id"`
	Year              int               `db:"year" json:"year"`
	Month             int               `db:"month" json:"month"`
	RevenueGoal       float64           `db:"revenue_goal" json:"revenue_goal"`
	CalculationMethod CalculationMethod `db:"calculation_method" json:"calculation_method"`
	Confidence        float64           `db:"confidence" json:"confidence"`
	Notes             string            `db:"notes" json:"notes"`
	HumanOverride     bool              `db:"human_override" json:"human_override"`
	HumanOverrideBy   string            `db:"human_override_by" json:"human_override_by,omitempty"`
	HumanOverrideAt   *time.Time        `db:"human_override_at" json:"human_override_at,omitempty"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         *time.Time        `db:"updated_at" json:"updated_at,omitempty"`
}

// GoalVersion preserves a prior goal value with provenance.
type GoalVersion struct {
	ID                int               `db:"id" json:"id"`
	ClientID          string            `db:"client_id" json:"client_id"`
	Year              int               `db:"year" json:"year"`
	Month             int               `db:"month" json:"month"`
	RevenueGoal       float64           `db:"revenue_goal" json:"revenue_goal"`
	CalculationMethod CalculationMethod `db:"calculation_method" json:"calculation_method"`
	Confidence        float64           `db:"confidence" json:"confidence"`
	Notes             string            `db:"notes" json:"notes"`
	SetBy             string            `db:"set_by" json:"set_by"`
	RecordedAt        time.Time         `db:"recorded_at" json:"recorded_at"`
}
