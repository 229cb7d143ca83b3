// internal/repository/goal_repository.go
package repository

import (
	"database/sql"
	"time"

	appErrors "github.com/unclebandit/campaignplanner-backend/internal/errors"
	"github.com/unclebandit/campaignplanner-backend/internal/model"
)

type GoalRepositoryInterface interface {
	Get(clientID string, year, month int) (*model.Goal, error)
	Upsert(g *model.Goal, setBy string) error
	ListVersions(clientID string, year, month int) ([]model.GoalVersion, error)
}

// GoalRepository persists goals and their version history. Overriding a
// goal never loses the prior value: it is appended to goal_versions inside
// the same transaction.
type GoalRepository struct {
	DB *sql.DB
}

func (r *GoalRepository) Get(clientID string, year, month int) (*model.Goal, error) {
	query := `
        SELECT client_id, year, month, revenue_goal, calculation_method, confidence, notes,
               human_override, human_override_by, human_override_at, created_at, updated_at
        FROM goals WHERE client_id=$1 AND year=$2 AND month=$3
    `
	var g model.Goal
	err := r.DB.QueryRow(query, clientID, year, month).Scan(
		&g.ClientID, &g.Year, &g.Month, &g.RevenueGoal, &g.CalculationMethod,
		&g.Confidence, &g.Notes, &g.HumanOverride, &g.HumanOverrideBy,
		&g.HumanOverrideAt, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewGoalNotFound(clientID, year, month)
		}
		return nil, appErrors.NewTransientIO("get goal", err)
	}
	return &g, nil
}

// Upsert writes the goal. When a goal already exists for the (client, year,
// month) key, its current value is first copied into goal_versions with
// provenance, then replaced.
func (r *GoalRepository) Upsert(g *model.Goal, setBy string) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return appErrors.NewTransientIO("begin goal tx", err)
	}
	defer tx.Rollback()

	existing := model.Goal{}
	row := tx.QueryRow(`
        SELECT revenue_goal, calculation_method, confidence, notes
        FROM goals WHERE client_id=$1 AND year=$2 AND month=$3
        FOR UPDATE
    `, g.ClientID, g.Year, g.Month)
	scanErr := row.Scan(&existing.RevenueGoal, &existing.CalculationMethod, &existing.Confidence, &existing.Notes)
	if scanErr != nil && scanErr != sql.ErrNoRows {
		return appErrors.NewTransientIO("read existing goal", scanErr)
	}

	if scanErr == nil {
		_, err = tx.Exec(`
            INSERT INTO goal_versions (client_id, year, month, revenue_goal, calculation_method, confidence, notes, set_by, recorded_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
        `, g.ClientID, g.Year, g.Month, existing.RevenueGoal, existing.CalculationMethod, existing.Confidence, existing.Notes, setBy)
		if err != nil {
			return appErrors.NewTransientIO("record goal version", err)
		}
	}

	now := time.Now()
	if g.CalculationMethod == model.MethodManual {
		g.HumanOverride = true
		g.HumanOverrideBy = setBy
		g.HumanOverrideAt = &now
	}

	_, err = tx.Exec(`
        INSERT INTO goals (client_id, year, month, revenue_goal, calculation_method, confidence, notes,
                           human_override, human_override_by, human_override_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
        ON CONFLICT (client_id, year, month) DO UPDATE
        SET revenue_goal=EXCLUDED.revenue_goal,
            calculation_method=EXCLUDED.calculation_method,
            confidence=EXCLUDED.confidence,
            notes=EXCLUDED.notes,
            human_override=EXCLUDED.human_override,
            human_override_by=EXCLUDED.human_override_by,
            human_override_at=EXCLUDED.human_override_at,
            updated_at=NOW()
    `, g.ClientID, g.Year, g.Month, g.RevenueGoal, g.CalculationMethod, g.Confidence, g.Notes,
		g.HumanOverride, g.HumanOverrideBy, g.HumanOverrideAt)
	if err != nil {
		return appErrors.NewTransientIO("upsert goal", err)
	}

	if err := tx.Commit(); err != nil {
		return appErrors.NewTransientIO("commit goal tx", err)
	}
	return nil
}

func (r *GoalRepository) ListVersions(clientID string, year, month int) ([]model.GoalVersion, error) {
	query := `
        SELECT id, client_id, year, month, revenue_goal, calculation_method, confidence, notes, set_by, recorded_at
        FROM goal_versions
        WHERE client_id=$1 AND year=$2 AND month=$3
        ORDER BY recorded_at ASC, id ASC
    `
	rows, err := r.DB.Query(query, clientID, year, month)
	if err != nil {
		return nil, appErrors.NewTransientIO("list goal versions", err)
	}
	defer rows.Close()

	versions := []model.GoalVersion{}
	for rows.Next() {
		var v model.GoalVersion
		if err := rows.Scan(&v.ID, &v.ClientID, &v.Year, &v.Month, &v.RevenueGoal,
			&v.CalculationMethod, &v.Confidence, &v.Notes, &v.SetBy, &v.RecordedAt); err != nil {
			return nil, appErrors.NewTransientIO("scan goal version", err)
		}
		versions = append(versions, v)
	}
	return versions, nil
}

var _ GoalRepositoryInterface = (*GoalRepository)(nil)
