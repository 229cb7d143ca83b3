// internal/repository/memory_goal_repository.go
package repository

import (
	"fmt"
	"sync"
	"time"

	appErrors "github.com/unclebandit/campaignplanner-backend/internal/errors"
	"github.com/unclebandit/campaignplanner-backend/internal/model"
)

// InMemoryGoalRepository keeps goals and their version history in memory.
// Used when ENV=dev runs the service without Postgres, and by tests.
type InMemoryGoalRepository struct {
	mu       sync.Mutex
	goals    map[string]model.Goal
	versions map[string][]model.GoalVersion
	nextID   int
}

func NewInMemoryGoalRepository() *InMemoryGoalRepository {
	return &InMemoryGoalRepository{
		goals:    map[string]model.Goal{},
		versions: map[string][]model.GoalVersion{},
	}
}

func goalKey(clientID string, year, month int) string {
	return fmt.Sprintf("%s/%d-%02d", clientID, year, month)
}

func (r *InMemoryGoalRepository) Get(clientID string, year, month int) (*model.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.goals[goalKey(clientID, year, month)]
	if !ok {
		return nil, appErrors.NewGoalNotFound(clientID, year, month)
	}
	return &g, nil
}

func (r *InMemoryGoalRepository) Upsert(g *model.Goal, setBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := goalKey(g.ClientID, g.Year, g.Month)
	now := time.Now()

	if existing, ok := r.goals[key]; ok {
		r.nextID++
		r.versions[key] = append(r.versions[key], model.GoalVersion{
			ID:                r.nextID,
			ClientID:          existing.ClientID,
			Year:              existing.Year,
			Month:             existing.Month,
			RevenueGoal:       existing.RevenueGoal,
			CalculationMethod: existing.CalculationMethod,
			Confidence:        existing.Confidence,
			Notes:             existing.Notes,
			SetBy:             setBy,
			RecordedAt:        now,
		})
	} else {
		g.CreatedAt = now
	}

	if g.CalculationMethod == model.MethodManual {
		g.HumanOverride = true
		g.HumanOverrideBy = setBy
		g.HumanOverrideAt = &now
	}
	g.UpdatedAt = &now
	r.goals[key] = *g
	return nil
}

func (r *InMemoryGoalRepository) ListVersions(clientID string, year, month int) ([]model.GoalVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]model.GoalVersion{}, r.versions[goalKey(clientID, year, month)]...)
	return out, nil
}

var _ GoalRepositoryInterface = (*InMemoryGoalRepository)(nil)
