// internal/controller/goal_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/campaignplanner-backend/internal/errors"
	"github.com/unclebandit/campaignplanner-backend/internal/goal"
	"github.com/unclebandit/campaignplanner-backend/internal/model"
	"github.com/unclebandit/campaignplanner-backend/internal/repository"
	"github.com/unclebandit/campaignplanner-backend/internal/sync"
)

// GoalController serves monthly revenue goals and their derived progress.
type GoalController struct {
	Goals    repository.GoalRepositoryInterface
	Sessions *sync.SessionManager
	Engine   goal.Engine
}

func goalParams(r *http.Request) (clientID string, year, month int, err error) {
	clientID = chi.URLParam(r, "clientID")
	year, _ = strconv.Atoi(chi.URLParam(r, "year"))
	month, _ = strconv.Atoi(chi.URLParam(r, "month"))
	if year <= 0 || month < 1 || month > 12 {
		err = appErrors.NewValidation("month", "year and month must be a valid calendar month")
	}
	return
}

func (c *GoalController) GetGoal(w http.ResponseWriter, r *http.Request) {
	clientID, year, month, err := goalParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	g, err := c.Goals.Get(clientID, year, month)
	if err != nil {
		writeError(w, err)
		return
	}

	versions, err := c.Goals.ListVersions(clientID, year, month)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"goal":     g,
		"versions": versions,
	})
}

func (c *GoalController) PutGoal(w http.ResponseWriter, r *http.Request) {
	clientID, year, month, err := goalParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		RevenueGoal       float64 `json:"revenue_goal"`
		CalculationMethod string  `json:"calculation_method"`
		Confidence        float64 `json:"confidence"`
		Notes             string  `json:"notes"`
		SetBy             string  `json:"set_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.RevenueGoal < 0 {
		writeError(w, appErrors.NewValidation("revenue_goal", "revenue goal cannot be negative"))
		return
	}

	method := model.CalculationMethod(body.CalculationMethod)
	if method == "" {
		method = model.MethodManual
	}
	switch method {
	case model.MethodManual, model.MethodAISuggested, model.MethodHistorical:
	default:
		writeError(w, appErrors.NewValidation("calculation_method", "unknown method "+body.CalculationMethod))
		return
	}

	g := &model.Goal{
		ClientID:          clientID,
		Year:              year,
		Month:             month,
		RevenueGoal:       body.RevenueGoal,
		CalculationMethod: method,
		Confidence:        body.Confidence,
		Notes:             body.Notes,
	}
	if err := c.Goals.Upsert(g, body.SetBy); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(g)
}

// GetProgress computes the month's estimate, progress and recommendations
// from the live campaign set.
func (c *GoalController) GetProgress(w http.ResponseWriter, r *http.Request) {
	clientID, year, month, err := goalParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	g, err := c.Goals.Get(clientID, year, month)
	if err != nil {
		writeError(w, err)
		return
	}

	ctrl, err := c.Sessions.Session(r.Context(), clientID)
	if err != nil {
		writeError(w, err)
		return
	}

	events := ctrl.Events()
	estimate := c.Engine.EstimateRevenue(events, year, time.Month(month))
	progress := c.Engine.Progress(*g, estimate)
	recs := c.Engine.Recommend(*g, events)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"estimate":        estimate,
		"progress":        progress,
		"recommendations": recs,
	})
}
