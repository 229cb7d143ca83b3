// internal/controller/calendar_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/campaignplanner-backend/internal/errors"
	"github.com/unclebandit/campaignplanner-backend/internal/model"
	"github.com/unclebandit/campaignplanner-backend/internal/sync"
)

// CalendarController exposes event CRUD, month bulk delete and the approval
// workflow over the per-client sync sessions.
type CalendarController struct {
	Sessions *sync.SessionManager
}

// writeError maps the error taxonomy onto status codes. Partial bulk
// failures return 207 with the unconfirmed ids so the caller sees exactly
// what did not land.
func writeError(w http.ResponseWriter, err error) {
	var partial *appErrors.PartialBulkFailure
	switch {
	case appErrors.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case appErrors.IsNotFound(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &partial):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMultiStatus)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":      "bulk delete incomplete",
			"failed_ids": partial.FailedIDs,
		})
	default:
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}

func (c *CalendarController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")

	var body struct {
		Date         string `json:"date"`
		Title        string `json:"title"`
		Content      string `json:"content"`
		CampaignType string `json:"campaign_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.Title == "" {
		writeError(w, appErrors.NewValidation("title", "title is required"))
		return
	}

	ctrl, err := c.Sessions.Session(r.Context(), clientID)
	if err != nil {
		writeError(w, err)
		return
	}

	event, err := ctrl.CreateEvent(r.Context(), model.CampaignEvent{
		Date:         body.Date,
		Title:        body.Title,
		Content:      body.Content,
		CampaignType: model.CampaignType(body.CampaignType),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(event)
}

func (c *CalendarController) ListEvents(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")

	ctrl, err := c.Sessions.Session(r.Context(), clientID)
	if err != nil {
		writeError(w, err)
		return
	}

	events := ctrl.Events()

	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	month, _ := strconv.Atoi(r.URL.Query().Get("month"))
	if year > 0 && month >= 1 && month <= 12 {
		filtered := []model.CampaignEvent{}
		for _, e := range events {
			if e.InMonth(year, time.Month(month)) {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data":  events,
		"count": len(events),
	})
}

func (c *CalendarController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	eventID := chi.URLParam(r, "id")

	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	ctrl, err := c.Sessions.Session(r.Context(), clientID)
	if err != nil {
		writeError(w, err)
		return
	}

	event, err := ctrl.UpdateEvent(r.Context(), eventID, updates)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(event)
}

func (c *CalendarController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	eventID := chi.URLParam(r, "id")

	ctrl, err := c.Sessions.Session(r.Context(), clientID)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := ctrl.DeleteEvent(r.Context(), eventID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BulkDeleteMonth deletes every event in the given month. Blocks until all
// remote deletes confirm (or fail) and the settle delay elapses.
func (c *CalendarController) BulkDeleteMonth(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")

	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	month, _ := strconv.Atoi(r.URL.Query().Get("month"))
	if year <= 0 || month < 1 || month > 12 {
		writeError(w, appErrors.NewValidation("month", "year and month query params are required"))
		return
	}

	ctrl, err := c.Sessions.Session(r.Context(), clientID)
	if err != nil {
		writeError(w, err)
		return
	}

	removed, err := ctrl.BulkDelete(r.Context(), func(e model.CampaignEvent) bool {
		return e.InMonth(year, time.Month(month))
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"removed_ids": removed,
		"removed":     len(removed),
	})
}

// Approval runs one approval-workflow transition:
// {"action": "request" | "approve" | "reject"}.
func (c *CalendarController) Approval(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	eventID := chi.URLParam(r, "id")

	var body struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	ctrl, err := c.Sessions.Session(r.Context(), clientID)
	if err != nil {
		writeError(w, err)
		return
	}

	event, err := ctrl.ApplyApproval(r.Context(), eventID, model.ApprovalAction(body.Action))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(event)
}
