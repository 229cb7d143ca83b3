// internal/controller/chat_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/campaignplanner-backend/internal/assistant"
	appErrors "github.com/unclebandit/campaignplanner-backend/internal/errors"
	"github.com/unclebandit/campaignplanner-backend/internal/service"
)

// ChatController accepts a chat utterance and returns either display text
// or an executed mutation confirmation.
type ChatController struct {
	Chat *service.ChatService
}

func (c *ChatController) PostChat(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")

	var body struct {
		Message string              `json:"message"`
		Year    int                 `json:"year"`
		Month   int                 `json:"month"`
		History []assistant.Message `json:"history"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.Message == "" {
		writeError(w, appErrors.NewValidation("message", "message is required"))
		return
	}

	now := time.Now()
	if body.Year <= 0 {
		body.Year = now.Year()
	}
	if body.Month < 1 || body.Month > 12 {
		body.Month = int(now.Month())
	}

	result, err := c.Chat.Handle(r.Context(), service.ChatRequest{
		ClientID:  clientID,
		Year:      body.Year,
		Month:     time.Month(body.Month),
		Utterance: body.Message,
		History:   body.History,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
