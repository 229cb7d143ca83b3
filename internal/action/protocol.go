// internal/action/protocol.go
package action

import (
	"encoding/json"
	"strings"

	appErrors "github.com/unclebandit/campaignplanner-backend/internal/errors"
	"github.com/unclebandit/campaignplanner-backend/internal/model"
)

// Kind tags the closed set of assistant mutation commands.
type Kind string

const (
	KindCreate    Kind = "create"
	KindUpdate    Kind = "update"
	KindDelete    Kind = "delete"
	KindDeleteAll Kind = "delete_all"
)

// EventSpec is the payload of a create command.
type EventSpec struct {
	Date    string `json:"date"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Command is one validated-or-pending mutation derived from an assistant
// reply. Ephemeral: produced by Parse, consumed once by the sync controller,
// never persisted.
type Command struct {
	Kind    Kind
	EventID string            // delete, update
	Updates map[string]string // update
	Event   EventSpec         // create
}

// wire is the single JSON shape the assistant is instructed to emit.
type wire struct {
	Action  string            `json:"action"`
	EventID string            `json:"eventId,omitempty"`
	Updates map[string]string `json:"updates,omitempty"`
	Event   *EventSpec        `json:"event,omitempty"`
}

// Parse extracts zero-or-one command from an assistant reply. A reply that
// is not a recognized action object is prose: Parse returns nil and no
// error, and the reply is shown to the user unmodified. Parse never guesses
// at partially matching shapes.
func Parse(reply string) *Command {
	raw := extractJSONObject(reply)
	if raw == "" {
		return nil
	}

	var w wire
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil
	}

	switch Kind(w.Action) {
	case KindDelete:
		return &Command{Kind: KindDelete, EventID: w.EventID}
	case KindUpdate:
		return &Command{Kind: KindUpdate, EventID: w.EventID, Updates: w.Updates}
	case KindCreate:
		if w.Event == nil {
			return nil
		}
		return &Command{Kind: KindCreate, Event: *w.Event}
	case KindDeleteAll:
		return &Command{Kind: KindDeleteAll}
	}
	return nil
}

// extractJSONObject returns the outermost {...} block of the reply, or ""
// when the reply carries none. Assistants occasionally wrap the object in a
// sentence despite instructions.
func extractJSONObject(reply string) string {
	trimmed := strings.TrimSpace(reply)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return trimmed
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return trimmed[start : end+1]
}

// Stringify renders a command back to the wire shape. Parse(Stringify(cmd))
// recovers an equivalent command for every kind.
func Stringify(cmd *Command) (string, error) {
	w := wire{Action: string(cmd.Kind)}
	switch cmd.Kind {
	case KindDelete:
		w.EventID = cmd.EventID
	case KindUpdate:
		w.EventID = cmd.EventID
		w.Updates = cmd.Updates
	case KindCreate:
		spec := cmd.Event
		w.Event = &spec
	}
	b, err := json.Marshal(w)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// EventLookup answers whether an event id exists in the current store.
type EventLookup interface {
	Has(id string) bool
}

// Validate checks a parsed command against the current campaign store before
// it may execute. Pure: no mutation happens here.
//   - delete/update: the event id must exist (NotFoundError otherwise)
//   - create: date must parse and title must be non-empty
//   - update: a date or campaign_type field, when present, must be valid
func Validate(cmd *Command, events EventLookup) error {
	switch cmd.Kind {
	case KindDelete, KindUpdate:
		if strings.TrimSpace(cmd.EventID) == "" {
			return appErrors.NewValidation("eventId", "event id is required")
		}
		if !events.Has(cmd.EventID) {
			return appErrors.NewEventNotFound(cmd.EventID)
		}
		if cmd.Kind == KindUpdate {
			return validateUpdates(cmd.Updates)
		}
		return nil
	case KindCreate:
		if strings.TrimSpace(cmd.Event.Title) == "" {
			return appErrors.NewValidation("title", "title is required")
		}
		if _, err := model.ParseEventDate(cmd.Event.Date); err != nil {
			return appErrors.NewValidation("date", "expected YYYY-MM-DD, got "+cmd.Event.Date)
		}
		return nil
	case KindDeleteAll:
		return nil
	}
	return appErrors.NewValidation("action", "unknown action "+string(cmd.Kind))
}

func validateUpdates(updates map[string]string) error {
	if len(updates) == 0 {
		return appErrors.NewValidation("updates", "no fields to update")
	}
	if date, ok := updates["date"]; ok {
		if _, err := model.ParseEventDate(date); err != nil {
			return appErrors.NewValidation("date", "expected YYYY-MM-DD, got "+date)
		}
	}
	if title, ok := updates["title"]; ok && strings.TrimSpace(title) == "" {
		return appErrors.NewValidation("title", "title cannot be emptied")
	}
	if ct, ok := updates["campaign_type"]; ok && !model.IsKnownCampaignType(model.CampaignType(ct)) {
		return appErrors.NewValidation("campaign_type", "unknown campaign type "+ct)
	}
	return nil
}
