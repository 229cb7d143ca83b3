// internal/gateway/gateway.go
package gateway

import (
	"context"
	"encoding/json"
	"strings"

	appErrors "github.com/unclebandit/campaignplanner-backend/internal/errors"
	"github.com/unclebandit/campaignplanner-backend/internal/model"
)

// Collections known to the document store.
const (
	CollectionClients = "clients"
	CollectionEvents  = "campaign_events"
)

// Document is the schemaless unit the remote store persists.
type Document map[string]any

// Subscription is the cancellation handle for a change feed. The sync
// controller owns exactly one live handle per client session. Done yields a
// non-nil error when the feed dies and will not recover on its own.
type Subscription interface {
	Cancel()
	Done() <-chan error
}

// Gateway is the remote document store the sync core depends on: document
// read, write-with-merge, delete-by-id, and a change subscription that
// re-delivers the client's full event snapshot after every write.
type Gateway interface {
	GetDocument(ctx context.Context, collection, id string) (Document, error)
	SetDocument(ctx context.Context, collection, id string, data Document, merge bool) error
	DeleteDocument(ctx context.Context, collection, id string) error

	// EventsSnapshot reads the authoritative event set for a client,
	// including events embedded in a legacy client document.
	EventsSnapshot(ctx context.Context, clientID string) ([]model.CampaignEvent, error)

	// Subscribe delivers a fresh snapshot to onChange after every change to
	// the client's calendar.
	Subscribe(clientID string, onChange func([]model.CampaignEvent)) (Subscription, error)
}

// EventToDocument converts an event into its persisted document shape.
func EventToDocument(e model.CampaignEvent) (Document, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var d Document
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, err
	}
	return d, nil
}

// EventFromDocument is the schema-validating constructor at the store
// boundary: a document without an id or a parseable date does not become an
// event.
func EventFromDocument(d Document) (model.CampaignEvent, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return model.CampaignEvent{}, err
	}
	var e model.CampaignEvent
	if err := json.Unmarshal(b, &e); err != nil {
		return model.CampaignEvent{}, appErrors.NewValidation("event", "document does not decode as an event")
	}
	if strings.TrimSpace(e.ID) == "" {
		return model.CampaignEvent{}, appErrors.NewValidation("id", "event document has no id")
	}
	if _, err := model.ParseEventDate(e.Date); err != nil {
		return model.CampaignEvent{}, appErrors.NewValidation("date", "event document has no valid date")
	}
	return e, nil
}

// snapshotFromDocs builds a client's event snapshot from flat event
// documents plus, for old data, the campaignData map embedded in the client
// document. Flat documents win on id collisions.
func snapshotFromDocs(clientDoc Document, eventDocs []Document) []model.CampaignEvent {
	seen := map[string]bool{}
	events := []model.CampaignEvent{}

	for _, d := range eventDocs {
		e, err := EventFromDocument(d)
		if err != nil {
			continue
		}
		if !seen[e.ID] {
			seen[e.ID] = true
			events = append(events, e)
		}
	}

	if clientDoc != nil {
		if legacy, ok := clientDoc["campaign_data"].(map[string]any); ok {
			for id, raw := range legacy {
				entry, ok := raw.(map[string]any)
				if !ok || seen[id] {
					continue
				}
				entry["id"] = id
				e, err := EventFromDocument(Document(entry))
				if err != nil {
					continue
				}
				seen[id] = true
				events = append(events, e)
			}
		}
	}

	return events
}
