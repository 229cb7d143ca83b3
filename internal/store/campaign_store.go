// internal/store/campaign_store.go
package store

import (
	"strings"
	"sync"

	appErrors "github.com/unclebandit/campaignplanner-backend/internal/errors"
	"github.com/unclebandit/campaignplanner-backend/internal/model"
)

// CampaignStore is the in-memory authoritative event set for the currently
// selected client. Only the sync controller mutates it. Iteration order of
// List is not significant and callers must not rely on it.
type CampaignStore struct {
	mu     sync.Mutex
	events map[string]model.CampaignEvent
}

func NewCampaignStore() *CampaignStore {
	return &CampaignStore{events: make(map[string]model.CampaignEvent)}
}

func validateEvent(e *model.CampaignEvent) error {
	if strings.TrimSpace(e.Date) == "" {
		return appErrors.NewValidation("date", "date is required")
	}
	if _, err := model.ParseEventDate(e.Date); err != nil {
		return appErrors.NewValidation("date", "expected YYYY-MM-DD, got "+e.Date)
	}
	if e.CampaignType != "" && !model.IsKnownCampaignType(e.CampaignType) {
		return appErrors.NewValidation("campaign_type", "unknown campaign type "+string(e.CampaignType))
	}
	return nil
}

// Upsert inserts or replaces the event, keyed by id. Idempotent by id.
// Rejects events with a missing/malformed date or an unknown campaign type.
func (s *CampaignStore) Upsert(e model.CampaignEvent) error {
	if err := validateEvent(&e); err != nil {
		return err
	}
	if e.CampaignType == "" {
		e.CampaignType = model.TypeDefault
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
	return nil
}

// UpsertWithDefault is Upsert, but an unknown campaign type is substituted
// with default instead of rejected. Callers opt into the coercion.
func (s *CampaignStore) UpsertWithDefault(e model.CampaignEvent) error {
	if !model.IsKnownCampaignType(e.CampaignType) {
		e.CampaignType = model.TypeDefault
	}
	return s.Upsert(e)
}

// Get returns a copy of the event and whether it exists.
func (s *CampaignStore) Get(id string) (model.CampaignEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	return e, ok
}

// Has reports whether an event with the id exists.
func (s *CampaignStore) Has(id string) bool {
	_, ok := s.Get(id)
	return ok
}

// List returns a snapshot of all events, in no particular order.
func (s *CampaignStore) List() []model.CampaignEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.CampaignEvent, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e)
	}
	return out
}

// Len returns the number of events held.
func (s *CampaignStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Remove deletes the event with the id, if present.
func (s *CampaignStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, id)
}

// RemoveWhere deletes every event matching the predicate and returns the
// removed ids.
func (s *CampaignStore) RemoveWhere(pred func(model.CampaignEvent) bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := []string{}
	for id, e := range s.events {
		if pred(e) {
			removed = append(removed, id)
			delete(s.events, id)
		}
	}
	return removed
}

// ReplaceAll swaps the whole collection for the given snapshot. Remote
// snapshots are authoritative, so unknown campaign types are coerced to
// default rather than dropping the event.
func (s *CampaignStore) ReplaceAll(events []model.CampaignEvent) {
	next := make(map[string]model.CampaignEvent, len(events))
	for _, e := range events {
		if validateEvent(&e) != nil {
			if _, dateErr := model.ParseEventDate(e.Date); dateErr != nil {
				continue // a dateless event cannot be placed on the grid
			}
			e.CampaignType = model.TypeDefault
		}
		if e.CampaignType == "" {
			e.CampaignType = model.TypeDefault
		}
		next[e.ID] = e
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = next
}

// Clear removes every event.
func (s *CampaignStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string]model.CampaignEvent)
}
