// internal/gateway/memory.go
package gateway

import (
	"context"
	"sync"

	appErrors "github.com/unclebandit/campaignplanner-backend/internal/errors"
	"github.com/unclebandit/campaignplanner-backend/internal/model"
)

// InMemoryGateway is a full in-process document store with change
// subscriptions. It backs local development (ENV=dev) and tests, mirroring
// the production gateway's semantics: every write re-delivers the affected
// client's snapshot to its subscribers. Delivery happens on the writer's
// goroutine.
type InMemoryGateway struct {
	mu   sync.Mutex
	docs map[string]map[string]Document // collection -> id -> doc
	subs []*memorySubscription
}

type memorySubscription struct {
	gw        *InMemoryGateway
	clientID  string
	onChange  func([]model.CampaignEvent)
	done      chan error
	cancelled bool
}

func (s *memorySubscription) Cancel() {
	s.gw.mu.Lock()
	defer s.gw.mu.Unlock()
	s.cancelled = true
}

func (s *memorySubscription) Done() <-chan error { return s.done }

func NewInMemoryGateway() *InMemoryGateway {
	return &InMemoryGateway{docs: map[string]map[string]Document{}}
}

func (g *InMemoryGateway) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	d, ok := g.docs[collection][id]
	if !ok {
		return nil, &appErrors.NotFoundError{Kind: collection, ID: id}
	}
	return cloneDoc(d), nil
}

func (g *InMemoryGateway) SetDocument(ctx context.Context, collection, id string, data Document, merge bool) error {
	g.mu.Lock()
	if g.docs[collection] == nil {
		g.docs[collection] = map[string]Document{}
	}
	existing, ok := g.docs[collection][id]
	if merge && ok {
		next := cloneDoc(existing)
		for k, v := range data {
			next[k] = v
		}
		g.docs[collection][id] = next
	} else {
		g.docs[collection][id] = cloneDoc(data)
	}
	clientID := clientIDOf(collection, id, g.docs[collection][id])
	g.mu.Unlock()

	g.notify(clientID)
	return nil
}

func (g *InMemoryGateway) DeleteDocument(ctx context.Context, collection, id string) error {
	g.mu.Lock()
	d := g.docs[collection][id]
	clientID := clientIDOf(collection, id, d)
	delete(g.docs[collection], id)
	g.mu.Unlock()

	if clientID != "" {
		g.notify(clientID)
	}
	return nil
}

func (g *InMemoryGateway) EventsSnapshot(ctx context.Context, clientID string) ([]model.CampaignEvent, error) {
	g.mu.Lock()
	clientDoc := g.docs[CollectionClients][clientID]
	eventDocs := []Document{}
	for _, d := range g.docs[CollectionEvents] {
		if s, _ := d["client_id"].(string); s == clientID {
			eventDocs = append(eventDocs, cloneDoc(d))
		}
	}
	g.mu.Unlock()
	return snapshotFromDocs(clientDoc, eventDocs), nil
}

func (g *InMemoryGateway) Subscribe(clientID string, onChange func([]model.CampaignEvent)) (Subscription, error) {
	sub := &memorySubscription{
		gw:       g,
		clientID: clientID,
		onChange: onChange,
		done:     make(chan error, 1),
	}
	g.mu.Lock()
	g.subs = append(g.subs, sub)
	g.mu.Unlock()
	return sub, nil
}

// Notify delivers an arbitrary snapshot to the client's subscribers. Lets
// tests replay stale or out-of-order snapshots that a live feed could
// produce.
func (g *InMemoryGateway) Notify(clientID string, snapshot []model.CampaignEvent) {
	g.mu.Lock()
	targets := []*memorySubscription{}
	for _, sub := range g.subs {
		if !sub.cancelled && sub.clientID == clientID {
			targets = append(targets, sub)
		}
	}
	g.mu.Unlock()

	for _, sub := range targets {
		sub.onChange(snapshot)
	}
}

func (g *InMemoryGateway) notify(clientID string) {
	if clientID == "" {
		return
	}
	snapshot, _ := g.EventsSnapshot(context.Background(), clientID)
	g.Notify(clientID, snapshot)
}

// clientIDOf resolves which client a changed document belongs to.
func clientIDOf(collection, id string, d Document) string {
	if collection == CollectionClients {
		return id
	}
	if d == nil {
		return ""
	}
	s, _ := d["client_id"].(string)
	return s
}

func cloneDoc(d Document) Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

var _ Gateway = (*InMemoryGateway)(nil)
