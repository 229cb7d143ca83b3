// internal/sync/controller.go
package sync

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/unclebandit/campaignplanner-backend/internal/action"
	appErrors "github.com/unclebandit/campaignplanner-backend/internal/errors"
	"github.com/unclebandit/campaignplanner-backend/internal/gateway"
	"github.com/unclebandit/campaignplanner-backend/internal/goal"
	"github.com/unclebandit/campaignplanner-backend/internal/model"
	"github.com/unclebandit/campaignplanner-backend/internal/store"
)

// State is the controller's position in its per-client session lifecycle:
// Idle -> Listening -> (PausedForBulkOp) -> Listening -> Idle.
type State string

const (
	StateIdle            State = "idle"
	StateListening       State = "listening"
	StatePausedForBulkOp State = "paused_for_bulk_op"
)

// DefaultSettleDelay is how long a bulk operation waits after its last
// delete before resuming the subscription, so the store's own propagation
// finishes before snapshots are trusted again.
const DefaultSettleDelay = 1500 * time.Millisecond

// Controller owns one client session: the in-memory campaign store, the
// single live change subscription, optimistic local mutations and their
// remote writes, and reconciliation of incoming snapshots. It is the only
// component that mutates the store or writes events to the gateway.
type Controller struct {
	mu       sync.Mutex
	gw       gateway.Gateway
	store    *store.CampaignStore
	state    State
	clientID string
	sub      gateway.Subscription
	session  int
	offline  bool

	// SettleDelay pauses BulkDelete before resubscribing.
	SettleDelay time.Duration
	// ResubscribeDelay is the backoff unit between resubscribe attempts.
	ResubscribeDelay time.Duration
	// MaxResubscribes bounds automatic resubscription before the
	// controller declares itself offline.
	MaxResubscribes int
	// OnError receives failures of writes that the caller did not await.
	OnError func(error)
}

func NewController(gw gateway.Gateway) *Controller {
	return &Controller{
		gw:               gw,
		store:            store.NewCampaignStore(),
		state:            StateIdle,
		SettleDelay:      DefaultSettleDelay,
		ResubscribeDelay: 500 * time.Millisecond,
		MaxResubscribes:  5,
		OnError: func(err error) {
			log.Println("⚠️ Sync error:", err)
		},
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Offline reports whether resubscription gave up; local state may be stale
// until a new SelectClient.
func (c *Controller) Offline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offline
}

// ClientID returns the active client, or "" when idle.
func (c *Controller) ClientID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientID
}

// Events returns a snapshot of the local campaign set.
func (c *Controller) Events() []model.CampaignEvent {
	return c.store.List()
}

// Has reports whether an event id exists locally.
func (c *Controller) Has(id string) bool {
	return c.store.Has(id)
}

// Get returns the local copy of an event.
func (c *Controller) Get(id string) (model.CampaignEvent, bool) {
	return c.store.Get(id)
}

// SelectClient tears down any existing subscription, clears the store,
// loads the client's snapshot and opens a fresh subscription. Exactly one
// subscription handle is live at a time; callbacks from a replaced session
// are never honored.
func (c *Controller) SelectClient(ctx context.Context, clientID string) error {
	c.mu.Lock()
	if c.sub != nil {
		c.sub.Cancel()
		c.sub = nil
	}
	c.session++
	session := c.session
	c.clientID = clientID
	c.state = StateIdle
	c.offline = false
	c.store.Clear()
	c.mu.Unlock()

	snapshot, err := c.gw.EventsSnapshot(ctx, clientID)
	if err != nil {
		return err
	}

	sub, err := c.gw.Subscribe(clientID, func(events []model.CampaignEvent) {
		c.reconcile(session, events)
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.session != session {
		// another SelectClient raced us; this session is already dead
		c.mu.Unlock()
		sub.Cancel()
		return nil
	}
	c.sub = sub
	c.state = StateListening
	c.store.ReplaceAll(snapshot)
	c.mu.Unlock()

	go c.watch(session, sub)
	return nil
}

// Close ends the session and cancels the subscription.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != nil {
		c.sub.Cancel()
		c.sub = nil
	}
	c.session++
	c.state = StateIdle
	c.clientID = ""
	c.store.Clear()
}

// reconcile applies a remote snapshot. Remote is authoritative while
// Listening; snapshots delivered while paused for a bulk operation are
// discarded so a stale snapshot cannot undo an in-flight multi-document
// delete.
func (c *Controller) reconcile(session int, events []model.CampaignEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if session != c.session || c.state != StateListening {
		return
	}
	c.store.ReplaceAll(events)
}

// watch resubscribes with backoff when the subscription dies, then flips
// the offline flag rather than retrying forever.
func (c *Controller) watch(session int, sub gateway.Subscription) {
	err := <-sub.Done()
	if err == nil {
		return
	}

	c.mu.Lock()
	stale := session != c.session
	clientID := c.clientID
	c.mu.Unlock()
	if stale {
		return
	}

	for attempt := 1; attempt <= c.MaxResubscribes; attempt++ {
		time.Sleep(time.Duration(attempt) * c.ResubscribeDelay)

		c.mu.Lock()
		if session != c.session {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		next, subErr := c.gw.Subscribe(clientID, func(events []model.CampaignEvent) {
			c.reconcile(session, events)
		})
		if subErr == nil {
			c.mu.Lock()
			if session != c.session {
				c.mu.Unlock()
				next.Cancel()
				return
			}
			c.sub = next
			c.mu.Unlock()
			go c.watch(session, next)
			return
		}
		log.Printf("⚠️ Resubscribe attempt %d/%d failed: %v\n", attempt, c.MaxResubscribes, subErr)
	}

	c.mu.Lock()
	c.offline = true
	c.mu.Unlock()
	c.surface(appErrors.NewTransientIO("resubscribe", err))
}

func (c *Controller) surface(err error) {
	if c.OnError != nil {
		c.OnError(err)
	}
}

// CreateEvent applies the event optimistically and persists it without
// blocking the caller. A write failure rolls the event back out and is
// surfaced once through OnError.
func (c *Controller) CreateEvent(_ context.Context, e model.CampaignEvent) (model.CampaignEvent, error) {
	c.mu.Lock()
	session := c.session
	clientID := c.clientID
	c.mu.Unlock()

	if strings.TrimSpace(e.ID) == "" {
		e.ID = model.NewEventID()
	}
	e.ClientID = clientID
	if e.CampaignType == "" {
		e.CampaignType = goal.DetectCampaignType(e.Title, e.Content)
	}
	if e.ApprovalStatus == "" {
		e.ApprovalStatus = model.ApprovalNone
	}
	e.LastModified = time.Now()

	if err := c.store.Upsert(e); err != nil {
		return model.CampaignEvent{}, err
	}

	go func() {
		if err := c.persistEvent(e, false); err != nil {
			c.rollback(session, e.ID, nil)
			c.surface(err)
		}
	}()
	return e, nil
}

// UpdateEvent applies field updates optimistically and persists them
// without blocking the caller, rolling back to the prior value on failure.
// Applying the same updates twice yields the same state as applying once.
func (c *Controller) UpdateEvent(_ context.Context, id string, updates map[string]string) (model.CampaignEvent, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	prior, ok := c.store.Get(id)
	if !ok {
		return model.CampaignEvent{}, appErrors.NewEventNotFound(id)
	}

	next := prior
	if err := applyUpdates(&next, updates); err != nil {
		return model.CampaignEvent{}, err
	}
	next.LastModified = time.Now()

	if err := c.store.Upsert(next); err != nil {
		return model.CampaignEvent{}, err
	}

	go func() {
		if err := c.persistEvent(next, true); err != nil {
			c.rollback(session, id, &prior)
			c.surface(err)
		}
	}()
	return next, nil
}

// DeleteEvent removes the event optimistically and issues the remote delete
// without blocking the caller. On failure the event is reinstated.
func (c *Controller) DeleteEvent(_ context.Context, id string) error {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	prior, ok := c.store.Get(id)
	if !ok {
		return appErrors.NewEventNotFound(id)
	}
	c.store.Remove(id)

	go func() {
		if err := c.gw.DeleteDocument(context.Background(), gateway.CollectionEvents, id); err != nil {
			c.rollback(session, id, &prior)
			c.surface(appErrors.NewTransientIO("delete event", err))
		}
	}()
	return nil
}

// ApplyApproval runs one approval-workflow transition on an event.
func (c *Controller) ApplyApproval(ctx context.Context, id string, act model.ApprovalAction) (model.CampaignEvent, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	prior, ok := c.store.Get(id)
	if !ok {
		return model.CampaignEvent{}, appErrors.NewEventNotFound(id)
	}

	next := prior
	if next.ApprovalTimestamps != nil {
		stamps := make(map[string]time.Time, len(next.ApprovalTimestamps))
		for k, v := range next.ApprovalTimestamps {
			stamps[k] = v
		}
		next.ApprovalTimestamps = stamps
	}
	if err := next.ApplyApprovalAction(act, time.Now()); err != nil {
		return model.CampaignEvent{}, appErrors.NewValidation("approval", err.Error())
	}

	if err := c.store.Upsert(next); err != nil {
		return model.CampaignEvent{}, err
	}

	go func() {
		if err := c.persistEvent(next, true); err != nil {
			c.rollback(session, id, &prior)
			c.surface(err)
		}
	}()
	return next, nil
}

// BulkDelete removes every event matching the predicate. Unlike single
// writes it pauses the subscription, awaits every remote delete, then waits
// out the settle delay before resuming, so a snapshot raced by the deletes
// cannot resurrect them. Failed deletes are reported by id; local removal
// stands because the intent is still removal.
func (c *Controller) BulkDelete(ctx context.Context, pred func(model.CampaignEvent) bool) ([]string, error) {
	c.mu.Lock()
	session := c.session
	if c.state == StateListening {
		c.state = StatePausedForBulkOp
	}
	c.mu.Unlock()

	removed := c.store.RemoveWhere(pred)

	var wg sync.WaitGroup
	var failedMu sync.Mutex
	failed := []string{}
	for _, id := range removed {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := c.gw.DeleteDocument(ctx, gateway.CollectionEvents, id); err != nil {
				failedMu.Lock()
				failed = append(failed, id)
				failedMu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	time.Sleep(c.SettleDelay)

	c.mu.Lock()
	if c.session == session && c.state == StatePausedForBulkOp {
		c.state = StateListening
	}
	c.mu.Unlock()

	if len(failed) > 0 {
		sort.Strings(failed)
		return removed, &appErrors.PartialBulkFailure{FailedIDs: failed}
	}
	return removed, nil
}

// ExecResult reports what an executed assistant command did.
type ExecResult struct {
	Kind       action.Kind          `json:"kind"`
	Event      *model.CampaignEvent `json:"event,omitempty"`
	RemovedIDs []string             `json:"removed_ids,omitempty"`
}

// Execute validates an assistant command against the local store and runs
// it through the same optimistic paths UI mutations use.
func (c *Controller) Execute(ctx context.Context, cmd *action.Command) (*ExecResult, error) {
	if err := action.Validate(cmd, c.store); err != nil {
		return nil, err
	}

	switch cmd.Kind {
	case action.KindCreate:
		e, err := c.CreateEvent(ctx, model.CampaignEvent{
			Date:    cmd.Event.Date,
			Title:   cmd.Event.Title,
			Content: cmd.Event.Content,
		})
		if err != nil {
			return nil, err
		}
		return &ExecResult{Kind: cmd.Kind, Event: &e}, nil
	case action.KindUpdate:
		e, err := c.UpdateEvent(ctx, cmd.EventID, cmd.Updates)
		if err != nil {
			return nil, err
		}
		return &ExecResult{Kind: cmd.Kind, Event: &e}, nil
	case action.KindDelete:
		if err := c.DeleteEvent(ctx, cmd.EventID); err != nil {
			return nil, err
		}
		return &ExecResult{Kind: cmd.Kind, RemovedIDs: []string{cmd.EventID}}, nil
	case action.KindDeleteAll:
		removed, err := c.BulkDelete(ctx, func(model.CampaignEvent) bool { return true })
		if err != nil {
			return &ExecResult{Kind: cmd.Kind, RemovedIDs: removed}, err
		}
		return &ExecResult{Kind: cmd.Kind, RemovedIDs: removed}, nil
	}
	return nil, appErrors.NewValidation("action", "unknown action "+string(cmd.Kind))
}

// rollback restores an event's pre-optimistic value after a failed write.
// A nil prior means the optimistic change was an insert, so the id is
// removed. Rollbacks from a replaced session are dropped.
func (c *Controller) rollback(session int, id string, prior *model.CampaignEvent) {
	c.mu.Lock()
	stale := session != c.session
	c.mu.Unlock()
	if stale {
		return
	}
	if prior == nil {
		c.store.Remove(id)
		return
	}
	if err := c.store.Upsert(*prior); err != nil {
		log.Println("⚠️ Failed to roll back event", id, ":", err)
	}
}

func (c *Controller) persistEvent(e model.CampaignEvent, merge bool) error {
	doc, err := gateway.EventToDocument(e)
	if err != nil {
		return appErrors.NewTransientIO("encode event", err)
	}
	// context.Background: selecting another client must not cancel writes
	// already issued
	if err := c.gw.SetDocument(context.Background(), gateway.CollectionEvents, e.ID, doc, merge); err != nil {
		return appErrors.NewTransientIO("persist event", err)
	}
	return nil
}

func applyUpdates(e *model.CampaignEvent, updates map[string]string) error {
	if len(updates) == 0 {
		return appErrors.NewValidation("updates", "no fields to update")
	}
	for field, value := range updates {
		switch field {
		case "date":
			e.Date = value
		case "title":
			if strings.TrimSpace(value) == "" {
				return appErrors.NewValidation("title", "title cannot be emptied")
			}
			e.Title = value
		case "content":
			e.Content = value
		case "campaign_type":
			e.CampaignType = model.CampaignType(value)
		default:
			return appErrors.NewValidation("updates", "unknown field "+field)
		}
	}
	return nil
}
