package gateway_test

import (
	"context"
	"testing"

	appErrors "github.com/unclebandit/campaignplanner-backend/internal/errors"
	"github.com/unclebandit/campaignplanner-backend/internal/gateway"
	"github.com/unclebandit/campaignplanner-backend/internal/model"
)

func eventDoc(id, clientID, date, title string) gateway.Document {
	return gateway.Document{
		"id":        id,
		"client_id": clientID,
		"date":      date,
		"title":     title,
	}
}

func TestSetAndGetDocument(t *testing.T) {
	gw := gateway.NewInMemoryGateway()
	ctx := context.Background()

	if err := gw.SetDocument(ctx, gateway.CollectionEvents, "e1", eventDoc("e1", "c1", "2026-09-01", "Fall Sale"), false); err != nil {
		t.Fatal(err)
	}

	d, err := gw.GetDocument(ctx, gateway.CollectionEvents, "e1")
	if err != nil {
		t.Fatal(err)
	}
	if d["title"] != "Fall Sale" {
		t.Errorf("expected title back, got %v", d["title"])
	}

	_, err = gw.GetDocument(ctx, gateway.CollectionEvents, "nope")
	if !appErrors.IsNotFound(err) {
		t.Errorf("expected NotFoundError for missing doc, got %v", err)
	}
}

func TestSetDocumentMergeKeepsUnmentionedFields(t *testing.T) {
	gw := gateway.NewInMemoryGateway()
	ctx := context.Background()

	gw.SetDocument(ctx, gateway.CollectionEvents, "e1", eventDoc("e1", "c1", "2026-09-01", "Fall Sale"), false)
	gw.SetDocument(ctx, gateway.CollectionEvents, "e1", gateway.Document{"title": "Renamed"}, true)

	d, err := gw.GetDocument(ctx, gateway.CollectionEvents, "e1")
	if err != nil {
		t.Fatal(err)
	}
	if d["title"] != "Renamed" {
		t.Errorf("merged field not applied: %v", d["title"])
	}
	if d["date"] != "2026-09-01" {
		t.Errorf("merge dropped an unmentioned field: %v", d["date"])
	}

	// replace mode drops everything not in the new doc
	gw.SetDocument(ctx, gateway.CollectionEvents, "e1", gateway.Document{"id": "e1", "client_id": "c1"}, false)
	d, _ = gw.GetDocument(ctx, gateway.CollectionEvents, "e1")
	if _, ok := d["date"]; ok {
		t.Error("replace write should not retain old fields")
	}
}

func TestDeleteDocumentIsIdempotent(t *testing.T) {
	gw := gateway.NewInMemoryGateway()
	ctx := context.Background()

	gw.SetDocument(ctx, gateway.CollectionEvents, "e1", eventDoc("e1", "c1", "2026-09-01", "a"), false)
	if err := gw.DeleteDocument(ctx, gateway.CollectionEvents, "e1"); err != nil {
		t.Fatal(err)
	}
	if err := gw.DeleteDocument(ctx, gateway.CollectionEvents, "e1"); err != nil {
		t.Errorf("repeat delete should be a no-op, got %v", err)
	}
}

func TestSubscriptionDeliversSnapshotsPerClient(t *testing.T) {
	gw := gateway.NewInMemoryGateway()
	ctx := context.Background()

	var got []model.CampaignEvent
	sub, err := gw.Subscribe("c1", func(events []model.CampaignEvent) { got = events })
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Cancel()

	gw.SetDocument(ctx, gateway.CollectionEvents, "e1", eventDoc("e1", "c1", "2026-09-01", "a"), false)
	if len(got) != 1 || got[0].ID != "e1" {
		t.Fatalf("expected snapshot with e1, got %+v", got)
	}

	// another client's write must not reach this subscriber
	gw.SetDocument(ctx, gateway.CollectionEvents, "x1", eventDoc("x1", "c2", "2026-09-01", "b"), false)
	if len(got) != 1 {
		t.Errorf("cross-client write leaked into snapshot: %+v", got)
	}

	gw.DeleteDocument(ctx, gateway.CollectionEvents, "e1")
	if len(got) != 0 {
		t.Errorf("expected empty snapshot after delete, got %+v", got)
	}
}

func TestCancelledSubscriptionGetsNothing(t *testing.T) {
	gw := gateway.NewInMemoryGateway()

	calls := 0
	sub, _ := gw.Subscribe("c1", func([]model.CampaignEvent) { calls++ })
	sub.Cancel()

	gw.SetDocument(context.Background(), gateway.CollectionEvents, "e1", eventDoc("e1", "c1", "2026-09-01", "a"), false)
	if calls != 0 {
		t.Errorf("cancelled subscription received %d snapshots", calls)
	}
}

func TestSnapshotSkipsMalformedDocuments(t *testing.T) {
	gw := gateway.NewInMemoryGateway()
	ctx := context.Background()

	gw.SetDocument(ctx, gateway.CollectionEvents, "e1", eventDoc("e1", "c1", "2026-09-01", "good"), false)
	gw.SetDocument(ctx, gateway.CollectionEvents, "e2", gateway.Document{"id": "e2", "client_id": "c1", "title": "no date"}, false)
	gw.SetDocument(ctx, gateway.CollectionEvents, "e3", gateway.Document{"id": "e3", "client_id": "c1", "date": "someday", "title": "bad date"}, false)

	events, err := gw.EventsSnapshot(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].ID != "e1" {
		t.Errorf("expected only the well-formed event, got %+v", events)
	}
}

func TestSnapshotHydratesLegacyClientDocument(t *testing.T) {
	gw := gateway.NewInMemoryGateway()
	ctx := context.Background()

	// old-style client doc with the calendar embedded as a map
	gw.SetDocument(ctx, gateway.CollectionClients, "c1", gateway.Document{
		"id":   "c1",
		"name": "Acme Creamery",
		"campaign_data": map[string]any{
			"legacy1": map[string]any{"date": "2026-09-05", "title": "Embedded promo"},
			"shared":  map[string]any{"date": "2026-09-06", "title": "Old copy"},
		},
	}, false)
	// a flat document with the same id as a legacy entry
	gw.SetDocument(ctx, gateway.CollectionEvents, "shared", eventDoc("shared", "c1", "2026-09-07", "New copy"), false)

	events, err := gw.EventsSnapshot(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("expected legacy + flat events, got %d: %+v", len(events), events)
	}

	byID := map[string]model.CampaignEvent{}
	for _, e := range events {
		byID[e.ID] = e
	}
	if byID["legacy1"].Title != "Embedded promo" {
		t.Errorf("legacy entry not hydrated: %+v", byID["legacy1"])
	}
	if byID["shared"].Title != "New copy" {
		t.Errorf("flat document must win id collisions, got %+v", byID["shared"])
	}
}
