// internal/gateway/postgres.go
package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"

	appErrors "github.com/unclebandit/campaignplanner-backend/internal/errors"
	"github.com/unclebandit/campaignplanner-backend/internal/model"
	"github.com/unclebandit/campaignplanner-backend/internal/queue"
)

// PostgresGateway persists documents as jsonb rows and announces every write
// on the RabbitMQ change feed, which backs Subscribe.
type PostgresGateway struct {
	DB   *sql.DB
	Feed queue.ChangeFeed
}

func NewPostgresGateway(db *sql.DB, feed queue.ChangeFeed) *PostgresGateway {
	return &PostgresGateway{DB: db, Feed: feed}
}

func (g *PostgresGateway) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	query := `SELECT data FROM documents WHERE collection=$1 AND id=$2`
	var raw []byte
	err := g.DB.QueryRowContext(ctx, query, collection, id).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &appErrors.NotFoundError{Kind: collection, ID: id}
		}
		return nil, appErrors.NewTransientIO("get document", err)
	}
	var d Document
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, appErrors.NewTransientIO("decode document", err)
	}
	return d, nil
}

func (g *PostgresGateway) SetDocument(ctx context.Context, collection, id string, data Document, merge bool) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	clientID := clientIDOf(collection, id, data)

	// merge = jsonb concatenation, so a partial update never clobbers
	// fields it does not carry
	query := `
        INSERT INTO documents (collection, id, client_id, data, updated_at)
        VALUES ($1, $2, $3, $4, NOW())
        ON CONFLICT (collection, id) DO UPDATE
        SET data = CASE WHEN $5 THEN documents.data || EXCLUDED.data ELSE EXCLUDED.data END,
            client_id = EXCLUDED.client_id,
            updated_at = NOW()
    `
	if _, err := g.DB.ExecContext(ctx, query, collection, id, clientID, raw, merge); err != nil {
		return appErrors.NewTransientIO("set document", err)
	}

	g.publishChange(collection, clientID)
	return nil
}

func (g *PostgresGateway) DeleteDocument(ctx context.Context, collection, id string) error {
	query := `DELETE FROM documents WHERE collection=$1 AND id=$2 RETURNING client_id`
	var clientID string
	err := g.DB.QueryRowContext(ctx, query, collection, id).Scan(&clientID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil // delete is idempotent
		}
		return appErrors.NewTransientIO("delete document", err)
	}

	g.publishChange(collection, clientID)
	return nil
}

func (g *PostgresGateway) EventsSnapshot(ctx context.Context, clientID string) ([]model.CampaignEvent, error) {
	var clientDoc Document
	raw := []byte{}
	err := g.DB.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection=$1 AND id=$2`,
		CollectionClients, clientID,
	).Scan(&raw)
	if err == nil {
		_ = json.Unmarshal(raw, &clientDoc)
	} else if err != sql.ErrNoRows {
		return nil, appErrors.NewTransientIO("read client document", err)
	}

	rows, err := g.DB.QueryContext(ctx,
		`SELECT data FROM documents WHERE collection=$1 AND client_id=$2`,
		CollectionEvents, clientID,
	)
	if err != nil {
		return nil, appErrors.NewTransientIO("read event documents", err)
	}
	defer rows.Close()

	eventDocs := []Document{}
	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return nil, appErrors.NewTransientIO("scan event document", err)
		}
		var d Document
		if err := json.Unmarshal(b, &d); err != nil {
			continue
		}
		eventDocs = append(eventDocs, d)
	}

	return snapshotFromDocs(clientDoc, eventDocs), nil
}

type pgSubscription struct {
	cancel queue.CancelFunc
	errs   <-chan error
}

func (s *pgSubscription) Cancel()            { s.cancel() }
func (s *pgSubscription) Done() <-chan error { return s.errs }

func (g *PostgresGateway) Subscribe(clientID string, onChange func([]model.CampaignEvent)) (Subscription, error) {
	cancel, errs, err := g.Feed.Consume("sync-"+clientID, func(msg queue.ChangeMessage) {
		if msg.ClientID != clientID {
			return
		}
		snapshot, err := g.EventsSnapshot(context.Background(), clientID)
		if err != nil {
			// the next change message retries the read; a wedged feed
			// surfaces through Done instead
			return
		}
		onChange(snapshot)
	})
	if err != nil {
		return nil, appErrors.NewTransientIO("subscribe", err)
	}
	return &pgSubscription{cancel: cancel, errs: errs}, nil
}

func (g *PostgresGateway) publishChange(collection, clientID string) {
	if clientID == "" {
		return
	}
	if err := g.Feed.Publish(queue.ChangeMessage{Collection: collection, ClientID: clientID}); err != nil {
		// write already committed; subscribers catch up on the next change
		log.Println("⚠️ Failed to publish change message:", err)
	}
}

var _ Gateway = (*PostgresGateway)(nil)
