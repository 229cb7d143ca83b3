// internal/model/client.go
package model

import "time"

// Client is a marketing client whose calendar is being planned.
//
// CampaignData is the legacy denormalized shape: the client document embeds a
// map of event-id -> event. New writes use flat per-event documents; the map
// is only read when hydrating old client documents.
type Client struct {
	ID           string                   `db:"id" json:"id"`
	Name         string                   `db:"name" json:"name"`
	CampaignData map[string]CampaignEvent `db:"campaign_data" json:"campaign_data,omitempty"`
	LastModified time.Time                `db:"last_modified" json:"last_modified"`
}
