// internal/model/event.go
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CampaignType is an enumerated campaign category. It drives the revenue
// multiplier used by the goal engine.
type CampaignType string

const (
	TypeRRBPromotion CampaignType = "RRB Promotion"
	TypeCheeseClub   CampaignType = "Cheese Club"
	TypeNurturing    CampaignType = "Nurturing/Education"
	TypeCommunity    CampaignType = "Community/Lifestyle"
	TypeReengagement CampaignType = "Re-engagement"
	TypeSMSAlert     CampaignType = "SMS Alert"
	TypeDefault      CampaignType = "default"
)

// KnownCampaignTypes returns the full enumeration, TypeDefault last.
func KnownCampaignTypes() []CampaignType {
	return []CampaignType{
		TypeRRBPromotion,
		TypeCheeseClub,
		TypeNurturing,
		TypeCommunity,
		TypeReengagement,
		TypeSMSAlert,
		TypeDefault,
	}
}

// IsKnownCampaignType reports whether t is a member of the enumeration.
func IsKnownCampaignType(t CampaignType) bool {
	for _, known := range KnownCampaignTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// ApprovalStatus is the client sign-off state of an event.
type ApprovalStatus string

const (
	ApprovalNone     ApprovalStatus = "none"
	ApprovalPending  ApprovalStatus = "pending_approval"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// EventDateLayout is the calendar-day format used for event dates. Events
// carry a day, never a time of day.
const EventDateLayout = "2006-01-02"

// ParseEventDate parses a calendar day in EventDateLayout.
func ParseEventDate(s string) (time.Time, error) {
	return time.Parse(EventDateLayout, s)
}

// CampaignEvent is a single dated marketing action placed on the calendar.
type CampaignEvent struct {
	ID                 string               `db:"id" json:"id"`
	ClientID           string               `db:"client_id" json:"client_id"`
	Date               string               `db:"date" json:"date"` // YYYY-MM-DD
	Title              string               `db:"title" json:"title"`
	Content            string               `db:"content" json:"content"`
	CampaignType       CampaignType         `db:"campaign_type" json:"campaign_type"`
	ApprovalStatus     ApprovalStatus       `db:"approval_status" json:"approval_status"`
	ApprovalTimestamps map[string]time.Time `db:"approval_timestamps" json:"approval_timestamps,omitempty"`
	LastModified       time.Time            `db:"last_modified" json:"last_modified"`
}

// NewEventID generates a collision-resistant event id.
func NewEventID() string {
	return "evt_" + uuid.NewString()
}

// InMonth reports whether the event's date falls in the given year/month.
// Events with unparseable dates are never in any month.
func (e *CampaignEvent) InMonth(year int, month time.Month) bool {
	day, err := ParseEventDate(e.Date)
	if err != nil {
		return false
	}
	return day.Year() == year && day.Month() == month
}

// ApprovalAction is a requested transition on the approval workflow.
type ApprovalAction string

const (
	ApprovalActionRequest ApprovalAction = "request"
	ApprovalActionApprove ApprovalAction = "approve"
	ApprovalActionReject  ApprovalAction = "reject"
)

// NextApprovalStatus applies the approval state machine:
// none -> pending_approval -> {approved, rejected}. Re-requesting approval
// from approved/rejected returns the event to pending_approval; every other
// backwards transition is invalid.
func NextApprovalStatus(current ApprovalStatus, action ApprovalAction) (ApprovalStatus, error) {
	if current == "" {
		current = ApprovalNone
	}
	switch action {
	case ApprovalActionRequest:
		return ApprovalPending, nil
	case ApprovalActionApprove:
		if current != ApprovalPending {
			return "", fmt.Errorf("cannot approve from status %q", current)
		}
		return ApprovalApproved, nil
	case ApprovalActionReject:
		if current != ApprovalPending {
			return "", fmt.Errorf("cannot reject from status %q", current)
		}
		return ApprovalRejected, nil
	}
	return "", fmt.Errorf("unknown approval action %q", action)
}

// ApplyApprovalAction transitions the event and appends to the append-only
// approval timestamp map.
func (e *CampaignEvent) ApplyApprovalAction(action ApprovalAction, now time.Time) error {
	next, err := NextApprovalStatus(e.ApprovalStatus, action)
	if err != nil {
		return err
	}
	e.ApprovalStatus = next
	if e.ApprovalTimestamps == nil {
		e.ApprovalTimestamps = map[string]time.Time{}
	}
	e.ApprovalTimestamps[string(next)] = now
	e.LastModified = now
	return nil
}
