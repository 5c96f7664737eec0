package events

import (
	"time"

	"github.com/google/uuid"
)

// Type names an ad lifecycle event.
type Type string

const (
	TypeLoaded       Type = "loaded"
	TypeFailedToLoad Type = "failed_to_load"
	TypeOpened       Type = "opened"
	TypeClicked      Type = "clicked"
	TypeClosed       Type = "closed"
	TypeImpression   Type = "impression"
)

// Event represents an ad lifecycle event delivered downstream.
type Event struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	SlotID      string    `json:"slot_id"`
	AdUnitID    string    `json:"ad_unit_id"`
	PublisherID string    `json:"publisher_id,omitempty"`
	Error       string    `json:"error,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewEvent constructs an Event for the given slot.
func NewEvent(typ Type, slotID, adUnitID, publisherID string) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        typ,
		SlotID:      slotID,
		AdUnitID:    adUnitID,
		PublisherID: publisherID,
		OccurredAt:  time.Now().UTC(),
	}
}

// attributes are copied onto transports that support message attributes.
func (e Event) attributes() map[string]string {
	attrs := map[string]string{
		"event_type": string(e.Type),
		"slot_id":    e.SlotID,
	}
	if e.AdUnitID != "" {
		attrs["ad_unit_id"] = e.AdUnitID
	}
	return attrs
}
