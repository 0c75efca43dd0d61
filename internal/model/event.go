package model

import "time"

// EventID uniquely identifies a narrative event
type EventID string

// EventType identifies what kind of mutation an event narrates
type EventType string

const (
	EventKingdomCreated EventType = "kingdom_created"
	EventKingdomUpdated EventType = "kingdom_updated"
	EventKingdomDeleted EventType = "kingdom_deleted"
	EventCityCreated    EventType = "city_created"
	EventCityUpdated    EventType = "city_updated"
	EventCityDeleted    EventType = "city_deleted"
	EventRecordAdded    EventType = "registry_record_added"
	EventRecordRemoved  EventType = "registry_record_removed"
	EventAutoGenerated  EventType = "auto_generated"
)

// Event is an append-only entry in the narrative log
type Event struct {
	ID          EventID   `json:"id"`
	Description string    `json:"description"`
	CityName    string    `json:"city_name,omitempty"`
	KingdomName string    `json:"kingdom_name,omitempty"`
	KingdomID   KingdomID `json:"kingdom_id,omitempty"`
	OwnerID     AccountID `json:"owner_id,omitempty"`
	EventType   EventType `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
}

// EventQuery selects a window of the event log, newest first
type EventQuery struct {
	// OwnerID restricts results to one tenant; empty means every tenant
	OwnerID   AccountID
	KingdomID KingdomID
	Limit     int
	Offset    int
}
