package model

// Collection names a family of owned documents
type Collection string

const (
	CollectionKingdoms       Collection = "kingdoms"
	CollectionEvents         Collection = "events"
	CollectionCalendarEvents Collection = "calendar_events"
	CollectionBoundaries     Collection = "boundaries"
)

// OwnedCollections lists every collection that carries an owner_id
var OwnedCollections = []Collection{
	CollectionKingdoms,
	CollectionEvents,
	CollectionCalendarEvents,
	CollectionBoundaries,
}

// CalendarEvent is a dated entry on the campaign calendar.
// Date arithmetic lives outside this service; only ownership is tracked here.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Date        string    `json:"date,omitempty"`
	KingdomID   KingdomID `json:"kingdom_id,omitempty"`
	OwnerID     AccountID `json:"owner_id,omitempty"`
}

// Boundary is a map polygon. Geometry is opaque to this service.
type Boundary struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	KingdomID KingdomID    `json:"kingdom_id,omitempty"`
	Points    [][2]float64 `json:"points,omitempty"`
	OwnerID   AccountID    `json:"owner_id,omitempty"`
}
