package storage

import (
	"context"

	"github.com/mcoot/realmkeeper/internal/model"
)

// MutateFunc edits a private copy of a kingdom inside an atomic update.
// It may run more than once when an optimistic update is retried, so it must
// only touch the kingdom it is given. Returning an error aborts the update.
type MutateFunc func(k *model.Kingdom) error

// AccountMutateFunc edits a private copy of an account inside an atomic
// update. Like MutateFunc it may be retried.
type AccountMutateFunc func(a *model.Account) error

// AccountStore persists credentials in a namespace isolated from game data
type AccountStore interface {
	// CreateAccount inserts a new account, enforcing unique username and email.
	// Returns model.ErrUsernameTaken or model.ErrEmailTaken on collision.
	CreateAccount(ctx context.Context, account *model.Account) error
	// UpdateAccount applies fn atomically. The id, username and email are
	// preserved, so concurrent writers of different fields never undo each other.
	UpdateAccount(ctx context.Context, id model.AccountID, fn AccountMutateFunc) (*model.Account, error)
	GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
}

// KingdomStore persists kingdom aggregates, one document per kingdom
type KingdomStore interface {
	CreateKingdom(ctx context.Context, kingdom *model.Kingdom) error
	GetKingdom(ctx context.Context, id model.KingdomID) (*model.Kingdom, error)
	// ListKingdoms returns every kingdom regardless of owner
	ListKingdoms(ctx context.Context) ([]*model.Kingdom, error)
	ListKingdomsByOwner(ctx context.Context, owner model.AccountID) ([]*model.Kingdom, error)
	// UpdateKingdom applies fn atomically. The owner and id are preserved and
	// total_population is recomputed from the cities before the write.
	UpdateKingdom(ctx context.Context, id model.KingdomID, fn MutateFunc) (*model.Kingdom, error)
	DeleteKingdom(ctx context.Context, id model.KingdomID) error
	// KingdomIDForCity resolves a city to the kingdom that embeds it
	KingdomIDForCity(ctx context.Context, cityID model.CityID) (model.KingdomID, error)
}

// EventStore persists the append-only narrative log
type EventStore interface {
	AppendEvent(ctx context.Context, event *model.Event) error
	// ListEvents returns events newest first
	ListEvents(ctx context.Context, query model.EventQuery) ([]*model.Event, error)
}

// DocumentStore covers the owned documents that are managed elsewhere
// (calendar events, boundaries) and owner back-filling across collections
type DocumentStore interface {
	SaveCalendarEvent(ctx context.Context, event *model.CalendarEvent) error
	SaveBoundary(ctx context.Context, boundary *model.Boundary) error
	// BackfillOwner sets owner_id on every document of the collection that
	// lacks one and returns how many documents were modified
	BackfillOwner(ctx context.Context, collection model.Collection, owner model.AccountID) (int, error)
}

// Storage defines the interface for data persistence
type Storage interface {
	AccountStore
	KingdomStore
	EventStore
	DocumentStore
}
