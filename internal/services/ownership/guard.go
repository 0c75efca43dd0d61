// Package ownership decides which kingdoms a principal may see and change.
// A kingdom owned by someone else is reported exactly as a missing one.
package ownership

import (
	"context"
	"errors"

	"github.com/mcoot/realmkeeper/internal/model"
	"github.com/mcoot/realmkeeper/internal/storage"
)

// Guard enforces owner partitioning over the kingdom store
type Guard struct {
	store storage.KingdomStore
}

// New creates a Guard
func New(store storage.KingdomStore) *Guard {
	return &Guard{store: store}
}

// CheckKingdom fails with ErrKingdomNotFound unless p may act on k
func CheckKingdom(p model.Principal, k *model.Kingdom) error {
	if k == nil || !p.Owns(k.OwnerID) {
		return model.ErrKingdomNotFound
	}
	return nil
}

// RequireSuperAdmin guards admin-only operations
func RequireSuperAdmin(p model.Principal) error {
	if !p.SuperAdmin {
		return model.ErrForbidden
	}
	return nil
}

// VisibleKingdoms lists every kingdom for a super-admin, otherwise only the caller's own
func (g *Guard) VisibleKingdoms(ctx context.Context, p model.Principal) ([]*model.Kingdom, error) {
	if p.SuperAdmin {
		return g.store.ListKingdoms(ctx)
	}
	return g.store.ListKingdomsByOwner(ctx, p.AccountID)
}

// Kingdom loads a kingdom the caller may see
func (g *Guard) Kingdom(ctx context.Context, p model.Principal, id model.KingdomID) (*model.Kingdom, error) {
	k, err := g.store.GetKingdom(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CheckKingdom(p, k); err != nil {
		return nil, err
	}
	return k, nil
}

// KingdomForCity resolves a city id to the kingdom that holds it.
// Cities in kingdoms the caller cannot see are reported as missing cities.
func (g *Guard) KingdomForCity(ctx context.Context, p model.Principal, cityID model.CityID) (*model.Kingdom, error) {
	kingdomID, err := g.store.KingdomIDForCity(ctx, cityID)
	if err != nil {
		return nil, err
	}
	k, err := g.Kingdom(ctx, p, kingdomID)
	if errors.Is(err, model.ErrKingdomNotFound) {
		return nil, model.ErrCityNotFound
	}
	if err != nil {
		return nil, err
	}
	if k.City(cityID) == nil {
		return nil, model.ErrCityNotFound
	}
	return k, nil
}

// EventQuery scopes an event listing to what the caller may read
func EventQuery(p model.Principal, kingdomID model.KingdomID, limit, offset int) model.EventQuery {
	q := model.EventQuery{KingdomID: kingdomID, Limit: limit, Offset: offset}
	if !p.SuperAdmin {
		q.OwnerID = p.AccountID
	}
	return q
}
