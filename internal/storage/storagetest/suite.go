// Package storagetest holds behaviour every storage backend must share
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/realmkeeper/internal/model"
	"github.com/mcoot/realmkeeper/internal/storage"
)

// Suite is embedded by each backend's test suite. The backend assigns Store
// (and Ctx if it needs one) in its own SetupTest.
type Suite struct {
	suite.Suite
	Store storage.Storage
	Ctx   context.Context
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func (s *Suite) ctx() context.Context {
	if s.Ctx == nil {
		return context.Background()
	}
	return s.Ctx
}

func (s *Suite) seedKingdom(id model.KingdomID, owner model.AccountID, cities ...model.CityID) *model.Kingdom {
	k := &model.Kingdom{
		ID:        id,
		Name:      "Kingdom " + string(id),
		Ruler:     "Ruler",
		OwnerID:   owner,
		CreatedAt: base,
		UpdatedAt: base,
	}
	for i, cityID := range cities {
		k.Cities = append(k.Cities, model.City{
			ID:         cityID,
			KingdomID:  id,
			Name:       "City " + string(cityID),
			Population: i + 1,
		})
	}
	s.Require().NoError(s.Store.CreateKingdom(s.ctx(), k))
	return k
}

// Account tests

func (s *Suite) TestCreateAndGetAccount() {
	acc := &model.Account{ID: "acc-1", Username: "alice", Email: "Alice@Example.com", IsActive: true, CreatedAt: base}
	s.Require().NoError(s.Store.CreateAccount(s.ctx(), acc))

	byID, err := s.Store.GetAccount(s.ctx(), "acc-1")
	s.Require().NoError(err)
	s.Equal("alice", byID.Username)

	byName, err := s.Store.GetAccountByUsername(s.ctx(), "alice")
	s.Require().NoError(err)
	s.Equal(acc.ID, byName.ID)

	byEmail, err := s.Store.GetAccountByEmail(s.ctx(), "alice@example.com")
	s.Require().NoError(err)
	s.Equal(acc.ID, byEmail.ID)
}

func (s *Suite) TestCreateAccountDuplicates() {
	s.Require().NoError(s.Store.CreateAccount(s.ctx(), &model.Account{ID: "acc-1", Username: "alice", Email: "a@x.io"}))

	err := s.Store.CreateAccount(s.ctx(), &model.Account{ID: "acc-2", Username: "alice", Email: "b@x.io"})
	s.ErrorIs(err, model.ErrUsernameTaken)

	err = s.Store.CreateAccount(s.ctx(), &model.Account{ID: "acc-3", Username: "bob", Email: "A@X.io"})
	s.ErrorIs(err, model.ErrEmailTaken)

	_, err = s.Store.GetAccount(s.ctx(), "acc-2")
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *Suite) TestUpdateAccount() {
	s.Require().NoError(s.Store.CreateAccount(s.ctx(), &model.Account{ID: "acc-1", Username: "alice", Email: "a@x.io"}))

	updated, err := s.Store.UpdateAccount(s.ctx(), "acc-1", func(a *model.Account) error {
		a.ActiveKingdomID = "k-1"
		a.Username = "mallory"
		return nil
	})
	s.Require().NoError(err)
	s.Equal(model.KingdomID("k-1"), updated.ActiveKingdomID)
	s.Equal("alice", updated.Username)

	got, err := s.Store.GetAccountByUsername(s.ctx(), "alice")
	s.Require().NoError(err)
	s.Equal(model.KingdomID("k-1"), got.ActiveKingdomID)

	_, err = s.Store.UpdateAccount(s.ctx(), "ghost", func(*model.Account) error { return nil })
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *Suite) TestUpdateAccountAbortLeavesStoredCopy() {
	s.Require().NoError(s.Store.CreateAccount(s.ctx(), &model.Account{ID: "acc-1", Username: "alice", Email: "a@x.io"}))

	boom := fmt.Errorf("boom")
	_, err := s.Store.UpdateAccount(s.ctx(), "acc-1", func(a *model.Account) error {
		a.IsSuperAdmin = true
		return boom
	})
	s.ErrorIs(err, boom)

	got, err := s.Store.GetAccount(s.ctx(), "acc-1")
	s.Require().NoError(err)
	s.False(got.IsSuperAdmin)
}

func (s *Suite) TestConcurrentAccountUpdatesKeepEveryField() {
	s.Require().NoError(s.Store.CreateAccount(s.ctx(), &model.Account{ID: "acc-1", Username: "alice", Email: "a@x.io"}))

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			at := time.Unix(int64(i), 0).UTC()
			_, err := s.Store.UpdateAccount(s.ctx(), "acc-1", func(a *model.Account) error {
				a.LastLogin = &at
				return nil
			})
			s.NoError(err)
		}()
	}
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := s.Store.UpdateAccount(s.ctx(), "acc-1", func(a *model.Account) error {
			a.IsSuperAdmin = true
			return nil
		})
		s.NoError(err)
	}()
	go func() {
		defer wg.Done()
		_, err := s.Store.UpdateAccount(s.ctx(), "acc-1", func(a *model.Account) error {
			a.ActiveKingdomID = "k-9"
			return nil
		})
		s.NoError(err)
	}()
	wg.Wait()

	got, err := s.Store.GetAccount(s.ctx(), "acc-1")
	s.Require().NoError(err)
	s.True(got.IsSuperAdmin)
	s.Equal(model.KingdomID("k-9"), got.ActiveKingdomID)
	s.NotNil(got.LastLogin)
}

func (s *Suite) TestAccountNotFound() {
	_, err := s.Store.GetAccount(s.ctx(), "nope")
	s.ErrorIs(err, model.ErrAccountNotFound)
	_, err = s.Store.GetAccountByUsername(s.ctx(), "nope")
	s.ErrorIs(err, model.ErrAccountNotFound)
	_, err = s.Store.GetAccountByEmail(s.ctx(), "nope@x.io")
	s.ErrorIs(err, model.ErrAccountNotFound)
}

// Kingdom tests

func (s *Suite) TestCreateAndGetKingdom() {
	s.seedKingdom("k-1", "acc-1", "c-1", "c-2")

	got, err := s.Store.GetKingdom(s.ctx(), "k-1")
	s.Require().NoError(err)
	s.Equal("Kingdom k-1", got.Name)
	s.Len(got.Cities, 2)
	s.Equal(3, got.TotalPopulation)

	kid, err := s.Store.KingdomIDForCity(s.ctx(), "c-2")
	s.Require().NoError(err)
	s.Equal(model.KingdomID("k-1"), kid)
}

func (s *Suite) TestGetKingdomNotFound() {
	_, err := s.Store.GetKingdom(s.ctx(), "nope")
	s.ErrorIs(err, model.ErrKingdomNotFound)

	_, err = s.Store.KingdomIDForCity(s.ctx(), "nope")
	s.ErrorIs(err, model.ErrCityNotFound)
}

func (s *Suite) TestListKingdomsByOwner() {
	s.seedKingdom("k-1", "acc-1")
	s.seedKingdom("k-2", "acc-2")
	s.seedKingdom("k-3", "acc-1")
	s.seedKingdom("k-legacy", "")

	all, err := s.Store.ListKingdoms(s.ctx())
	s.Require().NoError(err)
	s.Len(all, 4)

	mine, err := s.Store.ListKingdomsByOwner(s.ctx(), "acc-1")
	s.Require().NoError(err)
	s.Require().Len(mine, 2)
	s.Equal(model.KingdomID("k-1"), mine[0].ID)
	s.Equal(model.KingdomID("k-3"), mine[1].ID)

	none, err := s.Store.ListKingdomsByOwner(s.ctx(), "acc-9")
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *Suite) TestUpdateKingdomPreservesOwnerAndRecomputes() {
	s.seedKingdom("k-1", "acc-1", "c-1")

	updated, err := s.Store.UpdateKingdom(s.ctx(), "k-1", func(k *model.Kingdom) error {
		k.OwnerID = "intruder"
		k.Name = "Renamed"
		return k.City("c-1").Append(model.Citizen{ID: "r-1", CityID: "c-1"})
	})
	s.Require().NoError(err)
	s.Equal(model.AccountID("acc-1"), updated.OwnerID)
	s.Equal(2, updated.TotalPopulation)

	got, err := s.Store.GetKingdom(s.ctx(), "k-1")
	s.Require().NoError(err)
	s.Equal("Renamed", got.Name)
	s.Equal(model.AccountID("acc-1"), got.OwnerID)
	s.Len(got.City("c-1").Citizens, 1)
}

func (s *Suite) TestUpdateKingdomAbortLeavesStoredCopy() {
	s.seedKingdom("k-1", "acc-1", "c-1")

	boom := fmt.Errorf("boom")
	_, err := s.Store.UpdateKingdom(s.ctx(), "k-1", func(k *model.Kingdom) error {
		k.Name = "Half done"
		return boom
	})
	s.ErrorIs(err, boom)

	got, err := s.Store.GetKingdom(s.ctx(), "k-1")
	s.Require().NoError(err)
	s.Equal("Kingdom k-1", got.Name)
}

func (s *Suite) TestUpdateKingdomMaintainsCityIndex() {
	s.seedKingdom("k-1", "acc-1", "c-1")

	_, err := s.Store.UpdateKingdom(s.ctx(), "k-1", func(k *model.Kingdom) error {
		k.RemoveCity("c-1")
		k.Cities = append(k.Cities, model.City{ID: "c-9", KingdomID: "k-1", Name: "New"})
		return nil
	})
	s.Require().NoError(err)

	_, err = s.Store.KingdomIDForCity(s.ctx(), "c-1")
	s.ErrorIs(err, model.ErrCityNotFound)
	kid, err := s.Store.KingdomIDForCity(s.ctx(), "c-9")
	s.Require().NoError(err)
	s.Equal(model.KingdomID("k-1"), kid)
}

func (s *Suite) TestUpdateMissingKingdom() {
	_, err := s.Store.UpdateKingdom(s.ctx(), "nope", func(*model.Kingdom) error { return nil })
	s.ErrorIs(err, model.ErrKingdomNotFound)
}

func (s *Suite) TestConcurrentUpdatesAreNotLost() {
	s.seedKingdom("k-1", "acc-1", "c-1")

	const writers = 8
	const perWriter = 5
	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWriter {
				id := model.RecordID(fmt.Sprintf("r-%d-%d", w, i))
				_, err := s.Store.UpdateKingdom(s.ctx(), "k-1", func(k *model.Kingdom) error {
					return k.City("c-1").Append(model.Citizen{ID: id, CityID: "c-1"})
				})
				s.NoError(err)
			}
		}()
	}
	wg.Wait()

	got, err := s.Store.GetKingdom(s.ctx(), "k-1")
	s.Require().NoError(err)
	s.Len(got.City("c-1").Citizens, writers*perWriter)
	s.Equal(1+writers*perWriter, got.City("c-1").Population)
	s.Equal(got.City("c-1").Population, got.TotalPopulation)
}

func (s *Suite) TestDeleteKingdom() {
	s.seedKingdom("k-1", "acc-1", "c-1")

	s.Require().NoError(s.Store.DeleteKingdom(s.ctx(), "k-1"))

	_, err := s.Store.GetKingdom(s.ctx(), "k-1")
	s.ErrorIs(err, model.ErrKingdomNotFound)
	_, err = s.Store.KingdomIDForCity(s.ctx(), "c-1")
	s.ErrorIs(err, model.ErrCityNotFound)
	mine, err := s.Store.ListKingdomsByOwner(s.ctx(), "acc-1")
	s.Require().NoError(err)
	s.Empty(mine)

	s.ErrorIs(s.Store.DeleteKingdom(s.ctx(), "k-1"), model.ErrKingdomNotFound)
}

// Event tests

func (s *Suite) appendEvents(n int, owner model.AccountID, kingdom model.KingdomID, prefix string) {
	for i := range n {
		s.Require().NoError(s.Store.AppendEvent(s.ctx(), &model.Event{
			ID:          model.EventID(fmt.Sprintf("%s-%02d", prefix, i)),
			Description: "event",
			OwnerID:     owner,
			KingdomID:   kingdom,
			EventType:   model.EventCityUpdated,
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func (s *Suite) TestListEventsNewestFirst() {
	s.appendEvents(5, "acc-1", "k-1", "a")

	events, err := s.Store.ListEvents(s.ctx(), model.EventQuery{Limit: 3})
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	s.Equal(model.EventID("a-04"), events[0].ID)
	s.Equal(model.EventID("a-02"), events[2].ID)

	page, err := s.Store.ListEvents(s.ctx(), model.EventQuery{Limit: 3, Offset: 3})
	s.Require().NoError(err)
	s.Require().Len(page, 2)
	s.Equal(model.EventID("a-01"), page[0].ID)
}

func (s *Suite) TestListEventsByOwnerAndKingdom() {
	s.appendEvents(3, "acc-1", "k-1", "a")
	s.appendEvents(2, "acc-2", "k-2", "b")
	s.appendEvents(2, "", "", "legacy")

	mine, err := s.Store.ListEvents(s.ctx(), model.EventQuery{OwnerID: "acc-1"})
	s.Require().NoError(err)
	s.Len(mine, 3)
	for _, e := range mine {
		s.Equal(model.AccountID("acc-1"), e.OwnerID)
	}

	all, err := s.Store.ListEvents(s.ctx(), model.EventQuery{})
	s.Require().NoError(err)
	s.Len(all, 7)

	crossTenant, err := s.Store.ListEvents(s.ctx(), model.EventQuery{OwnerID: "acc-1", KingdomID: "k-2"})
	s.Require().NoError(err)
	s.Empty(crossTenant)

	byKingdom, err := s.Store.ListEvents(s.ctx(), model.EventQuery{OwnerID: "acc-2", KingdomID: "k-2", Limit: 1, Offset: 1})
	s.Require().NoError(err)
	s.Require().Len(byKingdom, 1)
	s.Equal(model.EventID("b-00"), byKingdom[0].ID)
}

func (s *Suite) TestListEventsOffsetPastEnd() {
	s.appendEvents(2, "acc-1", "k-1", "a")

	events, err := s.Store.ListEvents(s.ctx(), model.EventQuery{Offset: 10})
	s.Require().NoError(err)
	s.Empty(events)
}

// Backfill tests

func (s *Suite) TestBackfillOwnerIsIdempotent() {
	s.seedKingdom("k-legacy", "")
	s.seedKingdom("k-owned", "acc-1")
	s.appendEvents(2, "", "k-legacy", "legacy")
	s.Require().NoError(s.Store.SaveCalendarEvent(s.ctx(), &model.CalendarEvent{ID: "cal-1", Title: "Harvest"}))
	s.Require().NoError(s.Store.SaveBoundary(s.ctx(), &model.Boundary{ID: "b-1", Name: "Border", OwnerID: "acc-1"}))

	want := map[model.Collection]int{
		model.CollectionKingdoms:       1,
		model.CollectionEvents:         2,
		model.CollectionCalendarEvents: 1,
		model.CollectionBoundaries:     0,
	}
	for _, c := range model.OwnedCollections {
		n, err := s.Store.BackfillOwner(s.ctx(), c, "admin-1")
		s.Require().NoError(err)
		s.Equal(want[c], n, string(c))
	}
	for _, c := range model.OwnedCollections {
		n, err := s.Store.BackfillOwner(s.ctx(), c, "admin-1")
		s.Require().NoError(err)
		s.Zero(n, string(c))
	}

	legacy, err := s.Store.GetKingdom(s.ctx(), "k-legacy")
	s.Require().NoError(err)
	s.Equal(model.AccountID("admin-1"), legacy.OwnerID)

	owned, err := s.Store.GetKingdom(s.ctx(), "k-owned")
	s.Require().NoError(err)
	s.Equal(model.AccountID("acc-1"), owned.OwnerID)

	adminKingdoms, err := s.Store.ListKingdomsByOwner(s.ctx(), "admin-1")
	s.Require().NoError(err)
	s.Len(adminKingdoms, 1)

	adminEvents, err := s.Store.ListEvents(s.ctx(), model.EventQuery{OwnerID: "admin-1"})
	s.Require().NoError(err)
	s.Len(adminEvents, 2)
}

func (s *Suite) TestBackfillUnknownCollection() {
	_, err := s.Store.BackfillOwner(s.ctx(), "dragons", "admin-1")
	s.ErrorIs(err, model.ErrValidation)
}
