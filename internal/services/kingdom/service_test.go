package kingdom

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/realmkeeper/internal/dependencies/mocks"
	"github.com/mcoot/realmkeeper/internal/model"
	"github.com/mcoot/realmkeeper/internal/services/events"
	"github.com/mcoot/realmkeeper/internal/services/ownership"
	"github.com/mcoot/realmkeeper/internal/storage/memory"
	"github.com/mcoot/realmkeeper/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context

	alice model.Principal
	bob   model.Principal
	admin model.Principal
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	logger := testutil.NopLogger()
	recorder := events.NewRecorder(s.storage, nil, s.clock, mocks.NewMockIDs("evt"), logger)
	s.service = New(s.storage, s.storage, ownership.New(s.storage), recorder, s.clock, mocks.NewMockIDs("id"), logger)
	s.ctx = context.Background()

	for _, acc := range []*model.Account{
		{ID: "acc-alice", Username: "alice", Email: "alice@x.io", IsActive: true},
		{ID: "acc-bob", Username: "bob", Email: "bob@x.io", IsActive: true},
		{ID: "acc-admin", Username: "admin", Email: "admin@x.io", IsActive: true, IsSuperAdmin: true},
	} {
		s.Require().NoError(s.storage.CreateAccount(s.ctx, acc))
	}
	s.alice = model.Principal{AccountID: "acc-alice", Username: "alice"}
	s.bob = model.Principal{AccountID: "acc-bob", Username: "bob"}
	s.admin = model.Principal{AccountID: "acc-admin", Username: "admin", SuperAdmin: true}
}

func (s *ServiceSuite) createKingdom(p model.Principal, name string) *model.Kingdom {
	k, warnings, err := s.service.CreateKingdom(s.ctx, p, NewKingdom{Name: name, Ruler: "Someone"})
	s.Require().NoError(err)
	s.Empty(warnings)
	return k
}

func (s *ServiceSuite) createCity(p model.Principal, kingdomID model.KingdomID, population int) *model.City {
	c, _, err := s.service.CreateCity(s.ctx, p, NewCity{KingdomID: kingdomID, Name: "Camelot", Population: population})
	s.Require().NoError(err)
	return c
}

func (s *ServiceSuite) eventTypes(owner model.AccountID) []model.EventType {
	list, err := s.storage.ListEvents(s.ctx, model.EventQuery{OwnerID: owner})
	s.Require().NoError(err)
	out := make([]model.EventType, len(list))
	for i, e := range list {
		out[i] = e.EventType
	}
	return out
}

// Kingdom tests

func (s *ServiceSuite) TestCreateKingdomStampsOwner() {
	k := s.createKingdom(s.alice, "Avalon")

	s.Equal(model.AccountID("acc-alice"), k.OwnerID)
	s.Equal(s.clock.Now(), k.CreatedAt)
	s.Equal([]model.EventType{model.EventKingdomCreated}, s.eventTypes("acc-alice"))
}

func (s *ServiceSuite) TestCreateKingdomRequiresName() {
	_, _, err := s.service.CreateKingdom(s.ctx, s.alice, NewKingdom{Name: "  "})
	s.ErrorIs(err, model.ErrValidation)
}

func (s *ServiceSuite) TestListKingdomsIsolatesTenants() {
	s.createKingdom(s.alice, "Avalon")
	s.createKingdom(s.bob, "Lyonesse")

	mine, err := s.service.ListKingdoms(s.ctx, s.alice)
	s.Require().NoError(err)
	s.Require().Len(mine, 1)
	s.Equal("Avalon", mine[0].Name)

	all, err := s.service.ListKingdoms(s.ctx, s.admin)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *ServiceSuite) TestForeignKingdomIsNotFound() {
	k := s.createKingdom(s.alice, "Avalon")
	name := "Stolen"

	_, err := s.service.GetKingdom(s.ctx, s.bob, k.ID)
	s.ErrorIs(err, model.ErrKingdomNotFound)

	_, _, err = s.service.UpdateKingdom(s.ctx, s.bob, k.ID, KingdomPatch{Name: &name})
	s.ErrorIs(err, model.ErrKingdomNotFound)

	_, err = s.service.DeleteKingdom(s.ctx, s.bob, k.ID)
	s.ErrorIs(err, model.ErrKingdomNotFound)

	got, err := s.service.GetKingdom(s.ctx, s.alice, k.ID)
	s.Require().NoError(err)
	s.Equal("Avalon", got.Name)
}

func (s *ServiceSuite) TestUpdateKingdomPartial() {
	k := s.createKingdom(s.alice, "Avalon")
	treasury := 500
	s.clock.Advance(time.Hour)

	updated, _, err := s.service.UpdateKingdom(s.ctx, s.alice, k.ID, KingdomPatch{RoyalTreasury: &treasury})
	s.Require().NoError(err)
	s.Equal("Avalon", updated.Name)
	s.Equal(500, updated.RoyalTreasury)
	s.Equal(s.clock.Now(), updated.UpdatedAt)
}

func (s *ServiceSuite) TestAdminUpdatePreservesOwner() {
	k := s.createKingdom(s.alice, "Avalon")
	name := "Avalon Reforged"

	updated, _, err := s.service.UpdateKingdom(s.ctx, s.admin, k.ID, KingdomPatch{Name: &name})
	s.Require().NoError(err)
	s.Equal(model.AccountID("acc-alice"), updated.OwnerID)

	// the event belongs to the kingdom's owner, not the admin
	s.Contains(s.eventTypes("acc-alice"), model.EventKingdomUpdated)
	s.Empty(s.eventTypes("acc-admin"))
}

func (s *ServiceSuite) TestDeleteKingdom() {
	k := s.createKingdom(s.alice, "Avalon")
	c := s.createCity(s.alice, k.ID, 3)

	_, err := s.service.DeleteKingdom(s.ctx, s.alice, k.ID)
	s.Require().NoError(err)

	_, err = s.service.GetKingdom(s.ctx, s.alice, k.ID)
	s.ErrorIs(err, model.ErrKingdomNotFound)
	_, err = s.service.GetCity(s.ctx, s.alice, c.ID)
	s.ErrorIs(err, model.ErrCityNotFound)
}

func (s *ServiceSuite) TestActivateKingdomDrivesCityCreation() {
	k := s.createKingdom(s.alice, "Avalon")

	_, _, err := s.service.CreateCity(s.ctx, s.alice, NewCity{Name: "Nowhere"})
	s.ErrorIs(err, model.ErrValidation)

	_, err = s.service.ActivateKingdom(s.ctx, s.alice, k.ID)
	s.Require().NoError(err)

	c, _, err := s.service.CreateCity(s.ctx, s.alice, NewCity{Name: "Camelot"})
	s.Require().NoError(err)
	s.Equal(k.ID, c.KingdomID)
}

func (s *ServiceSuite) TestActivateKingdomOnlyTouchesActiveKingdom() {
	k := s.createKingdom(s.bob, "Brittany")
	loggedIn := s.clock.Now()
	_, err := s.storage.UpdateAccount(s.ctx, s.bob.AccountID, func(a *model.Account) error {
		a.LastLogin = &loggedIn
		a.IsSuperAdmin = true
		return nil
	})
	s.Require().NoError(err)

	_, err = s.service.ActivateKingdom(s.ctx, s.bob, k.ID)
	s.Require().NoError(err)

	stored, err := s.storage.GetAccount(s.ctx, s.bob.AccountID)
	s.Require().NoError(err)
	s.Equal(k.ID, stored.ActiveKingdomID)
	s.True(stored.IsSuperAdmin)
	s.Require().NotNil(stored.LastLogin)
	s.Equal(loggedIn, *stored.LastLogin)
}

func (s *ServiceSuite) TestActivateForeignKingdom() {
	k := s.createKingdom(s.alice, "Avalon")

	_, err := s.service.ActivateKingdom(s.ctx, s.bob, k.ID)
	s.ErrorIs(err, model.ErrKingdomNotFound)
}

// brokenEventLog refuses every append
type brokenEventLog struct {
	*memory.Storage
}

func (brokenEventLog) AppendEvent(context.Context, *model.Event) error {
	return errors.New("event log offline")
}

func (s *ServiceSuite) TestEventLogFailureKeepsWrites() {
	logger := testutil.NopLogger()
	recorder := events.NewRecorder(brokenEventLog{s.storage}, nil, s.clock, mocks.NewMockIDs("evt"), logger)
	service := New(s.storage, s.storage, ownership.New(s.storage), recorder, s.clock, mocks.NewMockIDs("id"), logger)

	k, warnings, err := service.CreateKingdom(s.ctx, s.alice, NewKingdom{Name: "Avalon"})
	s.Require().NoError(err)
	s.NotEmpty(warnings)

	c, warnings, err := service.CreateCity(s.ctx, s.alice, NewCity{KingdomID: k.ID, Name: "Camelot", Population: 4})
	s.Require().NoError(err)
	s.NotEmpty(warnings)

	stored, err := s.storage.GetKingdom(s.ctx, k.ID)
	s.Require().NoError(err)
	s.NotNil(stored.City(c.ID))
	s.Equal(4, stored.TotalPopulation)
	s.Empty(s.eventTypes(s.alice.AccountID))
}

// City tests

func (s *ServiceSuite) TestCreateCityUpdatesTotalPopulation() {
	k := s.createKingdom(s.alice, "Avalon")
	s.createCity(s.alice, k.ID, 5)
	s.createCity(s.alice, k.ID, 7)

	got, err := s.service.GetKingdom(s.ctx, s.alice, k.ID)
	s.Require().NoError(err)
	s.Equal(12, got.TotalPopulation)
}

func (s *ServiceSuite) TestCreateCityInForeignKingdom() {
	k := s.createKingdom(s.alice, "Avalon")

	_, _, err := s.service.CreateCity(s.ctx, s.bob, NewCity{KingdomID: k.ID, Name: "Outpost"})
	s.ErrorIs(err, model.ErrKingdomNotFound)
}

func (s *ServiceSuite) TestCreateCityRejectsNegativePopulation() {
	k := s.createKingdom(s.alice, "Avalon")

	_, _, err := s.service.CreateCity(s.ctx, s.alice, NewCity{KingdomID: k.ID, Name: "Camelot", Population: -1})
	s.ErrorIs(err, model.ErrValidation)
}

func (s *ServiceSuite) TestUpdateCity() {
	k := s.createKingdom(s.alice, "Avalon")
	c := s.createCity(s.alice, k.ID, 5)
	pop := 9
	gov := "Merlin"

	updated, _, err := s.service.UpdateCity(s.ctx, s.alice, c.ID, CityPatch{Population: &pop, Governor: &gov})
	s.Require().NoError(err)
	s.Equal(9, updated.Population)
	s.Equal("Merlin", updated.Governor)
	s.Equal("Camelot", updated.Name)

	got, err := s.service.GetKingdom(s.ctx, s.alice, k.ID)
	s.Require().NoError(err)
	s.Equal(9, got.TotalPopulation)
}

func (s *ServiceSuite) TestForeignCityIsNotFound() {
	k := s.createKingdom(s.alice, "Avalon")
	c := s.createCity(s.alice, k.ID, 5)
	pop := 0

	_, err := s.service.GetCity(s.ctx, s.bob, c.ID)
	s.ErrorIs(err, model.ErrCityNotFound)
	_, _, err = s.service.UpdateCity(s.ctx, s.bob, c.ID, CityPatch{Population: &pop})
	s.ErrorIs(err, model.ErrCityNotFound)
	_, err = s.service.DeleteCity(s.ctx, s.bob, c.ID)
	s.ErrorIs(err, model.ErrCityNotFound)

	city, err := s.service.GetCity(s.ctx, s.admin, c.ID)
	s.Require().NoError(err)
	s.Equal(5, city.Population)
}

func (s *ServiceSuite) TestDeleteCity() {
	k := s.createKingdom(s.alice, "Avalon")
	c := s.createCity(s.alice, k.ID, 5)

	_, err := s.service.DeleteCity(s.ctx, s.alice, c.ID)
	s.Require().NoError(err)

	got, err := s.service.GetKingdom(s.ctx, s.alice, k.ID)
	s.Require().NoError(err)
	s.Empty(got.Cities)
	s.Zero(got.TotalPopulation)
}

// Registry tests

func (s *ServiceSuite) TestAddCitizenRaisesPopulation() {
	k := s.createKingdom(s.alice, "Avalon")
	c := s.createCity(s.alice, k.ID, 5)

	rec, _, err := s.service.AddRecord(s.ctx, s.alice, c.ID, model.Citizen{Name: "Gareth", Age: 30})
	s.Require().NoError(err)
	s.NotEmpty(rec.RecordID())
	s.Equal(c.ID, rec.City())

	city, err := s.service.GetCity(s.ctx, s.alice, c.ID)
	s.Require().NoError(err)
	s.Equal(6, city.Population)
	s.Require().Len(city.Citizens, 1)
	s.Equal("Gareth", city.Citizens[0].Name)
	s.Equal(s.clock.Now(), city.Citizens[0].CreatedAt)
}

func (s *ServiceSuite) TestAddOfficial() {
	k := s.createKingdom(s.alice, "Avalon")
	c := s.createCity(s.alice, k.ID, 5)

	_, _, err := s.service.AddRecord(s.ctx, s.alice, c.ID, model.Official{Name: "Bedivere", Position: "Marshal", Salary: 100})
	s.Require().NoError(err)

	city, err := s.service.GetCity(s.ctx, s.alice, c.ID)
	s.Require().NoError(err)
	s.Len(city.GovernmentOfficials, 1)
	s.Equal(5, city.Population)
}

func (s *ServiceSuite) TestAddRecordValidation() {
	k := s.createKingdom(s.alice, "Avalon")
	c := s.createCity(s.alice, k.ID, 5)

	_, _, err := s.service.AddRecord(s.ctx, s.alice, c.ID, model.Citizen{Age: 30})
	s.ErrorIs(err, model.ErrValidation)
	_, _, err = s.service.AddRecord(s.ctx, s.alice, c.ID, model.Livestock{LivestockType: "cattle", Quantity: -2})
	s.ErrorIs(err, model.ErrValidation)
}

func (s *ServiceSuite) TestRemoveCitizenLowersPopulation() {
	k := s.createKingdom(s.alice, "Avalon")
	c := s.createCity(s.alice, k.ID, 5)
	rec, _, err := s.service.AddRecord(s.ctx, s.alice, c.ID, model.Citizen{Name: "Gareth"})
	s.Require().NoError(err)

	_, err = s.service.RemoveRecord(s.ctx, s.alice, c.ID, model.RegistryCitizens, rec.RecordID())
	s.Require().NoError(err)

	city, err := s.service.GetCity(s.ctx, s.alice, c.ID)
	s.Require().NoError(err)
	s.Equal(5, city.Population)
	s.Empty(city.Citizens)

	_, err = s.service.RemoveRecord(s.ctx, s.alice, c.ID, model.RegistryCitizens, rec.RecordID())
	s.ErrorIs(err, model.ErrRecordNotFound)
}

func (s *ServiceSuite) TestRegistryMutationsRecordEvents() {
	k := s.createKingdom(s.alice, "Avalon")
	c := s.createCity(s.alice, k.ID, 0)
	rec, _, err := s.service.AddRecord(s.ctx, s.alice, c.ID, model.Crime{Perpetrator: "Mordred", CrimeType: "treason"})
	s.Require().NoError(err)
	_, err = s.service.RemoveRecord(s.ctx, s.alice, c.ID, model.RegistryCrimes, rec.RecordID())
	s.Require().NoError(err)

	s.ElementsMatch([]model.EventType{
		model.EventKingdomCreated,
		model.EventCityCreated,
		model.EventRecordAdded,
		model.EventRecordRemoved,
	}, s.eventTypes("acc-alice"))
}
