package factory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/realmkeeper/internal/model"
	"github.com/mcoot/realmkeeper/internal/realtime"
	"github.com/mcoot/realmkeeper/internal/services/auth"
	"github.com/mcoot/realmkeeper/internal/services/generation"
	"github.com/mcoot/realmkeeper/internal/services/kingdom"
	"github.com/mcoot/realmkeeper/internal/services/ownership"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) TearDownTest() {
	s.Require().NoError(s.app.Close())
}

func (s *IntegrationSuite) signup(username string) model.Principal {
	session, err := s.app.AuthService.Signup(s.ctx, auth.SignupInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	})
	s.Require().NoError(err)
	p, err := s.app.AuthService.Authenticate(s.ctx, session.Token.Value)
	s.Require().NoError(err)
	return p
}

func (s *IntegrationSuite) foundCity(p model.Principal, kingdomName string, population int) (*model.Kingdom, *model.City) {
	k, warnings, err := s.app.KingdomService.CreateKingdom(s.ctx, p, kingdom.NewKingdom{Name: kingdomName, Ruler: "Queen Maud"})
	s.Require().NoError(err)
	s.Empty(warnings)
	_, err = s.app.KingdomService.ActivateKingdom(s.ctx, p, k.ID)
	s.Require().NoError(err)
	city, _, err := s.app.KingdomService.CreateCity(s.ctx, p, kingdom.NewCity{Name: "Ashford", Population: population})
	s.Require().NoError(err)
	return k, city
}

// Test: a game master founds a kingdom, populates a city and reads the log
func (s *IntegrationSuite) TestKingdomLifecycle() {
	alice := s.signup("alice")
	k, city := s.foundCity(alice, "Avalon", 5)
	s.Equal(k.ID, city.KingdomID)

	result, err := s.app.GenerationEngine.Generate(s.ctx, alice, generation.Request{
		RegistryType: "citizens",
		CityID:       city.ID,
		Count:        2,
	})
	s.Require().NoError(err)
	s.Equal(2, result.Count)
	s.Empty(result.Warnings)

	got, err := s.app.KingdomService.GetCity(s.ctx, alice, city.ID)
	s.Require().NoError(err)
	s.Equal(7, got.Population)
	s.Len(got.Citizens, 2)

	reloaded, err := s.app.KingdomService.GetKingdom(s.ctx, alice, k.ID)
	s.Require().NoError(err)
	s.Equal(7, reloaded.TotalPopulation)

	s.app.MockClock.Advance(time.Minute)
	_, err = s.app.KingdomService.RemoveRecord(s.ctx, alice, city.ID, model.RegistryCitizens, result.Items[0].RecordID())
	s.Require().NoError(err)

	log, err := s.app.Recorder.List(s.ctx, ownership.EventQuery(alice, "", 0, 0))
	s.Require().NoError(err)
	s.Require().Len(log, 4)
	s.Equal(model.EventRecordRemoved, log[0].EventType)
	s.Equal(model.EventAutoGenerated, log[1].EventType)
	s.Equal(model.EventCityCreated, log[2].EventType)
	s.Equal(model.EventKingdomCreated, log[3].EventType)
	for _, e := range log {
		s.Equal(alice.AccountID, e.OwnerID)
	}
}

// Test: tenants never see each other's kingdoms, cities or events
func (s *IntegrationSuite) TestTenantIsolation() {
	alice := s.signup("alice")
	bob := s.signup("bob")
	aliceKingdom, aliceCity := s.foundCity(alice, "Avalon", 0)
	s.foundCity(bob, "Brittany", 0)

	visible, err := s.app.KingdomService.ListKingdoms(s.ctx, bob)
	s.Require().NoError(err)
	s.Require().Len(visible, 1)
	s.Equal(bob.AccountID, visible[0].OwnerID)

	_, err = s.app.KingdomService.GetKingdom(s.ctx, bob, aliceKingdom.ID)
	s.ErrorIs(err, model.ErrKingdomNotFound)

	_, err = s.app.KingdomService.GetCity(s.ctx, bob, aliceCity.ID)
	s.ErrorIs(err, model.ErrCityNotFound)

	_, err = s.app.GenerationEngine.Generate(s.ctx, bob, generation.Request{RegistryType: "slaves", CityID: aliceCity.ID, Count: 1})
	s.ErrorIs(err, model.ErrCityNotFound)

	bobLog, err := s.app.Recorder.List(s.ctx, ownership.EventQuery(bob, "", 0, 0))
	s.Require().NoError(err)
	for _, e := range bobLog {
		s.Equal(bob.AccountID, e.OwnerID)
	}
}

// Test: the super-admin sees every tenant and can edit without taking ownership
func (s *IntegrationSuite) TestSuperAdminOversight() {
	alice := s.signup("alice")
	bob := s.signup("bob")
	_, err := s.app.AuthService.Signup(s.ctx, auth.SignupInput{Username: "admin", Email: "mallory@example.com", Password: "password123"})
	s.ErrorIs(err, model.ErrValidation)

	_, err = s.app.Migrator.Run(s.ctx)
	s.Require().NoError(err)
	session, err := s.app.AuthService.Login(s.ctx, "admin", "ChangeMe123!")
	s.Require().NoError(err)
	admin := s.app.AuthService.PrincipalFor(session.Account)
	s.True(admin.SuperAdmin)

	aliceKingdom, _ := s.foundCity(alice, "Avalon", 0)
	s.foundCity(bob, "Brittany", 0)

	all, err := s.app.KingdomService.ListKingdoms(s.ctx, admin)
	s.Require().NoError(err)
	s.Len(all, 2)

	renamed := "Avalon Reborn"
	k, _, err := s.app.KingdomService.UpdateKingdom(s.ctx, admin, aliceKingdom.ID, kingdom.KingdomPatch{Name: &renamed})
	s.Require().NoError(err)
	s.Equal(alice.AccountID, k.OwnerID)

	log, err := s.app.Recorder.List(s.ctx, ownership.EventQuery(alice, aliceKingdom.ID, 1, 0))
	s.Require().NoError(err)
	s.Require().Len(log, 1)
	s.Equal(model.EventKingdomUpdated, log[0].EventType)
}

// Test: generated batches reach the owner's realtime clients through the hub
func (s *IntegrationSuite) TestRecorderBroadcastsThroughHub() {
	s.IsType(&realtime.Hub{}, s.app.Hub)

	alice := s.signup("alice")
	_, city := s.foundCity(alice, "Avalon", 0)
	_, err := s.app.GenerationEngine.Generate(s.ctx, alice, generation.Request{RegistryType: "livestock", CityID: city.ID, Count: 3})
	s.Require().NoError(err)
	s.Equal(0, s.app.Hub.ClientCount())
}

// Test: migration adopts orphaned documents and is idempotent
func (s *IntegrationSuite) TestMigrationAdoptsLegacyData() {
	legacy := &model.Kingdom{ID: "legacy", Name: "Old Realm", Cities: []model.City{}, CreatedAt: s.app.MockClock.Now()}
	s.Require().NoError(s.app.Storage.CreateKingdom(s.ctx, legacy))

	report, err := s.app.Migrator.Run(s.ctx)
	s.Require().NoError(err)
	s.True(report.AdminCreated)
	s.Equal(1, report.KingdomsUpdated)

	k, err := s.app.Storage.GetKingdom(s.ctx, "legacy")
	s.Require().NoError(err)
	s.Equal(report.AdminID, k.OwnerID)

	again, err := s.app.Migrator.Run(s.ctx)
	s.Require().NoError(err)
	s.False(again.AdminCreated)
	s.Zero(again.KingdomsUpdated)

	session, err := s.app.AuthService.Login(s.ctx, "admin", "ChangeMe123!")
	s.Require().NoError(err)
	s.True(session.Account.IsSuperAdmin)
}

func TestNewRejectsUnknownStorage(t *testing.T) {
	_, err := New(Config{StorageType: "mongo"})
	if err == nil {
		t.Fatal("expected error for unknown storage type")
	}
}

func TestNewRequiresTokenSecret(t *testing.T) {
	_, err := New(Config{})
	if err == nil {
		t.Fatal("expected error for missing token secret")
	}
}
