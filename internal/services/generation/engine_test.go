package generation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/realmkeeper/internal/dependencies/mocks"
	"github.com/mcoot/realmkeeper/internal/dependencies/random"
	"github.com/mcoot/realmkeeper/internal/model"
	"github.com/mcoot/realmkeeper/internal/services/events"
	"github.com/mcoot/realmkeeper/internal/services/ownership"
	"github.com/mcoot/realmkeeper/internal/storage"
	"github.com/mcoot/realmkeeper/internal/storage/memory"
	"github.com/mcoot/realmkeeper/internal/testutil"
)

type EngineSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	engine  *Engine
	ctx     context.Context

	alice model.Principal
	bob   model.Principal
	admin model.Principal
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	logger := testutil.NopLogger()
	recorder := events.NewRecorder(s.storage, nil, s.clock, mocks.NewMockIDs("evt"), logger)
	s.engine = New(s.storage, ownership.New(s.storage), recorder, s.clock, mocks.NewMockIDs("rec"),
		random.NewSeeded(42), logger, Config{})
	s.ctx = context.Background()

	s.alice = model.Principal{AccountID: "acc-alice", Username: "alice"}
	s.bob = model.Principal{AccountID: "acc-bob", Username: "bob"}
	s.admin = model.Principal{AccountID: "acc-admin", Username: "admin", SuperAdmin: true}

	s.Require().NoError(s.storage.CreateKingdom(s.ctx, &model.Kingdom{
		ID:      "k-1",
		Name:    "Avalon",
		OwnerID: "acc-alice",
		Cities: []model.City{
			{ID: "c-1", KingdomID: "k-1", Name: "Camelot", Population: 5},
			{ID: "c-2", KingdomID: "k-1", Name: "Tintagel", Population: 3},
		},
	}))
}

// cityRemover deletes a city from the stored kingdom just before the engine's
// update runs, after the ownership lookup has already succeeded
type cityRemover struct {
	*memory.Storage
	cityID model.CityID
}

func (r *cityRemover) UpdateKingdom(ctx context.Context, id model.KingdomID, fn storage.MutateFunc) (*model.Kingdom, error) {
	if _, err := r.Storage.UpdateKingdom(ctx, id, func(k *model.Kingdom) error {
		k.RemoveCity(r.cityID)
		return nil
	}); err != nil {
		return nil, err
	}
	return r.Storage.UpdateKingdom(ctx, id, fn)
}

// brokenEventLog refuses every append
type brokenEventLog struct {
	*memory.Storage
}

func (brokenEventLog) AppendEvent(context.Context, *model.Event) error {
	return errors.New("event log offline")
}

func (s *EngineSuite) generate(p model.Principal, registry string, count int) *Result {
	res, err := s.engine.Generate(s.ctx, p, Request{RegistryType: registry, CityID: "c-1", Count: count})
	s.Require().NoError(err)
	return res
}

func (s *EngineSuite) city() *model.City {
	k, err := s.storage.GetKingdom(s.ctx, "k-1")
	s.Require().NoError(err)
	return k.City("c-1")
}

func (s *EngineSuite) TestGenerateCitizensRaisesPopulation() {
	res := s.generate(s.alice, "citizens", 2)

	s.Equal(2, res.Count)
	s.Len(res.Items, 2)
	s.Empty(res.Warnings)

	k, err := s.storage.GetKingdom(s.ctx, "k-1")
	s.Require().NoError(err)
	s.Equal(7, k.City("c-1").Population)
	s.Len(k.City("c-1").Citizens, 2)
	s.Equal(10, k.TotalPopulation)
}

func (s *EngineSuite) TestEveryGeneratableRegistry() {
	for _, registry := range model.GeneratableRegistries {
		before := s.city().RegistryLen(registry)
		res := s.generate(s.alice, string(registry), 5)

		s.Len(res.Items, 5, string(registry))
		for _, item := range res.Items {
			s.Equal(model.CityID("c-1"), item.City())
			s.Equal(registry, item.Registry())
			s.NotEmpty(item.RecordID())
		}
		s.Equal(before+5, s.city().RegistryLen(registry), string(registry))
	}
	// only citizens count towards population
	s.Equal(10, s.city().Population)
}

func (s *EngineSuite) TestSoldiersAlias() {
	res := s.generate(s.alice, "soldiers", 3)
	s.Len(s.city().Garrison, 3)
	s.Equal(model.RegistryGarrison, res.Items[0].Registry())
}

func (s *EngineSuite) TestAttributesComeFromTables() {
	for _, registry := range model.GeneratableRegistries {
		s.generate(s.alice, string(registry), 50)
	}
	c := s.city()

	occupationNames := make([]string, 0, len(occupations))
	for _, o := range occupations.values() {
		occupationNames = append(occupationNames, o.Name)
	}
	for _, citizen := range c.Citizens {
		s.Contains(occupationNames, citizen.Occupation)
		s.Contains(healthStates.values(), citizen.Health)
		s.Contains(genders.values(), citizen.Gender)
		s.GreaterOrEqual(citizen.Age, 16)
		s.LessOrEqual(citizen.Age, 80)
	}
	for _, slave := range c.Slaves {
		s.Contains(slaveOrigins.values(), slave.Origin)
		s.Contains(slaveAssignments, slave.Assignment)
	}

	livestockTypes := make([]string, 0, len(livestockKinds))
	for _, k := range livestockKinds.values() {
		livestockTypes = append(livestockTypes, k.Type)
	}
	for _, herd := range c.Livestock {
		s.Contains(livestockTypes, herd.LivestockType)
		s.Positive(herd.Quantity)
		s.Positive(herd.Value)
	}
	for _, soldier := range c.Garrison {
		s.Contains(ranks.values(), soldier.Rank)
		s.Contains(unitTypes.values(), soldier.UnitType)
		s.LessOrEqual(soldier.YearsOfService, soldier.Age-17)
	}

	crimeTypes := make([]string, 0, len(crimeKinds))
	for _, k := range crimeKinds.values() {
		crimeTypes = append(crimeTypes, k.Type)
	}
	for _, crime := range c.CrimeRecords {
		s.Contains(crimeTypes, crime.CrimeType)
		s.Contains([]string{"minor", "moderate", "severe"}, crime.Severity)
		s.Contains(crimeStatuses.values(), crime.Status)
	}
	for _, tribute := range c.TributeRecords {
		s.Contains(tributePayers, tribute.Payer)
		s.Contains(tributeResources.values(), tribute.Resource)
		s.True(tribute.DueDate.After(s.clock.Now()))
	}
}

func (s *EngineSuite) TestSeedIsReproducible() {
	seed := uint64(7)
	first, err := s.engine.Generate(s.ctx, s.alice, Request{RegistryType: "citizens", CityID: "c-1", Count: 10, Seed: &seed})
	s.Require().NoError(err)
	second, err := s.engine.Generate(s.ctx, s.alice, Request{RegistryType: "citizens", CityID: "c-1", Count: 10, Seed: &seed})
	s.Require().NoError(err)

	for i := range first.Items {
		a, b := first.Items[i].(model.Citizen), second.Items[i].(model.Citizen)
		s.Equal(a.Name, b.Name)
		s.Equal(a.Occupation, b.Occupation)
		s.NotEqual(a.ID, b.ID)
	}
}

func (s *EngineSuite) TestOneEventPerBatch() {
	s.generate(s.alice, "crimes", 10)

	list, err := s.storage.ListEvents(s.ctx, model.EventQuery{OwnerID: "acc-alice"})
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(model.EventAutoGenerated, list[0].EventType)
	s.Equal("Camelot", list[0].CityName)
	s.Equal("Avalon", list[0].KingdomName)
}

func (s *EngineSuite) TestRejectsBadInput() {
	cases := []Request{
		{RegistryType: "officials", CityID: "c-1", Count: 1},
		{RegistryType: "dragons", CityID: "c-1", Count: 1},
		{RegistryType: "citizens", CityID: "c-1", Count: 0},
		{RegistryType: "citizens", CityID: "c-1", Count: 101},
	}
	for _, req := range cases {
		_, err := s.engine.Generate(s.ctx, s.alice, req)
		s.ErrorIs(err, model.ErrValidation, "%+v", req)
	}
	s.Empty(s.city().Citizens)
}

func (s *EngineSuite) TestMaxCountAccepted() {
	s.generate(s.alice, "livestock", 100)
	s.Len(s.city().Livestock, 100)
}

func (s *EngineSuite) TestForeignCityIsNotFound() {
	_, err := s.engine.Generate(s.ctx, s.bob, Request{RegistryType: "citizens", CityID: "c-1", Count: 1})
	s.ErrorIs(err, model.ErrCityNotFound)
	s.Empty(s.city().Citizens)

	_, err = s.engine.Generate(s.ctx, s.alice, Request{RegistryType: "citizens", CityID: "nope", Count: 1})
	s.ErrorIs(err, model.ErrCityNotFound)
}

func (s *EngineSuite) TestSuperAdminGeneratesIntoAnyCity() {
	s.generate(s.admin, "citizens", 1)

	list, err := s.storage.ListEvents(s.ctx, model.EventQuery{OwnerID: "acc-alice"})
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *EngineSuite) TestConcurrentBatchesAreBothApplied() {
	const callers = 10
	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.engine.Generate(s.ctx, s.alice, Request{RegistryType: "citizens", CityID: "c-1", Count: 3})
			s.NoError(err)
		}()
	}
	wg.Wait()

	k, err := s.storage.GetKingdom(s.ctx, "k-1")
	s.Require().NoError(err)
	s.Len(k.City("c-1").Citizens, callers*3)
	s.Equal(5+callers*3, k.City("c-1").Population)
	s.Equal(3+5+callers*3, k.TotalPopulation)
}

func (s *EngineSuite) TestVanishedCityGeneratesNothing() {
	// the city is gone before the batch is requested
	_, err := s.engine.kingdoms.UpdateKingdom(s.ctx, "k-1", func(k *model.Kingdom) error {
		k.RemoveCity("c-2")
		return nil
	})
	s.Require().NoError(err)

	_, err = s.engine.Generate(s.ctx, s.alice, Request{RegistryType: "citizens", CityID: "c-2", Count: 4})
	s.ErrorIs(err, model.ErrCityNotFound)

	list, err := s.storage.ListEvents(s.ctx, model.EventQuery{})
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *EngineSuite) TestCityRemovedAfterLookupAppendsNothing() {
	logger := testutil.NopLogger()
	recorder := events.NewRecorder(s.storage, nil, s.clock, mocks.NewMockIDs("evt"), logger)
	engine := New(&cityRemover{Storage: s.storage, cityID: "c-2"}, ownership.New(s.storage), recorder, s.clock,
		mocks.NewMockIDs("rec"), random.NewSeeded(42), logger, Config{})

	_, err := engine.Generate(s.ctx, s.alice, Request{RegistryType: "citizens", CityID: "c-2", Count: 4})
	s.ErrorIs(err, model.ErrCityNotFound)

	k, err := s.storage.GetKingdom(s.ctx, "k-1")
	s.Require().NoError(err)
	s.Nil(k.City("c-2"))
	s.Empty(k.City("c-1").Citizens)
	s.Equal(5, k.TotalPopulation)

	list, err := s.storage.ListEvents(s.ctx, model.EventQuery{})
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *EngineSuite) TestEventLogFailureKeepsBatch() {
	logger := testutil.NopLogger()
	recorder := events.NewRecorder(brokenEventLog{s.storage}, nil, s.clock, mocks.NewMockIDs("evt"), logger)
	engine := New(s.storage, ownership.New(s.storage), recorder, s.clock,
		mocks.NewMockIDs("rec"), random.NewSeeded(42), logger, Config{})

	res, err := engine.Generate(s.ctx, s.alice, Request{RegistryType: "citizens", CityID: "c-1", Count: 3})
	s.Require().NoError(err)
	s.Equal(3, res.Count)
	s.Len(res.Items, 3)
	s.NotEmpty(res.Warnings)

	city := s.city()
	s.Len(city.Citizens, 3)
	s.Equal(5+3, city.Population)

	list, err := s.storage.ListEvents(s.ctx, model.EventQuery{})
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *EngineSuite) TestWeightedPickRespectsOrder() {
	r := mocks.NewMockRandom()
	table := weighted[string]{{"a", 1}, {"b", 2}, {"c", 3}}

	r.QueueIntn(0, 1, 2, 3, 5)
	s.Equal("a", table.pick(r))
	s.Equal("b", table.pick(r))
	s.Equal("b", table.pick(r))
	s.Equal("c", table.pick(r))
	s.Equal("c", table.pick(r))
}
