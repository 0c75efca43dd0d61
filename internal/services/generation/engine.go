package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/realmkeeper/internal/dependencies/clock"
	"github.com/mcoot/realmkeeper/internal/dependencies/ids"
	"github.com/mcoot/realmkeeper/internal/dependencies/random"
	"github.com/mcoot/realmkeeper/internal/model"
	"github.com/mcoot/realmkeeper/internal/services/events"
	"github.com/mcoot/realmkeeper/internal/services/ownership"
	"github.com/mcoot/realmkeeper/internal/storage"
)

// DefaultMaxCount bounds how many records one request may generate
const DefaultMaxCount = 100

// Request asks for Count new records of one registry in one city
type Request struct {
	RegistryType string
	CityID       model.CityID
	Count        int
	// Seed, when set, makes the synthesized attributes reproducible
	Seed *uint64
}

// Result is a successfully applied batch
type Result struct {
	Items    []model.Record
	Count    int
	Warnings []string
}

// Config holds configuration for the generation engine
type Config struct {
	MaxCount int
}

// Engine synthesizes registry records from weighted tables and applies a
// whole batch in a single atomic kingdom update
type Engine struct {
	kingdoms storage.KingdomStore
	guard    *ownership.Guard
	recorder *events.Recorder
	clock    clock.Clock
	ids      ids.Generator
	random   random.Random
	logger   *slog.Logger
	maxCount int
}

// New creates a generation Engine
func New(
	kingdoms storage.KingdomStore,
	guard *ownership.Guard,
	recorder *events.Recorder,
	clock clock.Clock,
	ids ids.Generator,
	random random.Random,
	logger *slog.Logger,
	cfg Config,
) *Engine {
	if cfg.MaxCount <= 0 {
		cfg.MaxCount = DefaultMaxCount
	}
	return &Engine{
		kingdoms: kingdoms,
		guard:    guard,
		recorder: recorder,
		clock:    clock,
		ids:      ids,
		random:   random,
		logger:   logger,
		maxCount: cfg.MaxCount,
	}
}

// Generate validates the request, synthesizes the batch and appends it.
// Either every record is stored or none is.
func (e *Engine) Generate(ctx context.Context, p model.Principal, req Request) (*Result, error) {
	registry, err := model.ParseRegistryType(req.RegistryType)
	if err != nil {
		return nil, err
	}
	if !registry.Generatable() {
		return nil, model.NewValidationError("registry_type", fmt.Sprintf("%s cannot be generated", registry))
	}
	if req.Count < 1 || req.Count > e.maxCount {
		return nil, model.NewValidationError("count", fmt.Sprintf("must be between 1 and %d", e.maxCount))
	}

	owner, err := e.guard.KingdomForCity(ctx, p, req.CityID)
	if err != nil {
		return nil, err
	}

	rng := e.random
	if req.Seed != nil {
		rng = random.NewSeeded(*req.Seed)
	}
	now := e.clock.Now()
	items := make([]model.Record, req.Count)
	for i := range items {
		items[i] = e.synthesize(rng, registry, req.CityID, now)
	}

	k, err := e.kingdoms.UpdateKingdom(ctx, owner.ID, func(k *model.Kingdom) error {
		if err := ownership.CheckKingdom(p, k); err != nil {
			return model.ErrCityNotFound
		}
		city := k.City(req.CityID)
		if city == nil {
			return model.ErrCityNotFound
		}
		if err := city.Append(items...); err != nil {
			return err
		}
		k.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	city := k.City(req.CityID)
	e.logger.Info("registry batch generated",
		slog.String("kingdom_id", string(k.ID)),
		slog.String("city_id", string(req.CityID)),
		slog.String("registry", string(registry)),
		slog.Int("count", len(items)))

	warnings := e.recorder.RecordOrWarn(ctx, model.Event{
		Description: fmt.Sprintf("%d new %s were recorded in %s", len(items), registry, city.Name),
		CityName:    city.Name,
		KingdomName: k.Name,
		KingdomID:   k.ID,
		OwnerID:     k.OwnerID,
		EventType:   model.EventAutoGenerated,
	})
	return &Result{Items: items, Count: len(items), Warnings: warnings}, nil
}

func (e *Engine) synthesize(r random.Random, registry model.RegistryType, cityID model.CityID, now time.Time) model.Record {
	id := model.RecordID(e.ids.New())
	switch registry {
	case model.RegistryCitizens:
		occ := occupations.pick(r)
		return model.Citizen{
			ID:         id,
			CityID:     cityID,
			Name:       fullName(r),
			Age:        random.Between(r, 16, 80),
			Gender:     genders.pick(r),
			Occupation: occ.Name,
			Health:     healthStates.pick(r),
			Wealth:     random.Between(r, occ.MinWealth, occ.MaxWealth),
			CreatedAt:  now,
		}
	case model.RegistrySlaves:
		return model.Slave{
			ID:            id,
			CityID:        cityID,
			Name:          fullName(r),
			Age:           random.Between(r, 12, 60),
			Gender:        genders.pick(r),
			Origin:        slaveOrigins.pick(r),
			Assignment:    uniform(r, slaveAssignments),
			Health:        healthStates.pick(r),
			PurchasePrice: random.Between(r, 20, 400),
			CreatedAt:     now,
		}
	case model.RegistryLivestock:
		kind := livestockKinds.pick(r)
		qty := random.Between(r, kind.MinQuantity, kind.MaxQuantity)
		return model.Livestock{
			ID:            id,
			CityID:        cityID,
			LivestockType: kind.Type,
			Name:          fmt.Sprintf("%s of %s", kind.Group, kind.Type),
			Quantity:      qty,
			Health:        healthStates.pick(r),
			Value:         qty * kind.UnitValue,
			CreatedAt:     now,
		}
	case model.RegistryGarrison:
		age := random.Between(r, 17, 50)
		return model.Soldier{
			ID:             id,
			CityID:         cityID,
			Name:           fullName(r),
			Age:            age,
			Rank:           ranks.pick(r),
			UnitType:       unitTypes.pick(r),
			Health:         healthStates.pick(r),
			YearsOfService: random.Between(r, 0, age-17),
			CreatedAt:      now,
		}
	case model.RegistryCrimes:
		kind := crimeKinds.pick(r)
		return model.Crime{
			ID:          id,
			CityID:      cityID,
			Perpetrator: fullName(r),
			CrimeType:   kind.Type,
			Severity:    kind.Severity,
			Status:      crimeStatuses.pick(r),
			Punishment:  uniform(r, kind.Punishments),
			CreatedAt:   now,
		}
	case model.RegistryTribute:
		return model.Tribute{
			ID:        id,
			CityID:    cityID,
			Payer:     uniform(r, tributePayers),
			Resource:  tributeResources.pick(r),
			Amount:    random.Between(r, 10, 1000),
			Status:    tributeStatuses.pick(r),
			DueDate:   now.AddDate(0, 0, random.Between(r, 7, 90)),
			CreatedAt: now,
		}
	}
	panic(fmt.Sprintf("generation: unhandled registry %q", registry))
}

func fullName(r random.Random) string {
	return uniform(r, firstNames) + " " + uniform(r, lastNames)
}
