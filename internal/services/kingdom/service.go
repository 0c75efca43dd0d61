package kingdom

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mcoot/realmkeeper/internal/dependencies/clock"
	"github.com/mcoot/realmkeeper/internal/dependencies/ids"
	"github.com/mcoot/realmkeeper/internal/model"
	"github.com/mcoot/realmkeeper/internal/services/events"
	"github.com/mcoot/realmkeeper/internal/services/ownership"
	"github.com/mcoot/realmkeeper/internal/storage"
)

// Service manages kingdoms, their cities and the registries nested in them.
// Every mutation is a single atomic UpdateKingdom that re-checks ownership.
type Service struct {
	kingdoms storage.KingdomStore
	accounts storage.AccountStore
	guard    *ownership.Guard
	recorder *events.Recorder
	clock    clock.Clock
	ids      ids.Generator
	logger   *slog.Logger
}

// New creates a new kingdom Service
func New(
	kingdoms storage.KingdomStore,
	accounts storage.AccountStore,
	guard *ownership.Guard,
	recorder *events.Recorder,
	clock clock.Clock,
	ids ids.Generator,
	logger *slog.Logger,
) *Service {
	return &Service{
		kingdoms: kingdoms,
		accounts: accounts,
		guard:    guard,
		recorder: recorder,
		clock:    clock,
		ids:      ids,
		logger:   logger,
	}
}

// NewKingdom is the input for creating a kingdom
type NewKingdom struct {
	Name          string
	Ruler         string
	RoyalTreasury int
}

// KingdomPatch updates only the fields that are set
type KingdomPatch struct {
	Name          *string
	Ruler         *string
	RoyalTreasury *int
}

// NewCity is the input for founding a city. An empty KingdomID means the
// caller's active kingdom.
type NewCity struct {
	KingdomID   model.KingdomID
	Name        string
	Governor    string
	Population  int
	Treasury    int
	XCoordinate float64
	YCoordinate float64
}

// CityPatch updates only the fields that are set
type CityPatch struct {
	Name        *string
	Governor    *string
	Population  *int
	Treasury    *int
	XCoordinate *float64
	YCoordinate *float64
}

// Kingdom operations

// ListKingdoms returns the kingdoms visible to the caller
func (s *Service) ListKingdoms(ctx context.Context, p model.Principal) ([]*model.Kingdom, error) {
	return s.guard.VisibleKingdoms(ctx, p)
}

// GetKingdom returns one visible kingdom
func (s *Service) GetKingdom(ctx context.Context, p model.Principal, id model.KingdomID) (*model.Kingdom, error) {
	return s.guard.Kingdom(ctx, p, id)
}

// CreateKingdom creates a kingdom owned by the caller
func (s *Service) CreateKingdom(ctx context.Context, p model.Principal, in NewKingdom) (*model.Kingdom, []string, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, nil, model.NewValidationError("name", "must not be empty")
	}

	now := s.clock.Now()
	k := &model.Kingdom{
		ID:            model.KingdomID(s.ids.New()),
		Name:          name,
		Ruler:         strings.TrimSpace(in.Ruler),
		OwnerID:       p.AccountID,
		RoyalTreasury: in.RoyalTreasury,
		Cities:        []model.City{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.kingdoms.CreateKingdom(ctx, k); err != nil {
		return nil, nil, err
	}

	s.logger.Info("kingdom created",
		slog.String("kingdom_id", string(k.ID)),
		slog.String("owner_id", string(k.OwnerID)))
	warnings := s.record(ctx, k, "", model.EventKingdomCreated, fmt.Sprintf("The kingdom of %s was founded", k.Name))
	return k, warnings, nil
}

// UpdateKingdom applies a partial update
func (s *Service) UpdateKingdom(ctx context.Context, p model.Principal, id model.KingdomID, patch KingdomPatch) (*model.Kingdom, []string, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, nil, model.NewValidationError("name", "must not be empty")
	}

	k, err := s.kingdoms.UpdateKingdom(ctx, id, func(k *model.Kingdom) error {
		if err := ownership.CheckKingdom(p, k); err != nil {
			return err
		}
		if patch.Name != nil {
			k.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Ruler != nil {
			k.Ruler = *patch.Ruler
		}
		if patch.RoyalTreasury != nil {
			k.RoyalTreasury = *patch.RoyalTreasury
		}
		k.UpdatedAt = s.clock.Now()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	warnings := s.record(ctx, k, "", model.EventKingdomUpdated, fmt.Sprintf("The kingdom of %s issued new decrees", k.Name))
	return k, warnings, nil
}

// DeleteKingdom removes a kingdom and every city in it
func (s *Service) DeleteKingdom(ctx context.Context, p model.Principal, id model.KingdomID) ([]string, error) {
	k, err := s.guard.Kingdom(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := s.kingdoms.DeleteKingdom(ctx, id); err != nil {
		return nil, err
	}

	s.logger.Info("kingdom deleted", slog.String("kingdom_id", string(id)))
	return s.record(ctx, k, "", model.EventKingdomDeleted, fmt.Sprintf("The kingdom of %s fell", k.Name)), nil
}

// ActivateKingdom makes a visible kingdom the caller's default for new cities
func (s *Service) ActivateKingdom(ctx context.Context, p model.Principal, id model.KingdomID) (*model.Kingdom, error) {
	k, err := s.guard.Kingdom(ctx, p, id)
	if err != nil {
		return nil, err
	}
	_, err = s.accounts.UpdateAccount(ctx, p.AccountID, func(a *model.Account) error {
		a.ActiveKingdomID = k.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return k, nil
}

// City operations

// CreateCity founds a city in the given or active kingdom
func (s *Service) CreateCity(ctx context.Context, p model.Principal, in NewCity) (*model.City, []string, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, nil, model.NewValidationError("name", "must not be empty")
	}
	if in.Population < 0 {
		return nil, nil, model.NewValidationError("population", "must not be negative")
	}

	kingdomID := in.KingdomID
	if kingdomID == "" {
		account, err := s.accounts.GetAccount(ctx, p.AccountID)
		if err != nil {
			return nil, nil, err
		}
		if account.ActiveKingdomID == "" {
			return nil, nil, model.NewValidationError("kingdom_id", "required when no kingdom is active")
		}
		kingdomID = account.ActiveKingdomID
	}

	city := model.City{
		ID:                  model.CityID(s.ids.New()),
		KingdomID:           kingdomID,
		Name:                name,
		Governor:            strings.TrimSpace(in.Governor),
		Population:          in.Population,
		Treasury:            in.Treasury,
		XCoordinate:         in.XCoordinate,
		YCoordinate:         in.YCoordinate,
		Citizens:            []model.Citizen{},
		Slaves:              []model.Slave{},
		Livestock:           []model.Livestock{},
		Garrison:            []model.Soldier{},
		TributeRecords:      []model.Tribute{},
		CrimeRecords:        []model.Crime{},
		GovernmentOfficials: []model.Official{},
		CreatedAt:           s.clock.Now(),
	}

	k, err := s.kingdoms.UpdateKingdom(ctx, kingdomID, func(k *model.Kingdom) error {
		if err := ownership.CheckKingdom(p, k); err != nil {
			return err
		}
		k.Cities = append(k.Cities, city)
		k.UpdatedAt = city.CreatedAt
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	warnings := s.record(ctx, k, city.Name, model.EventCityCreated,
		fmt.Sprintf("The city of %s was founded in %s", city.Name, k.Name))
	return k.City(city.ID), warnings, nil
}

// GetCity returns one visible city
func (s *Service) GetCity(ctx context.Context, p model.Principal, id model.CityID) (*model.City, error) {
	k, err := s.guard.KingdomForCity(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return k.City(id), nil
}

// UpdateCity applies a partial update to a city
func (s *Service) UpdateCity(ctx context.Context, p model.Principal, id model.CityID, patch CityPatch) (*model.City, []string, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, nil, model.NewValidationError("name", "must not be empty")
	}
	if patch.Population != nil && *patch.Population < 0 {
		return nil, nil, model.NewValidationError("population", "must not be negative")
	}

	k, err := s.mutateCity(ctx, p, id, func(c *model.City) error {
		if patch.Name != nil {
			c.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Governor != nil {
			c.Governor = *patch.Governor
		}
		if patch.Population != nil {
			c.Population = *patch.Population
		}
		if patch.Treasury != nil {
			c.Treasury = *patch.Treasury
		}
		if patch.XCoordinate != nil {
			c.XCoordinate = *patch.XCoordinate
		}
		if patch.YCoordinate != nil {
			c.YCoordinate = *patch.YCoordinate
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	city := k.City(id)
	warnings := s.record(ctx, k, city.Name, model.EventCityUpdated, fmt.Sprintf("The city of %s was reorganised", city.Name))
	return city, warnings, nil
}

// DeleteCity removes a city from its kingdom
func (s *Service) DeleteCity(ctx context.Context, p model.Principal, id model.CityID) ([]string, error) {
	owner, err := s.guard.KingdomForCity(ctx, p, id)
	if err != nil {
		return nil, err
	}

	var name string
	k, err := s.kingdoms.UpdateKingdom(ctx, owner.ID, func(k *model.Kingdom) error {
		if err := ownership.CheckKingdom(p, k); err != nil {
			return model.ErrCityNotFound
		}
		city := k.City(id)
		if city == nil {
			return model.ErrCityNotFound
		}
		name = city.Name
		k.RemoveCity(id)
		k.UpdatedAt = s.clock.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.record(ctx, k, name, model.EventCityDeleted, fmt.Sprintf("The city of %s was abandoned", name)), nil
}

// Registry operations

// AddRecord stores one registry record in a city. The record's id, city and
// creation time are assigned here.
func (s *Service) AddRecord(ctx context.Context, p model.Principal, cityID model.CityID, record model.Record) (model.Record, []string, error) {
	if err := validateRecord(record); err != nil {
		return nil, nil, err
	}
	record = stamp(record, model.RecordID(s.ids.New()), cityID, s.clock.Now())

	k, err := s.mutateCity(ctx, p, cityID, func(c *model.City) error {
		return c.Append(record)
	})
	if err != nil {
		return nil, nil, err
	}

	city := k.City(cityID)
	warnings := s.record(ctx, k, city.Name, model.EventRecordAdded,
		fmt.Sprintf("A new entry was added to the %s of %s", record.Registry(), city.Name))
	return record, warnings, nil
}

// RemoveRecord deletes one registry record from a city
func (s *Service) RemoveRecord(ctx context.Context, p model.Principal, cityID model.CityID, registry model.RegistryType, recordID model.RecordID) ([]string, error) {
	k, err := s.mutateCity(ctx, p, cityID, func(c *model.City) error {
		return c.Remove(registry, recordID)
	})
	if err != nil {
		return nil, err
	}

	city := k.City(cityID)
	return s.record(ctx, k, city.Name, model.EventRecordRemoved,
		fmt.Sprintf("An entry was struck from the %s of %s", registry, city.Name)), nil
}

// mutateCity resolves a visible city and edits it inside one atomic kingdom update
func (s *Service) mutateCity(ctx context.Context, p model.Principal, cityID model.CityID, fn func(*model.City) error) (*model.Kingdom, error) {
	owner, err := s.guard.KingdomForCity(ctx, p, cityID)
	if err != nil {
		return nil, err
	}
	return s.kingdoms.UpdateKingdom(ctx, owner.ID, func(k *model.Kingdom) error {
		if err := ownership.CheckKingdom(p, k); err != nil {
			return model.ErrCityNotFound
		}
		city := k.City(cityID)
		if city == nil {
			return model.ErrCityNotFound
		}
		if err := fn(city); err != nil {
			return err
		}
		k.UpdatedAt = s.clock.Now()
		return nil
	})
}

// record narrates a committed mutation. The event is owned by the kingdom's
// owner, which differs from the caller when a super-admin acts.
func (s *Service) record(ctx context.Context, k *model.Kingdom, cityName string, eventType model.EventType, description string) []string {
	return s.recorder.RecordOrWarn(ctx, model.Event{
		Description: description,
		CityName:    cityName,
		KingdomName: k.Name,
		KingdomID:   k.ID,
		OwnerID:     k.OwnerID,
		EventType:   eventType,
	})
}
