package model

import (
	"fmt"
	"slices"
	"time"
)

// RecordID uniquely identifies a registry record
type RecordID string

// RegistryType names one of the typed collections nested in a City
type RegistryType string

const (
	RegistryCitizens  RegistryType = "citizens"
	RegistrySlaves    RegistryType = "slaves"
	RegistryLivestock RegistryType = "livestock"
	RegistryGarrison  RegistryType = "garrison"
	RegistryTribute   RegistryType = "tribute"
	RegistryCrimes    RegistryType = "crimes"
	RegistryOfficials RegistryType = "officials"
)

// GeneratableRegistries are the registries the generation engine can fill
var GeneratableRegistries = []RegistryType{
	RegistryCitizens,
	RegistrySlaves,
	RegistryLivestock,
	RegistryGarrison,
	RegistryCrimes,
	RegistryTribute,
}

// ParseRegistryType accepts the canonical names plus the "soldiers" alias used by the API
func ParseRegistryType(s string) (RegistryType, error) {
	switch s {
	case "citizens", "slaves", "livestock", "garrison", "tribute", "crimes", "officials":
		return RegistryType(s), nil
	case "soldiers":
		return RegistryGarrison, nil
	}
	return "", NewValidationError("registry_type", fmt.Sprintf("unknown registry type %q", s))
}

// Generatable reports whether the engine can synthesize records of this type
func (t RegistryType) Generatable() bool {
	return slices.Contains(GeneratableRegistries, t)
}

// Record is implemented by every registry entry type
type Record interface {
	RecordID() RecordID
	Registry() RegistryType
	City() CityID
}

// Citizen is a free inhabitant of a city
type Citizen struct {
	ID         RecordID  `json:"id"`
	CityID     CityID    `json:"city_id"`
	Name       string    `json:"name"`
	Age        int       `json:"age"`
	Gender     string    `json:"gender"`
	Occupation string    `json:"occupation"`
	Health     string    `json:"health"`
	Wealth     int       `json:"wealth"`
	CreatedAt  time.Time `json:"created_at"`
}

// Slave is an unfree inhabitant of a city
type Slave struct {
	ID            RecordID  `json:"id"`
	CityID        CityID    `json:"city_id"`
	Name          string    `json:"name"`
	Age           int       `json:"age"`
	Gender        string    `json:"gender"`
	Origin        string    `json:"origin"`
	Assignment    string    `json:"assignment"`
	Health        string    `json:"health"`
	PurchasePrice int       `json:"purchase_price"`
	CreatedAt     time.Time `json:"created_at"`
}

// Livestock is a herd or flock kept by a city
type Livestock struct {
	ID            RecordID  `json:"id"`
	CityID        CityID    `json:"city_id"`
	LivestockType string    `json:"livestock_type"`
	Name          string    `json:"name"`
	Quantity      int       `json:"quantity"`
	Health        string    `json:"health"`
	Value         int       `json:"value"`
	CreatedAt     time.Time `json:"created_at"`
}

// Soldier serves in a city's garrison
type Soldier struct {
	ID             RecordID  `json:"id"`
	CityID         CityID    `json:"city_id"`
	Name           string    `json:"name"`
	Age            int       `json:"age"`
	Rank           string    `json:"rank"`
	UnitType       string    `json:"unit_type"`
	Health         string    `json:"health"`
	YearsOfService int       `json:"years_of_service"`
	CreatedAt      time.Time `json:"created_at"`
}

// Tribute is a payment owed to or collected by a city
type Tribute struct {
	ID        RecordID  `json:"id"`
	CityID    CityID    `json:"city_id"`
	Payer     string    `json:"payer"`
	Resource  string    `json:"resource"`
	Amount    int       `json:"amount"`
	Status    string    `json:"status"`
	DueDate   time.Time `json:"due_date"`
	CreatedAt time.Time `json:"created_at"`
}

// Crime is an entry in a city's crime ledger
type Crime struct {
	ID          RecordID  `json:"id"`
	CityID      CityID    `json:"city_id"`
	Perpetrator string    `json:"perpetrator"`
	CrimeType   string    `json:"crime_type"`
	Severity    string    `json:"severity"`
	Status      string    `json:"status"`
	Punishment  string    `json:"punishment"`
	CreatedAt   time.Time `json:"created_at"`
}

// Official holds a government office in a city
type Official struct {
	ID        RecordID  `json:"id"`
	CityID    CityID    `json:"city_id"`
	Name      string    `json:"name"`
	Position  string    `json:"position"`
	Salary    int       `json:"salary"`
	TermStart time.Time `json:"term_start"`
	CreatedAt time.Time `json:"created_at"`
}

func (r Citizen) RecordID() RecordID     { return r.ID }
func (r Citizen) Registry() RegistryType { return RegistryCitizens }
func (r Citizen) City() CityID           { return r.CityID }

func (r Slave) RecordID() RecordID     { return r.ID }
func (r Slave) Registry() RegistryType { return RegistrySlaves }
func (r Slave) City() CityID           { return r.CityID }

func (r Livestock) RecordID() RecordID     { return r.ID }
func (r Livestock) Registry() RegistryType { return RegistryLivestock }
func (r Livestock) City() CityID           { return r.CityID }

func (r Soldier) RecordID() RecordID     { return r.ID }
func (r Soldier) Registry() RegistryType { return RegistryGarrison }
func (r Soldier) City() CityID           { return r.CityID }

func (r Tribute) RecordID() RecordID     { return r.ID }
func (r Tribute) Registry() RegistryType { return RegistryTribute }
func (r Tribute) City() CityID           { return r.CityID }

func (r Crime) RecordID() RecordID     { return r.ID }
func (r Crime) Registry() RegistryType { return RegistryCrimes }
func (r Crime) City() CityID           { return r.CityID }

func (r Official) RecordID() RecordID     { return r.ID }
func (r Official) Registry() RegistryType { return RegistryOfficials }
func (r Official) City() CityID           { return r.CityID }

// Append adds records to the matching nested arrays.
// Each citizen added also counts towards the city's population.
func (c *City) Append(records ...Record) error {
	for _, r := range records {
		switch v := r.(type) {
		case Citizen:
			c.Citizens = append(c.Citizens, v)
			c.Population++
		case Slave:
			c.Slaves = append(c.Slaves, v)
		case Livestock:
			c.Livestock = append(c.Livestock, v)
		case Soldier:
			c.Garrison = append(c.Garrison, v)
		case Tribute:
			c.TributeRecords = append(c.TributeRecords, v)
		case Crime:
			c.CrimeRecords = append(c.CrimeRecords, v)
		case Official:
			c.GovernmentOfficials = append(c.GovernmentOfficials, v)
		default:
			return fmt.Errorf("%w: unsupported record %T", ErrValidation, r)
		}
	}
	return nil
}

// Remove deletes one record from a registry.
// Removing a citizen lowers the population, never below zero.
func (c *City) Remove(t RegistryType, id RecordID) error {
	var removed bool
	switch t {
	case RegistryCitizens:
		c.Citizens, removed = removeByID(c.Citizens, id)
		if removed && c.Population > 0 {
			c.Population--
		}
	case RegistrySlaves:
		c.Slaves, removed = removeByID(c.Slaves, id)
	case RegistryLivestock:
		c.Livestock, removed = removeByID(c.Livestock, id)
	case RegistryGarrison:
		c.Garrison, removed = removeByID(c.Garrison, id)
	case RegistryTribute:
		c.TributeRecords, removed = removeByID(c.TributeRecords, id)
	case RegistryCrimes:
		c.CrimeRecords, removed = removeByID(c.CrimeRecords, id)
	case RegistryOfficials:
		c.GovernmentOfficials, removed = removeByID(c.GovernmentOfficials, id)
	default:
		return NewValidationError("registry_type", fmt.Sprintf("unknown registry type %q", t))
	}
	if !removed {
		return ErrRecordNotFound
	}
	return nil
}

// RegistryLen returns the size of one nested registry
func (c *City) RegistryLen(t RegistryType) int {
	switch t {
	case RegistryCitizens:
		return len(c.Citizens)
	case RegistrySlaves:
		return len(c.Slaves)
	case RegistryLivestock:
		return len(c.Livestock)
	case RegistryGarrison:
		return len(c.Garrison)
	case RegistryTribute:
		return len(c.TributeRecords)
	case RegistryCrimes:
		return len(c.CrimeRecords)
	case RegistryOfficials:
		return len(c.GovernmentOfficials)
	}
	return 0
}

func removeByID[T Record](items []T, id RecordID) ([]T, bool) {
	for i, item := range items {
		if item.RecordID() == id {
			return slices.Delete(items, i, i+1), true
		}
	}
	return items, false
}
