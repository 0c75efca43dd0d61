package model

import (
	"slices"
	"time"
)

// KingdomID uniquely identifies a kingdom aggregate
type KingdomID string

// CityID uniquely identifies a city within its kingdom
type CityID string

// Kingdom is the aggregate root: one document holding every city and registry
type Kingdom struct {
	ID              KingdomID `json:"id"`
	Name            string    `json:"name"`
	Ruler           string    `json:"ruler"`
	OwnerID         AccountID `json:"owner_id,omitempty"`
	TotalPopulation int       `json:"total_population"`
	RoyalTreasury   int       `json:"royal_treasury"`
	Cities          []City    `json:"cities"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// City is embedded in exactly one Kingdom
type City struct {
	ID                  CityID      `json:"id"`
	KingdomID           KingdomID   `json:"kingdom_id"`
	Name                string      `json:"name"`
	Governor            string      `json:"governor"`
	Population          int         `json:"population"`
	Treasury            int         `json:"treasury"`
	XCoordinate         float64     `json:"x_coordinate"`
	YCoordinate         float64     `json:"y_coordinate"`
	Citizens            []Citizen   `json:"citizens"`
	Slaves              []Slave     `json:"slaves"`
	Livestock           []Livestock `json:"livestock"`
	Garrison            []Soldier   `json:"garrison"`
	TributeRecords      []Tribute   `json:"tribute_records"`
	CrimeRecords        []Crime     `json:"crime_records"`
	GovernmentOfficials []Official  `json:"government_officials"`
	CreatedAt           time.Time   `json:"created_at"`
}

// OwnedBy reports whether the kingdom belongs to the given account
func (k *Kingdom) OwnedBy(id AccountID) bool {
	return k.OwnerID != "" && k.OwnerID == id
}

// City returns a pointer into the Cities slice, or nil if absent
func (k *Kingdom) City(id CityID) *City {
	for i := range k.Cities {
		if k.Cities[i].ID == id {
			return &k.Cities[i]
		}
	}
	return nil
}

// RemoveCity drops a city and reports whether it was present
func (k *Kingdom) RemoveCity(id CityID) bool {
	for i := range k.Cities {
		if k.Cities[i].ID == id {
			k.Cities = slices.Delete(k.Cities, i, i+1)
			return true
		}
	}
	return false
}

// CityIDs lists the ids of every embedded city
func (k *Kingdom) CityIDs() []CityID {
	ids := make([]CityID, 0, len(k.Cities))
	for _, c := range k.Cities {
		ids = append(ids, c.ID)
	}
	return ids
}

// RecomputePopulation restores total_population == sum of city populations
func (k *Kingdom) RecomputePopulation() {
	total := 0
	for _, c := range k.Cities {
		total += c.Population
	}
	k.TotalPopulation = total
}

// Clone returns a deep copy so callers can mutate without aliasing stored data
func (k *Kingdom) Clone() *Kingdom {
	out := *k
	out.Cities = make([]City, len(k.Cities))
	for i, c := range k.Cities {
		out.Cities[i] = c.clone()
	}
	return &out
}

func (c City) clone() City {
	c.Citizens = slices.Clone(c.Citizens)
	c.Slaves = slices.Clone(c.Slaves)
	c.Livestock = slices.Clone(c.Livestock)
	c.Garrison = slices.Clone(c.Garrison)
	c.TributeRecords = slices.Clone(c.TributeRecords)
	c.CrimeRecords = slices.Clone(c.CrimeRecords)
	c.GovernmentOfficials = slices.Clone(c.GovernmentOfficials)
	return c
}
