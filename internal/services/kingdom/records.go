package kingdom

import (
	"strings"
	"time"

	"github.com/mcoot/realmkeeper/internal/model"
)

func validateRecord(record model.Record) error {
	switch r := record.(type) {
	case model.Citizen:
		return firstError(required("name", r.Name), nonNegative("age", r.Age), nonNegative("wealth", r.Wealth))
	case model.Slave:
		return firstError(required("name", r.Name), nonNegative("age", r.Age), nonNegative("purchase_price", r.PurchasePrice))
	case model.Livestock:
		return firstError(required("livestock_type", r.LivestockType), nonNegative("quantity", r.Quantity), nonNegative("value", r.Value))
	case model.Soldier:
		return firstError(required("name", r.Name), nonNegative("age", r.Age), nonNegative("years_of_service", r.YearsOfService))
	case model.Tribute:
		return firstError(required("payer", r.Payer), nonNegative("amount", r.Amount))
	case model.Crime:
		return firstError(required("perpetrator", r.Perpetrator), required("crime_type", r.CrimeType))
	case model.Official:
		return firstError(required("name", r.Name), required("position", r.Position), nonNegative("salary", r.Salary))
	case nil:
		return model.NewValidationError("record", "must not be empty")
	}
	return model.NewValidationError("record", "unsupported record type")
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return model.NewValidationError(field, "must not be empty")
	}
	return nil
}

func nonNegative(field string, value int) error {
	if value < 0 {
		return model.NewValidationError(field, "must not be negative")
	}
	return nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// stamp assigns server-side identity to a record
func stamp(record model.Record, id model.RecordID, cityID model.CityID, at time.Time) model.Record {
	switch r := record.(type) {
	case model.Citizen:
		r.ID, r.CityID, r.CreatedAt = id, cityID, at
		return r
	case model.Slave:
		r.ID, r.CityID, r.CreatedAt = id, cityID, at
		return r
	case model.Livestock:
		r.ID, r.CityID, r.CreatedAt = id, cityID, at
		return r
	case model.Soldier:
		r.ID, r.CityID, r.CreatedAt = id, cityID, at
		return r
	case model.Tribute:
		r.ID, r.CityID, r.CreatedAt = id, cityID, at
		return r
	case model.Crime:
		r.ID, r.CityID, r.CreatedAt = id, cityID, at
		return r
	case model.Official:
		r.ID, r.CityID, r.CreatedAt = id, cityID, at
		return r
	}
	return record
}
