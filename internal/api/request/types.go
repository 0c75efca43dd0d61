package request

import "github.com/mcoot/realmkeeper/internal/model"

// SignupRequest is the request body for registering an account
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateKingdomRequest is the request body for founding a kingdom
type CreateKingdomRequest struct {
	Name          string `json:"name"`
	Ruler         string `json:"ruler"`
	RoyalTreasury int    `json:"royal_treasury"`
}

// UpdateKingdomRequest is a partial kingdom update; absent fields are untouched
type UpdateKingdomRequest struct {
	Name          *string `json:"name"`
	Ruler         *string `json:"ruler"`
	RoyalTreasury *int    `json:"royal_treasury"`
}

// CreateCityRequest is the request body for founding a city.
// An empty kingdom_id means the caller's active kingdom.
type CreateCityRequest struct {
	KingdomID   model.KingdomID `json:"kingdom_id"`
	Name        string          `json:"name"`
	Governor    string          `json:"governor"`
	Population  int             `json:"population"`
	Treasury    int             `json:"treasury"`
	XCoordinate float64         `json:"x_coordinate"`
	YCoordinate float64         `json:"y_coordinate"`
}

// UpdateCityRequest is a partial city update; absent fields are untouched
type UpdateCityRequest struct {
	Name        *string  `json:"name"`
	Governor    *string  `json:"governor"`
	Population  *int     `json:"population"`
	Treasury    *int     `json:"treasury"`
	XCoordinate *float64 `json:"x_coordinate"`
	YCoordinate *float64 `json:"y_coordinate"`
}

// GenerateRequest is the request body for auto-generation
type GenerateRequest struct {
	RegistryType string       `json:"registry_type"`
	CityID       model.CityID `json:"city_id"`
	Count        int          `json:"count"`
	Seed         *uint64      `json:"seed,omitempty"`
}
