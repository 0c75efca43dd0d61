package response

import (
	"time"

	"github.com/mcoot/realmkeeper/internal/model"
	"github.com/mcoot/realmkeeper/internal/services/auth"
)

// TokenTypeBearer is the only token type issued
const TokenTypeBearer = "bearer"

// Account is the public view of an account; the password hash never leaves the server
type Account struct {
	ID              string     `json:"id"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	IsActive        bool       `json:"is_active"`
	IsSuperAdmin    bool       `json:"is_super_admin"`
	ActiveKingdomID string     `json:"active_kingdom_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
}

// AccountFromModel converts a model.Account to a response Account
func AccountFromModel(a *model.Account, superAdmin bool) Account {
	return Account{
		ID:              string(a.ID),
		Username:        a.Username,
		Email:           a.Email,
		IsActive:        a.IsActive,
		IsSuperAdmin:    superAdmin,
		ActiveKingdomID: string(a.ActiveKingdomID),
		CreatedAt:       a.CreatedAt,
		LastLogin:       a.LastLogin,
	}
}

// AuthResponse is the response for signup, login and token refresh
type AuthResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserInfo    Account   `json:"user_info"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session, superAdmin bool) AuthResponse {
	return AuthResponse{
		AccessToken: s.Token.Value,
		TokenType:   TokenTypeBearer,
		ExpiresAt:   s.Token.ExpiresAt,
		UserInfo:    AccountFromModel(s.Account, superAdmin),
	}
}

// VerifyResponse reports token validity without other account fields
type VerifyResponse struct {
	Valid    bool   `json:"valid"`
	Username string `json:"username"`
}

// Kingdom is a kingdom plus any event-log warnings from the mutation
type Kingdom struct {
	*model.Kingdom
	Warnings []string `json:"warnings,omitempty"`
}

// City is a city plus any event-log warnings from the mutation
type City struct {
	*model.City
	Warnings []string `json:"warnings,omitempty"`
}

// Record wraps one created registry record
type Record struct {
	Record   model.Record `json:"record"`
	Warnings []string     `json:"warnings,omitempty"`
}

// Deleted acknowledges a kingdom or city removal
type Deleted struct {
	Deleted  bool     `json:"deleted"`
	Warnings []string `json:"warnings,omitempty"`
}

// Generated is the result of an auto-generate call
type Generated struct {
	GeneratedItems []model.Record `json:"generated_items"`
	Count          int            `json:"count"`
	Warnings       []string       `json:"warnings,omitempty"`
}

// Health is the health check body
type Health struct {
	Status string `json:"status"`
}
