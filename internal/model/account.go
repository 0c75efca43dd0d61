package model

import "time"

// AccountID uniquely identifies an account across the system
type AccountID string

// Account is a registered user of the game-master tool.
// Stored in the credential namespace, separate from game data.
type Account struct {
	ID              AccountID  `json:"id"`
	Username        string     `json:"username"` // login username (immutable)
	Email           string     `json:"email"`
	PasswordHash    string     `json:"password_hash"` // bcrypt hash
	IsActive        bool       `json:"is_active"`
	IsSuperAdmin    bool       `json:"is_super_admin"`
	ActiveKingdomID KingdomID  `json:"active_kingdom_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
}
