package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/realmkeeper/internal/dependencies/clock"
	"github.com/mcoot/realmkeeper/internal/dependencies/ids"
	"github.com/mcoot/realmkeeper/internal/model"
	"github.com/mcoot/realmkeeper/internal/storage"
)

// ErrAdminUsernameClaimed means an ordinary account already holds the
// administrative username and promotion was not requested
var ErrAdminUsernameClaimed = errors.New("administrative username belongs to an account that is not a super-admin")

// Report summarises what one run changed
type Report struct {
	AdminCreated          bool            `json:"admin_created"`
	AdminID               model.AccountID `json:"admin_id"`
	KingdomsUpdated       int             `json:"kingdoms_updated"`
	EventsUpdated         int             `json:"events_updated"`
	CalendarEventsUpdated int             `json:"calendar_events_updated"`
	BoundariesUpdated     int             `json:"boundaries_updated"`
}

// Config holds configuration for the migrator
type Config struct {
	AdminUsername string
	AdminEmail    string
	AdminPassword string
	BcryptCost    int
	// PromoteExisting lets a run adopt an ordinary account that already holds
	// AdminUsername. Without it such a run fails with ErrAdminUsernameClaimed.
	PromoteExisting bool
}

// DefaultConfig returns the default administrative account settings
func DefaultConfig() Config {
	return Config{
		AdminUsername: "admin",
		AdminEmail:    "admin@realmkeeper.local",
		AdminPassword: "ChangeMe123!",
		BcryptCost:    bcrypt.DefaultCost,
	}
}

// Migrator brings pre-tenancy data under an administrative owner.
// Running it again after a complete run changes nothing.
type Migrator struct {
	store  storage.Storage
	clock  clock.Clock
	ids    ids.Generator
	logger *slog.Logger
	cfg    Config
}

// New creates a Migrator
func New(store storage.Storage, clock clock.Clock, ids ids.Generator, logger *slog.Logger, cfg Config) *Migrator {
	defaults := DefaultConfig()
	if cfg.AdminUsername == "" {
		cfg.AdminUsername = defaults.AdminUsername
	}
	if cfg.AdminEmail == "" {
		cfg.AdminEmail = defaults.AdminEmail
	}
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = defaults.AdminPassword
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = defaults.BcryptCost
	}
	return &Migrator{store: store, clock: clock, ids: ids, logger: logger, cfg: cfg}
}

// Run ensures the admin account exists, then back-fills owner_id wherever it
// is missing. A failed run can simply be repeated.
func (m *Migrator) Run(ctx context.Context) (*Report, error) {
	admin, created, err := m.ensureAdmin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ensure admin account: %w", err)
	}
	report := &Report{AdminCreated: created, AdminID: admin.ID}

	counts := map[model.Collection]*int{
		model.CollectionKingdoms:       &report.KingdomsUpdated,
		model.CollectionEvents:         &report.EventsUpdated,
		model.CollectionCalendarEvents: &report.CalendarEventsUpdated,
		model.CollectionBoundaries:     &report.BoundariesUpdated,
	}
	for _, c := range model.OwnedCollections {
		n, err := m.store.BackfillOwner(ctx, c, admin.ID)
		if err != nil {
			return report, fmt.Errorf("backfill %s: %w", c, err)
		}
		*counts[c] = n
		m.logger.Info("owner backfill complete", slog.String("collection", string(c)), slog.Int("updated", n))
	}
	return report, nil
}

func (m *Migrator) ensureAdmin(ctx context.Context) (*model.Account, bool, error) {
	existing, err := m.store.GetAccountByUsername(ctx, m.cfg.AdminUsername)
	if err == nil {
		if existing.IsSuperAdmin {
			return existing, false, nil
		}
		if !m.cfg.PromoteExisting {
			m.logger.Error("administrative username is held by an ordinary account",
				slog.String("username", existing.Username),
				slog.String("account_id", string(existing.ID)))
			return nil, false, ErrAdminUsernameClaimed
		}
		promoted, err := m.store.UpdateAccount(ctx, existing.ID, func(a *model.Account) error {
			a.IsSuperAdmin = true
			return nil
		})
		if err != nil {
			return nil, false, err
		}
		m.logger.Warn("existing account promoted to super-admin", slog.String("username", promoted.Username))
		return promoted, false, nil
	}
	if !errors.Is(err, model.ErrAccountNotFound) {
		return nil, false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(m.cfg.AdminPassword), m.cfg.BcryptCost)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}
	admin := &model.Account{
		ID:           model.AccountID(m.ids.New()),
		Username:     m.cfg.AdminUsername,
		Email:        m.cfg.AdminEmail,
		PasswordHash: string(hash),
		IsActive:     true,
		IsSuperAdmin: true,
		CreatedAt:    m.clock.Now(),
	}
	if err := m.store.CreateAccount(ctx, admin); err != nil {
		// A concurrent run created it first
		if errors.Is(err, model.ErrUsernameTaken) {
			existing, err := m.store.GetAccountByUsername(ctx, m.cfg.AdminUsername)
			if err != nil {
				return nil, false, err
			}
			if !existing.IsSuperAdmin {
				return nil, false, ErrAdminUsernameClaimed
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	m.logger.Warn("administrative account created with the default password; change it immediately",
		slog.String("username", admin.Username),
		slog.String("account_id", string(admin.ID)))
	return admin, true, nil
}
