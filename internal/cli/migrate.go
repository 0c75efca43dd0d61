package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	"github.com/mcoot/realmkeeper/internal/config"
	"github.com/mcoot/realmkeeper/internal/dependencies/clock"
	"github.com/mcoot/realmkeeper/internal/dependencies/ids"
	"github.com/mcoot/realmkeeper/internal/factory"
	"github.com/mcoot/realmkeeper/internal/services/migration"
	redisstorage "github.com/mcoot/realmkeeper/internal/storage/redis"
)

// migrateEnv is the subset of server settings the offline migration needs.
// Unlike the server it defaults to Redis, since migrating an empty
// in-memory store is pointless.
type migrateEnv struct {
	StorageType   string `env:"STORAGE_TYPE" envDefault:"redis"`
	RedisURL      string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	AdminUsername string `env:"SUPER_ADMIN_USERNAME" envDefault:"admin"`
	AdminEmail    string `env:"MIGRATION_ADMIN_EMAIL" envDefault:"admin@realmkeeper.local"`
	AdminPassword string `env:"MIGRATION_ADMIN_PASSWORD" envDefault:"ChangeMe123!"`
	BcryptCost    int    `env:"AUTH_BCRYPT_COST" envDefault:"10"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"warn"`

	// Set from --promote-existing
	PromoteExisting bool
}

func newMigrateCmd() *cobra.Command {
	var redisURL string
	var remote bool
	var promoteExisting bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Bring legacy data under tenant ownership",
		Long: `Connect to the store directly, make sure the administrative account
exists and assign every unowned kingdom, event, calendar event and boundary
to it. Running it again changes nothing.

The store is configured with STORAGE_TYPE and REDIS_URL, as for the server.
With --remote the server runs the migration instead; this needs a
super-admin token.

If an ordinary account already holds the administrative username the
migration stops; pass --promote-existing to make that account the
super-admin instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd.OutOrStdout(), cfg.Output)

			if remote {
				var result MigrationReport
				if err := client.Post("/api/admin/migrate", nil, &result); err != nil {
					return err
				}
				out.Print(result)
				return nil
			}

			menv, err := env.ParseAs[migrateEnv]()
			if err != nil {
				return fmt.Errorf("parse env: %w", err)
			}
			if redisURL != "" {
				menv.RedisURL = redisURL
			}
			menv.PromoteExisting = promoteExisting

			report, err := runMigration(cmd.Context(), menv)
			if err != nil {
				return err
			}

			out.Print(MigrationReport{
				AdminCreated:          report.AdminCreated,
				AdminID:               string(report.AdminID),
				KingdomsUpdated:       report.KingdomsUpdated,
				EventsUpdated:         report.EventsUpdated,
				CalendarEventsUpdated: report.CalendarEventsUpdated,
				BoundariesUpdated:     report.BoundariesUpdated,
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&redisURL, "redis-url", "", "Redis URL (env: REDIS_URL)")
	cmd.Flags().BoolVar(&remote, "remote", false, "Run through the server's admin endpoint using the saved token")
	cmd.Flags().BoolVar(&promoteExisting, "promote-existing", false, "Adopt an existing account holding the admin username")
	cmd.MarkFlagsMutuallyExclusive("remote", "promote-existing")

	return cmd
}

func runMigration(ctx context.Context, menv migrateEnv) (*migration.Report, error) {
	level, err := config.ParseLevel(menv.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = menv.RedisURL

	store, err := factory.NewStorage(factory.Config{
		StorageType: menv.StorageType,
		RedisConfig: &redisCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer func() { _ = closer.Close() }()
	}

	migrator := migration.New(store, clock.New(), ids.New(), logger, migration.Config{
		AdminUsername:   menv.AdminUsername,
		AdminEmail:      menv.AdminEmail,
		AdminPassword:   menv.AdminPassword,
		BcryptCost:      menv.BcryptCost,
		PromoteExisting: menv.PromoteExisting,
	})

	report, err := migrator.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return report, nil
}
