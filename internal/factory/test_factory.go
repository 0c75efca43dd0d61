package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/realmkeeper/internal/dependencies/mocks"
	"github.com/mcoot/realmkeeper/internal/services/auth"
	"github.com/mcoot/realmkeeper/internal/services/migration"
	"github.com/mcoot/realmkeeper/internal/services/token"
	"github.com/mcoot/realmkeeper/internal/storage/memory"
	"github.com/mcoot/realmkeeper/internal/testutil"
)

// TestSecret signs tokens issued by a TestApp
const TestSecret = "test-secret"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	MockIDs    *mocks.MockIDs
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// The realtime hub is running; tests should defer Close.
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	mockIDs := mocks.NewMockIDs("id")

	cfg := Config{
		TokenConfig: token.Config{Secret: []byte(TestSecret)},
		AuthConfig:  auth.Config{BcryptCost: bcrypt.MinCost},
		MigrationConfig: migration.Config{
			BcryptCost: bcrypt.MinCost,
		},
	}
	app, err := newWithDependencies(store, mockClock, mockRandom, mockIDs, cfg, testutil.NopLogger())
	if err != nil {
		panic(err)
	}
	go app.Hub.Run()

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		MockIDs:    mockIDs,
	}
}
