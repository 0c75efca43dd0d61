package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/realmkeeper/internal/api"
	"github.com/mcoot/realmkeeper/internal/cli"
	"github.com/mcoot/realmkeeper/internal/factory"
	"github.com/mcoot/realmkeeper/internal/testutil"
)

// cliRunner executes the CLI root command against a running server
type cliRunner struct {
	serverURL string
	tokenFile string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()
	return &cliRunner{
		serverURL: serverURL,
		tokenFile: filepath.Join(t.TempDir(), "token"),
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token-file", r.tokenFile,
		"--output", "json",
	}, args...)
	return execute(fullArgs)
}

func (r *cliRunner) runWithToken(token string, args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token", token,
		"--output", "json",
	}, args...)
	return execute(fullArgs)
}

func execute(args []string) (string, error) {
	var out bytes.Buffer
	cmd := cli.NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	app      *factory.TestApp
	addr     string
	shutdown func()
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	app := factory.NewTestApp()
	logger := testutil.NopLogger()

	router := api.NewRouter(api.RouterConfig{
		Logger:           logger,
		AuthService:      app.AuthService,
		KingdomService:   app.KingdomService,
		GenerationEngine: app.GenerationEngine,
		Recorder:         app.Recorder,
		Hub:              app.Hub,
		Migrator:         app.Migrator,
		HealthCheck:      app.Ping,
	})
	server := api.NewServer(router, api.DefaultServerConfig(), logger)

	go func() {
		if err := server.Serve(listener); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	return &testServer{
		app:  app,
		addr: "http://" + listener.Addr().String(),
		shutdown: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
			_ = app.Close()
		},
	}
}

// Response types for JSON parsing
type authResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserInfo    struct {
		ID              string `json:"id"`
		Username        string `json:"username"`
		IsSuperAdmin    bool   `json:"is_super_admin"`
		ActiveKingdomID string `json:"active_kingdom_id"`
	} `json:"user_info"`
}

type kingdomResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	OwnerID         string `json:"owner_id"`
	TotalPopulation int    `json:"total_population"`
	Cities          []struct {
		ID         string `json:"id"`
		Population int    `json:"population"`
	} `json:"cities"`
}

type cityResponse struct {
	ID         string            `json:"id"`
	KingdomID  string            `json:"kingdom_id"`
	Population int               `json:"population"`
	Citizens   []json.RawMessage `json:"citizens"`
}

type generateResponse struct {
	GeneratedItems []json.RawMessage `json:"generated_items"`
	Count          int               `json:"count"`
}

type eventResponse struct {
	EventType string `json:"event_type"`
	OwnerID   string `json:"owner_id"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func signup(t *testing.T, r *cliRunner, user string) authResponse {
	t.Helper()
	output, err := r.run("auth", "signup", "--user", user, "--email", user+"@example.com", "--pass", "Secret123!")
	require.NoError(t, err, "output: %s", output)

	var resp authResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	return resp
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	r := newCLIRunner(t, ts.addr)

	output, err := r.run("health")
	require.NoError(t, err, "output: %s", output)

	var resp struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCLI_AuthCommands(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	r := newCLIRunner(t, ts.addr)

	resp := signup(t, r, "alice")
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, "alice", resp.UserInfo.Username)
	assert.NotEmpty(t, resp.AccessToken)

	// Token is saved in the token file
	output, err := r.run("auth", "me")
	require.NoError(t, err, "output: %s", output)

	var me struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &me))
	assert.Equal(t, resp.UserInfo.ID, me.ID)

	output, err = r.run("auth", "verify")
	require.NoError(t, err, "output: %s", output)
	assert.Contains(t, output, `"valid": true`)

	output, err = r.run("auth", "logout")
	require.NoError(t, err, "output: %s", output)
	var msg messageResponse
	require.NoError(t, json.Unmarshal([]byte(output), &msg))
	assert.Equal(t, "Logged out", msg.Message)

	_, err = r.run("auth", "me")
	var apiErr *cli.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Status)

	output, err = r.run("auth", "login", "--user", "alice", "--pass", "Secret123!")
	require.NoError(t, err, "output: %s", output)
	output, err = r.run("auth", "me")
	require.NoError(t, err, "output: %s", output)
}

func TestCLI_LoginWithWrongPassword(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	r := newCLIRunner(t, ts.addr)
	signup(t, r, "alice")

	_, err := r.run("auth", "login", "--user", "alice", "--pass", "wrong")
	var apiErr *cli.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Status)
	assert.Equal(t, "INVALID_CREDENTIALS", apiErr.Code)
}

func TestCLI_KingdomGenerateFlow(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	r := newCLIRunner(t, ts.addr)
	alice := signup(t, r, "alice")

	output, err := r.run("kingdom", "create", "--name", "Avalon", "--ruler", "Arthur", "--treasury", "500")
	require.NoError(t, err, "output: %s", output)
	var k kingdomResponse
	require.NoError(t, json.Unmarshal([]byte(output), &k))
	assert.Equal(t, "Avalon", k.Name)
	assert.Equal(t, alice.UserInfo.ID, k.OwnerID)

	// Once a kingdom is active, --kingdom can be omitted
	output, err = r.run("kingdom", "activate", k.ID)
	require.NoError(t, err, "output: %s", output)
	assert.Contains(t, output, "Active kingdom: Avalon")

	output, err = r.run("city", "create", "--name", "Camelot", "--population", "10")
	require.NoError(t, err, "output: %s", output)
	var c cityResponse
	require.NoError(t, json.Unmarshal([]byte(output), &c))
	assert.Equal(t, k.ID, c.KingdomID)

	output, err = r.run("generate", "--type", "citizens", "--city", c.ID, "--count", "3", "--seed", "7")
	require.NoError(t, err, "output: %s", output)
	var g generateResponse
	require.NoError(t, json.Unmarshal([]byte(output), &g))
	assert.Equal(t, 3, g.Count)
	assert.Len(t, g.GeneratedItems, 3)

	output, err = r.run("city", "get", c.ID)
	require.NoError(t, err, "output: %s", output)
	var got cityResponse
	require.NoError(t, json.Unmarshal([]byte(output), &got))
	assert.Len(t, got.Citizens, 3)
	assert.Equal(t, 13, got.Population)

	output, err = r.run("kingdom", "list")
	require.NoError(t, err, "output: %s", output)
	var list []kingdomResponse
	require.NoError(t, json.Unmarshal([]byte(output), &list))
	require.Len(t, list, 1)
	assert.Equal(t, 13, list[0].TotalPopulation)

	output, err = r.run("events", "list", "--limit", "10")
	require.NoError(t, err, "output: %s", output)
	var events []eventResponse
	require.NoError(t, json.Unmarshal([]byte(output), &events))
	require.Len(t, events, 3)
	assert.Equal(t, "auto_generated", events[0].EventType)
	assert.Equal(t, "city_created", events[1].EventType)
	assert.Equal(t, "kingdom_created", events[2].EventType)
	for _, e := range events {
		assert.Equal(t, alice.UserInfo.ID, e.OwnerID)
	}

	output, err = r.run("kingdom", "delete", k.ID)
	require.NoError(t, err, "output: %s", output)

	_, err = r.run("kingdom", "get", k.ID)
	var apiErr *cli.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)
}

func TestCLI_TenantsCannotSeeEachOther(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	alice := newCLIRunner(t, ts.addr)
	bob := newCLIRunner(t, ts.addr)
	signup(t, alice, "alice")
	bobAuth := signup(t, bob, "bob")

	output, err := alice.run("kingdom", "create", "--name", "Avalon")
	require.NoError(t, err, "output: %s", output)
	var k kingdomResponse
	require.NoError(t, json.Unmarshal([]byte(output), &k))

	output, err = bob.runWithToken(bobAuth.AccessToken, "kingdom", "list")
	require.NoError(t, err, "output: %s", output)
	var list []kingdomResponse
	require.NoError(t, json.Unmarshal([]byte(output), &list))
	assert.Empty(t, list)

	_, err = bob.run("kingdom", "get", k.ID)
	var apiErr *cli.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)
}

func TestCLI_RemoteMigrateRequiresSuperAdmin(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	r := newCLIRunner(t, ts.addr)
	signup(t, r, "alice")

	_, err := r.run("migrate", "--remote")
	var apiErr *cli.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.Status)

	// The administrative name cannot be taken through signup
	_, err = r.run("auth", "signup", "--user", "admin", "--email", "mallory@example.com", "--pass", "Secret123!")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)

	_, err = ts.app.Migrator.Run(context.Background())
	require.NoError(t, err)

	admin := newCLIRunner(t, ts.addr)
	output, err := admin.run("auth", "login", "--user", "admin", "--pass", "ChangeMe123!")
	require.NoError(t, err, "output: %s", output)

	output, err = admin.run("migrate", "--remote")
	require.NoError(t, err, "output: %s", output)
	var report struct {
		AdminCreated bool   `json:"admin_created"`
		AdminID      string `json:"admin_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &report))
	assert.False(t, report.AdminCreated)
	assert.NotEmpty(t, report.AdminID)
}
