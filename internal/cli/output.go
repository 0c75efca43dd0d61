package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	w      io.Writer
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(w io.Writer, format string) *Output {
	return &Output{w: w, format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Account:
		o.printAccount(v)
	case AuthResult:
		o.printAuthResult(v)
	case VerifyResult:
		fmt.Fprintf(o.w, "Valid: %t\nUsername: %s\n", v.Valid, v.Username)
	case []Kingdom:
		o.printKingdoms(v)
	case Kingdom:
		o.printKingdom(v)
	case City:
		o.printCity(v)
	case GenerateResult:
		o.printGenerateResult(v)
	case []Event:
		for _, e := range v {
			o.printEvent(e)
		}
	case Event:
		o.printEvent(v)
	case MigrationReport:
		o.printMigrationReport(v)
	case HealthResult:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Account response type (matches API)
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

// AuthResult is the token issued by signup, login and refresh
type AuthResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserInfo    Account   `json:"user_info"`
}

// VerifyResult response type
type VerifyResult struct {
	Valid    bool   `json:"valid"`
	Username string `json:"username"`
}

// Kingdom response type
type Kingdom struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Ruler           string   `json:"ruler"`
	OwnerID         string   `json:"owner_id"`
	TotalPopulation int      `json:"total_population"`
	RoyalTreasury   int      `json:"royal_treasury"`
	Cities          []City   `json:"cities"`
	Warnings        []string `json:"warnings,omitempty"`
}

// City response type; registries are kept raw
type City struct {
	ID         string            `json:"id"`
	KingdomID  string            `json:"kingdom_id"`
	Name       string            `json:"name"`
	Governor   string            `json:"governor"`
	Population int               `json:"population"`
	Treasury   int               `json:"treasury"`
	Citizens   []json.RawMessage `json:"citizens"`
	Slaves     []json.RawMessage `json:"slaves"`
	Livestock  []json.RawMessage `json:"livestock"`
	Garrison   []json.RawMessage `json:"garrison"`
	Tribute    []json.RawMessage `json:"tribute_records"`
	Crimes     []json.RawMessage `json:"crime_records"`
	Officials  []json.RawMessage `json:"government_officials"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// GenerateResult response type
type GenerateResult struct {
	GeneratedItems []json.RawMessage `json:"generated_items"`
	Count          int               `json:"count"`
	Warnings       []string          `json:"warnings,omitempty"`
}

// Event response type
type Event struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	CityName    string    `json:"city_name,omitempty"`
	KingdomName string    `json:"kingdom_name,omitempty"`
	KingdomID   string    `json:"kingdom_id,omitempty"`
	OwnerID     string    `json:"owner_id,omitempty"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
}

// MigrationReport response type
type MigrationReport struct {
	AdminCreated          bool   `json:"admin_created"`
	AdminID               string `json:"admin_id"`
	KingdomsUpdated       int    `json:"kingdoms_updated"`
	EventsUpdated         int    `json:"events_updated"`
	CalendarEventsUpdated int    `json:"calendar_events_updated"`
	BoundariesUpdated     int    `json:"boundaries_updated"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printAccount(a Account) {
	fmt.Fprintf(o.w, "Account: %s (%s)\n", a.Username, a.ID)
	fmt.Fprintf(o.w, "Email: %s\n", a.Email)
	if a.IsSuperAdmin {
		fmt.Fprintln(o.w, "Role: super-admin")
	}
	if a.ActiveKingdomID != "" {
		fmt.Fprintf(o.w, "Active kingdom: %s\n", a.ActiveKingdomID)
	}
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printAccount(a.UserInfo)
	fmt.Fprintf(o.w, "Token expires: %s\n", a.ExpiresAt.Format(time.RFC3339))
}

func (o *Output) printKingdoms(ks []Kingdom) {
	if len(ks) == 0 {
		fmt.Fprintln(o.w, "No kingdoms")
		return
	}
	for _, k := range ks {
		fmt.Fprintf(o.w, "%s  %s (ruler: %s, population: %d, cities: %d)\n",
			k.ID, k.Name, k.Ruler, k.TotalPopulation, len(k.Cities))
	}
}

func (o *Output) printKingdom(k Kingdom) {
	fmt.Fprintf(o.w, "Kingdom: %s (%s)\n", k.Name, k.ID)
	fmt.Fprintf(o.w, "Ruler: %s\n", k.Ruler)
	fmt.Fprintf(o.w, "Owner: %s\n", k.OwnerID)
	fmt.Fprintf(o.w, "Population: %d\n", k.TotalPopulation)
	fmt.Fprintf(o.w, "Treasury: %d\n", k.RoyalTreasury)
	fmt.Fprintf(o.w, "Cities (%d):\n", len(k.Cities))
	for _, c := range k.Cities {
		fmt.Fprintf(o.w, "  - %s (%s) population %d\n", c.Name, c.ID, c.Population)
	}
	o.printWarnings(k.Warnings)
}

func (o *Output) printCity(c City) {
	fmt.Fprintf(o.w, "City: %s (%s)\n", c.Name, c.ID)
	fmt.Fprintf(o.w, "Kingdom: %s\n", c.KingdomID)
	if c.Governor != "" {
		fmt.Fprintf(o.w, "Governor: %s\n", c.Governor)
	}
	fmt.Fprintf(o.w, "Population: %d\n", c.Population)
	fmt.Fprintf(o.w, "Treasury: %d\n", c.Treasury)
	fmt.Fprintf(o.w, "Registries: citizens=%d slaves=%d livestock=%d garrison=%d tribute=%d crimes=%d officials=%d\n",
		len(c.Citizens), len(c.Slaves), len(c.Livestock), len(c.Garrison), len(c.Tribute), len(c.Crimes), len(c.Officials))
	o.printWarnings(c.Warnings)
}

func (o *Output) printGenerateResult(g GenerateResult) {
	fmt.Fprintf(o.w, "Generated %d records\n", g.Count)
	for _, item := range g.GeneratedItems {
		var summary struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			LivestockType string `json:"livestock_type"`
			Payer         string `json:"payer"`
			Perpetrator   string `json:"perpetrator"`
		}
		_ = json.Unmarshal(item, &summary)
		label := firstNonEmpty(summary.Name, summary.LivestockType, summary.Payer, summary.Perpetrator)
		fmt.Fprintf(o.w, "  - %s %s\n", summary.ID, label)
	}
	o.printWarnings(g.Warnings)
}

func (o *Output) printEvent(e Event) {
	fmt.Fprintf(o.w, "[%s] %s: %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.EventType, e.Description)
}

func (o *Output) printMigrationReport(r MigrationReport) {
	if r.AdminCreated {
		fmt.Fprintf(o.w, "Admin account created: %s (change its password now)\n", r.AdminID)
	} else {
		fmt.Fprintf(o.w, "Admin account: %s\n", r.AdminID)
	}
	fmt.Fprintf(o.w, "Kingdoms updated: %d\n", r.KingdomsUpdated)
	fmt.Fprintf(o.w, "Events updated: %d\n", r.EventsUpdated)
	fmt.Fprintf(o.w, "Calendar events updated: %d\n", r.CalendarEventsUpdated)
	fmt.Fprintf(o.w, "Boundaries updated: %d\n", r.BoundariesUpdated)
}

func (o *Output) printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(o.w, "Warning: %s\n", w)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
