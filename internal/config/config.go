package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// RecordsDriver selects where candidate rows live.
type RecordsDriver string

const (
	RecordsAirtable RecordsDriver = "airtable"
	RecordsSQL      RecordsDriver = "sql"
	RecordsMemory   RecordsDriver = "memory"
)

type Config struct {
	Mode     Mode
	HTTPAddr string
	LogLevel string

	DBDriver string
	DBDSN    string

	RecordsDriver RecordsDriver

	AirtableURL    string
	AirtableBaseID string
	AirtableToken  string

	// collection names in the record store
	ApplicantsCollection string
	ScoresCollection     string
	TasksCollection      string
	ApplicantsView       string
	ScoresView           string
	TasksView            string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	RubricFile      string
	SelectionCutoff int

	BlobBasePath string

	AuthHMACSecret string
	AdminUser      string
	AdminPassHash  string // bcrypt

	CORSOriginsOnline  []string
	CORSOriginsOffline []string
}

// FromEnv reads the environment, after loading a .env file when present.
func FromEnv() Config {
	_ = godotenv.Load()

	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		Mode:     mode,
		HTTPAddr: addr,
		LogLevel: envOr("LOG_LEVEL", ""),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		RecordsDriver: RecordsDriver(envOr("RECORDS_DRIVER", string(RecordsAirtable))),

		AirtableURL:    envOr("AIRTABLE_URL", ""),
		AirtableBaseID: os.Getenv("AIRTABLE_BASE_ID"),
		AirtableToken:  os.Getenv("AIRTABLE_TOKEN"),

		ApplicantsCollection: envOr("APPLICANTS_TABLE", "interns_selection_2025"),
		ScoresCollection:     envOr("SCORES_TABLE", "Scores"),
		TasksCollection:      envOr("TASKS_TABLE", "Task_Submit"),
		ApplicantsView:       envOr("APPLICANTS_VIEW", ""),
		ScoresView:           envOr("SCORES_VIEW", ""),
		TasksView:            envOr("TASKS_VIEW", ""),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),
		CacheTTL:      envDuration("CACHE_TTL", 30*time.Second),

		RubricFile:      os.Getenv("RUBRIC_FILE"),
		SelectionCutoff: envInt("SELECTION_CUTOFF", 12),

		BlobBasePath: envOr("BLOB_BASE_PATH", "./data"),

		AuthHMACSecret: envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		AdminUser:      envOr("ADMIN_USER", "admin"),
		AdminPassHash:  envOr("ADMIN_PASS_HASH", ""),

		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", ""),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:5173"),
	}
}

// CORSOrigins returns the allow-list for the current mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

// Views maps collection name to pinned view, skipping unset ones.
func (c Config) Views() map[string]string {
	out := map[string]string{}
	for coll, view := range map[string]string{
		c.ApplicantsCollection: c.ApplicantsView,
		c.ScoresCollection:     c.ScoresView,
		c.TasksCollection:      c.TasksView,
	} {
		if view != "" {
			out[coll] = view
		}
	}
	return out
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}
func envDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil {
		return def
	}
	return d
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
