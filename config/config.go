package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"guildbank/database"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds all application configuration
type Config struct {
	// Discord
	DiscordToken string
	GuildID      string // Optional; registers slash commands for a single guild when set

	// Database
	DatabaseURL  string
	DatabaseName string
	DBMaxConns   int32

	// Economy
	CommunityStartingPool int64 // Pool grant for a newly registered community

	// Scheduler
	TickSpec           string        // cron spec for the sweep tick
	VoiceSessionMaxAge time.Duration // Sessions older than this are dropped on the tick

	// Event forwarding
	NATSServers string // Empty disables forwarding
	NATSSubject string // Subject prefix for forwarded events

	// Metrics
	OTelEnabled              bool
	OTelServiceName          string
	OTelExportIntervalMillis int

	LogLevel    string
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// GetDatabaseURL combines the base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load reads configuration from the environment, after an optional .env file
func load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug("Loaded environment from .env")
	}

	config := &Config{
		DiscordToken: os.Getenv("DISCORD_TOKEN"),
		GuildID:      os.Getenv("GUILD_ID"),

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),
		DBMaxConns:   int32(parseInt64("DB_MAX_CONNS", 10)),

		CommunityStartingPool: parseInt64("COMMUNITY_STARTING_POOL", 10000),

		TickSpec:           getEnvWithDefault("SCHEDULER_TICK", "@every 1m"),
		VoiceSessionMaxAge: parseDuration("VOICE_SESSION_MAX_AGE", 12*time.Hour),

		NATSServers: os.Getenv("NATS_SERVERS"),
		NATSSubject: getEnvWithDefault("NATS_SUBJECT_PREFIX", "guildbank"),

		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "guildbank"),
		OTelExportIntervalMillis: int(parseInt64("OTEL_EXPORT_INTERVAL_MS", 60000)),

		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
	}

	if config.Environment != "test" {
		if config.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}
	if config.CommunityStartingPool < 0 {
		return nil, fmt.Errorf("COMMUNITY_STARTING_POOL must not be negative")
	}

	return config, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseInt64(key string, defaultValue int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		log.WithFields(log.Fields{
			"key":   key,
			"value": raw,
		}).Warn("Ignoring invalid integer setting")
		return defaultValue
	}
	return value
}

func parseDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		log.WithFields(log.Fields{
			"key":   key,
			"value": raw,
		}).Warn("Ignoring invalid duration setting")
		return defaultValue
	}
	return value
}

// SetTestConfig sets a test configuration
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:           "test",
		CommunityStartingPool: 10000,
		TickSpec:              "@every 1m",
		VoiceSessionMaxAge:    12 * time.Hour,
		NATSSubject:           "guildbank",
		OTelServiceName:       "guildbank-test",
		LogLevel:              "debug",
	}
}
