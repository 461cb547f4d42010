// Package config provides configuration management for the bot.
// It loads environment variables and makes them available throughout the application.
package config

import (
	"os"
	"sync"

	"github.com/joho/godotenv"
)

// Store drivers understood by database.Open
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	BotToken   string
	DevGuildID string

	// Storage
	StoreDriver string
	SQLitePath  string
	PostgresURL string
	MongoDBURL  string
	DBName      string
	BackupDir   string

	// MQTT
	MQTTHost        string
	MQTTPort        string
	MQTTUser        string
	MQTTPassword    string
	MQTTTopicPrefix string

	// Web Server
	Port         string
	AllowedHosts string

	// Environment
	Environment string

	// Webhooks
	ErrorWebhook      string
	LogsWebhook       string
	LogsWebServerHook string
}

var (
	Version   = "Dev-Local"
	BuildTime = "Hoy"
)

// cfg holds the global configuration instance
var (
	cfg     *Config
	cfgOnce sync.Once
)

// resetForTesting resets the configuration for testing purposes.
// This function should only be called from test code.
func resetForTesting() {
	cfg = nil
	cfgOnce = sync.Once{}
}

func loadConfig() {
	// Load .env file if it exists (ignoring error if it doesn't)
	_ = godotenv.Load()

	cfg = &Config{
		BotToken:   getEnv("botToken", ""),
		DevGuildID: getEnv("devGuildId", ""),

		StoreDriver: getEnv("STORE_DRIVER", DriverSQLite),
		SQLitePath:  getEnv("SQLITE_PATH", "database.sqlite"),
		PostgresURL: getEnv("DATABASE_URL", ""),
		MongoDBURL:  getEnv("mongodbUrl", "mongodb://localhost:27017"),
		DBName:      getEnv("dbName", "GuildAuth"),
		BackupDir:   getEnv("BACKUP_DIR", "backups"),

		MQTTHost:        getEnv("MQTT_Host", "localhost"),
		MQTTPort:        getEnv("MQTT_Port", "1883"),
		MQTTUser:        getEnv("MQTT_User", ""),
		MQTTPassword:    getEnv("MQTT_Password", ""),
		MQTTTopicPrefix: getEnv("MQTT_Topic_Prefix", "guildauth"),

		Port:         getEnv("PORT", "3000"),
		AllowedHosts: getEnv("ALLOWED_HOSTS", `^(localhost|127\.0\.0\.1)(:\d+)?$`),

		Environment: getEnv("enviroment", "dev"),

		ErrorWebhook:      getEnv("errorWebhook", ""),
		LogsWebhook:       getEnv("logsWebhook", ""),
		LogsWebServerHook: getEnv("logsWebServerWebhook", ""),
	}
}

// Load initializes the configuration from environment variables
func Load() (*Config, error) {
	cfgOnce.Do(loadConfig)
	return cfg, nil
}

// Get returns the current configuration
func Get() *Config {
	cfgOnce.Do(loadConfig)
	return cfg
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsProd returns true if the environment is production
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}

// MQTTClientID returns the base MQTT client id for the current environment
func (c *Config) MQTTClientID() string {
	if c.IsProd() {
		return "guildauth"
	}
	return "guildauth_canary"
}
