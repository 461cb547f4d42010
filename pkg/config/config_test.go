package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	os.Setenv("botToken", "test-token")
	os.Setenv("PORT", "3001")
	os.Setenv("enviroment", "test")
	os.Setenv("STORE_DRIVER", "postgres")
	os.Setenv("DATABASE_URL", "postgres://bot@localhost/guildauth")
	defer func() {
		os.Unsetenv("botToken")
		os.Unsetenv("PORT")
		os.Unsetenv("enviroment")
		os.Unsetenv("STORE_DRIVER")
		os.Unsetenv("DATABASE_URL")
	}()

	resetForTesting()

	config, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if config.BotToken != "test-token" {
		t.Errorf("BotToken = %v, want %v", config.BotToken, "test-token")
	}

	if config.Port != "3001" {
		t.Errorf("Port = %v, want %v", config.Port, "3001")
	}

	if config.Environment != "test" {
		t.Errorf("Environment = %v, want %v", config.Environment, "test")
	}

	if config.StoreDriver != DriverPostgres {
		t.Errorf("StoreDriver = %v, want %v", config.StoreDriver, DriverPostgres)
	}

	if config.PostgresURL != "postgres://bot@localhost/guildauth" {
		t.Errorf("PostgresURL = %v, want %v", config.PostgresURL, "postgres://bot@localhost/guildauth")
	}
}

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_VAR", "test-value")
	defer os.Unsetenv("TEST_VAR")

	if got := getEnv("TEST_VAR", "default"); got != "test-value" {
		t.Errorf("getEnv() = %v, want %v", got, "test-value")
	}

	if got := getEnv("NON_EXISTENT_VAR", "default"); got != "default" {
		t.Errorf("getEnv() = %v, want %v", got, "default")
	}
}

func TestIsProd(t *testing.T) {
	resetForTesting()
	os.Setenv("enviroment", "prod")
	config, _ := Load()

	if !config.IsProd() {
		t.Error("IsProd() should return true when environment is 'prod'")
	}
	if got := config.MQTTClientID(); got != "guildauth" {
		t.Errorf("MQTTClientID() = %v, want %v", got, "guildauth")
	}

	resetForTesting()
	os.Setenv("enviroment", "dev")
	config, _ = Load()

	if config.IsProd() {
		t.Error("IsProd() should return false when environment is not 'prod'")
	}
	if got := config.MQTTClientID(); got != "guildauth_canary" {
		t.Errorf("MQTTClientID() = %v, want %v", got, "guildauth_canary")
	}

	os.Unsetenv("enviroment")
}

func TestGet(t *testing.T) {
	resetForTesting()

	config := Get()
	if config == nil {
		t.Fatal("Get() returned nil")
	}

	config2 := Get()
	if config != config2 {
		t.Error("Get() should return the same config on subsequent calls")
	}
}

func TestDefaultValues(t *testing.T) {
	for _, key := range []string{
		"botToken", "devGuildId", "STORE_DRIVER", "SQLITE_PATH", "mongodbUrl", "dbName",
		"MQTT_Host", "MQTT_Port", "MQTT_Topic_Prefix", "PORT", "enviroment", "BACKUP_DIR",
	} {
		os.Unsetenv(key)
	}

	resetForTesting()
	config, _ := Load()

	if config.StoreDriver != DriverSQLite {
		t.Errorf("StoreDriver default = %v, want %v", config.StoreDriver, DriverSQLite)
	}

	if config.SQLitePath != "database.sqlite" {
		t.Errorf("SQLitePath default = %v, want %v", config.SQLitePath, "database.sqlite")
	}

	if config.MongoDBURL != "mongodb://localhost:27017" {
		t.Errorf("MongoDBURL default = %v, want %v", config.MongoDBURL, "mongodb://localhost:27017")
	}

	if config.DBName != "GuildAuth" {
		t.Errorf("DBName default = %v, want %v", config.DBName, "GuildAuth")
	}

	if config.MQTTHost != "localhost" {
		t.Errorf("MQTTHost default = %v, want %v", config.MQTTHost, "localhost")
	}

	if config.MQTTPort != "1883" {
		t.Errorf("MQTTPort default = %v, want %v", config.MQTTPort, "1883")
	}

	if config.MQTTTopicPrefix != "guildauth" {
		t.Errorf("MQTTTopicPrefix default = %v, want %v", config.MQTTTopicPrefix, "guildauth")
	}

	if config.Port != "3000" {
		t.Errorf("Port default = %v, want %v", config.Port, "3000")
	}

	if config.Environment != "dev" {
		t.Errorf("Environment default = %v, want %v", config.Environment, "dev")
	}

	if config.BackupDir != "backups" {
		t.Errorf("BackupDir default = %v, want %v", config.BackupDir, "backups")
	}
}
