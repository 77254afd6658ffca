package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_WithDefaults(t *testing.T) {
	// Clear any existing env vars that might interfere
	envVars := []string{
		"APP_NAME", "APP_ENVIRONMENT", "APP_DEBUG",
		"SERVER_HOST", "SERVER_PORT",
		"DATABASE_HOST", "DATABASE_PORT", "DATABASE_USER", "DATABASE_PASSWORD", "DATABASE_DBNAME",
		"REDIS_ENABLED", "REDIS_HOST", "REDIS_PORT",
		"KAFKA_BROKERS", "KAFKA_CONSUMER_GROUP", "KAFKA_CLIENT_ID", "KAFKA_WORKERS",
		"CACHE_STALE_THRESHOLD", "CACHE_OPERATIONAL_TTL",
		"OTEL_ENABLED", "OTEL_COLLECTOR_ADDR",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Check defaults
	if cfg.App.Name != "tenant-sync" {
		t.Errorf("App.Name = %q, want %q", cfg.App.Name, "tenant-sync")
	}

	if cfg.App.Environment != "development" {
		t.Errorf("App.Environment = %q, want %q", cfg.App.Environment, "development")
	}

	if cfg.Server.Port != 8090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8090)
	}

	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 5432)
	}

	if cfg.Database.DBName != "tenant_cache" {
		t.Errorf("Database.DBName = %q, want %q", cfg.Database.DBName, "tenant_cache")
	}

	if cfg.Redis.Enabled {
		t.Error("Redis.Enabled = true, want false by default")
	}

	if cfg.Redis.Port != 6379 {
		t.Errorf("Redis.Port = %d, want %d", cfg.Redis.Port, 6379)
	}

	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "localhost:9092" {
		t.Errorf("Kafka.Brokers = %v, want [localhost:9092]", cfg.Kafka.Brokers)
	}

	if cfg.Kafka.ConsumerGroup != "tenant-cache-sync" {
		t.Errorf("Kafka.ConsumerGroup = %q, want %q", cfg.Kafka.ConsumerGroup, "tenant-cache-sync")
	}

	if cfg.Kafka.Workers != 3 {
		t.Errorf("Kafka.Workers = %d, want %d", cfg.Kafka.Workers, 3)
	}

	if cfg.Cache.StaleThreshold != time.Hour {
		t.Errorf("Cache.StaleThreshold = %v, want 1h", cfg.Cache.StaleThreshold)
	}

	if cfg.Cache.OperationalTTL != 30*time.Second {
		t.Errorf("Cache.OperationalTTL = %v, want 30s", cfg.Cache.OperationalTTL)
	}

	if cfg.OTel.Enabled {
		t.Error("OTel.Enabled = true, want false by default")
	}
}

func TestLoad_WithEnvOverride(t *testing.T) {
	os.Setenv("APP_NAME", "test-app")
	os.Setenv("SERVER_PORT", "9090")
	os.Setenv("DATABASE_HOST", "tenant-db.example.com")
	os.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	os.Setenv("CACHE_STALE_THRESHOLD", "30m")
	defer func() {
		os.Unsetenv("APP_NAME")
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("DATABASE_HOST")
		os.Unsetenv("KAFKA_BROKERS")
		os.Unsetenv("CACHE_STALE_THRESHOLD")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.App.Name != "test-app" {
		t.Errorf("App.Name = %q, want %q", cfg.App.Name, "test-app")
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}

	if cfg.Database.Host != "tenant-db.example.com" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "tenant-db.example.com")
	}

	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("Kafka.Brokers = %v, want [kafka-1:9092 kafka-2:9092]", cfg.Kafka.Brokers)
	}

	if cfg.Cache.StaleThreshold != 30*time.Minute {
		t.Errorf("Cache.StaleThreshold = %v, want 30m", cfg.Cache.StaleThreshold)
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	if dsn := cfg.DSN(); dsn != expected {
		t.Errorf("DSN() = %q, want %q", dsn, expected)
	}
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{
		Host: "redis.example.com",
		Port: 6380,
	}

	expected := "redis.example.com:6380"
	if addr := cfg.Addr(); addr != expected {
		t.Errorf("Addr() = %q, want %q", addr, expected)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			App:      AppConfig{Name: "test", Environment: "development"},
			Server:   ServerConfig{Port: 8090},
			Database: DatabaseConfig{Host: "localhost", DBName: "tenant_cache"},
			Kafka: KafkaConfig{
				Brokers:       []string{"localhost:9092"},
				ConsumerGroup: "tenant-cache-sync",
				Workers:       3,
			},
			Cache: CacheConfig{StaleThreshold: time.Hour},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"missing app name", func(c *Config) { c.App.Name = "" }, true},
		{"invalid port", func(c *Config) { c.Server.Port = -1 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"missing database host", func(c *Config) { c.Database.Host = "" }, true},
		{"missing database name", func(c *Config) { c.Database.DBName = "" }, true},
		{"no kafka brokers", func(c *Config) { c.Kafka.Brokers = nil }, true},
		{"empty kafka broker", func(c *Config) { c.Kafka.Brokers = []string{""} }, true},
		{"missing consumer group", func(c *Config) { c.Kafka.ConsumerGroup = "" }, true},
		{"zero workers", func(c *Config) { c.Kafka.Workers = 0 }, true},
		{"zero stale threshold", func(c *Config) { c.Cache.StaleThreshold = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	cfg := &Config{
		App: AppConfig{Environment: "production"},
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction() = false, want true")
	}

	cfg.App.Environment = "development"
	if cfg.IsProduction() {
		t.Error("IsProduction() = true, want false")
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{
		App: AppConfig{Environment: "development"},
	}
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true")
	}

	cfg.App.Environment = "production"
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true, want false")
	}
}
