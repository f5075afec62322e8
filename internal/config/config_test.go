// AngelaMos | 2026
// config_test.go

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/elotto")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	c, err := load("")
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if c.Store.Backend != StoreBackendPostgres {
		t.Errorf("Store.Backend = %q, want %q", c.Store.Backend, StoreBackendPostgres)
	}
	if c.Resolver.Timeout != 10*time.Second {
		t.Errorf("Resolver.Timeout = %v, want 10s", c.Resolver.Timeout)
	}
	if c.Writer.QueueSize != 256 {
		t.Errorf("Writer.QueueSize = %d, want 256", c.Writer.QueueSize)
	}
	if c.Server.Address() != "0.0.0.0:8080" {
		t.Errorf("Server.Address() = %q", c.Server.Address())
	}
	if !c.IsDevelopment() || c.IsProduction() {
		t.Errorf("environment = %q, want development", c.App.Environment)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STORE_BACKEND", StoreBackendMemory)
	t.Setenv("RESOLVER_TIMEOUT", "250ms")
	t.Setenv("PORT", "9090")
	t.Setenv("NATS_ENABLED", "true")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	c, err := load("")
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if c.Store.Backend != StoreBackendMemory {
		t.Errorf("Store.Backend = %q, want memory", c.Store.Backend)
	}
	if c.Resolver.Timeout != 250*time.Millisecond {
		t.Errorf("Resolver.Timeout = %v, want 250ms", c.Resolver.Timeout)
	}
	if c.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", c.Server.Port)
	}
	if !c.NATS.Enabled || c.NATS.URL != "nats://localhost:4222" {
		t.Errorf("NATS = %+v", c.NATS)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "app:\n  name: test-lotto\nwriter:\n  queue_size: 8\nqr:\n  size: 512\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := load(path)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if c.App.Name != "test-lotto" {
		t.Errorf("App.Name = %q", c.App.Name)
	}
	if c.Writer.QueueSize != 8 {
		t.Errorf("Writer.QueueSize = %d, want 8", c.Writer.QueueSize)
	}
	if c.QR.Size != 512 {
		t.Errorf("QR.Size = %d, want 512", c.QR.Size)
	}
	if c.Cache.TTL != 5*time.Minute {
		t.Errorf("Cache.TTL = %v, want default 5m", c.Cache.TTL)
	}
	if c.Cache.FetchTimeout != 10*time.Second {
		t.Errorf("Cache.FetchTimeout = %v, want default 10s", c.Cache.FetchTimeout)
	}
}

func TestLoadMissingFile(t *testing.T) {
	setRequiredEnv(t)

	if _, err := load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("load() with missing file error = nil, want error")
	}
}

func validConfig() *Config {
	return &Config{
		App:      AppConfig{Environment: "development"},
		Server:   ServerConfig{ReadTimeout: time.Second, WriteTimeout: time.Second},
		Store:    StoreConfig{Backend: StoreBackendPostgres},
		Database: DatabaseConfig{URL: "postgres://localhost/elotto"},
		Redis:    RedisConfig{URL: "redis://localhost:6379"},
		JWT:      JWTConfig{PrivateKeyPath: "a", PublicKeyPath: "b"},
		Writer:   WriterConfig{QueueSize: 1},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"memory store needs no database", func(c *Config) {
			c.Store.Backend = StoreBackendMemory
			c.Database.URL = ""
		}, ""},
		{"postgres without url", func(c *Config) { c.Database.URL = "" }, "DATABASE_URL"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "firestore" }, "unknown store backend"},
		{"nats without url", func(c *Config) { c.NATS.Enabled = true }, "NATS_URL"},
		{"negative resolver timeout", func(c *Config) {
			c.Resolver.Timeout = -time.Second
		}, "resolver.timeout"},
		{"empty writer queue", func(c *Config) { c.Writer.QueueSize = 0 }, "writer.queue_size"},
		{"wildcard cors with credentials", func(c *Config) {
			c.CORS.AllowCredentials = true
			c.CORS.AllowedOrigins = []string{"*"}
		}, "CORS wildcard"},
		{"memory store in production", func(c *Config) {
			c.App.Environment = "production"
			c.Store.Backend = StoreBackendMemory
		}, "memory store"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := validate(c)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}
