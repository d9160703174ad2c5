package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validYAML = `
environment: test
logging:
  level: debug
  format: console
server:
  port: 8080
stream:
  websocket_url: wss://stream.bybit.com/v5/public/linear
  symbols: [BTCUSDT, ETHUSDT]
pool:
  cycle_cron: "*/5 * * * *"
  stale_after: 10m
  warning_grace: 30m
filters:
  min_volume_24h: 1000000
  min_natr: 0.5
  max_natr: 15
signals:
  z_score_threshold: 2
cache:
  ttl: 5m
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	c, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Pool.WarningGrace != 30*time.Minute {
		t.Fatalf("warning_grace = %v", c.Pool.WarningGrace)
	}
	if len(c.Stream.Symbols) != 2 || c.Stream.Symbols[0] != "BTCUSDT" {
		t.Fatalf("symbols = %v", c.Stream.Symbols)
	}
	if c.Filters.MinNATR != 0.5 {
		t.Fatalf("min_natr = %v", c.Filters.MinNATR)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	base := func() *Config {
		c, err := Load(writeConfig(t, validYAML))
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		return c
	}

	c := base()
	c.Pool.CycleCron = ""
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for empty cycle_cron")
	}

	c = base()
	c.Pool.WarningGrace = 0
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for zero warning_grace")
	}

	c = base()
	c.Stream.Symbols = nil
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for empty symbols")
	}

	c = base()
	c.Filters.MinNATR = 20
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for min_natr above max_natr")
	}

	c = base()
	c.Kafka.Enabled = true
	c.Kafka.Brokers = nil
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for enabled kafka without brokers")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("STREAM_WS_URL", "wss://override.example/ws")
	t.Setenv("SYMBOLS", "SOLUSDT,XRPUSDT")
	t.Setenv("REDIS_ADDR", "redis:6379")

	c, err := LoadWithEnv(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Stream.WebSocketURL != "wss://override.example/ws" {
		t.Fatalf("websocket_url = %q", c.Stream.WebSocketURL)
	}
	if len(c.Stream.Symbols) != 2 || c.Stream.Symbols[1] != "XRPUSDT" {
		t.Fatalf("symbols = %v", c.Stream.Symbols)
	}
	if c.Cache.Redis.Addr != "redis:6379" {
		t.Fatalf("redis addr = %q", c.Cache.Redis.Addr)
	}
}
