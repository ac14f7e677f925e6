package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalYAML = `
environment: development
vendor:
  refresh_token: secret
watch:
  instruments: [NI00.SHF]
alerts:
  price_move_pct: 3.0
  open_interest_move_pct: 5.0
`

func TestLoadDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Vendor.BaseURL != "https://quantapi.51ifind.com/api/v1" {
		t.Fatalf("unexpected base url %q", c.Vendor.BaseURL)
	}
	if c.Vendor.MarketCode != "142001" {
		t.Fatalf("unexpected market code %q", c.Vendor.MarketCode)
	}
	if c.Watch.LookbackDays != 90 {
		t.Fatalf("unexpected lookback %d", c.Watch.LookbackDays)
	}
	if c.Alerts.Cooldown != 5*time.Minute {
		t.Fatalf("unexpected cooldown %v", c.Alerts.Cooldown)
	}
	if c.Logging.Level != "info" {
		t.Fatalf("unexpected log level %q", c.Logging.Level)
	}
}

func TestLoadMissingRefreshToken(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: development
watch:
  instruments: [NI00.SHF]
alerts:
  price_move_pct: 3.0
  open_interest_move_pct: 5.0
`))
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("IFIND_REFRESH_TOKEN", "env-secret")
	t.Setenv("WATCH_LIST", "NI00.SHF,ZN00.SHF")

	c, err := LoadWithEnv(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Vendor.RefreshToken != "env-secret" {
		t.Fatalf("env override not applied: %q", c.Vendor.RefreshToken)
	}
	if len(c.Watch.Instruments) != 2 || c.Watch.Instruments[1] != "ZN00.SHF" {
		t.Fatalf("watch override not applied: %v", c.Watch.Instruments)
	}
}
