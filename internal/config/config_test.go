package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("port = %q", cfg.Port)
	}
	if cfg.SQLiteDBPath != "./data/kfz.db" {
		t.Errorf("db path = %q", cfg.SQLiteDBPath)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Errorf("session ttl = %v", cfg.SessionTTL)
	}
	if cfg.DefaultFuelType() != "benzin" {
		t.Errorf("default fuel type = %q", cfg.DefaultFuelType())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("KFZ_FUEL_TYPES", "diesel, adblue")
	t.Setenv("KFZ_SESSION_TTL", "2h")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Errorf("port = %q", cfg.Port)
	}
	if len(cfg.FuelTypes) != 2 || cfg.FuelTypes[0] != "diesel" || cfg.FuelTypes[1] != "adblue" {
		t.Errorf("fuel types = %v", cfg.FuelTypes)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("session ttl = %v", cfg.SessionTTL)
	}
}

func TestLoadIgnoresMalformedEnv(t *testing.T) {
	t.Setenv("KFZ_SESSION_TTL", "bald")
	t.Setenv("KFZ_MAX_UPLOAD", "viel")

	cfg := Load()
	if cfg.SessionTTL != 12*time.Hour {
		t.Errorf("session ttl = %v", cfg.SessionTTL)
	}
	if cfg.MaxUploadBytes != 5<<20 {
		t.Errorf("upload limit = %d", cfg.MaxUploadBytes)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Load()
	cfg.Port = "nope"
	cfg.AdminPassword = ""
	cfg.FuelTypes = nil

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"invalid port", "admin password", "fuel type list"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error misses %q: %v", want, err)
		}
	}
}
