package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := LoadWith(viper.New())
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if cfg.Booking.LockTTLMinutes != 15 {
		t.Fatalf("lock ttl default want 15 got %d", cfg.Booking.LockTTLMinutes)
	}
	if cfg.Booking.PaymentWindowMinutes != 30 {
		t.Fatalf("payment window default want 30 got %d", cfg.Booking.PaymentWindowMinutes)
	}
	if cfg.Booking.PageSize != 10 {
		t.Fatalf("page size default want 10 got %d", cfg.Booking.PageSize)
	}
	if cfg.Inventory.Driver != "unlimited" {
		t.Fatalf("inventory driver default want unlimited got %s", cfg.Inventory.Driver)
	}
	if cfg.Events.Driver != "none" {
		t.Fatalf("events driver default want none got %s", cfg.Events.Driver)
	}
}

func TestLoadWithEnvOverride(t *testing.T) {
	t.Setenv("BOOKING_LOCK_TTL_MINUTES", "20")
	t.Setenv("INVENTORY_DRIVER", "http")
	t.Setenv("DATABASE_DRIVER", "postgres")

	cfg, err := LoadWith(viper.New())
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if cfg.Booking.LockTTLMinutes != 20 {
		t.Fatalf("lock ttl want 20 got %d", cfg.Booking.LockTTLMinutes)
	}
	if cfg.Inventory.Driver != "http" {
		t.Fatalf("inventory driver want http got %s", cfg.Inventory.Driver)
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("database driver want postgres got %s", cfg.Database.Driver)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("RAILBOOK_DOTENV_PROBE=loaded\n"), 0o600); err != nil {
		t.Fatalf("write env file failed: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Unsetenv("RAILBOOK_DOTENV_PROBE")
	})

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("load dotenv failed: %v", err)
	}
	if got := os.Getenv("RAILBOOK_DOTENV_PROBE"); got != "loaded" {
		t.Fatalf("env want loaded got %q", got)
	}
}
