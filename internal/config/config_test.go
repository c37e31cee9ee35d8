package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.App.RewardMode != RewardModeOffChain {
		t.Errorf("expected default off_chain mode, got %s", cfg.App.RewardMode)
	}
	if cfg.App.SyncInterval != 10*time.Second {
		t.Errorf("expected 10s sync interval, got %v", cfg.App.SyncInterval)
	}
	if cfg.Chain.ChainID != 5003 {
		t.Errorf("expected default chain id 5003, got %d", cfg.Chain.ChainID)
	}
	if cfg.Chain.ConfirmTimeout != 2*time.Minute {
		t.Errorf("expected 2m confirm timeout, got %v", cfg.Chain.ConfirmTimeout)
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Error("expected error when JWT_SECRET is missing")
	}
}

func TestLoadRejectsUnknownRewardMode(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("REWARD_MODE", "sideways")

	if _, err := Load(); err == nil {
		t.Error("expected error for unknown reward mode")
	}
}

func TestLoadOnChainRequiresRPC(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("REWARD_MODE", RewardModeOnChain)
	t.Setenv("CHAIN_RPC_URL", "")

	if _, err := Load(); err == nil {
		t.Error("expected error when on-chain mode has no RPC URL")
	}
}

func TestGetDSN(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_USER", "owatch")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "owatch_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	expected := "host=db.internal port=5433 user=owatch password=pw dbname=owatch_test sslmode=disable"
	if dsn := cfg.GetDSN(); dsn != expected {
		t.Errorf("unexpected DSN: %s", dsn)
	}
}
