package config

import (
	"math"
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		StoreDriver:      StoreDriverSQLite,
		SQLitePath:       "leads.db",
		DedupThreshold:   0.85,
		MergeConcurrency: 4,
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validConfig().validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	for _, threshold := range []float64{-0.1, 1.01, math.NaN()} {
		cfg := validConfig()
		cfg.DedupThreshold = threshold
		err := cfg.validate()
		if err == nil || !strings.Contains(err.Error(), "DEDUP_THRESHOLD") {
			t.Fatalf("threshold %v: expected DEDUP_THRESHOLD error, got %v", threshold, err)
		}
	}
}

func TestValidateRequiresDriverSettings(t *testing.T) {
	cfg := validConfig()
	cfg.StoreDriver = StoreDriverPostgres
	if err := cfg.validate(); err == nil {
		t.Fatalf("expected missing DATABASE_URL error")
	}

	cfg = validConfig()
	cfg.StoreDriver = "mysql"
	if err := cfg.validate(); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}
