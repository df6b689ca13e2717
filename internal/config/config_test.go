package config

import (
	"path/filepath"
	"testing"
)

func TestConfigDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SIFT_CONFIG_DIR", dir)

	got, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir: %v", err)
	}
	if got != dir {
		t.Fatalf("expected override %s, got %s", dir, got)
	}
}

func TestDataDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SIFT_DATA_DIR", dir)

	got, err := GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir: %v", err)
	}
	if got != dir {
		t.Fatalf("expected override %s, got %s", dir, got)
	}
}

func TestLoadMissingConfigReturnsDefaults(t *testing.T) {
	t.Setenv("SIFT_CONFIG_DIR", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Me.Names) != 0 || cfg.BlacklistPath != "" {
		t.Fatalf("expected zero-value config, got %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("SIFT_CONFIG_DIR", t.TempDir())

	cfg := &Config{
		Me: MeConfig{Names: []string{"Cal Harris", "cal"}},
		Embedding: EmbeddingConfig{
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			BatchSize: 64,
		},
		Scoring: ScoringConfig{
			Thread: ThreadWeights{Outbound: 4, HalfLifeDays: 21},
		},
		Tiers:         TierThresholds{EngagedThreshold: 2, MinimumActivity: 5},
		BlacklistPath: "/tmp/custom-blacklist.json",
	}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Me.Names[0] != "Cal Harris" {
		t.Fatalf("names not round-tripped: %+v", loaded.Me)
	}
	if loaded.Embedding.BatchSize != 64 || loaded.Embedding.Model != "text-embedding-3-small" {
		t.Fatalf("embedding config not round-tripped: %+v", loaded.Embedding)
	}
	if loaded.Scoring.Thread.Outbound != 4 || loaded.Scoring.Thread.HalfLifeDays != 21 {
		t.Fatalf("scoring weights not round-tripped: %+v", loaded.Scoring.Thread)
	}
	if loaded.Tiers.EngagedThreshold != 2 {
		t.Fatalf("tier thresholds not round-tripped: %+v", loaded.Tiers)
	}
}

func TestResolveBlacklistPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SIFT_CONFIG_DIR", dir)

	cfg := &Config{}
	path, err := cfg.ResolveBlacklistPath()
	if err != nil {
		t.Fatalf("ResolveBlacklistPath: %v", err)
	}
	if path != filepath.Join(dir, "blacklist.json") {
		t.Fatalf("unexpected default path %s", path)
	}

	cfg.BlacklistPath = "/elsewhere/list.json"
	path, err = cfg.ResolveBlacklistPath()
	if err != nil {
		t.Fatalf("ResolveBlacklistPath: %v", err)
	}
	if path != "/elsewhere/list.json" {
		t.Fatalf("explicit path not honored: %s", path)
	}
}
