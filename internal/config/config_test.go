package config

import "testing"

func TestDefaultConfigPassesValidation(t *testing.T) {
	cfg := defaultConfig()
	if err := validate(cfg); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejectsUnknownAlgorithm(t *testing.T) {
	cfg := defaultConfig()
	cfg.Scan.Algorithm = "rot13"
	if err := validate(cfg); err == nil {
		t.Error("expected error for unknown algorithm")
	}
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	cfg := defaultConfig()
	cfg.Media.SimilarityThreshold = 999
	if err := validate(cfg); err == nil {
		t.Error("expected error for out-of-range threshold")
	}
}

func TestEffectiveWorkersFallsBackToNumCPU(t *testing.T) {
	cfg := defaultConfig()
	cfg.Scan.Workers = 0
	if cfg.EffectiveWorkers() <= 0 {
		t.Error("expected positive worker count")
	}
}

func TestEffectiveWorkersHonorsExplicitValue(t *testing.T) {
	cfg := defaultConfig()
	cfg.Scan.Workers = 7
	if cfg.EffectiveWorkers() != 7 {
		t.Errorf("got %d, want 7", cfg.EffectiveWorkers())
	}
}
