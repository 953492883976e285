package config

import (
	"testing"
)

func TestLoad_EmbeddedDefaults(t *testing.T) {
	t.Setenv("DETECTOR_URL", "")
	t.Setenv("DETECTOR_DIM", "")
	t.Setenv("MATCH_THRESHOLD", "")

	cfg := Load()

	if cfg.Detector.URL != "http://localhost:8000" {
		t.Errorf("expected default detector URL, got '%s'", cfg.Detector.URL)
	}
	if cfg.Detector.Dim != 512 {
		t.Errorf("expected default dim 512, got %d", cfg.Detector.Dim)
	}
	if cfg.Match.Threshold != 0.35 {
		t.Errorf("expected default threshold 0.35, got %f", cfg.Match.Threshold)
	}
	if cfg.Signatures.Path != "signatures.gob" {
		t.Errorf("expected default signature path, got '%s'", cfg.Signatures.Path)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DETECTOR_URL", "http://faces:9000")
	t.Setenv("DETECTOR_DIM", "128")
	t.Setenv("MATCH_THRESHOLD", "0.5")
	t.Setenv("SIGNATURES_PATH", "/var/lib/attendance/sigs.gob")

	cfg := Load()

	if cfg.Detector.URL != "http://faces:9000" {
		t.Errorf("expected overridden detector URL, got '%s'", cfg.Detector.URL)
	}
	if cfg.Detector.Dim != 128 {
		t.Errorf("expected overridden dim 128, got %d", cfg.Detector.Dim)
	}
	if cfg.Match.Threshold != 0.5 {
		t.Errorf("expected overridden threshold 0.5, got %f", cfg.Match.Threshold)
	}
	if cfg.Signatures.Path != "/var/lib/attendance/sigs.gob" {
		t.Errorf("expected overridden signature path, got '%s'", cfg.Signatures.Path)
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("DETECTOR_DIM", "not-a-number")
	t.Setenv("MATCH_THRESHOLD", "-1")

	cfg := Load()

	if cfg.Detector.Dim != 512 {
		t.Errorf("expected fallback dim 512, got %d", cfg.Detector.Dim)
	}
	if cfg.Match.Threshold != 0.35 {
		t.Errorf("expected fallback threshold 0.35, got %f", cfg.Match.Threshold)
	}
}
