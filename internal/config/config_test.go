package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Features.ChurnThresholdDays != 60 {
		t.Fatalf("threshold = %d", cfg.Features.ChurnThresholdDays)
	}
	if cfg.Features.OutputPath != "data/processed/customer_features.csv" {
		t.Fatalf("output path = %q", cfg.Features.OutputPath)
	}
	if cfg.Source.Kind != "xlsx" || cfg.Source.Columns.CustomerID != "Customer ID" {
		t.Fatalf("source = %+v", cfg.Source)
	}
	if cfg.Training.TestSize != 0.2 || cfg.Training.RandomState != 42 {
		t.Fatalf("training = %+v", cfg.Training)
	}
	if cfg.Ingest.BatchWait != 500*time.Millisecond {
		t.Fatalf("batch wait = %v", cfg.Ingest.BatchWait)
	}
	if p := cfg.ClassifierParams(); p.Validate() != nil {
		t.Fatalf("default classifier params invalid: %+v", p)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "features:\n  analysis_date: \"2011-01-01\"\nsource:\n  kind: csv\n  path: data/raw/retail.csv\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHURN_FEATURES_CHURN_THRESHOLD_DAYS", "90")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Source.Kind != "csv" || cfg.Source.Path != "data/raw/retail.csv" {
		t.Fatalf("file values not merged: %+v", cfg.Source)
	}
	if cfg.Source.Table != "raw_transactions" {
		t.Fatalf("defaults lost on merge: table = %q", cfg.Source.Table)
	}
	if cfg.Features.ChurnThresholdDays != 90 {
		t.Fatalf("env override ignored: %d", cfg.Features.ChurnThresholdDays)
	}

	s, err := cfg.PipelineSettings()
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if !s.AnalysisDate.Equal(time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC)) || s.ChurnThresholdDays != 90 {
		t.Fatalf("settings = %+v", s)
	}
}

func TestPipelineSettingsErrors(t *testing.T) {
	tests := []struct {
		name string
		f    FeaturesConfig
	}{
		{"bad date", FeaturesConfig{AnalysisDate: "10/12/2011", ChurnThresholdDays: 60}},
		{"empty date", FeaturesConfig{ChurnThresholdDays: 60}},
		{"negative threshold", FeaturesConfig{AnalysisDate: "2011-12-10", ChurnThresholdDays: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := (Config{Features: tt.f}).PipelineSettings(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Features.ChurnThresholdDays != 60 {
		t.Fatalf("threshold = %d", cfg.Features.ChurnThresholdDays)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "features:\n  churn_threshold_days: 90\n   analysis_date: [unclosed\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for a config file that does not parse")
	}
}
