package cmd

import (
	"testing"
	"time"

	"github.com/jmehdipour/churn-predictor/internal/churn"
	"github.com/jmehdipour/churn-predictor/internal/config"
)

func TestDemoTransactionsBuildFeatures(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	settings, err := cfg.PipelineSettings()
	if err != nil {
		t.Fatalf("settings: %v", err)
	}

	cleaned, rep, err := churn.Clean(demoTransactions())
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if rep.MissingCustomer != 1 || rep.NonPositiveQty != 1 || rep.NonPositivePrice != 1 {
		t.Fatalf("clean report = %+v", rep)
	}

	aggs, _, err := churn.Aggregate(cleaned, settings.AnalysisDate)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	churn.ApplyLabels(aggs, settings.ChurnThresholdDays)

	want := map[int64]struct {
		churn   int
		country string
	}{
		12346: {1, "United Kingdom"},
		12347: {0, "Iceland"},
		12348: {1, "Finland"},
		12350: {0, "Norway"},
	}
	if len(aggs) != len(want) {
		t.Fatalf("customers = %d, want %d", len(aggs), len(want))
	}
	for _, a := range aggs {
		w := want[a.CustomerID]
		if a.Churn != w.churn || a.Country != w.country {
			t.Fatalf("customer %d: churn=%d country=%s, want %+v", a.CustomerID, a.Churn, a.Country, w)
		}
	}

	if got := settings.AnalysisDate; !got.Equal(time.Date(2011, 12, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("analysis date = %v", got)
	}
}
