package churn

import (
	"testing"

	"github.com/jmehdipour/churn-predictor/internal/model"
)

func TestLabel_ThresholdBoundary(t *testing.T) {
	tests := []struct {
		recency int
		want    int
	}{
		{0, 0},
		{DefaultChurnThresholdDays - 1, 0},
		{DefaultChurnThresholdDays, 0},
		{DefaultChurnThresholdDays + 1, 1},
		{373, 1},
	}

	for _, tt := range tests {
		if got := Label(tt.recency, DefaultChurnThresholdDays); got != tt.want {
			t.Errorf("Label(%d): got %d, want %d", tt.recency, got, tt.want)
		}
	}
}

func TestApplyLabels(t *testing.T) {
	aggs := []model.CustomerAggregate{
		{CustomerID: 1, RecencyDays: 60},
		{CustomerID: 2, RecencyDays: 61},
		{CustomerID: 3, RecencyDays: 200},
	}

	churned := ApplyLabels(aggs, 60)
	if churned != 2 {
		t.Errorf("churned: got %d, want 2", churned)
	}
	if aggs[0].Churn != 0 || aggs[1].Churn != 1 || aggs[2].Churn != 1 {
		t.Errorf("labels: got %d %d %d, want 0 1 1", aggs[0].Churn, aggs[1].Churn, aggs[2].Churn)
	}
}
