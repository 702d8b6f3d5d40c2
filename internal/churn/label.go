package churn

import "github.com/jmehdipour/churn-predictor/internal/model"

// DefaultChurnThresholdDays is the inactivity window after which a customer counts as churned.
const DefaultChurnThresholdDays = 60

// Label returns 1 when recencyDays is strictly greater than thresholdDays.
func Label(recencyDays, thresholdDays int) int {
	if recencyDays > thresholdDays {
		return 1
	}
	return 0
}

// ApplyLabels sets Churn on every aggregate in place and returns how many churned.
func ApplyLabels(aggs []model.CustomerAggregate, thresholdDays int) int {
	churned := 0
	for i := range aggs {
		aggs[i].Churn = Label(aggs[i].RecencyDays, thresholdDays)
		churned += aggs[i].Churn
	}
	return churned
}
