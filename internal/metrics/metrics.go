package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	PipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_pipeline_runs_total",
			Help: "Feature pipeline runs by outcome",
		},
		[]string{"status"}, // ok|not_found|corrupt|schema|persistence|error
	)

	PipelineRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "churn_pipeline_rows",
			Help: "Row counts of the last pipeline run by stage",
		},
		[]string{"stage"}, // raw|cleaned|customers|churned
	)

	ModelF1 = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "churn_model_f1",
			Help: "F1 score of the last trained model on its test split",
		},
	)

	PredictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_predictions_total",
			Help: "Served predictions by label",
		},
		[]string{"label"}, // 0|1
	)

	PredictionCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_prediction_cache_total",
			Help: "Prediction cache lookups by result",
		},
		[]string{"result"}, // hit|miss
	)

	IngestEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_ingest_events_total",
			Help: "Transaction events consumed by the ingest worker",
		},
		[]string{"status"}, // stored|malformed
	)
)

var once sync.Once

// MustRegister is safe to call from every command; collectors are registered once.
func MustRegister(r prometheus.Registerer) {
	once.Do(func() {
		r.MustRegister(
			PipelineRuns,
			PipelineRows,
			ModelF1,
			PredictionsTotal,
			PredictionCache,
			IngestEvents,
		)
	})
}
