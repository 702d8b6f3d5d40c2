package metrics

import (
	"errors"

	"github.com/jmehdipour/churn-predictor/internal/churn"
)

// ObservePipeline records the outcome and row counts of one feature pipeline run.
func ObservePipeline(rep churn.Report, err error) {
	PipelineRuns.WithLabelValues(PipelineStatus(err)).Inc()
	if err != nil {
		return
	}
	PipelineRows.WithLabelValues("raw").Set(float64(rep.Clean.RawRows))
	PipelineRows.WithLabelValues("cleaned").Set(float64(rep.Clean.Cleaned))
	PipelineRows.WithLabelValues("customers").Set(float64(rep.Rows))
	PipelineRows.WithLabelValues("churned").Set(float64(rep.Churned))
}

// PipelineStatus maps a pipeline error onto the status label.
func PipelineStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, churn.ErrDataSourceNotFound):
		return "not_found"
	case errors.Is(err, churn.ErrDataSourceCorrupt):
		return "corrupt"
	case errors.Is(err, churn.ErrSchemaViolation):
		return "schema"
	case errors.Is(err, churn.ErrPersistence):
		return "persistence"
	default:
		return "error"
	}
}
