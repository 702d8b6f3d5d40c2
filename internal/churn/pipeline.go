package churn

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/churn-predictor/internal/util"
	"go.uber.org/zap"
)

// Settings are the run constants. They must match between training-time and any later labelling.
type Settings struct {
	AnalysisDate       time.Time
	ChurnThresholdDays int
}

// Source yields the raw transaction partitions. Only implementations know the raw format.
// Load must wrap ErrDataSourceNotFound or ErrDataSourceCorrupt on failure.
type Source interface {
	Location() string
	Load(ctx context.Context) ([]Partition, error)
}

// Report is the audit trail of one pipeline run.
type Report struct {
	RunID     string
	Source    string
	Clean     CleanReport
	Aggregate AggregateReport
	Rows      int
	Churned   int
}

type Pipeline struct {
	source   Source
	settings Settings
	log      *zap.Logger
}

func New(source Source, settings Settings, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{source: source, settings: settings, log: log}
}

// Build runs load → clean → aggregate → label → assemble and returns the table in memory.
func (p *Pipeline) Build(ctx context.Context) (FeatureTable, Report, error) {
	rep := Report{RunID: util.NewID(), Source: p.source.Location()}
	log := p.log.With(zap.String("run_id", rep.RunID))

	// 1) load + merge
	log.Info("loading raw data", zap.String("source", rep.Source))
	parts, err := p.source.Load(ctx)
	if err != nil {
		return FeatureTable{}, rep, err
	}
	records := Merge(parts)
	log.Info("partitions merged",
		zap.Int("partitions", len(parts)),
		zap.Int("rows", len(records)),
	)

	if err := ctx.Err(); err != nil {
		return FeatureTable{}, rep, err
	}

	// 2) clean
	cleaned, cleanRep, err := Clean(records)
	cleanRep.Partitions = len(parts)
	rep.Clean = cleanRep
	if err != nil {
		return FeatureTable{}, rep, err
	}
	log.Info("rows without customer id discarded", zap.Int("dropped", cleanRep.MissingCustomer))
	log.Info("returns and zero-price lines discarded",
		zap.Int("non_positive_quantity", cleanRep.NonPositiveQty),
		zap.Int("non_positive_price", cleanRep.NonPositivePrice),
	)
	log.Info("cleaning completed", zap.Int("rows", cleanRep.Cleaned))

	if err := ctx.Err(); err != nil {
		return FeatureTable{}, rep, err
	}

	// 3) aggregate
	aggs, aggRep, err := Aggregate(cleaned, p.settings.AnalysisDate)
	rep.Aggregate = aggRep
	if err != nil {
		return FeatureTable{}, rep, err
	}
	log.Info("rfm features calculated",
		zap.Int("customers", aggRep.Customers),
		zap.Int("degenerate_dropped", aggRep.Degenerate),
		zap.Time("analysis_date", p.settings.AnalysisDate),
	)

	// 4) label
	rep.Churned = ApplyLabels(aggs, p.settings.ChurnThresholdDays)
	log.Info("churn label derived",
		zap.Int("threshold_days", p.settings.ChurnThresholdDays),
		zap.Int("churned", rep.Churned),
	)

	// 5) assemble
	table := Assemble(aggs)
	rep.Rows = table.Len()

	return table, rep, nil
}

// Run builds the table and, only when that fully succeeds, replaces the artifact at outputPath.
func (p *Pipeline) Run(ctx context.Context, outputPath string) (FeatureTable, Report, error) {
	table, rep, err := p.Build(ctx)
	if err != nil {
		return FeatureTable{}, rep, err
	}

	if err := WriteCSV(outputPath, table); err != nil {
		return FeatureTable{}, rep, fmt.Errorf("save feature table: %w", err)
	}
	p.log.Info("feature table saved",
		zap.String("run_id", rep.RunID),
		zap.String("path", outputPath),
		zap.Int("rows", rep.Rows),
	)

	return table, rep, nil
}
