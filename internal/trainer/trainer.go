// Package trainer fits the churn classifier on a persisted feature table.
package trainer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmehdipour/churn-predictor/internal/churn"
	"github.com/jmehdipour/churn-predictor/internal/classifier"
	"github.com/jmehdipour/churn-predictor/internal/metrics"
	"github.com/jmehdipour/churn-predictor/internal/model"
	"go.uber.org/zap"
)

var (
	ErrEmptyFeatureTable = errors.New("feature table is empty")
	ErrSingleClass       = errors.New("feature table has a single class")
)

type Options struct {
	TestSize    float64
	RandomState int64
	Params      classifier.Params
}

// Samples splits a feature table into classifier inputs and labels.
// Recency is dropped: it defines the label and would leak it.
func Samples(t churn.FeatureTable) ([]model.ChurnInput, []int) {
	xs := make([]model.ChurnInput, len(t.Rows))
	ys := make([]int, len(t.Rows))
	for i, r := range t.Rows {
		xs[i] = model.ChurnInput{Frequency: r.Frequency, Monetary: r.Monetary, Country: r.Country}
		ys[i] = r.Churn
	}
	return xs, ys
}

// Train splits, fits and evaluates. The returned model carries its test metrics.
func Train(ctx context.Context, t churn.FeatureTable, opts Options, log *zap.Logger) (*classifier.Model, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if t.Len() == 0 {
		return nil, ErrEmptyFeatureTable
	}
	churned := t.Churned()
	if churned == 0 || churned == t.Len() {
		return nil, fmt.Errorf("%w: %d of %d rows churned", ErrSingleClass, churned, t.Len())
	}

	xs, ys := Samples(t)
	trainIdx, testIdx, err := classifier.StratifiedSplit(ys, opts.TestSize, opts.RandomState)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trainX, trainY := pick(xs, ys, trainIdx)
	testX, testY := pick(xs, ys, testIdx)

	m, err := classifier.Fit(trainX, trainY, opts.Params)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}

	p, r, f1 := classifier.Score(testY, m.PredictAll(testX))
	m.Metrics = classifier.Metrics{
		F1:        f1,
		Precision: p,
		Recall:    r,
		TrainRows: len(trainIdx),
		TestRows:  len(testIdx),
	}
	metrics.ModelF1.Set(f1)

	log.Info("model trained",
		zap.String("version", m.Version),
		zap.Int("train_rows", len(trainIdx)),
		zap.Int("test_rows", len(testIdx)),
		zap.Float64("precision", p),
		zap.Float64("recall", r),
		zap.Float64("f1", f1),
	)
	if f1 == 1 {
		log.Warn("perfect F1 on the test split; check the features for label leakage")
	}
	return m, nil
}

// Run loads the feature CSV, trains and saves the model.
func Run(ctx context.Context, featuresPath, modelPath string, opts Options, log *zap.Logger) (*classifier.Model, error) {
	t, err := churn.ReadCSV(featuresPath)
	if err != nil {
		return nil, err
	}
	m, err := Train(ctx, t, opts, log)
	if err != nil {
		return nil, err
	}
	if err := classifier.Save(modelPath, m); err != nil {
		return nil, err
	}
	return m, nil
}

func pick(xs []model.ChurnInput, ys []int, idx []int) ([]model.ChurnInput, []int) {
	px := make([]model.ChurnInput, len(idx))
	py := make([]int, len(idx))
	for i, j := range idx {
		px[i] = xs[j]
		py[i] = ys[j]
	}
	return px, py
}
