// Package classifier is a small logistic regression over churn samples
// (Frequency, Monetary, Country) with standardized numerics and one-hot countries.
package classifier

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/jmehdipour/churn-predictor/internal/util"
)

var (
	ErrModelNotFound = errors.New("model not found")
	ErrInvalidModel  = errors.New("invalid model")
)

const numericFeatures = 2 // Frequency, Monetary

// Scaler holds the training-split statistics of the numeric features.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// Metrics are measured on the held-out split.
type Metrics struct {
	F1        float64 `json:"f1"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	TrainRows int     `json:"train_rows"`
	TestRows  int     `json:"test_rows"`
}

// Model is the persisted classifier. Weights are ordered numeric features
// first, then one weight per entry of Countries.
type Model struct {
	Version   string    `json:"version"`
	TrainedAt time.Time `json:"trained_at"`
	Params    Params    `json:"params"`
	Scaler    Scaler    `json:"scaler"`
	Countries []string  `json:"countries"`
	Weights   []float64 `json:"weights"`
	Bias      float64   `json:"bias"`
	Metrics   Metrics   `json:"metrics"`

	countryIdx map[string]int
}

// Fit trains a model with batch gradient descent on the log loss plus an L2 penalty.
func Fit(samples []model.ChurnInput, labels []int, p Params) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, errors.New("no samples")
	}
	if len(samples) != len(labels) {
		return nil, fmt.Errorf("samples/labels length mismatch: %d vs %d", len(samples), len(labels))
	}

	m := &Model{
		Version:   util.NewID(),
		TrainedAt: time.Now().UTC(),
		Params:    p,
		Scaler:    fitScaler(samples),
		Countries: categories(samples),
	}
	m.index()

	xs := make([][]float64, len(samples))
	for i, s := range samples {
		xs[i] = m.vector(s)
	}

	dim := numericFeatures + len(m.Countries)
	w := make([]float64, dim)
	grad := make([]float64, dim)
	var b float64
	n := float64(len(xs))

	for epoch := 0; epoch < p.Epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		var gb float64
		for i, x := range xs {
			diff := sigmoid(dot(w, x)+b) - float64(labels[i])
			for j, v := range x {
				grad[j] += diff * v
			}
			gb += diff
		}
		for j := range w {
			w[j] -= p.LearningRate * (grad[j]/n + p.L2*w[j])
		}
		b -= p.LearningRate * gb / n
	}

	m.Weights = w
	m.Bias = b
	return m, nil
}

// Probability returns P(CHURN=1). Countries unseen in training contribute nothing.
func (m *Model) Probability(s model.ChurnInput) float64 {
	return sigmoid(dot(m.Weights, m.vector(s)) + m.Bias)
}

// Predict returns the 0/1 label.
func (m *Model) Predict(s model.ChurnInput) int {
	if m.Probability(s) >= m.Params.DecisionThreshold {
		return 1
	}
	return 0
}

// PredictAll labels every sample.
func (m *Model) PredictAll(samples []model.ChurnInput) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		out[i] = m.Predict(s)
	}
	return out
}

func (m *Model) validate() error {
	if len(m.Scaler.Mean) != numericFeatures || len(m.Scaler.Std) != numericFeatures {
		return fmt.Errorf("%w: scaler needs %d features", ErrInvalidModel, numericFeatures)
	}
	if len(m.Weights) != numericFeatures+len(m.Countries) {
		return fmt.Errorf("%w: %d weights for %d features", ErrInvalidModel, len(m.Weights), numericFeatures+len(m.Countries))
	}
	if m.Params.DecisionThreshold <= 0 || m.Params.DecisionThreshold >= 1 {
		return fmt.Errorf("%w: decision threshold %v", ErrInvalidModel, m.Params.DecisionThreshold)
	}
	return nil
}

func (m *Model) index() {
	m.countryIdx = make(map[string]int, len(m.Countries))
	for i, c := range m.Countries {
		m.countryIdx[c] = i
	}
}

func (m *Model) vector(s model.ChurnInput) []float64 {
	x := make([]float64, numericFeatures+len(m.Countries))
	x[0] = (float64(s.Frequency) - m.Scaler.Mean[0]) / m.Scaler.Std[0]
	x[1] = (s.Monetary - m.Scaler.Mean[1]) / m.Scaler.Std[1]
	if i, ok := m.countryIdx[s.Country]; ok {
		x[numericFeatures+i] = 1
	}
	return x
}

func fitScaler(samples []model.ChurnInput) Scaler {
	sc := Scaler{Mean: make([]float64, numericFeatures), Std: make([]float64, numericFeatures)}
	n := float64(len(samples))
	for _, s := range samples {
		sc.Mean[0] += float64(s.Frequency)
		sc.Mean[1] += s.Monetary
	}
	sc.Mean[0] /= n
	sc.Mean[1] /= n
	for _, s := range samples {
		d0 := float64(s.Frequency) - sc.Mean[0]
		d1 := s.Monetary - sc.Mean[1]
		sc.Std[0] += d0 * d0
		sc.Std[1] += d1 * d1
	}
	for j := range sc.Std {
		sc.Std[j] = math.Sqrt(sc.Std[j] / n)
		if sc.Std[j] == 0 {
			sc.Std[j] = 1 // constant column
		}
	}
	return sc
}

func categories(samples []model.ChurnInput) []string {
	seen := make(map[string]struct{})
	for _, s := range samples {
		seen[s.Country] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
