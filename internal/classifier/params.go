package classifier

import "fmt"

// Params are the logistic regression hyperparameters.
type Params struct {
	LearningRate      float64 `json:"learning_rate"`
	Epochs            int     `json:"epochs"`
	L2                float64 `json:"l2"`
	DecisionThreshold float64 `json:"decision_threshold"`
}

func DefaultParams() Params {
	return Params{
		LearningRate:      0.1,
		Epochs:            400,
		L2:                0.001,
		DecisionThreshold: 0.5,
	}
}

func (p Params) Validate() error {
	switch {
	case p.LearningRate <= 0:
		return fmt.Errorf("learning_rate must be > 0, got %v", p.LearningRate)
	case p.Epochs <= 0:
		return fmt.Errorf("epochs must be > 0, got %d", p.Epochs)
	case p.L2 < 0:
		return fmt.Errorf("l2 must be >= 0, got %v", p.L2)
	case p.DecisionThreshold <= 0 || p.DecisionThreshold >= 1:
		return fmt.Errorf("decision_threshold must be in (0,1), got %v", p.DecisionThreshold)
	}
	return nil
}
