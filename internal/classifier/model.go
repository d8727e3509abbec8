package classifier

import (
	"context"
	"fmt"
)

// Model kinds recorded in artifacts.
const (
	KindRandomForest = "random_forest"
	KindLinearSVM    = "linear_svm"
)

// Model is a binary classifier over dense float feature rows.
type Model interface {
	Fit(ctx context.Context, X [][]float64, y []int) error
	Predict(X [][]float64) ([]int, error)
	Kind() string
}

// ProbabilityModel emits calibrated probabilities of the positive class.
type ProbabilityModel interface {
	Model
	PredictProba(X [][]float64) ([]float64, error)
}

// DecisionModel emits raw, unbounded decision scores that need rescaling
// before they can stand in for a probability.
type DecisionModel interface {
	Model
	DecisionFunction(X [][]float64) ([]float64, error)
}

func checkTraining(X [][]float64, y []int) (int, error) {
	if len(X) == 0 {
		return 0, fmt.Errorf("training data is empty")
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("%d rows but %d labels", len(X), len(y))
	}
	nf := len(X[0])
	if nf == 0 {
		return 0, fmt.Errorf("training data has no features")
	}
	for i, row := range X {
		if len(row) != nf {
			return 0, fmt.Errorf("row %d has %d features, want %d", i, len(row), nf)
		}
		if y[i] != 0 && y[i] != 1 {
			return 0, fmt.Errorf("label at row %d is %d, want 0 or 1", i, y[i])
		}
	}
	return nf, nil
}

func checkInput(X [][]float64, nf int) error {
	if nf == 0 {
		return fmt.Errorf("model is not fitted")
	}
	for i, row := range X {
		if len(row) != nf {
			return fmt.Errorf("row %d has %d features, model expects %d", i, len(row), nf)
		}
	}
	return nil
}

func classesOf(y []int) []int {
	var has [2]bool
	for _, v := range y {
		has[v] = true
	}
	var out []int
	for c, ok := range has {
		if ok {
			out = append(out, c)
		}
	}
	return out
}
