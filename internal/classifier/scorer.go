package classifier

import "fmt"

// Scoring methods, from best to worst.
const (
	MethodProbability = "probability"
	MethodDecision    = "decision_minmax"
	MethodPrediction  = "prediction"
)

// Scorer turns feature rows into risk values in [0,1].
type Scorer interface {
	Score(X [][]float64) ([]float64, error)
	Method() string
}

// NewScorer picks the best scoring path the model supports. The choice is
// made once here rather than on every call.
func NewScorer(m Model) (Scorer, error) {
	if m == nil {
		return nil, fmt.Errorf("nil model")
	}
	switch v := m.(type) {
	case ProbabilityModel:
		return probabilityScorer{v}, nil
	case DecisionModel:
		return decisionScorer{v}, nil
	default:
		return predictionScorer{m}, nil
	}
}

type probabilityScorer struct{ m ProbabilityModel }

func (s probabilityScorer) Method() string { return MethodProbability }

func (s probabilityScorer) Score(X [][]float64) ([]float64, error) {
	return s.m.PredictProba(X)
}

// decisionScorer min-max rescales raw margins over the scored batch. A batch
// whose scores are all equal maps to 0.
type decisionScorer struct{ m DecisionModel }

func (s decisionScorer) Method() string { return MethodDecision }

func (s decisionScorer) Score(X [][]float64) ([]float64, error) {
	raw, err := s.m.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	return MinMax(raw), nil
}

// predictionScorer casts hard class predictions to 0.0 / 1.0.
type predictionScorer struct{ m Model }

func (s predictionScorer) Method() string { return MethodPrediction }

func (s predictionScorer) Score(X [][]float64) ([]float64, error) {
	pred, err := s.m.Predict(X)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(pred))
	for i, p := range pred {
		out[i] = float64(p)
	}
	return out, nil
}

// MinMax rescales values linearly onto [0,1].
func MinMax(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if hi == lo {
		return out
	}
	for i, v := range values {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}
