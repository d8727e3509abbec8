package classifier

import (
	"context"
	"math"
	"math/rand/v2"
)

// LinearConfig configures a LinearSVM.
type LinearConfig struct {
	Epochs       int     `yaml:"epochs" msgpack:"epochs"`
	Lambda       float64 `yaml:"lambda" msgpack:"lambda"`
	LearningRate float64 `yaml:"learning_rate" msgpack:"learning_rate"`
	Seed         uint64  `yaml:"seed" msgpack:"seed"`
}

// DefaultLinearConfig returns settings that converge on standardized claim features.
func DefaultLinearConfig() LinearConfig {
	return LinearConfig{Epochs: 20, Lambda: 1e-4, LearningRate: 0.1, Seed: 42}
}

// LinearSVM is a hinge-loss linear classifier trained with SGD on
// standardized inputs. It has no probability output, only margins.
type LinearSVM struct {
	Config      LinearConfig `msgpack:"config"`
	NumFeatures int          `msgpack:"num_features"`
	Mean        []float64    `msgpack:"mean"`
	Scale       []float64    `msgpack:"scale"`
	Weights     []float64    `msgpack:"weights"`
	Bias        float64      `msgpack:"bias"`
}

// NewLinearSVM creates an unfitted model, filling config defaults.
func NewLinearSVM(cfg LinearConfig) *LinearSVM {
	def := DefaultLinearConfig()
	if cfg.Epochs <= 0 {
		cfg.Epochs = def.Epochs
	}
	if cfg.Lambda <= 0 {
		cfg.Lambda = def.Lambda
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = def.LearningRate
	}
	return &LinearSVM{Config: cfg}
}

func (m *LinearSVM) Kind() string {
	return KindLinearSVM
}

func (m *LinearSVM) Fit(ctx context.Context, X [][]float64, y []int) error {
	nf, err := checkTraining(X, y)
	if err != nil {
		return err
	}

	m.NumFeatures = nf
	m.Mean = make([]float64, nf)
	m.Scale = make([]float64, nf)
	for _, row := range X {
		for j, v := range row {
			m.Mean[j] += v
		}
	}
	for j := range m.Mean {
		m.Mean[j] /= float64(len(X))
	}
	for _, row := range X {
		for j, v := range row {
			d := v - m.Mean[j]
			m.Scale[j] += d * d
		}
	}
	for j := range m.Scale {
		m.Scale[j] = math.Sqrt(m.Scale[j] / float64(len(X)))
		if m.Scale[j] == 0 {
			m.Scale[j] = 1
		}
	}

	Z := make([][]float64, len(X))
	for i, row := range X {
		Z[i] = m.standardize(row)
	}

	m.Weights = make([]float64, nf)
	m.Bias = 0
	rng := rand.New(rand.NewPCG(m.Config.Seed, 0))
	eta0, lambda := m.Config.LearningRate, m.Config.Lambda
	step := 0
	for epoch := 0; epoch < m.Config.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, i := range rng.Perm(len(Z)) {
			eta := eta0 / (1 + eta0*lambda*float64(step))
			step++

			yi := -1.0
			if y[i] == 1 {
				yi = 1
			}
			margin := yi * (dot(m.Weights, Z[i]) + m.Bias)

			shrink := 1 - eta*lambda
			for j := range m.Weights {
				m.Weights[j] *= shrink
			}
			if margin < 1 {
				for j, v := range Z[i] {
					m.Weights[j] += eta * yi * v
				}
				m.Bias += eta * yi
			}
		}
	}
	return nil
}

// DecisionFunction returns the signed margin of every row.
func (m *LinearSVM) DecisionFunction(X [][]float64) ([]float64, error) {
	if err := checkInput(X, m.NumFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = dot(m.Weights, m.standardize(row)) + m.Bias
	}
	return out, nil
}

// Predict returns 1 for rows with a positive margin.
func (m *LinearSVM) Predict(X [][]float64) ([]int, error) {
	scores, err := m.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(scores))
	for i, s := range scores {
		if s > 0 {
			out[i] = 1
		}
	}
	return out, nil
}

func (m *LinearSVM) standardize(row []float64) []float64 {
	z := make([]float64, len(row))
	for j, v := range row {
		z[j] = (v - m.Mean[j]) / m.Scale[j]
	}
	return z
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
