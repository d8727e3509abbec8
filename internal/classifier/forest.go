package classifier

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ForestConfig configures a RandomForest.
type ForestConfig struct {
	Trees           int    `yaml:"trees" msgpack:"trees"`
	MaxDepth        int    `yaml:"max_depth" msgpack:"max_depth"`         // 0 = unlimited
	MinSamplesSplit int    `yaml:"min_samples_split" msgpack:"min_split"` // default 2
	MaxFeatures     int    `yaml:"max_features" msgpack:"max_features"`   // 0 = sqrt(features)
	Workers         int    `yaml:"workers" msgpack:"-"`                   // 0 = GOMAXPROCS
	Seed            uint64 `yaml:"seed" msgpack:"seed"`
}

// DefaultForestConfig is 200 trees of depth 7, seed 42.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{Trees: 200, MaxDepth: 7, MinSamplesSplit: 2, Seed: 42}
}

// RandomForest is a bagged ensemble of CART trees. It emits probabilities.
type RandomForest struct {
	Config      ForestConfig `msgpack:"config"`
	NumFeatures int          `msgpack:"num_features"`
	Classes     []int        `msgpack:"classes"`
	Trees       []Tree       `msgpack:"trees"`
}

// NewRandomForest creates an unfitted forest, filling config defaults.
func NewRandomForest(cfg ForestConfig) *RandomForest {
	if cfg.Trees <= 0 {
		cfg.Trees = 200
	}
	if cfg.MinSamplesSplit < 2 {
		cfg.MinSamplesSplit = 2
	}
	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = 0
	}
	return &RandomForest{Config: cfg}
}

func (f *RandomForest) Kind() string {
	return KindRandomForest
}

// Fit grows every tree on its own bootstrap sample. Trees are grown in
// parallel; each tree's random stream depends only on the seed and its
// index, so the result is the same for any worker count.
func (f *RandomForest) Fit(ctx context.Context, X [][]float64, y []int) error {
	nf, err := checkTraining(X, y)
	if err != nil {
		return err
	}

	maxFeatures := f.Config.MaxFeatures
	if maxFeatures <= 0 || maxFeatures > nf {
		maxFeatures = int(math.Max(1, math.Floor(math.Sqrt(float64(nf)))))
	}
	workers := f.Config.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	trees := make([]Tree, f.Config.Trees)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(workers, len(trees)))

	for t := range trees {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			rng := rand.New(rand.NewPCG(f.Config.Seed, uint64(t)))
			sample := make([]int, len(X))
			for i := range sample {
				sample[i] = rng.IntN(len(X))
			}
			gr := &grower{
				X:           X,
				y:           y,
				maxDepth:    f.Config.MaxDepth,
				minSplit:    f.Config.MinSamplesSplit,
				maxFeatures: maxFeatures,
				rng:         rng,
			}
			gr.grow(sample, 0)
			trees[t] = Tree{Nodes: gr.nodes}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("grow forest: %w", err)
	}

	f.NumFeatures = nf
	f.Classes = classesOf(y)
	f.Trees = trees
	return nil
}

// PredictProba returns the mean positive-class leaf fraction across trees.
func (f *RandomForest) PredictProba(X [][]float64) ([]float64, error) {
	if err := checkInput(X, f.NumFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	if len(f.Trees) == 0 {
		return out, nil
	}
	for i, x := range X {
		var sum float64
		for t := range f.Trees {
			sum += f.Trees[t].predict(x)
		}
		out[i] = sum / float64(len(f.Trees))
	}
	return out, nil
}

// Predict returns 1 where the positive probability exceeds one half.
func (f *RandomForest) Predict(X [][]float64) ([]int, error) {
	proba, err := f.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, p := range proba {
		if p > 0.5 {
			out[i] = 1
		}
	}
	return out, nil
}
