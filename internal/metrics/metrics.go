package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gyeh/claimrisk/internal/evaluate"
)

// Snapshot is the state of one training run exported for node_exporter's
// textfile collector.
type Snapshot struct {
	ModelKind    string
	ArtifactID   string
	TrainRows    int
	TestRows     int
	PositiveRate float64
	Evaluation   evaluate.Metrics
}

// Registry builds a fresh registry holding the gauges for s. A new registry
// per run keeps repeated exports in one process from colliding.
func Registry(s Snapshot) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	labels := []string{"model_kind", "artifact_id"}

	quality := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "claimrisk",
			Subsystem: "model",
			Name:      "quality",
			Help:      "Held-out classifier quality by metric.",
		},
		append([]string{"metric"}, labels...),
	)
	rows := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "claimrisk",
			Subsystem: "training",
			Name:      "rows",
			Help:      "Rows in each split of the last training run.",
		},
		append([]string{"split"}, labels...),
	)
	positiveRate := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "claimrisk",
			Subsystem: "training",
			Name:      "positive_rate",
			Help:      "Fraction of training claims labeled as denied for a code of interest.",
		},
		labels,
	)
	reg.MustRegister(quality, rows, positiveRate)

	quality.WithLabelValues("accuracy", s.ModelKind, s.ArtifactID).Set(s.Evaluation.Accuracy)
	quality.WithLabelValues("precision", s.ModelKind, s.ArtifactID).Set(s.Evaluation.Precision)
	quality.WithLabelValues("recall", s.ModelKind, s.ArtifactID).Set(s.Evaluation.Recall)
	if s.Evaluation.ROCAUC != nil {
		quality.WithLabelValues("roc_auc", s.ModelKind, s.ArtifactID).Set(*s.Evaluation.ROCAUC)
	}
	rows.WithLabelValues("train", s.ModelKind, s.ArtifactID).Set(float64(s.TrainRows))
	rows.WithLabelValues("test", s.ModelKind, s.ArtifactID).Set(float64(s.TestRows))
	positiveRate.WithLabelValues(s.ModelKind, s.ArtifactID).Set(s.PositiveRate)
	return reg
}

// WriteTextfile writes s in the Prometheus text format to path.
func WriteTextfile(path string, s Snapshot) error {
	if err := prometheus.WriteToTextfile(path, Registry(s)); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
