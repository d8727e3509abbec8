package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/gyeh/claimrisk/internal/classifier"
	"github.com/gyeh/claimrisk/internal/evaluate"
)

// SchemaVersion is bumped whenever the encoded layout changes.
const SchemaVersion uint16 = 1

var ErrSchemaVersion = errors.New("unsupported artifact schema version")

// Artifact is a trained model bundled with the feature contract it was
// trained under. Scoring uses nothing else.
type Artifact struct {
	Schema         uint16                   `msgpack:"schema"`
	ID             string                   `msgpack:"id"`
	CreatedAt      time.Time                `msgpack:"created_at"`
	ModelKind      string                   `msgpack:"model_kind"`
	Forest         *classifier.RandomForest `msgpack:"forest,omitempty"`
	Linear         *classifier.LinearSVM    `msgpack:"linear,omitempty"`
	FeatureColumns []string                 `msgpack:"feature_columns"`
	Features       FeatureSpec              `msgpack:"features"`
	Metrics        evaluate.Metrics         `msgpack:"metrics"`
	TrainRows      int                      `msgpack:"train_rows"`
	TestRows       int                      `msgpack:"test_rows"`
}

// New bundles a fitted model. featureCols is the exact column order the
// model was fit on.
func New(m classifier.Model, featureCols []string, spec FeatureSpec) (*Artifact, error) {
	a := &Artifact{
		Schema:         SchemaVersion,
		ID:             uuid.NewString(),
		CreatedAt:      time.Now().UTC(),
		ModelKind:      m.Kind(),
		FeatureColumns: append([]string(nil), featureCols...),
		Features:       spec,
	}
	switch v := m.(type) {
	case *classifier.RandomForest:
		a.Forest = v
	case *classifier.LinearSVM:
		a.Linear = v
	default:
		return nil, fmt.Errorf("cannot persist model kind %q", m.Kind())
	}
	return a, nil
}

// Model returns the persisted classifier.
func (a *Artifact) Model() (classifier.Model, error) {
	switch a.ModelKind {
	case classifier.KindRandomForest:
		if a.Forest == nil {
			return nil, fmt.Errorf("artifact %s: forest parameters missing", a.ID)
		}
		return a.Forest, nil
	case classifier.KindLinearSVM:
		if a.Linear == nil {
			return nil, fmt.Errorf("artifact %s: linear parameters missing", a.ID)
		}
		return a.Linear, nil
	default:
		return nil, fmt.Errorf("artifact %s: unknown model kind %q", a.ID, a.ModelKind)
	}
}

// Save writes a to path through a temp file and an atomic rename.
func Save(path string, a *Artifact) error {
	return writeAtomic(path, a)
}

// Load reads an artifact and checks it can drive scoring.
func Load(path string) (*Artifact, error) {
	var a Artifact
	if err := readFile(path, &a); err != nil {
		return nil, err
	}
	if a.Schema != SchemaVersion {
		return nil, fmt.Errorf("%s: %w: got %d, want %d", path, ErrSchemaVersion, a.Schema, SchemaVersion)
	}
	if len(a.FeatureColumns) == 0 {
		return nil, fmt.Errorf("%s: artifact has no feature columns", path)
	}
	if err := a.Features.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if _, err := a.Model(); err != nil {
		return nil, err
	}
	return &a, nil
}

// sidecar wraps a FeatureSpec written next to preprocessed parquet output.
type sidecar struct {
	Schema uint16      `msgpack:"schema"`
	Spec   FeatureSpec `msgpack:"spec"`
}

// SidecarPath is where the feature spec for a training parquet file lives.
func SidecarPath(trainPath string) string {
	return trainPath + ".mappings"
}

// SaveFeatureSpec writes spec as a standalone sidecar file.
func SaveFeatureSpec(path string, spec FeatureSpec) error {
	return writeAtomic(path, sidecar{Schema: SchemaVersion, Spec: spec})
}

// LoadFeatureSpec reads a sidecar written by SaveFeatureSpec.
func LoadFeatureSpec(path string) (FeatureSpec, error) {
	var sc sidecar
	if err := readFile(path, &sc); err != nil {
		return FeatureSpec{}, err
	}
	if sc.Schema != SchemaVersion {
		return FeatureSpec{}, fmt.Errorf("%s: %w: got %d, want %d", path, ErrSchemaVersion, sc.Schema, SchemaVersion)
	}
	if err := sc.Spec.validate(); err != nil {
		return FeatureSpec{}, fmt.Errorf("%s: %w", path, err)
	}
	return sc.Spec, nil
}

func writeAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := msgpack.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

func readFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := msgpack.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
