package artifact

import (
	"fmt"

	"github.com/gyeh/claimrisk/internal/features"
	"github.com/gyeh/claimrisk/internal/grouping"
	"github.com/gyeh/claimrisk/internal/normalize"
)

// FeatureSpec is everything needed to rebuild the training feature table
// from raw claims: the column layout, the thresholds, and the value -> tier
// mappings learned from training labels.
type FeatureSpec struct {
	ChargeSource    string                              `msgpack:"charge_source"`
	Columns         []features.Column                   `msgpack:"columns"`
	Thresholds      grouping.Thresholds                 `msgpack:"thresholds"`
	Mappings        map[string]map[string]grouping.Tier `msgpack:"mappings"`
	DenialColumn    string                              `msgpack:"denial_column"`
	DenialNormalize normalize.Kind                      `msgpack:"denial_normalize"`
	CodesOfInterest []string                            `msgpack:"codes_of_interest"`
	SourceSHA256    string                              `msgpack:"source_sha256"`
	SourceRows      int                                 `msgpack:"source_rows"`
	PositiveRate    float64                             `msgpack:"positive_rate"`
}

// NewFeatureSpec captures the builder's layout and the mappings it fit.
func NewFeatureSpec(b *features.Builder, m features.Mappings) FeatureSpec {
	spec := FeatureSpec{
		ChargeSource: b.ChargeSource,
		Columns:      append([]features.Column(nil), b.Columns...),
		Thresholds:   b.Thresholds,
		Mappings:     make(map[string]map[string]grouping.Tier, len(m)),
	}
	for name, mapping := range m {
		spec.Mappings[name] = mapping.Entries()
	}
	return spec
}

// Builder reconstructs the feature builder used at training time.
func (s FeatureSpec) Builder() *features.Builder {
	return &features.Builder{
		ChargeSource: s.ChargeSource,
		Columns:      append([]features.Column(nil), s.Columns...),
		Thresholds:   s.Thresholds,
	}
}

// FeatureMappings rebuilds the grouping mappings. Every configured column
// must have one.
func (s FeatureSpec) FeatureMappings() (features.Mappings, error) {
	out := make(features.Mappings, len(s.Columns))
	for _, c := range s.Columns {
		entries, ok := s.Mappings[c.Feature]
		if !ok {
			return nil, fmt.Errorf("no mapping stored for feature %q", c.Feature)
		}
		out[c.Feature] = grouping.NewMapping(entries)
	}
	return out, nil
}

func (s FeatureSpec) validate() error {
	if len(s.Columns) == 0 {
		return fmt.Errorf("feature spec has no categorical columns")
	}
	if s.Mappings == nil {
		return fmt.Errorf("feature spec has no mappings")
	}
	_, err := s.FeatureMappings()
	return err
}
