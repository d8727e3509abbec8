package grouping

import (
	"fmt"
	"sort"
)

// Tier is a coarse denial-risk bucket assigned to one categorical value.
type Tier int

const (
	TierHigh Tier = 1 // positive rate >= Thresholds.High
	TierLow  Tier = 2 // positive rate >= Thresholds.Low
	TierRare Tier = 3 // everything else, and any value never seen at fit time
)

// Thresholds holds the two inclusive lower bounds of the high and low tiers.
type Thresholds struct {
	High float64 `yaml:"high_threshold" msgpack:"high"`
	Low  float64 `yaml:"low_threshold" msgpack:"low"`
}

// DefaultThresholds returns the 1% / 0.05% bands.
func DefaultThresholds() Thresholds {
	return Thresholds{High: 0.01, Low: 0.0005}
}

// Validate checks that both bounds are rates and that Low does not exceed High.
func (t Thresholds) Validate() error {
	if t.High < 0 || t.High > 1 {
		return fmt.Errorf("high threshold %v outside [0,1]", t.High)
	}
	if t.Low < 0 || t.Low > 1 {
		return fmt.Errorf("low threshold %v outside [0,1]", t.Low)
	}
	if t.Low > t.High {
		return fmt.Errorf("low threshold %v exceeds high threshold %v", t.Low, t.High)
	}
	return nil
}

// Classify maps an empirical positive rate to its tier. Bounds are inclusive.
func (t Thresholds) Classify(rate float64) Tier {
	switch {
	case rate >= t.High:
		return TierHigh
	case rate >= t.Low:
		return TierLow
	default:
		return TierRare
	}
}

// ValueStats is the (count, positives) pair observed for one value.
type ValueStats struct {
	Count     int
	Positives int
}

// Rate is the empirical positive rate. A value with no rows has rate 0.
func (s ValueStats) Rate() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Positives) / float64(s.Count)
}

// Mapping is the value -> tier lookup learned from one labeled column.
// It is immutable once built; Fit is the only way to derive one from data.
type Mapping struct {
	tiers map[string]Tier
	stats map[string]ValueStats
}

// NewMapping rebuilds a Mapping from persisted entries. The input map is copied.
func NewMapping(entries map[string]Tier) Mapping {
	tiers := make(map[string]Tier, len(entries))
	for v, t := range entries {
		tiers[v] = t
	}
	return Mapping{tiers: tiers}
}

// Fit computes the tier of every distinct value in values from the parallel
// binary labels. Missing values should arrive as a shared sentinel (the
// claims loader uses ""), so they are grouped like any other value.
func Fit(values []string, labels []int, th Thresholds) (Mapping, error) {
	if len(values) != len(labels) {
		return Mapping{}, fmt.Errorf("values and labels differ in length: %d != %d", len(values), len(labels))
	}

	stats := make(map[string]ValueStats)
	for i, v := range values {
		l := labels[i]
		if l != 0 && l != 1 {
			return Mapping{}, fmt.Errorf("label at row %d is %d, want 0 or 1", i, l)
		}
		s := stats[v]
		s.Count++
		s.Positives += l
		stats[v] = s
	}

	tiers := make(map[string]Tier, len(stats))
	for v, s := range stats {
		if s.Count == 0 {
			tiers[v] = TierRare
			continue
		}
		tiers[v] = th.Classify(s.Rate())
	}
	return Mapping{tiers: tiers, stats: stats}, nil
}

// Tier returns the tier of v, or TierRare if v was not seen at fit time.
func (m Mapping) Tier(v string) Tier {
	if t, ok := m.tiers[v]; ok {
		return t
	}
	return TierRare
}

// Apply maps every value to its tier.
func (m Mapping) Apply(values []string) []Tier {
	out := make([]Tier, len(values))
	for i, v := range values {
		out[i] = m.Tier(v)
	}
	return out
}

// Len is the number of distinct values in the mapping.
func (m Mapping) Len() int {
	return len(m.tiers)
}

// Entries returns a copy of the value -> tier table for persistence.
func (m Mapping) Entries() map[string]Tier {
	out := make(map[string]Tier, len(m.tiers))
	for v, t := range m.tiers {
		out[v] = t
	}
	return out
}

// Stats returns the observed counts for v. Only available on a freshly fit
// Mapping; a Mapping rebuilt with NewMapping carries tiers only.
func (m Mapping) Stats(v string) (ValueStats, bool) {
	s, ok := m.stats[v]
	return s, ok
}

// TierCounts returns how many distinct values landed in each tier.
func (m Mapping) TierCounts() map[Tier]int {
	out := map[Tier]int{TierHigh: 0, TierLow: 0, TierRare: 0}
	for _, t := range m.tiers {
		out[t]++
	}
	return out
}

// Values returns the distinct values in sorted order.
func (m Mapping) Values() []string {
	out := make([]string, 0, len(m.tiers))
	for v := range m.tiers {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// GroupKeys fits a mapping over (values, labels) and applies it to the same
// values in one step.
func GroupKeys(values []string, labels []int, th Thresholds) ([]Tier, error) {
	m, err := Fit(values, labels, th)
	if err != nil {
		return nil, err
	}
	return m.Apply(values), nil
}
