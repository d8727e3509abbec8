package normalize

import "fmt"

// Kind selects how a categorical column is cleaned before grouping.
type Kind string

const (
	KindNone Kind = ""
	KindCode Kind = "code"
	KindName Kind = "name"
)

// ParseKind validates a configured normalization kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindNone, KindCode, KindName:
		return k, nil
	default:
		return KindNone, fmt.Errorf("unknown normalization %q (want code, name, or empty)", s)
	}
}

// Apply cleans v according to k.
func (k Kind) Apply(v string) string {
	switch k {
	case KindCode:
		return Code(v)
	case KindName:
		return Name(v)
	default:
		return v
	}
}

// All applies k to every value, returning a new slice.
func (k Kind) All(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = k.Apply(v)
	}
	return out
}
