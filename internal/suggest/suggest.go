package suggest

// Actions recommended for a scored claim.
const (
	AttachAuthorization = "attach missing authorization"
	ReviewCoding        = "review coding"
	NoAction            = "no action"
)

// Lower bounds of the two actionable bands. Both are inclusive.
const (
	AuthorizationAt = 0.7
	ReviewAt        = 0.4
)

// For maps a denial probability to a recommended action.
func For(p float64) string {
	switch {
	case p >= AuthorizationAt:
		return AttachAuthorization
	case p >= ReviewAt:
		return ReviewCoding
	default:
		return NoAction
	}
}

// All applies For to every probability.
func All(probs []float64) []string {
	out := make([]string, len(probs))
	for i, p := range probs {
		out[i] = For(p)
	}
	return out
}

// Counts tallies how many claims received each action.
func Counts(suggestions []string) map[string]int {
	out := map[string]int{AttachAuthorization: 0, ReviewCoding: 0, NoAction: 0}
	for _, s := range suggestions {
		out[s]++
	}
	return out
}
