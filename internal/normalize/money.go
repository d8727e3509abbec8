package normalize

import (
	"math"
	"strconv"
	"strings"
)

// Charge parses a claim charge amount. Absent, unparseable and non-finite
// amounts are reported with ok=false and a value of 0.0.
func Charge(s string) (v float64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
