package features

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// Split partitions t into train and test tables. The test side receives
// round(fraction * rows) rows chosen by a seeded permutation, so the same
// seed always yields the same split.
func Split(t *Table, fraction float64, seed uint64) (train, test *Table, err error) {
	if fraction <= 0 || fraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction %v outside (0,1)", fraction)
	}
	n := t.Len()
	nTest := int(math.Round(fraction * float64(n)))

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	perm := rng.Perm(n)

	testIdx := append([]int(nil), perm[:nTest]...)
	trainIdx := append([]int(nil), perm[nTest:]...)
	sort.Ints(testIdx)
	sort.Ints(trainIdx)

	return t.Subset(trainIdx), t.Subset(testIdx), nil
}
