package classifier

import (
	"math"
	"math/rand/v2"
	"sort"
)

// Node is one node of a flattened decision tree. Leaves carry the positive
// class fraction of the training rows that reached them.
type Node struct {
	Feature   int     `msgpack:"f"`
	Threshold float64 `msgpack:"t"`
	Left      int32   `msgpack:"l"`
	Right     int32   `msgpack:"r"`
	Value     float64 `msgpack:"v"`
	Leaf      bool    `msgpack:"leaf"`
}

// Tree is a CART classification tree stored as a node slice rooted at 0.
type Tree struct {
	Nodes []Node `msgpack:"nodes"`
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = int(n.Left)
		} else {
			i = int(n.Right)
		}
	}
}

type grower struct {
	X           [][]float64
	y           []int
	maxDepth    int
	minSplit    int
	maxFeatures int
	rng         *rand.Rand
	nodes       []Node
	scratch     []int
}

func (g *grower) grow(idx []int, depth int) int32 {
	n := len(idx)
	pos := 0
	for _, i := range idx {
		pos += g.y[i]
	}

	self := int32(len(g.nodes))
	g.nodes = append(g.nodes, Node{Leaf: true, Value: float64(pos) / float64(n)})

	if pos == 0 || pos == n || n < g.minSplit || (g.maxDepth > 0 && depth >= g.maxDepth) {
		return self
	}

	feat, thr, ok := g.bestSplit(idx, pos)
	if !ok {
		return self
	}

	left := make([]int, 0, n)
	right := make([]int, 0, n)
	for _, i := range idx {
		if g.X[i][feat] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := g.grow(left, depth+1)
	r := g.grow(right, depth+1)
	g.nodes[self] = Node{Feature: feat, Threshold: thr, Left: l, Right: r}
	return self
}

// bestSplit searches up to maxFeatures randomly drawn non-constant features
// for the threshold with the lowest weighted Gini impurity.
func (g *grower) bestSplit(idx []int, pos int) (int, float64, bool) {
	n := len(idx)
	nf := len(g.X[0])

	best := math.Inf(1)
	bestFeat, bestThr := -1, 0.0

	if cap(g.scratch) < n {
		g.scratch = make([]int, n)
	}
	sorted := g.scratch[:n]

	visited := 0
	for _, f := range g.rng.Perm(nf) {
		if visited >= g.maxFeatures {
			break
		}
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool { return g.X[sorted[a]][f] < g.X[sorted[b]][f] })
		// constant features do not count against maxFeatures
		if g.X[sorted[0]][f] == g.X[sorted[n-1]][f] {
			continue
		}
		visited++

		leftN, leftPos := 0, 0
		for k := 0; k < n-1; k++ {
			i := sorted[k]
			leftN++
			leftPos += g.y[i]

			a, b := g.X[i][f], g.X[sorted[k+1]][f]
			if a == b {
				continue
			}
			rightN, rightPos := n-leftN, pos-leftPos
			imp := float64(leftN)*gini(leftPos, leftN) + float64(rightN)*gini(rightPos, rightN)
			if imp < best {
				best = imp
				bestFeat = f
				bestThr = a + (b-a)/2
				if bestThr >= b {
					bestThr = a
				}
			}
		}
	}
	return bestFeat, bestThr, bestFeat >= 0
}

func gini(pos, n int) float64 {
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}
