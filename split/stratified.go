package split

import (
	"math"
	"math/rand"
	"sort"
)

// Partition is a three-way split of sample indices. The three sets are
// disjoint and together cover every index exactly once.
type Partition struct {
	Train []int
	Val   []int
	Test  []int
}

// Stratified partitions [0, len(labels)) so that each class's samples land
// in the holdout set in roughly the requested fraction, with the holdout
// halved into validation and test. The shuffle is seeded so splits are
// reproducible; within each class the odd holdout sample goes to test.
func Stratified(labels []string, holdout float64, seed int64) Partition {
	byClass := map[string][]int{}
	for i, l := range labels {
		byClass[l] = append(byClass[l], i)
	}
	classes := make([]string, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	rng := rand.New(rand.NewSource(seed))
	part := Partition{}
	for _, c := range classes {
		idxs := byClass[c]
		rng.Shuffle(len(idxs), func(i, j int) {
			idxs[i], idxs[j] = idxs[j], idxs[i]
		})
		nHold := int(math.Round(holdout * float64(len(idxs))))
		hold := idxs[:nHold]
		part.Train = append(part.Train, idxs[nHold:]...)
		part.Val = append(part.Val, hold[:nHold/2]...)
		part.Test = append(part.Test, hold[nHold/2:]...)
	}
	return part
}

// Gather selects the given feature rows, in index order.
func Gather(features [][]float32, idxs []int) [][]float32 {
	out := make([][]float32, len(idxs))
	for i, idx := range idxs {
		out[i] = features[idx]
	}
	return out
}
