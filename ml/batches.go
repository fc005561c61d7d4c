package ml

import "math/rand"

// batchRanges covers [0, n) with half-open chunks of size batch. The final
// chunk absorbs any remainder so every sample lands in exactly one chunk per
// epoch. batch <= 0 or batch >= n yields a single chunk.
func batchRanges(n, batch int) [][2]int {
	if n <= 0 {
		return nil
	}
	if batch <= 0 || batch >= n {
		return [][2]int{{0, n}}
	}
	nBatches := n / batch
	ranges := make([][2]int, nBatches)
	for i := 0; i < nBatches; i++ {
		ranges[i] = [2]int{i * batch, (i + 1) * batch}
	}
	ranges[nBatches-1][1] = n
	return ranges
}

// epochOrder returns a shuffled copy of idxs.
func epochOrder(rng *rand.Rand, idxs []int) []int {
	order := make([]int, len(idxs))
	copy(order, idxs)
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return order
}
