package split

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLabelEncoder(t *testing.T) {
	enc := FitLabels([]string{"tulips", "daisy", "roses", "daisy", "tulips"})
	require.Equal(t, []string{"daisy", "roses", "tulips"}, enc.Classes())
	require.Equal(t, 3, enc.NumClasses())

	i, err := enc.Index("roses")
	require.NoError(t, err)
	require.Equal(t, 1, i)
	_, err = enc.Index("orchid")
	require.Error(t, err)

	onehot, err := enc.Transform([]string{"daisy", "tulips"})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{1, 0, 0}, {0, 0, 1}}, onehot)

	_, err = enc.Transform([]string{"orchid"})
	require.Error(t, err)
}

func balancedLabels(classes, perClass int) []string {
	labels := []string{}
	for c := 0; c < classes; c++ {
		for i := 0; i < perClass; i++ {
			labels = append(labels, fmt.Sprintf("class%d", c))
		}
	}
	return labels
}

func checkPartition(t *testing.T, labels []string, part Partition) {
	seen := map[int]string{}
	record := func(set string, idxs []int) {
		for _, i := range idxs {
			require.GreaterOrEqual(t, i, 0)
			require.Less(t, i, len(labels))
			prev, dup := seen[i]
			require.False(t, dup, "index %v in both %v and %v", i, prev, set)
			seen[i] = set
		}
	}
	record("train", part.Train)
	record("val", part.Val)
	record("test", part.Test)
	require.Equal(t, len(labels), len(seen), "partition must cover every sample")
}

func countByClass(labels []string, idxs []int) map[string]int {
	counts := map[string]int{}
	for _, i := range idxs {
		counts[labels[i]]++
	}
	return counts
}

func TestStratifiedBalancedClasses(t *testing.T) {
	labels := balancedLabels(5, 100)
	part := Stratified(labels, 0.2, 1)
	checkPartition(t, labels, part)

	require.Equal(t, 400, len(part.Train))
	require.Equal(t, 50, len(part.Val))
	require.Equal(t, 50, len(part.Test))

	valCounts := countByClass(labels, part.Val)
	testCounts := countByClass(labels, part.Test)
	for c := 0; c < 5; c++ {
		name := fmt.Sprintf("class%d", c)
		require.Equal(t, 10, valCounts[name])
		require.Equal(t, 10, testCounts[name])
	}
}

func TestStratifiedSmallDataset(t *testing.T) {
	// 2 classes x 20 images, holdout 0.2: 32 train, 4 val, 4 test, with
	// both classes represented in every subset.
	labels := balancedLabels(2, 20)
	part := Stratified(labels, 0.2, 7)
	checkPartition(t, labels, part)

	require.Equal(t, 32, len(part.Train))
	require.Equal(t, 4, len(part.Val))
	require.Equal(t, 4, len(part.Test))
	for _, idxs := range [][]int{part.Train, part.Val, part.Test} {
		counts := countByClass(labels, idxs)
		require.Equal(t, 2, len(counts))
	}
}

func TestStratifiedOddHoldoutGoesToTest(t *testing.T) {
	// 10 samples, holdout 0.3 -> 3 held out: 1 val, 2 test
	labels := balancedLabels(1, 10)
	part := Stratified(labels, 0.3, 3)
	checkPartition(t, labels, part)
	require.Equal(t, 7, len(part.Train))
	require.Equal(t, 1, len(part.Val))
	require.Equal(t, 2, len(part.Test))
}

func TestStratifiedDeterministicBySeed(t *testing.T) {
	labels := balancedLabels(3, 30)
	a := Stratified(labels, 0.2, 42)
	b := Stratified(labels, 0.2, 42)
	require.Equal(t, a, b)

	c := Stratified(labels, 0.2, 43)
	require.NotEqual(t, a, c)
}

func TestGather(t *testing.T) {
	features := [][]float32{{0}, {1}, {2}, {3}}
	require.Equal(t, [][]float32{{3}, {1}}, Gather(features, []int{3, 1}))
}
