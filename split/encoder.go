// Package split holds the label encoding and the stratified partitioning of
// the cached code set into train/validation/test subsets.
package split

import (
	"fmt"
	"sort"
)

// LabelEncoder maps class-label strings to one-hot vectors. The class order
// is fixed when the encoder is fit (sorted distinct labels) and must be
// reused unchanged for every subset and at inference time.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

// FitLabels builds an encoder over the distinct labels in the sequence.
func FitLabels(labels []string) *LabelEncoder {
	seen := map[string]bool{}
	classes := []string{}
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			classes = append(classes, l)
		}
	}
	sort.Strings(classes)
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return &LabelEncoder{classes: classes, index: index}
}

// Classes returns the fixed class order.
func (e *LabelEncoder) Classes() []string {
	return e.classes
}

// NumClasses returns the one-hot width.
func (e *LabelEncoder) NumClasses() int {
	return len(e.classes)
}

// Index returns the class index of label.
func (e *LabelEncoder) Index(label string) (int, error) {
	i, ok := e.index[label]
	if !ok {
		return 0, fmt.Errorf("label %v was not seen when the encoder was fit", label)
	}
	return i, nil
}

// Transform one-hot encodes a label sequence.
func (e *LabelEncoder) Transform(labels []string) ([][]float32, error) {
	out := make([][]float32, len(labels))
	for i, l := range labels {
		idx, err := e.Index(l)
		if err != nil {
			return nil, err
		}
		row := make([]float32, len(e.classes))
		row[idx] = 1
		out[i] = row
	}
	return out, nil
}
