package util

import (
	"os"

	"github.com/chewxy/math32"
)

// Argmax returns the index of the largest element of xs, or -1 for an
// empty slice.
func Argmax(xs []float32) int {
	best := -1
	bestVal := math32.Inf(-1)
	for i, x := range xs {
		if x > bestVal {
			best = i
			bestVal = x
		}
	}
	return best
}

// DirExists reports whether path exists and is a directory.
func DirExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
