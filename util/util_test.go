package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArgmax(t *testing.T) {
	require.Equal(t, -1, Argmax(nil))
	require.Equal(t, 0, Argmax([]float32{3}))
	require.Equal(t, 2, Argmax([]float32{0.1, 0.2, 0.6, 0.1}))
	// ties resolve to the first occurrence
	require.Equal(t, 1, Argmax([]float32{-1, 5, 5}))
}
