package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/simusolve/internal/linsys"
)

func TestNextPow2(t *testing.T) {
	tests := []struct {
		n, want int
	}{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {4, 4}, {5, 8}, {8, 8}, {9, 16}, {50, 64}, {1024, 1024},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NextPow2(tt.n), "n=%d", tt.n)
		assert.True(t, IsPow2(NextPow2(tt.n)))
	}
	assert.False(t, IsPow2(0))
	assert.False(t, IsPow2(6))
}

func TestPack(t *testing.T) {
	sys, err := linsys.New([][]float64{{1, 2, 3}, {7, 7, 4}, {5, 3, 7}}, []float64{4, 9, 0})
	require.NoError(t, err)

	packed, err := Pack(sys)
	require.NoError(t, err)
	require.Len(t, packed, 2*4*4)
	assert.Equal(t, []float64{4, 1, 2, 3, 9, 7, 7, 4, 0, 5, 3, 7}, packed[:12])
	for _, v := range packed[12:] {
		assert.Zero(t, v)
	}

	_, err = Pack(nil)
	assert.ErrorIs(t, err, linsys.ErrEmptySystem)
}
