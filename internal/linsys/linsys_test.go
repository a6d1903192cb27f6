package linsys

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCopiesInput(t *testing.T) {
	coeffs := [][]float64{{1, 2}, {3, 4}}
	consts := []float64{5, 6}
	s, err := New(coeffs, consts)
	require.NoError(t, err)

	coeffs[0][0] = 99
	consts[1] = 99
	assert.Equal(t, 1.0, s.Coefficient(0, 0))
	assert.Equal(t, 6.0, s.Constant(1))
	assert.Equal(t, []float64{6, 3, 4}, s.AugmentedRow(nil, 1))

	out := s.Coefficients()
	out[1][1] = -1
	assert.Equal(t, 4.0, s.Coefficient(1, 1))
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name     string
		coeffs   [][]float64
		consts   []float64
		sentinel error
		field    string
	}{
		{"empty", nil, nil, ErrEmptySystem, "coefficients"},
		{"constant count", [][]float64{{1, 2}, {3, 4}}, []float64{1}, ErrDimensionMismatch, "constants"},
		{"not square", [][]float64{{1, 2}, {3}}, []float64{1, 2}, ErrDimensionMismatch, "coefficients"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.coeffs, tt.consts)
			require.ErrorIs(t, err, tt.sentinel)
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestReadCSV(t *testing.T) {
	input := `# n = 3
4,1,2,3

9, 7, 7, 4
0,5,3,7
`
	s, subs, err := Read(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, subs)
	assert.Equal(t, 3, s.N())
	assert.Equal(t, []float64{9, 7, 7, 4}, s.AugmentedRow(nil, 1))
}

func TestReadCSVSkipsWhitespaceLines(t *testing.T) {
	s, subs, err := Read(strings.NewReader("2,4\n   \n\t\n"))
	require.NoError(t, err)
	assert.Empty(t, subs)
	assert.Equal(t, 1, s.N())
	assert.Equal(t, []float64{2, 4}, s.AugmentedRow(nil, 0))
}

func TestReadCSVSubstitutesNaN(t *testing.T) {
	s, subs, err := Read(strings.NewReader("1,abc\n"))
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, Substitution{Line: 1, Column: 1, Value: "abc"}, subs[0])
	assert.True(t, math.IsNaN(s.Coefficient(0, 0)))
}

func TestReadCSVRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "", ErrEmptySystem},
		{"ragged", "1,2,3\n4,5\n", ErrDimensionMismatch},
		{"not square", "1,2,3\n4,5,6\n7,8,9\n", ErrDimensionMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Read(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	s, err := Random(6, 42, false)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, s))
	back, subs, err := Read(&buf)
	require.NoError(t, err)
	assert.Empty(t, subs)
	assert.Equal(t, s, back)
}

func TestWriteSolution(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSolution(&buf, []float64{0.5, -2, math.NaN()}))
	assert.Equal(t, "0.5\n-2\nNaN\n", buf.String())
}

func TestWriteTeX(t *testing.T) {
	tests := []struct {
		name   string
		coeffs [][]float64
		consts []float64
		want   string
	}{
		{"single", [][]float64{{4}}, []float64{2}, "4a_{0} = 2 \\\\\n"},
		{"pair", [][]float64{{1, -2.5}, {7, 0}}, []float64{4, 9},
			"1a_{0} + -2.5a_{1} = 4 \\\\\n7a_{0} + 0a_{1} = 9 \\\\\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.coeffs, tt.consts)
			require.NoError(t, err)
			var buf bytes.Buffer
			require.NoError(t, WriteTeX(&buf, s))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriteSolutionTeX(t *testing.T) {
	tests := []struct {
		name string
		x    []float64
		want string
	}{
		{"empty", nil, ""},
		{"rounded", []float64{-1.63492063492064, 0.5}, "a_{0} = -1.6349 \\\\\na_{1} = 0.5000 \\\\\n"},
		{"nan", []float64{math.NaN()}, "a_{0} = NaN \\\\\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteSolutionTeX(&buf, tt.x))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestRandomDeterministic(t *testing.T) {
	a, err := Random(5, 7, true)
	require.NoError(t, err)
	b, err := Random(5, 7, true)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	for r := 0; r < a.N(); r++ {
		var off float64
		for c := 0; c < a.N(); c++ {
			if c != r {
				off += math.Abs(a.Coefficient(r, c))
			}
		}
		assert.Greater(t, a.Coefficient(r, r), off, "row %d", r)
	}

	_, err = Random(0, 1, false)
	assert.ErrorIs(t, err, ErrEmptySystem)
}

func TestFixturesMatchReference(t *testing.T) {
	names := ListFixtures()
	require.Len(t, names, 7)
	assert.Equal(t, "n1", names[0])
	assert.Equal(t, "n8", names[len(names)-1])

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			f := GetFixture(name)
			s := f.System()
			x, err := ReferenceSolve(s)
			require.NoError(t, err)
			assert.InDeltaSlice(t, f.Solution, x, 1e-9)

			res, err := Residual(s, f.Solution)
			require.NoError(t, err)
			assert.Less(t, res, 1e-9)
		})
	}
	assert.Nil(t, GetFixture("n2"))
}

func TestResidualDimension(t *testing.T) {
	_, err := Residual(GetFixture("n3").System(), []float64{1})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestReferenceSolveSingular(t *testing.T) {
	s, err := New([][]float64{{1, 2}, {2, 4}}, []float64{1, 2})
	require.NoError(t, err)
	_, err = ReferenceSolve(s)
	assert.Error(t, err)
	assert.True(t, math.IsInf(Condition(s), 1) || Condition(s) > 1e15)
}

func TestMaxDeviation(t *testing.T) {
	assert.Equal(t, 0.5, MaxDeviation([]float64{1, 2}, []float64{1.5, 2}))
	assert.True(t, math.IsInf(MaxDeviation([]float64{1}, nil), 1))
}
