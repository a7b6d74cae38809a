package modality

import (
	"testing"

	lvlath "github.com/katalvlaran/lvlath/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creso-ml/creso/pkg/errors"
)

// triangle with one pendant vertex:
//
//	a - b
//	| /
//	c - d
func buildTestGraph(t *testing.T) *lvlath.Graph {
	t.Helper()
	g, err := lvlath.NewGraph(lvlath.WithWeighted())
	require.NoError(t, err)

	edges := [][2]string{{"a", "b"}, {"a", "c"}, {"b", "c"}, {"c", "d"}}
	for i, e := range edges {
		_, err := g.AddEdge(e[0], e[1], float64(i+1))
		require.NoError(t, err)
	}
	return g
}

func TestGraph_ToCanonical(t *testing.T) {
	g := buildTestGraph(t)
	a := NewGraph(GraphFeatureCount)

	batch, err := a.ToCanonical(g)
	require.NoError(t, err)

	rows, cols := batch.Dims()
	assert.Equal(t, 4, rows, "one sample per vertex")
	assert.Equal(t, GraphFeatureCount, cols)

	// Rows follow sorted vertex-ID order: a, b, c, d.
	assert.Equal(t, 2.0, batch.At(0, 0), "degree of a")
	assert.Equal(t, 2.0, batch.At(1, 0), "degree of b")
	assert.Equal(t, 3.0, batch.At(2, 0), "degree of c")
	assert.Equal(t, 1.0, batch.At(3, 0), "degree of d")

	// Weight sum for c: edges a-c (2), b-c (3), c-d (4).
	assert.InDelta(t, 9.0, batch.At(2, 3), 1e-12)
	// Pendant d touches only c, whose degree is 3.
	assert.InDelta(t, 3.0, batch.At(3, 1), 1e-12, "mean neighbor degree of d")
}

func TestGraph_Deterministic(t *testing.T) {
	g := buildTestGraph(t)
	a := NewGraph(GraphFeatureCount)

	first, err := a.ToCanonical(g)
	require.NoError(t, err)
	second, err := a.ToCanonical(g)
	require.NoError(t, err)

	rows, cols := first.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			assert.Equal(t, first.At(i, j), second.At(i, j))
		}
	}
}

func TestGraph_DimMismatch(t *testing.T) {
	g := buildTestGraph(t)
	a := NewGraph(5)

	_, err := a.ToCanonical(g)
	require.Error(t, err)

	var dvErr *errors.DataValidationError
	require.True(t, errors.As(err, &dvErr))
	assert.Equal(t, 1, dvErr.Axis)
	assert.Equal(t, GraphFeatureCount, dvErr.Expected)
}

func TestGraph_EmptyGraph(t *testing.T) {
	a := NewGraph(GraphFeatureCount)

	g, err := lvlath.NewGraph()
	require.NoError(t, err)

	_, err = a.ToCanonical(g)
	require.Error(t, err)
}

func TestGraph_UnsupportedType(t *testing.T) {
	a := NewGraph(GraphFeatureCount)

	_, err := a.ToCanonical([][]float64{{1}})
	require.Error(t, err)
}

func TestForTask(t *testing.T) {
	tests := []struct {
		task    Task
		wantErr bool
	}{
		{TaskTabular, false},
		{TaskTimeSeries, false},
		{TaskGraph, false},
		{Task("images"), true},
	}

	for _, tt := range tests {
		t.Run(string(tt.task), func(t *testing.T) {
			adapter, err := ForTask(tt.task, 8, 0)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.task, adapter.Task())
		})
	}
}
