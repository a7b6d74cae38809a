// Package modality converts raw task-family inputs (tabular matrices, time
// series, graphs) into the canonical batch representation the CReSO model
// core consumes.
//
// Adapters are stateless pure functions of their input plus the declared
// feature dimensionality. They validate shape and content before any
// training or inference step and fail with a DataValidationError naming the
// offending axis; they never drop or reorder samples. The canonical batch
// is a dense row-per-sample float64 matrix whose column count equals the
// configured input dimensionality.
package modality

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/creso-ml/creso/pkg/errors"
)

// Task identifies one supported task family.
type Task string

const (
	// TaskTabular consumes numeric feature matrices as-is.
	TaskTabular Task = "tabular"
	// TaskTimeSeries consumes one variable-length series per sample.
	TaskTimeSeries Task = "timeseries"
	// TaskGraph consumes a graph and emits one sample per vertex.
	TaskGraph Task = "graph"
)

// Adapter converts one raw input type into a canonical batch.
type Adapter interface {
	// Task returns the task family tag this adapter serves.
	Task() Task

	// ToCanonical converts raw into the canonical batch. The accepted
	// dynamic type of raw depends on the adapter; a wrong type is a
	// DataValidationError, never a panic.
	ToCanonical(raw any) (*mat.Dense, error)
}

// ForTask returns the adapter for the given task tag.
// inputDim is the canonical column count every adapter must produce;
// window is only meaningful for TaskTimeSeries (positional mode).
func ForTask(task Task, inputDim, window int) (Adapter, error) {
	switch task {
	case TaskTabular:
		return NewTabular(inputDim), nil
	case TaskTimeSeries:
		return NewTimeSeries(inputDim, window), nil
	case TaskGraph:
		return NewGraph(inputDim), nil
	default:
		return nil, errors.NewConfigurationError("task", "unknown task family", string(task))
	}
}

// checkFinite validates a canonical batch and reports the cell that holds a
// NaN or Inf.
func checkFinite(op string, batch *mat.Dense) error {
	rows, cols := batch.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := batch.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.NewDataValidationErrorReason(op, 0,
					fmt.Sprintf("non-finite value %g at row %d, column %d", v, i, j))
			}
		}
	}
	return nil
}
