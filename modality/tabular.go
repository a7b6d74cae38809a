package modality

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/creso-ml/creso/pkg/errors"
)

// Tabular adapts numeric feature matrices. The raw input is either a
// mat.Matrix or a rectangular [][]float64; the adapter casts it to a dense
// matrix and validates dimensionality and finiteness.
type Tabular struct {
	inputDim int
}

// NewTabular creates a tabular adapter producing inputDim columns.
func NewTabular(inputDim int) *Tabular {
	return &Tabular{inputDim: inputDim}
}

// Task implements Adapter.
func (a *Tabular) Task() Task { return TaskTabular }

// ToCanonical implements Adapter. Accepts mat.Matrix or [][]float64.
func (a *Tabular) ToCanonical(raw any) (*mat.Dense, error) {
	const op = "Tabular.ToCanonical"

	switch x := raw.(type) {
	case *mat.Dense:
		return a.fromMatrix(op, x)
	case mat.Matrix:
		rows, cols := x.Dims()
		dense := mat.NewDense(rows, cols, nil)
		dense.Copy(x)
		return a.fromMatrix(op, dense)
	case [][]float64:
		return a.fromRows(op, x)
	default:
		return nil, errors.NewDataValidationErrorReason(op, 0,
			"unsupported input type: want mat.Matrix or [][]float64")
	}
}

func (a *Tabular) fromMatrix(op string, x *mat.Dense) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if rows == 0 {
		return nil, errors.NewDataValidationErrorReason(op, 0, "empty batch")
	}
	if cols != a.inputDim {
		return nil, errors.NewDataValidationError(op, 1, a.inputDim, cols)
	}
	if err := checkFinite(op, x); err != nil {
		return nil, err
	}
	return x, nil
}

func (a *Tabular) fromRows(op string, rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, errors.NewDataValidationErrorReason(op, 0, "empty batch")
	}
	for i, row := range rows {
		if len(row) != a.inputDim {
			if i == 0 {
				return nil, errors.NewDataValidationError(op, 1, a.inputDim, len(row))
			}
			// Ragged input: report against the row axis so the caller can
			// find the offending sample.
			return nil, errors.NewDataValidationErrorReason(op, 0,
				fmt.Sprintf("ragged input: row %d has %d values, want %d", i, len(row), a.inputDim))
		}
	}

	dense := mat.NewDense(len(rows), a.inputDim, nil)
	for i, row := range rows {
		dense.SetRow(i, row)
	}
	if err := checkFinite(op, dense); err != nil {
		return nil, err
	}
	return dense, nil
}
