package modality

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/creso-ml/creso/pkg/errors"
)

// TimeSeriesFeatureCount is the number of summary features computed per
// series in summary mode: mean, std, min, max, first, last, last-first
// delta, lag-1 autocorrelation.
const TimeSeriesFeatureCount = 8

// TimeSeries adapts one variable-length series per sample ([][]float64)
// into fixed-length feature vectors.
//
// Two reductions are supported, selected by the declared input
// dimensionality:
//   - summary mode (inputDim == TimeSeriesFeatureCount): each series is
//     reduced to TimeSeriesFeatureCount summary statistics;
//   - positional mode (inputDim == window): each series is padded with
//     zeros or truncated to exactly window observations, which become the
//     feature columns directly.
type TimeSeries struct {
	inputDim int
	window   int
}

// NewTimeSeries creates a time-series adapter. window is the positional
// length used when inputDim == window; it is ignored in summary mode.
func NewTimeSeries(inputDim, window int) *TimeSeries {
	return &TimeSeries{inputDim: inputDim, window: window}
}

// Task implements Adapter.
func (a *TimeSeries) Task() Task { return TaskTimeSeries }

// ToCanonical implements Adapter. Accepts [][]float64, one series per
// sample. Empty series are rejected; sample order is preserved.
func (a *TimeSeries) ToCanonical(raw any) (*mat.Dense, error) {
	const op = "TimeSeries.ToCanonical"

	series, ok := raw.([][]float64)
	if !ok {
		return nil, errors.NewDataValidationErrorReason(op, 0,
			"unsupported input type: want [][]float64 (one series per sample)")
	}
	if len(series) == 0 {
		return nil, errors.NewDataValidationErrorReason(op, 0, "empty batch")
	}

	positional := a.window > 0 && a.inputDim == a.window
	if !positional && a.inputDim != TimeSeriesFeatureCount {
		return nil, errors.NewDataValidationError(op, 1, TimeSeriesFeatureCount, a.inputDim)
	}

	for i, s := range series {
		if len(s) == 0 {
			return nil, errors.NewDataValidationErrorReason(op, 0,
				fmt.Sprintf("empty series at row %d", i))
		}
		for t, v := range s {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.NewDataValidationErrorReason(op, 0,
					fmt.Sprintf("non-finite value %g at row %d, offset %d", v, i, t))
			}
		}
	}

	batch := mat.NewDense(len(series), a.inputDim, nil)
	for i, s := range series {
		if positional {
			batch.SetRow(i, padOrTruncate(s, a.window))
		} else {
			batch.SetRow(i, summarize(s))
		}
	}
	return batch, nil
}

// padOrTruncate fits a series to exactly window observations, zero-padding
// on the right.
func padOrTruncate(s []float64, window int) []float64 {
	out := make([]float64, window)
	copy(out, s)
	return out
}

// summarize reduces a series to its fixed summary-feature vector.
func summarize(s []float64) []float64 {
	mean, std := stat.MeanStdDev(s, nil)
	if len(s) == 1 {
		std = 0 // MeanStdDev returns NaN for a single observation
	}

	minVal, maxVal := s[0], s[0]
	for _, v := range s[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	first, last := s[0], s[len(s)-1]

	return []float64{
		mean,
		std,
		minVal,
		maxVal,
		first,
		last,
		last - first,
		lag1Autocorrelation(s, mean),
	}
}

// lag1Autocorrelation computes the lag-1 autocorrelation of s around mean.
// Constant or single-observation series have no serial structure and map
// to zero.
func lag1Autocorrelation(s []float64, mean float64) float64 {
	if len(s) < 2 {
		return 0
	}
	var num, den float64
	for i, v := range s {
		d := v - mean
		den += d * d
		if i > 0 {
			num += (s[i-1] - mean) * d
		}
	}
	if den == 0 {
		return 0
	}
	return num / den
}
