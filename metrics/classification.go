// Package metrics provides evaluation metrics for classification models.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/creso-ml/creso/pkg/errors"
)

// Accuracy returns the fraction of rows where yPred equals yTrue.
// Both arguments are column vectors of class labels.
func Accuracy(yTrue, yPred mat.Matrix) (float64, error) {
	tr, tc := yTrue.Dims()
	pr, pc := yPred.Dims()

	if tr == 0 {
		return 0, errors.Wrap(errors.ErrEmptyData, "metrics.Accuracy")
	}
	if tc != 1 || pc != 1 {
		return 0, errors.NewDataValidationError("metrics.Accuracy", 1, 1, max(tc, pc))
	}
	if tr != pr {
		return 0, errors.NewDataValidationError("metrics.Accuracy", 0, tr, pr)
	}

	correct := 0
	for i := 0; i < tr; i++ {
		if yTrue.At(i, 0) == yPred.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(tr), nil
}

// LogLoss returns the mean negative log-likelihood of the true classes
// under the predicted probabilities. yIdx holds the class index of each
// row; probs is the n×nClasses probability matrix. Probabilities are
// clipped away from 0 and 1 by eps to keep the result finite.
func LogLoss(yIdx []int, probs mat.Matrix, eps float64) (float64, error) {
	n, nClasses := probs.Dims()

	if n == 0 {
		return 0, errors.Wrap(errors.ErrEmptyData, "metrics.LogLoss")
	}
	if len(yIdx) != n {
		return 0, errors.NewDataValidationError("metrics.LogLoss", 0, n, len(yIdx))
	}
	if eps <= 0 {
		eps = 1e-15
	}

	var total float64
	for i, idx := range yIdx {
		if idx < 0 || idx >= nClasses {
			return 0, errors.NewDataValidationError("metrics.LogLoss", 1, nClasses, idx)
		}
		p := probs.At(i, idx)
		if p < eps {
			p = eps
		}
		if p > 1-eps {
			p = 1 - eps
		}
		total -= math.Log(p)
	}
	return total / float64(n), nil
}
