package creso

import (
	"context"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/creso-ml/creso/pkg/errors"
	"github.com/creso-ml/creso/pkg/log"
)

// earlyStopping tracks the plateau criterion: stop after patience
// consecutive epochs whose loss improves by less than minDelta.
type earlyStopping struct {
	patience  int
	minDelta  float64
	bestLoss  float64
	bestEpoch int
	noImprove int
	enabled   bool
}

func newEarlyStopping(patience int, minDelta float64) *earlyStopping {
	return &earlyStopping{
		patience: patience,
		minDelta: minDelta,
		bestLoss: math.Inf(1),
		enabled:  patience > 0,
	}
}

// update records an epoch loss and reports whether training should stop.
func (es *earlyStopping) update(epoch int, loss float64) bool {
	if loss < es.bestLoss-es.minDelta {
		es.bestLoss = loss
		es.bestEpoch = epoch
		es.noImprove = 0
	} else {
		if loss < es.bestLoss {
			es.bestLoss = loss
			es.bestEpoch = epoch
		}
		es.noImprove++
	}
	return es.enabled && es.noImprove >= es.patience
}

// trainer runs the epoch loop against one WaveBank. It holds only a
// reference to the bank's parameters; all mutation happens in place.
type trainer struct {
	bank   *WaveBank
	cfg    TrainConfig
	rng    *rand.Rand
	sink   ProgressSink
	logger log.Logger

	steps int // completed optimization steps across all epochs
}

// run iterates up to cfg.Epochs over the canonical batch. Mini-batches are
// drawn in an order shuffled deterministically from the seeded rng at the
// start of each epoch; epochs execute strictly sequentially. Cancellation
// is checked once per epoch boundary and is not an error: the returned
// history reports the partial epoch count.
//
// A non-finite loss, gradient or updated parameter aborts the run with a
// NumericalInstabilityError; gradients are checked before the update and a
// diverged update is rolled back, so the bank keeps its last stable values.
func (t *trainer) run(ctx context.Context, X *mat.Dense, yIdx []int) (*TrainingHistory, error) {
	n, _ := X.Dims()
	batchSize := t.cfg.BatchSize
	if batchSize <= 0 || batchSize > n {
		batchSize = n
	}

	es := newEarlyStopping(t.cfg.Patience, t.cfg.MinDelta)
	history := &TrainingHistory{Stop: StopMaxEpochs}

	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		select {
		case <-ctx.Done():
			history.Stop = StopCancelled
			if history.EpochsRun > 0 {
				history.BestLoss = es.bestLoss
				history.BestEpoch = es.bestEpoch
			}
			t.logger.Info("training cancelled",
				log.EpochKey, epoch,
			)
			return history, nil
		default:
		}

		epochStart := time.Now()

		// The batch order for this epoch is fixed up front; full-batch
		// runs use the natural row order.
		var order []int
		if batchSize < n {
			order = t.rng.Perm(n)
		}

		var epochLoss float64
		step := 0
		for start := 0; start < n; start += batchSize {
			end := start + batchSize
			if end > n {
				end = n
			}

			Xb, yb := t.slice(X, yIdx, order, start, end)

			logits, act := t.bank.forward(Xb)
			loss, err := t.bank.loss(logits, yb, epoch)
			if err != nil {
				return history, err
			}

			probs := softmax(logits)
			grad := t.bank.gradient(Xb, act, probs, yb)
			if err := grad.checkFinite(epoch); err != nil {
				return history, err
			}

			// A finite gradient can still overflow a parameter once scaled
			// by the learning rate, so the applied update is verified too
			// and rolled back on failure.
			prev := t.bank.cloneParams()
			t.bank.applyUpdate(grad, t.cfg.LearningRate)
			if err := t.bank.checkParamsFinite(epoch); err != nil {
				t.bank.restoreParams(prev)
				return history, err
			}
			t.steps++

			epochLoss += loss * float64(end-start)
			t.sink.StepEnd(epoch, step, loss)
			step++
		}
		epochLoss /= float64(n)

		history.EpochsRun = epoch + 1
		history.FinalLoss = epochLoss
		history.LossCurve = append(history.LossCurve, epochLoss)

		t.sink.EpochEnd(epoch, epochLoss, time.Since(epochStart))
		t.logger.Debug("epoch completed",
			log.EpochKey, epoch,
			log.LossKey, epochLoss,
		)

		if es.update(epoch, epochLoss) {
			history.Stop = StopEarly
			break
		}
	}

	// BestLoss is only meaningful once an epoch has completed; a run that
	// never got that far keeps the zero values rather than surfacing +Inf.
	if history.EpochsRun > 0 {
		history.BestLoss = es.bestLoss
		history.BestEpoch = es.bestEpoch
	}

	if es.enabled && history.Stop == StopMaxEpochs {
		errors.Warn(errors.NewConvergenceWarning("CReSOClassifier", t.cfg.Epochs,
			"early-stop plateau not reached"))
	}

	return history, nil
}

// slice materializes one mini-batch. With a nil order (full batch) the
// original matrix is used directly, avoiding the copy.
func (t *trainer) slice(X *mat.Dense, yIdx, order []int, start, end int) (*mat.Dense, []int) {
	if order == nil {
		return X, yIdx
	}

	_, d := X.Dims()
	Xb := mat.NewDense(end-start, d, nil)
	yb := make([]int, end-start)
	for i, idx := range order[start:end] {
		Xb.SetRow(i, X.RawRowView(idx))
		yb[i] = yIdx[idx]
	}
	return Xb, yb
}
