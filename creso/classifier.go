package creso

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"sort"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/creso-ml/creso/core/model"
	"github.com/creso-ml/creso/metrics"
	"github.com/creso-ml/creso/modality"
	"github.com/creso-ml/creso/pkg/errors"
	"github.com/creso-ml/creso/pkg/log"
)

const modelName = "CReSOClassifier"

var _ model.Classifier = (*CReSOClassifier)(nil)

// CReSOClassifier is the public estimator facade: it wires the configured
// modality adapter, the spectral model core and the training engine behind
// the Fit / Predict / PredictProba contract.
//
// A classifier is not safe for concurrent use. A second Fit while one is
// running fails fast with a ConcurrentAccessError; calling Fit again after
// it returns discards the previous parameters and re-initializes from the
// Config.
type CReSOClassifier struct {
	cfg     Config
	adapter modality.Adapter

	bank    *WaveBank
	classes []int
	history *TrainingHistory

	fitting   atomic.Bool
	progressW io.Writer
	logger    log.Logger
}

// ClassifierOption configures a CReSOClassifier at construction.
type ClassifierOption func(*CReSOClassifier)

// WithProgressWriter redirects verbosity-gated progress output.
// The default is os.Stdout.
func WithProgressWriter(w io.Writer) ClassifierOption {
	return func(c *CReSOClassifier) { c.progressW = w }
}

// WithLogger sets the structured logger used for library diagnostics.
func WithLogger(l log.Logger) ClassifierOption {
	return func(c *CReSOClassifier) { c.logger = l }
}

// NewClassifier validates cfg and constructs an unfitted classifier.
// An invalid or inconsistent configuration is rejected here, before any
// model is built.
func NewClassifier(cfg Config, opts ...ClassifierOption) (*CReSOClassifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	adapter, err := modality.ForTask(cfg.Task, cfg.Arch.InputDim, cfg.Window)
	if err != nil {
		return nil, err
	}

	c := &CReSOClassifier{
		cfg:       cfg,
		adapter:   adapter,
		progressW: os.Stdout,
		logger:    log.GetLogger().With(log.ModelNameKey, modelName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the configuration the classifier was built from.
func (c *CReSOClassifier) Config() Config { return c.cfg }

// History returns the training history of the most recent Fit call, or nil
// before the first Fit.
func (c *CReSOClassifier) History() *TrainingHistory { return c.history }

// Classes returns the sorted unique class labels seen during fitting.
func (c *CReSOClassifier) Classes() []int {
	out := make([]int, len(c.classes))
	copy(out, c.classes)
	return out
}

// Fit trains the classifier on a canonical or tabular batch.
func (c *CReSOClassifier) Fit(X, y mat.Matrix) error {
	return c.FitRawWithContext(context.Background(), X, y)
}

// FitRaw trains the classifier on a raw modality input: a matrix or
// [][]float64 for tabular, [][]float64 series for time series, an lvlath
// graph for graph tasks.
func (c *CReSOClassifier) FitRaw(raw any, y mat.Matrix) error {
	return c.FitRawWithContext(context.Background(), raw, y)
}

// FitRawWithContext is FitRaw with cooperative cancellation, checked once
// per epoch boundary. A cancelled run is not an error: the training
// history reports the partial epoch count, and the parameters keep
// whatever values the last completed step produced.
func (c *CReSOClassifier) FitRawWithContext(ctx context.Context, raw any, y mat.Matrix) error {
	if !c.fitting.CompareAndSwap(false, true) {
		return errors.NewConcurrentAccessError(modelName, "Fit")
	}
	defer c.fitting.Store(false)

	start := time.Now()

	// Adapter and label validation run before any parameter is touched;
	// a failure here leaves any previously trained model intact.
	batch, err := c.adapter.ToCanonical(raw)
	if err != nil {
		return err
	}
	n, _ := batch.Dims()

	classes, yIdx, err := extractClasses(y, n)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(c.cfg.Train.Seed))
	bank := newWaveBank(c.cfg.Arch)
	if err := bank.initialize(len(classes), rng); err != nil {
		return err
	}

	c.logger.Info("training started",
		log.OperationKey, "fit",
		log.SamplesKey, n,
		log.FeaturesKey, c.cfg.Arch.InputDim,
		log.ClassesKey, len(classes),
		log.ComponentsKey, c.cfg.Arch.NumComponents,
		log.SeedKey, c.cfg.Train.Seed,
	)

	tr := &trainer{
		bank:   bank,
		cfg:    c.cfg.Train,
		rng:    rng,
		sink:   sinkForVerbose(c.progressW, c.cfg.Train.Verbose),
		logger: c.logger,
	}
	history, trainErr := tr.run(ctx, batch, yIdx)

	// The new bank replaces the old one even on a mid-training numerical
	// failure: its parameters hold the last stable values, and marking it
	// trained requires at least one completed step.
	if tr.steps > 0 {
		if err := bank.state.SetTrained(); err != nil {
			return err
		}
		bank.state.SetDimensions(c.cfg.Arch.InputDim, n)
	}
	c.bank = bank
	c.classes = classes
	c.history = history

	if trainErr != nil {
		c.logger.Error("training aborted", trainErr,
			log.OperationKey, "fit",
			log.EpochKey, history.EpochsRun,
		)
		return trainErr
	}

	c.logger.Info("training finished",
		log.OperationKey, "fit",
		log.EpochKey, history.EpochsRun,
		log.LossKey, history.FinalLoss,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Predict returns the arg-max class for every input row, ties broken by
// the lowest class index.
func (c *CReSOClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	return c.PredictRaw(X)
}

// PredictRaw is Predict for raw modality inputs.
func (c *CReSOClassifier) PredictRaw(raw any) (mat.Matrix, error) {
	probs, err := c.predictProba(raw, "Predict")
	if err != nil {
		return nil, err
	}

	n, k := probs.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		best := 0
		bestProb := probs.At(i, 0)
		for j := 1; j < k; j++ {
			if probs.At(i, j) > bestProb {
				best = j
				bestProb = probs.At(i, j)
			}
		}
		out.Set(i, 0, float64(c.classes[best]))
	}
	return out, nil
}

// PredictProba returns calibrated class probabilities, one column per
// class in Classes() order.
func (c *CReSOClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	return c.PredictProbaRaw(X)
}

// PredictProbaRaw is PredictProba for raw modality inputs.
func (c *CReSOClassifier) PredictProbaRaw(raw any) (mat.Matrix, error) {
	return c.predictProba(raw, "PredictProba")
}

func (c *CReSOClassifier) predictProba(raw any, method string) (*mat.Dense, error) {
	if c.bank == nil {
		return nil, errors.NewNotFittedError(modelName, method)
	}
	if err := c.bank.state.RequireFitted(modelName, method); err != nil {
		return nil, err
	}

	batch, err := c.adapter.ToCanonical(raw)
	if err != nil {
		return nil, err
	}

	logits, err := c.bank.Forward(batch)
	if err != nil {
		return nil, err
	}
	return softmax(logits), nil
}

// Score returns the mean accuracy of Predict against y.
func (c *CReSOClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := c.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(y, pred)
}

// extractClasses validates the label vector and maps it to sorted class
// indices. Labels must be finite integers and cover at least two classes.
func extractClasses(y mat.Matrix, nSamples int) (classes []int, yIdx []int, err error) {
	const op = "CReSOClassifier.Fit"

	if y == nil {
		return nil, nil, errors.NewDataValidationErrorReason(op, 0, "labels are nil")
	}
	rows, cols := y.Dims()
	if cols != 1 {
		return nil, nil, errors.NewDataValidationError(op, 1, 1, cols)
	}
	if rows != nSamples {
		return nil, nil, errors.NewDataValidationError(op, 0, nSamples, rows)
	}

	seen := make(map[int]struct{}, 2)
	labels := make([]int, rows)
	for i := 0; i < rows; i++ {
		v := y.At(i, 0)
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return nil, nil, errors.NewDataValidationErrorReason(op, 0,
				fmt.Sprintf("label at row %d is not a finite integer: %g", i, v))
		}
		// Integral but too large for int: the conversion below would be
		// implementation-defined, so reject it here.
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, nil, errors.NewDataValidationErrorReason(op, 0,
				fmt.Sprintf("label at row %d is out of range: %g", i, v))
		}
		labels[i] = int(v)
		seen[labels[i]] = struct{}{}
	}
	if len(seen) < 2 {
		return nil, nil, errors.NewDataValidationErrorReason(op, 0,
			"labels must contain at least two classes")
	}

	classes = make([]int, 0, len(seen))
	for class := range seen {
		classes = append(classes, class)
	}
	sort.Ints(classes)

	index := make(map[int]int, len(classes))
	for i, class := range classes {
		index[class] = i
	}
	yIdx = make([]int, rows)
	for i, label := range labels {
		yIdx[i] = index[label]
	}
	return classes, yIdx, nil
}
