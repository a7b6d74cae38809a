// Package creso implements the CReSO classifier family: a bank of learnable
// oscillatory components (frequency, phase, amplitude) feeding a linear
// classification head, trained by seeded mini-batch gradient descent.
//
// The package follows the scikit-learn estimator contract: construct a
// classifier from a validated Config, call Fit, then Predict / PredictProba.
// Raw inputs from any supported task family (tabular, time series, graph)
// are converted to the canonical batch representation by the modality
// package before training or inference.
package creso

import (
	"math"

	"github.com/creso-ml/creso/modality"
	"github.com/creso-ml/creso/pkg/errors"
)

// ArchConfig declares the architecture of the spectral model core.
type ArchConfig struct {
	// InputDim is the canonical feature dimensionality. Every batch the
	// model consumes has exactly this many columns.
	InputDim int

	// NumComponents is the number of spectral components in the bank.
	// Capacity scales by adding components, not depth.
	NumComponents int

	// InitScale is the standard deviation used for the seeded random
	// initialization of frequencies and head weights.
	InitScale float64
}

// TrainConfig declares the optimization hyperparameters.
type TrainConfig struct {
	// Epochs is the maximum number of passes over the training batch.
	Epochs int

	// LearningRate is the SGD step size.
	LearningRate float64

	// BatchSize is the mini-batch size. Zero means full batch.
	BatchSize int

	// Seed drives parameter initialization and per-epoch shuffling.
	// The same seed, config and data reproduce the same parameters.
	Seed int64

	// Patience enables early stopping when positive: training halts after
	// this many consecutive epochs without a loss improvement of at least
	// MinDelta.
	Patience int

	// MinDelta is the minimum loss improvement that counts as progress
	// for early stopping.
	MinDelta float64

	// Verbose selects the progress reporting tier:
	// 0 = silent, 1 = one line per epoch, 2 = adds per-step lines.
	Verbose int
}

// Config combines the task family, architecture and training
// hyperparameters. A Config is validated once and treated as immutable;
// a new Fit call rebuilds the model from it but never mutates it.
type Config struct {
	// Task selects the modality adapter.
	Task modality.Task

	// Window is the positional window length for the time-series adapter.
	// Ignored for other tasks.
	Window int

	Arch  ArchConfig
	Train TrainConfig
}

// DefaultConfig returns a tabular configuration with reasonable defaults
// for the given input dimensionality.
func DefaultConfig(inputDim int) Config {
	return Config{
		Task: modality.TaskTabular,
		Arch: ArchConfig{
			InputDim:      inputDim,
			NumComponents: 32,
			InitScale:     0.1,
		},
		Train: TrainConfig{
			Epochs:       100,
			LearningRate: 0.1,
			Seed:         42,
		},
	}
}

// Validate checks the architecture sub-configuration in isolation.
func (a ArchConfig) Validate() error {
	if a.InputDim <= 0 {
		return errors.NewConfigurationError("input_dim", "must be positive", a.InputDim)
	}
	if a.NumComponents <= 0 {
		return errors.NewConfigurationError("num_components", "must be positive", a.NumComponents)
	}
	if a.InitScale <= 0 || math.IsNaN(a.InitScale) || math.IsInf(a.InitScale, 0) {
		return errors.NewConfigurationError("init_scale", "must be positive and finite", a.InitScale)
	}
	return nil
}

// Validate checks the training sub-configuration in isolation.
func (t TrainConfig) Validate() error {
	if t.Epochs <= 0 {
		return errors.NewConfigurationError("epochs", "must be positive", t.Epochs)
	}
	if t.LearningRate <= 0 || math.IsNaN(t.LearningRate) || math.IsInf(t.LearningRate, 0) {
		return errors.NewConfigurationError("learning_rate", "must be positive and finite", t.LearningRate)
	}
	if t.BatchSize < 0 {
		return errors.NewConfigurationError("batch_size", "must be non-negative (0 = full batch)", t.BatchSize)
	}
	if t.Patience < 0 {
		return errors.NewConfigurationError("patience", "must be non-negative (0 = disabled)", t.Patience)
	}
	if t.MinDelta < 0 || math.IsNaN(t.MinDelta) || math.IsInf(t.MinDelta, 0) {
		return errors.NewConfigurationError("min_delta", "must be non-negative and finite", t.MinDelta)
	}
	if t.Verbose < 0 || t.Verbose > 2 {
		return errors.NewConfigurationError("verbose", "must be 0, 1 or 2", t.Verbose)
	}
	return nil
}

// Validate checks both halves and their cross-field constraints.
func (c Config) Validate() error {
	if err := c.Arch.Validate(); err != nil {
		return err
	}
	if err := c.Train.Validate(); err != nil {
		return err
	}

	switch c.Task {
	case modality.TaskTabular:
		// Any positive input_dim is valid.
	case modality.TaskTimeSeries:
		if c.Window < 0 {
			return errors.NewConfigurationError("window", "must be non-negative", c.Window)
		}
		positional := c.Window > 0 && c.Arch.InputDim == c.Window
		if !positional && c.Arch.InputDim != modality.TimeSeriesFeatureCount {
			return errors.NewConfigurationError("input_dim",
				"time-series input_dim must equal the summary feature count or the positional window",
				c.Arch.InputDim)
		}
	case modality.TaskGraph:
		if c.Arch.InputDim != modality.GraphFeatureCount {
			return errors.NewConfigurationError("input_dim",
				"graph input_dim must equal the vertex descriptor width",
				c.Arch.InputDim)
		}
	default:
		return errors.NewConfigurationError("task", "unknown task family", string(c.Task))
	}
	return nil
}
