package creso

import (
	"context"
	"io"
	"math"
	"math/rand"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	cresoerrors "github.com/creso-ml/creso/pkg/errors"
	"github.com/creso-ml/creso/pkg/log"
)

// randomBinaryProblem builds n random rows with labels drawn from {0, 1}.
func randomBinaryProblem(n, d int, seed int64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(n, d, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			X.Set(i, j, rng.NormFloat64())
		}
		y.Set(i, 0, float64(rng.Intn(2)))
	}
	return X, y
}

func smallConfig(inputDim, epochs int) Config {
	cfg := DefaultConfig(inputDim)
	cfg.Arch.NumComponents = 8
	cfg.Train.Epochs = epochs
	return cfg
}

func TestClassifierFitPredict(t *testing.T) {
	X, y := randomBinaryProblem(1000, 10, 42)

	clf, err := NewClassifier(smallConfig(10, 3), WithProgressWriter(io.Discard))
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}
	if err := clf.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	history := clf.History()
	if history == nil || history.EpochsRun != 3 {
		t.Fatalf("History().EpochsRun = %v, want 3", history)
	}

	pred, err := clf.Predict(X)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	n, c := pred.Dims()
	if n != 1000 || c != 1 {
		t.Fatalf("Predict() dims = %d×%d, want 1000×1", n, c)
	}
	for i := 0; i < n; i++ {
		if v := pred.At(i, 0); v != 0 && v != 1 {
			t.Fatalf("prediction at row %d = %v, want 0 or 1", i, v)
		}
	}

	classes := clf.Classes()
	if len(classes) != 2 || classes[0] != 0 || classes[1] != 1 {
		t.Errorf("Classes() = %v, want [0 1]", classes)
	}
}

func TestClassifierPredictProba(t *testing.T) {
	X, y := randomBinaryProblem(200, 6, 7)

	clf, err := NewClassifier(smallConfig(6, 5), WithProgressWriter(io.Discard))
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}
	if err := clf.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	probs, err := clf.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba() error = %v", err)
	}
	n, c := probs.Dims()
	if c != 2 {
		t.Fatalf("PredictProba() columns = %d, want 2", c)
	}
	for i := 0; i < n; i++ {
		var sum float64
		for j := 0; j < c; j++ {
			p := probs.At(i, j)
			if p < 0 || p > 1 {
				t.Fatalf("probs[%d,%d] = %v out of [0,1]", i, j, p)
			}
			sum += p
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("row %d probabilities sum to %v, want 1", i, sum)
		}
	}

	// Predict agrees with the arg max of PredictProba.
	pred, err := clf.Predict(X)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	classes := clf.Classes()
	for i := 0; i < n; i++ {
		best := 0
		for j := 1; j < c; j++ {
			if probs.At(i, j) > probs.At(i, best) {
				best = j
			}
		}
		if pred.At(i, 0) != float64(classes[best]) {
			t.Fatalf("row %d: Predict = %v, argmax class = %d", i, pred.At(i, 0), classes[best])
		}
	}
}

func TestClassifierDeterministicRefit(t *testing.T) {
	X, y := randomBinaryProblem(300, 5, 3)
	cfg := smallConfig(5, 4)

	fit := func() mat.Matrix {
		clf, err := NewClassifier(cfg, WithProgressWriter(io.Discard))
		if err != nil {
			t.Fatalf("NewClassifier() error = %v", err)
		}
		if err := clf.Fit(X, y); err != nil {
			t.Fatalf("Fit() error = %v", err)
		}
		probs, err := clf.PredictProba(X)
		if err != nil {
			t.Fatalf("PredictProba() error = %v", err)
		}
		return probs
	}

	first := fit()
	second := fit()
	if !mat.Equal(first.(*mat.Dense), second.(*mat.Dense)) {
		t.Error("two fits with the same seed, config and data produced different probabilities")
	}
}

func TestClassifierNotFitted(t *testing.T) {
	clf, err := NewClassifier(smallConfig(4, 1))
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	X := mat.NewDense(1, 4, []float64{1, 2, 3, 4})

	if _, err := clf.Predict(X); err == nil {
		t.Fatal("Predict() expected error before Fit")
	}
	_, err = clf.PredictProba(X)
	var notFitted *cresoerrors.NotFittedError
	if !cresoerrors.As(err, &notFitted) {
		t.Fatalf("PredictProba() error type = %T, want *NotFittedError", err)
	}
	if notFitted.ModelName != "CReSOClassifier" || notFitted.Method != "PredictProba" {
		t.Errorf("NotFittedError = %+v, want model CReSOClassifier method PredictProba", notFitted)
	}
	if _, err := clf.Score(X, mat.NewDense(1, 1, []float64{0})); err == nil {
		t.Fatal("Score() expected error before Fit")
	}
}

func TestClassifierConcurrentFitGuard(t *testing.T) {
	clf, err := NewClassifier(smallConfig(4, 1))
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	// Simulate a Fit in flight.
	clf.fitting.Store(true)
	defer clf.fitting.Store(false)

	X, y := randomBinaryProblem(10, 4, 1)
	err = clf.Fit(X, y)
	if err == nil {
		t.Fatal("Fit() expected error while another Fit is in flight")
	}
	var concurrent *cresoerrors.ConcurrentAccessError
	if !cresoerrors.As(err, &concurrent) {
		t.Errorf("Fit() error type = %T, want *ConcurrentAccessError", err)
	}
}

func TestClassifierInputValidation(t *testing.T) {
	clf, err := NewClassifier(smallConfig(4, 1), WithProgressWriter(io.Discard))
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	t.Run("column mismatch", func(t *testing.T) {
		X := mat.NewDense(4, 3, nil)
		y := mat.NewDense(4, 1, []float64{0, 1, 0, 1})
		err := clf.Fit(X, y)
		var dataErr *cresoerrors.DataValidationError
		if !cresoerrors.As(err, &dataErr) {
			t.Fatalf("Fit() error type = %T, want *DataValidationError", err)
		}
		if dataErr.Axis != 1 {
			t.Errorf("Axis = %d, want 1 (features)", dataErr.Axis)
		}
	})

	t.Run("label row mismatch", func(t *testing.T) {
		X := mat.NewDense(4, 4, nil)
		y := mat.NewDense(3, 1, []float64{0, 1, 0})
		err := clf.Fit(X, y)
		var dataErr *cresoerrors.DataValidationError
		if !cresoerrors.As(err, &dataErr) {
			t.Fatalf("Fit() error type = %T, want *DataValidationError", err)
		}
		if dataErr.Axis != 0 {
			t.Errorf("Axis = %d, want 0 (samples)", dataErr.Axis)
		}
	})

	t.Run("single class", func(t *testing.T) {
		X := mat.NewDense(4, 4, nil)
		y := mat.NewDense(4, 1, []float64{1, 1, 1, 1})
		if err := clf.Fit(X, y); err == nil {
			t.Fatal("Fit() expected error for single-class labels")
		}
	})

	t.Run("non-integer label", func(t *testing.T) {
		X := mat.NewDense(2, 4, nil)
		y := mat.NewDense(2, 1, []float64{0, 1.5})
		if err := clf.Fit(X, y); err == nil {
			t.Fatal("Fit() expected error for non-integer label")
		}
	})

	t.Run("label out of int range", func(t *testing.T) {
		// Integral and finite, but far beyond what int can represent.
		X := mat.NewDense(2, 4, nil)
		y := mat.NewDense(2, 1, []float64{0, 1e19})
		err := clf.Fit(X, y)
		var dataErr *cresoerrors.DataValidationError
		if !cresoerrors.As(err, &dataErr) {
			t.Fatalf("Fit() error type = %T, want *DataValidationError", err)
		}
	})

	t.Run("failed fit preserves previous model", func(t *testing.T) {
		X, y := randomBinaryProblem(50, 4, 2)
		if err := clf.Fit(X, y); err != nil {
			t.Fatalf("Fit() error = %v", err)
		}
		before, err := clf.PredictProba(X)
		if err != nil {
			t.Fatalf("PredictProba() error = %v", err)
		}

		bad := mat.NewDense(4, 3, nil)
		if err := clf.Fit(bad, mat.NewDense(4, 1, []float64{0, 1, 0, 1})); err == nil {
			t.Fatal("Fit() expected error for column mismatch")
		}

		after, err := clf.PredictProba(X)
		if err != nil {
			t.Fatalf("PredictProba() after failed Fit error = %v", err)
		}
		if !mat.Equal(before.(*mat.Dense), after.(*mat.Dense)) {
			t.Error("failed Fit mutated the previously trained model")
		}
	})
}

func TestClassifierFitWithContextCancelled(t *testing.T) {
	X, y := randomBinaryProblem(100, 4, 9)

	clf, err := NewClassifier(smallConfig(4, 50), WithProgressWriter(io.Discard))
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := clf.FitRawWithContext(ctx, X, y); err != nil {
		t.Fatalf("FitRawWithContext() error = %v, cancellation must not be an error", err)
	}
	history := clf.History()
	if history.Stop != StopCancelled {
		t.Errorf("Stop = %q, want %q", history.Stop, StopCancelled)
	}
	// No step completed, so the model stays unfit.
	if _, err := clf.Predict(X); err == nil {
		t.Error("Predict() expected error after zero-step cancelled fit")
	}
}

func TestClassifierInstabilityAbortsFit(t *testing.T) {
	X, y := randomBinaryProblem(200, 4, 31)

	// An absurd step size makes the parameters blow up within a few
	// epochs, deterministically for the fixed seed.
	cfg := smallConfig(4, 20)
	cfg.Train.LearningRate = 1e150

	clf, err := NewClassifier(cfg, WithProgressWriter(io.Discard))
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	err = clf.Fit(X, y)
	var numErr *cresoerrors.NumericalInstabilityError
	if !cresoerrors.As(err, &numErr) {
		t.Fatalf("Fit() error type = %T, want *NumericalInstabilityError", err)
	}

	history := clf.History()
	if history == nil || history.EpochsRun >= 20 {
		t.Errorf("History() = %+v, want a partial run", history)
	}

	// The divergence was caught before the offending update, so the model
	// keeps its last stable parameters and stays usable.
	probs, err := clf.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba() after aborted Fit error = %v", err)
	}
	n, c := probs.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			p := probs.At(i, j)
			if math.IsNaN(p) || math.IsInf(p, 0) {
				t.Fatalf("probs[%d,%d] = %v, want finite from the last stable parameters", i, j, p)
			}
		}
	}
}

func TestClassifierTrainingLogs(t *testing.T) {
	X, y := randomBinaryProblem(80, 4, 23)

	logger, logs := log.NewTestLogger(log.LevelDebug)
	clf, err := NewClassifier(smallConfig(4, 2),
		WithProgressWriter(io.Discard),
		WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}
	if err := clf.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	out := logs.String()
	for _, want := range []string{
		"training started",
		"training finished",
		log.SamplesKey + "=80",
		log.ClassesKey + "=2",
		log.EpochKey + "=1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestClassifierScore(t *testing.T) {
	// A separable problem the model should fit well above chance.
	n := 200
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	rng := rand.New(rand.NewSource(17))
	for i := 0; i < n; i++ {
		offset := -2.0
		if i%2 == 1 {
			offset = 2.0
			y.Set(i, 0, 1)
		}
		X.Set(i, 0, offset+0.3*rng.NormFloat64())
		X.Set(i, 1, offset+0.3*rng.NormFloat64())
	}

	cfg := smallConfig(2, 200)
	clf, err := NewClassifier(cfg, WithProgressWriter(io.Discard))
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}
	if err := clf.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	score, err := clf.Score(X, y)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if score < 0.9 {
		t.Errorf("Score() = %v, want at least 0.9 on separable data", score)
	}
}

func TestClassifierNonBinaryLabels(t *testing.T) {
	// Labels need not be 0-based or contiguous.
	X, _ := randomBinaryProblem(90, 3, 5)
	y := mat.NewDense(90, 1, nil)
	labels := []float64{-1, 5, 10}
	for i := 0; i < 90; i++ {
		y.Set(i, 0, labels[i%3])
	}

	clf, err := NewClassifier(smallConfig(3, 3), WithProgressWriter(io.Discard))
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}
	if err := clf.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	classes := clf.Classes()
	want := []int{-1, 5, 10}
	for i, w := range want {
		if classes[i] != w {
			t.Fatalf("Classes() = %v, want %v", classes, want)
		}
	}

	pred, err := clf.Predict(X)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	for i := 0; i < 90; i++ {
		v := pred.At(i, 0)
		if v != -1 && v != 5 && v != 10 {
			t.Fatalf("prediction at row %d = %v, want one of {-1, 5, 10}", i, v)
		}
	}
}
