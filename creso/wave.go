package creso

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/creso-ml/creso/core/model"
	"github.com/creso-ml/creso/core/parallel"
	"github.com/creso-ml/creso/pkg/errors"
)

// Batches below this row count are evaluated sequentially.
const parallelThreshold = 512

// WaveBank is the spectral model core: a bank of k oscillatory components
// evaluated against each input vector, feeding a linear classification
// head.
//
// For input x, component j produces a_j * cos(ω_j·x + φ_j); the k
// activations are mapped to class logits by the head. All learnable
// parameters (Ω k×d, φ k, a k, head k×c, bias c) are owned exclusively by
// one WaveBank instance; the trainer mutates them in place through
// applyUpdate and holds no copy.
type WaveBank struct {
	state    *model.StateManager
	arch     ArchConfig
	nClasses int

	freq  *mat.Dense // k×d component frequencies
	phase []float64  // k
	amp   []float64  // k
	head  *mat.Dense // k×c
	bias  []float64  // c
}

// newWaveBank creates an uninitialized bank for the given architecture.
func newWaveBank(arch ArchConfig) *WaveBank {
	return &WaveBank{state: model.NewStateManager(), arch: arch}
}

// initialize seeds all parameters from rng. Frequencies and head weights
// are Gaussian with stddev InitScale, phases uniform in [0, 2π),
// amplitudes start at 1. The draw order is fixed, so one seed reproduces
// one parameter set.
func (w *WaveBank) initialize(nClasses int, rng *rand.Rand) error {
	k, d := w.arch.NumComponents, w.arch.InputDim
	w.nClasses = nClasses

	w.freq = mat.NewDense(k, d, nil)
	for j := 0; j < k; j++ {
		for f := 0; f < d; f++ {
			w.freq.Set(j, f, rng.NormFloat64()*w.arch.InitScale)
		}
	}

	w.phase = make([]float64, k)
	for j := range w.phase {
		w.phase[j] = rng.Float64() * 2 * math.Pi
	}

	w.amp = make([]float64, k)
	for j := range w.amp {
		w.amp[j] = 1
	}

	w.head = mat.NewDense(k, nClasses, nil)
	for j := 0; j < k; j++ {
		for c := 0; c < nClasses; c++ {
			w.head.Set(j, c, rng.NormFloat64()*w.arch.InitScale)
		}
	}
	w.bias = make([]float64, nClasses)

	return w.state.SetInitialized()
}

// activations holds the per-batch intermediate values the backward pass
// reuses. Ephemeral: rebuilt for every forward call.
type activations struct {
	cosZ  *mat.Dense // n×k, cos(ω_j·x_i + φ_j)
	sinZ  *mat.Dense // n×k
	basis *mat.Dense // n×k, amplitude-scaled cosZ
}

// forward evaluates the bank against a canonical batch and returns logits
// (n×c) plus the intermediates. Deterministic for fixed parameters; rows
// are computed data-parallel but each worker writes only its own rows.
func (w *WaveBank) forward(X *mat.Dense) (*mat.Dense, *activations) {
	n, _ := X.Dims()
	k := w.arch.NumComponents

	act := &activations{
		cosZ:  mat.NewDense(n, k, nil),
		sinZ:  mat.NewDense(n, k, nil),
		basis: mat.NewDense(n, k, nil),
	}

	parallel.ParallelizeWithThreshold(n, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			xi := X.RawRowView(i)
			for j := 0; j < k; j++ {
				z := w.phase[j]
				wj := w.freq.RawRowView(j)
				for f, v := range xi {
					z += wj[f] * v
				}
				c, s := math.Cos(z), math.Sin(z)
				act.cosZ.Set(i, j, c)
				act.sinZ.Set(i, j, s)
				act.basis.Set(i, j, w.amp[j]*c)
			}
		}
	})

	logits := mat.NewDense(n, w.nClasses, nil)
	logits.Mul(act.basis, w.head)
	for i := 0; i < n; i++ {
		for c := 0; c < w.nClasses; c++ {
			logits.Set(i, c, logits.At(i, c)+w.bias[c])
		}
	}
	return logits, act
}

// Forward returns class logits for a canonical batch. Read-only; the bank
// must be initialized.
func (w *WaveBank) Forward(X *mat.Dense) (*mat.Dense, error) {
	if w.state.State() == model.Untrained {
		return nil, errors.NewNotFittedError("WaveBank", "Forward")
	}
	_, cols := X.Dims()
	if cols != w.arch.InputDim {
		return nil, errors.NewDataValidationError("WaveBank.Forward", 1, w.arch.InputDim, cols)
	}
	logits, _ := w.forward(X)
	return logits, nil
}

// loss computes the mean softmax cross-entropy of logits against the class
// indices in yIdx. A non-finite result is a NumericalInstabilityError, not
// a clamped value.
func (w *WaveBank) loss(logits *mat.Dense, yIdx []int, epoch int) (float64, error) {
	n, _ := logits.Dims()

	var total float64
	for i := 0; i < n; i++ {
		row := logits.RawRowView(i)
		maxLogit := row[0]
		for _, v := range row[1:] {
			if v > maxLogit {
				maxLogit = v
			}
		}
		var sumExp float64
		for _, v := range row {
			sumExp += math.Exp(v - maxLogit)
		}
		total += math.Log(sumExp) + maxLogit - row[yIdx[i]]
	}

	mean := total / float64(n)
	if err := errors.CheckScalar("loss", mean, epoch); err != nil {
		return mean, err
	}
	return mean, nil
}

// softmax returns calibrated class probabilities for logits, numerically
// stabilized by the row maximum.
func softmax(logits *mat.Dense) *mat.Dense {
	n, c := logits.Dims()
	probs := mat.NewDense(n, c, nil)
	for i := 0; i < n; i++ {
		row := logits.RawRowView(i)
		maxLogit := row[0]
		for _, v := range row[1:] {
			if v > maxLogit {
				maxLogit = v
			}
		}
		var sum float64
		out := probs.RawRowView(i)
		for j, v := range row {
			out[j] = math.Exp(v - maxLogit)
			sum += out[j]
		}
		for j := range out {
			out[j] /= sum
		}
	}
	return probs
}

// gradients mirrors the parameter shapes of the bank.
type gradients struct {
	freq  *mat.Dense // k×d
	phase []float64  // k
	amp   []float64  // k
	head  *mat.Dense // k×c
	bias  []float64  // c
}

// gradient computes the closed-form cross-entropy gradient for one batch,
// consistent with loss. X is the batch, act the intermediates of the
// matching forward call, probs the softmax of its logits.
func (w *WaveBank) gradient(X *mat.Dense, act *activations, probs *mat.Dense, yIdx []int) *gradients {
	n, _ := X.Dims()
	k := w.arch.NumComponents

	// dL/dlogits = (probs - onehot) / n
	dLogits := mat.NewDense(n, w.nClasses, nil)
	dLogits.Copy(probs)
	inv := 1 / float64(n)
	for i := 0; i < n; i++ {
		dLogits.Set(i, yIdx[i], dLogits.At(i, yIdx[i])-1)
		row := dLogits.RawRowView(i)
		for j := range row {
			row[j] *= inv
		}
	}

	g := &gradients{
		freq:  mat.NewDense(k, w.arch.InputDim, nil),
		phase: make([]float64, k),
		amp:   make([]float64, k),
		head:  mat.NewDense(k, w.nClasses, nil),
		bias:  make([]float64, w.nClasses),
	}

	// Head and bias.
	g.head.Mul(act.basis.T(), dLogits)
	for i := 0; i < n; i++ {
		row := dLogits.RawRowView(i)
		for c, v := range row {
			g.bias[c] += v
		}
	}

	// Back through the basis: dL/dB = dLogits · headᵀ.
	dBasis := mat.NewDense(n, k, nil)
	dBasis.Mul(dLogits, w.head.T())

	// dL/da_j = Σ_i dB_ij cos(z_ij); dL/dz_ij = -a_j sin(z_ij) dB_ij.
	dZ := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		dbRow := dBasis.RawRowView(i)
		cosRow := act.cosZ.RawRowView(i)
		sinRow := act.sinZ.RawRowView(i)
		dzRow := dZ.RawRowView(i)
		for j := 0; j < k; j++ {
			g.amp[j] += dbRow[j] * cosRow[j]
			dzRow[j] = -w.amp[j] * sinRow[j] * dbRow[j]
		}
	}

	// dL/dφ_j = Σ_i dz_ij; dL/dΩ = dZᵀ · X.
	for i := 0; i < n; i++ {
		dzRow := dZ.RawRowView(i)
		for j := 0; j < k; j++ {
			g.phase[j] += dzRow[j]
		}
	}
	g.freq.Mul(dZ.T(), X)

	return g
}

// checkFinite validates every gradient value before it is applied, so a
// diverged step never corrupts the parameters.
func (g *gradients) checkFinite(epoch int) error {
	rows, cols := g.freq.Dims()
	if err := errors.CheckMatrix("gradient_freq", g.freq, rows, cols, epoch); err != nil {
		return err
	}
	if err := errors.CheckValues("gradient_phase", g.phase, epoch); err != nil {
		return err
	}
	if err := errors.CheckValues("gradient_amp", g.amp, epoch); err != nil {
		return err
	}
	rows, cols = g.head.Dims()
	if err := errors.CheckMatrix("gradient_head", g.head, rows, cols, epoch); err != nil {
		return err
	}
	return errors.CheckValues("gradient_bias", g.bias, epoch)
}

// applyUpdate performs one in-place SGD step. Exclusive mutation access is
// guaranteed by the classifier's reentrancy guard.
func (w *WaveBank) applyUpdate(g *gradients, lr float64) {
	k, d := w.arch.NumComponents, w.arch.InputDim
	for j := 0; j < k; j++ {
		fRow := w.freq.RawRowView(j)
		gRow := g.freq.RawRowView(j)
		for f := 0; f < d; f++ {
			fRow[f] -= lr * gRow[f]
		}
		w.phase[j] -= lr * g.phase[j]
		w.amp[j] -= lr * g.amp[j]

		hRow := w.head.RawRowView(j)
		ghRow := g.head.RawRowView(j)
		for c := range hRow {
			hRow[c] -= lr * ghRow[c]
		}
	}
	for c := range w.bias {
		w.bias[c] -= lr * g.bias[c]
	}
}

// cloneParams copies the learnable parameters so a diverging update can be
// rolled back. The gradients type mirrors the parameter shapes exactly.
func (w *WaveBank) cloneParams() *gradients {
	return &gradients{
		freq:  mat.DenseCopyOf(w.freq),
		phase: append([]float64(nil), w.phase...),
		amp:   append([]float64(nil), w.amp...),
		head:  mat.DenseCopyOf(w.head),
		bias:  append([]float64(nil), w.bias...),
	}
}

// restoreParams overwrites the parameters with a previous snapshot.
func (w *WaveBank) restoreParams(p *gradients) {
	w.freq.Copy(p.freq)
	copy(w.phase, p.phase)
	copy(w.amp, p.amp)
	w.head.Copy(p.head)
	copy(w.bias, p.bias)
}

// checkParamsFinite reports a NumericalInstabilityError if any learnable
// parameter is non-finite. A gradient that passes checkFinite can still
// overflow a parameter once scaled by the learning rate.
func (w *WaveBank) checkParamsFinite(epoch int) error {
	k, d := w.arch.NumComponents, w.arch.InputDim
	if err := errors.CheckMatrix("param_freq", w.freq, k, d, epoch); err != nil {
		return err
	}
	if err := errors.CheckValues("param_phase", w.phase, epoch); err != nil {
		return err
	}
	if err := errors.CheckValues("param_amp", w.amp, epoch); err != nil {
		return err
	}
	if err := errors.CheckMatrix("param_head", w.head, k, w.nClasses, epoch); err != nil {
		return err
	}
	return errors.CheckValues("param_bias", w.bias, epoch)
}

// NumComponents returns the size of the spectral bank.
func (w *WaveBank) NumComponents() int { return w.arch.NumComponents }

// InputDim returns the canonical feature dimensionality.
func (w *WaveBank) InputDim() int { return w.arch.InputDim }
