package creso

import (
	"io"

	"gonum.org/v1/gonum/mat"

	"github.com/creso-ml/creso/core/model"
	"github.com/creso-ml/creso/pkg/errors"
)

var _ model.Persistable = (*CReSOClassifier)(nil)

// ModelBundle is the persisted form of a trained classifier: the Config
// plus the raw parameter buffers. Deserializing a bundle reconstructs an
// equivalent frozen model without the training data.
type ModelBundle struct {
	Config  Config
	Classes []int
	Freq    []float64 // NumComponents×InputDim, row-major
	Phase   []float64 // NumComponents
	Amp     []float64 // NumComponents
	Head    []float64 // NumComponents×len(Classes), row-major
	Bias    []float64 // len(Classes)
}

// Bundle captures the classifier's parameters for persistence.
func (c *CReSOClassifier) Bundle() (*ModelBundle, error) {
	if c.bank == nil || !c.bank.state.IsFitted() {
		return nil, errors.NewNotFittedError(modelName, "Bundle")
	}

	w := c.bank
	k, d := w.arch.NumComponents, w.arch.InputDim

	bundle := &ModelBundle{
		Config:  c.cfg,
		Classes: c.Classes(),
		Freq:    make([]float64, k*d),
		Phase:   append([]float64(nil), w.phase...),
		Amp:     append([]float64(nil), w.amp...),
		Head:    make([]float64, k*w.nClasses),
		Bias:    append([]float64(nil), w.bias...),
	}
	for j := 0; j < k; j++ {
		copy(bundle.Freq[j*d:(j+1)*d], w.freq.RawRowView(j))
		copy(bundle.Head[j*w.nClasses:(j+1)*w.nClasses], w.head.RawRowView(j))
	}
	return bundle, nil
}

// Save writes the classifier to path as a gob-encoded ModelBundle.
func (c *CReSOClassifier) Save(path string) error {
	bundle, err := c.Bundle()
	if err != nil {
		return err
	}
	return model.SaveModel(bundle, path)
}

// SaveToWriter writes the classifier to w as a gob-encoded ModelBundle.
func (c *CReSOClassifier) SaveToWriter(w io.Writer) error {
	bundle, err := c.Bundle()
	if err != nil {
		return err
	}
	return model.SaveModelToWriter(bundle, w)
}

// LoadClassifier reads a bundle from path and reconstructs a frozen
// classifier. Parameter shapes are validated against the embedded Config
// before use; a mismatch is a SerializationError, never a silent reshape.
func LoadClassifier(path string) (*CReSOClassifier, error) {
	var bundle ModelBundle
	if err := model.LoadModel(&bundle, path); err != nil {
		return nil, err
	}
	return classifierFromBundle(&bundle)
}

// LoadClassifierFromReader is LoadClassifier for an arbitrary reader.
func LoadClassifierFromReader(r io.Reader) (*CReSOClassifier, error) {
	var bundle ModelBundle
	if err := model.LoadModelFromReader(&bundle, r); err != nil {
		return nil, err
	}
	return classifierFromBundle(&bundle)
}

func classifierFromBundle(bundle *ModelBundle) (*CReSOClassifier, error) {
	const op = "LoadClassifier"

	// The embedded config goes through the same validation as a fresh one.
	c, err := NewClassifier(bundle.Config)
	if err != nil {
		return nil, err
	}

	k, d := bundle.Config.Arch.NumComponents, bundle.Config.Arch.InputDim
	nClasses := len(bundle.Classes)
	if nClasses < 2 {
		return nil, errors.NewSerializationError(op, "bundle holds fewer than two classes")
	}
	for i := 1; i < nClasses; i++ {
		if bundle.Classes[i] <= bundle.Classes[i-1] {
			return nil, errors.NewSerializationError(op, "bundle classes are not sorted and unique")
		}
	}

	if len(bundle.Freq) != k*d {
		return nil, errors.NewShapeMismatchError(op, []int{k, d}, []int{len(bundle.Freq) / max(d, 1), d})
	}
	if len(bundle.Phase) != k {
		return nil, errors.NewShapeMismatchError(op, []int{k}, []int{len(bundle.Phase)})
	}
	if len(bundle.Amp) != k {
		return nil, errors.NewShapeMismatchError(op, []int{k}, []int{len(bundle.Amp)})
	}
	if len(bundle.Head) != k*nClasses {
		return nil, errors.NewShapeMismatchError(op, []int{k, nClasses}, []int{len(bundle.Head) / max(nClasses, 1), nClasses})
	}
	if len(bundle.Bias) != nClasses {
		return nil, errors.NewShapeMismatchError(op, []int{nClasses}, []int{len(bundle.Bias)})
	}

	bank := newWaveBank(bundle.Config.Arch)
	bank.nClasses = nClasses
	bank.freq = mat.NewDense(k, d, append([]float64(nil), bundle.Freq...))
	bank.phase = append([]float64(nil), bundle.Phase...)
	bank.amp = append([]float64(nil), bundle.Amp...)
	bank.head = mat.NewDense(k, nClasses, append([]float64(nil), bundle.Head...))
	bank.bias = append([]float64(nil), bundle.Bias...)

	if err := bank.state.SetInitialized(); err != nil {
		return nil, err
	}
	if err := bank.state.Freeze(); err != nil {
		return nil, err
	}

	c.bank = bank
	c.classes = append([]int(nil), bundle.Classes...)
	return c, nil
}
