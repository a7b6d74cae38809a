// Package log defines standard attribute keys for machine learning
// operations. Using these keys keeps log output consistent across packages
// and enables structured filtering (e.g. all records for one estimator).
package log

// Model and operation context.
const (
	// ModelNameKey identifies the type of model.
	// Examples: "CReSOClassifier"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "predict_proba", "score", "save", "load"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "creso", "modality", "preprocessing"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the model lifecycle.
	// Examples: "training", "inference", "validation"
	PhaseKey = "ml.phase"
)

// Data shape and characteristics.
const (
	// SamplesKey indicates the number of samples (rows) in the batch.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the batch.
	FeaturesKey = "data.features"

	// ClassesKey indicates the number of target classes.
	ClassesKey = "data.classes"

	// BatchSizeKey indicates the mini-batch size used during training.
	BatchSizeKey = "data.batch_size"
)

// Training metrics.
const (
	// EpochKey indicates the current epoch index (0-based).
	EpochKey = "train.epoch"

	// LossKey records the mean loss of an epoch.
	LossKey = "train.loss"

	// ComponentsKey indicates the number of spectral components in the model.
	ComponentsKey = "model.components"

	// SeedKey records the random seed in effect for the run.
	SeedKey = "train.seed"

	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)
