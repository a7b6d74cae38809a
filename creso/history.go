package creso

// StopReason explains why a Fit call stopped iterating.
type StopReason string

const (
	// StopMaxEpochs means the configured epoch count was exhausted.
	StopMaxEpochs StopReason = "max_epochs"
	// StopEarly means the early-stopping criterion fired.
	StopEarly StopReason = "early_stopping"
	// StopCancelled means the context was cancelled at an epoch boundary.
	StopCancelled StopReason = "cancelled"
)

// TrainingHistory summarizes one completed Fit call. It is a value object:
// the trainer's internal state is discarded, only these results survive.
type TrainingHistory struct {
	// EpochsRun is the number of fully completed epochs.
	EpochsRun int

	// FinalLoss is the mean loss of the last completed epoch.
	FinalLoss float64

	// BestLoss is the lowest epoch mean loss seen.
	BestLoss float64

	// BestEpoch is the 0-based epoch index of BestLoss.
	BestEpoch int

	// Stop records why training stopped.
	Stop StopReason

	// LossCurve holds the mean loss of every completed epoch in order.
	LossCurve []float64
}
