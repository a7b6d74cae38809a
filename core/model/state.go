// Package model provides state management and shared interfaces for CReSO
// estimators.
package model

import (
	"sync"

	"github.com/creso-ml/creso/pkg/errors"
)

// State はモデルのライフサイクル状態を表す
type State int

const (
	// Untrained はパラメータが存在しない初期状態
	Untrained State = iota
	// Initialized はパラメータがシードから初期化された状態
	Initialized
	// Trained は少なくとも1回の最適化ステップを経た状態
	Trained
	// Frozen は推論専用に固定された状態（デシリアライズ後など）
	Frozen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Untrained:
		return "Untrained"
	case Initialized:
		return "Initialized"
	case Trained:
		return "Trained"
	case Frozen:
		return "Frozen"
	default:
		return "Unknown"
	}
}

// StateManager manages the lifecycle state of a model in a thread-safe
// manner. It replaces base-struct embedding with composition.
//
// Valid transitions: Untrained → Initialized → Trained → Frozen, plus
// Initialized → Frozen (a deserialized model skips training but never skips
// initialization) and any state → Untrained via Reset.
type StateManager struct {
	CurrentState State // Public for gob encoding
	mu           sync.RWMutex

	// Dimensions seen during fitting - Public for gob encoding
	NFeatures int
	NSamples  int
}

// NewStateManager creates a StateManager in the Untrained state.
func NewStateManager() *StateManager {
	return &StateManager{CurrentState: Untrained}
}

// State returns the current lifecycle state.
func (s *StateManager) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.CurrentState
}

// SetInitialized marks the parameters as seeded. Only valid from Untrained.
func (s *StateManager) SetInitialized() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CurrentState != Untrained {
		return errors.Newf("invalid state transition: %s -> Initialized", s.CurrentState)
	}
	s.CurrentState = Initialized
	return nil
}

// SetTrained marks the model as trained. Only valid from Initialized or
// Trained; a model is never trained without being initialized first.
func (s *StateManager) SetTrained() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CurrentState != Initialized && s.CurrentState != Trained {
		return errors.Newf("invalid state transition: %s -> Trained", s.CurrentState)
	}
	s.CurrentState = Trained
	return nil
}

// Freeze marks the model read-only for inference. Valid from Initialized or
// Trained.
func (s *StateManager) Freeze() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CurrentState != Initialized && s.CurrentState != Trained {
		return errors.Newf("invalid state transition: %s -> Frozen", s.CurrentState)
	}
	s.CurrentState = Frozen
	return nil
}

// Reset returns the model to the Untrained state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CurrentState = Untrained
	s.NFeatures = 0
	s.NSamples = 0
}

// IsFitted reports whether the model can serve predictions
// (Trained or Frozen).
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.CurrentState == Trained || s.CurrentState == Frozen
}

// IsFrozen reports whether the model is read-only.
func (s *StateManager) IsFrozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.CurrentState == Frozen
}

// RequireFitted returns a NotFittedError naming the model and method if the
// model cannot serve predictions yet.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}

// SetDimensions records the number of features and samples seen during
// fitting.
func (s *StateManager) SetDimensions(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NFeatures = nFeatures
	s.NSamples = nSamples
}

// GetDimensions returns the number of features and samples seen during
// fitting.
func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NFeatures, s.NSamples
}
