package errors

import (
	"math"
	"strings"
	"testing"
)

func TestConfigurationError_Message(t *testing.T) {
	err := NewConfigurationError("input_dim", "must be positive", -3)

	var cfgErr *ConfigurationError
	if !As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %T", err)
	}
	if !strings.Contains(err.Error(), "input_dim") {
		t.Errorf("message should name the field: %v", err)
	}
	if !strings.Contains(err.Error(), "-3") {
		t.Errorf("message should include the value: %v", err)
	}
}

func TestDataValidationError_Axis(t *testing.T) {
	tests := []struct {
		name     string
		axis     int
		wantWord string
	}{
		{"column mismatch", 1, "features"},
		{"row mismatch", 0, "rows"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDataValidationError("Tabular.ToCanonical", tt.axis, 10, 7)

			var dvErr *DataValidationError
			if !As(err, &dvErr) {
				t.Fatalf("expected DataValidationError, got %T", err)
			}
			if dvErr.Axis != tt.axis {
				t.Errorf("Axis = %d, want %d", dvErr.Axis, tt.axis)
			}
			if !strings.Contains(err.Error(), tt.wantWord) {
				t.Errorf("message should name the axis (%s): %v", tt.wantWord, err)
			}
		})
	}
}

func TestNotFittedError(t *testing.T) {
	err := NewNotFittedError("CReSOClassifier", "Predict")

	var nfErr *NotFittedError
	if !As(err, &nfErr) {
		t.Fatalf("expected NotFittedError, got %T", err)
	}
	if nfErr.ModelName != "CReSOClassifier" || nfErr.Method != "Predict" {
		t.Errorf("unexpected fields: %+v", nfErr)
	}
}

func TestNumericalInstabilityError_TruncatesValues(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = math.NaN()
	}
	err := NewNumericalInstabilityError("loss", values, 4)

	if !strings.Contains(err.Error(), "...") {
		t.Errorf("long value list should be truncated: %v", err)
	}
	if !strings.Contains(err.Error(), "epoch 4") {
		t.Errorf("message should include the epoch: %v", err)
	}
}

func TestCheckScalar(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{"finite", 1.5, false},
		{"zero", 0, false},
		{"nan", math.NaN(), true},
		{"positive inf", math.Inf(1), true},
		{"negative inf", math.Inf(-1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckScalar("loss", tt.value, 0)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckScalar(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestCheckValues(t *testing.T) {
	if err := CheckValues("gradient", []float64{0.1, -0.2, 3}, 1); err != nil {
		t.Errorf("finite values should pass: %v", err)
	}

	err := CheckValues("gradient", []float64{0.1, math.Inf(1), 3}, 1)
	if err == nil {
		t.Fatal("expected error for Inf gradient")
	}
	var numErr *NumericalInstabilityError
	if !As(err, &numErr) {
		t.Fatalf("expected NumericalInstabilityError, got %T", err)
	}
	if numErr.Operation != "gradient" {
		t.Errorf("Operation = %q, want %q", numErr.Operation, "gradient")
	}
}

func TestSerializationError_ShapeMismatch(t *testing.T) {
	err := NewShapeMismatchError("Load", []int{8, 10}, []int{8, 12})

	var serErr *SerializationError
	if !As(err, &serErr) {
		t.Fatalf("expected SerializationError, got %T", err)
	}
	if !strings.Contains(err.Error(), "[8 10]") || !strings.Contains(err.Error(), "[8 12]") {
		t.Errorf("message should include both shapes: %v", err)
	}
}

func TestWarn_CustomHandler(t *testing.T) {
	var captured error
	SetWarningHandler(func(w error) { captured = w })
	defer SetWarningHandler(nil)

	w := NewConvergenceWarning("CReSOClassifier", 50, "")
	Warn(w)

	if captured == nil {
		t.Fatal("warning handler was not invoked")
	}
	if !strings.Contains(captured.Error(), "50 epochs") {
		t.Errorf("unexpected warning message: %v", captured)
	}
}
