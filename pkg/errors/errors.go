// Package errors はライブラリ全体のエラーハンドリングと警告システムを提供します。
// scikit-learnの警告・例外システムにインスパイアされており、構造化されたエラー情報を提供します。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("CReSO-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
// これにより、ConvergenceWarningなどのカスタム警告の処理方法を制御できます。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが利用可能な場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// ConvergenceWarning は最適化が収束基準を満たさないまま終了した場合に発生する警告です。
type ConvergenceWarning struct {
	Model   string
	Epochs  int
	Message string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s did not converge after %d epochs: %s", w.Model, w.Epochs, w.Message)
	}
	return fmt.Sprintf("%s did not converge after %d epochs. Consider increasing epochs or adjusting the learning rate.", w.Model, w.Epochs)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("model", w.Model).
		Int("epochs", w.Epochs).
		Str("message", w.Message).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning は新しいConvergenceWarningを作成します。
func NewConvergenceWarning(model string, epochs int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Model: model, Epochs: epochs, Message: message}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// ConfigurationError は構築時のハイパーパラメータ検証に失敗した場合のエラーです。
// 不正な値または相互に矛盾する値を持つConfigはモデル構築前に必ず拒否されます。
type ConfigurationError struct {
	Field  string
	Reason string
	Value  interface{}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("creso: invalid configuration for '%s': %s (got: %v)", e.Field, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ConfigurationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("field", e.Field).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ConfigurationError")
}

// NewConfigurationError は新しいConfigurationErrorを作成し、スタックトレースを付与します。
func NewConfigurationError(field, reason string, value interface{}) error {
	err := &ConfigurationError{Field: field, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// DataValidationError は入力バッチがConfigの宣言する形状・内容と一致しない場合のエラーです。
// 学習・推論が始まる前にアダプタが検出します。Axisは問題のある次元を示します
// (0 = rows/samples, 1 = columns/features)。
type DataValidationError struct {
	Op       string
	Axis     int
	Expected int
	Got      int
	Reason   string
}

func (e *DataValidationError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	if e.Reason != "" {
		return fmt.Sprintf("creso: %s: invalid input on axis %d (%s): %s", e.Op, e.Axis, axisName, e.Reason)
	}
	return fmt.Sprintf("creso: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DataValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("axis", e.Axis).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Str("reason", e.Reason).
		Str("type", "DataValidationError")
}

// NewDataValidationError は新しいDataValidationErrorを作成し、スタックトレースを付与します。
func NewDataValidationError(op string, axis, expected, got int) error {
	err := &DataValidationError{Op: op, Axis: axis, Expected: expected, Got: got}
	return errors.WithStack(err)
}

// NewDataValidationErrorReason は形状以外の検証失敗（非有限値など）のための
// DataValidationErrorを作成します。
func NewDataValidationErrorReason(op string, axis int, reason string) error {
	err := &DataValidationError{Op: op, Axis: axis, Reason: reason}
	return errors.WithStack(err)
}

// NotFittedError はモデルが未学習の状態で `Predict` などを呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("creso: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// NumericalInstabilityError は数値計算が不安定になった場合のエラーです。
// NaN、Inf、オーバーフロー、アンダーフローなどを検出します。
// このエラーが発生した `Fit` 呼び出しは中断され、パラメータは最後に安定していた値のまま残ります。
type NumericalInstabilityError struct {
	Operation string    // 発生した操作（例: "gradient_update", "loss"）
	Values    []float64 // 問題のある値
	Epoch     int       // 発生したエポック番号
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("creso: numerical instability detected in %s at epoch %d. Values: [%s]",
		e.Operation, e.Epoch, valStr)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NumericalInstabilityError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Operation).
		Int("epoch", e.Epoch).
		Floats64("values", e.Values).
		Str("type", "NumericalInstabilityError")
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64, epoch int) error {
	err := &NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Epoch:     epoch,
	}
	return errors.WithStack(err)
}

// ConcurrentAccessError は同一のEstimatorに対して `Fit` が再入的に呼び出された場合のエラーです。
// Estimatorはスレッドセーフではなく、並行する `Fit` は即座に失敗します。
type ConcurrentAccessError struct {
	ModelName string
	Method    string
}

func (e *ConcurrentAccessError) Error() string {
	return fmt.Sprintf("creso: %s: %s() called while another Fit() is in progress on the same estimator", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ConcurrentAccessError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "ConcurrentAccessError")
}

// NewConcurrentAccessError は新しいConcurrentAccessErrorを作成し、スタックトレースを付与します。
func NewConcurrentAccessError(modelName, method string) error {
	err := &ConcurrentAccessError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// SerializationError はモデルの保存・読み込みに失敗した場合のエラーです。
// 読み込み時にパラメータ形状が埋め込みConfigと一致しない場合もこのエラーになります
// （暗黙のreshapeは行いません）。
type SerializationError struct {
	Op       string
	Reason   string
	Expected []int
	Got      []int
}

func (e *SerializationError) Error() string {
	if len(e.Expected) > 0 || len(e.Got) > 0 {
		return fmt.Sprintf("creso: %s: %s. Expected shape %v, got %v", e.Op, e.Reason, e.Expected, e.Got)
	}
	return fmt.Sprintf("creso: %s: %s", e.Op, e.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *SerializationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("reason", e.Reason).
		Ints("expected", e.Expected).
		Ints("got", e.Got).
		Str("type", "SerializationError")
}

// NewSerializationError は新しいSerializationErrorを作成し、スタックトレースを付与します。
func NewSerializationError(op, reason string) error {
	err := &SerializationError{Op: op, Reason: reason}
	return errors.WithStack(err)
}

// NewShapeMismatchError は読み込んだパラメータ形状がConfigと一致しない場合の
// SerializationErrorを作成します。
func NewShapeMismatchError(op string, expected, got []int) error {
	err := &SerializationError{Op: op, Reason: "parameter shape does not match embedded configuration", Expected: expected, Got: got}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")
)
