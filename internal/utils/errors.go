package utils

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeTimeout         Code = "TIMEOUT"
	CodeInternal        Code = "INTERNAL"

	// interview session taxonomy
	CodeConfiguration     Code = "CONFIGURATION"
	CodeDeviceUnavailable Code = "DEVICE_UNAVAILABLE"
	CodeService           Code = "SERVICE"
	CodeSpeechEngine      Code = "SPEECH_ENGINE"
)

// AppError is the unified error contract across layers.
type AppError struct {
	Code    Code
	Op      string // operation name, ex: "Orchestrator.Start"
	Message string // safe message
	Err     error  // wrapped error
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Op != "" && e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Op != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "error"
	}
}

func (e *AppError) Unwrap() error { return e.Err }

func E(code Code, op, msg string, err error) error {
	return &AppError{Code: code, Op: op, Message: msg, Err: err}
}

// ConfigurationError marks invalid or missing interview settings. Fatal for the
// session: the UI routes the candidate back to setup.
func ConfigurationError(op, msg string) error {
	return E(CodeConfiguration, op, msg, nil)
}

// DeviceUnavailable marks a camera/microphone that could not be obtained after retries.
func DeviceUnavailable(op string, err error) error {
	return E(CodeDeviceUnavailable, op, "capture device unavailable", err)
}

// ServiceError marks a failed call to the question/answer service.
func ServiceError(op, msg string, err error) error {
	return E(CodeService, op, msg, err)
}

// SpeechEngineError marks a synthesis or recognition failure. Callers log it and
// carry on as if the engine had completed normally.
func SpeechEngineError(op string, err error) error {
	return E(CodeSpeechEngine, op, "speech engine failure", err)
}

func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of the outermost AppError in the chain, or "" if none.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// IsRetryable reports whether the user may sensibly retry the triggering action.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeService, CodeUnavailable, CodeTimeout, CodeDeviceUnavailable:
		return true
	default:
		return false
	}
}

func HTTPStatus(err error) int {
	var ae *AppError
	if errors.As(err, &ae) {
		switch ae.Code {
		case CodeInvalidArgument, CodeConfiguration:
			return http.StatusBadRequest
		case CodeNotFound:
			return http.StatusNotFound
		case CodeConflict:
			return http.StatusConflict
		case CodeUnavailable, CodeService:
			return http.StatusServiceUnavailable
		case CodeTimeout:
			return http.StatusGatewayTimeout
		default:
			return http.StatusInternalServerError
		}
	}
	// fallback
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Backward-compatible sentinel errors
var (
	ErrNotFound = errors.New("not found")
)
