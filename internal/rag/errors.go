package rag

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every classified error returned by the pipeline matches exactly
// one of these with errors.Is.
var (
	// ErrConfiguration reports a missing or invalid setting, detected before
	// any network call. The user fixes it by changing configuration.
	ErrConfiguration = errors.New("configuration error")

	// ErrExtraction reports a document that could not be opened or parsed.
	ErrExtraction = errors.New("extraction error")

	// ErrEmbedding reports a failed call to the embedding service.
	ErrEmbedding = errors.New("embedding error")

	// ErrSynthesis reports a failed or empty call to the completion service.
	ErrSynthesis = errors.New("synthesis error")
)

// Error is a classified pipeline error. Kind is one of the Err* sentinels
// above; Err is the underlying cause, if any.
type Error struct {
	// Kind is the error class.
	Kind error
	// Op names the operation that failed (e.g. "embed query").
	Op string
	// Setting names the offending configuration key for ErrConfiguration.
	Setting string
	// Msg is an optional human-readable explanation.
	Msg string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface. A configuration message always names
// its setting; one that does not is prefixed with it.
func (e *Error) Error() string {
	switch {
	case e.Kind == ErrConfiguration && e.Msg != "":
		if e.Setting != "" && !strings.Contains(e.Msg, e.Setting) {
			return e.Setting + ": " + e.Msg
		}
		return e.Msg
	case e.Err != nil && e.Op != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ConfigError returns an ErrConfiguration error for the named setting.
func ConfigError(setting, msg string) error {
	return &Error{Kind: ErrConfiguration, Setting: setting, Msg: msg}
}

// MissingSettingError returns the ErrConfiguration error used when a required
// environment variable is unset or blank.
func MissingSettingError(setting string) error {
	return ConfigError(setting, fmt.Sprintf(
		"%s environment variable is not set. Please set it in your environment or in a .env file.", setting))
}

// ExtractionError classifies err as an extraction failure.
func ExtractionError(op string, err error) error {
	return classify(ErrExtraction, op, err)
}

// EmbeddingError classifies err as an embedding failure.
func EmbeddingError(op string, err error) error {
	return classify(ErrEmbedding, op, err)
}

// SynthesisError classifies err as a synthesis failure.
func SynthesisError(op string, err error) error {
	return classify(ErrSynthesis, op, err)
}

// classify wraps err with kind unless it already carries a classification.
func classify(kind error, op string, err error) error {
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the classification of err, or nil when err is not a
// classified pipeline error.
func KindOf(err error) error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return nil
}

// SettingOf returns the configuration key named by an ErrConfiguration error,
// or "" for any other error.
func SettingOf(err error) string {
	var ce *Error
	if errors.As(err, &ce) && ce.Kind == ErrConfiguration {
		return ce.Setting
	}
	return ""
}
