package core

import (
	"errors"
	"fmt"
)

// Recovery failure reasons. A *RecoveryError always wraps exactly one of these.
var (
	ErrNoTabularContent        = errors.New("no tabular content found")
	ErrInconsistentColumnCount = errors.New("inconsistent column count")
	ErrParseFailure            = errors.New("underlying parse failure")
)

var (
	// ErrPromptRequired is returned when a generation request has no prompt.
	ErrPromptRequired = errors.New("prompt is required")

	// ErrEmptyInput is returned when an ingested file has no header row.
	ErrEmptyInput = errors.New("empty file: no header row")

	// ErrArtifactNotFound is returned by ArtifactStore.Open for an unknown key.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("configuration error")
)

// ConfigurationError reports input that cannot be processed at all, such as
// a table without columns. It is fatal for the request.
type ConfigurationError struct {
	Table  string
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Table != "":
		return fmt.Sprintf("configuration error: table %q: %s", e.Table, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
	default:
		return "configuration error: " + e.Reason
	}
}

// Is makes errors.Is(err, ErrConfiguration) true.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// RecoveryError is the failure side of a recovery attempt. It keeps the
// offending text so an operator can decide whether to retry.
type RecoveryError struct {
	Reason  error  // one of ErrNoTabularContent, ErrInconsistentColumnCount, ErrParseFailure
	Raw     string // text exactly as produced upstream
	Cleaned string // search domain after fence stripping and line filtering
	Detail  string
	Line    int // 1-based record number within the tabular region, 0 if unknown

	cause error
}

func (e *RecoveryError) Error() string {
	if e.Detail == "" {
		return "recovery failed: " + e.Reason.Error()
	}
	return fmt.Sprintf("recovery failed: %s: %s", e.Reason, e.Detail)
}

func (e *RecoveryError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Reason, e.cause}
	}
	return []error{e.Reason}
}

// Kind returns the taxonomy name of the failure reason.
func (e *RecoveryError) Kind() string {
	switch e.Reason {
	case ErrNoTabularContent:
		return "NoTabularContentFound"
	case ErrInconsistentColumnCount:
		return "InconsistentColumnCount"
	default:
		return "UnderlyingParseFailure"
	}
}

// EngineError wraps a failure reported by an injected engine.
type EngineError struct {
	Engine string // "completer", "synthesizer", "relational synthesizer"
	Op     string // "complete", "train", "sample"
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Engine, e.Op, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}
