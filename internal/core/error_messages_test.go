package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "nil error returns empty",
			err:      nil,
			wantCode: "",
		},
		{
			name:     "no tabular content",
			err:      &RecoveryError{Reason: ErrNoTabularContent, Detail: "no line contains a comma"},
			wantCode: "REC001",
		},
		{
			name:     "ragged rows",
			err:      &RecoveryError{Reason: ErrInconsistentColumnCount},
			wantCode: "REC002",
		},
		{
			name:     "parse failure wins over words in the detail",
			err:      &RecoveryError{Reason: ErrParseFailure, Detail: `bare " in non-quoted field, timeout`},
			wantCode: "REC003",
		},
		{
			name:     "zero-column table",
			err:      &ConfigurationError{Table: "orders", Reason: "table has no columns"},
			wantCode: "CFG001",
		},
		{
			name:     "generic configuration error",
			err:      &ConfigurationError{Field: "rows", Reason: "must be positive"},
			wantCode: "CFG003",
		},
		{
			name:     "prompt required",
			err:      ErrPromptRequired,
			wantCode: "GEN001",
		},
		{
			name:     "completer failure",
			err:      &EngineError{Engine: "completer", Op: "complete", Err: errors.New("exit status 1")},
			wantCode: "GEN002",
		},
		{
			name:     "relational training failure",
			err:      &EngineError{Engine: "relational synthesizer", Op: "train", Err: errors.New("boom")},
			wantCode: "SYN001",
		},
		{
			name:     "busy",
			err:      fmt.Errorf("generate: %w", ErrTooManyRuns),
			wantCode: "RUN001",
		},
		{
			name:     "deadline",
			err:      context.DeadlineExceeded,
			wantCode: "RUN003",
		},
		{
			name:     "case insensitive matching",
			err:      errors.New("INVALID CSV: wrong number of fields"),
			wantCode: "FILE002",
		},
		{
			name:     "unknown error returns default",
			err:      errors.New("some random internal error"),
			wantCode: "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrPromptRequired)

	expected := "Prompt is required (Code: GEN001). Describe the dataset you want to generate"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error is not user facing", err: nil, want: false},
		{name: "known error is user facing", err: ErrEmptyInput, want: true},
		{name: "unknown error is not user facing", err: errors.New("random internal error xyz"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}
