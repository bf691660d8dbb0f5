package core

import (
	"context"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/JonMunkholm/tablegen/internal/logging"
)

type contextKey string

const (
	ctxKeyRun       contextKey = "run"
	ctxKeyIPAddress contextKey = "client_ip"
)

// Run is the request-scoped state of one pipeline invocation. It replaces
// any process-wide state: artifacts are keyed under ArtifactPrefix and logs
// carry ID.
type Run struct {
	ID             string
	Kind           RunKind
	StartedAt      time.Time
	ArtifactPrefix string
}

// NewRun creates a run with a k-sortable id.
func NewRun(kind RunKind) *Run {
	id := "run_" + ksuid.New().String()
	return &Run{
		ID:             id,
		Kind:           kind,
		StartedAt:      time.Now().UTC(),
		ArtifactPrefix: id,
	}
}

// ArtifactKey returns the store key for an artifact of this run.
func (r *Run) ArtifactKey(name string) string {
	if r.ArtifactPrefix == "" {
		return name
	}
	return r.ArtifactPrefix + "/" + name
}

// ContextWithRun attaches the run to ctx. Loggers taken from the returned
// context carry the run id.
func ContextWithRun(ctx context.Context, r *Run) context.Context {
	ctx = logging.ContextWithRunID(ctx, r.ID)
	return context.WithValue(ctx, ctxKeyRun, r)
}

// RunFromContext returns the run attached to ctx, or nil.
func RunFromContext(ctx context.Context) *Run {
	if r, ok := ctx.Value(ctxKeyRun).(*Run); ok {
		return r
	}
	return nil
}

// ContextWithIPAddress adds the client IP for run history.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// GetIPAddressFromContext extracts the client IP from context.
func GetIPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}
