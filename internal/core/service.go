package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JonMunkholm/tablegen/internal/logging"
)

// ServiceConfig holds the pipeline defaults.
type ServiceConfig struct {
	DefaultRows       int    // rows sampled when a request gives none
	MaxRows           int    // upper bound on requested rows
	MaxTextLen        int    // multi-table truncation default
	MinTextLen        int    // smallest truncation a request may ask for
	GeneratedFormat   Format // encoding of the prompt-generated document
	PerRunArtifacts   bool   // key artifacts under the run id
	MaxConcurrentRuns int
	RunWait           time.Duration
	Classify          ClassifyOptions
}

// DefaultServiceConfig returns the defaults used when nothing is configured.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		DefaultRows:       1000,
		MaxRows:           1_000_000,
		MaxTextLen:        DefaultMaxTextLen,
		MinTextLen:        50,
		GeneratedFormat:   FormatXLSX,
		PerRunArtifacts:   true,
		MaxConcurrentRuns: DefaultMaxConcurrentRuns,
		RunWait:           DefaultRunWait,
	}
}

// Dependencies are the injected engines and stores. Only Artifacts is
// required; a pipeline whose engine is missing fails with a configuration
// error.
type Dependencies struct {
	Completer  Completer
	Single     TableSynthesizer
	Relational RelationalSynthesizer
	Artifacts  ArtifactStore
	History    HistoryStore
}

// Service runs the generation, recovery and synthesis pipelines.
// It holds no per-request state; each call creates its own Run.
type Service struct {
	cfg     ServiceConfig
	deps    Dependencies
	limiter *RunLimiter
}

// NewService creates a Service. Zero config fields take their defaults.
func NewService(cfg ServiceConfig, deps Dependencies) (*Service, error) {
	if deps.Artifacts == nil {
		return nil, errors.New("new service: artifact store is required")
	}
	if deps.History == nil {
		deps.History = NewMemoryHistory(0)
	}

	def := DefaultServiceConfig()
	if cfg.DefaultRows <= 0 {
		cfg.DefaultRows = def.DefaultRows
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = def.MaxRows
	}
	if cfg.MaxTextLen <= 0 {
		cfg.MaxTextLen = def.MaxTextLen
	}
	if cfg.MinTextLen <= 0 {
		cfg.MinTextLen = def.MinTextLen
	}
	if cfg.GeneratedFormat == "" {
		cfg.GeneratedFormat = def.GeneratedFormat
	}

	return &Service{
		cfg:     cfg,
		deps:    deps,
		limiter: NewRunLimiter(cfg.MaxConcurrentRuns, cfg.RunWait),
	}, nil
}

// Config returns the effective configuration.
func (s *Service) Config() ServiceConfig {
	return s.cfg
}

// GenerateFromPrompt asks the completer for a dataset, recovers a table
// from its output and stores it under the fixed generated name.
// A recovery failure is returned as *RecoveryError and is not retried.
func (s *Service) GenerateFromPrompt(ctx context.Context, prompt string, format Format) (*RunResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrPromptRequired
	}
	if s.deps.Completer == nil {
		return nil, &ConfigurationError{Field: "generator", Reason: "no text generator configured"}
	}
	if format == "" {
		format = s.cfg.GeneratedFormat
	}

	ctx, run, release, err := s.begin(ctx, RunGenerate)
	if err != nil {
		return nil, err
	}
	defer release()

	rec := RunRecord{Tables: 1}
	result, err := s.generate(ctx, run, prompt, format, &rec)
	s.finish(ctx, run, rec, err)
	return result, err
}

func (s *Service) generate(ctx context.Context, run *Run, prompt string, format Format, rec *RunRecord) (*RunResult, error) {
	logger := logging.FromContext(ctx)

	raw, err := s.deps.Completer.Complete(ctx, BuildPrompt(prompt))
	if err != nil {
		return nil, &EngineError{Engine: "completer", Op: "complete", Err: err}
	}

	table, err := RecoverTable(raw)
	if err != nil {
		var re *RecoveryError
		if errors.As(err, &re) {
			logger.Warn("model did not output valid CSV",
				"reason", re.Kind(),
				"detail", re.Detail,
				"raw_output", re.Raw,
				"cleaned_output", re.Cleaned,
			)
		}
		return nil, err
	}
	rec.Rows, rec.Columns = table.NumRows(), table.NumColumns()

	art, err := s.store(ctx, run, table, GeneratedArtifactName(format), format)
	if err != nil {
		return nil, err
	}
	rec.Artifacts = []string{art.Key}

	logger.Info("dataset generated", "rows", art.Rows, "columns", art.Columns, "artifact", art.Key)
	return s.result(run, nil, art), nil
}

// Recover runs text recovery on raw and records the outcome.
func (s *Service) Recover(ctx context.Context, raw string) (*Table, error) {
	run := NewRun(RunRecover)
	ctx = ContextWithRun(ctx, run)

	table, err := RecoverTable(raw)
	rec := RunRecord{Tables: 1}
	if table != nil {
		rec.Rows, rec.Columns = table.NumRows(), table.NumColumns()
	}
	s.finish(ctx, run, rec, err)
	return table, err
}

// InferSchema runs schema inference and records the outcome.
func (s *Service) InferSchema(ctx context.Context, tables []*Table) (*Schema, error) {
	run := NewRun(RunSchema)
	ctx = ContextWithRun(ctx, run)

	schema, err := InferSchema(tables)
	rec := RunRecord{Tables: len(tables)}
	for _, t := range tables {
		if t != nil {
			rec.Rows += t.NumRows()
		}
	}
	s.finish(ctx, run, rec, err)
	return schema, err
}

// SynthesizeRequest selects a synthesis pipeline.
type SynthesizeRequest struct {
	Mode       Mode
	Tables     []*Table
	Rows       int // 0 means the configured default
	MaxTextLen int // multi mode; 0 means the configured default
}

// Synthesize dispatches to the single- or multi-table pipeline. Single mode
// uses the first table only.
func (s *Service) Synthesize(ctx context.Context, req SynthesizeRequest) (*RunResult, error) {
	if len(req.Tables) == 0 {
		return nil, &ConfigurationError{Reason: "no tables given"}
	}
	switch req.Mode {
	case ModeSingle, "":
		if len(req.Tables) > 1 {
			logging.FromContext(ctx).Info("single-table mode uses the first table only",
				"table", req.Tables[0].Name, "ignored", len(req.Tables)-1)
		}
		return s.SynthesizeSingle(ctx, req.Tables[0], req.Rows)
	case ModeMulti:
		return s.SynthesizeMulti(ctx, req.Tables, req.Rows, req.MaxTextLen)
	default:
		return nil, &ConfigurationError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", req.Mode)}
	}
}

// SynthesizeSingle fingerprints free text, trains the table synthesizer and
// stores rows sampled rows as synthetic_<table>.csv.
func (s *Service) SynthesizeSingle(ctx context.Context, t *Table, rows int) (*RunResult, error) {
	if s.deps.Single == nil {
		return nil, &ConfigurationError{Field: "synthesizer", Reason: "no table synthesizer configured"}
	}
	if t == nil || t.NumColumns() == 0 {
		return nil, &ConfigurationError{Reason: "table has no columns"}
	}
	rows, err := s.rowCount(rows)
	if err != nil {
		return nil, err
	}

	ctx, run, release, err := s.begin(ctx, RunSynthesize)
	if err != nil {
		return nil, err
	}
	defer release()

	rec := RunRecord{Tables: 1, Columns: t.NumColumns()}
	result, err := s.synthesizeSingle(ctx, run, t, rows, &rec)
	s.finish(ctx, run, rec, err)
	return result, err
}

func (s *Service) synthesizeSingle(ctx context.Context, run *Run, t *Table, rows int, rec *RunRecord) (*RunResult, error) {
	logger := logging.WithFields(ctx, "table", t.Name)

	normalized := HashFreeText(t)

	start := time.Now()
	handle, err := s.deps.Single.Train(ctx, normalized)
	if err != nil {
		return nil, &EngineError{Engine: "synthesizer", Op: "train", Err: err}
	}
	logger.Info("model trained", "model", handle.ID, "duration_ms", time.Since(start).Milliseconds())

	sample, err := s.deps.Single.Sample(ctx, handle, rows)
	if err != nil {
		return nil, &EngineError{Engine: "synthesizer", Op: "sample", Err: err}
	}
	sample = sample.Renamed(t.Name)
	rec.Rows = sample.NumRows()

	art, err := s.store(ctx, run, sample, ArtifactName(t.Name, FormatCSV), FormatCSV)
	if err != nil {
		return nil, err
	}
	rec.Artifacts = []string{art.Key}

	return s.result(run, nil, art), nil
}

// SynthesizeMulti truncates free text, infers the schema, trains the
// relational synthesizer and stores one synthetic_<table>.csv per table.
// The sampling scale is rows divided by the first table's row count.
func (s *Service) SynthesizeMulti(ctx context.Context, tables []*Table, rows, maxTextLen int) (*RunResult, error) {
	if s.deps.Relational == nil {
		return nil, &ConfigurationError{Field: "synthesizer", Reason: "no relational synthesizer configured"}
	}
	if len(tables) == 0 {
		return nil, &ConfigurationError{Reason: "no tables given"}
	}
	rows, err := s.rowCount(rows)
	if err != nil {
		return nil, err
	}
	if maxTextLen == 0 {
		maxTextLen = s.cfg.MaxTextLen
	}
	if maxTextLen < s.cfg.MinTextLen {
		return nil, &ConfigurationError{Field: "max_text_len", Reason: fmt.Sprintf("must be at least %d, got %d", s.cfg.MinTextLen, maxTextLen)}
	}

	ctx, run, release, err := s.begin(ctx, RunSynthesize)
	if err != nil {
		return nil, err
	}
	defer release()

	rec := RunRecord{Tables: len(tables)}
	result, err := s.synthesizeMulti(ctx, run, tables, rows, maxTextLen, &rec)
	s.finish(ctx, run, rec, err)
	return result, err
}

func (s *Service) synthesizeMulti(ctx context.Context, run *Run, tables []*Table, rows, maxTextLen int, rec *RunRecord) (*RunResult, error) {
	logger := logging.FromContext(ctx)

	truncated := make([]*Table, len(tables))
	for i, t := range tables {
		if t == nil {
			return nil, &ConfigurationError{Reason: "nil table"}
		}
		out, err := TruncateFreeText(t, maxTextLen)
		if err != nil {
			return nil, err
		}
		truncated[i] = out
	}

	schema, err := InferSchema(truncated)
	if err != nil {
		return nil, err
	}
	for _, rel := range schema.Relationships {
		logger.Debug("relationship inferred", "link", rel.String())
	}

	first := truncated[0]
	if first.NumRows() == 0 {
		return nil, &ConfigurationError{Table: first.Name, Reason: "first table has no rows to scale from"}
	}
	scale := float64(rows) / float64(first.NumRows())

	handle, err := s.deps.Relational.Train(ctx, schema, truncated)
	if err != nil {
		return nil, &EngineError{Engine: "relational synthesizer", Op: "train", Err: err}
	}
	logger.Info("relational model trained", "model", handle.ID, "tables", len(truncated), "scale", scale)

	samples, err := s.deps.Relational.Sample(ctx, handle, scale)
	if err != nil {
		return nil, &EngineError{Engine: "relational synthesizer", Op: "sample", Err: err}
	}

	arts := make([]Artifact, 0, len(samples))
	for _, sample := range samples {
		art, err := s.store(ctx, run, sample, ArtifactName(sample.Name, FormatCSV), FormatCSV)
		if err != nil {
			return nil, err
		}
		arts = append(arts, *art)
		rec.Rows += art.Rows
		rec.Artifacts = append(rec.Artifacts, art.Key)
	}

	res := s.result(run, schema)
	res.Artifacts = arts
	return res, nil
}

// OpenArtifact opens a stored artifact by run id and file name.
func (s *Service) OpenArtifact(ctx context.Context, runID, name string) (io.ReadCloser, error) {
	if !safeKeyPart(name) || (runID != "" && !safeKeyPart(runID)) {
		return nil, fmt.Errorf("%w: %q", ErrArtifactNotFound, name)
	}
	key := name
	if s.cfg.PerRunArtifacts && runID != "" {
		key = runID + "/" + name
	}
	return s.deps.Artifacts.Open(ctx, key)
}

// RecentRuns returns the newest run records.
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	return s.deps.History.Recent(ctx, limit)
}

// RunLimiterStatus reports run slot usage.
func (s *Service) RunLimiterStatus() RunLimiterStatus {
	return s.limiter.Status()
}

// WaitForRuns blocks until in-flight runs finish or ctx ends.
func (s *Service) WaitForRuns(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func (s *Service) begin(ctx context.Context, kind RunKind) (context.Context, *Run, func(), error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return ctx, nil, nil, err
	}
	run := NewRun(kind)
	if !s.cfg.PerRunArtifacts {
		run.ArtifactPrefix = ""
	}
	return ContextWithRun(ctx, run), run, s.limiter.Release, nil
}

// finish completes rec from the run and err, logs it and stores it.
// History failures are logged, never returned.
func (s *Service) finish(ctx context.Context, run *Run, rec RunRecord, err error) {
	rec.ID = run.ID
	rec.Kind = run.Kind
	rec.StartedAt = run.StartedAt
	rec.Duration = time.Since(run.StartedAt)
	rec.ClientIP = GetIPAddressFromContext(ctx)
	rec.Status = RunSucceeded

	logger := logging.WithFields(ctx, "kind", run.Kind)
	if err != nil {
		rec.Status = RunFailed
		rec.FailureKind = failureKind(err)
		rec.Detail = truncateRunes(err.Error(), 500)
		logger.Warn("run failed", "failure", rec.FailureKind, "error", err, "duration_ms", rec.Duration.Milliseconds())
	} else {
		logger.Info("run completed", "rows", rec.Rows, "duration_ms", rec.Duration.Milliseconds())
	}

	if herr := s.deps.History.Record(context.WithoutCancel(ctx), rec); herr != nil {
		logger.Warn("failed to record run history", "error", herr)
	}
}

// failureKind names err by the error taxonomy, falling back to its code.
func failureKind(err error) string {
	var re *RecoveryError
	if errors.As(err, &re) {
		return re.Kind()
	}
	if errors.Is(err, ErrConfiguration) {
		return "ConfigurationError"
	}
	return MapError(err).Code
}

func (s *Service) rowCount(rows int) (int, error) {
	if rows == 0 {
		return s.cfg.DefaultRows, nil
	}
	if rows < 0 || rows > s.cfg.MaxRows {
		return 0, &ConfigurationError{Field: "rows", Reason: fmt.Sprintf("must be between 1 and %d, got %d", s.cfg.MaxRows, rows)}
	}
	return rows, nil
}

// store assembles t and writes it to the artifact store.
func (s *Service) store(ctx context.Context, run *Run, t *Table, name string, f Format) (*Artifact, error) {
	var buf bytes.Buffer
	if err := Assemble(&buf, t, f); err != nil {
		return nil, fmt.Errorf("assemble %s: %w", name, err)
	}
	size := int64(buf.Len())

	key := run.ArtifactKey(name)
	loc, err := s.deps.Artifacts.Put(ctx, key, &buf, f.ContentType())
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", key, err)
	}

	return &Artifact{
		Name:        name,
		Table:       t.Name,
		Format:      f,
		ContentType: f.ContentType(),
		Location:    loc,
		Key:         key,
		Rows:        t.NumRows(),
		Columns:     t.NumColumns(),
		Size:        size,
	}, nil
}

func (s *Service) result(run *Run, schema *Schema, arts ...*Artifact) *RunResult {
	res := &RunResult{
		RunID:    run.ID,
		Kind:     run.Kind,
		Schema:   schema,
		Duration: time.Since(run.StartedAt),
	}
	for _, a := range arts {
		res.Artifacts = append(res.Artifacts, *a)
	}
	return res
}

// safeKeyPart rejects names that could escape an artifact prefix.
func safeKeyPart(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}
