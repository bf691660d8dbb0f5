package engine

// synth.go drives an external synthesizer process.
//
// The process is invoked as `<command...> <manifest.yaml>`. The manifest
// names an action:
//
//   - train: read the listed table files, fit a model and write it to
//     model_file.
//   - sample: load model_file and write synthetic_<table>.csv for every
//     listed table into output_dir.
//
// Everything the engine needs to know about a trained model lives in the
// model directory, so a ModelHandle can be sampled from any process that
// shares the filesystem.

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"

	"github.com/JonMunkholm/tablegen/internal/core"
)

const (
	// DefaultEpochs is the training epoch count passed to the engine.
	DefaultEpochs = 200

	singleModelFile     = "ctgan_single.pkl"
	relationalModelFile = "hma_synthesizer.pkl"
	trainManifestFile   = "train.yaml"

	engineSingle     = "ctgan"
	engineRelational = "hma"
)

// Manifest is the document exchanged with the synthesizer process.
type Manifest struct {
	Action        string              `yaml:"action"`
	Engine        string              `yaml:"engine"`
	Epochs        int                 `yaml:"epochs,omitempty"`
	ModelFile     string              `yaml:"model_file"`
	Tables        []ManifestTable     `yaml:"tables"`
	Relationships []core.Relationship `yaml:"relationships,omitempty"`
	Rows          int                 `yaml:"rows,omitempty"`
	Scale         float64             `yaml:"scale,omitempty"`
	OutputDir     string              `yaml:"output_dir,omitempty"`
}

// ManifestTable describes one table file.
type ManifestTable struct {
	Name       string        `yaml:"name"`
	File       string        `yaml:"file"`
	PrimaryKey string        `yaml:"primary_key,omitempty"`
	Columns    []core.Column `yaml:"columns"`
}

// Process runs a synthesizer command. It is shared by the single-table and
// relational adapters.
type Process struct {
	Command []string // program and leading args, e.g. {"python3", "synth.py"}
	WorkDir string   // root for model directories; default <tmp>/tablegen-models
	Epochs  int      // default DefaultEpochs
	Env     []string
}

func (p *Process) workDir() string {
	if p.WorkDir != "" {
		return p.WorkDir
	}
	return filepath.Join(os.TempDir(), "tablegen-models")
}

func (p *Process) epochs() int {
	if p.Epochs > 0 {
		return p.Epochs
	}
	return DefaultEpochs
}

// run writes m next to the model and invokes the command on it.
func (p *Process) run(ctx context.Context, dir, name string, m *Manifest) error {
	if len(p.Command) == 0 {
		return fmt.Errorf("synthesizer: no command configured")
	}

	b, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("synthesizer: encode manifest: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("synthesizer: write manifest: %w", err)
	}

	args := append(append([]string(nil), p.Command[1:]...), path)
	cmd := exec.CommandContext(ctx, p.Command[0], args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), p.Env...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("synthesizer %s: %w", m.Action, ctxErr)
		}
		return fmt.Errorf("synthesizer %s: %w%s", m.Action, err, stderrSuffix(stderr.String()))
	}
	return nil
}

// train stores tables in a fresh model directory and fits a model on them.
func (p *Process) train(ctx context.Context, engine, modelFile string, tables []*core.Table, schema *core.Schema) (core.ModelHandle, error) {
	id := uuid.NewString()
	dir := filepath.Join(p.workDir(), id)
	if err := os.MkdirAll(filepath.Join(dir, "data"), 0o750); err != nil {
		return core.ModelHandle{}, fmt.Errorf("synthesizer: model dir: %w", err)
	}

	m := &Manifest{
		Action:    "train",
		Engine:    engine,
		Epochs:    p.epochs(),
		ModelFile: filepath.Join(dir, modelFile),
	}
	for _, t := range tables {
		file := filepath.Join(dir, "data", t.Name+".csv")
		if err := writeTableFile(file, t); err != nil {
			return core.ModelHandle{}, err
		}
		mt := ManifestTable{Name: t.Name, File: file, Columns: t.Columns}
		if schema != nil {
			if ts, ok := schema.Table(t.Name); ok {
				mt.PrimaryKey = ts.PrimaryKey
				mt.Columns = ts.Columns
			}
		}
		m.Tables = append(m.Tables, mt)
	}
	if schema != nil {
		m.Relationships = schema.Relationships
	}

	if err := p.run(ctx, dir, trainManifestFile, m); err != nil {
		return core.ModelHandle{}, err
	}
	if _, err := os.Stat(m.ModelFile); err != nil {
		return core.ModelHandle{}, fmt.Errorf("synthesizer train: model file missing: %w", err)
	}

	return core.ModelHandle{ID: id, Engine: engine, Location: dir}, nil
}

// sample runs the sample action for h and reads every table back.
func (p *Process) sample(ctx context.Context, h core.ModelHandle, rows int, scale float64) ([]*core.Table, error) {
	trained, err := readManifest(filepath.Join(h.Location, trainManifestFile))
	if err != nil {
		return nil, err
	}

	out := filepath.Join(h.Location, "samples", uuid.NewString())
	if err := os.MkdirAll(out, 0o750); err != nil {
		return nil, fmt.Errorf("synthesizer: sample dir: %w", err)
	}

	m := *trained
	m.Action = "sample"
	m.Epochs = 0
	m.Rows = rows
	m.Scale = scale
	m.OutputDir = out

	if err := p.run(ctx, h.Location, "sample.yaml", &m); err != nil {
		return nil, err
	}

	tables := make([]*core.Table, 0, len(m.Tables))
	for _, mt := range m.Tables {
		t, err := readTableFile(filepath.Join(out, core.ArtifactName(mt.Name, core.FormatCSV)), mt.Name)
		if err != nil {
			return nil, fmt.Errorf("synthesizer sample: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// Single adapts Process to core.TableSynthesizer.
type Single struct {
	*Process
}

// NewSingle returns a single-table synthesizer running command.
func NewSingle(p *Process) *Single {
	return &Single{Process: p}
}

// Train fits a single-table model.
func (s *Single) Train(ctx context.Context, t *core.Table) (core.ModelHandle, error) {
	return s.train(ctx, engineSingle, singleModelFile, []*core.Table{t}, nil)
}

// Sample draws rows synthetic rows.
func (s *Single) Sample(ctx context.Context, h core.ModelHandle, rows int) (*core.Table, error) {
	if rows < 1 {
		return nil, fmt.Errorf("synthesizer sample: rows must be positive, got %d", rows)
	}
	tables, err := s.sample(ctx, h, rows, 0)
	if err != nil {
		return nil, err
	}
	if len(tables) != 1 {
		return nil, fmt.Errorf("synthesizer sample: got %d tables, want 1", len(tables))
	}
	return tables[0], nil
}

// Relational adapts Process to core.RelationalSynthesizer.
type Relational struct {
	*Process
}

// NewRelational returns a multi-table synthesizer running command.
func NewRelational(p *Process) *Relational {
	return &Relational{Process: p}
}

// Train fits a relational model over tables described by schema.
func (r *Relational) Train(ctx context.Context, schema *core.Schema, tables []*core.Table) (core.ModelHandle, error) {
	return r.train(ctx, engineRelational, relationalModelFile, tables, schema)
}

// Sample draws every table scaled relative to its training size.
func (r *Relational) Sample(ctx context.Context, h core.ModelHandle, scale float64) ([]*core.Table, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("synthesizer sample: scale must be positive, got %g", scale)
	}
	return r.sample(ctx, h, 0, scale)
}

func readManifest(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("synthesizer: read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("synthesizer: decode manifest: %w", err)
	}
	return &m, nil
}

func writeTableFile(path string, t *core.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("synthesizer: create %s: %w", filepath.Base(path), err)
	}
	if err := core.EncodeCSV(f, t); err != nil {
		f.Close()
		return fmt.Errorf("synthesizer: write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func readTableFile(path, name string) (*core.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return core.ReadTable(name, f)
}
