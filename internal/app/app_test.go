package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/JonMunkholm/tablegen/internal/config"
	"github.com/JonMunkholm/tablegen/internal/core"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Generator: config.GeneratorConfig{Command: "ollama run", Model: "llama2", Format: "csv"},
		Synth: config.SynthConfig{
			DefaultRows:   10,
			MaxRows:       100,
			MaxTextLen:    80,
			MinTextLen:    20,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
		},
		Artifact: config.ArtifactConfig{Backend: "disk", Dir: filepath.Join(dir, "artifacts")},
		History:  config.HistoryConfig{Backend: "memory", MemoryCapacity: 5, SQLitePath: filepath.Join(dir, "history.db")},
	}
}

func TestServiceConfig(t *testing.T) {
	sc := ServiceConfig(testConfig(t))

	if sc.DefaultRows != 10 || sc.MaxRows != 100 || sc.MaxTextLen != 80 || sc.MinTextLen != 20 {
		t.Errorf("row and text limits = %+v", sc)
	}
	if sc.MaxConcurrentRuns != 2 || sc.RunWait != time.Second {
		t.Errorf("run limits = %d, %v", sc.MaxConcurrentRuns, sc.RunWait)
	}
	if sc.GeneratedFormat != core.FormatCSV {
		t.Errorf("GeneratedFormat = %q, want csv", sc.GeneratedFormat)
	}
	if !sc.PerRunArtifacts {
		t.Error("PerRunArtifacts should default to true")
	}
}

func TestNew(t *testing.T) {
	for _, backend := range []string{"memory", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.History.Backend = backend

			a, err := New(context.Background(), cfg)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			t.Cleanup(func() { _ = a.Close() })

			if _, err := a.Service.Recover(context.Background(), "a,b\n1,2"); err != nil {
				t.Fatalf("Recover() error = %v", err)
			}
			runs, err := a.Service.RecentRuns(context.Background(), 10)
			if err != nil {
				t.Fatalf("RecentRuns() error = %v", err)
			}
			if len(runs) != 1 || runs[0].Kind != core.RunRecover {
				t.Errorf("runs = %+v", runs)
			}
		})
	}
}

func TestNew_SynthesisDisabledWithoutCommand(t *testing.T) {
	a, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = a.Close() })

	table, err := core.NewTable("t", []string{"a"}, [][]string{{"1"}})
	if err != nil {
		t.Fatal(err)
	}
	_, err = a.Service.SynthesizeSingle(context.Background(), table, 5)
	var ce *core.ConfigurationError
	if !errors.As(err, &ce) || ce.Field != "synthesizer" {
		t.Errorf("SynthesizeSingle() error = %v, want synthesizer configuration error", err)
	}
}

func TestNewArtifactStore_UnknownBackend(t *testing.T) {
	if _, err := NewArtifactStore(config.ArtifactConfig{Backend: "ftp"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
