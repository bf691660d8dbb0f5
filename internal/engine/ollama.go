// Package engine provides process-backed implementations of the text
// completion and synthesis capabilities the core pipelines depend on.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultModel is the local model used when none is configured.
const DefaultModel = "llama2"

// Ollama completes prompts by running a local model through the ollama CLI:
//
//	ollama run <model> <prompt>
//
// Standard output is returned verbatim. The prompt is passed as a single
// argument, never through a shell.
type Ollama struct {
	Command []string      // program and leading args; default {"ollama", "run"}
	Model   string        // default DefaultModel
	Env     []string      // extra KEY=VALUE pairs
	Timeout time.Duration // 0 means the caller's context decides
}

// NewOllama returns a completer for model.
func NewOllama(model string) *Ollama {
	return &Ollama{Model: model}
}

// Complete runs the model once and returns its standard output.
func (o *Ollama) Complete(ctx context.Context, prompt string) (string, error) {
	command := o.Command
	if len(command) == 0 {
		command = []string{"ollama", "run"}
	}
	model := o.Model
	if model == "" {
		model = DefaultModel
	}

	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	args := append(append([]string(nil), command[1:]...), model, prompt)
	cmd := exec.CommandContext(ctx, command[0], args...)
	cmd.Env = append(os.Environ(), o.Env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("ollama %s: %w", model, ctxErr)
		}
		return "", fmt.Errorf("ollama %s: %w%s", model, err, stderrSuffix(stderr.String()))
	}

	out := stdout.String()
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("ollama %s: %w", model, ErrNoOutput)
	}
	return out, nil
}

// ErrNoOutput is returned when an engine process exits cleanly without
// writing anything.
var ErrNoOutput = errors.New("engine produced no output")

func stderrSuffix(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) > 500 {
		s = s[len(s)-500:]
	}
	return ": " + s
}
