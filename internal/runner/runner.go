package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/EfrenHaskell/Cosi166Project/internal/domain"
)

// interpreters maps a submission language to the command and scratch-file
// extension used to execute it.
var interpreters = map[string]struct {
	command string
	ext     string
}{
	"python": {"python3", ".py"},
	"sh":     {"sh", ".sh"},
}

// Runner executes student code submissions in a scratch directory with a
// deadline. Output and errors are returned to the student verbatim; the
// server never interprets them.
type Runner struct {
	dir     string
	timeout time.Duration
}

func New(dir string, timeout time.Duration) *Runner {
	if dir == "" {
		dir = os.TempDir()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Runner{dir: dir, timeout: timeout}
}

// Run writes the submission to a scratch file and executes it, capturing
// stdout and stderr. Editor payloads arrive with CRLF line endings; those are
// normalized before writing.
func (r *Runner) Run(ctx context.Context, code, language string) (domain.RunResult, error) {
	interp, ok := interpreters[language]
	if !ok {
		return domain.RunResult{}, fmt.Errorf("unsupported language %q", language)
	}

	file, err := os.CreateTemp(r.dir, "submission-*"+interp.ext)
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("create scratch file: %w", err)
	}
	path := file.Name()
	defer os.Remove(path)

	if _, err := file.WriteString(cleanNewlines(code)); err != nil {
		file.Close()
		return domain.RunResult{}, fmt.Errorf("write scratch file: %w", err)
	}
	if err := file.Close(); err != nil {
		return domain.RunResult{}, fmt.Errorf("close scratch file: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, interp.command, filepath.Base(path))
	cmd.Dir = filepath.Dir(path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	result := domain.RunResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if runCtx.Err() == context.DeadlineExceeded {
		return result, fmt.Errorf("execution timed out after %s", r.timeout)
	}
	if _, ok := err.(*exec.ExitError); ok {
		// Non-zero exit is a student error, reported through stderr.
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("run submission: %w", err)
	}
	return result, nil
}

// cleanNewlines strips the carriage returns the browser editor inserts.
func cleanNewlines(code string) string {
	return strings.ReplaceAll(code, "\r", "")
}
