// Package runner executes generated scripts through the pyinfra CLI.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/Technology-Company/djaploy/pkg/telemetry"
)

// DefaultBinary is the pyinfra executable looked up on PATH.
const DefaultBinary = "pyinfra"

// Runner writes the generated inventory and operations script to temporary
// files and hands them to the pyinfra CLI, which owns the SSH transport and
// operation execution.
type Runner struct {
	// Binary is the pyinfra executable. Defaults to DefaultBinary.
	Binary string

	// Stdout and Stderr receive pyinfra's output. Default to the
	// process streams.
	Stdout io.Writer
	Stderr io.Writer

	// KeepFiles leaves the temporary files in place for inspection.
	KeepFiles bool

	// Python is the interpreter for the prepare hook. Defaults to
	// DefaultPython.
	Python string

	// Logger, when set, records the generated file paths and the command.
	Logger *telemetry.Logger
}

// New creates a runner with default settings.
func New() *Runner {
	return &Runner{Binary: DefaultBinary}
}

// RunError reports a pyinfra invocation that exited non-zero.
type RunError struct {
	ExitCode int
}

// Error implements the error interface.
func (e *RunError) Error() string {
	return fmt.Sprintf("pyinfra exited with code %d", e.ExitCode)
}

// Run writes inventory and script to temporary files and invokes
// `pyinfra <inventory> <script> -y`. The temporary files are removed before
// returning, whether the invocation succeeds or fails.
func (r *Runner) Run(ctx context.Context, inventory, script string, extraArgs ...string) error {
	invPath, err := writeTemp("djaploy-inventory-*.py", inventory)
	if err != nil {
		return fmt.Errorf("failed to write inventory file: %w", err)
	}
	defer r.cleanup(invPath)

	scriptPath, err := writeTemp("djaploy-deploy-*.py", script)
	if err != nil {
		return fmt.Errorf("failed to write deploy script: %w", err)
	}
	defer r.cleanup(scriptPath)

	binary := r.Binary
	if binary == "" {
		binary = DefaultBinary
	}

	args := append([]string{invPath, scriptPath, "-y"}, extraArgs...)
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = r.stdout()
	cmd.Stderr = r.stderr()

	if r.Logger != nil {
		r.Logger.Debugf("running %s %v", binary, args)
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("pyinfra run failed: %w", &RunError{ExitCode: exitErr.ExitCode()})
		}
		return fmt.Errorf("failed to run %s: %w", binary, err)
	}
	return nil
}

// cleanup removes a temporary file unless KeepFiles is set.
func (r *Runner) cleanup(path string) {
	if r.KeepFiles {
		if r.Logger != nil {
			r.Logger.Infof("keeping generated file %s", path)
		}
		return
	}
	if err := os.Remove(path); err != nil && r.Logger != nil {
		r.Logger.WithError(err).Warnf("failed to remove %s", path)
	}
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr != nil {
		return r.Stderr
	}
	return os.Stderr
}

// writeTemp writes content to a new temporary file and returns its path.
func writeTemp(pattern, content string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
