package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// PrepareScript is the optional project hook executed before the deploy
// script is generated.
const PrepareScript = "prepare.py"

// DefaultPython is the interpreter used to run the prepare hook.
const DefaultPython = "python3"

// RunPrepare executes <projectDir>/prepare.py with the project directory as
// working directory, so the hook sees the same relative paths the project
// uses. A missing script is not an error; the hook is optional.
func (r *Runner) RunPrepare(ctx context.Context, projectDir string) error {
	path := filepath.Join(projectDir, PrepareScript)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	python := r.Python
	if python == "" {
		python = DefaultPython
	}

	cmd := exec.CommandContext(ctx, python, PrepareScript)
	cmd.Dir = projectDir
	cmd.Stdout = r.stdout()
	cmd.Stderr = r.stderr()

	if r.Logger != nil {
		r.Logger.Infof("running prepare script %s", path)
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("prepare script exited with code %d", exitErr.ExitCode())
		}
		return fmt.Errorf("failed to run prepare script: %w", err)
	}
	return nil
}
