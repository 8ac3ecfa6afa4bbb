// Package artifact builds deployment tarballs from the project's git
// repository.
package artifact

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Technology-Company/djaploy/pkg/telemetry"
)

// Mode selects which tree the artifact is built from.
type Mode string

const (
	// ModeLocal packages the working tree, including uncommitted changes.
	ModeLocal Mode = "local"

	// ModeLatest packages the latest commit (HEAD).
	ModeLatest Mode = "latest"

	// ModeRelease packages a named tag.
	ModeRelease Mode = "release"
)

// Artifact describes a built deployment tarball.
type Artifact struct {
	// Path is the local path of the tarball.
	Path string

	// Checksum is the hex-encoded SHA-256 of the tarball contents.
	Checksum string

	// Ref is the git revision the tarball was built from.
	Ref string

	// Mode records how the revision was selected.
	Mode Mode

	// CreatedAt is the build timestamp.
	CreatedAt time.Time
}

// Builder creates artifacts via git archive.
type Builder struct {
	// GitDir is the repository the archive is built from.
	GitDir string

	// OutputDir receives the tarballs. Created if missing.
	OutputDir string

	// ProjectName prefixes the artifact file name.
	ProjectName string

	// Logger, when set, records build progress.
	Logger *telemetry.Logger
}

// Build creates a tarball for the given mode. Release is the tag name and is
// only consulted for ModeRelease.
func (b *Builder) Build(ctx context.Context, mode Mode, release string) (*Artifact, error) {
	ref, err := b.resolveRef(ctx, mode, release)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(b.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	now := time.Now()
	short := ref
	if len(short) > 12 {
		short = short[:12]
	}
	name := fmt.Sprintf("%s-%s-%d.tar.gz", b.ProjectName, short, now.Unix())
	outPath := filepath.Join(b.OutputDir, name)

	if b.Logger != nil {
		b.Logger.Infof("building artifact %s from %s", name, ref)
	}

	if _, err := b.git(ctx, "archive", "--format=tar.gz", "-o", outPath, ref); err != nil {
		return nil, fmt.Errorf("failed to build artifact from %s: %w", ref, err)
	}

	sum, err := fileChecksum(outPath)
	if err != nil {
		os.Remove(outPath)
		return nil, err
	}

	return &Artifact{
		Path:      outPath,
		Checksum:  sum,
		Ref:       ref,
		Mode:      mode,
		CreatedAt: now,
	}, nil
}

// resolveRef maps the mode to a concrete git revision.
func (b *Builder) resolveRef(ctx context.Context, mode Mode, release string) (string, error) {
	switch mode {
	case ModeLatest:
		return "HEAD", nil
	case ModeRelease:
		if release == "" {
			return "", fmt.Errorf("release mode requires a tag name")
		}
		if _, err := b.git(ctx, "rev-parse", "--verify", release+"^{commit}"); err != nil {
			return "", fmt.Errorf("unknown release %q: %w", release, err)
		}
		return release, nil
	case ModeLocal:
		// git stash create snapshots the working tree without touching it.
		// It prints nothing when the tree is clean.
		out, err := b.git(ctx, "stash", "create")
		if err != nil {
			return "", fmt.Errorf("failed to snapshot working tree: %w", err)
		}
		if out == "" {
			return "HEAD", nil
		}
		return out, nil
	default:
		return "", fmt.Errorf("unknown artifact mode %q", mode)
	}
}

// git runs a git command in the repository and returns its trimmed stdout.
func (b *Builder) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = b.GitDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("git %s: %s: %w", args[0], msg, err)
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// fileChecksum returns the hex SHA-256 of a file.
func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to checksum artifact: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to checksum artifact: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
