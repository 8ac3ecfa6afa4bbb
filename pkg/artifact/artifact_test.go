package artifact

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// initRepo creates a git repository with one committed file and returns its
// path. Tests are skipped when git is unavailable.
func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	gitRun(t, dir, "init")
	gitRun(t, dir, "config", "user.email", "test@example.com")
	gitRun(t, dir, "config", "user.name", "Test")

	if err := os.WriteFile(filepath.Join(dir, "app.py"), []byte("print('hi')\n"), 0644); err != nil {
		t.Fatal(err)
	}
	gitRun(t, dir, "add", ".")
	gitRun(t, dir, "commit", "-m", "initial")

	return dir
}

func gitRun(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
}

func testBuilder(t *testing.T, repo string) *Builder {
	t.Helper()
	return &Builder{
		GitDir:      repo,
		OutputDir:   filepath.Join(t.TempDir(), "artifacts"),
		ProjectName: "myapp",
	}
}

func TestBuildLatest(t *testing.T) {
	repo := initRepo(t)
	b := testBuilder(t, repo)

	art, err := b.Build(context.Background(), ModeLatest, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if art.Ref != "HEAD" {
		t.Errorf("expected HEAD ref, got %s", art.Ref)
	}
	if !strings.HasPrefix(filepath.Base(art.Path), "myapp-") {
		t.Errorf("expected project-prefixed name, got %s", art.Path)
	}
	if !strings.HasSuffix(art.Path, ".tar.gz") {
		t.Errorf("expected .tar.gz suffix, got %s", art.Path)
	}
	if len(art.Checksum) != 64 {
		t.Errorf("expected hex sha256 checksum, got %q", art.Checksum)
	}

	info, err := os.Stat(art.Path)
	if err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("artifact is empty")
	}
}

func TestBuildLocalCleanTreeFallsBackToHead(t *testing.T) {
	repo := initRepo(t)
	b := testBuilder(t, repo)

	art, err := b.Build(context.Background(), ModeLocal, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if art.Ref != "HEAD" {
		t.Errorf("clean tree must package HEAD, got %s", art.Ref)
	}
}

func TestBuildLocalIncludesUncommittedChanges(t *testing.T) {
	repo := initRepo(t)
	if err := os.WriteFile(filepath.Join(repo, "app.py"), []byte("print('changed')\n"), 0644); err != nil {
		t.Fatal(err)
	}

	b := testBuilder(t, repo)
	art, err := b.Build(context.Background(), ModeLocal, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if art.Ref == "HEAD" {
		t.Error("dirty tree must package a working tree snapshot, not HEAD")
	}
	if art.Mode != ModeLocal {
		t.Errorf("expected local mode, got %s", art.Mode)
	}
}

func TestBuildRelease(t *testing.T) {
	repo := initRepo(t)
	gitRun(t, repo, "tag", "v1.0.0")

	b := testBuilder(t, repo)
	art, err := b.Build(context.Background(), ModeRelease, "v1.0.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if art.Ref != "v1.0.0" {
		t.Errorf("expected tag ref, got %s", art.Ref)
	}
	if !strings.Contains(filepath.Base(art.Path), "v1.0.0") {
		t.Errorf("expected tag in artifact name, got %s", art.Path)
	}
}

func TestBuildReleaseUnknownTag(t *testing.T) {
	repo := initRepo(t)
	b := testBuilder(t, repo)

	_, err := b.Build(context.Background(), ModeRelease, "v9.9.9")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), `unknown release "v9.9.9"`) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBuildReleaseRequiresTag(t *testing.T) {
	repo := initRepo(t)
	b := testBuilder(t, repo)

	_, err := b.Build(context.Background(), ModeRelease, "")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "requires a tag name") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBuildUnknownMode(t *testing.T) {
	repo := initRepo(t)
	b := testBuilder(t, repo)

	_, err := b.Build(context.Background(), Mode("nightly"), "")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), `unknown artifact mode "nightly"`) {
		t.Errorf("unexpected error: %v", err)
	}
}
