package modules

import (
	"strings"
	"testing"

	"github.com/Technology-Company/djaploy/pkg/config"
)

func generatorContext(t *testing.T, artifactPath string) *Context {
	t.Helper()
	p := &config.ProjectConfig{
		ProjectName:  "myapp",
		DjaployDir:   t.TempDir(),
		ManagePyPath: "src/manage.py",
	}
	p.ApplyDefaults()
	return &Context{Project: p, Env: "staging", ArtifactPath: artifactPath}
}

func loadModules(t *testing.T, ctx *Context, names ...string) []Module {
	t.Helper()
	ctx.Project.Modules = names
	mods, err := Load(ctx.Project, nil)
	if err != nil {
		t.Fatal(err)
	}
	return mods
}

func TestGenerateConfigureScript(t *testing.T) {
	ctx := generatorContext(t, "")
	mods := loadModules(t, ctx, "core", "nginx", "tailscale")

	got, err := GenerateConfigureScript(ctx, mods)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"# Generated by djaploy for project myapp (env: staging). Do not edit.",
		"from pyinfra import host",
		"from pyinfra.operations import apt, server, pip, files",
		"from pyinfra.facts.deb import DebPackage",
		"app_user = host.data.get('app_user', 'app')",
		"# module: core",
		"server.user(",
		"name='Create application user'",
		"# module: nginx",
		"packages=['nginx']",
		"# module: tailscale",
		"tailscale up --authkey {tailscale_auth_key}",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in configure script:\n%s", want, got)
		}
	}

	// Configure must not reference the deploy-only app_path binding.
	if strings.Contains(got, "app_path = ") {
		t.Error("configure script must not bind app_path")
	}
}

func TestGenerateConfigureScriptModuleOrder(t *testing.T) {
	ctx := generatorContext(t, "")
	mods := loadModules(t, ctx, "nginx", "core")

	got, err := GenerateConfigureScript(ctx, mods)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Index(got, "# module: nginx") > strings.Index(got, "# module: core") {
		t.Error("modules must run in project list order")
	}
}

func TestGenerateConfigureScriptPythonInstallModes(t *testing.T) {
	ctx := generatorContext(t, "")
	mods := loadModules(t, ctx, "core")

	apt, err := GenerateConfigureScript(ctx, mods)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(apt, "packages=['python3.11', 'python3.11-dev', 'python3.11-venv', 'python3-pip']") {
		t.Errorf("expected apt python install:\n%s", apt)
	}
	if strings.Contains(apt, "altinstall") {
		t.Error("apt mode must not compile from source")
	}

	ctx.Project.PythonCompile = true
	compiled, err := GenerateConfigureScript(ctx, mods)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"if host.get_fact(Which, '/usr/local/bin/python3.11') is None:",
		"https://www.python.org/ftp/python/3.11.9/Python-3.11.9.tar.xz",
		"make altinstall",
	} {
		if !strings.Contains(compiled, want) {
			t.Errorf("expected %q in compile-mode script:\n%s", want, compiled)
		}
	}
}

func TestGenerateDeployScript(t *testing.T) {
	ctx := generatorContext(t, "/tmp/myapp-abc123-1700000000.tar.gz")
	mods := loadModules(t, ctx, "core", "nginx", "systemd")

	got, err := GenerateDeployScript(ctx, mods)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"app_path = f'/home/{app_user}/apps/{app_name}'",
		"src='/tmp/myapp-abc123-1700000000.tar.gz'",
		"tar -C {app_path} -xf /home/{ssh_user}/tars/myapp-abc123-1700000000.tar.gz",
		"{app_path}/RELEASE",
		"poetry install --without dev",
		"migrate --noinput",
		"collectstatic --noinput --clear",
		"ln -fs /etc/nginx/sites-available/* /etc/nginx/sites-enabled/",
		"systemd.service(",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in deploy script:\n%s", want, got)
		}
	}
}

func TestGenerateDeployScriptRequiresArtifact(t *testing.T) {
	ctx := generatorContext(t, "")
	mods := loadModules(t, ctx, "core")

	_, err := GenerateDeployScript(ctx, mods)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "artifact path") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGenerateDeployScriptSkipsDjangoStepsWithoutManagePy(t *testing.T) {
	ctx := generatorContext(t, "/tmp/app.tar.gz")
	ctx.Project.ManagePyPath = ""
	mods := loadModules(t, ctx, "core")

	got, err := GenerateDeployScript(ctx, mods)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "migrate --noinput") || strings.Contains(got, "collectstatic") {
		t.Error("migrations and collectstatic require manage_py_path")
	}
	if !strings.Contains(got, "poetry install --without dev") {
		t.Error("dependency installation must still run")
	}
}

func TestGenerateSyncCertsScript(t *testing.T) {
	ctx := generatorContext(t, "")
	mods := loadModules(t, ctx, "core", "tailscale")

	got, err := GenerateSyncCertsScript(ctx, mods)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "tailscale cert {domain_name}") {
		t.Errorf("expected cert renewal in script:\n%s", got)
	}
	if strings.Contains(got, "# module: core") {
		t.Error("modules without certificate support must not appear")
	}
}

func TestGenerateSyncCertsScriptNoSyncers(t *testing.T) {
	ctx := generatorContext(t, "")
	mods := loadModules(t, ctx, "nginx", "systemd")

	_, err := GenerateSyncCertsScript(ctx, mods)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "no loaded module manages certificates") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGenerateConfigureScriptRclone(t *testing.T) {
	ctx := generatorContext(t, "")
	mods := loadModules(t, ctx, "rclone")

	got, err := GenerateConfigureScript(ctx, mods)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"backup = host.data.get('backup')",
		"if backup and backup.get('enabled'):",
		"if host.get_fact(Which, 'rclone') is None:",
		"if backup.get('type') == 'sftp':",
		"io.StringIO(remote_conf)",
		"cron_name='djaploy-backup'",
		"import io",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in rclone configure script:\n%s", want, got)
		}
	}
}
