package modules

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Technology-Company/djaploy/pkg/script"
)

// pythonPatchVersions maps supported major.minor interpreter versions to the
// patch release compiled from source.
var pythonPatchVersions = map[string]string{
	"3.11": "3.11.9",
	"3.12": "3.12.7",
	"3.13": "3.13.3",
}

// CoreModule performs base server setup and the main application deploy:
// user creation, interpreter and tooling installation, artifact upload and
// extraction, dependency installation, migrations, and static collection.
type CoreModule struct {
	Hooks

	// pregenerateCerts controls whether self-signed certificates are created
	// for hosts that ask for them.
	pregenerateCerts bool
}

// NewCoreModule builds the core module.
// Options: pregenerate_certificates (bool, default true).
func NewCoreModule(opts map[string]interface{}) (Module, error) {
	return &CoreModule{
		pregenerateCerts: boolOption(opts, "pregenerate_certificates", true),
	}, nil
}

func (m *CoreModule) Name() string { return "core" }

func (m *CoreModule) Imports() []string {
	return []string{
		"from pyinfra.operations import apt, server, pip, files",
		"from pyinfra.facts.server import Which",
	}
}

// ConfigureServer emits base provisioning: application user, package index
// refresh, Python, poetry, and build tooling.
func (m *CoreModule) ConfigureServer(b *script.Builder, ctx *Context) error {
	b.Op("server.user", "Create application user",
		script.KV("user", script.Raw("app_user")),
		script.KV("shell", script.Str("/bin/bash")),
		script.KV("create_home", script.Bool(true)),
		script.KV("_sudo", script.Bool(true)),
	)

	b.Op("apt.update", "Update apt repositories",
		script.KV("_sudo", script.Bool(true)),
	)

	if ctx.Project.PythonCompile {
		m.emitCompilePython(b, ctx)
	} else {
		version := ctx.Project.PythonVersion
		b.Op("apt.packages", fmt.Sprintf("Install Python %s", version),
			script.KV("packages", script.Strs([]string{
				"python" + version,
				"python" + version + "-dev",
				"python" + version + "-venv",
				"python3-pip",
			})),
			script.KV("_sudo", script.Bool(true)),
		)
	}

	b.Op("pip.packages", "Install poetry",
		script.KV("packages", script.Strs([]string{"poetry"})),
		script.KV("extra_install_args", script.Str("--break-system-packages")),
		script.KV("_sudo", script.Bool(true)),
		script.KV("_sudo_user", script.Raw("app_user")),
		script.KV("_use_sudo_login", script.Bool(true)),
	)

	b.Op("apt.packages", "Install basic packages",
		script.KV("packages", script.Strs([]string{"git", "curl", "wget", "build-essential"})),
		script.KV("_sudo", script.Bool(true)),
	)
	return nil
}

// emitCompilePython emits a fact-guarded compile-from-source block using
// altinstall so the system interpreter is left alone.
func (m *CoreModule) emitCompilePython(b *script.Builder, ctx *Context) {
	version := ctx.Project.PythonVersion
	full, ok := pythonPatchVersions[version]
	if !ok {
		full = version + ".0"
	}

	downloadURL := fmt.Sprintf("https://www.python.org/ftp/python/%s/Python-%s.tar.xz", full, full)
	sourceDir := fmt.Sprintf("/tmp/Python-%s", full)
	installPath := fmt.Sprintf("/usr/local/bin/python%s", version)

	b.IfFactMissing("Which", script.Str(installPath), func(b *script.Builder) {
		b.Op("apt.packages", "Install Python build dependencies",
			script.KV("packages", script.Strs([]string{
				"build-essential", "zlib1g-dev", "libncurses5-dev", "libncursesw5-dev",
				"libgdbm-dev", "libnss3-dev", "libssl-dev", "libreadline-dev",
				"libffi-dev", "libsqlite3-dev", "wget", "curl", "llvm",
				"xz-utils", "tk-dev", "libxml2-dev", "libxmlsec1-dev", "liblzma-dev",
				"libbz2-dev",
			})),
			script.KV("_sudo", script.Bool(true)),
		)

		b.Op("server.shell", fmt.Sprintf("Download Python %s source", full),
			script.KV("commands", script.Strs([]string{
				fmt.Sprintf("wget -P /tmp %s", downloadURL),
				fmt.Sprintf("tar -xf /tmp/Python-%s.tar.xz -C /tmp", full),
			})),
			script.KV("_sudo", script.Bool(true)),
		)

		b.Op("server.shell", fmt.Sprintf("Configure and compile Python %s", full),
			script.KV("commands", script.Strs([]string{
				"./configure --enable-optimizations --with-ensurepip=install",
				"make -j$(( $(nproc) > 1 ? $(nproc) - 1 : 1 ))",
			})),
			script.KV("_chdir", script.Str(sourceDir)),
			script.KV("_sudo", script.Bool(true)),
		)

		b.Op("server.shell", fmt.Sprintf("Install Python %s using altinstall", full),
			script.KV("commands", script.Strs([]string{"make altinstall"})),
			script.KV("_chdir", script.Str(sourceDir)),
			script.KV("_sudo", script.Bool(true)),
		)

		b.Op("server.shell", fmt.Sprintf("Clean up Python %s source files", full),
			script.KV("commands", script.Strs([]string{
				fmt.Sprintf("rm -f /tmp/Python-%s.tar.xz", full),
				fmt.Sprintf("rm -rf %s", sourceDir),
			})),
			script.KV("_sudo", script.Bool(true)),
		)
	})
}

// Deploy emits artifact upload, extraction, deploy-file placement, optional
// certificate generation, and the application update steps.
func (m *CoreModule) Deploy(b *script.Builder, ctx *Context) error {
	artifactName := filepath.Base(ctx.ArtifactPath)

	b.Op("files.directory", "Create tars directory",
		script.KV("path", script.FStr("/home/{ssh_user}/tars")),
		script.KV("_sudo", script.Bool(false)),
	)

	b.Op("files.directory", "Create application directory",
		script.KV("path", script.Raw("app_path")),
		script.KV("user", script.Raw("app_user")),
		script.KV("group", script.Raw("app_user")),
		script.KV("_sudo", script.Bool(true)),
	)

	b.Op("files.put", "Upload deployment artifact",
		script.KV("src", script.Str(ctx.ArtifactPath)),
		script.KV("dest", script.FStr("/home/{ssh_user}/tars/"+artifactName)),
	)

	b.Op("server.shell", "Extract artifact and set permissions",
		script.KV("commands", script.FStrs([]string{
			"tar -C {app_path} -xf /home/{ssh_user}/tars/" + artifactName,
			"chown -R {app_user}:{app_user} {app_path}",
		})),
		script.KV("_sudo", script.Bool(true)),
	)

	b.Op("server.shell", "Record deployed release",
		script.KV("commands", script.FStrs([]string{
			"echo '" + artifactName + "' > {app_path}/RELEASE",
			"chown {app_user}:{app_user} {app_path}/RELEASE",
		})),
		script.KV("_sudo", script.Bool(true)),
	)

	m.emitDeployFiles(b, ctx)

	if m.pregenerateCerts {
		m.emitSelfSignedCerts(b)
	}

	b.Op("server.shell", "Install Python dependencies",
		script.KV("commands", script.FStrs([]string{
			"/home/{app_user}/.local/bin/poetry install --without dev",
		})),
		script.KV("_sudo", script.Bool(true)),
		script.KV("_sudo_user", script.Raw("app_user")),
		script.KV("_use_sudo_login", script.Bool(true)),
		script.KV("_chdir", script.Raw("app_path")),
	)

	if managePy := ctx.Project.ManagePyPath; managePy != "" {
		b.Op("server.shell", "Run database migrations",
			script.KV("commands", script.FStrs([]string{
				"/home/{app_user}/.local/bin/poetry run python " + managePy + " migrate --noinput",
			})),
			script.KV("_sudo", script.Bool(true)),
			script.KV("_sudo_user", script.Raw("app_user")),
			script.KV("_use_sudo_login", script.Bool(true)),
			script.KV("_chdir", script.Raw("app_path")),
		)

		b.Op("server.shell", "Collect static files",
			script.KV("commands", script.FStrs([]string{
				"/home/{app_user}/.local/bin/poetry run python " + managePy + " collectstatic --noinput --clear",
			})),
			script.KV("_sudo", script.Bool(true)),
			script.KV("_sudo_user", script.Raw("app_user")),
			script.KV("_use_sudo_login", script.Bool(true)),
			script.KV("_chdir", script.Raw("app_path")),
		)
	}
	return nil
}

// emitDeployFiles stages the environment's deploy files (nginx sites,
// systemd units) on the host and copies them into the filesystem root.
// Skipped when the project has no deploy files for this environment.
func (m *CoreModule) emitDeployFiles(b *script.Builder, ctx *Context) {
	localDir := filepath.Join(ctx.Project.DeployFilesDir(), ctx.Env)
	if info, err := os.Stat(localDir); err != nil || !info.IsDir() {
		return
	}

	const stagingDir = "/tmp/djaploy_deploy_files"

	b.Op("files.sync", "Upload deploy files",
		script.KV("src", script.Str(localDir)),
		script.KV("dest", script.Str(stagingDir)),
		script.KV("delete", script.Bool(true)),
	)

	b.Op("server.shell", "Put deploy files (NGINX, systemd) in place",
		script.KV("commands", script.Strs([]string{
			fmt.Sprintf("cp -r %s/. /", stagingDir),
			fmt.Sprintf("rm -rf %s", stagingDir),
		})),
		script.KV("_sudo", script.Bool(true)),
	)
}

// emitSelfSignedCerts emits a host-gated block generating self-signed
// certificates for each configured domain.
func (m *CoreModule) emitSelfSignedCerts(b *script.Builder) {
	b.If("host.data.get('pregenerate_certificates')", func(b *script.Builder) {
		b.Op("apt.packages", "Install OpenSSL for certificate generation",
			script.KV("packages", script.Strs([]string{"openssl"})),
			script.KV("_sudo", script.Bool(true)),
		)

		b.Op("files.directory", "Create SSL directory",
			script.KV("path", script.FStr("/home/{app_user}/.ssl")),
			script.KV("user", script.Raw("app_user")),
			script.KV("group", script.Raw("app_user")),
			script.KV("_sudo", script.Bool(true)),
		)

		b.Assign("cert_domains", "host.data.get('domains') or [{'identifier': host.data.get('app_hostname', 'localhost')}]")
		b.For("domain", "cert_domains", func(b *script.Builder) {
			b.Assign("domain_name", "domain.get('identifier') or domain.get('name') or 'localhost'")
			b.Assign("alt_names", "domain.get('domains') or [domain_name]")
			b.Assign("san", "','.join('DNS:' + d for d in alt_names)")
			b.Assign("cert_path", "f'/home/{app_user}/.ssl/{domain_name}.crt'")
			b.Assign("key_path", "f'/home/{app_user}/.ssl/{domain_name}.key'")

			b.Op("server.shell", "Generate self-signed SSL certificate",
				script.KV("commands", script.FStrs([]string{
					"openssl req -x509 -newkey rsa:4096 -keyout {key_path} -out {cert_path}" +
						" -days 365 -nodes -subj \"/CN={domain_name}\" -addext \"subjectAltName={san}\"",
					"chown {app_user}:{app_user} {cert_path} {key_path}",
					"chmod 600 {key_path}",
					"chmod 644 {cert_path}",
				})),
				script.KV("_sudo", script.Bool(true)),
			)
		})
	})
}
