package modules

import (
	"fmt"

	"github.com/Technology-Company/djaploy/pkg/script"
)

// baseImports are always present in generated scripts.
var baseImports = []string{
	"from pyinfra import host",
}

// GenerateConfigureScript emits the pyinfra script for the configure phase:
// for each module, pre_configure -> configure_server -> post_configure.
func GenerateConfigureScript(ctx *Context, mods []Module) (string, error) {
	b := script.NewBuilder()
	writeHeader(b, ctx, mods)
	writeBindings(b, ctx, false)

	for _, mod := range mods {
		b.Blank()
		b.Comment("module: %s", mod.Name())
		if err := mod.PreConfigure(b, ctx); err != nil {
			return "", fmt.Errorf("module %s: pre_configure: %w", mod.Name(), err)
		}
		if err := mod.ConfigureServer(b, ctx); err != nil {
			return "", fmt.Errorf("module %s: configure_server: %w", mod.Name(), err)
		}
		if err := mod.PostConfigure(b, ctx); err != nil {
			return "", fmt.Errorf("module %s: post_configure: %w", mod.Name(), err)
		}
	}
	return b.String(), nil
}

// GenerateDeployScript emits the pyinfra script for the deploy phase:
// for each module, pre_deploy -> deploy -> post_deploy. ctx.ArtifactPath
// must point at the tarball to ship.
func GenerateDeployScript(ctx *Context, mods []Module) (string, error) {
	if ctx.ArtifactPath == "" {
		return "", fmt.Errorf("deploy script requires an artifact path")
	}

	b := script.NewBuilder()
	writeHeader(b, ctx, mods)
	writeBindings(b, ctx, true)

	for _, mod := range mods {
		b.Blank()
		b.Comment("module: %s", mod.Name())
		if err := mod.PreDeploy(b, ctx); err != nil {
			return "", fmt.Errorf("module %s: pre_deploy: %w", mod.Name(), err)
		}
		if err := mod.Deploy(b, ctx); err != nil {
			return "", fmt.Errorf("module %s: deploy: %w", mod.Name(), err)
		}
		if err := mod.PostDeploy(b, ctx); err != nil {
			return "", fmt.Errorf("module %s: post_deploy: %w", mod.Name(), err)
		}
	}
	return b.String(), nil
}

// GenerateSyncCertsScript emits a script that renews certificates via every
// module implementing CertSyncer.
func GenerateSyncCertsScript(ctx *Context, mods []Module) (string, error) {
	syncers := make([]Module, 0, len(mods))
	for _, mod := range mods {
		if _, ok := mod.(CertSyncer); ok {
			syncers = append(syncers, mod)
		}
	}
	if len(syncers) == 0 {
		return "", fmt.Errorf("no loaded module manages certificates")
	}

	b := script.NewBuilder()
	writeHeader(b, ctx, syncers)
	writeBindings(b, ctx, false)

	for _, mod := range syncers {
		b.Blank()
		b.Comment("module: %s", mod.Name())
		if err := mod.(CertSyncer).SyncCertificates(b, ctx); err != nil {
			return "", fmt.Errorf("module %s: sync_certificates: %w", mod.Name(), err)
		}
	}
	return b.String(), nil
}

// writeHeader emits the generated-file banner and the deduplicated import
// block: base imports first, then module imports in module order.
func writeHeader(b *script.Builder, ctx *Context, mods []Module) {
	b.Comment("Generated by djaploy for project %s (env: %s). Do not edit.", ctx.Project.ProjectName, ctx.Env)
	b.Blank()

	seen := make(map[string]bool)
	for _, imp := range baseImports {
		seen[imp] = true
		b.Linef("%s", imp)
	}
	for _, mod := range mods {
		for _, imp := range mod.Imports() {
			if !seen[imp] {
				seen[imp] = true
				b.Linef("%s", imp)
			}
		}
	}
}

// writeBindings emits the shared script variables modules rely on.
func writeBindings(b *script.Builder, ctx *Context, deploy bool) {
	b.Blank()
	b.Assign("app_user", fmt.Sprintf("host.data.get('app_user', %s)", pyQuoted(ctx.Project.AppUser)))
	b.Assign("ssh_user", fmt.Sprintf("host.data.get('ssh_user', %s)", pyQuoted(ctx.Project.SSHUser)))
	b.Assign("app_name", fmt.Sprintf("host.data.get('project_name', %s)", pyQuoted(ctx.Project.ProjectName)))
	if deploy {
		b.Assign("app_path", "f'/home/{app_user}/apps/{app_name}'")
	}
}

// pyQuoted renders a Go string as a Python string literal.
func pyQuoted(s string) string {
	return script.Literal(s)
}
