package modules

import (
	"github.com/Technology-Company/djaploy/pkg/config"
	"github.com/Technology-Company/djaploy/pkg/script"
)

// Context carries the generation-time inputs handed to module hooks.
type Context struct {
	// Project is the validated project configuration.
	Project *config.ProjectConfig

	// Env is the environment the script is generated for.
	Env string

	// ArtifactPath is the local tarball path; set only for the deploy phase.
	ArtifactPath string
}

// Module is a pluggable provisioning/deployment unit. Hooks run in fixed
// order (pre -> main -> post) within the configure and deploy phases and emit
// pyinfra operations into the script builder. Per-host values are emitted as
// host.data lookups so one script serves every host in the inventory.
//
// The generator binds these script variables before any hook runs:
// app_user, ssh_user, app_name, and (deploy phase only) app_path.
type Module interface {
	// Name is the identifier used in the project's module list.
	Name() string

	// Imports returns the Python import lines the module's operations need.
	Imports() []string

	PreConfigure(b *script.Builder, ctx *Context) error
	ConfigureServer(b *script.Builder, ctx *Context) error
	PostConfigure(b *script.Builder, ctx *Context) error

	PreDeploy(b *script.Builder, ctx *Context) error
	Deploy(b *script.Builder, ctx *Context) error
	PostDeploy(b *script.Builder, ctx *Context) error
}

// CertSyncer is implemented by modules that can renew certificates outside
// a full deploy (the sync-certs command).
type CertSyncer interface {
	SyncCertificates(b *script.Builder, ctx *Context) error
}

// Hooks provides no-op lifecycle methods; modules embed it and override
// the hooks they participate in.
type Hooks struct{}

func (Hooks) Imports() []string                                { return nil }
func (Hooks) PreConfigure(*script.Builder, *Context) error     { return nil }
func (Hooks) ConfigureServer(*script.Builder, *Context) error  { return nil }
func (Hooks) PostConfigure(*script.Builder, *Context) error    { return nil }
func (Hooks) PreDeploy(*script.Builder, *Context) error        { return nil }
func (Hooks) Deploy(*script.Builder, *Context) error           { return nil }
func (Hooks) PostDeploy(*script.Builder, *Context) error       { return nil }

// boolOption reads a boolean module option with a default.
func boolOption(opts map[string]interface{}, key string, def bool) bool {
	if v, ok := opts[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}
