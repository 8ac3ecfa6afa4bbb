package modules

import (
	"github.com/Technology-Company/djaploy/pkg/script"
)

// TailscaleModule installs and authenticates Tailscale on hosts that carry
// an auth key, and manages Tailscale-issued certificates for domains of
// type "tailscale".
type TailscaleModule struct {
	Hooks
}

// NewTailscaleModule builds the tailscale module. It takes no options;
// the auth key lives in host data (tailscale_auth_key) so it stays out of
// the project config.
func NewTailscaleModule(opts map[string]interface{}) (Module, error) {
	return &TailscaleModule{}, nil
}

func (m *TailscaleModule) Name() string { return "tailscale" }

func (m *TailscaleModule) Imports() []string {
	return []string{
		"from pyinfra.operations import server",
		"from pyinfra.facts.deb import DebPackage",
	}
}

// ConfigureServer installs and brings up Tailscale. Hosts without an auth
// key are skipped entirely.
func (m *TailscaleModule) ConfigureServer(b *script.Builder, ctx *Context) error {
	b.Assign("tailscale_auth_key", "host.data.get('tailscale_auth_key')")
	b.If("tailscale_auth_key", func(b *script.Builder) {
		b.IfFactMissing("DebPackage", script.Str("tailscale"), func(b *script.Builder) {
			b.Op("server.shell", "Install Tailscale",
				script.KV("commands", script.Strs([]string{
					"curl -fsSL https://tailscale.com/install.sh | sh",
				})),
				script.KV("_sudo", script.Bool(true)),
			)
		})

		b.Op("server.shell", "Authenticate Tailscale",
			script.KV("commands", script.FStrs([]string{
				"tailscale up --authkey {tailscale_auth_key}",
			})),
			script.KV("_sudo", script.Bool(true)),
		)
	})
	return nil
}

// Deploy generates certificates for Tailscale domains.
func (m *TailscaleModule) Deploy(b *script.Builder, ctx *Context) error {
	m.emitCertLoop(b, "Generate Tailscale certificate")
	return nil
}

// SyncCertificates renews certificates outside a full deploy.
func (m *TailscaleModule) SyncCertificates(b *script.Builder, ctx *Context) error {
	m.emitCertLoop(b, "Renew Tailscale certificate")
	return nil
}

// emitCertLoop walks the host's domains and runs `tailscale cert` for each
// domain of type tailscale, from the application's SSL directory.
func (m *TailscaleModule) emitCertLoop(b *script.Builder, opName string) {
	b.For("domain", "host.data.get('domains', [])", func(b *script.Builder) {
		b.If("domain.get('type') == 'tailscale'", func(b *script.Builder) {
			b.Assign("domain_name", "domain.get('identifier')")
			b.Op("server.shell", opName,
				script.KV("commands", script.FStrs([]string{
					"tailscale cert {domain_name}",
				})),
				script.KV("_chdir", script.FStr("/home/{app_user}/.ssl")),
				script.KV("_sudo", script.Bool(true)),
			)
		})
	})
}
