package modules

import (
	"github.com/Technology-Company/djaploy/pkg/script"
)

// SystemdModule restarts the host's application services and enables its
// timers after each deploy. Service lists come from host data so every host
// manages only its own units.
type SystemdModule struct {
	Hooks

	// daemonReload controls the daemon-reload before touching units,
	// needed when deploy files ship new unit definitions.
	daemonReload bool
}

// NewSystemdModule builds the systemd module.
// Options: daemon_reload (bool, default true).
func NewSystemdModule(opts map[string]interface{}) (Module, error) {
	return &SystemdModule{
		daemonReload: boolOption(opts, "daemon_reload", true),
	}, nil
}

func (m *SystemdModule) Name() string { return "systemd" }

func (m *SystemdModule) Imports() []string {
	return []string{
		"from pyinfra.operations import server, systemd",
	}
}

func (m *SystemdModule) PostDeploy(b *script.Builder, ctx *Context) error {
	if m.daemonReload {
		b.Op("server.shell", "Reload systemd unit definitions",
			script.KV("commands", script.Strs([]string{"systemctl daemon-reload"})),
			script.KV("_sudo", script.Bool(true)),
		)
	}

	b.For("service", "host.data.get('services', [])", func(b *script.Builder) {
		b.Op("systemd.service", "Restart application service",
			script.KV("service", script.Raw("service")),
			script.KV("running", script.Bool(true)),
			script.KV("restarted", script.Bool(true)),
			script.KV("enabled", script.Bool(true)),
			script.KV("_sudo", script.Bool(true)),
		)
	})

	b.For("timer", "host.data.get('timer_services', [])", func(b *script.Builder) {
		b.Op("server.shell", "Enable timer service",
			script.KV("commands", script.FStrs([]string{"systemctl enable --now {timer}"})),
			script.KV("_sudo", script.Bool(true)),
		)
	})
	return nil
}
