package modules

import (
	"github.com/Technology-Company/djaploy/pkg/script"
)

// NginxModule installs nginx during configure and activates the
// application's sites after each deploy.
type NginxModule struct {
	Hooks

	// reload controls whether nginx is reloaded after site activation.
	reload bool
}

// NewNginxModule builds the nginx module.
// Options: reload (bool, default true).
func NewNginxModule(opts map[string]interface{}) (Module, error) {
	return &NginxModule{
		reload: boolOption(opts, "reload", true),
	}, nil
}

func (m *NginxModule) Name() string { return "nginx" }

func (m *NginxModule) Imports() []string {
	return []string{
		"from pyinfra.operations import apt, server, systemd",
	}
}

func (m *NginxModule) ConfigureServer(b *script.Builder, ctx *Context) error {
	b.Op("apt.packages", "Install NGINX",
		script.KV("packages", script.Strs([]string{"nginx"})),
		script.KV("_sudo", script.Bool(true)),
	)

	b.Op("systemd.service", "Enable NGINX service",
		script.KV("service", script.Str("nginx")),
		script.KV("running", script.Bool(true)),
		script.KV("enabled", script.Bool(true)),
		script.KV("_sudo", script.Bool(true)),
	)
	return nil
}

// PostDeploy runs after the core module has placed site files under
// /etc/nginx/sites-available.
func (m *NginxModule) PostDeploy(b *script.Builder, ctx *Context) error {
	b.Op("server.shell", "Clear default NGINX site and enable application sites",
		script.KV("commands", script.Strs([]string{
			"rm -f /etc/nginx/sites-available/default /etc/nginx/sites-enabled/default",
			"ln -fs /etc/nginx/sites-available/* /etc/nginx/sites-enabled/",
		})),
		script.KV("_sudo", script.Bool(true)),
	)

	b.Op("server.shell", "Check NGINX configuration",
		script.KV("commands", script.Strs([]string{"nginx -t"})),
		script.KV("_sudo", script.Bool(true)),
	)

	if m.reload {
		b.Op("systemd.service", "Reload NGINX",
			script.KV("service", script.Str("nginx")),
			script.KV("running", script.Bool(true)),
			script.KV("reloaded", script.Bool(true)),
			script.KV("_sudo", script.Bool(true)),
		)
	}
	return nil
}
