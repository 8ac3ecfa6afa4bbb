package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeInventory(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadInventoryYAML(t *testing.T) {
	dir := t.TempDir()
	writeInventory(t, dir, "staging.yaml", `
hosts:
  - name: web1
    ssh_host: 10.0.0.5
    services: [myapp]
  - name: web2
    ssh_host: 10.0.0.6
    ssh_port: 2222
    env: special
`)

	hosts, err := LoadInventory(dir, "staging")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hosts) != 2 {
		t.Fatalf("expected 2 hosts, got %d", len(hosts))
	}

	if hosts[0].Env != "staging" {
		t.Errorf("expected host without env to be tagged staging, got %s", hosts[0].Env)
	}
	if hosts[1].Env != "special" {
		t.Errorf("expected explicit env to win, got %s", hosts[1].Env)
	}
	if hosts[1].SSHPort != 2222 {
		t.Errorf("expected ssh_port 2222, got %d", hosts[1].SSHPort)
	}
	if hosts[0].SSHUser != "deploy" || hosts[0].SSHPort != 22 {
		t.Errorf("expected connection defaults, got %s:%d", hosts[0].SSHUser, hosts[0].SSHPort)
	}
}

func TestLoadInventoryRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		errorMsg string
	}{
		{
			name: "missing ssh_host",
			content: `
hosts:
  - name: web1
`,
			errorMsg: "ssh_host",
		},
		{
			name: "empty name",
			content: `
hosts:
  - name: ""
    ssh_host: 10.0.0.5
`,
			errorMsg: "name",
		},
		{
			name: "bad ssh_port type",
			content: `
hosts:
  - name: web1
    ssh_host: 10.0.0.5
    ssh_port: high
`,
			errorMsg: "ssh_port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeInventory(t, dir, "staging.yaml", tt.content)

			_, err := LoadInventory(dir, "staging")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("expected error mentioning %q, got %q", tt.errorMsg, err.Error())
			}
		})
	}
}

func TestLoadInventoryMissingEnvironment(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadInventory(dir, "production")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), `no inventory found for environment "production"`) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadInventoryStarlark(t *testing.T) {
	dir := t.TempDir()
	writeInventory(t, dir, "staging.star", `
_base = {"ssh_user": "ops"}

def _host(name, addr):
    h = dict(_base)
    h["name"] = name
    h["ssh_host"] = addr
    return h

hosts = [_host("web%d" % i, "10.0.0.%d" % i) for i in range(1, 4)]
`)

	hosts, err := LoadInventory(dir, "staging")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hosts) != 3 {
		t.Fatalf("expected 3 hosts, got %d", len(hosts))
	}
	if hosts[0].Name != "web1" || hosts[2].SSHHost != "10.0.0.3" {
		t.Errorf("unexpected hosts: %+v", hosts)
	}
	for _, h := range hosts {
		if h.SSHUser != "ops" {
			t.Errorf("expected shared ssh_user 'ops', got %s", h.SSHUser)
		}
		if h.Env != "staging" {
			t.Errorf("expected env staging, got %s", h.Env)
		}
	}
}

func TestLoadInventoryStarlarkEnvBinding(t *testing.T) {
	dir := t.TempDir()
	writeInventory(t, dir, "production.star", `
hosts = [{"name": "web-" + env, "ssh_host": "10.0.0.1"}]
`)

	hosts, err := LoadInventory(dir, "production")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hosts[0].Name != "web-production" {
		t.Errorf("expected env binding in script, got %s", hosts[0].Name)
	}
}

func TestLoadInventoryStarlarkRequiresHostsGlobal(t *testing.T) {
	dir := t.TempDir()
	writeInventory(t, dir, "staging.star", `servers = []`)

	_, err := LoadInventory(dir, "staging")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "must define a global 'hosts' list") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadInventoryYAMLPreferredOverStarlark(t *testing.T) {
	dir := t.TempDir()
	writeInventory(t, dir, "staging.yaml", `
hosts:
  - name: from-yaml
    ssh_host: 10.0.0.1
`)
	writeInventory(t, dir, "staging.star", `
hosts = [{"name": "from-star", "ssh_host": "10.0.0.2"}]
`)

	hosts, err := LoadInventory(dir, "staging")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hosts) != 1 || hosts[0].Name != "from-yaml" {
		t.Errorf("expected the YAML inventory to win, got %+v", hosts)
	}
}
