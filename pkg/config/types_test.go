package config

import (
	"strings"
	"testing"
)

func validProject() *ProjectConfig {
	c := &ProjectConfig{
		ProjectName: "myapp",
		ProjectDir:  "/srv/myapp",
		DjaployDir:  "/srv/myapp/djaploy",
	}
	c.ApplyDefaults()
	return c
}

func TestProjectConfigDefaults(t *testing.T) {
	c := validProject()

	if c.AppUser != "app" {
		t.Errorf("expected app_user 'app', got '%s'", c.AppUser)
	}
	if c.SSHUser != "deploy" {
		t.Errorf("expected ssh_user 'deploy', got '%s'", c.SSHUser)
	}
	if c.PythonVersion != "3.11" {
		t.Errorf("expected python_version '3.11', got '%s'", c.PythonVersion)
	}
	if c.ArtifactDir != "deployment" {
		t.Errorf("expected artifact_dir 'deployment', got '%s'", c.ArtifactDir)
	}
	if c.GitDir != c.ProjectDir {
		t.Errorf("expected git_dir to default to project_dir, got '%s'", c.GitDir)
	}
	if len(c.Modules) != 3 || c.Modules[0] != "core" {
		t.Errorf("unexpected default modules: %v", c.Modules)
	}
}

func TestProjectConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*ProjectConfig)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid config",
			modifyFunc:  func(c *ProjectConfig) {},
			expectError: false,
		},
		{
			name: "missing project_name",
			modifyFunc: func(c *ProjectConfig) {
				c.ProjectName = ""
			},
			expectError: true,
			errorMsg:    "project_name is required",
		},
		{
			name: "missing djaploy_dir",
			modifyFunc: func(c *ProjectConfig) {
				c.DjaployDir = ""
			},
			expectError: true,
			errorMsg:    "djaploy_dir is required",
		},
		{
			name: "missing app_user",
			modifyFunc: func(c *ProjectConfig) {
				c.AppUser = ""
			},
			expectError: true,
			errorMsg:    "app_user is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validProject()
			tt.modifyFunc(c)

			err := c.Validate()
			if tt.expectError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestProjectConfigValidationAggregatesProblems(t *testing.T) {
	c := &ProjectConfig{}

	err := c.Validate()
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	msg := err.Error()
	if !strings.HasPrefix(msg, "configuration validation failed: ") {
		t.Errorf("unexpected error prefix: %q", msg)
	}
	for _, want := range []string{"project_name is required", "djaploy_dir is required", "app_user is required"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in aggregated error %q", want, msg)
		}
	}
}

func TestBackupConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		backup      BackupConfig
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid sftp",
			backup: BackupConfig{Type: BackupTypeSFTP, Host: "backup.example.com", User: "backup"},
		},
		{
			name: "valid s3",
			backup: BackupConfig{
				Type:        BackupTypeS3,
				S3Endpoint:  "s3.example.com",
				S3AccessKey: "key",
				S3SecretKey: "secret",
				S3Bucket:    "backups",
			},
		},
		{
			name:        "sftp missing host",
			backup:      BackupConfig{Type: BackupTypeSFTP, User: "backup"},
			expectError: true,
			errorMsg:    "sftp backup requires host and user",
		},
		{
			name:        "s3 missing bucket",
			backup:      BackupConfig{Type: BackupTypeS3, S3Endpoint: "s3.example.com", S3AccessKey: "k", S3SecretKey: "s"},
			expectError: true,
			errorMsg:    "s3 backup requires endpoint, access_key, secret_key, and bucket",
		},
		{
			name:        "unknown type",
			backup:      BackupConfig{Type: "ftp"},
			expectError: true,
			errorMsg:    `invalid backup type: "ftp"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.backup.Validate()
			if tt.expectError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestBackupConfigDefaults(t *testing.T) {
	b := &BackupConfig{}
	b.ApplyDefaults()

	if !b.IsEnabled() {
		t.Error("expected backups enabled by default")
	}
	if b.Type != BackupTypeSFTP {
		t.Errorf("expected default type sftp, got %s", b.Type)
	}
	if b.Port != 22 {
		t.Errorf("expected default port 22, got %d", b.Port)
	}
	if b.RetentionDays != 30 {
		t.Errorf("expected default retention 30, got %d", b.RetentionDays)
	}
	if b.Schedule != "0 2 * * *" {
		t.Errorf("unexpected default schedule: %s", b.Schedule)
	}
}

func TestBackupIsEnabledNilReceiver(t *testing.T) {
	var b *BackupConfig
	if b.IsEnabled() {
		t.Error("nil backup config must report disabled")
	}
}

func TestHostConfigToPyinfraHost(t *testing.T) {
	h := &HostConfig{
		Name:    "web1",
		SSHHost: "10.0.0.5",
		Env:     "staging",
		Data:    map[string]interface{}{"custom": "value"},
	}
	h.ApplyDefaults()

	m := h.ToPyinfraHost()
	if m["name"] != "web1" || m["ssh_host"] != "10.0.0.5" {
		t.Errorf("unexpected host mapping: %v", m)
	}
	if m["ssh_user"] != "deploy" || m["ssh_port"] != 22 {
		t.Errorf("expected connection defaults, got %v", m)
	}

	data := m["data"].(map[string]interface{})
	if data["app_user"] != "app" {
		t.Errorf("expected default app_user, got %v", data["app_user"])
	}
	if _, ok := data["ssh_user"]; ok {
		t.Error("ssh_user belongs to the connection mapping, not the data bag")
	}
	if data["app_hostname"] != "10.0.0.5" {
		t.Errorf("expected app_hostname to fall back to ssh_host, got %v", data["app_hostname"])
	}
	if data["custom"] != "value" {
		t.Errorf("expected data bag entries to survive, got %v", data)
	}
	if data["backup"] != nil {
		t.Errorf("expected nil backup, got %v", data["backup"])
	}
}

func TestHostConfigDataBagOverridesFields(t *testing.T) {
	h := &HostConfig{
		Name:    "web1",
		SSHHost: "10.0.0.5",
		AppUser: "app",
		Data: map[string]interface{}{
			"app_user": "custom",
			"env":      "canary",
		},
	}
	h.ApplyDefaults()

	data := h.ToPyinfraHost()["data"].(map[string]interface{})
	if data["app_user"] != "custom" {
		t.Errorf("data bag must override explicit fields, got app_user=%v", data["app_user"])
	}
	if data["env"] != "canary" {
		t.Errorf("data bag must override explicit fields, got env=%v", data["env"])
	}
	if data["services"] == nil && h.Services != nil {
		t.Errorf("untouched keys must keep field values, got %v", data)
	}
}

func TestHostRequiredModules(t *testing.T) {
	enabled := true
	disabled := false

	tests := []struct {
		name   string
		backup *BackupConfig
		want   int
	}{
		{name: "no backup", backup: nil, want: 0},
		{name: "backup enabled", backup: &BackupConfig{Enabled: &enabled}, want: 1},
		{name: "backup disabled", backup: &BackupConfig{Enabled: &disabled}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &HostConfig{Name: "h", SSHHost: "1.2.3.4", Backup: tt.backup}
			mods := h.RequiredModules()
			if len(mods) != tt.want {
				t.Fatalf("expected %d required modules, got %v", tt.want, mods)
			}
			if tt.want == 1 && mods[0] != "rclone" {
				t.Errorf("expected rclone, got %s", mods[0])
			}
		})
	}
}

func TestHostConfigValidationIncludesBackup(t *testing.T) {
	h := &HostConfig{
		Name:    "web1",
		SSHHost: "10.0.0.5",
		Backup:  &BackupConfig{Type: "ftp"},
	}

	err := h.Validate()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), `host "web1" validation failed`) {
		t.Errorf("expected host subject in error, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "invalid backup type") {
		t.Errorf("expected backup problem in error, got %q", err.Error())
	}
}
