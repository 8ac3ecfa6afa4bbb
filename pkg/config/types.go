package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance for config structs.
var validate = validator.New(validator.WithRequiredStructEnabled())

// DefaultModules are the modules enabled when a project does not list any.
var DefaultModules = []string{"core", "nginx", "systemd"}

// ProjectConfig is the top-level djaploy configuration for a project.
type ProjectConfig struct {
	// ProjectName identifies the application being deployed.
	ProjectName string `yaml:"project_name" validate:"required"`

	// ProjectDir is the root of the application source tree.
	ProjectDir string `yaml:"project_dir,omitempty"`

	// GitDir is the repository used for artifact creation. Defaults to
	// ProjectDir when empty.
	GitDir string `yaml:"git_dir,omitempty"`

	// DjaployDir contains deploy_files/ and inventory/ for the project.
	DjaployDir string `yaml:"djaploy_dir" validate:"required"`

	// ManagePyPath is the project-relative path to manage.py, if any.
	ManagePyPath string `yaml:"manage_py_path,omitempty"`

	// AppUser is the remote user the application runs as.
	AppUser string `yaml:"app_user" validate:"required"`

	// SSHUser is the default user for SSH connections.
	SSHUser string `yaml:"ssh_user,omitempty"`

	// PythonVersion is the interpreter version installed on hosts (major.minor).
	PythonVersion string `yaml:"python_version,omitempty"`

	// PythonCompile selects compiling the interpreter from source instead of
	// installing distribution packages.
	PythonCompile bool `yaml:"python_compile,omitempty"`

	// Modules is the ordered list of module names to run.
	Modules []string `yaml:"modules,omitempty"`

	// ModuleConfigs maps module name to module-specific options.
	ModuleConfigs map[string]map[string]interface{} `yaml:"module_configs,omitempty"`

	// ArtifactDir is where deployment tarballs are written, relative to
	// ProjectDir unless absolute.
	ArtifactDir string `yaml:"artifact_dir,omitempty"`

	// SSLCertPath and SSLKeyPath point at pre-provisioned certificates.
	SSLCertPath string `yaml:"ssl_cert_path,omitempty"`
	SSLKeyPath  string `yaml:"ssl_key_path,omitempty"`

	// Services and TimerServices are project-wide defaults; hosts may
	// declare their own lists.
	Services      []string `yaml:"services,omitempty"`
	TimerServices []string `yaml:"timer_services,omitempty"`
}

// ApplyDefaults fills in the documented default values for unset fields.
func (c *ProjectConfig) ApplyDefaults() {
	if c.AppUser == "" {
		c.AppUser = "app"
	}
	if c.SSHUser == "" {
		c.SSHUser = "deploy"
	}
	if c.PythonVersion == "" {
		c.PythonVersion = "3.11"
	}
	if len(c.Modules) == 0 {
		c.Modules = append([]string(nil), DefaultModules...)
	}
	if c.ArtifactDir == "" {
		c.ArtifactDir = "deployment"
	}
	if c.GitDir == "" {
		c.GitDir = c.ProjectDir
	}
}

// Validate checks required fields and aggregates every failure into a single
// descriptive error. It is pure and performs no I/O.
func (c *ProjectConfig) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s is required", yamlFieldName(fe.StructField())))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Subject: "configuration", Problems: problems}
	}
	return nil
}

// DeployFilesDir returns the directory holding per-environment deploy files.
func (c *ProjectConfig) DeployFilesDir() string {
	return filepath.Join(c.DjaployDir, "deploy_files")
}

// InventoryDir returns the default inventory directory.
func (c *ProjectConfig) InventoryDir() string {
	return filepath.Join(c.DjaployDir, "inventory")
}

// StatePath returns the path of the deployment history database.
func (c *ProjectConfig) StatePath() string {
	return filepath.Join(c.DjaployDir, "state.db")
}

// ModuleConfig returns the options for a module, never nil.
func (c *ProjectConfig) ModuleConfig(name string) map[string]interface{} {
	if opts, ok := c.ModuleConfigs[name]; ok {
		return opts
	}
	return map[string]interface{}{}
}

// BackupTypeSFTP and BackupTypeS3 are the supported backup transports.
const (
	BackupTypeSFTP = "sftp"
	BackupTypeS3   = "s3"
)

// BackupConfig describes the backup transport and schedule for a host.
type BackupConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Type    string `yaml:"type,omitempty"`

	// SFTP transport settings.
	Host     string `yaml:"host,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	Port     int    `yaml:"port,omitempty"`

	// S3-compatible object storage settings.
	S3Endpoint  string `yaml:"s3_endpoint,omitempty"`
	S3Region    string `yaml:"s3_region,omitempty"`
	S3AccessKey string `yaml:"s3_access_key,omitempty"`
	S3SecretKey string `yaml:"s3_secret_key,omitempty"`
	S3Bucket    string `yaml:"s3_bucket,omitempty"`

	BackupPath    string   `yaml:"backup_path,omitempty"`
	RetentionDays int      `yaml:"retention_days,omitempty"`
	Databases     []string `yaml:"databases,omitempty"`
	BackupMedia   *bool    `yaml:"backup_media,omitempty"`

	// Schedule is a cron expression.
	Schedule string `yaml:"schedule,omitempty"`
}

// ApplyDefaults fills in default backup settings.
func (b *BackupConfig) ApplyDefaults() {
	if b.Enabled == nil {
		enabled := true
		b.Enabled = &enabled
	}
	if b.Type == "" {
		b.Type = BackupTypeSFTP
	}
	if b.Port == 0 {
		b.Port = 22
	}
	if b.BackupPath == "" {
		b.BackupPath = "/backups"
	}
	if b.RetentionDays == 0 {
		b.RetentionDays = 30
	}
	if len(b.Databases) == 0 {
		b.Databases = []string{"default.db"}
	}
	if b.BackupMedia == nil {
		media := true
		b.BackupMedia = &media
	}
	if b.Schedule == "" {
		b.Schedule = "0 2 * * *"
	}
}

// IsEnabled reports whether backups are turned on for this config.
// A nil receiver reports false.
func (b *BackupConfig) IsEnabled() bool {
	return b != nil && (b.Enabled == nil || *b.Enabled)
}

// Validate checks transport-specific required fields. The transports are
// mutually exclusive: sftp needs connection credentials, s3 needs object
// storage credentials, anything else is rejected.
func (b *BackupConfig) Validate() error {
	switch b.Type {
	case BackupTypeSFTP:
		if b.Host == "" || b.User == "" {
			return &ValidationError{
				Subject:  "backup",
				Problems: []string{"sftp backup requires host and user"},
			}
		}
	case BackupTypeS3:
		if b.S3Endpoint == "" || b.S3AccessKey == "" || b.S3SecretKey == "" || b.S3Bucket == "" {
			return &ValidationError{
				Subject:  "backup",
				Problems: []string{"s3 backup requires endpoint, access_key, secret_key, and bucket"},
			}
		}
	default:
		return &ValidationError{
			Subject:  "backup",
			Problems: []string{fmt.Sprintf("invalid backup type: %q", b.Type)},
		}
	}
	return nil
}

// HostConfig describes a single deployment target.
type HostConfig struct {
	Name    string `yaml:"name" validate:"required"`
	SSHHost string `yaml:"ssh_host" validate:"required"`
	SSHUser string `yaml:"ssh_user,omitempty"`
	SSHPort int    `yaml:"ssh_port,omitempty"`

	AppUser     string `yaml:"app_user,omitempty"`
	AppHostname string `yaml:"app_hostname,omitempty"`

	// Env tags the host with its environment. Defaults to the inventory
	// file's environment when empty.
	Env string `yaml:"env,omitempty"`

	Services      []string `yaml:"services,omitempty"`
	TimerServices []string `yaml:"timer_services,omitempty"`

	// Domains are free-form domain descriptors consumed by modules
	// (e.g. {identifier: ..., type: tailscale, domains: [...]}).
	Domains []map[string]interface{} `yaml:"domains,omitempty"`

	Backup *BackupConfig `yaml:"backup,omitempty"`

	// Data is a free-form bag merged into the pyinfra host data.
	Data map[string]interface{} `yaml:"data,omitempty"`
}

// ApplyDefaults fills in default connection settings.
func (h *HostConfig) ApplyDefaults() {
	if h.SSHUser == "" {
		h.SSHUser = "deploy"
	}
	if h.SSHPort == 0 {
		h.SSHPort = 22
	}
	if h.AppUser == "" {
		h.AppUser = "app"
	}
	if h.Env == "" {
		h.Env = "production"
	}
	if h.Backup != nil {
		h.Backup.ApplyDefaults()
	}
}

// Validate checks the host entry, including its backup config.
func (h *HostConfig) Validate() error {
	var problems []string

	if err := validate.Struct(h); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("host validation failed: %w", err)
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s is required", yamlFieldName(fe.StructField())))
		}
	}

	if h.Backup != nil {
		if err := h.Backup.Validate(); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		subject := "host"
		if h.Name != "" {
			subject = fmt.Sprintf("host %q", h.Name)
		}
		return &ValidationError{Subject: subject, Problems: problems}
	}
	return nil
}

// ToPyinfraHost converts the host to the plain mapping consumed by the
// pyinfra inventory. The free-form Data bag is merged into the data mapping
// last, so it overrides the explicit fields on collision.
func (h *HostConfig) ToPyinfraHost() map[string]interface{} {
	hostname := h.AppHostname
	if hostname == "" {
		hostname = h.SSHHost
	}

	data := map[string]interface{}{
		"app_user":       h.AppUser,
		"app_hostname":   hostname,
		"env":            h.Env,
		"services":       h.Services,
		"timer_services": h.TimerServices,
		"domains":        h.Domains,
	}
	if h.Backup != nil {
		data["backup"] = h.Backup.toMap()
	} else {
		data["backup"] = nil
	}
	for k, v := range h.Data {
		data[k] = v
	}

	return map[string]interface{}{
		"name":     h.Name,
		"ssh_host": h.SSHHost,
		"ssh_user": h.SSHUser,
		"ssh_port": h.SSHPort,
		"data":     data,
	}
}

// RequiredModules returns modules this host pulls in based on its own
// configuration. A host with backups enabled requires the rclone transport
// module.
func (h *HostConfig) RequiredModules() []string {
	var mods []string
	if h.Backup.IsEnabled() {
		mods = append(mods, "rclone")
	}
	return mods
}

// toMap flattens the backup config for the inventory data bag.
func (b *BackupConfig) toMap() map[string]interface{} {
	return map[string]interface{}{
		"enabled":        b.IsEnabled(),
		"type":           b.Type,
		"host":           b.Host,
		"user":           b.User,
		"password":       b.Password,
		"port":           b.Port,
		"s3_endpoint":    b.S3Endpoint,
		"s3_region":      b.S3Region,
		"s3_access_key":  b.S3AccessKey,
		"s3_secret_key":  b.S3SecretKey,
		"s3_bucket":      b.S3Bucket,
		"backup_path":    b.BackupPath,
		"retention_days": b.RetentionDays,
		"databases":      b.Databases,
		"backup_media":   b.BackupMedia == nil || *b.BackupMedia,
		"schedule":       b.Schedule,
	}
}

// ValidationError aggregates every problem found in one validation pass so
// the operator sees the full list at once.
type ValidationError struct {
	// Subject names what was being validated (configuration, host, backup).
	Subject string

	// Problems are the individual failures.
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s validation failed: %s", e.Subject, strings.Join(e.Problems, ", "))
}

// yamlFieldName maps an exported struct field name to its yaml key.
func yamlFieldName(field string) string {
	switch field {
	case "ProjectName":
		return "project_name"
	case "DjaployDir":
		return "djaploy_dir"
	case "AppUser":
		return "app_user"
	case "SSHHost":
		return "ssh_host"
	default:
		return strings.ToLower(field)
	}
}
