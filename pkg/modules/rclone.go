package modules

import (
	"github.com/Technology-Company/djaploy/pkg/script"
)

// RcloneModule provisions the backup transport on hosts with backups
// enabled: installs rclone, writes the remote config for the host's
// transport (sftp or s3), and schedules the backup cron jobs.
//
// It is appended automatically by the module loader whenever any host in
// the inventory has an enabled backup config.
type RcloneModule struct {
	Hooks
}

// NewRcloneModule builds the rclone module. Transport settings come from
// each host's backup config, so there are no project-level options.
func NewRcloneModule(opts map[string]interface{}) (Module, error) {
	return &RcloneModule{}, nil
}

func (m *RcloneModule) Name() string { return "rclone" }

func (m *RcloneModule) Imports() []string {
	return []string{
		"import io",
		"from pyinfra.operations import server, files",
		"from pyinfra.facts.server import Which",
	}
}

func (m *RcloneModule) ConfigureServer(b *script.Builder, ctx *Context) error {
	b.Assign("backup", "host.data.get('backup')")
	b.If("backup and backup.get('enabled')", func(b *script.Builder) {
		b.IfFactMissing("Which", script.Str("rclone"), func(b *script.Builder) {
			b.Op("server.shell", "Install rclone",
				script.KV("commands", script.Strs([]string{
					"curl -fsSL https://rclone.org/install.sh | bash",
				})),
				script.KV("_sudo", script.Bool(true)),
			)
		})

		m.emitRemoteConfig(b)
		m.emitSchedule(b)
	})
	return nil
}

// emitRemoteConfig writes the rclone remote named "backup" for the host's
// transport type.
func (m *RcloneModule) emitRemoteConfig(b *script.Builder) {
	b.IfElse("backup.get('type') == 'sftp'",
		func(b *script.Builder) {
			b.Assign("remote_conf", "'\\n'.join([")
			b.Linef("    '[backup]',")
			b.Linef("    'type = sftp',")
			b.Linef("    'host = ' + str(backup.get('host', '')),")
			b.Linef("    'user = ' + str(backup.get('user', '')),")
			b.Linef("    'port = ' + str(backup.get('port', 22)),")
			b.Linef("    'pass = ' + str(backup.get('password', '')),")
			b.Linef("])")
			b.Assign("remote_root", "'backup:' + str(backup.get('backup_path', '/backups'))")
		},
		func(b *script.Builder) {
			b.Assign("remote_conf", "'\\n'.join([")
			b.Linef("    '[backup]',")
			b.Linef("    'type = s3',")
			b.Linef("    'provider = Other',")
			b.Linef("    'endpoint = ' + str(backup.get('s3_endpoint', '')),")
			b.Linef("    'region = ' + str(backup.get('s3_region', '')),")
			b.Linef("    'access_key_id = ' + str(backup.get('s3_access_key', '')),")
			b.Linef("    'secret_access_key = ' + str(backup.get('s3_secret_key', '')),")
			b.Linef("])")
			b.Assign("remote_root", "'backup:' + str(backup.get('s3_bucket', '')) + str(backup.get('backup_path', '/backups'))")
		},
	)

	b.Op("files.directory", "Create rclone config directory",
		script.KV("path", script.FStr("/home/{app_user}/.config/rclone")),
		script.KV("user", script.Raw("app_user")),
		script.KV("group", script.Raw("app_user")),
		script.KV("_sudo", script.Bool(true)),
	)

	b.Op("files.put", "Write rclone backup remote config",
		script.KV("src", script.Raw("io.StringIO(remote_conf)")),
		script.KV("dest", script.FStr("/home/{app_user}/.config/rclone/rclone.conf")),
		script.KV("user", script.Raw("app_user")),
		script.KV("group", script.Raw("app_user")),
		script.KV("mode", script.Str("600")),
		script.KV("_sudo", script.Bool(true)),
	)
}

// emitSchedule installs the backup and retention cron entries from the
// host's cron expression.
func (m *RcloneModule) emitSchedule(b *script.Builder) {
	b.Assign("schedule_parts", "str(backup.get('schedule', '0 2 * * *')).split()")
	b.Assign("retention_days", "backup.get('retention_days', 30)")
	b.Assign("backup_cmd", "f'rclone copy /home/{app_user}/apps {remote_root}/apps'")
	b.Assign("prune_cmd", "f'rclone delete --min-age {retention_days}d {remote_root}/apps'")

	b.Op("server.crontab", "Schedule application backup",
		script.KV("command", script.Raw("backup_cmd")),
		script.KV("user", script.Raw("app_user")),
		script.KV("cron_name", script.Str("djaploy-backup")),
		script.KV("minute", script.Raw("schedule_parts[0]")),
		script.KV("hour", script.Raw("schedule_parts[1]")),
		script.KV("day_of_month", script.Raw("schedule_parts[2]")),
		script.KV("month", script.Raw("schedule_parts[3]")),
		script.KV("day_of_week", script.Raw("schedule_parts[4]")),
		script.KV("_sudo", script.Bool(true)),
	)

	b.Op("server.crontab", "Schedule backup retention pruning",
		script.KV("command", script.Raw("prune_cmd")),
		script.KV("user", script.Raw("app_user")),
		script.KV("cron_name", script.Str("djaploy-backup-prune")),
		script.KV("minute", script.Raw("schedule_parts[0]")),
		script.KV("hour", script.Raw("schedule_parts[1]")),
		script.KV("day_of_month", script.Raw("schedule_parts[2]")),
		script.KV("month", script.Raw("schedule_parts[3]")),
		script.KV("day_of_week", script.Raw("schedule_parts[4]")),
		script.KV("_sudo", script.Bool(true)),
	)
}
