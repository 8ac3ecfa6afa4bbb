package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Technology-Company/djaploy/pkg/modules"
	"github.com/Technology-Company/djaploy/pkg/stores"
)

func newConfigureServerCommand() *cobra.Command {
	var (
		env           string
		inventoryDir  string
		skipPreflight bool
		keepFiles     bool
	)

	cmd := &cobra.Command{
		Use:   "configure-server",
		Short: "Provision servers for an environment",
		Long: `Provision every host in an environment's inventory.

Runs each module's configure lifecycle: application user creation, Python
and tooling installation, nginx, and any host-required modules such as the
rclone backup transport.`,
		Example: `  # Provision the staging hosts
  djaploy configure-server --env staging

  # Use an alternate inventory directory
  djaploy configure-server --env production --inventory-dir ./inventory`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			p, err := newPipeline(env, inventoryDir)
			if err != nil {
				return err
			}

			if err := p.preflight(ctx, skipPreflight); err != nil {
				return err
			}

			operations, err := modules.GenerateConfigureScript(p.moduleContext(""), p.mods)
			if err != nil {
				return err
			}

			finish := p.recordRun(ctx, &stores.Run{Kind: stores.RunKindConfigure})
			log.Info().
				Str("env", env).
				Int("hosts", len(p.hosts)).
				Int("modules", len(p.mods)).
				Msg("Configuring servers")

			err = p.execute(ctx, operations, keepFiles)
			finish(err)
			if err != nil {
				return err
			}

			log.Info().Str("env", env).Msg("Server configuration completed")
			return nil
		},
	}

	cmd.Flags().StringVarP(&env, "env", "e", "", "target environment (required)")
	cmd.Flags().StringVar(&inventoryDir, "inventory-dir", "", "inventory directory (default <djaploy_dir>/inventory)")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "skip SSH reachability checks")
	cmd.Flags().BoolVar(&keepFiles, "keep-files", false, "keep generated pyinfra files for inspection")
	_ = cmd.MarkFlagRequired("env")

	return cmd
}
