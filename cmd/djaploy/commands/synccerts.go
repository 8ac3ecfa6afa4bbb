package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Technology-Company/djaploy/pkg/modules"
	"github.com/Technology-Company/djaploy/pkg/stores"
)

func newSyncCertsCommand() *cobra.Command {
	var (
		env           string
		inventoryDir  string
		skipPreflight bool
		keepFiles     bool
	)

	cmd := &cobra.Command{
		Use:   "sync-certs",
		Short: "Renew managed certificates without a full deploy",
		Long: `Renew certificates on every host in an environment's inventory.

Only modules that manage certificates participate (Tailscale certificates
for domains of type tailscale). The command fails when no loaded module
manages certificates.`,
		Example: `  # Renew certificates on production hosts
  djaploy sync-certs --env production`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			p, err := newPipeline(env, inventoryDir)
			if err != nil {
				return err
			}

			operations, err := modules.GenerateSyncCertsScript(p.moduleContext(""), p.mods)
			if err != nil {
				return err
			}

			if err := p.preflight(ctx, skipPreflight); err != nil {
				return err
			}

			finish := p.recordRun(ctx, &stores.Run{Kind: stores.RunKindSyncCerts})
			log.Info().Str("env", env).Int("hosts", len(p.hosts)).Msg("Synchronizing certificates")

			err = p.execute(ctx, operations, keepFiles)
			finish(err)
			if err != nil {
				return err
			}

			log.Info().Str("env", env).Msg("Certificate synchronization completed")
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
