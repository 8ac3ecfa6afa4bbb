package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Technology-Company/djaploy/pkg/artifact"
	"github.com/Technology-Company/djaploy/pkg/modules"
	"github.com/Technology-Company/djaploy/pkg/runner"
	"github.com/Technology-Company/djaploy/pkg/stores"
)

func newDeployCommand() *cobra.Command {
	var (
		env           string
		local         bool
		latest        bool
		release       string
		inventoryDir  string
		skipPreflight bool
		keepFiles     bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the application to an environment",
		Long: `Build a deployment artifact from the project's git repository, upload it
to every host in the environment's inventory, and run each module's deploy
lifecycle: extraction, deploy files, certificates, dependency installation,
migrations, static collection, and service restarts.

Exactly one artifact source must be selected:
  --local     package the working tree, including uncommitted changes
  --latest    package the latest commit (HEAD)
  --release   package a tagged release`,
		Example: `  # Deploy uncommitted work to staging
  djaploy deploy --env staging --local

  # Deploy a tagged release to production
  djaploy deploy --env production --release v2.4.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			p, err := newPipeline(env, inventoryDir)
			if err != nil {
				return err
			}

			if err := p.preflight(ctx, skipPreflight); err != nil {
				return err
			}

			mode := artifact.ModeLocal
			switch {
			case latest:
				mode = artifact.ModeLatest
			case release != "":
				mode = artifact.ModeRelease
			}

			builder := &artifact.Builder{
				GitDir:      p.project.GitDir,
				OutputDir:   p.project.ArtifactDir,
				ProjectName: p.project.ProjectName,
				Logger:      p.logger,
			}
			art, err := builder.Build(ctx, mode, release)
			if err != nil {
				return err
			}

			// The project's prepare.py hook, when present, runs before the
			// deploy script is generated.
			prep := runner.New()
			prep.Logger = p.logger
			if err := prep.RunPrepare(ctx, p.project.ProjectDir); err != nil {
				return err
			}

			operations, err := modules.GenerateDeployScript(p.moduleContext(art.Path), p.mods)
			if err != nil {
				return err
			}

			finish := p.recordRun(ctx, &stores.Run{
				Kind:             stores.RunKindDeploy,
				Mode:             string(mode),
				ReleaseTag:       release,
				ArtifactPath:     art.Path,
				ArtifactChecksum: art.Checksum,
			})
			log.Info().
				Str("env", env).
				Str("mode", string(mode)).
				Str("artifact", art.Path).
				Int("hosts", len(p.hosts)).
				Msg("Deploying application")

			err = p.execute(ctx, operations, keepFiles)
			finish(err)
			if err != nil {
				return err
			}

			log.Info().Str("env", env).Str("artifact", art.Path).Msg("Deployment completed")
			return nil
		},
	}

	cmd.Flags().StringVarP(&env, "env", "e", "", "target environment (required)")
	cmd.Flags().BoolVar(&local, "local", false, "deploy the working tree, including uncommitted changes")
	cmd.Flags().BoolVar(&latest, "latest", false, "deploy the latest commit (HEAD)")
	cmd.Flags().StringVar(&release, "release", "", "deploy a tagged release")
	cmd.Flags().StringVar(&inventoryDir, "inventory-dir", "", "inventory directory (default <djaploy_dir>/inventory)")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "skip SSH reachability checks")
	cmd.Flags().BoolVar(&keepFiles, "keep-files", false, "keep generated pyinfra files for inspection")
	_ = cmd.MarkFlagRequired("env")
	cmd.MarkFlagsMutuallyExclusive("local", "latest", "release")
	cmd.MarkFlagsOneRequired("local", "latest", "release")

	return cmd
}
