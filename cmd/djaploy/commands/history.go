package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Technology-Company/djaploy/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var (
		env   string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded configure and deploy runs",
		Long: `Show the project's recorded runs, newest first.

Every configure-server, deploy, and sync-certs invocation is recorded in a
local history database. Without --env, runs for every environment are
listed.`,
		Example: `  # Last ten runs across all environments
  djaploy history

  # Production deploys only, machine readable
  djaploy history --env production --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			project, err := loadProject()
			if err != nil {
				return err
			}

			store, err := stores.Open(ctx, project.StatePath())
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(ctx, env, limit)
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(runs)
			}

			if len(runs) == 0 {
				fmt.Println("No recorded runs.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tKIND\tENV\tSTATUS\tARTIFACT")
			for _, run := range runs {
				artifactName := ""
				if run.ArtifactPath != "" {
					artifactName = filepath.Base(run.ArtifactPath)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					run.StartedAt.Format("2006-01-02 15:04:05"),
					run.Kind,
					run.Env,
					run.Status,
					artifactName,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&env, "env", "e", "", "filter runs by environment")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of runs to show")

	return cmd
}
