package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Technology-Company/djaploy/pkg/config"
	"github.com/Technology-Company/djaploy/pkg/stores"
	sshtransport "github.com/Technology-Company/djaploy/pkg/transports/ssh"
)

// hostStatus is what the status command reports per host.
type hostStatus struct {
	Host    string `json:"host"`
	SSHHost string `json:"ssh_host"`
	Release string `json:"release,omitempty"`
	Error   string `json:"error,omitempty"`
}

func newStatusCommand() *cobra.Command {
	var (
		env          string
		inventoryDir string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the deployed release on each host",
		Long: `Connect to every host in an environment's inventory and read the release
marker written by the last deploy, then compare against the deployment
history recorded locally.`,
		Example: `  # Show what is running in production
  djaploy status --env production

  # Machine-readable output
  djaploy status --env production --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			project, err := loadProject()
			if err != nil {
				return err
			}
			hosts, err := loadHosts(project, inventoryDir, env)
			if err != nil {
				return err
			}

			statuses := collectStatuses(ctx, project, hosts)

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(statuses)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "HOST\tSSH HOST\tRELEASE")
			for _, s := range statuses {
				release := s.Release
				if s.Error != "" {
					release = "error: " + s.Error
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.Host, s.SSHHost, release)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			printLastDeploy(ctx, project, env)
			return nil
		},
	}

	cmd.Flags().StringVarP(&env, "env", "e", "", "target environment (required)")
	cmd.Flags().StringVar(&inventoryDir, "inventory-dir", "", "inventory directory (default <djaploy_dir>/inventory)")
	_ = cmd.MarkFlagRequired("env")

	return cmd
}

// collectStatuses reads each host's release marker concurrently.
func collectStatuses(ctx context.Context, project *config.ProjectConfig, hosts []*config.HostConfig) []hostStatus {
	statuses := make([]hostStatus, len(hosts))

	var wg sync.WaitGroup
	for i, host := range hosts {
		wg.Add(1)
		go func(i int, h *config.HostConfig) {
			defer wg.Done()
			statuses[i] = readHostStatus(ctx, project, h)
		}(i, host)
	}
	wg.Wait()

	return statuses
}

// readHostStatus connects to one host and reads its RELEASE marker.
func readHostStatus(ctx context.Context, project *config.ProjectConfig, h *config.HostConfig) hostStatus {
	status := hostStatus{Host: h.Name, SSHHost: h.SSHHost}

	client, err := sshtransport.Dial(ctx, sshtransport.FromHost(h))
	if err != nil {
		status.Error = err.Error()
		return status
	}
	defer client.Close()

	markerPath := fmt.Sprintf("/home/%s/apps/%s/RELEASE", h.AppUser, project.ProjectName)
	data, err := client.ReadFile(markerPath)
	status.applyMarker(data, err)
	return status
}

// applyMarker fills in the release fields from a marker read. Only a missing
// marker means the host has never been deployed to; any other failure
// (permissions, broken SFTP subsystem) is reported as an error.
func (s *hostStatus) applyMarker(data []byte, err error) {
	switch {
	case err == nil:
		s.Release = strings.TrimSpace(string(data))
	case errors.Is(err, fs.ErrNotExist):
		s.Release = "not deployed"
	default:
		s.Error = err.Error()
	}
}

// printLastDeploy adds the most recent recorded deploy, when history exists.
func printLastDeploy(ctx context.Context, project *config.ProjectConfig, env string) {
	store, err := stores.Open(ctx, project.StatePath())
	if err != nil {
		return
	}
	defer store.Close()

	run, err := store.LatestDeploy(ctx, env)
	if err != nil || run == nil {
		return
	}

	fmt.Printf("\nLast recorded deploy: %s (%s) at %s\n",
		run.ArtifactPath, run.Mode, run.StartedAt.Format("2006-01-02 15:04:05"))
}
