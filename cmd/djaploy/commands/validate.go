package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Technology-Company/djaploy/pkg/config"
)

func newValidateCommand() *cobra.Command {
	var (
		env          string
		inventoryDir string
		watch        bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the project config and inventories",
		Long: `Validate the project configuration and host inventories without touching
any host.

Checks YAML syntax, schema conformance of inventory entries, required
fields, and backup transport settings. With --env only that environment's
inventory is checked; otherwise every inventory file is.`,
		Example: `  # Validate everything
  djaploy validate

  # Validate one environment and re-check on file changes
  djaploy validate --env staging --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			run := func() error {
				return runValidation(env, inventoryDir)
			}

			if err := run(); err != nil {
				if !watch {
					return err
				}
				log.Error().Err(err).Msg("Validation failed")
			} else {
				log.Info().Msg("Validation passed")
			}

			if !watch {
				return nil
			}
			return watchAndValidate(cmd.Context(), inventoryDir, run)
		},
	}

	cmd.Flags().StringVarP(&env, "env", "e", "", "validate only this environment's inventory")
	cmd.Flags().StringVar(&inventoryDir, "inventory-dir", "", "inventory directory (default <djaploy_dir>/inventory)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-validate when config or inventory files change")

	return cmd
}

// runValidation loads and validates the project config and the selected
// inventories, aggregating every failure.
func runValidation(env, inventoryDir string) error {
	project, err := loadProject()
	if err != nil {
		return err
	}

	dir := inventoryDir
	if dir == "" {
		dir = project.InventoryDir()
	}

	envs := []string{env}
	if env == "" {
		envs, err = discoverEnvironments(dir)
		if err != nil {
			return err
		}
	}

	var problems []string
	for _, e := range envs {
		hosts, err := config.LoadInventory(dir, e)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		log.Debug().Str("env", e).Int("hosts", len(hosts)).Msg("Inventory valid")
	}

	if len(problems) > 0 {
		return fmt.Errorf("validation failed:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

// discoverEnvironments lists the environments that have an inventory file.
func discoverEnvironments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory directory %s: %w", dir, err)
	}

	seen := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		switch ext {
		case ".yaml", ".yml", ".star":
			seen[strings.TrimSuffix(entry.Name(), ext)] = true
		}
	}

	envs := make([]string, 0, len(seen))
	for e := range seen {
		envs = append(envs, e)
	}
	sort.Strings(envs)

	if len(envs) == 0 {
		return nil, fmt.Errorf("no inventory files found in %s", dir)
	}
	return envs, nil
}

// watchAndValidate re-runs validation whenever the project config or an
// inventory file changes. Events are debounced since editors fire several
// per save.
func watchAndValidate(ctx context.Context, inventoryDir string, run func() error) error {
	project, err := loadProject()
	if err != nil {
		return err
	}

	dir := inventoryDir
	if dir == "" {
		dir = project.InventoryDir()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	cfgPath := configPath
	if cfgPath == "" {
		cfgPath = config.DefaultConfigFile
	}
	// Watch the directories, not the files: editors replace files on save,
	// which drops a watch on the file itself.
	if err := watcher.Add(filepath.Dir(cfgPath)); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch inventory directory: %w", err)
	}

	log.Info().Str("inventory_dir", dir).Msg("Watching for changes")

	var debounce *time.Timer
	revalidate := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-revalidate:
			if err := run(); err != nil {
				log.Error().Err(err).Msg("Validation failed")
			} else {
				log.Info().Msg("Validation passed")
			}
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(250*time.Millisecond, func() {
				select {
				case revalidate <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Watcher error")
		}
	}
}
