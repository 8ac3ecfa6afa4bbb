package commands

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Technology-Company/djaploy/pkg/config"
	"github.com/Technology-Company/djaploy/pkg/modules"
	"github.com/Technology-Company/djaploy/pkg/runner"
	"github.com/Technology-Company/djaploy/pkg/script"
	"github.com/Technology-Company/djaploy/pkg/stores"
	"github.com/Technology-Company/djaploy/pkg/telemetry"
	sshtransport "github.com/Technology-Company/djaploy/pkg/transports/ssh"
)

// pipeline bundles the loaded project state every provisioning command
// needs: config, inventory, resolved modules, and a logger.
type pipeline struct {
	project *config.ProjectConfig
	hosts   []*config.HostConfig
	mods    []modules.Module
	logger  *telemetry.Logger
	env     string
}

// newPipeline loads the project config, the environment's inventory, and the
// resolved module list.
func newPipeline(env, inventoryDir string) (*pipeline, error) {
	project, err := loadProject()
	if err != nil {
		return nil, err
	}

	hosts, err := loadHosts(project, inventoryDir, env)
	if err != nil {
		return nil, err
	}

	mods, err := modules.Load(project, hosts)
	if err != nil {
		return nil, err
	}

	return &pipeline{
		project: project,
		hosts:   hosts,
		mods:    mods,
		logger:  newLogger().WithEnv(env),
		env:     env,
	}, nil
}

// moduleContext builds the generation context handed to modules.
func (p *pipeline) moduleContext(artifactPath string) *modules.Context {
	return &modules.Context{
		Project:      p.project,
		Env:          p.env,
		ArtifactPath: artifactPath,
	}
}

// preflight verifies SSH reachability of every host unless skipped.
func (p *pipeline) preflight(ctx context.Context, skip bool) error {
	if skip {
		log.Warn().Msg("Skipping preflight connection checks")
		return nil
	}
	log.Info().Int("hosts", len(p.hosts)).Msg("Running preflight connection checks")
	return sshtransport.Preflight(ctx, p.hosts, p.logger)
}

// execute renders the inventory and hands both files to pyinfra.
func (p *pipeline) execute(ctx context.Context, operations string, keepFiles bool) error {
	inventory := script.RenderInventory(p.hosts)

	r := runner.New()
	r.KeepFiles = keepFiles
	r.Logger = p.logger
	return r.Run(ctx, inventory, operations)
}

// recordRun opens the deployment history store and records the run start.
// The returned finish function records the terminal status; it accepts the
// command's final error. History failures are logged, never fatal: a broken
// state database must not block a deploy.
func (p *pipeline) recordRun(ctx context.Context, run *stores.Run) func(error) {
	run.ID = uuid.New().String()
	run.Env = p.env
	run.HostCount = len(p.hosts)
	run.Status = stores.RunStatusRunning
	run.StartedAt = time.Now()

	store, err := stores.Open(ctx, p.project.StatePath())
	if err != nil {
		p.logger.WithError(err).Warn("deployment history unavailable")
		return func(error) {}
	}

	if err := store.CreateRun(ctx, run); err != nil {
		p.logger.WithError(err).Warn("failed to record run")
		store.Close()
		return func(error) {}
	}

	return func(cmdErr error) {
		defer store.Close()

		status := stores.RunStatusCompleted
		var errMsg *string
		if cmdErr != nil {
			status = stores.RunStatusFailed
			msg := cmdErr.Error()
			errMsg = &msg
		}
		if err := store.FinishRun(ctx, run.ID, status, errMsg); err != nil {
			p.logger.WithError(err).Warn("failed to finish run record")
		}
	}
}
