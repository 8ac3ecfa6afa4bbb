package stores

import (
	"time"
)

// RunKind identifies which command produced a run record.
type RunKind string

const (
	RunKindConfigure RunKind = "configure"
	RunKindDeploy    RunKind = "deploy"
	RunKindSyncCerts RunKind = "sync-certs"
)

// RunStatus represents the status of a recorded run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one configure, deploy, or sync-certs invocation recorded in the
// project's deployment history.
type Run struct {
	ID   string  `json:"id"`
	Kind RunKind `json:"kind"`
	Env  string  `json:"env"`

	// Mode and ReleaseTag record how the deploy artifact was selected.
	// Empty for non-deploy runs.
	Mode       string `json:"mode,omitempty"`
	ReleaseTag string `json:"release_tag,omitempty"`

	// ArtifactPath and ArtifactChecksum identify the deployed tarball.
	ArtifactPath     string `json:"artifact_path,omitempty"`
	ArtifactChecksum string `json:"artifact_checksum,omitempty"`

	// HostCount is the number of inventory hosts targeted.
	HostCount int `json:"host_count"`

	Status      RunStatus  `json:"status"`
	Error       *string    `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
