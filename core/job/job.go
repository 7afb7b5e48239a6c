package job

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/moorlabs/moor/internal/errors"
)

const EntityJob = "job"

// GPU describes an accelerator requirement or allocation.
type GPU struct {
	Count     int    `yaml:"count"`
	Name      string `yaml:"name,omitempty"`
	MemoryMiB int    `yaml:"memory_mib,omitempty"`
}

// Requirements is the resource ask attached to a job spec. Zero values mean
// "no preference"; the sizing capability of the backend fills the gap.
type Requirements struct {
	CPUs      int  `yaml:"cpus,omitempty"`
	MemoryMiB int  `yaml:"memory_mib,omitempty"`
	GPU       *GPU `yaml:"gpu,omitempty"`
	ShmMiB    int  `yaml:"shm_mib,omitempty"`
	Spot      bool `yaml:"spot,omitempty"`
}

// ArtifactSpec names a path, relative to the job working directory, whose
// contents become run artifacts.
type ArtifactSpec struct {
	Path  string `yaml:"path"`
	Mount bool   `yaml:"mount,omitempty"`
}

// AppSpec exposes a port served by the job.
type AppSpec struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
	URL  string `yaml:"url,omitempty"`
}

// Spec is the immutable part of a job: what to execute and with which
// resources. Everything mutable lives on Job itself.
type Spec struct {
	Image        string            `yaml:"image"`
	Commands     []string          `yaml:"commands,omitempty"`
	Env          map[string]string `yaml:"env,omitempty"`
	WorkingDir   string            `yaml:"working_dir,omitempty"`
	Requirements Requirements      `yaml:"requirements,omitempty"`
	Artifacts    []ArtifactSpec    `yaml:"artifacts,omitempty"`
	Apps         []AppSpec         `yaml:"apps,omitempty"`
	MaxDuration  time.Duration     `yaml:"max_duration,omitempty"`
}

// Job is one schedulable unit of work, owned by the run that created it and
// unique per (repo id, job id).
type Job struct {
	RepoID      string `yaml:"repo_id"`
	ID          string `yaml:"id"`
	RunName     string `yaml:"run_name"`
	HubUserName string `yaml:"hub_user_name,omitempty"`

	Spec Spec `yaml:"spec"`

	Status      Status    `yaml:"status"`
	SubmittedAt time.Time `yaml:"submitted_at"`
	UpdatedAt   time.Time `yaml:"updated_at"`

	// RequestID is the compute handle once the job has been launched.
	RequestID    string `yaml:"request_id,omitempty"`
	InstanceType string `yaml:"instance_type,omitempty"`
	TagName      string `yaml:"tag_name,omitempty"`
}

// New builds a submitted job with a generated id. The run name ties the job
// to the run that owns it.
func New(repoID, runName string, spec Spec) (*Job, error) {
	if repoID == "" {
		return nil, errors.InvalidArgument(EntityJob, "repo id is empty")
	}
	if runName == "" {
		return nil, errors.InvalidArgument(EntityJob, "run name is empty")
	}
	if spec.Image == "" {
		return nil, errors.InvalidArgument(EntityJob, "image is empty")
	}
	now := time.Now().UTC()
	return &Job{
		RepoID:      repoID,
		ID:          runName + "," + strings.Split(uuid.New().String(), "-")[0],
		RunName:     runName,
		Spec:        spec,
		Status:      StatusSubmitted,
		SubmittedAt: now,
		UpdatedAt:   now,
	}, nil
}

// Head is the lightweight listing view of a job kept as its own record so
// run listings never load full specs.
type Head struct {
	ID          string    `yaml:"id"`
	RunName     string    `yaml:"run_name"`
	Status      Status    `yaml:"status"`
	SubmittedAt time.Time `yaml:"submitted_at"`
	UpdatedAt   time.Time `yaml:"updated_at"`
	TagName     string    `yaml:"tag_name,omitempty"`
}

func (j *Job) Head() *Head {
	return &Head{
		ID:          j.ID,
		RunName:     j.RunName,
		Status:      j.Status,
		SubmittedAt: j.SubmittedAt,
		UpdatedAt:   j.UpdatedAt,
		TagName:     j.TagName,
	}
}

func (h *Head) IsFinished() bool {
	return h.Status.IsFinished()
}
