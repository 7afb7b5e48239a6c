package tag

import (
	"time"
)

const EntityTag = "tag"

// ArtifactHead records which job produced which artifact root at tag time.
type ArtifactHead struct {
	JobID string `yaml:"job_id"`
	Path  string `yaml:"path"`
}

// Head is an immutable named pointer to a set of artifact roots plus the
// provenance of where they came from. Unique per (repo id, tag name);
// recreating a tag under an existing name replaces the head record only.
type Head struct {
	RepoID      string         `yaml:"repo_id"`
	Name        string         `yaml:"name"`
	RunName     string         `yaml:"run_name,omitempty"`
	HubUserName string         `yaml:"hub_user_name,omitempty"`
	CreatedAt   time.Time      `yaml:"created_at"`
	Artifacts   []ArtifactHead `yaml:"artifacts,omitempty"`
}

func (h *Head) JobIDs() []string {
	seen := map[string]bool{}
	var ids []string
	for _, a := range h.Artifacts {
		if !seen[a.JobID] {
			seen[a.JobID] = true
			ids = append(ids, a.JobID)
		}
	}
	return ids
}
