package repo

import "time"

const EntityRepo = "repo"

// Head tracks repository-level bookkeeping: when the repo last ran anything.
type Head struct {
	RepoID    string    `yaml:"repo_id"`
	LastRunAt time.Time `yaml:"last_run_at,omitempty"`
}

// RemoteCredentials is what the compute side needs to clone a private repo.
// Stored in the vault, never in the object store.
type RemoteCredentials struct {
	Protocol   string `yaml:"protocol"`
	OAuthToken string `yaml:"oauth_token,omitempty"`
	PrivateKey string `yaml:"private_key,omitempty"`
}
