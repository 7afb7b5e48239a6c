// Package local is the single-machine backend: objects and the vault live on
// the local filesystem, and log history degrades to job status transitions
// because there is no managed sink to query.
package local

import (
	"context"

	"github.com/raystack/salt/log"
	"github.com/spf13/afero"

	"github.com/moorlabs/moor/backend"
	"github.com/moorlabs/moor/config"
	"github.com/moorlabs/moor/core/compute"
	"github.com/moorlabs/moor/core/logs"
	"github.com/moorlabs/moor/internal/errors"
)

const Name = "local"

// NullSink has no history: every query reports NotFound so the log reader
// falls back to synthesizing events from job state.
type NullSink struct{}

func (NullSink) Query(ctx context.Context, q logs.Query) (logs.Page, error) {
	return logs.Page{}, errors.NotFound(logs.EntityLogs, q.Group+"/"+q.Stream)
}

func (NullSink) EnsureGroup(ctx context.Context, group string) error {
	return nil
}

// New constructs the local backend. Compute is injected: how jobs actually
// execute on this machine is the runner's concern, not the control plane's.
func New(l log.Logger, conf *config.LocalConfig, cmp compute.Compute) (*backend.Backend, error) {
	if conf == nil {
		return nil, &config.ConfigError{Code: config.CodeRequired, FieldPath: "local", Message: "local config is missing"}
	}
	fs := afero.NewOsFs()
	storage := NewStorage(fs, conf.RootDir)
	vault := NewVault(storage)
	return backend.New(Name, l, storage, cmp, vault, NullSink{}, fs), nil
}
