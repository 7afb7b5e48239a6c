// Package gcp binds the backend capabilities to one GCP project: GCS for
// objects, GCE for compute, Secret Manager for the vault and Cloud Logging
// for the sink.
package gcp

import (
	"context"

	gcs "cloud.google.com/go/storage"
	gcompute "google.golang.org/api/compute/v1"
	logging "google.golang.org/api/logging/v2"
	secretmanager "google.golang.org/api/secretmanager/v1"

	"github.com/raystack/salt/log"
	"github.com/spf13/afero"

	"github.com/moorlabs/moor/backend"
	"github.com/moorlabs/moor/config"
	"github.com/moorlabs/moor/internal/errors"
)

const Name = "gcp"

// New constructs the GCP backend. Credentials come from application default
// credentials; every client is built once and owned here.
func New(ctx context.Context, l log.Logger, conf *config.GCPConfig) (*backend.Backend, error) {
	if conf == nil {
		return nil, &config.ConfigError{Code: config.CodeRequired, FieldPath: "gcp", Message: "gcp config is missing"}
	}

	storageClient, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, errors.InternalError("backend", "unable to create gcs client", err)
	}
	computeService, err := gcompute.NewService(ctx)
	if err != nil {
		return nil, errors.InternalError("backend", "unable to create compute client", err)
	}
	secretService, err := secretmanager.NewService(ctx)
	if err != nil {
		return nil, errors.InternalError("backend", "unable to create secret manager client", err)
	}
	loggingService, err := logging.NewService(ctx)
	if err != nil {
		return nil, errors.InternalError("backend", "unable to create logging client", err)
	}

	storage := NewStorage(storageClient, conf.Bucket)
	cmp := NewCompute(computeService, conf.Project, conf.Zone, conf.Network, conf.Bucket)
	vault := NewVault(secretService, conf.Project)
	sink := NewSink(loggingService, conf.Project)

	return backend.New(Name, l, storage, cmp, vault, sink, afero.NewOsFs()), nil
}
