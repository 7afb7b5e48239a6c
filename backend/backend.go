// Package backend composes the per-provider capabilities into one façade per
// configured cloud account. Every method is a thin delegation; behavior lives
// in the component services.
package backend

import (
	"context"
	"time"

	"github.com/raystack/salt/log"
	"github.com/spf13/afero"

	"github.com/moorlabs/moor/backend/artifacts"
	"github.com/moorlabs/moor/backend/cache"
	"github.com/moorlabs/moor/backend/jobs"
	logsvc "github.com/moorlabs/moor/backend/logs"
	"github.com/moorlabs/moor/backend/repos"
	"github.com/moorlabs/moor/backend/runs"
	"github.com/moorlabs/moor/backend/secrets"
	"github.com/moorlabs/moor/backend/tags"
	"github.com/moorlabs/moor/core/artifact"
	"github.com/moorlabs/moor/core/compute"
	"github.com/moorlabs/moor/core/job"
	corelogs "github.com/moorlabs/moor/core/logs"
	"github.com/moorlabs/moor/core/repo"
	"github.com/moorlabs/moor/core/run"
	"github.com/moorlabs/moor/core/secret"
	"github.com/moorlabs/moor/core/tag"
	"github.com/moorlabs/moor/internal/store"
)

// Backend binds all capabilities for one configured provider account.
type Backend struct {
	name    string
	objects store.ObjectStore
	sink    corelogs.Sink

	jobs      *jobs.Service
	runs      *runs.Service
	artifacts *artifacts.Service
	tags      *tags.Service
	secrets   *secrets.Service
	repos     *repos.Service
	logs      *logsvc.Service
	cache     *cache.Service
}

// New wires the component services over the provider's concrete capability
// handles. Clients are owned by the caller and constructed once per backend
// instance; there is no ambient session state.
func New(name string, l log.Logger, objects store.ObjectStore, cmp compute.Compute,
	vault secret.Vault, sink corelogs.Sink, fs afero.Fs,
) *Backend {
	jobService := jobs.NewService(l, objects, cmp)
	artifactService := artifacts.NewService(l, objects, fs)
	return &Backend{
		name:      name,
		objects:   objects,
		sink:      sink,
		jobs:      jobService,
		runs:      runs.NewService(l, objects, cmp, jobService),
		artifacts: artifactService,
		tags:      tags.NewService(l, objects, jobService, artifactService),
		secrets:   secrets.NewService(l, objects, vault),
		repos:     repos.NewService(l, objects, vault),
		logs:      logsvc.NewService(l, sink, jobService),
		cache:     cache.NewService(l, objects),
	}
}

func (b *Backend) Name() string {
	return b.name
}

// CreateRun prepares log groups for the repo and allocates a fresh run name.
func (b *Backend) CreateRun(ctx context.Context, repoID string) (string, error) {
	if err := b.sink.EnsureGroup(ctx, corelogs.GroupForRuns(repoID)); err != nil {
		return "", err
	}
	if err := b.sink.EnsureGroup(ctx, corelogs.GroupForRunners(repoID)); err != nil {
		return "", err
	}
	return b.runs.Allocate(ctx, repoID)
}

func (b *Backend) CreateJob(ctx context.Context, j *job.Job) error {
	return b.jobs.Create(ctx, j)
}

func (b *Backend) GetJob(ctx context.Context, repoID, jobID string) (*job.Job, error) {
	return b.jobs.Get(ctx, repoID, jobID)
}

func (b *Backend) ListJobs(ctx context.Context, repoID, runName string) ([]*job.Job, error) {
	return b.jobs.List(ctx, repoID, runName)
}

func (b *Backend) RunJob(ctx context.Context, j *job.Job, failedToStartStatus job.Status) error {
	return b.jobs.Run(ctx, j, failedToStartStatus)
}

func (b *Backend) StopJob(ctx context.Context, repoID, jobID string, abort bool) error {
	return b.jobs.Stop(ctx, repoID, jobID, abort)
}

func (b *Backend) ListJobHeads(ctx context.Context, repoID, runName string) ([]*job.Head, error) {
	return b.jobs.ListHeads(ctx, repoID, runName)
}

func (b *Backend) DeleteJobHead(ctx context.Context, repoID, jobID string) error {
	return b.jobs.DeleteHead(ctx, repoID, jobID)
}

// UpdateJobStatus is how runners report progress along the lifecycle.
func (b *Backend) UpdateJobStatus(ctx context.Context, j *job.Job, next job.Status) error {
	return b.jobs.UpdateStatus(ctx, j, next)
}

func (b *Backend) PredictInstanceType(ctx context.Context, j *job.Job) (*compute.InstanceType, error) {
	return b.jobs.PredictInstanceType(ctx, j)
}

func (b *Backend) ListRunHeads(ctx context.Context, repoID, runName string,
	includeRequestHeads bool, interruptedJobStatus job.Status,
) ([]*run.Head, error) {
	heads, err := b.jobs.ListHeads(ctx, repoID, runName)
	if err != nil {
		return nil, err
	}
	return b.runs.Reconcile(ctx, repoID, heads, includeRequestHeads, interruptedJobStatus)
}

func (b *Backend) PollLogs(ctx context.Context, req logsvc.PollRequest) ([]corelogs.Event, error) {
	return b.logs.Poll(ctx, req)
}

func (b *Backend) ListRunArtifactFiles(ctx context.Context, repoID, runName, prefix string, recursive bool) ([]*artifact.Artifact, error) {
	jobIDs, err := b.runJobIDs(ctx, repoID, runName)
	if err != nil {
		return nil, err
	}
	return b.artifacts.List(ctx, repoID, jobIDs, prefix, recursive)
}

func (b *Backend) DownloadRunArtifactFiles(ctx context.Context, repoID, runName, outputDir, filesPath string) error {
	arts, err := b.ListRunArtifactFiles(ctx, repoID, runName, "", true)
	if err != nil {
		return err
	}
	return b.artifacts.Download(ctx, repoID, arts, outputDir, filesPath)
}

func (b *Backend) UploadJobArtifactFiles(ctx context.Context, repoID, jobID, artifactName, localPath string) error {
	return b.artifacts.Upload(ctx, repoID, jobID, artifactName, localPath)
}

func (b *Backend) ListTagHeads(ctx context.Context, repoID string) ([]*tag.Head, error) {
	return b.tags.ListHeads(ctx, repoID)
}

func (b *Backend) GetTagHead(ctx context.Context, repoID, tagName string) (*tag.Head, error) {
	return b.tags.Get(ctx, repoID, tagName)
}

func (b *Backend) AddTagFromRun(ctx context.Context, repoID, tagName, runName string) error {
	return b.tags.CreateFromRun(ctx, repoID, tagName, runName)
}

func (b *Backend) AddTagFromLocalDirs(ctx context.Context, repoID, hubUserName, tagName string, localDirs []string) error {
	return b.tags.CreateFromLocalDirs(ctx, repoID, hubUserName, tagName, localDirs)
}

func (b *Backend) DeleteTagHead(ctx context.Context, repoID, tagName string) error {
	return b.tags.Delete(ctx, repoID, tagName)
}

func (b *Backend) ListRepoHeads(ctx context.Context) ([]*repo.Head, error) {
	return b.repos.ListHeads(ctx)
}

func (b *Backend) UpdateRepoLastRunAt(ctx context.Context, repoID string, lastRunAt time.Time) error {
	return b.repos.Touch(ctx, repoID, lastRunAt)
}

func (b *Backend) GetRepoCredentials(ctx context.Context, repoID string) (*repo.RemoteCredentials, error) {
	return b.repos.Credentials(ctx, repoID)
}

func (b *Backend) SaveRepoCredentials(ctx context.Context, repoID string, creds *repo.RemoteCredentials) error {
	return b.repos.SaveCredentials(ctx, repoID, creds)
}

func (b *Backend) DeleteRepo(ctx context.Context, repoID string) error {
	return b.repos.Delete(ctx, repoID)
}

func (b *Backend) ListSecretNames(ctx context.Context, repoID string) ([]string, error) {
	return b.secrets.ListNames(ctx, repoID)
}

func (b *Backend) GetSecret(ctx context.Context, repoID, name string) (*secret.Secret, error) {
	return b.secrets.Get(ctx, repoID, name)
}

func (b *Backend) AddSecret(ctx context.Context, repoID string, sec *secret.Secret) error {
	return b.secrets.Add(ctx, repoID, sec)
}

func (b *Backend) UpdateSecret(ctx context.Context, repoID string, sec *secret.Secret) error {
	return b.secrets.Update(ctx, repoID, sec)
}

func (b *Backend) DeleteSecret(ctx context.Context, repoID, name string) error {
	return b.secrets.Delete(ctx, repoID, name)
}

func (b *Backend) SignedDownloadURL(ctx context.Context, key string) (string, error) {
	return b.objects.SignedDownloadURL(ctx, key)
}

func (b *Backend) SignedUploadURL(ctx context.Context, key string) (string, error) {
	return b.objects.SignedUploadURL(ctx, key)
}

func (b *Backend) DeleteWorkflowCache(ctx context.Context, repoID, hubUserName, workflowName string) error {
	return b.cache.DeleteWorkflowCache(ctx, repoID, hubUserName, workflowName)
}

func (b *Backend) runJobIDs(ctx context.Context, repoID, runName string) ([]string, error) {
	heads, err := b.jobs.ListHeads(ctx, repoID, runName)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(heads))
	for _, h := range heads {
		ids = append(ids, h.ID)
	}
	return ids, nil
}
