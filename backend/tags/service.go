package tags

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/raystack/salt/log"
	"gopkg.in/yaml.v3"

	"github.com/moorlabs/moor/core/artifact"
	"github.com/moorlabs/moor/core/job"
	"github.com/moorlabs/moor/core/run"
	"github.com/moorlabs/moor/core/tag"
	"github.com/moorlabs/moor/internal/errors"
	"github.com/moorlabs/moor/internal/store"
)

// JobLister resolves the jobs of a run.
type JobLister interface {
	List(ctx context.Context, repoID, runName string) ([]*job.Job, error)
}

// ArtifactAccess is the slice of the artifact service tagging needs.
type ArtifactAccess interface {
	List(ctx context.Context, repoID string, jobIDs []string, prefix string, recursive bool) ([]*artifact.Artifact, error)
	Upload(ctx context.Context, repoID, jobID, artifactName, localPath string) error
}

// Service manages immutable named snapshots of artifact sets.
type Service struct {
	l         log.Logger
	objects   store.ObjectStore
	jobs      JobLister
	artifacts ArtifactAccess
}

func NewService(l log.Logger, objects store.ObjectStore, jobs JobLister, artifacts ArtifactAccess) *Service {
	return &Service{l: l, objects: objects, jobs: jobs, artifacts: artifacts}
}

func tagKey(repoID, tagName string) string {
	return "tags/" + repoID + "/" + tagName
}

func (s *Service) Get(ctx context.Context, repoID, tagName string) (*tag.Head, error) {
	data, err := store.GetBytes(ctx, s.objects, tagKey(repoID, tagName))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NotFound(tag.EntityTag, "tag "+tagName+" in repo "+repoID)
		}
		return nil, err
	}
	var h tag.Head
	if err := yaml.Unmarshal(data, &h); err != nil {
		return nil, errors.InternalError(tag.EntityTag, "corrupt tag record "+tagName, err)
	}
	return &h, nil
}

func (s *Service) ListHeads(ctx context.Context, repoID string) ([]*tag.Head, error) {
	objs, err := s.objects.List(ctx, "tags/"+repoID+"/")
	if err != nil {
		return nil, err
	}
	heads := make([]*tag.Head, 0, len(objs))
	for _, o := range objs {
		h, err := s.Get(ctx, repoID, strings.TrimPrefix(o.Key, "tags/"+repoID+"/"))
		if err != nil {
			if errors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		heads = append(heads, h)
	}
	return heads, nil
}

// CreateFromRun snapshots the current artifact set of a run. Recreating an
// existing tag name replaces the head record; previously tagged objects are
// left alone because they may be shared.
func (s *Service) CreateFromRun(ctx context.Context, repoID, tagName, runName string) error {
	runJobs, err := s.jobs.List(ctx, repoID, runName)
	if err != nil {
		return err
	}
	if len(runJobs) == 0 {
		return errors.NotFound(run.EntityRun, "run "+runName+" in repo "+repoID)
	}

	head := &tag.Head{
		RepoID:      repoID,
		Name:        tagName,
		RunName:     runName,
		HubUserName: runJobs[0].HubUserName,
		CreatedAt:   time.Now().UTC(),
	}
	for _, j := range runJobs {
		roots, err := s.artifacts.List(ctx, repoID, []string{j.ID}, "", false)
		if err != nil {
			return err
		}
		seen := map[string]bool{}
		for _, a := range roots {
			if seen[a.Name] {
				continue
			}
			seen[a.Name] = true
			head.Artifacts = append(head.Artifacts, tag.ArtifactHead{JobID: j.ID, Path: a.Name})
		}
	}
	return s.putHead(ctx, head)
}

// CreateFromLocalDirs uploads local directories as fresh artifacts under a
// synthetic job-less namespace, then tags them. Lets callers snapshot data
// without ever running a job.
func (s *Service) CreateFromLocalDirs(ctx context.Context, repoID, hubUserName, tagName string, localDirs []string) error {
	jobID := tagName + "," + strings.Split(uuid.New().String(), "-")[0]
	head := &tag.Head{
		RepoID:      repoID,
		Name:        tagName,
		HubUserName: hubUserName,
		CreatedAt:   time.Now().UTC(),
	}
	for _, dir := range localDirs {
		name := filepath.Base(filepath.Clean(dir))
		if err := s.artifacts.Upload(ctx, repoID, jobID, name, dir); err != nil {
			return err
		}
		head.Artifacts = append(head.Artifacts, tag.ArtifactHead{JobID: jobID, Path: name})
	}
	return s.putHead(ctx, head)
}

// Delete removes the head only. Artifact objects are never garbage-collected
// here.
func (s *Service) Delete(ctx context.Context, repoID, tagName string) error {
	return s.objects.Delete(ctx, tagKey(repoID, tagName))
}

func (s *Service) putHead(ctx context.Context, head *tag.Head) error {
	data, err := yaml.Marshal(head)
	if err != nil {
		return errors.InternalError(tag.EntityTag, "unable to encode tag "+head.Name, err)
	}
	if err := store.PutBytes(ctx, s.objects, tagKey(head.RepoID, head.Name), data); err != nil {
		return err
	}
	s.l.Debug("wrote tag head", "repo", head.RepoID, "tag", head.Name, "run", head.RunName)
	return nil
}
