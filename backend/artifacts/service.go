package artifacts

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/kushsharma/parallel"
	"github.com/raystack/salt/log"
	"github.com/spf13/afero"

	"github.com/moorlabs/moor/core/artifact"
	"github.com/moorlabs/moor/internal/errors"
	"github.com/moorlabs/moor/internal/store"
)

const (
	concurrentTicketPerSec = 10
	concurrentLimit        = 20
)

// Service moves files between a local filesystem and the run/job scoped
// artifact namespace of the object store.
type Service struct {
	l       log.Logger
	objects store.ObjectStore
	fs      afero.Fs
}

func NewService(l log.Logger, objects store.ObjectStore, fs afero.Fs) *Service {
	return &Service{l: l, objects: objects, fs: fs}
}

func jobArtifactsPrefix(repoID, jobID string) string {
	return "artifacts/" + repoID + "/" + jobID + "/"
}

// List enumerates artifact files for the given jobs, narrowed by prefix.
// Non-recursive listings fold deeper keys into directory entries, mirroring
// filesystem semantics over the flat key space.
func (s *Service) List(ctx context.Context, repoID string, jobIDs []string, prefix string, recursive bool) ([]*artifact.Artifact, error) {
	var out []*artifact.Artifact
	for _, jobID := range jobIDs {
		base := jobArtifactsPrefix(repoID, jobID)
		objs, err := s.objects.List(ctx, base+prefix)
		if err != nil {
			return nil, err
		}
		if recursive {
			for _, o := range objs {
				rel := strings.TrimPrefix(o.Key, base)
				out = append(out, &artifact.Artifact{
					JobID:     jobID,
					Name:      firstSegment(rel),
					FilePath:  rel,
					SizeBytes: o.SizeBytes,
					ETag:      o.ETag,
				})
			}
			continue
		}
		seenDirs := map[string]bool{}
		for _, o := range objs {
			rest := strings.TrimPrefix(o.Key, base+prefix)
			if i := strings.Index(rest, "/"); i >= 0 {
				dir := prefix + rest[:i+1]
				if seenDirs[dir] {
					continue
				}
				seenDirs[dir] = true
				out = append(out, &artifact.Artifact{
					JobID:     jobID,
					Name:      firstSegment(dir),
					FilePath:  dir,
					SizeBytes: -1,
					Dir:       true,
				})
				continue
			}
			rel := strings.TrimPrefix(o.Key, base)
			out = append(out, &artifact.Artifact{
				JobID:     jobID,
				Name:      firstSegment(rel),
				FilePath:  rel,
				SizeBytes: o.SizeBytes,
				ETag:      o.ETag,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JobID == out[j].JobID {
			return out[i].FilePath < out[j].FilePath
		}
		return out[i].JobID < out[j].JobID
	})
	return out, nil
}

// Download streams the listed files under outputDir, keeping the artifact
// relative layout. Individual failures, including missing objects, are
// collected and reported after the whole batch has been attempted.
func (s *Service) Download(ctx context.Context, repoID string, arts []*artifact.Artifact, outputDir, filesPath string) error {
	runner := parallel.NewRunner(parallel.WithLimit(concurrentLimit), parallel.WithTicket(concurrentTicketPerSec))
	for _, a := range arts {
		if a.Dir {
			continue
		}
		if filesPath != "" && !strings.HasPrefix(a.FilePath, strings.TrimSuffix(filesPath, "/")+"/") && a.FilePath != filesPath {
			continue
		}
		runner.Add(func(a *artifact.Artifact) func() (interface{}, error) {
			return func() (interface{}, error) {
				return nil, s.downloadOne(ctx, repoID, a, outputDir)
			}
		}(a))
	}
	var errorSet error
	for _, state := range runner.Run() {
		if state.Err != nil {
			errorSet = multierror.Append(errorSet, state.Err)
		}
	}
	return errorSet
}

func (s *Service) downloadOne(ctx context.Context, repoID string, a *artifact.Artifact, outputDir string) error {
	key := jobArtifactsPrefix(repoID, a.JobID) + a.FilePath
	dest := filepath.Join(outputDir, filepath.FromSlash(a.FilePath))
	if err := s.fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.InternalError(artifact.EntityArtifact, "unable to create "+filepath.Dir(dest), err)
	}
	f, err := s.fs.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.InternalError(artifact.EntityArtifact, "unable to open "+dest, err)
	}
	defer f.Close()
	if err := s.objects.Download(ctx, key, f); err != nil {
		if errors.IsNotFound(err) {
			s.l.Warn("artifact object missing", "repo", repoID, "key", key)
		}
		return err
	}
	return nil
}

// Upload walks localPath and pushes every file under the job's artifact
// namespace, overwriting existing keys so retries are safe.
func (s *Service) Upload(ctx context.Context, repoID, jobID, artifactName, localPath string) error {
	base := jobArtifactsPrefix(repoID, jobID) + artifactName + "/"
	var files []string
	err := afero.Walk(s.fs, localPath, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return errors.InternalError(artifact.EntityArtifact, "unable to walk "+localPath, err)
	}

	runner := parallel.NewRunner(parallel.WithLimit(concurrentLimit), parallel.WithTicket(concurrentTicketPerSec))
	for _, p := range files {
		runner.Add(func(p string) func() (interface{}, error) {
			return func() (interface{}, error) {
				rel, err := filepath.Rel(localPath, p)
				if err != nil {
					return nil, err
				}
				f, err := s.fs.Open(p)
				if err != nil {
					return nil, errors.InternalError(artifact.EntityArtifact, "unable to open "+p, err)
				}
				defer f.Close()
				return nil, s.objects.Upload(ctx, base+filepath.ToSlash(rel), f)
			}
		}(p))
	}
	var errorSet error
	for _, state := range runner.Run() {
		if state.Err != nil {
			errorSet = multierror.Append(errorSet, state.Err)
		}
	}
	return errorSet
}

func firstSegment(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if i := strings.Index(p, "/"); i >= 0 {
		return p[:i]
	}
	return p
}
