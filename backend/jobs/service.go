package jobs

import (
	"context"
	"sort"
	"time"

	"github.com/kushsharma/parallel"
	"github.com/raystack/salt/log"
	"gopkg.in/yaml.v3"

	"github.com/moorlabs/moor/core/compute"
	"github.com/moorlabs/moor/core/job"
	"github.com/moorlabs/moor/internal/errors"
	"github.com/moorlabs/moor/internal/store"
)

const (
	concurrentTicketPerSec = 10
	concurrentLimit        = 20
)

// Service owns job records and their lifecycle. The full spec and the light
// head record are written separately so listings stay cheap.
type Service struct {
	l       log.Logger
	objects store.ObjectStore
	compute compute.Compute
}

func NewService(l log.Logger, objects store.ObjectStore, cmp compute.Compute) *Service {
	return &Service{l: l, objects: objects, compute: cmp}
}

func JobKey(repoID, jobID string) string {
	return "jobs/" + repoID + "/" + jobID
}

func HeadKey(repoID, runName, jobID string) string {
	return "job-heads/" + repoID + "/" + runName + "/" + jobID
}

func headPrefix(repoID, runName string) string {
	p := "job-heads/" + repoID + "/"
	if runName != "" {
		p += runName + "/"
	}
	return p
}

// Create writes the immutable spec plus the submitted head. A pre-write
// existence check turns double submission into AlreadyExists; a true
// concurrent race can still double-write, which last-writer-wins storage
// accepts.
func (s *Service) Create(ctx context.Context, j *job.Job) error {
	key := JobKey(j.RepoID, j.ID)
	exists, err := store.Exists(ctx, s.objects, key)
	if err != nil {
		return err
	}
	if exists {
		return errors.AlreadyExists(job.EntityJob, "job "+j.ID+" in repo "+j.RepoID)
	}
	if err := s.putJob(ctx, j); err != nil {
		return err
	}
	s.l.Debug("created job", "repo", j.RepoID, "job", j.ID, "run", j.RunName)
	return nil
}

func (s *Service) Get(ctx context.Context, repoID, jobID string) (*job.Job, error) {
	data, err := store.GetBytes(ctx, s.objects, JobKey(repoID, jobID))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NotFound(job.EntityJob, "job "+jobID+" in repo "+repoID)
		}
		return nil, err
	}
	var j job.Job
	if err := yaml.Unmarshal(data, &j); err != nil {
		return nil, errors.InternalError(job.EntityJob, "corrupt job record "+jobID, err)
	}
	return &j, nil
}

// List loads the full jobs of a run, fanning out the spec fetches.
func (s *Service) List(ctx context.Context, repoID, runName string) ([]*job.Job, error) {
	heads, err := s.ListHeads(ctx, repoID, runName)
	if err != nil {
		return nil, err
	}
	runner := parallel.NewRunner(parallel.WithLimit(concurrentLimit), parallel.WithTicket(concurrentTicketPerSec))
	for _, h := range heads {
		runner.Add(func(id string) func() (interface{}, error) {
			return func() (interface{}, error) {
				return s.Get(ctx, repoID, id)
			}
		}(h.ID))
	}
	var out []*job.Job
	for _, state := range runner.Run() {
		if state.Err != nil {
			// a head lagging its job record is tolerated; skip it
			if errors.IsNotFound(state.Err) {
				continue
			}
			return nil, state.Err
		}
		out = append(out, state.Val.(*job.Job))
	}
	return out, nil
}

// ListHeads returns the head records for a repo, optionally narrowed to one
// run, ordered by submission time then id.
func (s *Service) ListHeads(ctx context.Context, repoID, runName string) ([]*job.Head, error) {
	objs, err := s.objects.List(ctx, headPrefix(repoID, runName))
	if err != nil {
		return nil, err
	}
	runner := parallel.NewRunner(parallel.WithLimit(concurrentLimit), parallel.WithTicket(concurrentTicketPerSec))
	for _, o := range objs {
		runner.Add(func(key string) func() (interface{}, error) {
			return func() (interface{}, error) {
				data, err := store.GetBytes(ctx, s.objects, key)
				if err != nil {
					return nil, err
				}
				var h job.Head
				if err := yaml.Unmarshal(data, &h); err != nil {
					return nil, errors.InternalError(job.EntityJob, "corrupt job head "+key, err)
				}
				return &h, nil
			}
		}(o.Key))
	}
	var heads []*job.Head
	for _, state := range runner.Run() {
		if state.Err != nil {
			// heads listed but deleted before the fetch are fine to skip
			if errors.IsNotFound(state.Err) {
				continue
			}
			return nil, state.Err
		}
		heads = append(heads, state.Val.(*job.Head))
	}
	sort.Slice(heads, func(i, j int) bool {
		if heads[i].SubmittedAt.Equal(heads[j].SubmittedAt) {
			return heads[i].ID < heads[j].ID
		}
		return heads[i].SubmittedAt.Before(heads[j].SubmittedAt)
	})
	return heads, nil
}

// Run asks compute to place the job. A provisioning failure is an expected
// outcome: the job moves to the caller-supplied status and no error is
// returned. The caller picks failed vs stopped because the right terminal
// depends on the call site.
func (s *Service) Run(ctx context.Context, j *job.Job, failedToStartStatus job.Status) error {
	requestID, err := s.compute.Launch(ctx, j)
	if err != nil {
		var le *compute.LaunchError
		if errors.As(err, &le) {
			s.l.Warn("job failed to start", "repo", j.RepoID, "job", j.ID, "reason", le.Message)
			return s.UpdateStatus(ctx, j, failedToStartStatus)
		}
		return err
	}
	j.RequestID = requestID
	if it, err := s.compute.PredictInstanceType(ctx, j); err == nil && it != nil {
		j.InstanceType = it.Name
	}
	return s.putJob(ctx, j)
}

// Stop requests termination. Safe to call repeatedly: a finished job is
// success, not an error.
func (s *Service) Stop(ctx context.Context, repoID, jobID string, abort bool) error {
	j, err := s.Get(ctx, repoID, jobID)
	if err != nil {
		return err
	}
	if j.Status.IsFinished() {
		return nil
	}
	if j.RequestID != "" {
		if err := s.compute.Terminate(ctx, j.RequestID); err != nil {
			return err
		}
	}
	final := job.StatusStopped
	if abort {
		final = job.StatusAborted
	}
	return s.UpdateStatus(ctx, j, final)
}

// DeleteHead removes the listing entry only; the full record stays for
// history.
func (s *Service) DeleteHead(ctx context.Context, repoID, jobID string) error {
	j, err := s.Get(ctx, repoID, jobID)
	if err != nil {
		return err
	}
	return s.objects.Delete(ctx, HeadKey(repoID, j.RunName, j.ID))
}

func (s *Service) PredictInstanceType(ctx context.Context, j *job.Job) (*compute.InstanceType, error) {
	return s.compute.PredictInstanceType(ctx, j)
}

// UpdateStatus moves the job along the lifecycle graph, rejecting regressions
// out of terminal statuses, and persists spec and head together.
func (s *Service) UpdateStatus(ctx context.Context, j *job.Job, next job.Status) error {
	if !j.Status.CanTransitionTo(next) {
		return errors.FailedPrecondition(job.EntityJob,
			"job "+j.ID+" cannot move from "+j.Status.String()+" to "+next.String())
	}
	if j.Status != next {
		j.Status = next
		j.UpdatedAt = time.Now().UTC()
	}
	return s.putJob(ctx, j)
}

func (s *Service) putJob(ctx context.Context, j *job.Job) error {
	data, err := yaml.Marshal(j)
	if err != nil {
		return errors.InternalError(job.EntityJob, "unable to encode job "+j.ID, err)
	}
	if err := store.PutBytes(ctx, s.objects, JobKey(j.RepoID, j.ID), data); err != nil {
		return err
	}
	head, err := yaml.Marshal(j.Head())
	if err != nil {
		return errors.InternalError(job.EntityJob, "unable to encode job head "+j.ID, err)
	}
	return store.PutBytes(ctx, s.objects, HeadKey(j.RepoID, j.RunName, j.ID), head)
}
