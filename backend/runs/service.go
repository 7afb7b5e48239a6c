package runs

import (
	"context"
	"fmt"
	"sort"
	"strings"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/raystack/salt/log"

	"github.com/moorlabs/moor/core/compute"
	"github.com/moorlabs/moor/core/job"
	"github.com/moorlabs/moor/core/run"
	"github.com/moorlabs/moor/internal/store"
)

// JobFinder is the slice of the job service the reconciler needs: loading the
// full record to reach the compute request handle.
type JobFinder interface {
	Get(ctx context.Context, repoID, jobID string) (*job.Job, error)
}

// Service allocates run names and reconciles stored job state with live
// compute state into run-level views.
type Service struct {
	l       log.Logger
	objects store.ObjectStore
	compute compute.Compute
	jobs    JobFinder
}

func NewService(l log.Logger, objects store.ObjectStore, cmp compute.Compute, jobs JobFinder) *Service {
	return &Service{l: l, objects: objects, compute: cmp, jobs: jobs}
}

// Allocate returns a run name unused within the repo: a generated pet name
// plus a numeric suffix advanced past any existing collision.
func (s *Service) Allocate(ctx context.Context, repoID string) (string, error) {
	base := petname.Generate(2, "-")
	prefix := "job-heads/" + repoID + "/" + base + "-"
	objs, err := s.objects.List(ctx, prefix)
	if err != nil {
		return "", err
	}
	next := 1
	for _, o := range objs {
		rest := strings.TrimPrefix(o.Key, prefix)
		var idx int
		if _, err := fmt.Sscanf(rest, "%d/", &idx); err == nil && idx >= next {
			next = idx + 1
		}
	}
	return fmt.Sprintf("%s-%d", base, next), nil
}

// Reconcile turns job heads into run heads. With includeRequests set, every
// non-terminal member is cross-checked against live compute; a member whose
// backing resource is gone is surfaced with interruptedStatus while its
// stored record stays untouched. This is the single place where object-store
// state and infrastructure state are allowed to diverge and get healed.
func (s *Service) Reconcile(ctx context.Context, repoID string, heads []*job.Head,
	includeRequests bool, interruptedStatus job.Status,
) ([]*run.Head, error) {
	if interruptedStatus == "" {
		interruptedStatus = job.StatusFailed
	}

	grouped := map[string][]*job.Head{}
	var order []string
	for _, h := range heads {
		if _, seen := grouped[h.RunName]; !seen {
			order = append(order, h.RunName)
		}
		grouped[h.RunName] = append(grouped[h.RunName], h)
	}

	runHeads := make([]*run.Head, 0, len(order))
	for _, runName := range order {
		members := grouped[runName]
		head := &run.Head{
			RepoID:      repoID,
			RunName:     runName,
			SubmittedAt: members[0].SubmittedAt,
		}
		statuses := make([]job.Status, 0, len(members))
		for _, m := range members {
			effective := *m
			if includeRequests && !m.IsFinished() {
				if alive, checked := s.requestAlive(ctx, repoID, m); checked && !alive {
					effective.Status = interruptedStatus
					head.Interrupted = true
				}
			}
			if effective.SubmittedAt.Before(head.SubmittedAt) {
				head.SubmittedAt = effective.SubmittedAt
			}
			if effective.TagName != "" {
				head.TagName = effective.TagName
			}
			statuses = append(statuses, effective.Status)
			head.Jobs = append(head.Jobs, &effective)
		}
		head.Status = run.AggregateStatus(statuses)
		runHeads = append(runHeads, head)
	}

	sort.SliceStable(runHeads, func(i, j int) bool {
		return runHeads[i].SubmittedAt.After(runHeads[j].SubmittedAt)
	})
	return runHeads, nil
}

// requestAlive reports (alive, checked). Any failure to reach the job record
// or the provider degrades to unchecked rather than failing the listing.
func (s *Service) requestAlive(ctx context.Context, repoID string, h *job.Head) (bool, bool) {
	j, err := s.jobs.Get(ctx, repoID, h.ID)
	if err != nil {
		s.l.Warn("skipping request check, job record unavailable", "repo", repoID, "job", h.ID)
		return false, false
	}
	if j.RequestID == "" {
		// never launched, nothing to verify
		return true, true
	}
	req, err := s.compute.RequestStatus(ctx, j)
	if err != nil {
		s.l.Warn("skipping request check, compute unavailable", "repo", repoID, "job", h.ID)
		return false, false
	}
	return req.Alive, true
}
