package logs

import (
	"context"
	"sort"
	"time"

	"github.com/raystack/salt/log"

	"github.com/moorlabs/moor/core/job"
	"github.com/moorlabs/moor/core/logs"
	"github.com/moorlabs/moor/internal/errors"
)

// HeadLister is the slice of the job service used to synthesize fallback
// events when the provider sink has no history for a run.
type HeadLister interface {
	ListHeads(ctx context.Context, repoID, runName string) ([]*job.Head, error)
}

// PollRequest bounds one log query. A zero End leaves the range open; the
// caller implements tailing by re-issuing with a later Start.
type PollRequest struct {
	RepoID     string
	RunName    string
	Start      time.Time
	End        time.Time
	Descending bool
	Diagnose   bool
}

// Service reads run logs from the provider sink, following continuation
// tokens transparently and merging diagnostic events when asked.
type Service struct {
	l    log.Logger
	sink logs.Sink
	jobs HeadLister
}

func NewService(l log.Logger, sink logs.Sink, jobs HeadLister) *Service {
	return &Service{l: l, sink: sink, jobs: jobs}
}

// Poll returns every event in [Start, End) ordered by timestamp, ascending
// unless Descending. Missing history degrades to synthesized status events,
// never to an error.
func (s *Service) Poll(ctx context.Context, req PollRequest) ([]logs.Event, error) {
	groups := []string{logs.GroupForRuns(req.RepoID)}
	if req.Diagnose {
		groups = append(groups, logs.GroupForRunners(req.RepoID))
	}

	var events []logs.Event
	missing := 0
	for _, group := range groups {
		groupEvents, err := s.drain(ctx, group, req)
		if err != nil {
			if errors.IsNotFound(err) {
				missing++
				continue
			}
			return nil, err
		}
		events = append(events, groupEvents...)
	}

	if missing == len(groups) {
		s.l.Debug("no log history in sink, synthesizing from job state",
			"repo", req.RepoID, "run", req.RunName)
		synthesized, err := s.fromJobHeads(ctx, req)
		if err != nil {
			return nil, err
		}
		events = synthesized
	}

	events = filterWindow(events, req.Start, req.End)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	if req.Descending {
		for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
			events[i], events[j] = events[j], events[i]
		}
	}
	return events, nil
}

// drain follows the sink's continuation tokens until exhaustion.
func (s *Service) drain(ctx context.Context, group string, req PollRequest) ([]logs.Event, error) {
	q := logs.Query{
		Group:      group,
		Stream:     req.RunName,
		Start:      req.Start,
		End:        req.End,
		Descending: req.Descending,
	}
	var events []logs.Event
	for {
		page, err := s.sink.Query(ctx, q)
		if err != nil {
			return nil, err
		}
		events = append(events, page.Events...)
		if page.NextToken == "" {
			return events, nil
		}
		q.Token = page.NextToken
	}
}

// fromJobHeads reconstructs a best-effort event sequence out of job status
// transitions: one submission event per job and, when the status moved, one
// event at the recorded change time.
func (s *Service) fromJobHeads(ctx context.Context, req PollRequest) ([]logs.Event, error) {
	heads, err := s.jobs.ListHeads(ctx, req.RepoID, req.RunName)
	if err != nil {
		return nil, err
	}
	var events []logs.Event
	for _, h := range heads {
		events = append(events, logs.Event{
			Timestamp: h.SubmittedAt,
			JobID:     h.ID,
			Source:    logs.SourceDiagnostic,
			Message:   "job " + h.ID + " submitted",
		})
		if h.Status != job.StatusSubmitted {
			events = append(events, logs.Event{
				Timestamp: h.UpdatedAt,
				JobID:     h.ID,
				Source:    logs.SourceDiagnostic,
				Message:   "job " + h.ID + " " + h.Status.String(),
			})
		}
	}
	return events, nil
}

func filterWindow(events []logs.Event, start, end time.Time) []logs.Event {
	filtered := events[:0]
	for _, e := range events {
		if e.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && !e.Timestamp.Before(end) {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}
