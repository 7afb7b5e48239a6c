package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	logging "google.golang.org/api/logging/v2"

	"github.com/moorlabs/moor/core/logs"
	"github.com/moorlabs/moor/internal/errors"
)

// Sink reads run logs from Cloud Logging. Logical groups become log names;
// streams are attached as labels by the runner.
type Sink struct {
	service *logging.Service
	project string
}

func NewSink(service *logging.Service, project string) *Sink {
	return &Sink{service: service, project: project}
}

func (s *Sink) logName(group string) string {
	return fmt.Sprintf("projects/%s/logs/moor-%s", s.project, strings.ReplaceAll(group, "/", "-"))
}

func (s *Sink) Query(ctx context.Context, q logs.Query) (logs.Page, error) {
	filter := fmt.Sprintf("logName=%q AND labels.stream=%q", s.logName(q.Group), q.Stream)
	if !q.Start.IsZero() {
		filter += fmt.Sprintf(" AND timestamp>=%q", q.Start.UTC().Format(time.RFC3339Nano))
	}
	if !q.End.IsZero() {
		filter += fmt.Sprintf(" AND timestamp<%q", q.End.UTC().Format(time.RFC3339Nano))
	}
	orderBy := "timestamp asc"
	if q.Descending {
		orderBy = "timestamp desc"
	}

	out, err := s.service.Entries.List(&logging.ListLogEntriesRequest{
		ResourceNames: []string{"projects/" + s.project},
		Filter:        filter,
		OrderBy:       orderBy,
		PageToken:     q.Token,
	}).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return logs.Page{}, errors.NotFound(logs.EntityLogs, q.Group+"/"+q.Stream)
		}
		return logs.Page{}, errors.InternalError(logs.EntityLogs, "unable to query "+q.Group, err)
	}

	source := logs.SourceStdout
	if strings.HasPrefix(q.Group, "runners/") {
		source = logs.SourceDiagnostic
	}
	page := logs.Page{NextToken: out.NextPageToken}
	for _, e := range out.Entries {
		ts, err := time.Parse(time.RFC3339Nano, e.Timestamp)
		if err != nil {
			continue
		}
		page.Events = append(page.Events, logs.Event{
			Timestamp: ts.UTC(),
			Source:    source,
			Message:   e.TextPayload,
		})
	}
	return page, nil
}

// EnsureGroup is a no-op: Cloud Logging log names exist on first write.
func (s *Sink) EnsureGroup(ctx context.Context, group string) error {
	return nil
}
