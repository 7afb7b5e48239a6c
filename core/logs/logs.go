package logs

import (
	"context"
	"time"
)

const EntityLogs = "logs"

// Source distinguishes user process output from backend diagnostics.
type Source string

const (
	SourceStdout     Source = "stdout"
	SourceDiagnostic Source = "diagnostic"
)

// Event is one log line attributed to a job within a run.
type Event struct {
	Timestamp time.Time
	JobID     string
	Source    Source
	Message   string
}

// Query is one page request against a provider log sink. Group and Stream use
// the control plane's logical naming; adapters map them onto provider naming.
type Query struct {
	Group      string
	Stream     string
	Start      time.Time
	End        time.Time
	Descending bool
	Token      string
}

// Page is one sink response. An empty NextToken means exhaustion.
type Page struct {
	Events    []Event
	NextToken string
}

// Sink is the provider managed log store capability. Query returns NotFound
// when the group or stream has no history, which the reader treats as a
// degradation, never a failure.
type Sink interface {
	Query(ctx context.Context, q Query) (Page, error)

	// EnsureGroup prepares the provider-side group so runners can write to
	// it. Idempotent.
	EnsureGroup(ctx context.Context, group string) error
}

// GroupForRuns names the logical group carrying user process output for a
// repository. GroupForRunners carries backend diagnostics.
func GroupForRuns(repoID string) string {
	return "jobs/" + repoID
}

func GroupForRunners(repoID string) string {
	return "runners/" + repoID
}
