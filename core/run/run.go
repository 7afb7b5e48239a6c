package run

import (
	"time"

	"github.com/moorlabs/moor/core/job"
)

const EntityRun = "run"

// Head is the derived aggregate over all job heads sharing a run name. It is
// never persisted; reconciliation recomputes it on every listing.
type Head struct {
	RepoID      string
	RunName     string
	Status      job.Status
	SubmittedAt time.Time
	TagName     string

	// Jobs carries the member heads with any interrupted member's status
	// already rewritten. The stored records stay untouched.
	Jobs []*job.Head

	// Interrupted is set when at least one non-terminal member job had no
	// live compute behind it.
	Interrupted bool
}

// statusPrecedence is the total order used to collapse member statuses into
// one run status. Higher wins. Active statuses dominate terminal ones, and
// among terminal ones failure dominates success so a partially failed run
// never reads as done.
var statusPrecedence = map[job.Status]int{
	job.StatusRunning:     10,
	job.StatusUploading:   9,
	job.StatusDownloading: 8,
	job.StatusStopping:    7,
	job.StatusPending:     6,
	job.StatusSubmitted:   5,
	job.StatusFailed:      4,
	job.StatusAborted:     3,
	job.StatusStopped:     2,
	job.StatusDone:        1,
}

// AggregateStatus picks the dominant status among members. Deterministic for
// any input order, so repeated reconciliation is stable absent change.
func AggregateStatus(statuses []job.Status) job.Status {
	agg := job.StatusDone
	best := 0
	for _, s := range statuses {
		if p := statusPrecedence[s]; p > best {
			best = p
			agg = s
		}
	}
	return agg
}
