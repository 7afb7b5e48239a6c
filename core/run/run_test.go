package run_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moorlabs/moor/core/job"
	"github.com/moorlabs/moor/core/run"
)

func TestAggregateStatus(t *testing.T) {
	t.Run("running dominates everything", func(t *testing.T) {
		got := run.AggregateStatus([]job.Status{job.StatusRunning, job.StatusDone})
		assert.Equal(t, job.StatusRunning, got)
	})
	t.Run("any non-terminal dominates any terminal", func(t *testing.T) {
		got := run.AggregateStatus([]job.Status{job.StatusPending, job.StatusFailed, job.StatusDone})
		assert.Equal(t, job.StatusPending, got)
	})
	t.Run("failed dominates done", func(t *testing.T) {
		got := run.AggregateStatus([]job.Status{job.StatusFailed, job.StatusDone})
		assert.Equal(t, job.StatusFailed, got)
	})
	t.Run("aborted dominates stopped and done", func(t *testing.T) {
		got := run.AggregateStatus([]job.Status{job.StatusStopped, job.StatusAborted, job.StatusDone})
		assert.Equal(t, job.StatusAborted, got)
	})
	t.Run("all done is done", func(t *testing.T) {
		got := run.AggregateStatus([]job.Status{job.StatusDone, job.StatusDone})
		assert.Equal(t, job.StatusDone, got)
	})
	t.Run("order of members does not matter", func(t *testing.T) {
		a := run.AggregateStatus([]job.Status{job.StatusDone, job.StatusUploading, job.StatusFailed})
		b := run.AggregateStatus([]job.Status{job.StatusFailed, job.StatusDone, job.StatusUploading})
		assert.Equal(t, a, b)
		assert.Equal(t, job.StatusUploading, a)
	})
}
