package job

import (
	"strings"

	"github.com/moorlabs/moor/internal/errors"
)

const (
	StatusSubmitted Status = "submitted"
	StatusPending   Status = "pending"

	StatusRunning     Status = "running"
	StatusDownloading Status = "downloading"
	StatusUploading   Status = "uploading"
	StatusStopping    Status = "stopping"

	StatusStopped Status = "stopped"
	StatusAborted Status = "aborted"
	StatusFailed  Status = "failed"
	StatusDone    Status = "done"
)

type Status string

func StatusFromString(status string) (Status, error) {
	switch strings.ToLower(status) {
	case string(StatusSubmitted):
		return StatusSubmitted, nil
	case string(StatusPending):
		return StatusPending, nil
	case string(StatusRunning):
		return StatusRunning, nil
	case string(StatusDownloading):
		return StatusDownloading, nil
	case string(StatusUploading):
		return StatusUploading, nil
	case string(StatusStopping):
		return StatusStopping, nil
	case string(StatusStopped):
		return StatusStopped, nil
	case string(StatusAborted):
		return StatusAborted, nil
	case string(StatusFailed):
		return StatusFailed, nil
	case string(StatusDone):
		return StatusDone, nil
	default:
		return "", errors.InvalidArgument(EntityJob, "unknown status "+status)
	}
}

func (s Status) String() string {
	return string(s)
}

// IsFinished reports whether the status is terminal. Terminal statuses are
// absorbing: no transition out of them is ever allowed.
func (s Status) IsFinished() bool {
	switch s {
	case StatusStopped, StatusAborted, StatusFailed, StatusDone:
		return true
	}
	return false
}

// CanTransitionTo enforces the lifecycle graph:
//
//	submitted -> pending -> running -> downloading|uploading -> done
//
// with stopping and failed reachable from every non-terminal status, and
// stopped/aborted settling a stop request.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	if s.IsFinished() {
		return false
	}
	switch next {
	case StatusFailed, StatusStopping, StatusStopped, StatusAborted:
		return true
	}
	switch s {
	case StatusSubmitted:
		return next == StatusPending
	case StatusPending:
		return next == StatusRunning
	case StatusRunning:
		return next == StatusDownloading || next == StatusUploading || next == StatusDone
	case StatusDownloading:
		return next == StatusRunning || next == StatusUploading || next == StatusDone
	case StatusUploading:
		return next == StatusDone
	}
	return false
}
