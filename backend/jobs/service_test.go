package jobs_test

import (
	"context"
	"testing"

	"github.com/raystack/salt/log"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/moorlabs/moor/backend/jobs"
	"github.com/moorlabs/moor/core/compute"
	"github.com/moorlabs/moor/core/job"
	"github.com/moorlabs/moor/ext/local"
	"github.com/moorlabs/moor/internal/errors"
	"github.com/moorlabs/moor/internal/store"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	l := log.NewNoop()
	repoID := "github.com/acme/train"

	newStorage := func() *local.Storage {
		return local.NewStorage(afero.NewMemMapFs(), "moor")
	}
	newJob := func(runName string) *job.Job {
		j, err := job.New(repoID, runName, job.Spec{Image: "python:3.11", Commands: []string{"python train.py"}})
		assert.Nil(t, err)
		return j
	}

	t.Run("Create", func(t *testing.T) {
		t.Run("writes the job and its head", func(t *testing.T) {
			objects := newStorage()
			service := jobs.NewService(l, objects, new(ComputeMock))

			j := newJob("wispy-mole-1")
			assert.Nil(t, service.Create(ctx, j))

			exists, err := store.Exists(ctx, objects, jobs.JobKey(repoID, j.ID))
			assert.Nil(t, err)
			assert.True(t, exists)
			exists, err = store.Exists(ctx, objects, jobs.HeadKey(repoID, j.RunName, j.ID))
			assert.Nil(t, err)
			assert.True(t, exists)
		})
		t.Run("rejects a duplicate job id", func(t *testing.T) {
			objects := newStorage()
			service := jobs.NewService(l, objects, new(ComputeMock))

			j := newJob("wispy-mole-1")
			assert.Nil(t, service.Create(ctx, j))
			err := service.Create(ctx, j)
			assert.True(t, errors.IsAlreadyExists(err))
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("round-trips the stored record", func(t *testing.T) {
			objects := newStorage()
			service := jobs.NewService(l, objects, new(ComputeMock))

			j := newJob("wispy-mole-1")
			assert.Nil(t, service.Create(ctx, j))

			got, err := service.Get(ctx, repoID, j.ID)
			assert.Nil(t, err)
			assert.Equal(t, j.ID, got.ID)
			assert.Equal(t, j.Spec.Image, got.Spec.Image)
			assert.Equal(t, job.StatusSubmitted, got.Status)
		})
		t.Run("returns not found for an unknown id", func(t *testing.T) {
			service := jobs.NewService(l, newStorage(), new(ComputeMock))
			_, err := service.Get(ctx, repoID, "no-such-run,0000")
			assert.True(t, errors.IsNotFound(err))
		})
	})

	t.Run("ListHeads", func(t *testing.T) {
		t.Run("orders by submission time then id and narrows by run", func(t *testing.T) {
			objects := newStorage()
			service := jobs.NewService(l, objects, new(ComputeMock))

			j1 := newJob("run-a")
			j2 := newJob("run-a")
			j3 := newJob("run-b")
			// force a deterministic order regardless of clock resolution
			j2.SubmittedAt = j1.SubmittedAt.Add(1)
			j3.SubmittedAt = j1.SubmittedAt.Add(2)
			for _, j := range []*job.Job{j3, j2, j1} {
				assert.Nil(t, service.Create(ctx, j))
			}

			heads, err := service.ListHeads(ctx, repoID, "")
			assert.Nil(t, err)
			assert.Len(t, heads, 3)
			assert.Equal(t, j1.ID, heads[0].ID)
			assert.Equal(t, j2.ID, heads[1].ID)
			assert.Equal(t, j3.ID, heads[2].ID)

			heads, err = service.ListHeads(ctx, repoID, "run-b")
			assert.Nil(t, err)
			assert.Len(t, heads, 1)
			assert.Equal(t, j3.ID, heads[0].ID)
		})
		t.Run("returns empty for an unknown repo", func(t *testing.T) {
			service := jobs.NewService(l, newStorage(), new(ComputeMock))
			heads, err := service.ListHeads(ctx, "github.com/acme/other", "")
			assert.Nil(t, err)
			assert.Empty(t, heads)
		})
	})

	t.Run("Run", func(t *testing.T) {
		t.Run("records the request handle on success", func(t *testing.T) {
			objects := newStorage()
			cmp := new(ComputeMock)
			service := jobs.NewService(l, objects, cmp)

			j := newJob("wispy-mole-1")
			assert.Nil(t, service.Create(ctx, j))

			cmp.On("Launch", ctx, j).Return("i-0abc", nil)
			cmp.On("PredictInstanceType", ctx, j).
				Return(&compute.InstanceType{Name: "m5.large"}, nil)
			defer cmp.AssertExpectations(t)

			assert.Nil(t, service.Run(ctx, j, job.StatusFailed))
			assert.Equal(t, "i-0abc", j.RequestID)
			assert.Equal(t, "m5.large", j.InstanceType)

			got, err := service.Get(ctx, repoID, j.ID)
			assert.Nil(t, err)
			assert.Equal(t, "i-0abc", got.RequestID)
		})
		t.Run("moves the job to the failed-to-start status on launch error", func(t *testing.T) {
			objects := newStorage()
			cmp := new(ComputeMock)
			service := jobs.NewService(l, objects, cmp)

			j := newJob("wispy-mole-1")
			assert.Nil(t, service.Create(ctx, j))

			cmp.On("Launch", ctx, j).
				Return("", compute.NewLaunchError("no capacity", nil))
			defer cmp.AssertExpectations(t)

			assert.Nil(t, service.Run(ctx, j, job.StatusFailed))

			got, err := service.Get(ctx, repoID, j.ID)
			assert.Nil(t, err)
			assert.Equal(t, job.StatusFailed, got.Status)
			assert.Empty(t, got.RequestID)
		})
	})

	t.Run("Stop", func(t *testing.T) {
		t.Run("terminates and records the terminal status", func(t *testing.T) {
			objects := newStorage()
			cmp := new(ComputeMock)
			service := jobs.NewService(l, objects, cmp)

			j := newJob("wispy-mole-1")
			j.Status = job.StatusRunning
			j.RequestID = "i-0abc"
			assert.Nil(t, service.Create(ctx, j))

			cmp.On("Terminate", ctx, "i-0abc").Return(nil)
			defer cmp.AssertExpectations(t)

			assert.Nil(t, service.Stop(ctx, repoID, j.ID, true))
			got, err := service.Get(ctx, repoID, j.ID)
			assert.Nil(t, err)
			assert.Equal(t, job.StatusAborted, got.Status)
		})
		t.Run("is a no-op for a finished job", func(t *testing.T) {
			objects := newStorage()
			cmp := new(ComputeMock)
			service := jobs.NewService(l, objects, cmp)

			j := newJob("wispy-mole-1")
			j.Status = job.StatusDone
			assert.Nil(t, service.Create(ctx, j))

			assert.Nil(t, service.Stop(ctx, repoID, j.ID, false))
			cmp.AssertNotCalled(t, "Terminate", mock.Anything, mock.Anything)
		})
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		t.Run("rejects transitions out of a terminal status", func(t *testing.T) {
			objects := newStorage()
			service := jobs.NewService(l, objects, new(ComputeMock))

			j := newJob("wispy-mole-1")
			j.Status = job.StatusDone
			assert.Nil(t, service.Create(ctx, j))

			err := service.UpdateStatus(ctx, j, job.StatusRunning)
			assert.True(t, errors.IsErrorType(err, errors.ErrFailedPrecond))
		})
		t.Run("persists both the record and the head", func(t *testing.T) {
			objects := newStorage()
			service := jobs.NewService(l, objects, new(ComputeMock))

			j := newJob("wispy-mole-1")
			assert.Nil(t, service.Create(ctx, j))
			assert.Nil(t, service.UpdateStatus(ctx, j, job.StatusPending))

			got, err := service.Get(ctx, repoID, j.ID)
			assert.Nil(t, err)
			assert.Equal(t, job.StatusPending, got.Status)

			heads, err := service.ListHeads(ctx, repoID, j.RunName)
			assert.Nil(t, err)
			assert.Len(t, heads, 1)
			assert.Equal(t, job.StatusPending, heads[0].Status)
		})
	})

	t.Run("DeleteHead", func(t *testing.T) {
		t.Run("removes the head but keeps the record", func(t *testing.T) {
			objects := newStorage()
			service := jobs.NewService(l, objects, new(ComputeMock))

			j := newJob("wispy-mole-1")
			assert.Nil(t, service.Create(ctx, j))
			assert.Nil(t, service.DeleteHead(ctx, repoID, j.ID))

			heads, err := service.ListHeads(ctx, repoID, j.RunName)
			assert.Nil(t, err)
			assert.Empty(t, heads)

			_, err = service.Get(ctx, repoID, j.ID)
			assert.Nil(t, err)
		})
	})
}

type ComputeMock struct {
	mock.Mock
}

func (m *ComputeMock) Launch(ctx context.Context, j *job.Job) (string, error) {
	args := m.Called(ctx, j)
	return args.String(0), args.Error(1)
}

func (m *ComputeMock) Terminate(ctx context.Context, requestID string) error {
	return m.Called(ctx, requestID).Error(0)
}

func (m *ComputeMock) RequestStatus(ctx context.Context, j *job.Job) (compute.Request, error) {
	args := m.Called(ctx, j)
	return args.Get(0).(compute.Request), args.Error(1)
}

func (m *ComputeMock) Exec(ctx context.Context, requestID string, commands []string) error {
	return m.Called(ctx, requestID, commands).Error(0)
}

func (m *ComputeMock) PredictInstanceType(ctx context.Context, j *job.Job) (*compute.InstanceType, error) {
	args := m.Called(ctx, j)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*compute.InstanceType), args.Error(1)
}
