package artifacts_test

import (
	"context"
	"testing"

	"github.com/raystack/salt/log"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"

	"github.com/moorlabs/moor/backend/artifacts"
	"github.com/moorlabs/moor/core/artifact"
	"github.com/moorlabs/moor/ext/local"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	l := log.NewNoop()
	repoID := "github.com/acme/train"
	jobID := "wispy-mole-1,a1b2"

	setup := func(t *testing.T) (*artifacts.Service, afero.Fs) {
		fs := afero.NewMemMapFs()
		objects := local.NewStorage(afero.NewMemMapFs(), "moor")
		return artifacts.NewService(l, objects, fs), fs
	}
	writeFile := func(t *testing.T, fs afero.Fs, path, content string) {
		assert.Nil(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}

	t.Run("round-trips a directory through upload, list and download", func(t *testing.T) {
		service, fs := setup(t)
		writeFile(t, fs, "/work/model/weights.bin", "0123456789")
		writeFile(t, fs, "/work/model/config/settings.json", "{}")

		assert.Nil(t, service.Upload(ctx, repoID, jobID, "model", "/work/model"))

		arts, err := service.List(ctx, repoID, []string{jobID}, "", true)
		assert.Nil(t, err)
		assert.Len(t, arts, 2)
		assert.Equal(t, "model/config/settings.json", arts[0].FilePath)
		assert.Equal(t, int64(2), arts[0].SizeBytes)
		assert.Equal(t, "model/weights.bin", arts[1].FilePath)
		assert.Equal(t, int64(10), arts[1].SizeBytes)
		assert.Equal(t, "model", arts[0].Name)

		assert.Nil(t, service.Download(ctx, repoID, arts, "/out", ""))
		got, err := afero.ReadFile(fs, "/out/model/weights.bin")
		assert.Nil(t, err)
		assert.Equal(t, "0123456789", string(got))
		got, err = afero.ReadFile(fs, "/out/model/config/settings.json")
		assert.Nil(t, err)
		assert.Equal(t, "{}", string(got))
	})

	t.Run("non-recursive listing folds nested keys into directories", func(t *testing.T) {
		service, fs := setup(t)
		writeFile(t, fs, "/work/model/weights.bin", "0123456789")
		writeFile(t, fs, "/work/model/config/settings.json", "{}")
		writeFile(t, fs, "/work/model/config/tokenizer.json", "{}")
		assert.Nil(t, service.Upload(ctx, repoID, jobID, "model", "/work/model"))

		arts, err := service.List(ctx, repoID, []string{jobID}, "model/", false)
		assert.Nil(t, err)
		assert.Len(t, arts, 2)

		assert.Equal(t, "model/config/", arts[0].FilePath)
		assert.True(t, arts[0].Dir)
		assert.Equal(t, int64(-1), arts[0].SizeBytes)

		assert.Equal(t, "model/weights.bin", arts[1].FilePath)
		assert.False(t, arts[1].Dir)
	})

	t.Run("download narrows by files path", func(t *testing.T) {
		service, fs := setup(t)
		writeFile(t, fs, "/work/model/weights.bin", "0123456789")
		writeFile(t, fs, "/work/model/config/settings.json", "{}")
		assert.Nil(t, service.Upload(ctx, repoID, jobID, "model", "/work/model"))

		arts, err := service.List(ctx, repoID, []string{jobID}, "", true)
		assert.Nil(t, err)

		assert.Nil(t, service.Download(ctx, repoID, arts, "/out", "model/config"))
		_, err = afero.ReadFile(fs, "/out/model/config/settings.json")
		assert.Nil(t, err)
		exists, err := afero.Exists(fs, "/out/model/weights.bin")
		assert.Nil(t, err)
		assert.False(t, exists)
	})

	t.Run("download reports every missing object after the batch", func(t *testing.T) {
		service, _ := setup(t)

		arts := []*artifact.Artifact{
			{JobID: jobID, Name: "model", FilePath: "model/gone-1.bin"},
			{JobID: jobID, Name: "model", FilePath: "model/gone-2.bin"},
		}
		err := service.Download(ctx, repoID, arts, "/out", "")
		assert.NotNil(t, err)
		assert.Contains(t, err.Error(), "2 errors occurred")
	})

	t.Run("listing an unknown job yields nothing", func(t *testing.T) {
		service, _ := setup(t)
		arts, err := service.List(ctx, repoID, []string{"no-such-job"}, "", true)
		assert.Nil(t, err)
		assert.Empty(t, arts)
	})
}
