package secrets_test

import (
	"context"
	"testing"

	"github.com/raystack/salt/log"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"

	"github.com/moorlabs/moor/backend/secrets"
	"github.com/moorlabs/moor/core/secret"
	"github.com/moorlabs/moor/ext/local"
	"github.com/moorlabs/moor/internal/errors"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	l := log.NewNoop()
	repoID := "github.com/acme/train"

	setup := func() (*secrets.Service, *vaultFake) {
		vault := &vaultFake{values: map[string]string{}}
		objects := local.NewStorage(afero.NewMemMapFs(), "moor")
		return secrets.NewService(l, objects, vault), vault
	}
	mustSecret := func(t *testing.T, name, value string) *secret.Secret {
		sec, err := secret.New(name, value)
		assert.Nil(t, err)
		return sec
	}

	t.Run("Add", func(t *testing.T) {
		t.Run("stores the value and advertises the name", func(t *testing.T) {
			service, vault := setup()
			assert.Nil(t, service.Add(ctx, repoID, mustSecret(t, "WANDB_API_KEY", "tok-1")))

			assert.Equal(t, "tok-1", vault.values["/moor/"+repoID+"/secrets/WANDB_API_KEY"])

			names, err := service.ListNames(ctx, repoID)
			assert.Nil(t, err)
			assert.Equal(t, []string{"WANDB_API_KEY"}, names)
		})
		t.Run("rejects a duplicate name", func(t *testing.T) {
			service, _ := setup()
			assert.Nil(t, service.Add(ctx, repoID, mustSecret(t, "WANDB_API_KEY", "tok-1")))
			err := service.Add(ctx, repoID, mustSecret(t, "WANDB_API_KEY", "tok-2"))
			assert.True(t, errors.IsAlreadyExists(err))

			got, err := service.Get(ctx, repoID, "WANDB_API_KEY")
			assert.Nil(t, err)
			assert.Equal(t, "tok-1", got.Value())
		})
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("replaces the value of an existing secret", func(t *testing.T) {
			service, _ := setup()
			assert.Nil(t, service.Add(ctx, repoID, mustSecret(t, "WANDB_API_KEY", "tok-1")))
			assert.Nil(t, service.Update(ctx, repoID, mustSecret(t, "WANDB_API_KEY", "tok-2")))

			got, err := service.Get(ctx, repoID, "WANDB_API_KEY")
			assert.Nil(t, err)
			assert.Equal(t, "tok-2", got.Value())
		})
		t.Run("returns not found for an unknown name", func(t *testing.T) {
			service, _ := setup()
			err := service.Update(ctx, repoID, mustSecret(t, "MISSING", "tok"))
			assert.True(t, errors.IsNotFound(err))
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("returns not found for an unknown name", func(t *testing.T) {
			service, _ := setup()
			_, err := service.Get(ctx, repoID, "MISSING")
			assert.True(t, errors.IsNotFound(err))
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Run("removes value and listing together", func(t *testing.T) {
			service, vault := setup()
			assert.Nil(t, service.Add(ctx, repoID, mustSecret(t, "WANDB_API_KEY", "tok-1")))
			assert.Nil(t, service.Delete(ctx, repoID, "WANDB_API_KEY"))

			_, ok := vault.values["/moor/"+repoID+"/secrets/WANDB_API_KEY"]
			assert.False(t, ok)
			names, err := service.ListNames(ctx, repoID)
			assert.Nil(t, err)
			assert.Empty(t, names)
		})
		t.Run("returns not found for an unknown name", func(t *testing.T) {
			service, _ := setup()
			err := service.Delete(ctx, repoID, "MISSING")
			assert.True(t, errors.IsNotFound(err))
		})
		t.Run("tolerates an index entry whose value is already gone", func(t *testing.T) {
			service, vault := setup()
			assert.Nil(t, service.Add(ctx, repoID, mustSecret(t, "WANDB_API_KEY", "tok-1")))
			delete(vault.values, "/moor/"+repoID+"/secrets/WANDB_API_KEY")

			assert.Nil(t, service.Delete(ctx, repoID, "WANDB_API_KEY"))
			names, err := service.ListNames(ctx, repoID)
			assert.Nil(t, err)
			assert.Empty(t, names)
		})
	})

	t.Run("ListNames", func(t *testing.T) {
		t.Run("scopes names to the repo", func(t *testing.T) {
			service, _ := setup()
			assert.Nil(t, service.Add(ctx, repoID, mustSecret(t, "A", "1")))
			assert.Nil(t, service.Add(ctx, "github.com/acme/other", mustSecret(t, "B", "2")))

			names, err := service.ListNames(ctx, repoID)
			assert.Nil(t, err)
			assert.Equal(t, []string{"A"}, names)
		})
	})
}

type vaultFake struct {
	values map[string]string
}

func (v *vaultFake) Put(ctx context.Context, key, value string) error {
	v.values[key] = value
	return nil
}

func (v *vaultFake) Update(ctx context.Context, key, value string) error {
	if _, ok := v.values[key]; !ok {
		return errors.NotFound(secret.EntitySecret, key)
	}
	v.values[key] = value
	return nil
}

func (v *vaultFake) Get(ctx context.Context, key string) (string, error) {
	value, ok := v.values[key]
	if !ok {
		return "", errors.NotFound(secret.EntitySecret, key)
	}
	return value, nil
}

func (v *vaultFake) Delete(ctx context.Context, key string) error {
	if _, ok := v.values[key]; !ok {
		return errors.NotFound(secret.EntitySecret, key)
	}
	delete(v.values, key)
	return nil
}
