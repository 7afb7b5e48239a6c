package local

import (
	"context"
	"strings"

	"github.com/moorlabs/moor/core/secret"
	"github.com/moorlabs/moor/internal/errors"
	"github.com/moorlabs/moor/internal/store"
)

const vaultPrefix = "vault/"

// Vault keeps secret values in the local object store. Good enough for a
// single-machine backend; real providers use their managed vaults.
type Vault struct {
	storage *Storage
}

func NewVault(storage *Storage) *Vault {
	return &Vault{storage: storage}
}

func vaultKey(key string) string {
	return vaultPrefix + strings.TrimPrefix(key, "/")
}

func (v *Vault) Put(ctx context.Context, key, value string) error {
	return store.PutBytes(ctx, v.storage, vaultKey(key), []byte(value))
}

func (v *Vault) Update(ctx context.Context, key, value string) error {
	return v.Put(ctx, key, value)
}

func (v *Vault) Get(ctx context.Context, key string) (string, error) {
	data, err := store.GetBytes(ctx, v.storage, vaultKey(key))
	if err != nil {
		if errors.IsNotFound(err) {
			return "", errors.NotFound(secret.EntitySecret, key)
		}
		return "", err
	}
	return string(data), nil
}

func (v *Vault) Delete(ctx context.Context, key string) error {
	return v.storage.Delete(ctx, vaultKey(key))
}
