package secrets

import (
	"context"
	"strings"

	"github.com/raystack/salt/log"

	"github.com/moorlabs/moor/core/secret"
	"github.com/moorlabs/moor/internal/errors"
	"github.com/moorlabs/moor/internal/store"
)

// Service stores secret values in the provider vault and keeps a per-repo
// name index in the object store, because not every vault can list by
// prefix.
type Service struct {
	l       log.Logger
	objects store.ObjectStore
	vault   secret.Vault
}

func NewService(l log.Logger, objects store.ObjectStore, vault secret.Vault) *Service {
	return &Service{l: l, objects: objects, vault: vault}
}

func vaultKey(repoID, name string) string {
	return "/moor/" + repoID + "/secrets/" + name
}

func indexKey(repoID, name string) string {
	return "secrets-index/" + repoID + "/" + name
}

// Add writes the vault entry before the index entry, so a name is never
// advertised without a value behind it. The two writes are not atomic; the
// narrow window where the value exists unindexed is accepted.
func (s *Service) Add(ctx context.Context, repoID string, sec *secret.Secret) error {
	if sec == nil {
		return errors.InvalidArgument(secret.EntitySecret, "secret is nil")
	}
	name := sec.Name().String()
	exists, err := store.Exists(ctx, s.objects, indexKey(repoID, name))
	if err != nil {
		return err
	}
	if exists {
		return errors.AlreadyExists(secret.EntitySecret, "secret "+name+" in repo "+repoID)
	}
	if err := s.vault.Put(ctx, vaultKey(repoID, name), sec.Value()); err != nil {
		return err
	}
	return store.PutBytes(ctx, s.objects, indexKey(repoID, name), []byte(name))
}

func (s *Service) Update(ctx context.Context, repoID string, sec *secret.Secret) error {
	if sec == nil {
		return errors.InvalidArgument(secret.EntitySecret, "secret is nil")
	}
	name := sec.Name().String()
	exists, err := store.Exists(ctx, s.objects, indexKey(repoID, name))
	if err != nil {
		return err
	}
	if !exists {
		return errors.NotFound(secret.EntitySecret, "secret "+name+" in repo "+repoID)
	}
	return s.vault.Update(ctx, vaultKey(repoID, name), sec.Value())
}

func (s *Service) Get(ctx context.Context, repoID, name string) (*secret.Secret, error) {
	value, err := s.vault.Get(ctx, vaultKey(repoID, name))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NotFound(secret.EntitySecret, "secret "+name+" in repo "+repoID)
		}
		return nil, err
	}
	return secret.New(name, value)
}

// Delete removes the vault entry before the index entry, keeping the window
// where a listed name has no value as narrow as possible.
func (s *Service) Delete(ctx context.Context, repoID, name string) error {
	exists, err := store.Exists(ctx, s.objects, indexKey(repoID, name))
	if err != nil {
		return err
	}
	if !exists {
		return errors.NotFound(secret.EntitySecret, "secret "+name+" in repo "+repoID)
	}
	if err := s.vault.Delete(ctx, vaultKey(repoID, name)); err != nil && !errors.IsNotFound(err) {
		return err
	}
	return s.objects.Delete(ctx, indexKey(repoID, name))
}

func (s *Service) ListNames(ctx context.Context, repoID string) ([]string, error) {
	prefix := "secrets-index/" + repoID + "/"
	objs, err := s.objects.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(objs))
	for _, o := range objs {
		names = append(names, strings.TrimPrefix(o.Key, prefix))
	}
	return names, nil
}
