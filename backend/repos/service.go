package repos

import (
	"context"
	"time"

	"github.com/raystack/salt/log"
	"gopkg.in/yaml.v3"

	"github.com/moorlabs/moor/core/repo"
	"github.com/moorlabs/moor/core/secret"
	"github.com/moorlabs/moor/internal/errors"
	"github.com/moorlabs/moor/internal/store"
)

// Service keeps repository bookkeeping records and the remote credentials
// needed to clone private repos on the compute side. Credentials go to the
// vault, never to the object store.
type Service struct {
	l       log.Logger
	objects store.ObjectStore
	vault   secret.Vault
}

func NewService(l log.Logger, objects store.ObjectStore, vault secret.Vault) *Service {
	return &Service{l: l, objects: objects, vault: vault}
}

func repoKey(repoID string) string {
	return "repos/" + repoID
}

func credentialsKey(repoID string) string {
	return "/moor/" + repoID + "/credentials"
}

func (s *Service) ListHeads(ctx context.Context) ([]*repo.Head, error) {
	objs, err := s.objects.List(ctx, "repos/")
	if err != nil {
		return nil, err
	}
	heads := make([]*repo.Head, 0, len(objs))
	for _, o := range objs {
		data, err := store.GetBytes(ctx, s.objects, o.Key)
		if err != nil {
			if errors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		var h repo.Head
		if err := yaml.Unmarshal(data, &h); err != nil {
			return nil, errors.InternalError(repo.EntityRepo, "corrupt repo record "+o.Key, err)
		}
		heads = append(heads, &h)
	}
	return heads, nil
}

// Touch records that the repo just ran something.
func (s *Service) Touch(ctx context.Context, repoID string, lastRunAt time.Time) error {
	head := repo.Head{RepoID: repoID, LastRunAt: lastRunAt.UTC()}
	data, err := yaml.Marshal(&head)
	if err != nil {
		return errors.InternalError(repo.EntityRepo, "unable to encode repo record "+repoID, err)
	}
	return store.PutBytes(ctx, s.objects, repoKey(repoID), data)
}

func (s *Service) Delete(ctx context.Context, repoID string) error {
	return s.objects.Delete(ctx, repoKey(repoID))
}

func (s *Service) Credentials(ctx context.Context, repoID string) (*repo.RemoteCredentials, error) {
	value, err := s.vault.Get(ctx, credentialsKey(repoID))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NotFound(repo.EntityRepo, "credentials for repo "+repoID)
		}
		return nil, err
	}
	var creds repo.RemoteCredentials
	if err := yaml.Unmarshal([]byte(value), &creds); err != nil {
		return nil, errors.InternalError(repo.EntityRepo, "corrupt credentials for repo "+repoID, err)
	}
	return &creds, nil
}

func (s *Service) SaveCredentials(ctx context.Context, repoID string, creds *repo.RemoteCredentials) error {
	data, err := yaml.Marshal(creds)
	if err != nil {
		return errors.InternalError(repo.EntityRepo, "unable to encode credentials for repo "+repoID, err)
	}
	if err := s.vault.Update(ctx, credentialsKey(repoID), string(data)); err != nil {
		if errors.IsNotFound(err) {
			return s.vault.Put(ctx, credentialsKey(repoID), string(data))
		}
		return err
	}
	return nil
}
