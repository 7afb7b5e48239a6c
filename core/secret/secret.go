package secret

import (
	"context"

	"github.com/moorlabs/moor/internal/errors"
)

const EntitySecret = "secret"

type Name string

func NameFrom(name string) (Name, error) {
	if name == "" {
		return "", errors.InvalidArgument(EntitySecret, "secret name is empty")
	}
	return Name(name), nil
}

func (n Name) String() string {
	return string(n)
}

// Secret is a named value scoped to a repository. The value lives in the
// provider vault; only the name is indexed in the object store.
type Secret struct {
	name  Name
	value string
}

func New(name, value string) (*Secret, error) {
	secretName, err := NameFrom(name)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, errors.InvalidArgument(EntitySecret, "secret value is empty")
	}
	return &Secret{name: secretName, value: value}, nil
}

func (s *Secret) Name() Name {
	return s.name
}

func (s *Secret) Value() string {
	return s.value
}

// Vault is the provider secret store capability. Keys are fully derived
// vault-side names; listing is deliberately absent because not every provider
// supports it, which is why an index is kept in the object store.
type Vault interface {
	Put(ctx context.Context, key, value string) error
	Update(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
