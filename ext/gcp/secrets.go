package gcp

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	secretmanager "google.golang.org/api/secretmanager/v1"

	"github.com/moorlabs/moor/core/secret"
	"github.com/moorlabs/moor/internal/errors"
)

// Vault stores secret values in GCP Secret Manager. Slashes in the logical
// key are flattened because secret ids only allow a narrow charset.
type Vault struct {
	service *secretmanager.Service
	project string
}

func NewVault(service *secretmanager.Service, project string) *Vault {
	return &Vault{service: service, project: project}
}

func (v *Vault) secretID(key string) string {
	return strings.ReplaceAll(strings.Trim(key, "/"), "/", "-")
}

func (v *Vault) parent() string {
	return "projects/" + v.project
}

func (v *Vault) name(key string) string {
	return v.parent() + "/secrets/" + v.secretID(key)
}

func (v *Vault) Put(ctx context.Context, key, value string) error {
	_, err := v.service.Projects.Secrets.Create(v.parent(), &secretmanager.Secret{
		Replication: &secretmanager.Replication{Automatic: &secretmanager.Automatic{}},
	}).SecretId(v.secretID(key)).Context(ctx).Do()
	if err != nil && !isConflict(err) {
		return errors.InternalError(secret.EntitySecret, "unable to create vault entry "+key, err)
	}
	return v.addVersion(ctx, key, value)
}

func (v *Vault) Update(ctx context.Context, key, value string) error {
	return v.addVersion(ctx, key, value)
}

func (v *Vault) addVersion(ctx context.Context, key, value string) error {
	_, err := v.service.Projects.Secrets.AddVersion(v.name(key), &secretmanager.AddSecretVersionRequest{
		Payload: &secretmanager.SecretPayload{
			Data: base64.StdEncoding.EncodeToString([]byte(value)),
		},
	}).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return errors.NotFound(secret.EntitySecret, key)
		}
		return errors.InternalError(secret.EntitySecret, "unable to write vault entry "+key, err)
	}
	return nil
}

func (v *Vault) Get(ctx context.Context, key string) (string, error) {
	out, err := v.service.Projects.Secrets.Versions.Access(v.name(key) + "/versions/latest").Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return "", errors.NotFound(secret.EntitySecret, key)
		}
		return "", errors.InternalError(secret.EntitySecret, "unable to read vault entry "+key, err)
	}
	data, err := base64.StdEncoding.DecodeString(out.Payload.Data)
	if err != nil {
		return "", errors.InternalError(secret.EntitySecret, "corrupt vault entry "+key, err)
	}
	return string(data), nil
}

func (v *Vault) Delete(ctx context.Context, key string) error {
	_, err := v.service.Projects.Secrets.Delete(v.name(key)).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return errors.NotFound(secret.EntitySecret, key)
		}
		return errors.InternalError(secret.EntitySecret, "unable to delete vault entry "+key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

func isConflict(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}
