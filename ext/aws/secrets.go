package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/moorlabs/moor/core/secret"
	"github.com/moorlabs/moor/internal/errors"
)

// Vault stores secret values in AWS Secrets Manager. Versioning is the
// provider's; the control plane only ever reads the current version.
type Vault struct {
	client *secretsmanager.Client
}

func NewVault(client *secretsmanager.Client) *Vault {
	return &Vault{client: client}
}

func (v *Vault) Put(ctx context.Context, key, value string) error {
	_, err := v.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(key),
		SecretString: aws.String(value),
	})
	if err != nil {
		var exists *smtypes.ResourceExistsException
		if errors.As(err, &exists) {
			return v.Update(ctx, key, value)
		}
		return errors.InternalError(secret.EntitySecret, "unable to create vault entry "+key, err)
	}
	return nil
}

func (v *Vault) Update(ctx context.Context, key, value string) error {
	_, err := v.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(key),
		SecretString: aws.String(value),
	})
	if err != nil {
		var notFound *smtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return errors.NotFound(secret.EntitySecret, key)
		}
		return errors.InternalError(secret.EntitySecret, "unable to update vault entry "+key, err)
	}
	return nil
}

func (v *Vault) Get(ctx context.Context, key string) (string, error) {
	out, err := v.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(key),
	})
	if err != nil {
		var notFound *smtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", errors.NotFound(secret.EntitySecret, key)
		}
		return "", errors.InternalError(secret.EntitySecret, "unable to read vault entry "+key, err)
	}
	return aws.ToString(out.SecretString), nil
}

func (v *Vault) Delete(ctx context.Context, key string) error {
	_, err := v.client.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
		SecretId:                   aws.String(key),
		ForceDeleteWithoutRecovery: aws.Bool(true),
	})
	if err != nil {
		var notFound *smtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return errors.NotFound(secret.EntitySecret, key)
		}
		return errors.InternalError(secret.EntitySecret, "unable to delete vault entry "+key, err)
	}
	return nil
}
