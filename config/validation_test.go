package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moorlabs/moor/config"
)

func TestValidate(t *testing.T) {
	t.Run("accepts the default config", func(t *testing.T) {
		assert.Nil(t, config.Validate(config.Default()))
	})

	t.Run("rejects an unknown backend type", func(t *testing.T) {
		err := config.Validate(&config.BackendConfig{Type: "azure"})
		assert.NotNil(t, err)
		assert.Contains(t, err.Error(), "type")
	})

	t.Run("requires the section matching the type", func(t *testing.T) {
		err := config.Validate(&config.BackendConfig{Type: config.BackendTypeAWS})
		assert.NotNil(t, err)
		assert.Contains(t, err.Error(), "aws section is required")
	})

	t.Run("reports every missing aws field with its path", func(t *testing.T) {
		err := config.Validate(&config.BackendConfig{
			Type: config.BackendTypeAWS,
			AWS:  &config.AWSConfig{},
		})
		assert.NotNil(t, err)
		assert.Contains(t, err.Error(), "aws.region")
		assert.Contains(t, err.Error(), "aws.bucket")
	})

	t.Run("reports every missing gcp field with its path", func(t *testing.T) {
		err := config.Validate(&config.BackendConfig{
			Type: config.BackendTypeGCP,
			GCP:  &config.GCPConfig{Project: "acme-ml"},
		})
		assert.NotNil(t, err)
		assert.Contains(t, err.Error(), "gcp.zone")
		assert.Contains(t, err.Error(), "gcp.bucket")
		assert.NotContains(t, err.Error(), "gcp.project")
	})

	t.Run("accepts a complete aws config", func(t *testing.T) {
		assert.Nil(t, config.Validate(&config.BackendConfig{
			Type: config.BackendTypeAWS,
			AWS:  &config.AWSConfig{Region: "eu-west-1", Bucket: "moor-artifacts"},
		}))
	})

	t.Run("accepts a complete gcp config", func(t *testing.T) {
		assert.Nil(t, config.Validate(&config.BackendConfig{
			Type: config.BackendTypeGCP,
			GCP:  &config.GCPConfig{Project: "acme-ml", Zone: "europe-west4-a", Bucket: "moor-artifacts"},
		}))
	})

	t.Run("requires a root dir for the local backend", func(t *testing.T) {
		err := config.Validate(&config.BackendConfig{
			Type:  config.BackendTypeLocal,
			Local: &config.LocalConfig{},
		})
		assert.NotNil(t, err)
		assert.Contains(t, err.Error(), "local.root_dir")
	})
}
