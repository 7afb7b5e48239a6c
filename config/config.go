// Package config declares the backend configuration surface: every
// recognized option, its default, and eager validation at construction time.
package config

import "fmt"

const (
	BackendTypeAWS   = "aws"
	BackendTypeGCP   = "gcp"
	BackendTypeLocal = "local"
)

// BackendConfig selects and parameterizes one provider account. Exactly one
// provider section matching Type must be present.
type BackendConfig struct {
	Type string `mapstructure:"type" yaml:"type" json:"type"`

	AWS   *AWSConfig   `mapstructure:"aws" yaml:"aws,omitempty" json:"aws"`
	GCP   *GCPConfig   `mapstructure:"gcp" yaml:"gcp,omitempty" json:"gcp"`
	Local *LocalConfig `mapstructure:"local" yaml:"local,omitempty" json:"local"`
}

// AWSConfig places the backend in one region and one bucket. Credentials
// resolve through the default SDK chain unless a profile is named.
type AWSConfig struct {
	Region   string `mapstructure:"region" yaml:"region" json:"region"`
	Bucket   string `mapstructure:"bucket" yaml:"bucket" json:"bucket"`
	SubnetID string `mapstructure:"subnet_id" yaml:"subnet_id,omitempty" json:"subnet_id"`
	Profile  string `mapstructure:"profile" yaml:"profile,omitempty" json:"profile"`
}

type GCPConfig struct {
	Project string `mapstructure:"project" yaml:"project" json:"project"`
	Zone    string `mapstructure:"zone" yaml:"zone" json:"zone"`
	Bucket  string `mapstructure:"bucket" yaml:"bucket" json:"bucket"`
	Network string `mapstructure:"network" yaml:"network,omitempty" json:"network"`
}

type LocalConfig struct {
	RootDir string `mapstructure:"root_dir" yaml:"root_dir" json:"root_dir"`
}

// ConfigError is a machine-readable misconfiguration: a code plus the path of
// the offending field, so a UI can highlight it.
type ConfigError struct {
	Code      string
	FieldPath string
	Message   string
}

const (
	CodeRequired = "required"
	CodeInvalid  = "invalid"
)

func (e *ConfigError) Error() string {
	return fmt.Sprintf("backend config error (%s) at %s: %s", e.Code, e.FieldPath, e.Message)
}

// Default returns a config with every defaulted field filled in.
func Default() *BackendConfig {
	return &BackendConfig{
		Type:  BackendTypeLocal,
		Local: &LocalConfig{RootDir: "~/.moor"},
	}
}
