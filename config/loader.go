package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/moorlabs/moor/internal/errors"
)

const (
	DefaultFilename  = "moor"
	DefaultExtension = "yaml"
	DefaultEnvPrefix = "MOOR"
)

// Load reads the backend config file from dir (or the working directory when
// empty), layers MOOR_* environment overrides on top, and validates the
// result before returning it.
func Load(dir string) (*BackendConfig, error) {
	v := viper.New()
	v.SetConfigName(DefaultFilename)
	v.SetConfigType(DefaultExtension)
	if dir == "" {
		dir = "."
	}
	v.AddConfigPath(dir)
	v.SetEnvPrefix(DefaultEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := Default()
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, errors.InternalError("config", "unable to read backend config", err)
		}
		// no file is fine, env and defaults still apply
	}
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.InternalError("config", "unable to decode backend config", err)
	}
	if err := Validate(conf); err != nil {
		return nil, err
	}
	return conf, nil
}
