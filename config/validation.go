package config

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/moorlabs/moor/internal/errors"
)

// Validate checks the whole config eagerly and reports every offense, not
// just the first, each with its field path attached.
func Validate(conf *BackendConfig) error {
	me := errors.NewMultiError("backend config is not valid")

	err := validation.ValidateStruct(conf,
		validation.Field(&conf.Type, validation.Required,
			validation.In(BackendTypeAWS, BackendTypeGCP, BackendTypeLocal)),
	)
	collect(me, "", err)

	switch conf.Type {
	case BackendTypeAWS:
		if conf.AWS == nil {
			me.Append(&ConfigError{Code: CodeRequired, FieldPath: "aws", Message: "aws section is required for type aws"})
			break
		}
		collect(me, "aws", validation.ValidateStruct(conf.AWS,
			validation.Field(&conf.AWS.Region, validation.Required),
			validation.Field(&conf.AWS.Bucket, validation.Required),
		))
	case BackendTypeGCP:
		if conf.GCP == nil {
			me.Append(&ConfigError{Code: CodeRequired, FieldPath: "gcp", Message: "gcp section is required for type gcp"})
			break
		}
		collect(me, "gcp", validation.ValidateStruct(conf.GCP,
			validation.Field(&conf.GCP.Project, validation.Required),
			validation.Field(&conf.GCP.Zone, validation.Required),
			validation.Field(&conf.GCP.Bucket, validation.Required),
		))
	case BackendTypeLocal:
		if conf.Local == nil {
			me.Append(&ConfigError{Code: CodeRequired, FieldPath: "local", Message: "local section is required for type local"})
			break
		}
		collect(me, "local", validation.ValidateStruct(conf.Local,
			validation.Field(&conf.Local.RootDir, validation.Required),
		))
	}

	return me.ErrorOrNil()
}

// collect flattens ozzo's per-field error map into ConfigError values with
// full field paths.
func collect(me *errors.MultiError, prefix string, err error) {
	if err == nil {
		return
	}
	fieldErrs, ok := err.(validation.Errors)
	if !ok {
		me.Append(&ConfigError{Code: CodeInvalid, FieldPath: prefix, Message: err.Error()})
		return
	}
	for field, ferr := range fieldErrs {
		path := field
		if prefix != "" {
			path = prefix + "." + field
		}
		code := CodeInvalid
		if ferr.Error() == validation.ErrRequired.Message() {
			code = CodeRequired
		}
		me.Append(&ConfigError{Code: code, FieldPath: path, Message: ferr.Error()})
	}
}
