// Package aws binds the backend capabilities to one AWS account: S3 for
// objects, EC2 for compute, Secrets Manager for the vault and CloudWatch
// Logs for the sink.
package aws

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/raystack/salt/log"
	"github.com/spf13/afero"

	"github.com/moorlabs/moor/backend"
	"github.com/moorlabs/moor/config"
	"github.com/moorlabs/moor/internal/errors"
)

const Name = "aws"

// New constructs the AWS backend. All SDK clients are built once here and
// owned by the backend instance; nothing global.
func New(ctx context.Context, l log.Logger, conf *config.AWSConfig) (*backend.Backend, error) {
	if conf == nil {
		return nil, &config.ConfigError{Code: config.CodeRequired, FieldPath: "aws", Message: "aws config is missing"}
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(conf.Region)}
	if conf.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(conf.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.InternalError("backend", "unable to load aws credentials", err)
	}

	storage := NewStorage(s3.NewFromConfig(awsCfg), conf.Bucket)
	cmp := NewCompute(ec2.NewFromConfig(awsCfg), ssm.NewFromConfig(awsCfg), conf.Region, conf.SubnetID, conf.Bucket)
	vault := NewVault(secretsmanager.NewFromConfig(awsCfg))
	sink := NewSink(cloudwatchlogs.NewFromConfig(awsCfg), conf.Bucket)

	return backend.New(Name, l, storage, cmp, vault, sink, afero.NewOsFs()), nil
}
