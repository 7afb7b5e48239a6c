package aws

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/smithy-go"

	"github.com/moorlabs/moor/core/compute"
	"github.com/moorlabs/moor/core/job"
	"github.com/moorlabs/moor/internal/errors"
)

// instanceTypes is the curated menu the sizing decision picks from, smallest
// first. Requirements outside this menu get nil, not an error.
var instanceTypes = []compute.InstanceType{
	{Name: "t3.small", Resources: compute.Resources{CPUs: 2, MemoryMiB: 2048}},
	{Name: "m5.large", Resources: compute.Resources{CPUs: 2, MemoryMiB: 8192}},
	{Name: "m5.xlarge", Resources: compute.Resources{CPUs: 4, MemoryMiB: 16384}},
	{Name: "c5.2xlarge", Resources: compute.Resources{CPUs: 8, MemoryMiB: 16384}},
	{Name: "m5.2xlarge", Resources: compute.Resources{CPUs: 8, MemoryMiB: 32768}},
	{Name: "g4dn.xlarge", Resources: compute.Resources{CPUs: 4, MemoryMiB: 16384, GPU: &job.GPU{Count: 1, Name: "T4", MemoryMiB: 16384}}},
	{Name: "p3.2xlarge", Resources: compute.Resources{CPUs: 8, MemoryMiB: 62464, GPU: &job.GPU{Count: 1, Name: "V100", MemoryMiB: 16384}}},
	{Name: "p3.8xlarge", Resources: compute.Resources{CPUs: 32, MemoryMiB: 249856, GPU: &job.GPU{Count: 4, Name: "V100", MemoryMiB: 16384}}},
}

// Compute places jobs on EC2 instances.
type Compute struct {
	ec2Client *ec2.Client
	ssmClient *ssm.Client
	region    string
	subnetID  string
	bucket    string
}

func NewCompute(ec2Client *ec2.Client, ssmClient *ssm.Client, region, subnetID, bucket string) *Compute {
	return &Compute{
		ec2Client: ec2Client,
		ssmClient: ssmClient,
		region:    region,
		subnetID:  subnetID,
		bucket:    bucket,
	}
}

func (c *Compute) Launch(ctx context.Context, j *job.Job) (string, error) {
	it, err := c.PredictInstanceType(ctx, j)
	if err != nil {
		return "", err
	}
	if it == nil {
		return "", compute.NewLaunchError("no instance type satisfies the job requirements", nil)
	}

	input := &ec2.RunInstancesInput{
		ImageId:      aws.String(defaultImageID(it)),
		InstanceType: ec2types.InstanceType(it.Name),
		MinCount:     aws.Int32(1),
		MaxCount:     aws.Int32(1),
		UserData:     aws.String(base64.StdEncoding.EncodeToString([]byte(userData(c.bucket, j)))),
		TagSpecifications: []ec2types.TagSpecification{{
			ResourceType: ec2types.ResourceTypeInstance,
			Tags: []ec2types.Tag{
				{Key: aws.String("Name"), Value: aws.String("moor-" + j.RunName)},
				{Key: aws.String("moor:repo"), Value: aws.String(j.RepoID)},
				{Key: aws.String("moor:job"), Value: aws.String(j.ID)},
			},
		}},
	}
	if c.subnetID != "" {
		input.SubnetId = aws.String(c.subnetID)
	}
	if j.Spec.Requirements.Spot {
		input.InstanceMarketOptions = &ec2types.InstanceMarketOptionsRequest{
			MarketType: ec2types.MarketTypeSpot,
			SpotOptions: &ec2types.SpotMarketOptions{
				SpotInstanceType: ec2types.SpotInstanceTypeOneTime,
			},
		}
	}

	out, err := c.ec2Client.RunInstances(ctx, input)
	if err != nil {
		return "", mapLaunchError(err)
	}
	if len(out.Instances) == 0 {
		return "", compute.NewLaunchError("no instance returned", nil)
	}
	return aws.ToString(out.Instances[0].InstanceId), nil
}

func (c *Compute) Terminate(ctx context.Context, requestID string) error {
	_, err := c.ec2Client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{requestID},
	})
	if err != nil {
		if isInstanceGone(err) {
			return nil
		}
		return errors.InternalError(compute.EntityCompute, "unable to terminate "+requestID, err)
	}
	return nil
}

func (c *Compute) RequestStatus(ctx context.Context, j *job.Job) (compute.Request, error) {
	out, err := c.ec2Client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{j.RequestID},
	})
	if err != nil {
		if isInstanceGone(err) {
			return compute.Request{RequestID: j.RequestID, Alive: false}, nil
		}
		return compute.Request{}, errors.InternalError(compute.EntityCompute, "unable to describe "+j.RequestID, err)
	}
	for _, res := range out.Reservations {
		for _, inst := range res.Instances {
			switch inst.State.Name {
			case ec2types.InstanceStateNamePending, ec2types.InstanceStateNameRunning:
				return compute.Request{RequestID: j.RequestID, Alive: true}, nil
			}
		}
	}
	return compute.Request{RequestID: j.RequestID, Alive: false}, nil
}

func (c *Compute) Exec(ctx context.Context, requestID string, commands []string) error {
	_, err := c.ssmClient.SendCommand(ctx, &ssm.SendCommandInput{
		DocumentName: aws.String("AWS-RunShellScript"),
		InstanceIds:  []string{requestID},
		Parameters:   map[string][]string{"commands": commands},
	})
	if err != nil {
		return errors.InternalError(compute.EntityCompute, "unable to run commands on "+requestID, err)
	}
	return nil
}

func (c *Compute) PredictInstanceType(ctx context.Context, j *job.Job) (*compute.InstanceType, error) {
	req := j.Spec.Requirements
	for _, it := range instanceTypes {
		if it.Resources.CPUs < req.CPUs || it.Resources.MemoryMiB < req.MemoryMiB {
			continue
		}
		if req.GPU != nil {
			if it.Resources.GPU == nil || it.Resources.GPU.Count < req.GPU.Count {
				continue
			}
			if req.GPU.Name != "" && it.Resources.GPU.Name != req.GPU.Name {
				continue
			}
		}
		match := it
		match.Resources.Spot = req.Spot
		return &match, nil
	}
	return nil, nil
}

func mapLaunchError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "UnauthorizedOperation":
			return errors.PermissionDenied(compute.EntityCompute, apiErr.ErrorMessage())
		}
	}
	// capacity, quota and parameter problems are all recoverable by retrying
	// with another instance type
	return compute.NewLaunchError("ec2 run instances", err)
}

func isInstanceGone(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "InvalidInstanceID.NotFound" || code == "InvalidInstanceID.Malformed"
	}
	return false
}

// defaultImageID names the stock runner image per instance family. Real
// resolution goes through SSM public parameters at deploy time; the id here
// is the documented fallback.
func defaultImageID(it *compute.InstanceType) string {
	if it.Resources.GPU != nil {
		return "resolve:ssm:/aws/service/deeplearning/ami/x86_64/base-oss-nvidia-driver-gpu-ubuntu-22.04/latest/ami-id"
	}
	return "resolve:ssm:/aws/service/canonical/ubuntu/server/22.04/stable/current/amd64/hvm/ebs-gp2/ami-id"
}

func userData(bucket string, j *job.Job) string {
	return fmt.Sprintf(`#!/bin/bash
set -e
mkdir -p /etc/moor
cat > /etc/moor/job <<EOF
bucket=%s
repo_id=%s
job_id=%s
EOF
`, bucket, j.RepoID, j.ID)
}
