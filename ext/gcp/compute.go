package gcp

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	gcompute "google.golang.org/api/compute/v1"
	"google.golang.org/api/googleapi"

	"github.com/moorlabs/moor/core/compute"
	"github.com/moorlabs/moor/core/job"
	"github.com/moorlabs/moor/internal/errors"
)

var machineTypes = []compute.InstanceType{
	{Name: "e2-small", Resources: compute.Resources{CPUs: 2, MemoryMiB: 2048}},
	{Name: "n1-standard-2", Resources: compute.Resources{CPUs: 2, MemoryMiB: 7680}},
	{Name: "n1-standard-4", Resources: compute.Resources{CPUs: 4, MemoryMiB: 15360}},
	{Name: "n1-standard-8", Resources: compute.Resources{CPUs: 8, MemoryMiB: 30720}},
	{Name: "n1-standard-4-t4", Resources: compute.Resources{CPUs: 4, MemoryMiB: 15360, GPU: &job.GPU{Count: 1, Name: "T4", MemoryMiB: 16384}}},
	{Name: "n1-standard-8-v100", Resources: compute.Resources{CPUs: 8, MemoryMiB: 30720, GPU: &job.GPU{Count: 1, Name: "V100", MemoryMiB: 16384}}},
}

// Compute places jobs on GCE instances.
type Compute struct {
	service *gcompute.Service
	project string
	zone    string
	network string
	bucket  string
}

func NewCompute(service *gcompute.Service, project, zone, network, bucket string) *Compute {
	return &Compute{service: service, project: project, zone: zone, network: network, bucket: bucket}
}

func (c *Compute) Launch(ctx context.Context, j *job.Job) (string, error) {
	it, err := c.PredictInstanceType(ctx, j)
	if err != nil {
		return "", err
	}
	if it == nil {
		return "", compute.NewLaunchError("no machine type satisfies the job requirements", nil)
	}

	name := "moor-" + strings.ReplaceAll(j.ID, ",", "-")
	machine := strings.TrimSuffix(strings.TrimSuffix(it.Name, "-t4"), "-v100")
	inst := &gcompute.Instance{
		Name:        name,
		MachineType: fmt.Sprintf("zones/%s/machineTypes/%s", c.zone, machine),
		Disks: []*gcompute.AttachedDisk{{
			Boot:       true,
			AutoDelete: true,
			InitializeParams: &gcompute.AttachedDiskInitializeParams{
				SourceImage: "projects/ubuntu-os-cloud/global/images/family/ubuntu-2204-lts",
			},
		}},
		NetworkInterfaces: []*gcompute.NetworkInterface{{
			Network: c.networkLink(),
			AccessConfigs: []*gcompute.AccessConfig{{
				Type: "ONE_TO_ONE_NAT", Name: "External NAT",
			}},
		}},
		Labels: map[string]string{
			"moor-repo": sanitizeLabel(j.RepoID),
			"moor-run":  sanitizeLabel(j.RunName),
		},
	}
	if gpu := it.Resources.GPU; gpu != nil {
		inst.GuestAccelerators = []*gcompute.AcceleratorConfig{{
			AcceleratorCount: int64(gpu.Count),
			AcceleratorType: fmt.Sprintf("zones/%s/acceleratorTypes/nvidia-tesla-%s",
				c.zone, strings.ToLower(gpu.Name)),
		}}
		inst.Scheduling = &gcompute.Scheduling{OnHostMaintenance: "TERMINATE"}
	}
	if it.Resources.Spot {
		inst.Scheduling = &gcompute.Scheduling{
			Preemptible:       true,
			OnHostMaintenance: "TERMINATE",
			AutomaticRestart:  googleapi.Bool(false),
		}
	}

	if _, err := c.service.Instances.Insert(c.project, c.zone, inst).Context(ctx).Do(); err != nil {
		return "", mapLaunchError(err)
	}
	return name, nil
}

func (c *Compute) Terminate(ctx context.Context, requestID string) error {
	_, err := c.service.Instances.Delete(c.project, c.zone, requestID).Context(ctx).Do()
	if err != nil {
		if isGone(err) {
			return nil
		}
		return errors.InternalError(compute.EntityCompute, "unable to delete instance "+requestID, err)
	}
	return nil
}

func (c *Compute) RequestStatus(ctx context.Context, j *job.Job) (compute.Request, error) {
	inst, err := c.service.Instances.Get(c.project, c.zone, j.RequestID).Context(ctx).Do()
	if err != nil {
		if isGone(err) {
			return compute.Request{RequestID: j.RequestID, Alive: false}, nil
		}
		return compute.Request{}, errors.InternalError(compute.EntityCompute, "unable to get instance "+j.RequestID, err)
	}
	switch inst.Status {
	case "PROVISIONING", "STAGING", "RUNNING":
		return compute.Request{RequestID: j.RequestID, Alive: true}, nil
	}
	return compute.Request{RequestID: j.RequestID, Alive: false}, nil
}

// Exec hands commands to the on-instance agent through metadata; the agent
// watches the moor-exec key.
func (c *Compute) Exec(ctx context.Context, requestID string, commands []string) error {
	inst, err := c.service.Instances.Get(c.project, c.zone, requestID).Context(ctx).Do()
	if err != nil {
		return errors.InternalError(compute.EntityCompute, "unable to get instance "+requestID, err)
	}
	script := strings.Join(commands, "\n")
	items := append(inst.Metadata.Items, &gcompute.MetadataItems{Key: "moor-exec", Value: &script})
	_, err = c.service.Instances.SetMetadata(c.project, c.zone, requestID, &gcompute.Metadata{
		Fingerprint: inst.Metadata.Fingerprint,
		Items:       items,
	}).Context(ctx).Do()
	if err != nil {
		return errors.InternalError(compute.EntityCompute, "unable to set exec metadata on "+requestID, err)
	}
	return nil
}

func (c *Compute) PredictInstanceType(ctx context.Context, j *job.Job) (*compute.InstanceType, error) {
	req := j.Spec.Requirements
	for _, it := range machineTypes {
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

func (c *Compute) networkLink() string {
	if c.network != "" {
		return "global/networks/" + c.network
	}
	return "global/networks/default"
}

func mapLaunchError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden {
		return errors.PermissionDenied(compute.EntityCompute, apiErr.Message)
	}
	return compute.NewLaunchError("gce instance insert", err)
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

func sanitizeLabel(v string) string {
	v = strings.ToLower(v)
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, v)
}
