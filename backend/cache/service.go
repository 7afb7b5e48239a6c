package cache

import (
	"context"

	"github.com/raystack/salt/log"

	"github.com/moorlabs/moor/internal/store"
)

// Service clears per-workflow caches kept between runs of the same workflow.
type Service struct {
	l       log.Logger
	objects store.ObjectStore
}

func NewService(l log.Logger, objects store.ObjectStore) *Service {
	return &Service{l: l, objects: objects}
}

func (s *Service) DeleteWorkflowCache(ctx context.Context, repoID, hubUserName, workflowName string) error {
	prefix := "cache/" + repoID + "/" + hubUserName + "/" + workflowName + "/"
	objs, err := s.objects.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, o := range objs {
		if err := s.objects.Delete(ctx, o.Key); err != nil {
			return err
		}
	}
	s.l.Debug("cleared workflow cache", "repo", repoID, "workflow", workflowName, "objects", len(objs))
	return nil
}
