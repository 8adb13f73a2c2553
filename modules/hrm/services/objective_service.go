package services

import (
	"context"

	"github.com/iota-uz/hr-console/modules/hrm/domain/entities/objective"
)

type ObjectiveService struct {
	repo objective.Repository
}

func NewObjectiveService(repo objective.Repository) *ObjectiveService {
	return &ObjectiveService{repo: repo}
}

// ListActive satisfies ObjectiveFetcher for in-process catalogs.
func (s *ObjectiveService) ListActive(ctx context.Context) ([]objective.Objective, error) {
	if err := authorizeHRM(ctx, ObjectivesAuthzObject, "list"); err != nil {
		return nil, err
	}
	objs, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if objs == nil {
		objs = []objective.Objective{}
	}
	return objs, nil
}
