package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/hr-console/modules/hrm/domain/aggregates/allocation"
	"github.com/iota-uz/hr-console/modules/hrm/domain/entities/objective"
	"github.com/iota-uz/hr-console/pkg/authz"
	"github.com/iota-uz/hr-console/pkg/composables"
)

type stubPublisher struct {
	events []interface{}
}

func (s *stubPublisher) Publish(args ...interface{})     { s.events = append(s.events, args...) }
func (s *stubPublisher) Subscribe(handler interface{})   {}
func (s *stubPublisher) Unsubscribe(handler interface{}) {}
func (s *stubPublisher) Clear()                          {}
func (s *stubPublisher) SubscribersCount() int           { return 0 }

type mockKpiRepo struct {
	called   bool
	record   *allocation.Record
	replaced []allocation.Entry
	err      error
}

func (m *mockKpiRepo) GetByPosition(ctx context.Context, positionID int64) (*allocation.Record, error) {
	m.called = true
	return m.record, m.err
}

func (m *mockKpiRepo) Replace(ctx context.Context, positionID int64, entries []allocation.Entry) error {
	m.called = true
	m.replaced = entries
	return m.err
}

type mockObjectiveRepo struct {
	called bool
	objs   []objective.Objective
	err    error
}

func (m *mockObjectiveRepo) ListActive(ctx context.Context) ([]objective.Objective, error) {
	m.called = true
	return m.objs, m.err
}

func idPtr(id objective.ID) *objective.ID {
	return &id
}

func validPayload() []allocation.PayloadLine {
	return []allocation.PayloadLine{
		{ObjectiveID: idPtr(objRevenue.ID), DistributionPercentage: 60, Deliverable: "Grow ARR", TargetPercentage: 40},
		{ObjectiveID: idPtr(objQuality.ID), DistributionPercentage: 40, Deliverable: "Cut defects", TargetPercentage: 20},
	}
}

func TestKpiService_AuthorizeViewDenied(t *testing.T) {
	t.Cleanup(func() { authorizeHRMFn = defaultAuthorizeHRM })

	repo := &mockKpiRepo{}
	svc := NewKpiService(repo, nil, &stubPublisher{})

	authorizeHRMFn = func(ctx context.Context, object, action string) error {
		require.Equal(t, KpisAuthzObject, object)
		require.Equal(t, "view", action)
		return errors.New("forbidden")
	}

	_, err := svc.GetByPosition(context.Background(), 7)
	require.Error(t, err)
	require.False(t, repo.called, "repository should not be called when authorization fails")
}

func TestKpiService_AuthorizeUpdateDenied(t *testing.T) {
	t.Cleanup(func() { authorizeHRMFn = defaultAuthorizeHRM })

	repo := &mockKpiRepo{}
	svc := NewKpiService(repo, nil, &stubPublisher{})

	authorizeHRMFn = func(ctx context.Context, object, action string) error {
		require.Equal(t, KpisAuthzObject, object)
		require.Equal(t, "update", action)
		return errors.New("forbidden")
	}

	err := svc.Save(context.Background(), 7, validPayload())
	require.Error(t, err)
	require.False(t, repo.called, "repository should not be called when authorization fails")
}

func TestKpiService_GetByPositionEmpty(t *testing.T) {
	svc := NewKpiService(&mockKpiRepo{}, nil, &stubPublisher{})

	rec, err := svc.GetByPosition(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), rec.PositionID)
	require.NotNil(t, rec.Kpis)
	require.Empty(t, rec.Kpis)

	_, err = svc.GetByPosition(context.Background(), 0)
	require.ErrorIs(t, err, ErrInvalidPosition)
}

func TestKpiService_SaveReplacesAndPublishes(t *testing.T) {
	repo := &mockKpiRepo{}
	pub := &stubPublisher{}
	svc := NewKpiService(repo, &mockObjectiveRepo{objs: []objective.Objective{objRevenue, objQuality}}, pub)

	require.NoError(t, svc.Save(context.Background(), 7, validPayload()))
	require.Len(t, repo.replaced, 2)
	require.Equal(t, objQuality.ID, repo.replaced[1].ObjectiveID)
	require.Equal(t, "20", repo.replaced[1].TargetPercentage.Decimal.String())

	require.Len(t, pub.events, 1)
	ev, ok := pub.events[0].(*allocation.ReplacedEvent)
	require.True(t, ok)
	require.Equal(t, int64(7), ev.PositionID)
}

func TestKpiService_SaveRejectsInvalidPayload(t *testing.T) {
	cases := map[string]struct {
		lines []allocation.PayloadLine
		code  string
	}{
		"unbalanced": {
			lines: []allocation.PayloadLine{
				{ObjectiveID: idPtr(objRevenue.ID), DistributionPercentage: 99.98, Deliverable: "A", TargetPercentage: 10},
			},
			code: allocation.CodeUnbalanced,
		},
		"target above distribution": {
			lines: []allocation.PayloadLine{
				{ObjectiveID: idPtr(objRevenue.ID), DistributionPercentage: 100, Deliverable: "A", TargetPercentage: 100.5},
			},
			code: allocation.CodeOutOfRange,
		},
		"null objective": {
			lines: []allocation.PayloadLine{
				{DistributionPercentage: 100, Deliverable: "A", TargetPercentage: 10},
			},
			code: allocation.CodeUnresolvedObjective,
		},
		"inactive objective": {
			lines: []allocation.PayloadLine{
				{ObjectiveID: idPtr(objHiring.ID), DistributionPercentage: 100, Deliverable: "A", TargetPercentage: 10},
			},
			code: allocation.CodeUnresolvedObjective,
		},
		"missing deliverable": {
			lines: []allocation.PayloadLine{
				{ObjectiveID: idPtr(objRevenue.ID), DistributionPercentage: 100, Deliverable: " ", TargetPercentage: 10},
			},
			code: allocation.CodeRequired,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			repo := &mockKpiRepo{}
			svc := NewKpiService(repo, &mockObjectiveRepo{objs: []objective.Objective{objRevenue, objQuality}}, &stubPublisher{})

			err := svc.Save(context.Background(), 7, tc.lines)
			var verrs allocation.ValidationErrors
			require.True(t, errors.As(err, &verrs))
			codes := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				codes = append(codes, fe.Code)
			}
			require.Contains(t, codes, tc.code)
			require.False(t, repo.called)

			se := AsServiceError(err)
			require.Equal(t, http.StatusUnprocessableEntity, se.Status)
		})
	}
}

func TestKpiService_SaveNullObjectiveReportedOnce(t *testing.T) {
	svc := NewKpiService(&mockKpiRepo{}, nil, &stubPublisher{})
	err := svc.Save(context.Background(), 7, []allocation.PayloadLine{
		{DistributionPercentage: 100, Deliverable: "A", TargetPercentage: 10},
	})

	var verrs allocation.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	objErrs := 0
	for _, fe := range verrs.ForLine(0) {
		if fe.Field == allocation.FieldObjective {
			objErrs++
		}
	}
	require.Equal(t, 1, objErrs)
}

func TestKpiService_SaveInvalidPosition(t *testing.T) {
	repo := &mockKpiRepo{}
	svc := NewKpiService(repo, nil, &stubPublisher{})
	err := svc.Save(context.Background(), -1, validPayload())
	require.ErrorIs(t, err, ErrInvalidPosition)
	require.Equal(t, http.StatusBadRequest, AsServiceError(err).Status)
	require.False(t, repo.called)
}

func TestKpiService_SaveRepositoryFailure(t *testing.T) {
	boom := errors.New("db down")
	pub := &stubPublisher{}
	svc := NewKpiService(&mockKpiRepo{err: boom}, nil, pub)

	err := svc.Save(context.Background(), 7, validPayload())
	require.ErrorIs(t, err, boom)
	require.Empty(t, pub.events)
	require.Equal(t, http.StatusInternalServerError, AsServiceError(err).Status)
}

func TestKpiService_ActsAsEditorSaver(t *testing.T) {
	repo := &mockKpiRepo{}
	svc := NewKpiService(repo, nil, nil)
	s := newSession(loadedCatalog(t), svc)
	require.NoError(t, s.Open(7, sourceRecord(), ModeEdit))
	require.NoError(t, s.SetDeliverable(0, "Grow ARR 2x"))

	require.NoError(t, s.Submit(context.Background()))
	require.Equal(t, "Grow ARR 2x", repo.replaced[0].Deliverable)
}

func TestKpiService_SavesEditBeforeCatalogLoad(t *testing.T) {
	repo := &mockKpiRepo{}
	objs := &mockObjectiveRepo{objs: []objective.Objective{objRevenue, objQuality}}
	svc := NewKpiService(repo, objs, nil)
	catalog := NewObjectiveCatalog(NewObjectiveService(objs), nil, testLogger())
	s := newSession(catalog, svc)
	require.NoError(t, s.Open(7, sourceRecord(), ModeEdit))
	require.NoError(t, s.SetDeliverable(0, "Grow ARR 2x"))

	require.NoError(t, s.Submit(context.Background()))
	require.Equal(t, CatalogNotLoaded, catalog.State())
	require.Len(t, repo.replaced, 2)
	require.Equal(t, objRevenue.ID, repo.replaced[0].ObjectiveID)
	require.Equal(t, objQuality.ID, repo.replaced[1].ObjectiveID)
}

func TestObjectiveService_AuthorizeListDenied(t *testing.T) {
	t.Cleanup(func() { authorizeHRMFn = defaultAuthorizeHRM })

	repo := &mockObjectiveRepo{}
	svc := NewObjectiveService(repo)

	authorizeHRMFn = func(ctx context.Context, object, action string) error {
		require.Equal(t, ObjectivesAuthzObject, object)
		require.Equal(t, "list", action)
		return errors.New("forbidden")
	}

	_, err := svc.ListActive(context.Background())
	require.Error(t, err)
	require.False(t, repo.called)
}

func TestObjectiveService_ListActiveNeverNil(t *testing.T) {
	svc := NewObjectiveService(&mockObjectiveRepo{})
	objs, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	require.NotNil(t, objs)
}

func TestDefaultAuthorizeHRM_UsesContextAuthorizer(t *testing.T) {
	svc, err := authz.NewService(authz.Config{
		ModelPath:    "../../../pkg/authz/testdata/model.conf",
		PolicyPath:   "../../../pkg/authz/testdata/policy.csv",
		FlagProvider: authz.StaticMode(authz.ModeEnforce),
	})
	require.NoError(t, err)

	ctx := composables.WithAuthorizer(context.Background(), svc)

	viewer := composables.WithAuthzSubject(ctx, authz.SubjectForUser("bob"))
	require.NoError(t, defaultAuthorizeHRM(viewer, KpisAuthzObject, "view"))
	err = defaultAuthorizeHRM(viewer, KpisAuthzObject, "update")
	require.ErrorIs(t, err, authz.ErrForbidden)
	require.Equal(t, http.StatusForbidden, AsServiceError(err).Status)

	manager := composables.WithAuthzSubject(ctx, authz.SubjectForUser("alice"))
	require.NoError(t, defaultAuthorizeHRM(manager, KpisAuthzObject, "update"))

	require.Error(t, defaultAuthorizeHRM(ctx, ObjectivesAuthzObject, "list"))
	require.NoError(t, defaultAuthorizeHRM(context.Background(), KpisAuthzObject, "update"))
}

func TestKpiService_ValidateSummary(t *testing.T) {
	repo := &mockKpiRepo{}
	svc := NewKpiService(repo, nil, nil)

	sum, err := svc.Validate(context.Background(), []allocation.PayloadLine{
		{ObjectiveID: idPtr(objRevenue.ID), DistributionPercentage: 60, Deliverable: "A", TargetPercentage: 70},
		{ObjectiveID: idPtr(objQuality.ID), DistributionPercentage: 35, Deliverable: "B", TargetPercentage: 5},
	})
	require.NoError(t, err)
	require.Equal(t, "95", sum.TotalDistribution.String())
	require.False(t, sum.DistributionBalanced)
	require.False(t, sum.ValidTargets)
	require.False(t, sum.Submittable)
	require.NotEmpty(t, sum.Errors.SetLevel())
	require.False(t, repo.called)

	sum, err = svc.Validate(context.Background(), validPayload())
	require.NoError(t, err)
	require.True(t, sum.Submittable)
	require.Empty(t, sum.Errors)
}
