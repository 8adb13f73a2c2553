package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/hr-console/modules/hrm/domain/aggregates/allocation"
	"github.com/iota-uz/hr-console/modules/hrm/domain/entities/objective"
	"github.com/iota-uz/hr-console/modules/hrm/infrastructure/persistence"
	"github.com/iota-uz/hr-console/modules/hrm/presentation/viewmodels"
	"github.com/iota-uz/hr-console/modules/hrm/services"
	"github.com/iota-uz/hr-console/pkg/application"
	"github.com/iota-uz/hr-console/pkg/authz"
	"github.com/iota-uz/hr-console/pkg/httpapi"
	"github.com/iota-uz/hr-console/pkg/middleware"
)

type testEnv struct {
	router *mux.Router
	kpis   *persistence.MemoryKpiRepository
	events []*allocation.ReplacedEvent
}

func newTestEnv(t *testing.T, mw ...mux.MiddlewareFunc) *testEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	app := application.New(&application.ApplicationOptions{Logger: logger})

	env := &testEnv{kpis: persistence.NewMemoryKpiRepository()}
	objs := persistence.NewMemoryObjectiveRepository(
		objective.Objective{ID: "11", Name: "Revenue", Code: "REV", IsActive: true},
		objective.Objective{ID: "12", Name: "Quality", Code: "QLT", IsActive: true},
		objective.Objective{ID: "13", Name: "Retired", Code: "OLD", IsActive: false},
	)
	app.EventPublisher().Subscribe(func(e *allocation.ReplacedEvent) { env.events = append(env.events, e) })
	app.RegisterServices(
		services.NewKpiService(env.kpis, objs, app.EventPublisher()),
		services.NewObjectiveService(objs),
	)

	env.router = mux.NewRouter()
	env.router.Use(mw...)
	NewKpiAPIController(app).Register(env.router)
	return env
}

func (e *testEnv) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

const validBody = `{"kpis":[
	{"objective_id":11,"distribution_percentage":60,"deliverable":"Grow ARR","target_percentage":"40.5"},
	{"objective_id":"12","distribution_percentage":"40","deliverable":"Cut defects","target_percentage":20}
]}`

func TestKpiAPIController_ListObjectives(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodGet, "/hrm/api/objectives", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var got viewmodels.ObjectiveList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got.Data, 2)
	require.Equal(t, "Quality", got.Data[0].Name)
}

func TestKpiAPIController_GetEmptyPosition(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodGet, "/hrm/api/positions/7/kpis", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"position_id":7,"kpis":[]}`, rr.Body.String())
}

func TestKpiAPIController_SaveThenGet(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodPut, "/hrm/api/positions/7/kpis", validBody)
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())
	require.Len(t, env.events, 1)

	rr = env.do(http.MethodGet, "/hrm/api/positions/7/kpis", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"position_id":7,"kpis":[
		{"objective_id":"11","distribution_percentage":"60.00","deliverable":"Grow ARR","target_percentage":"40.50"},
		{"objective_id":"12","distribution_percentage":"40.00","deliverable":"Cut defects","target_percentage":"20.00"}
	]}`, rr.Body.String())
}

func TestKpiAPIController_SaveInvalidAllocation(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodPut, "/hrm/api/positions/7/kpis", `{"kpis":[
		{"objective_id":"11","distribution_percentage":50,"deliverable":"A","target_percentage":60},
		{"objective_id":"13","distribution_percentage":49.98,"deliverable":"B","target_percentage":1}
	]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var env422 httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env422))
	require.Equal(t, "VALIDATION_FAILED", env422.Code)
	require.Equal(t, allocation.CodeTargetExceeds, env422.Meta["kpis[0].target_percentage"])
	require.Equal(t, allocation.CodeUnresolvedObjective, env422.Meta["kpis[1].objective_id"])
	require.Equal(t, allocation.CodeUnbalanced, env422.Meta["kpis.distribution_percentage"])

	rec, err := env.kpis.GetByPosition(context.Background(), 7)
	require.NoError(t, err)
	require.Empty(t, rec.Kpis)
	require.Empty(t, env.events)
}

func TestKpiAPIController_BadRequests(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPut, "/hrm/api/positions/0/kpis", validBody)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(http.MethodPut, "/hrm/api/positions/abc/kpis", validBody)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(http.MethodPut, "/hrm/api/positions/7/kpis", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(http.MethodPut, "/hrm/api/positions/7/kpis", `{"kpis":[]}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), `"Kpis":"min"`)

	rr = env.do(http.MethodPut, "/hrm/api/positions/7/kpis", `{"kpis":[{"unknown":1}]}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestKpiAPIController_Validate(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodPost, "/hrm/api/kpis:validate", `{"kpis":[
		{"objective_id":"11","distribution_percentage":"24.98","deliverable":"A","target_percentage":10}
	]}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var got viewmodels.ValidationResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Equal(t, "24.98", got.TotalDistribution)
	require.False(t, got.DistributionBalanced)
	require.True(t, got.ValidTargets)
	require.False(t, got.Submittable)
	require.Len(t, got.Errors, 1)
	require.Equal(t, -1, got.Errors[0].Line)

	rr = env.do(http.MethodPost, "/hrm/api/kpis:validate", validBody)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.True(t, got.Submittable)
	require.Empty(t, got.Errors)
}

func TestKpiAPIController_AuthzDenied(t *testing.T) {
	svc, err := authz.NewService(authz.Config{
		ModelPath:    "../../../../pkg/authz/testdata/model.conf",
		PolicyPath:   "../../../../pkg/authz/testdata/policy.csv",
		FlagProvider: authz.StaticMode(authz.ModeEnforce),
	})
	require.NoError(t, err)

	env := newTestEnv(t, middleware.WithAuthz(svc, "X-Authz-Subject"))

	rr := env.do(http.MethodPut, "/hrm/api/positions/7/kpis", validBody, "X-Authz-Subject", "user:bob")
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Contains(t, rr.Body.String(), "AUTHZ_FORBIDDEN")

	rr = env.do(http.MethodGet, "/hrm/api/positions/7/kpis", "", "X-Authz-Subject", "user:bob")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(http.MethodPut, "/hrm/api/positions/7/kpis", validBody, "X-Authz-Subject", "alice")
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(http.MethodGet, "/hrm/api/objectives", "")
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestKpiAPIController_instrumentAPI_UsesStableEndpointLabel(t *testing.T) {
	c := &KpiAPIController{}

	handler := c.instrumentAPI("hrm.test.endpoint", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/hrm/api/positions/123456/kpis", nil)
	rr := httptest.NewRecorder()
	handler(rr, req)

	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range mfs {
		if mf.GetName() != "hrm_api_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := labelsToMap(m)
			if labels["endpoint"] == "hrm.test.endpoint" && labels["result"] == "4xx" {
				require.GreaterOrEqual(t, m.GetCounter().GetValue(), float64(1))
				found = true
				break
			}
		}
	}
	require.True(t, found, "expected metric hrm_api_requests_total with endpoint label")
}

func labelsToMap(m *dto.Metric) map[string]string {
	out := map[string]string{}
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}
