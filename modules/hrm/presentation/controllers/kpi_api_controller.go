package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/gorilla/mux"

	"github.com/iota-uz/hr-console/modules/hrm/domain/aggregates/allocation"
	"github.com/iota-uz/hr-console/modules/hrm/presentation/controllers/dtos"
	"github.com/iota-uz/hr-console/modules/hrm/presentation/viewmodels"
	"github.com/iota-uz/hr-console/modules/hrm/services"
	"github.com/iota-uz/hr-console/pkg/application"
	"github.com/iota-uz/hr-console/pkg/composables"
	"github.com/iota-uz/hr-console/pkg/httpapi"
)

type KpiAPIController struct {
	app        application.Application
	kpis       *services.KpiService
	objectives *services.ObjectiveService
	apiPrefix  string
}

func NewKpiAPIController(app application.Application) application.Controller {
	return &KpiAPIController{
		app:        app,
		kpis:       app.Service(services.KpiService{}).(*services.KpiService),
		objectives: app.Service(services.ObjectiveService{}).(*services.ObjectiveService),
		apiPrefix:  "/hrm/api",
	}
}

func (c *KpiAPIController) Key() string {
	return c.apiPrefix
}

func (c *KpiAPIController) Register(r *mux.Router) {
	api := r.PathPrefix(c.apiPrefix).Subrouter()

	api.HandleFunc("/objectives", c.instrumentAPI("hrm.objectives.list", c.ListObjectives)).Methods(http.MethodGet)
	api.HandleFunc("/positions/{id:[0-9]+}/kpis", c.instrumentAPI("hrm.kpis.get", c.GetKpis)).Methods(http.MethodGet)
	api.HandleFunc("/positions/{id:[0-9]+}/kpis", c.instrumentAPI("hrm.kpis.replace", c.SaveKpis)).Methods(http.MethodPut)
	api.HandleFunc("/kpis:validate", c.instrumentAPI("hrm.kpis.validate", c.ValidateKpis)).Methods(http.MethodPost)
}

func (c *KpiAPIController) ListObjectives(w http.ResponseWriter, r *http.Request) {
	objs, err := c.objectives.ListActive(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, viewmodels.ObjectivesToViewModel(objs))
}

func (c *KpiAPIController) GetKpis(w http.ResponseWriter, r *http.Request) {
	positionID, ok := positionIDFromRequest(w, r)
	if !ok {
		return
	}
	rec, err := c.kpis.GetByPosition(r.Context(), positionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, viewmodels.RecordToViewModel(rec))
}

func (c *KpiAPIController) SaveKpis(w http.ResponseWriter, r *http.Request) {
	positionID, ok := positionIDFromRequest(w, r)
	if !ok {
		return
	}
	dto, ok := decodeSaveDTO(w, r)
	if !ok {
		return
	}
	if err := c.kpis.Save(r.Context(), positionID, dto.ToPayload()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	composables.UseLogger(r.Context()).WithField("position_id", positionID).Info("kpis replaced")
	w.WriteHeader(http.StatusNoContent)
}

func (c *KpiAPIController) ValidateKpis(w http.ResponseWriter, r *http.Request) {
	dto, ok := decodeSaveDTO(w, r)
	if !ok {
		return
	}
	sum, err := c.kpis.Validate(r.Context(), dto.ToPayload())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, viewmodels.ValidationResult{
		TotalDistribution:    sum.TotalDistribution.StringFixed(allocation.PercentScale),
		DistributionBalanced: sum.DistributionBalanced,
		ValidTargets:         sum.ValidTargets,
		Submittable:          sum.Submittable,
		Errors:               viewmodels.FieldErrorsToViewModel(sum.Errors),
	})
}

func positionIDFromRequest(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeAPIError(w, r, http.StatusBadRequest, "INVALID_POSITION", "position id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

func decodeSaveDTO(w http.ResponseWriter, r *http.Request) (*dtos.SaveKpisDTO, bool) {
	dto := &dtos.SaveKpisDTO{}
	if err := httpapi.DecodeJSON(r, dto); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return nil, false
	}
	if meta, ok := dto.Ok(); !ok {
		writeAPIError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body failed validation", meta)
		return nil, false
	}
	return dto, true
}

func writeAPIError(w http.ResponseWriter, r *http.Request, status int, code, message string, meta map[string]string) {
	if meta == nil {
		meta = map[string]string{}
	}
	if params, ok := composables.UseParams(r.Context()); ok && params.RequestID != "" {
		meta["request_id"] = params.RequestID
	}
	if len(meta) == 0 {
		meta = nil
	}
	_ = httpapi.WriteError(w, status, code, message, meta)
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	se := services.AsServiceError(err)
	var meta map[string]string
	var verrs allocation.ValidationErrors
	if errors.As(err, &verrs) {
		meta = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			meta[dtos.MetaKey(fe)] = fe.Code
		}
	}
	if se.Status >= http.StatusInternalServerError {
		composables.UseLogger(r.Context()).WithError(err).Error("hrm api request failed")
	}
	writeAPIError(w, r, se.Status, se.Code, se.Message, meta)
}
