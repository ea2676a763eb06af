package incidents

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/kilianp07/emsdispatch/core/archive"
	"github.com/kilianp07/emsdispatch/core/coordinator"
	"github.com/kilianp07/emsdispatch/core/model"
	"github.com/kilianp07/emsdispatch/infra/logger"
)

type Handler struct {
	svc      Service
	archive  ArchiveReader
	fleet    FleetReader
	log      logger.Logger
	validate *validator.Validate
}

// NewHandler builds the handler. archive and fleet may be nil, in which case
// their routes answer 404.
func NewHandler(svc Service, archive ArchiveReader, fleet FleetReader, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Handler{svc: svc, archive: archive, fleet: fleet, log: log, validate: validator.New()}
}

// RegisterRoutes mounts the API under r.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/incidents", h.submitIncident)
	r.GET("/incidents", h.listIncidents)
	r.GET("/incidents/:id", h.getIncident)
	r.POST("/incidents/:id/complete", h.completeIncident)
	r.DELETE("/incidents/:id", h.cancelIncident)
	r.GET("/stats", h.getStats)
	r.GET("/archive", h.queryArchive)
	r.GET("/providers", h.listProviders)
}

// statusFor maps coordinator errors to HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, coordinator.ErrUnknownIncident):
		return http.StatusNotFound
	case errors.Is(err, coordinator.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, coordinator.ErrInvalidTransition),
		errors.Is(err, coordinator.ErrIncidentNotBidding),
		errors.Is(err, coordinator.ErrInvariantViolation):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, method string, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.log.Errorf("%s: %v", method, err)
		c.JSON(code, ErrorResponse{Error: "internal server error"})
		return
	}
	h.log.Warnf("%s: %v", method, err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

func incidentID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid incident ID"})
		return 0, false
	}
	return id, true
}

func (h *Handler) submitIncident(c *gin.Context) {
	var input SubmitRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.log.Warnf("submitIncident: bind: %v", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	kind, _ := model.ParseKind(input.Kind)
	sev, _ := model.ParseSeverity(input.Severity)
	id, err := h.svc.Submit(c.Request.Context(), kind, sev, model.Location(input.Location))
	if err != nil {
		h.fail(c, "submitIncident", err)
		return
	}
	inc, _ := h.svc.Incident(id)
	c.JSON(http.StatusCreated, SubmitResponse{ID: id, Incident: inc})
}

func (h *Handler) listIncidents(c *gin.Context) {
	list := h.svc.Incidents()
	if s := c.Query("state"); s != "" {
		st, err := model.ParseState(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		filtered := make([]model.Incident, 0, len(list))
		for _, inc := range list {
			if inc.State == st {
				filtered = append(filtered, inc)
			}
		}
		list = filtered
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	if list == nil {
		list = []model.Incident{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) getIncident(c *gin.Context) {
	id, ok := incidentID(c)
	if !ok {
		return
	}
	inc, found := h.svc.Incident(id)
	if !found {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "incident not found"})
		return
	}
	c.JSON(http.StatusOK, inc)
}

func (h *Handler) completeIncident(c *gin.Context) {
	id, ok := incidentID(c)
	if !ok {
		return
	}
	var input CompleteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := h.svc.CompleteIncident(c.Request.Context(), id, input.ResponseSeconds); err != nil {
		h.fail(c, "completeIncident", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) cancelIncident(c *gin.Context) {
	id, ok := incidentID(c)
	if !ok {
		return
	}
	if err := h.svc.Cancel(c.Request.Context(), id); err != nil {
		h.fail(c, "cancelIncident", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Stats())
}

func (h *Handler) queryArchive(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "archive disabled"})
		return
	}
	q, err := parseArchiveQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	recs, err := h.archive.Query(c.Request.Context(), q)
	if err != nil {
		h.fail(c, "queryArchive", err)
		return
	}
	if recs == nil {
		recs = []archive.Record{}
	}
	c.JSON(http.StatusOK, recs)
}

func parseArchiveQuery(c *gin.Context) (archive.Query, error) {
	q := archive.Query{ProviderID: c.Query("provider_id")}
	if s := c.Query("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, err
		}
		q.Start = t
	}
	if s := c.Query("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, err
		}
		q.End = t
	}
	if s := c.Query("kind"); s != "" {
		k, err := model.ParseKind(s)
		if err != nil {
			return q, err
		}
		q.Kind = &k
	}
	if s := c.Query("state"); s != "" {
		st, err := model.ParseState(s)
		if err != nil {
			return q, err
		}
		q.State = &st
	}
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, errors.New("invalid limit")
		}
		q.Limit = n
	}
	return q, nil
}

func (h *Handler) listProviders(c *gin.Context) {
	if h.fleet == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no local fleet"})
		return
	}
	states := h.fleet.Snapshot()
	out := make([]model.ProviderState, 0, len(states))
	kind := c.Query("kind")
	for _, st := range states {
		if kind == "" || string(st.Kind) == kind {
			out = append(out, st)
		}
	}
	c.JSON(http.StatusOK, out)
}
