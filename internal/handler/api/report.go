package api

import (
	"errors"

	"MacroPull/internal/domain/models"
	"MacroPull/internal/registry"
	"MacroPull/internal/usecase"
	xhttp "MacroPull/pkg/http"
	xlogger "MacroPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ReportHandler exposes the pipeline's latest snapshot, cached series, and a
// live feed to the report boundary. All presentation stays client-side.
type ReportHandler struct {
	logger   *xlogger.Logger
	pipeline *usecase.Pipeline
	hub      *Hub
}

func NewReportHandler(logger *xlogger.Logger, pipeline *usecase.Pipeline, hub *Hub) *ReportHandler {
	return &ReportHandler{logger: logger, pipeline: pipeline, hub: hub}
}

func (h *ReportHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/snapshot", h.Snapshot)
	g.GET("/series/:code", h.Series)
	g.GET("/indicators", h.Indicators)
	g.GET("/indicators/:name", h.Indicator)
	g.GET("/alerts", h.Alerts)
	g.POST("/run", h.Run)
	e.GET("/healthz", h.Health)
	e.GET("/ws", h.Live)
}

func (h *ReportHandler) Snapshot(c echo.Context) error {
	snap := h.pipeline.Latest()
	if snap == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no pipeline run has completed yet"))
	}
	return xhttp.SuccessResponse(c, snap)
}

// SeriesRequest selects one cached series.
type SeriesRequest struct {
	Code        string `param:"code" validate:"required"`
	Granularity string `query:"granularity" default:"daily" validate:"oneof=daily minute realtime"`
	Limit       int    `query:"limit" default:"0" validate:"gte=0"`
}

func (h *ReportHandler) Series(c echo.Context) error {
	req := &SeriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	key := models.SeriesKey{Code: req.Code, Granularity: models.Granularity(req.Granularity)}
	points, err := h.pipeline.Store().Load(key)
	if err != nil {
		h.logger.Error("series load failed", xlogger.String("series", key.String()), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("load series %s", key).WithError(err))
	}
	if req.Limit > 0 && len(points) > req.Limit {
		points = points[len(points)-req.Limit:]
	}
	return xhttp.ListResponse(c, points, int64(len(points)))
}

func (h *ReportHandler) Indicators(c echo.Context) error {
	specs := make([]models.IndicatorSpec, 0, h.pipeline.Catalog().Len())
	for spec := range h.pipeline.Catalog().All() {
		specs = append(specs, spec)
	}
	return xhttp.ListResponse(c, specs, int64(len(specs)))
}

func (h *ReportHandler) Indicator(c echo.Context) error {
	name := c.Param("name")
	if _, err := h.pipeline.Catalog().Resolve(name); err != nil {
		var unknown *registry.UnknownIndicatorError
		if errors.As(err, &unknown) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("indicator %q is not registered", name))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	obs, err := h.pipeline.Store().LoadObservations(name)
	if err != nil {
		h.logger.Error("observations load failed", xlogger.String("indicator", name), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("load indicator %s", name).WithError(err))
	}
	return xhttp.ListResponse(c, obs, int64(len(obs)))
}

func (h *ReportHandler) Alerts(c echo.Context) error {
	snap := h.pipeline.Latest()
	if snap == nil {
		return xhttp.ListResponse(c, []models.AlertSignal{}, 0)
	}
	return xhttp.ListResponse(c, snap.Signals, int64(len(snap.Signals)))
}

// Run triggers one pipeline pass. The pass is synchronous: the vendor quota
// makes concurrent runs counter-productive, so no queue is kept.
func (h *ReportHandler) Run(c echo.Context) error {
	snap, err := h.pipeline.Run(c.Request().Context())
	if err != nil {
		h.logger.Error("manual pipeline run failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("pipeline run failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, snap)
}

func (h *ReportHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// Live upgrades to a WebSocket and streams monitor updates.
func (h *ReportHandler) Live(c echo.Context) error {
	return h.hub.Serve(c.Response(), c.Request())
}
