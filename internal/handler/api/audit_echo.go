package api

import (
	"time"

	models "TradeGate/internal/domain/models"
	domrepo "TradeGate/internal/domain/repository"
	"TradeGate/internal/usecase"
	xhttp "TradeGate/pkg/http"
	xlogger "TradeGate/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AuditEchoHandler serves the decision audit trail and instance health.
type AuditEchoHandler struct {
	logger    *xlogger.Logger
	store     domrepo.AuditStore
	collector *usecase.BarCollector
	eval      *usecase.Evaluator
	symbol    string
}

func NewAuditEchoHandler(
	logger *xlogger.Logger,
	store domrepo.AuditStore,
	collector *usecase.BarCollector,
	eval *usecase.Evaluator,
	symbol string,
) *AuditEchoHandler {
	return &AuditEchoHandler{
		logger:    logger,
		store:     store,
		collector: collector,
		eval:      eval,
		symbol:    symbol,
	}
}

func (h *AuditEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/health", h.Health)
	g.GET("/decisions", h.Decisions)
	g.GET("/decisions/latest", h.LatestDecision)
}

func (h *AuditEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, models.HealthResponse{
		Status:    "ok",
		Symbol:    h.symbol,
		Connected: h.collector.IsConnected(),
		Position:  h.eval.Position(),
	})
}

func (h *AuditEchoHandler) Decisions(c echo.Context) error {
	req := &models.DecisionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := req.Symbol
	if symbol == "" {
		symbol = h.symbol
	}
	to := xhttp.ParseTimeDefault(req.To, time.Now().UTC())
	from := xhttp.ParseTimeDefault(req.From, to.Add(-24*time.Hour))

	if h.store == nil {
		return xhttp.NotFoundResponse(c, "audit reads need the clickhouse backend")
	}
	rows, err := h.store.Decisions(c.Request().Context(), symbol, from, to, req.Limit)
	if err != nil {
		h.logger.Error("decisions query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("decisions query failed").WithError(err))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *AuditEchoHandler) LatestDecision(c echo.Context) error {
	req := &models.LatestDecisionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := req.Symbol
	if symbol == "" {
		symbol = h.symbol
	}

	if h.store == nil {
		return xhttp.NotFoundResponse(c, "audit reads need the clickhouse backend")
	}
	d, err := h.store.LatestDecision(c.Request().Context(), symbol)
	if err != nil {
		h.logger.Error("latest decision query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no decisions recorded for %s", symbol).WithError(err))
	}
	return xhttp.SuccessResponse(c, d)
}
