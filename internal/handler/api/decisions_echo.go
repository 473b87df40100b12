package api

import (
	"time"

	models "TradeCore/internal/domain/models"
	"TradeCore/internal/usecase"
	xhttp "TradeCore/pkg/http"
	xlogger "TradeCore/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DecisionsEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type DecisionsEchoHandler struct {
	logger   *xlogger.Logger
	pipeline *usecase.DecisionPipeline
	audit    *AuditHandler
}

func NewDecisionsEchoHandler(logger *xlogger.Logger, pipeline *usecase.DecisionPipeline) *DecisionsEchoHandler {
	return &DecisionsEchoHandler{logger: logger, pipeline: pipeline}
}

// SetAudit attaches the history endpoints backed by the audit store.
func (h *DecisionsEchoHandler) SetAudit(a *AuditHandler) { h.audit = a }

func (h *DecisionsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/decide", h.Decide)
	g.POST("/reward", h.Reward)
	g.POST("/execute", h.Execute)
	g.POST("/fill", h.Fill)
	g.GET("/policies", h.Policies)
	g.GET("/decision/last", h.LastDecision)
	g.GET("/impact", h.Impact)
	g.GET("/inventory", h.Inventory)
	if h.audit != nil {
		g.GET("/audit/decisions", echo.WrapHandler(h.audit.Decisions()))
		g.GET("/audit/fills", echo.WrapHandler(h.audit.Fills()))
	}
}

func (h *DecisionsEchoHandler) Decide(c echo.Context) error {
	req := &models.DecideRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.pipeline.Decide(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("decide usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DecisionsEchoHandler) Reward(c echo.Context) error {
	req := &models.RewardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	post := h.pipeline.Reward(c.Request().Context(), *req)
	return xhttp.SuccessResponse(c, post)
}

func (h *DecisionsEchoHandler) Execute(c echo.Context) error {
	req := &models.ExecuteRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.pipeline.Execute(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("execute usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DecisionsEchoHandler) Fill(c echo.Context) error {
	req := &models.FillRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	f := &models.Fill{
		Symbol:      req.Symbol,
		PolicyID:    req.PolicyID,
		Side:        req.Side,
		Size:        req.Size,
		Price:       req.Price,
		SlippageBps: req.SlippageBps,
		PnL:         req.PnL,
		Timestamp:   time.Now().Unix(),
	}
	if err := h.pipeline.HandleFill(c.Request().Context(), f); err != nil {
		h.logger.Error("fill usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "accepted"})
}

func (h *DecisionsEchoHandler) Policies(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.pipeline.Posteriors())
}

func (h *DecisionsEchoHandler) LastDecision(c echo.Context) error {
	d := h.pipeline.LastDecision()
	if d == nil {
		return xhttp.NotFoundResponse(c, map[string]string{"message": "no decision recorded yet"})
	}
	return xhttp.SuccessResponse(c, d)
}

func (h *DecisionsEchoHandler) Impact(c echo.Context) error {
	req := &models.ImpactRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.pipeline.ImpactModel(req.Symbol))
}

func (h *DecisionsEchoHandler) Inventory(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.pipeline.Inventory())
}
