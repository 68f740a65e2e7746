package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"TradeDesk/internal/domain/models"
	domrepo "TradeDesk/internal/domain/repository"
	"TradeDesk/internal/service/gateway"
	"TradeDesk/internal/service/risk"
	"TradeDesk/internal/usecase"
	"TradeDesk/pkg/config"
	xhttp "TradeDesk/pkg/http"
	xlogger "TradeDesk/pkg/logger"
)

// BotHandler exposes the bot control surface over Echo.
type BotHandler struct {
	logger     *xlogger.Logger
	supervisor *usecase.Supervisor
	gw         *gateway.Gateway
	risk       *risk.Engine
	state      domrepo.StateStore
	exec       config.ExecutionSettings
}

func NewBotHandler(logger *xlogger.Logger, supervisor *usecase.Supervisor, gw *gateway.Gateway, riskEngine *risk.Engine, state domrepo.StateStore, exec config.ExecutionSettings) *BotHandler {
	return &BotHandler{logger: logger, supervisor: supervisor, gw: gw, risk: riskEngine, state: state, exec: exec}
}

func (h *BotHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/bot/start", h.Start)
	g.POST("/bot/stop", h.Stop)
	g.POST("/bot/restart", h.Restart)
	g.GET("/bot/status", h.Status)
	g.GET("/bot/recommendations", h.Recommendations)
	g.GET("/ratelimiter", h.GatewayStats)
	g.POST("/ratelimiter", h.GatewayAction)
	g.POST("/risk/assess", h.Assess)
}

func (h *BotHandler) Start(c echo.Context) error {
	req := &models.StartRequest{}
	if c.Request().ContentLength > 0 {
		if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
			return xhttp.BadRequestResponse(c, verr)
		}
	}

	sum, err := h.supervisor.Start(c.Request().Context(), req.Config)
	if err != nil {
		return h.startError(c, err)
	}
	return xhttp.SuccessResponse(c, sum)
}

func (h *BotHandler) Stop(c echo.Context) error {
	res, err := h.supervisor.Stop(c.Request().Context())
	if err != nil {
		h.logger.Error("bot stop failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *BotHandler) Restart(c echo.Context) error {
	req := &models.StartRequest{}
	if c.Request().ContentLength > 0 {
		if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
			return xhttp.BadRequestResponse(c, verr)
		}
	}

	sum, err := h.supervisor.Restart(c.Request().Context(), req.Config)
	if err != nil {
		return h.startError(c, err)
	}
	return xhttp.SuccessResponse(c, sum)
}

func (h *BotHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.supervisor.Status())
}

// Recommendations lists the pending risk-approved candidates recorded while
// auto-execute was off, newest first.
func (h *BotHandler) Recommendations(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	recs, err := h.state.Recommendations(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("recommendations fetch failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	if recs == nil {
		recs = []*models.Recommendation{}
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"count":           len(recs),
		"recommendations": recs,
	})
}

func (h *BotHandler) GatewayStats(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.gw.Stats())
}

// GatewayAction handles the rate-limiter management verbs: clear drops all
// pending requests, throttle pauses the consumer, stats is a read.
func (h *BotHandler) GatewayAction(c echo.Context) error {
	req := &models.GatewayActionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	switch req.Action {
	case "clear":
		dropped := h.gw.ClearQueue()
		h.logger.Info("gateway queue cleared", xlogger.Int("dropped", dropped))
		return xhttp.SuccessResponse(c, map[string]interface{}{
			"dropped": dropped,
			"stats":   h.gw.Stats(),
		})
	case "throttle":
		d := time.Duration(req.Duration) * time.Millisecond
		if d <= 0 {
			d = 60 * time.Second
		}
		h.gw.Throttle(d)
		return xhttp.SuccessResponse(c, h.gw.Stats())
	default: // stats
		return xhttp.SuccessResponse(c, h.gw.Stats())
	}
}

func (h *BotHandler) Assess(c echo.Context) error {
	req := &models.AssessRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	action := models.Action(req.Action)
	stop, target := req.StopLoss, req.TargetPrice
	if stop == 0 && target == 0 {
		stop, target = h.risk.DeriveLevels(action, req.EntryPrice)
	}
	qty := req.Quantity
	if qty == 0 {
		qty = risk.SizePosition(req.AccountBalance, req.EntryPrice, h.exec.OrderSizePercent)
	}

	a := h.risk.Assess(risk.Input{
		Symbol:         req.Symbol,
		Action:         action,
		Quantity:       qty,
		EntryPrice:     req.EntryPrice,
		StopLoss:       stop,
		TargetPrice:    target,
		AccountBalance: req.AccountBalance,
		Confidence:     req.Confidence,
	})
	return xhttp.SuccessResponse(c, a)
}

// startError maps lifecycle failures: a running session or a bad config is
// the caller's problem, anything else is ours.
func (h *BotHandler) startError(c echo.Context, err error) error {
	if errors.Is(err, models.ErrAlreadyRunning) {
		return xhttp.BadRequestResponse(c, map[string]interface{}{
			"error":  err.Error(),
			"status": h.supervisor.Status(),
		})
	}
	var ce *models.ConfigError
	if errors.As(err, &ce) {
		return xhttp.BadRequestResponse(c, map[string]string{"error": ce.Error()})
	}
	h.logger.Error("bot lifecycle error", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}
