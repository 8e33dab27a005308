// Package server is the thin HTTP transport over the core operations.
// Handlers parse, delegate and translate sentinel errors to status
// codes; no business logic lives here.
package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cryptoTradeDesk/config"
	"cryptoTradeDesk/internal/app"
	"cryptoTradeDesk/internal/domain"
	"cryptoTradeDesk/internal/ports"
	"cryptoTradeDesk/internal/risk"
)

var errMissingTradeID = errors.New("trade id must be a positive integer")

// Handler wires the gin router to the core services.
type Handler struct {
	router     *gin.Engine
	repo       ports.TradeRepository
	lifecycle  ports.TradeLifecycle
	reconciler *app.Reconciler
	quick      *app.QuickExecutor
	riskStore  *risk.Store
	runtime    *config.Runtime
	exchange   ports.ExchangeClient
	logger     ports.Logger
}

// Deps carries the collaborators the HTTP surface exposes.
type Deps struct {
	Repo       ports.TradeRepository
	Lifecycle  ports.TradeLifecycle
	Reconciler *app.Reconciler
	Quick      *app.QuickExecutor
	RiskStore  *risk.Store
	Runtime    *config.Runtime
	Exchange   ports.ExchangeClient
	Logger     ports.Logger
}

// NewHandler builds the router with all routes registered.
func NewHandler(deps Deps) (*Handler, error) {
	if deps.Repo == nil || deps.Lifecycle == nil || deps.Reconciler == nil ||
		deps.Quick == nil || deps.RiskStore == nil || deps.Runtime == nil ||
		deps.Exchange == nil || deps.Logger == nil {
		return nil, errors.New("missing required dependencies for HTTP handler")
	}

	router := gin.New()
	router.Use(gin.Recovery())

	h := &Handler{
		router:     router,
		repo:       deps.Repo,
		lifecycle:  deps.Lifecycle,
		reconciler: deps.Reconciler,
		quick:      deps.Quick,
		riskStore:  deps.RiskStore,
		runtime:    deps.Runtime,
		exchange:   deps.Exchange,
		logger:     deps.Logger,
	}
	h.registerRoutes()
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.health)

	api := h.router.Group("/api")
	{
		api.GET("/trades", h.listTrades)
		api.POST("/trades", h.createTrade)
		api.POST("/trades/:id/close", h.closeTrade)
		api.DELETE("/trades/:id", h.deleteTrade)

		api.GET("/positions", h.listPositions)

		api.POST("/quick-trade", h.quickTrade)
		api.POST("/quick-close", h.quickClose)
		api.POST("/reverse-position", h.reversePosition)

		api.GET("/risk-settings", h.getRiskSettings)
		api.POST("/risk-settings", h.saveRiskSettings)
		api.DELETE("/risk-settings/:symbol", h.deleteRiskSymbol)

		api.POST("/config", h.updateRuntimeConfig)
	}
}

// statusFor maps sentinel errors from the core onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ports.ErrValidation), errors.Is(err, ports.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ports.ErrNotFound), errors.Is(err, ports.ErrOrderNotFound),
		errors.Is(err, ports.ErrPositionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ports.ErrTradeActive):
		return http.StatusConflict
	case errors.Is(err, ports.ErrPriceUnavailable), errors.Is(err, ports.ErrExchangeUnavailable),
		errors.Is(err, ports.ErrConnectionFailed):
		return http.StatusBadGateway
	case errors.Is(err, ports.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ports.ErrAuthenticationFailed), errors.Is(err, ports.ErrInvalidAPIKeys):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func (h *Handler) health(c *gin.Context) {
	status := gin.H{"status": "ok"}
	if err := h.exchange.Ping(c.Request.Context()); err != nil {
		status["status"] = "degraded"
		status["exchange"] = err.Error()
		c.JSON(http.StatusOK, status)
		return
	}
	status["exchange"] = "ok"
	c.JSON(http.StatusOK, status)
}

func (h *Handler) listTrades(c *gin.Context) {
	ctx := c.Request.Context()
	trades, err := h.repo.FindAll(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.reconciler.EnrichTrades(ctx, trades))
}

type createTradePayload struct {
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Quantity   float64 `json:"quantity"`
	StopLoss   float64 `json:"stopLoss"`
	TakeProfit float64 `json:"takeProfit"`
	Reason     string  `json:"reason"`
}

func (h *Handler) createTrade(c *gin.Context) {
	var payload createTradePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeError(c, errors.Join(ports.ErrValidation, err))
		return
	}
	side, err := domain.NormalizeSide(payload.Side)
	if err != nil {
		writeError(c, errors.Join(ports.ErrValidation, err))
		return
	}
	trade, err := h.lifecycle.ExecuteTrade(c.Request.Context(), ports.TradeParams{
		Symbol:     payload.Symbol,
		Side:       side,
		Quantity:   payload.Quantity,
		StopLoss:   payload.StopLoss,
		TakeProfit: payload.TakeProfit,
		Reason:     payload.Reason,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, trade)
}

func (h *Handler) closeTrade(c *gin.Context) {
	id, err := parseTradeID(c)
	if err != nil {
		writeError(c, errors.Join(ports.ErrValidation, err))
		return
	}
	trade, err := h.lifecycle.CloseTrade(c.Request.Context(), id, domain.CloseReasonManual)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

func (h *Handler) deleteTrade(c *gin.Context) {
	id, err := parseTradeID(c)
	if err != nil {
		writeError(c, errors.Join(ports.ErrValidation, err))
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listPositions(c *gin.Context) {
	positions, err := h.reconciler.EnrichPositions(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, positions)
}

func (h *Handler) quickTrade(c *gin.Context) {
	var req app.QuickOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Join(ports.ErrValidation, err))
		return
	}
	res, err := h.quick.ExecuteQuickTrade(c.Request.Context(), req)
	if err != nil {
		// Latency is part of the contract even on failure.
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "elapsedMs": res.ElapsedMs})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) quickClose(c *gin.Context) {
	var req app.QuickCloseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Join(ports.ErrValidation, err))
		return
	}
	res, err := h.quick.ClosePositionQuick(c.Request.Context(), req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "elapsedMs": res.ElapsedMs})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) reversePosition(c *gin.Context) {
	var req app.ReverseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Join(ports.ErrValidation, err))
		return
	}
	res, err := h.quick.ReversePosition(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) getRiskSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.riskStore.Get())
}

type riskSettingsPayload struct {
	Global  map[string]interface{}         `json:"global"`
	Symbols map[string]risk.SymbolOverride `json:"symbols"`
}

func (h *Handler) saveRiskSettings(c *gin.Context) {
	var payload riskSettingsPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeError(c, errors.Join(ports.ErrValidation, err))
		return
	}
	if err := h.riskStore.Save(c.Request.Context(), payload.Global, payload.Symbols); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.riskStore.Get())
}

func (h *Handler) deleteRiskSymbol(c *gin.Context) {
	symbol := c.Param("symbol")
	if err := h.riskStore.DeleteSymbol(c.Request.Context(), symbol); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.riskStore.Get())
}

func (h *Handler) updateRuntimeConfig(c *gin.Context) {
	var upd config.RuntimeUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		writeError(c, errors.Join(ports.ErrValidation, err))
		return
	}
	effective := h.runtime.ApplyUpdate(upd)
	h.logger.Info(c.Request.Context(), "Runtime configuration updated", map[string]interface{}{
		"paperTrading": effective.PaperTrading,
		"aiProvider":   effective.AIProvider,
	})
	c.JSON(http.StatusOK, effective)
}

func parseTradeID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errMissingTradeID
	}
	return id, nil
}
