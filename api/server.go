// Package api exposes the session, risk and reliability state over a
// small HTTP surface.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/coinvex/trading"
	"github.com/coinvex/trading/breaker"
	"github.com/coinvex/trading/ratelimit"
	"github.com/coinvex/trading/risk"
	"github.com/gin-gonic/gin"
)

const requestTimeout = 30 * time.Second

type Config struct {
	Port string
}

type Server struct {
	logger     trading.Logger
	sessions   *trading.SessionController
	idService  trading.IDService
	riskEngine *risk.Engine
	limiter    *ratelimit.Limiter
	breakers   *breaker.Registry
	tier       ratelimit.Tier
}

func NewServer(
	logger trading.Logger,
	sessions *trading.SessionController,
	idService trading.IDService,
	riskEngine *risk.Engine,
	limiter *ratelimit.Limiter,
	breakers *breaker.Registry,
	tier ratelimit.Tier,
) *Server {
	return &Server{
		logger:     logger,
		sessions:   sessions,
		idService:  idService,
		riskEngine: riskEngine,
		limiter:    limiter,
		breakers:   breakers,
		tier:       tier,
	}
}

func (s *Server) Run(config *Config) error {
	gin.SetMode(gin.ReleaseMode)

	router := s.router()

	s.logger.Infof("starting api server on port [%v]", config.Port)

	return router.Run(":" + config.Port)
}

func (s *Server) router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.health)

	sessions := router.Group("/sessions/:userID", s.requestLimit)
	sessions.POST("/connect", s.connectExchange)
	sessions.GET("", s.sessionState)
	sessions.POST("/mode", s.switchMode)
	sessions.DELETE("", s.disconnectExchange)
	sessions.POST("/flush", s.flushHistory)

	sessions.GET("/balances", s.balances)
	sessions.GET("/positions", s.positions)

	router.GET("/usage/:userID", s.dailyUsage)
	router.GET("/risk/metrics", s.riskMetrics)
	router.GET("/risk/limits", s.riskLimits)
	router.GET("/breakers", s.breakerStats)

	return router
}

// requestLimit counts the call against the user's per-minute request
// budget and fails fast with a Retry-After once the budget is gone.
func (s *Server) requestLimit(c *gin.Context) {
	limits := ratelimit.LimitsForTier(s.tier)

	result := s.limiter.CheckLimit(
		c.Param("userID"),
		"requests",
		limits.RequestsPerMinute,
		time.Minute,
	)

	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

	if !result.Allowed {
		s.handleError(c, &trading.RateLimitExceededError{
			Category:   "requests",
			RetryAfter: result.RetryAfter,
		})
		c.Abort()
		return
	}

	c.Next()
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type connectRequest struct {
	CredentialID string `json:"credentialId" binding:"required"`
}

func (s *Server) connectExchange(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	var request connectRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	credentialID, err := s.idService.NewIDFromString(request.CredentialID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credential id"})
		return
	}

	state, err := s.sessions.ConnectExchange(
		ctx,
		c.Param("userID"),
		credentialID,
	)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, stateResponse(state))
}

func (s *Server) sessionState(c *gin.Context) {
	state := s.sessions.SessionState(c.Param("userID"))

	c.JSON(http.StatusOK, stateResponse(state))
}

type switchModeRequest struct {
	Mode         string `json:"mode" binding:"required"`
	Acknowledged bool   `json:"acknowledged"`
}

func (s *Server) switchMode(c *gin.Context) {
	var request switchModeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	mode, err := trading.ParseMode(request.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = s.sessions.SwitchMode(
		c.Param("userID"),
		mode,
		request.Acknowledged,
	)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(
		http.StatusOK,
		stateResponse(s.sessions.SessionState(c.Param("userID"))),
	)
}

func (s *Server) disconnectExchange(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := s.sessions.DisconnectExchange(ctx, c.Param("userID")); err != nil {
		s.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type flushRequest struct {
	Pair string `json:"pair"`
}

func (s *Server) flushHistory(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	var request flushRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	var pair trading.Pair
	if len(request.Pair) > 0 {
		parsed, err := trading.ParsePair(request.Pair)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		pair = parsed
	}

	if err := s.sessions.FlushHistory(ctx, c.Param("userID"), pair); err != nil {
		s.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) balances(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	balances, err := s.sessions.Balances(ctx, c.Param("userID"))
	if err != nil {
		s.handleError(c, err)
		return
	}

	response := make([]gin.H, 0, len(balances))
	for _, balance := range balances {
		response = append(response, gin.H{
			"asset":     balance.Asset,
			"available": balance.Available.Text('f', 8),
			"locked":    balance.Locked.Text('f', 8),
		})
	}

	c.JSON(http.StatusOK, response)
}

func (s *Server) positions(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	positions, err := s.sessions.Positions(ctx, c.Param("userID"))
	if err != nil {
		s.handleError(c, err)
		return
	}

	response := make([]gin.H, 0, len(positions))
	for _, position := range positions {
		response = append(response, gin.H{
			"pair":          position.Pair.String(),
			"size":          position.Size.Text('f', 8),
			"entryPrice":    position.EntryPrice.Text('f', 8),
			"currentPrice":  position.CurrentPrice.Text('f', 8),
			"unrealizedPnl": position.UnrealizedPnl.Text('f', 8),
		})
	}

	c.JSON(http.StatusOK, response)
}

func (s *Server) dailyUsage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"dailyUsage": s.limiter.DailyUsage(c.Param("userID")),
	})
}

func (s *Server) riskMetrics(c *gin.Context) {
	metrics := s.riskEngine.Metrics()

	c.JSON(http.StatusOK, gin.H{
		"unrealizedPnl":   metrics.UnrealizedPnl,
		"realizedPnl":     metrics.RealizedPnl,
		"dailyPnl":        metrics.DailyPnl,
		"currentDrawdown": metrics.CurrentDrawdown,
		"maxDrawdown":     metrics.MaxDrawdown,
		"valueAtRisk95":   metrics.ValueAtRisk95,
		"cvar95":          metrics.ConditionalValueAtRisk95,
		"sharpeRatio":     metrics.SharpeRatio,
		"sortinoRatio":    metrics.SortinoRatio,
		"winRate":         metrics.WinRate,
		"profitFactor":    metrics.ProfitFactor,
		"expectancy":      metrics.Expectancy,
		"openPositions":   metrics.OpenPositions,
		"totalTrades":     metrics.TotalTrades,
	})
}

func (s *Server) riskLimits(c *gin.Context) {
	limits := s.riskEngine.Limits()

	c.JSON(http.StatusOK, gin.H{
		"maxPositionSize":  limits.MaxPositionSize,
		"maxDailyLoss":     limits.MaxDailyLoss,
		"maxDrawdown":      limits.MaxDrawdown,
		"maxOpenPositions": limits.MaxOpenPositions,
		"minRiskReward":    limits.MinRiskRewardRatio,
	})
}

func (s *Server) breakerStats(c *gin.Context) {
	stats := s.breakers.Stats()

	response := make([]gin.H, 0, len(stats))
	for _, stat := range stats {
		response = append(response, gin.H{
			"name":      stat.Name,
			"state":     stat.State.String(),
			"failures":  stat.Failures,
			"successes": stat.Successes,
		})
	}

	c.JSON(http.StatusOK, response)
}

// handleError maps the error taxonomy to HTTP statuses. Unrecognized
// errors are logged and surfaced as opaque internal failures.
func (s *Server) handleError(c *gin.Context, err error) {
	var noSessionError *trading.NoSessionError
	if errors.As(err, &noSessionError) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	var connectionError *trading.ConnectionError
	if errors.As(err, &connectionError) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var balanceError *trading.InsufficientBalanceError
	if errors.As(err, &balanceError) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	var rateLimitError *trading.RateLimitExceededError
	if errors.As(err, &rateLimitError) {
		c.Header(
			"Retry-After",
			rateLimitError.RetryAfter.Round(time.Second).String(),
		)
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
		return
	}

	var breakerError *trading.CircuitBreakerError
	if errors.As(err, &breakerError) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	var exchangeError *trading.ExchangeError
	if errors.As(err, &exchangeError) {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	s.logger.Errorf("request failed: [%v]", err)

	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func stateResponse(state *trading.SessionState) gin.H {
	return gin.H{
		"mode":         state.Mode.String(),
		"exchangeId":   state.ExchangeID,
		"exchangeName": state.ExchangeName,
		"isConnected":  state.IsConnected,
		"canTrade":     state.CanTrade,
	}
}
