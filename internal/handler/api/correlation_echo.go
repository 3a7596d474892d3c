package api

import (
	"errors"
	"net/http"
	"strings"

	"FinCorr/internal/domain/models"
	"FinCorr/internal/service/ratelimit"
	"FinCorr/internal/usecase"
	xhttp "FinCorr/pkg/http"
	xlogger "FinCorr/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	// SessionHeader carries the caller's session id.
	SessionHeader = "X-Session-ID"
	// SessionCookie is read when the header is absent.
	SessionCookie = "SESSION"
)

// Config tunes request defaults and the write-path rate limit.
type Config struct {
	DefaultThreshold float64
	RateCapacity     float64
	RateRefillPerSec float64
}

// DefaultConfig returns the threshold and limiter settings used when none are configured.
func DefaultConfig() Config {
	return Config{DefaultThreshold: 0.7, RateCapacity: 10, RateRefillPerSec: 1}
}

// CorrelationEchoHandler exposes correlation analysis and portfolio helpers over Echo.
type CorrelationEchoHandler struct {
	logger  *xlogger.Logger
	uc      *usecase.CorrelationUseCase
	weights *usecase.WeightsUseCase
	limiter *ratelimit.Limiter
	cfg     Config
}

func NewCorrelationEchoHandler(
	logger *xlogger.Logger,
	uc *usecase.CorrelationUseCase,
	weights *usecase.WeightsUseCase,
	limiter *ratelimit.Limiter,
	cfg Config,
) *CorrelationEchoHandler {
	return &CorrelationEchoHandler{logger: logger, uc: uc, weights: weights, limiter: limiter, cfg: cfg}
}

func (h *CorrelationEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/correlation")
	g.POST("/analyze", h.Analyze, h.rateLimited)
	g.GET("/results", h.Results)
	g.DELETE("/results", h.DeleteResults)
	g.GET("/heatmap", h.Heatmap)
	g.GET("/high-correlations", h.HighCorrelations)
	g.GET("/diversification-guide", h.DiversificationGuide)
	g.POST("/diversification/optimize", h.Optimize, h.rateLimited)

	p := e.Group("/api/portfolio")
	p.GET("/weights/default", h.DefaultWeights)
	p.POST("/weights/complete", h.CompleteWeights)
}

func (h *CorrelationEchoHandler) Analyze(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	dr, err := dateRange(req.From, req.To)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	res, err := h.uc.Analyze(c.Request().Context(), sid, req.Tickers, dr)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *CorrelationEchoHandler) Results(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	res, err := h.uc.Results(c.Request().Context(), sid)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, no-store")
	return xhttp.SuccessResponse(c, res)
}

func (h *CorrelationEchoHandler) DeleteResults(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	if err := h.uc.DeleteResults(c.Request().Context(), sid); err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.NoContentResponse(c)
}

func (h *CorrelationEchoHandler) Heatmap(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	tickers := xhttp.ParseList(c.QueryParam("tickers"))

	res, err := h.uc.Heatmap(c.Request().Context(), sid, tickers)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *CorrelationEchoHandler) HighCorrelations(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	threshold, err := h.threshold(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	pairs, err := h.uc.HighCorrelationPairs(c.Request().Context(), sid, threshold)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, pairs)
}

func (h *CorrelationEchoHandler) DiversificationGuide(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	threshold, err := h.threshold(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	guide, err := h.uc.DiversificationGuide(c.Request().Context(), sid, threshold)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, guide)
}

// Optimize works without a session: the session id is optional and only lets
// the usecase reuse a cached matrix.
func (h *CorrelationEchoHandler) Optimize(c echo.Context) error {
	req := &models.DiversifyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	dr, err := dateRange(req.From, req.To)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	sid := req.SessionID
	if sid == "" {
		sid, _ = sessionID(c)
	}
	threshold := h.cfg.DefaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	sel, err := h.uc.Diversify(c.Request().Context(), usecase.DiversifyParams{
		SessionID: sid,
		Tickers:   req.Tickers,
		Threshold: threshold,
		Priority:  req.Priority,
		Matrix:    req.Matrix,
		DateRange: dr,
	})
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, sel)
}

func (h *CorrelationEchoHandler) DefaultWeights(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.weights.Defaults())
}

func (h *CorrelationEchoHandler) CompleteWeights(c echo.Context) error {
	req := &models.FactorWeightRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.weights.Complete(*req)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *CorrelationEchoHandler) rateLimited(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.limiter == nil {
			return next(c)
		}
		key := c.Path() + "|" + c.RealIP()
		if !h.limiter.Allow(key, h.cfg.RateCapacity, h.cfg.RateRefillPerSec) {
			if h.logger != nil {
				h.logger.Warn("rate limited", xlogger.String("route", c.Path()), xlogger.String("remote_ip", c.RealIP()))
			}
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("Too many requests"))
		}
		return next(c)
	}
}

func (h *CorrelationEchoHandler) threshold(c echo.Context) (float64, error) {
	v, err := xhttp.ParseFloatDefault(c.QueryParam("threshold"), h.cfg.DefaultThreshold)
	if err != nil {
		return 0, xhttp.NewAppError(xhttp.CodeInvalidThreshold, "threshold", "threshold must be a number", http.StatusBadRequest)
	}
	return v, nil
}

func sessionID(c echo.Context) (string, error) {
	if sid := strings.TrimSpace(c.Request().Header.Get(SessionHeader)); sid != "" {
		return sid, nil
	}
	if ck, err := c.Cookie(SessionCookie); err == nil && strings.TrimSpace(ck.Value) != "" {
		return strings.TrimSpace(ck.Value), nil
	}
	return "", xhttp.BadRequestErrorf("session id is required in header %s or cookie %s", SessionHeader, SessionCookie).WithParam("field", "session_id")
}

func dateRange(from, to string) (models.DateRange, error) {
	f, err := xhttp.ParseDate(from)
	if err != nil {
		return models.DateRange{}, xhttp.NewAppError(xhttp.CodeInvalidInput, "from", "invalid date", http.StatusBadRequest).WithError(err)
	}
	t, err := xhttp.ParseDate(to)
	if err != nil {
		return models.DateRange{}, xhttp.NewAppError(xhttp.CodeInvalidInput, "to", "invalid date", http.StatusBadRequest).WithError(err)
	}
	return models.DateRange{From: f, To: t}, nil
}

// toAppError maps domain sentinels to HTTP errors.
func toAppError(err error) error {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, models.ErrInvalidThreshold):
		return xhttp.NewAppError(xhttp.CodeInvalidThreshold, "threshold", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, models.ErrInvalidInput):
		return xhttp.NewAppError(xhttp.CodeInvalidInput, "", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, models.ErrInsufficientData):
		return xhttp.NewAppError(xhttp.CodeInsufficientData, "", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, models.ErrNoAnalysisAvailable):
		return xhttp.ConflictError(xhttp.CodeNoAnalysis, "no correlation analysis for this session").WithError(err)
	case errors.Is(err, models.ErrUpstreamData):
		return xhttp.BadGatewayError(err.Error()).WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}
