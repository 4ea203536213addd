package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"RegimeGuard/internal/domain/models"
	drepo "RegimeGuard/internal/domain/repository"
	domsvc "RegimeGuard/internal/domain/service"
	"RegimeGuard/internal/service/marketdata"
	"RegimeGuard/internal/usecase"
	"RegimeGuard/pkg/cache"
	xhttp "RegimeGuard/pkg/http"
	"RegimeGuard/pkg/http/middleware"
	xlogger "RegimeGuard/pkg/logger"
	"RegimeGuard/pkg/util"
)

// Evaluations is the pipeline surface the API needs.
type Evaluations interface {
	Evaluate(ctx context.Context, raw string, opts usecase.EvaluateOptions) (*models.Evaluation, error)
	EvaluateMany(ctx context.Context, symbols []string, opts usecase.EvaluateOptions) *usecase.BatchResult
	ClassifySnapshot(in models.SnapshotInput) (*models.Classification, error)
	History(ctx context.Context, raw string, limit int) ([]*models.Evaluation, error)
}

// MarketData is the cached fetch surface the API needs.
type MarketData interface {
	FetchAll(ctx context.Context, raw string, r models.DateRange) (*models.MarketData, error)
	Stats() marketdata.Stats
}

// breakerState is implemented by narrators guarded by a circuit breaker.
type breakerState interface {
	State() string
}

// Handler serves the regime API.
type Handler struct {
	log      *xlogger.Logger
	eval     Evaluations
	data     MarketData
	cache    cache.Store
	history  drepo.EvaluationStore
	narrator domsvc.Narrator
	limiter  middleware.Allower
	now      func() time.Time
}

type Option func(*Handler)

func WithHistoryStore(s drepo.EvaluationStore) Option { return func(h *Handler) { h.history = s } }

func WithNarrator(n domsvc.Narrator) Option { return func(h *Handler) { h.narrator = n } }

// WithLimiter throttles every /api route per client IP.
func WithLimiter(a middleware.Allower) Option { return func(h *Handler) { h.limiter = a } }

func WithClock(now func() time.Time) Option { return func(h *Handler) { h.now = now } }

func NewHandler(log *xlogger.Logger, eval Evaluations, data MarketData, store cache.Store, opts ...Option) *Handler {
	h := &Handler{log: log, eval: eval, data: data, cache: store, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = xlogger.Nop()
	}
	return h
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	var mw []echo.MiddlewareFunc
	if h.limiter != nil {
		mw = append(mw, middleware.RateLimit(h.limiter))
	}
	g := e.Group("/api/v1", mw...)
	g.GET("/evaluate", h.Evaluate)
	g.POST("/evaluate/batch", h.EvaluateBatch)
	g.POST("/classify", h.Classify)
	g.GET("/market-data", h.MarketData)
	g.GET("/history", h.History)
	g.GET("/stats", h.Stats)
	g.DELETE("/cache", h.InvalidateCache)

	e.GET("/healthz", h.Health)
}

func (h *Handler) Evaluate(c echo.Context) error {
	req := &models.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ev, err := h.eval.Evaluate(c.Request().Context(), req.Symbol, usecase.EvaluateOptions{Narrate: req.Narrate})
	if err != nil {
		return h.fail(c, "evaluate", err)
	}
	return xhttp.SuccessResponse(c, ev)
}

func (h *Handler) EvaluateBatch(c echo.Context) error {
	req := &models.BatchEvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res := h.eval.EvaluateMany(c.Request().Context(), req.Symbols, usecase.EvaluateOptions{Narrate: req.Narrate})
	return xhttp.SuccessResponse(c, res)
}

const maxSnapshotBody = 64 << 10

// Classify runs classification and veto on a caller-supplied snapshot.
// Missing, mistyped or out-of-range fields fall back to defaults and are
// listed in reset_fields. Only a body that is not a JSON object is a 400.
func (h *Handler) Classify(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxSnapshotBody))
	if err != nil {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{Code: "ERR_BIND", Message: "could not read request body"}})
	}
	in, err := models.DecodeSnapshotInput(body)
	if err != nil {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{Code: "ERR_BIND", Message: "body must be a JSON snapshot"}})
	}

	res, err := h.eval.ClassifySnapshot(in)
	if err != nil {
		return h.fail(c, "classify", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *Handler) MarketData(c echo.Context) error {
	req := &models.MarketDataRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	r, appErr := h.dateRange(req)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}
	md, err := h.data.FetchAll(c.Request().Context(), req.Symbol, r)
	if err != nil {
		return h.fail(c, "market-data", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, md)
}

// dateRange resolves from/to. A missing to means today and a missing from
// means days before to.
func (h *Handler) dateRange(req *models.MarketDataRequest) (models.DateRange, *xhttp.AppError) {
	to := util.StartOfDay(h.now())
	if req.To != "" {
		t, err := time.Parse(models.DateLayout, req.To)
		if err != nil {
			return models.DateRange{}, xhttp.BadRequestErrorf("invalid to date %q", req.To)
		}
		to = t
	}
	from := to.AddDate(0, 0, -req.Days)
	if req.From != "" {
		f, err := time.Parse(models.DateLayout, req.From)
		if err != nil {
			return models.DateRange{}, xhttp.BadRequestErrorf("invalid from date %q", req.From)
		}
		from = f
	}
	if from.After(to) {
		return models.DateRange{}, xhttp.BadRequestError("from must not be after to")
	}
	return models.DateRange{From: from, To: to}, nil
}

func (h *Handler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.eval.History(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		return h.fail(c, "history", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

type statsResponse struct {
	Fetch marketdata.Stats `json:"fetch"`
	Cache *cache.Stats     `json:"cache,omitempty"`
}

func (h *Handler) Stats(c echo.Context) error {
	res := statsResponse{Fetch: h.data.Stats()}
	if h.cache != nil {
		if st, err := h.cache.Stats(c.Request().Context()); err == nil {
			res.Cache = &st
		} else {
			h.log.Warn("cache stats unavailable", xlogger.Error(err))
		}
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *Handler) InvalidateCache(c echo.Context) error {
	req := &models.InvalidateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.cache == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("ERR_CACHE_DISABLED", "no cache configured"))
	}

	n, err := h.cache.DeleteByPattern(c.Request().Context(), req.Pattern)
	if err != nil {
		h.log.Error("cache invalidation failed", xlogger.String("pattern", req.Pattern), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("ERR_CACHE_UNAVAILABLE", "cache invalidation failed").WithError(err))
	}
	h.log.Info("cache invalidated", xlogger.String("pattern", req.Pattern), xlogger.Int64("removed", n))
	return xhttp.SuccessResponse(c, map[string]interface{}{"pattern": req.Pattern, "removed": n})
}

type healthResponse struct {
	Status   string `json:"status"`
	Cache    string `json:"cache"`
	History  string `json:"history"`
	Narrator string `json:"narrator"`
}

// Health is degraded (503) when the cache or history store is down. An
// open narrator breaker is reported but does not degrade the service.
func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	res := healthResponse{Status: "ok", Cache: "disabled", History: "disabled", Narrator: "disabled"}
	if h.cache != nil {
		res.Cache = "ok"
		if !h.cache.Health(ctx) {
			res.Cache, res.Status = "down", "degraded"
		}
	}
	if h.history != nil {
		res.History = "ok"
		if err := h.history.Health(ctx); err != nil {
			h.log.Warn("history store unhealthy", xlogger.Error(err))
			res.History, res.Status = "down", "degraded"
		}
	}
	if h.narrator != nil && h.narrator.Enabled() {
		res.Narrator = "enabled"
		if b, ok := h.narrator.(breakerState); ok {
			res.Narrator = b.State()
		}
	}

	code := http.StatusOK
	if res.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return xhttp.DataResponse(c, code, res)
}

func (h *Handler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.log.Error(op+" failed", xlogger.Error(err))
	} else {
		h.log.Warn(op+" rejected", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
