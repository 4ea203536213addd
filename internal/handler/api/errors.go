package api

import (
	"errors"

	"RegimeGuard/internal/domain/models"
	xhttp "RegimeGuard/pkg/http"
)

// toAppError maps domain failures onto HTTP statuses. Upstream causes are
// checked before ErrInsufficientData because a failed candle fetch wraps
// both; only a genuinely empty or unknown series is a 404.
func toAppError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, models.ErrValidation):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrUpstreamAuth):
		return xhttp.BadGatewayError("ERR_UPSTREAM_AUTH", "market data provider rejected the API key").WithError(err)
	case errors.Is(err, models.ErrUpstreamRateLimited),
		errors.Is(err, models.ErrFetchExhausted),
		errors.Is(err, models.ErrUpstreamServer),
		errors.Is(err, models.ErrNetwork):
		return xhttp.ServiceUnavailableError("ERR_UPSTREAM_UNAVAILABLE", "market data provider is unavailable, retry later").WithError(err)
	case errors.Is(err, models.ErrUpstreamOther):
		return xhttp.BadGatewayError("ERR_UPSTREAM", "market data provider returned an unexpected response").WithError(err)
	case errors.Is(err, models.ErrCacheUnavailable):
		return xhttp.ServiceUnavailableError("ERR_CACHE_UNAVAILABLE", "cache is unavailable, retry later").WithError(err)
	case errors.Is(err, models.ErrInsufficientData):
		return xhttp.NotFoundError("not enough market data for this symbol").WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
