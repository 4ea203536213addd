package models

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrUpstreamAuth        = errors.New("upstream: authentication failed")
	ErrUpstreamNotFound    = errors.New("upstream: not found")
	ErrUpstreamRateLimited = errors.New("upstream: rate limited")
	ErrUpstreamServer      = errors.New("upstream: server error")
	ErrUpstreamOther       = errors.New("upstream: request failed")
	ErrNetwork             = errors.New("upstream: network error")
	ErrFetchExhausted      = errors.New("fetch: retry budget exhausted")
	ErrCacheUnavailable    = errors.New("cache unavailable")
	ErrInsufficientData    = errors.New("insufficient market data")
)

// UpstreamKind classifies a failed upstream call.
type UpstreamKind int

const (
	KindOther UpstreamKind = iota
	KindAuth
	KindNotFound
	KindRateLimited
	KindServer
	KindNetwork
)

func (k UpstreamKind) sentinel() error {
	switch k {
	case KindAuth:
		return ErrUpstreamAuth
	case KindNotFound:
		return ErrUpstreamNotFound
	case KindRateLimited:
		return ErrUpstreamRateLimited
	case KindServer:
		return ErrUpstreamServer
	case KindNetwork:
		return ErrNetwork
	default:
		return ErrUpstreamOther
	}
}

// UpstreamError is returned by MarketDataProvider implementations.
type UpstreamError struct {
	Kind       UpstreamKind
	StatusCode int
	Endpoint   string
	Err        error
}

// ClassifyStatus maps an HTTP status code to an UpstreamError.
func ClassifyStatus(endpoint string, status int, err error) *UpstreamError {
	kind := KindOther
	switch status {
	case 401:
		kind = KindAuth
	case 404:
		kind = KindNotFound
	case 429:
		kind = KindRateLimited
	case 500, 503:
		kind = KindServer
	}
	return &UpstreamError{Kind: kind, StatusCode: status, Endpoint: endpoint, Err: err}
}

// NetworkError wraps a transport failure.
func NetworkError(endpoint string, err error) *UpstreamError {
	return &UpstreamError{Kind: KindNetwork, Endpoint: endpoint, Err: err}
}

func (e *UpstreamError) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Endpoint != "" {
		msg = e.Endpoint + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == e.Kind.sentinel() }

// TrackingKey is the label used for per-type error statistics.
func (e *UpstreamError) TrackingKey() string {
	switch e.Kind {
	case KindAuth:
		return "invalid_api_key"
	case KindNotFound:
		return "invalid_symbol"
	case KindRateLimited:
		return "rate_limit_429"
	case KindServer:
		return fmt.Sprintf("server_error_%d", e.StatusCode)
	case KindNetwork:
		return "network_error"
	default:
		return fmt.Sprintf("api_error_%d", e.StatusCode)
	}
}
