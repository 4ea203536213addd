package models

// Requests for the HTTP API. Bound and validated by pkg/http.

type EvaluateRequest struct {
	Symbol  string `query:"symbol" json:"symbol" validate:"required,max=20"`
	Narrate bool   `query:"narrate" json:"narrate"`
}

type BatchEvaluateRequest struct {
	Symbols []string `json:"symbols" validate:"required,min=1,max=50,dive,required,max=20"`
	Narrate bool     `json:"narrate"`
}

type MarketDataRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,max=20"`
	From   string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To     string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
	Days   int    `query:"days" json:"days" default:"30" validate:"gte=1,lte=365"`
}

type HistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,max=20"`
	Limit  int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=500"`
}

type InvalidateRequest struct {
	Pattern string `query:"pattern" json:"pattern" default:"finnhub:*" validate:"required,max=128"`
}
