package models

import (
	"math"
	"sort"
	"time"
)

// Quote is a real-time price snapshot. Always fetched fresh.
type Quote struct {
	Symbol        Symbol    `json:"symbol"`
	Current       float64   `json:"current"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	PreviousClose float64   `json:"previous_close"`
	Change        float64   `json:"change"`
	PercentChange float64   `json:"percent_change"`
	Timestamp     time.Time `json:"timestamp"`
}

// Candle is one OHLCV bar.
type Candle struct {
	Time   time.Time `json:"t"`
	Open   float64   `json:"o"`
	High   float64   `json:"h"`
	Low    float64   `json:"l"`
	Close  float64   `json:"c"`
	Volume float64   `json:"v"`
}

func (c Candle) finite() bool {
	for _, v := range [...]float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Series is an ascending, de-duplicated run of candles.
type Series []Candle

// NewSeries sorts candles by time, drops non-finite bars and keeps the last
// bar seen for a duplicated timestamp.
func NewSeries(candles []Candle) Series {
	clean := make([]Candle, 0, len(candles))
	for _, c := range candles {
		if c.finite() {
			clean = append(clean, c)
		}
	}
	sort.SliceStable(clean, func(i, j int) bool { return clean[i].Time.Before(clean[j].Time) })

	out := make(Series, 0, len(clean))
	for _, c := range clean {
		if n := len(out); n > 0 && out[n-1].Time.Equal(c.Time) {
			out[n-1] = c
			continue
		}
		out = append(out, c)
	}
	return out
}

// Closes returns the close column.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

// Volumes returns the volume column.
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Volume
	}
	return out
}

// Last returns the most recent candle and false when empty.
func (s Series) Last() (Candle, bool) {
	if len(s) == 0 {
		return Candle{}, false
	}
	return s[len(s)-1], true
}

// Financials holds the basic-financials metric map.
type Financials struct {
	Symbol     Symbol                 `json:"symbol"`
	MetricType string                 `json:"metric_type,omitempty"`
	Metric     map[string]interface{} `json:"metric"`
}

// RecommendationTrend is one monthly analyst consensus row.
type RecommendationTrend struct {
	Period     string `json:"period"`
	StrongBuy  int    `json:"strong_buy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strong_sell"`
}

type InsiderTransaction struct {
	Name             string  `json:"name"`
	Share            int64   `json:"share"`
	Change           int64   `json:"change"`
	FilingDate       string  `json:"filing_date"`
	TransactionDate  string  `json:"transaction_date"`
	TransactionCode  string  `json:"transaction_code"`
	TransactionPrice float64 `json:"transaction_price"`
}

type InsiderSentiment struct {
	Year   int     `json:"year"`
	Month  int     `json:"month"`
	Change int64   `json:"change"`
	MSPR   float64 `json:"mspr"`
}

type CompanyProfile struct {
	Ticker            string  `json:"ticker"`
	Name              string  `json:"name"`
	Country           string  `json:"country"`
	Currency          string  `json:"currency"`
	Exchange          string  `json:"exchange"`
	Industry          string  `json:"industry"`
	IPO               string  `json:"ipo"`
	MarketCap         float64 `json:"market_cap"`
	SharesOutstanding float64 `json:"shares_outstanding"`
	WebURL            string  `json:"web_url"`
}

type EarningsEvent struct {
	Symbol          string   `json:"symbol"`
	Date            string   `json:"date"`
	Hour            string   `json:"hour"`
	Quarter         int      `json:"quarter"`
	Year            int      `json:"year"`
	EPSActual       *float64 `json:"eps_actual"`
	EPSEstimate     *float64 `json:"eps_estimate"`
	RevenueActual   *float64 `json:"revenue_actual"`
	RevenueEstimate *float64 `json:"revenue_estimate"`
}

type NewsArticle struct {
	ID       int64     `json:"id"`
	Category string    `json:"category"`
	Datetime time.Time `json:"datetime"`
	Headline string    `json:"headline"`
	Source   string    `json:"source"`
	Summary  string    `json:"summary"`
	URL      string    `json:"url"`
}

// DateRange bounds date-filtered endpoints. Dates are day-granular.
type DateRange struct {
	From time.Time
	To   time.Time
}

const DateLayout = "2006-01-02"

// LastDays returns the range ending today (UTC) and spanning n days.
func LastDays(now time.Time, n int) DateRange {
	to := now.UTC().Truncate(24 * time.Hour)
	return DateRange{From: to.AddDate(0, 0, -n), To: to}
}

func (r DateRange) FromString() string { return r.From.Format(DateLayout) }
func (r DateRange) ToString() string   { return r.To.Format(DateLayout) }

// MarketData is the partial-result bundle returned by a batch fetch.
// A nil field means the endpoint failed or had no data; see Errors.
type MarketData struct {
	Symbol              Symbol                `json:"symbol"`
	From                string                `json:"from"`
	To                  string                `json:"to"`
	Quote               *Quote                `json:"price"`
	Financials          *Financials           `json:"financials"`
	Recommendations     []RecommendationTrend `json:"recommendations"`
	InsiderTransactions []InsiderTransaction  `json:"insider_transactions"`
	InsiderSentiment    []InsiderSentiment    `json:"insider_sentiment"`
	Profile             *CompanyProfile       `json:"company_profile"`
	Peers               []string              `json:"company_peers"`
	Earnings            []EarningsEvent       `json:"earnings"`
	News                []NewsArticle         `json:"news"`
	Errors              map[string]string     `json:"errors,omitempty"`
	FetchedAt           time.Time             `json:"fetched_at"`
}
