package finnhub

import (
	"fmt"
	"time"

	"RegimeGuard/internal/domain/models"
)

type quoteDTO struct {
	C  float64 `json:"c"`
	D  float64 `json:"d"`
	DP float64 `json:"dp"`
	H  float64 `json:"h"`
	L  float64 `json:"l"`
	O  float64 `json:"o"`
	PC float64 `json:"pc"`
	T  int64   `json:"t"` // unix seconds
}

func (q quoteDTO) toModel(symbol models.Symbol) *models.Quote {
	return &models.Quote{
		Symbol:        symbol,
		Current:       q.C,
		Open:          q.O,
		High:          q.H,
		Low:           q.L,
		PreviousClose: q.PC,
		Change:        q.D,
		PercentChange: q.DP,
		Timestamp:     time.Unix(q.T, 0).UTC(),
	}
}

// candlesDTO is the column-oriented candle response.
type candlesDTO struct {
	C []float64 `json:"c"`
	H []float64 `json:"h"`
	L []float64 `json:"l"`
	O []float64 `json:"o"`
	T []int64   `json:"t"`
	V []float64 `json:"v"`
	S string    `json:"s"`
}

func (d candlesDTO) toSeries() (models.Series, error) {
	n := len(d.T)
	if len(d.C) != n || len(d.H) != n || len(d.L) != n || len(d.O) != n || len(d.V) != n {
		return nil, &models.UpstreamError{
			Kind:     models.KindOther,
			Endpoint: "candles",
			Err:      fmt.Errorf("ragged candle columns (t=%d c=%d)", n, len(d.C)),
		}
	}
	candles := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		candles[i] = models.Candle{
			Time:   time.Unix(d.T[i], 0).UTC(),
			Open:   d.O[i],
			High:   d.H[i],
			Low:    d.L[i],
			Close:  d.C[i],
			Volume: d.V[i],
		}
	}
	return models.NewSeries(candles), nil
}

type financialsDTO struct {
	MetricType string                 `json:"metricType"`
	Metric     map[string]interface{} `json:"metric"`
}

type recommendationDTO struct {
	Period     string `json:"period"`
	StrongBuy  int    `json:"strongBuy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strongSell"`
}

func (r recommendationDTO) toModel() models.RecommendationTrend {
	return models.RecommendationTrend{
		Period:     r.Period,
		StrongBuy:  r.StrongBuy,
		Buy:        r.Buy,
		Hold:       r.Hold,
		Sell:       r.Sell,
		StrongSell: r.StrongSell,
	}
}

type insiderTransactionsDTO struct {
	Data []struct {
		Name             string  `json:"name"`
		Share            int64   `json:"share"`
		Change           int64   `json:"change"`
		FilingDate       string  `json:"filingDate"`
		TransactionDate  string  `json:"transactionDate"`
		TransactionCode  string  `json:"transactionCode"`
		TransactionPrice float64 `json:"transactionPrice"`
	} `json:"data"`
}

type insiderSentimentDTO struct {
	Data []struct {
		Year   int     `json:"year"`
		Month  int     `json:"month"`
		Change int64   `json:"change"`
		MSPR   float64 `json:"mspr"`
	} `json:"data"`
}

type profileDTO struct {
	Country              string  `json:"country"`
	Currency             string  `json:"currency"`
	Exchange             string  `json:"exchange"`
	FinnhubIndustry      string  `json:"finnhubIndustry"`
	IPO                  string  `json:"ipo"`
	MarketCapitalization float64 `json:"marketCapitalization"`
	Name                 string  `json:"name"`
	ShareOutstanding     float64 `json:"shareOutstanding"`
	Ticker               string  `json:"ticker"`
	WebURL               string  `json:"weburl"`
}

func (p profileDTO) toModel() *models.CompanyProfile {
	return &models.CompanyProfile{
		Ticker:            p.Ticker,
		Name:              p.Name,
		Country:           p.Country,
		Currency:          p.Currency,
		Exchange:          p.Exchange,
		Industry:          p.FinnhubIndustry,
		IPO:               p.IPO,
		MarketCap:         p.MarketCapitalization,
		SharesOutstanding: p.ShareOutstanding,
		WebURL:            p.WebURL,
	}
}

type earningsDTO struct {
	EarningsCalendar []struct {
		Symbol          string   `json:"symbol"`
		Date            string   `json:"date"`
		Hour            string   `json:"hour"`
		Quarter         int      `json:"quarter"`
		Year            int      `json:"year"`
		EPSActual       *float64 `json:"epsActual"`
		EPSEstimate     *float64 `json:"epsEstimate"`
		RevenueActual   *float64 `json:"revenueActual"`
		RevenueEstimate *float64 `json:"revenueEstimate"`
	} `json:"earningsCalendar"`
}

type newsDTO struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

func (n newsDTO) toModel() models.NewsArticle {
	return models.NewsArticle{
		ID:       n.ID,
		Category: n.Category,
		Datetime: time.Unix(n.Datetime, 0).UTC(),
		Headline: n.Headline,
		Source:   n.Source,
		Summary:  n.Summary,
		URL:      n.URL,
	}
}
