package finnhub

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"RegimeGuard/internal/domain/models"
	drepo "RegimeGuard/internal/domain/repository"
	xhttp "RegimeGuard/pkg/http"
)

const DefaultBaseURL = "https://finnhub.io/api/v1"

// RESTClient implements MarketDataProvider against the Finnhub REST API.
// It performs exactly one HTTP request per call; rate limiting, retries and
// caching belong to the caller.
type RESTClient struct {
	apiKey  string
	baseURL string
	http    *xhttp.Client
}

type Option func(*RESTClient)

// WithBaseURL points the client at another host, e.g. an httptest server.
func WithBaseURL(u string) Option {
	return func(c *RESTClient) { c.baseURL = u }
}

// WithHTTPClient replaces the transport client.
func WithHTTPClient(hc *xhttp.Client) Option {
	return func(c *RESTClient) { c.http = hc }
}

// New creates a Finnhub REST client.
func New(apiKey string, timeout time.Duration, opts ...Option) *RESTClient {
	c := &RESTClient{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithUserAgent("regimeguard")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ drepo.MarketDataProvider = (*RESTClient)(nil)

// get issues a GET on path and decodes the JSON body into dest. Failures are
// classified into *models.UpstreamError.
func (c *RESTClient) get(ctx context.Context, endpoint, path string, params map[string]string, dest interface{}) error {
	q := make(map[string][]string, len(params))
	for k, v := range params {
		if v != "" {
			q[k] = []string{v}
		}
	}
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + path,
		Headers:     map[string]string{"X-Finnhub-Token": c.apiKey},
		QueryParams: q,
	}, dest)
	if err == nil {
		return nil
	}

	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return models.ClassifyStatus(endpoint, se.Code, errors.New(se.Body))
	}
	var te *xhttp.TransportError
	if errors.As(err, &te) {
		return models.NetworkError(endpoint, te.Err)
	}
	// decode failures: the upstream answered 2xx with an unexpected body
	return &models.UpstreamError{Kind: models.KindOther, Endpoint: endpoint, Err: err}
}

func (c *RESTClient) Quote(ctx context.Context, symbol models.Symbol) (*models.Quote, error) {
	var dto quoteDTO
	if err := c.get(ctx, "quote", "/quote", map[string]string{"symbol": string(symbol)}, &dto); err != nil {
		return nil, err
	}
	// Finnhub answers unknown tickers with an all-zero quote.
	if dto.C == 0 && dto.T == 0 {
		return nil, nil
	}
	return dto.toModel(symbol), nil
}

func (c *RESTClient) Candles(ctx context.Context, symbol models.Symbol, res drepo.Resolution, from, to time.Time) (models.Series, error) {
	var dto candlesDTO
	params := map[string]string{
		"symbol":     string(symbol),
		"resolution": string(drepo.NormalizeResolution(string(res))),
		"from":       strconv.FormatInt(from.Unix(), 10),
		"to":         strconv.FormatInt(to.Unix(), 10),
	}
	if err := c.get(ctx, "candles", "/stock/candle", params, &dto); err != nil {
		return nil, err
	}
	if dto.S == "no_data" {
		return nil, nil
	}
	if dto.S != "ok" {
		return nil, &models.UpstreamError{Kind: models.KindOther, Endpoint: "candles", Err: fmt.Errorf("candle status %q", dto.S)}
	}
	return dto.toSeries()
}

func (c *RESTClient) Financials(ctx context.Context, symbol models.Symbol) (*models.Financials, error) {
	var dto financialsDTO
	if err := c.get(ctx, "financials", "/stock/metric", map[string]string{"symbol": string(symbol), "metric": "all"}, &dto); err != nil {
		return nil, err
	}
	if len(dto.Metric) == 0 {
		return nil, nil
	}
	return &models.Financials{Symbol: symbol, MetricType: dto.MetricType, Metric: dto.Metric}, nil
}

func (c *RESTClient) Recommendations(ctx context.Context, symbol models.Symbol) ([]models.RecommendationTrend, error) {
	var dto []recommendationDTO
	if err := c.get(ctx, "recommendations", "/stock/recommendation", map[string]string{"symbol": string(symbol)}, &dto); err != nil {
		return nil, err
	}
	out := make([]models.RecommendationTrend, 0, len(dto))
	for _, r := range dto {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (c *RESTClient) InsiderTransactions(ctx context.Context, symbol models.Symbol, r models.DateRange) ([]models.InsiderTransaction, error) {
	var dto insiderTransactionsDTO
	params := map[string]string{"symbol": string(symbol), "from": r.FromString(), "to": r.ToString()}
	if err := c.get(ctx, "insider_transactions", "/stock/insider-transactions", params, &dto); err != nil {
		return nil, err
	}
	out := make([]models.InsiderTransaction, 0, len(dto.Data))
	for _, t := range dto.Data {
		out = append(out, models.InsiderTransaction{
			Name:             t.Name,
			Share:            t.Share,
			Change:           t.Change,
			FilingDate:       t.FilingDate,
			TransactionDate:  t.TransactionDate,
			TransactionCode:  t.TransactionCode,
			TransactionPrice: t.TransactionPrice,
		})
	}
	return out, nil
}

func (c *RESTClient) InsiderSentiment(ctx context.Context, symbol models.Symbol, r models.DateRange) ([]models.InsiderSentiment, error) {
	var dto insiderSentimentDTO
	params := map[string]string{"symbol": string(symbol), "from": r.FromString(), "to": r.ToString()}
	if err := c.get(ctx, "insider_sentiment", "/stock/insider-sentiment", params, &dto); err != nil {
		return nil, err
	}
	out := make([]models.InsiderSentiment, 0, len(dto.Data))
	for _, s := range dto.Data {
		out = append(out, models.InsiderSentiment{Year: s.Year, Month: s.Month, Change: s.Change, MSPR: s.MSPR})
	}
	return out, nil
}

func (c *RESTClient) Profile(ctx context.Context, symbol models.Symbol) (*models.CompanyProfile, error) {
	var dto profileDTO
	if err := c.get(ctx, "profile", "/stock/profile2", map[string]string{"symbol": string(symbol)}, &dto); err != nil {
		return nil, err
	}
	if dto.Ticker == "" && dto.Name == "" {
		return nil, nil
	}
	return dto.toModel(), nil
}

func (c *RESTClient) Peers(ctx context.Context, symbol models.Symbol) ([]string, error) {
	var peers []string
	if err := c.get(ctx, "peers", "/stock/peers", map[string]string{"symbol": string(symbol)}, &peers); err != nil {
		return nil, err
	}
	return peers, nil
}

// Earnings returns the calendar for the range; an empty symbol lists every company.
func (c *RESTClient) Earnings(ctx context.Context, symbol models.Symbol, r models.DateRange) ([]models.EarningsEvent, error) {
	var dto earningsDTO
	params := map[string]string{"symbol": string(symbol), "from": r.FromString(), "to": r.ToString()}
	if err := c.get(ctx, "earnings", "/calendar/earnings", params, &dto); err != nil {
		return nil, err
	}
	out := make([]models.EarningsEvent, 0, len(dto.EarningsCalendar))
	for _, e := range dto.EarningsCalendar {
		out = append(out, models.EarningsEvent{
			Symbol:          e.Symbol,
			Date:            e.Date,
			Hour:            e.Hour,
			Quarter:         e.Quarter,
			Year:            e.Year,
			EPSActual:       e.EPSActual,
			EPSEstimate:     e.EPSEstimate,
			RevenueActual:   e.RevenueActual,
			RevenueEstimate: e.RevenueEstimate,
		})
	}
	return out, nil
}

func (c *RESTClient) News(ctx context.Context, symbol models.Symbol, r models.DateRange) ([]models.NewsArticle, error) {
	var dto []newsDTO
	params := map[string]string{"symbol": string(symbol), "from": r.FromString(), "to": r.ToString()}
	if err := c.get(ctx, "news", "/company-news", params, &dto); err != nil {
		return nil, err
	}
	out := make([]models.NewsArticle, 0, len(dto))
	for _, n := range dto {
		out = append(out, n.toModel())
	}
	return out, nil
}
