package marketdata

import (
	"context"
	"strconv"
	"time"

	"RegimeGuard/internal/domain/models"
	drepo "RegimeGuard/internal/domain/repository"
	"RegimeGuard/pkg/cache"
)

// Data classes, used in cache keys and metrics labels.
const (
	ClassQuote           = "quote"
	ClassCandles         = "candles"
	ClassFinancials      = "financials"
	ClassRecommendations = "recommendations"
	ClassInsiderTx       = "insider_transactions"
	ClassInsiderSent     = "insider_sentiment"
	ClassProfile         = "profile"
	ClassPeers           = "peers"
	ClassEarnings        = "earnings"
	ClassNews            = "news"
)

const keyNamespace = "finnhub"

// Key builds finnhub:<class>:<SYM>[:<extra>...].
func Key(class string, symbol models.Symbol, extra ...string) string {
	params := make([]interface{}, 0, len(extra)+2)
	params = append(params, class, symbol)
	for _, e := range extra {
		params = append(params, e)
	}
	return cache.GenerateKeyWithParams(keyNamespace, params...)
}

func (c *Client) Quote(ctx context.Context, symbol models.Symbol) (*models.Quote, error) {
	return fetchWithCache(ctx, c, ClassQuote, Key(ClassQuote, symbol), c.ttl.Quote,
		func(ctx context.Context) (*models.Quote, error) { return c.provider.Quote(ctx, symbol) })
}

// Candles returns the OHLCV series. Daily and coarser resolutions are keyed by
// date so repeated lookbacks within a day share one cache entry.
func (c *Client) Candles(ctx context.Context, symbol models.Symbol, res drepo.Resolution, from, to time.Time) (models.Series, error) {
	res = drepo.NormalizeResolution(string(res))
	var key string
	switch res {
	case drepo.ResDay, drepo.ResWk, drepo.ResMo:
		key = Key(ClassCandles, symbol, string(res), from.UTC().Format(models.DateLayout), to.UTC().Format(models.DateLayout))
	default:
		key = Key(ClassCandles, symbol, string(res), strconv.FormatInt(from.Unix(), 10), strconv.FormatInt(to.Unix(), 10))
	}
	return fetchWithCache(ctx, c, ClassCandles, key, c.ttl.Candles,
		func(ctx context.Context) (models.Series, error) { return c.provider.Candles(ctx, symbol, res, from, to) })
}

func (c *Client) Financials(ctx context.Context, symbol models.Symbol) (*models.Financials, error) {
	return fetchWithCache(ctx, c, ClassFinancials, Key(ClassFinancials, symbol), c.ttl.Financials,
		func(ctx context.Context) (*models.Financials, error) { return c.provider.Financials(ctx, symbol) })
}

func (c *Client) Recommendations(ctx context.Context, symbol models.Symbol) ([]models.RecommendationTrend, error) {
	return fetchWithCache(ctx, c, ClassRecommendations, Key(ClassRecommendations, symbol), c.ttl.Recommendations,
		func(ctx context.Context) ([]models.RecommendationTrend, error) { return c.provider.Recommendations(ctx, symbol) })
}

func (c *Client) InsiderTransactions(ctx context.Context, symbol models.Symbol, r models.DateRange) ([]models.InsiderTransaction, error) {
	key := Key(ClassInsiderTx, symbol, r.FromString(), r.ToString())
	return fetchWithCache(ctx, c, ClassInsiderTx, key, c.ttl.Insiders,
		func(ctx context.Context) ([]models.InsiderTransaction, error) {
			return c.provider.InsiderTransactions(ctx, symbol, r)
		})
}

func (c *Client) InsiderSentiment(ctx context.Context, symbol models.Symbol, r models.DateRange) ([]models.InsiderSentiment, error) {
	key := Key(ClassInsiderSent, symbol, r.FromString(), r.ToString())
	return fetchWithCache(ctx, c, ClassInsiderSent, key, c.ttl.Insiders,
		func(ctx context.Context) ([]models.InsiderSentiment, error) {
			return c.provider.InsiderSentiment(ctx, symbol, r)
		})
}

func (c *Client) Profile(ctx context.Context, symbol models.Symbol) (*models.CompanyProfile, error) {
	return fetchWithCache(ctx, c, ClassProfile, Key(ClassProfile, symbol), c.ttl.Profile,
		func(ctx context.Context) (*models.CompanyProfile, error) { return c.provider.Profile(ctx, symbol) })
}

func (c *Client) Peers(ctx context.Context, symbol models.Symbol) ([]string, error) {
	return fetchWithCache(ctx, c, ClassPeers, Key(ClassPeers, symbol), c.ttl.Peers,
		func(ctx context.Context) ([]string, error) { return c.provider.Peers(ctx, symbol) })
}

// Earnings lists the earnings calendar. An empty symbol covers all companies
// and is keyed as ALL.
func (c *Client) Earnings(ctx context.Context, symbol models.Symbol, r models.DateRange) ([]models.EarningsEvent, error) {
	keySym := symbol
	if keySym == "" {
		keySym = "ALL"
	}
	key := Key(ClassEarnings, keySym, r.FromString(), r.ToString())
	return fetchWithCache(ctx, c, ClassEarnings, key, c.ttl.Earnings,
		func(ctx context.Context) ([]models.EarningsEvent, error) { return c.provider.Earnings(ctx, symbol, r) })
}

func (c *Client) News(ctx context.Context, symbol models.Symbol, r models.DateRange) ([]models.NewsArticle, error) {
	key := Key(ClassNews, symbol, r.FromString(), r.ToString())
	return fetchWithCache(ctx, c, ClassNews, key, c.ttl.News,
		func(ctx context.Context) ([]models.NewsArticle, error) { return c.provider.News(ctx, symbol, r) })
}
