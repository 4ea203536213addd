package marketdata

import (
	"context"
	"sync"

	"RegimeGuard/internal/domain/models"
	"RegimeGuard/pkg/logger"
)

// FetchAll fetches every endpoint for symbol concurrently. A failing endpoint
// leaves its field nil and is recorded in Errors; only an invalid symbol
// fails the call. A zero range means the last 30 days.
func (c *Client) FetchAll(ctx context.Context, raw string, r models.DateRange) (*models.MarketData, error) {
	symbol, err := models.NormalizeSymbol(raw)
	if err != nil {
		return nil, err
	}
	if r.From.IsZero() || r.To.IsZero() {
		r = models.LastDays(c.now(), DefaultWindowDays)
	}
	c.log.Info("fetching all data", logger.String("symbol", string(symbol)))

	res := &models.MarketData{
		Symbol: symbol,
		From:   r.FromString(),
		To:     r.ToString(),
		Errors: map[string]string{},
	}

	type item struct {
		name string
		err  error
	}
	var (
		wg sync.WaitGroup
		mu sync.Mutex // guards res fields written by the workers
	)
	ch := make(chan item, 9)

	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch <- item{name, fn()}
		}()
	}

	run("price", func() error {
		v, err := c.Quote(ctx, symbol)
		mu.Lock()
		res.Quote = v
		mu.Unlock()
		return err
	})
	run("financials", func() error {
		v, err := c.Financials(ctx, symbol)
		mu.Lock()
		res.Financials = v
		mu.Unlock()
		return err
	})
	run("recommendations", func() error {
		v, err := c.Recommendations(ctx, symbol)
		mu.Lock()
		res.Recommendations = v
		mu.Unlock()
		return err
	})
	run("insider_transactions", func() error {
		v, err := c.InsiderTransactions(ctx, symbol, r)
		mu.Lock()
		res.InsiderTransactions = v
		mu.Unlock()
		return err
	})
	run("insider_sentiment", func() error {
		v, err := c.InsiderSentiment(ctx, symbol, r)
		mu.Lock()
		res.InsiderSentiment = v
		mu.Unlock()
		return err
	})
	run("company_profile", func() error {
		v, err := c.Profile(ctx, symbol)
		mu.Lock()
		res.Profile = v
		mu.Unlock()
		return err
	})
	run("company_peers", func() error {
		v, err := c.Peers(ctx, symbol)
		mu.Lock()
		res.Peers = v
		mu.Unlock()
		return err
	})
	run("earnings", func() error {
		v, err := c.Earnings(ctx, symbol, r)
		mu.Lock()
		res.Earnings = v
		mu.Unlock()
		return err
	})
	run("news", func() error {
		v, err := c.News(ctx, symbol, r)
		mu.Lock()
		res.News = v
		mu.Unlock()
		return err
	})

	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			c.log.Warn("fetch failed", logger.String("symbol", string(symbol)),
				logger.String("field", it.name), logger.Error(it.err))
			res.Errors[it.name] = it.err.Error()
		}
	}

	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	res.FetchedAt = c.now().UTC()
	return res, nil
}
