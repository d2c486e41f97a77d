package s0_data

import (
	"context"
	"math"
	"time"

	"github.com/wonny/factorlab/internal/contracts"
	"github.com/wonny/factorlab/pkg/logger"
	"github.com/wonny/factorlab/pkg/redis"
)

// CachedFetcher serves repeated panel fetches from redis
// Cache failures are logged and fall through to the wrapped fetcher.
type CachedFetcher struct {
	next   Fetcher
	cache  *redis.Cache
	ttl    time.Duration
	source string
	logger *logger.Logger
}

// NewCachedFetcher wraps next with the panel cache
// source identifies the configuration of next (e.g. the market cap frequency); fetchers
// that can return different panels for the same request must use different sources.
func NewCachedFetcher(next Fetcher, cache *redis.Cache, ttl time.Duration, log *logger.Logger, source string) *CachedFetcher {
	return &CachedFetcher{next: next, cache: cache, ttl: ttl, source: source, logger: log}
}

// cachedPanel is the JSON form of a panel; NaN is not valid JSON so missing cells are null
type cachedPanel struct {
	Dates  []time.Time  `json:"dates"`
	Stocks []string     `json:"stocks"`
	Values [][]*float64 `json:"values"`
}

func encodePanel(p *contracts.Panel) cachedPanel {
	values := make([][]*float64, p.Len())
	for t, row := range p.Values {
		values[t] = make([]*float64, len(row))
		for s, v := range row {
			if math.IsNaN(v) {
				continue
			}
			v := v
			values[t][s] = &v
		}
	}
	return cachedPanel{Dates: p.Dates, Stocks: p.Stocks, Values: values}
}

func (c cachedPanel) decode() (*contracts.Panel, error) {
	p, err := contracts.NewPanel(c.Dates, c.Stocks)
	if err != nil {
		return nil, err
	}
	for t, row := range c.Values {
		for s, v := range row {
			if v != nil {
				p.Set(t, s, *v)
			}
		}
	}
	return p, nil
}

// Fetch returns the cached panel or fetches and stores it
func (f *CachedFetcher) Fetch(ctx context.Context, stocks []string, from, to time.Time, field string) (*contracts.Panel, error) {
	if !f.cache.Enabled() {
		return f.next.Fetch(ctx, stocks, from, to, field)
	}

	key := redis.PanelKey(f.source, field, from, to, stocks)
	log := f.logger.WithFields(map[string]interface{}{
		"source": f.source,
		"field":  field,
		"stocks": len(stocks),
	})

	var cached cachedPanel
	found, err := f.cache.Get(ctx, key, &cached)
	if err != nil {
		log.WithError(err).Warn("Panel cache read failed")
	}
	if found {
		if p, err := cached.decode(); err == nil {
			log.Debug("Panel cache hit")
			return p, nil
		}
		log.Warn("Cached panel is malformed, refetching")
	}

	panel, err := f.next.Fetch(ctx, stocks, from, to, field)
	if err != nil {
		return nil, err
	}
	if err := f.cache.Set(ctx, key, encodePanel(panel), f.ttl); err != nil {
		log.WithError(err).Warn("Panel cache write failed")
	}
	return panel, nil
}
