package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/factorlab/internal/contracts"
)

// Router dispatches each field to the fetcher that owns it
type Router struct {
	routes map[string]Fetcher
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{routes: make(map[string]Fetcher)}
}

// Handle registers f for the given fields
func (r *Router) Handle(f Fetcher, fields ...string) *Router {
	for _, field := range fields {
		r.routes[field] = f
	}
	return r
}

// Fetch implements Fetcher
func (r *Router) Fetch(ctx context.Context, stocks []string, from, to time.Time, field string) (*contracts.Panel, error) {
	f, ok := r.routes[field]
	if !ok {
		return nil, fmt.Errorf("%w: no source for field %q", contracts.ErrInvalidConfig, field)
	}
	return f.Fetch(ctx, stocks, from, to, field)
}

// NewDefaultRouter wires the postgres repositories: daily prices, market cap
// (previous period-end at capFreq) and fundamentals
func NewDefaultRouter(db Querier, capFreq contracts.Frequency) (*Router, error) {
	caps, err := NewMarketCapRepository(db, capFreq)
	if err != nil {
		return nil, err
	}

	r := NewRouter().
		Handle(NewPanelRepository(db),
			FieldOpen, FieldHigh, FieldLow, FieldClose, FieldVolume,
			FieldAmount, FieldPrevClose, FieldPctChange).
		Handle(caps, FieldMarketCap)

	fundamentals := NewFundamentalRepository(db)
	for field := range fundamentalFields {
		r.Handle(fundamentals, field)
	}
	return r, nil
}
