package quotes

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"ticker-rain/internal/rain"
)

// Target receives feed output. *rain.Scene satisfies it.
type Target interface {
	Push(msgs ...rain.Message)
	Upsert(msgs ...rain.Message)
}

// Cache persists quotes between runs. *storage.DB satisfies it.
type Cache interface {
	UpsertQuotes(qs []Quote) error
	GetQuotes(limit int) ([]Quote, error)
}

// FeedConfig controls what the feed loads and how often
type FeedConfig struct {
	Symbols      []string // fixed list; empty means scrape SymbolsURL
	SymbolsURL   string
	InitialBurst int
	Refresh      time.Duration // 0 = load once
	Shuffle      bool
}

// Status lines shown while the feed starts up
const (
	StatusSymbols  = "Downloading S&P500 ticker symbols..."
	StatusPrices   = "Downloading stock prices..."
	StatusShuffle  = "Shuffling ticker symbols..."
	StatusFallback = "Network unavailable, using cached quotes..."
)

// Feed loads quotes into the rain: a small burst first so the screen fills
// quickly, then the rest, then periodic refreshes
type Feed struct {
	client *Client
	cache  Cache
	cfg    FeedConfig
	rng    *rand.Rand
	status func(string)

	symbols []string
}

// NewFeed creates a feed. cache may be nil.
func NewFeed(client *Client, cache Cache, cfg FeedConfig) *Feed {
	seed := uint64(time.Now().UnixNano())
	return &Feed{
		client: client,
		cache:  cache,
		cfg:    cfg,
		rng:    rand.New(rand.NewPCG(seed, seed>>3|1)),
		status: func(string) {},
	}
}

// SetRand replaces the shuffle source
func (f *Feed) SetRand(r *rand.Rand) { f.rng = r }

// OnStatus registers a progress callback. An empty string clears the status.
func (f *Feed) OnStatus(fn func(string)) {
	if fn != nil {
		f.status = fn
	}
}

// Run performs the initial load and then refreshes until ctx is done.
// It only returns an error when the initial load produced nothing and no
// refresh is scheduled.
func (f *Feed) Run(ctx context.Context, out Target) error {
	defer f.status("")

	n, err := f.load(ctx, out)
	f.status("")
	if err != nil {
		log.Warn().Err(err).Msg("initial quote load failed")
	}
	if n == 0 && f.cfg.Refresh <= 0 {
		if err == nil {
			err = ErrNoQuotes
		}
		return err
	}

	if f.cfg.Refresh <= 0 {
		return nil
	}

	ticker := time.NewTicker(f.cfg.Refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n == 0 {
				// nothing made it on screen yet, retry the full startup
				n, err = f.load(ctx, out)
				f.status("")
				if err != nil {
					log.Warn().Err(err).Msg("quote load retry failed")
				}
				continue
			}
			if err := f.refresh(ctx, out); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn().Err(err).Msg("quote refresh failed")
			}
		}
	}
}

// load resolves symbols, pushes the initial burst, then the remainder.
// It returns the number of messages pushed.
func (f *Feed) load(ctx context.Context, out Target) (int, error) {
	symbols, err := f.resolveSymbols(ctx)
	if err != nil {
		return f.fallback(out), err
	}

	if f.cfg.Shuffle {
		f.status(StatusShuffle)
		f.rng.Shuffle(len(symbols), func(i, j int) { symbols[i], symbols[j] = symbols[j], symbols[i] })
	}
	f.symbols = symbols

	f.status(StatusPrices)
	burst := min(max(f.cfg.InitialBurst, 0), len(symbols))
	pushed := 0

	if burst > 0 {
		qs, err := f.fetch(ctx, symbols[:burst])
		if err != nil {
			return f.fallback(out), err
		}
		out.Push(Messages(qs)...)
		pushed += len(qs)
		log.Info().Int("count", len(qs)).Msg("initial quotes pushed")
	}
	f.status("")

	for _, batch := range Batches(symbols[burst:], f.client.BatchSize()) {
		qs, err := f.fetch(ctx, batch)
		if err != nil {
			if pushed == 0 {
				return f.fallback(out), err
			}
			return pushed, err
		}
		out.Push(Messages(qs)...)
		pushed += len(qs)
	}

	log.Info().Int("symbols", len(symbols)).Int("quotes", pushed).Msg("quote feed loaded")
	return pushed, nil
}

// refresh re-fetches every known symbol and updates queued messages in place
func (f *Feed) refresh(ctx context.Context, out Target) error {
	updated := 0
	for _, batch := range Batches(f.symbols, f.client.BatchSize()) {
		qs, err := f.fetch(ctx, batch)
		if err != nil {
			return err
		}
		out.Upsert(Messages(qs)...)
		updated += len(qs)
	}
	log.Debug().Int("quotes", updated).Msg("quotes refreshed")
	return nil
}

func (f *Feed) resolveSymbols(ctx context.Context) ([]string, error) {
	if len(f.cfg.Symbols) > 0 {
		return append([]string(nil), f.cfg.Symbols...), nil
	}
	f.status(StatusSymbols)
	symbols, err := f.client.ScrapeSymbols(ctx, f.cfg.SymbolsURL)
	if err != nil {
		return nil, fmt.Errorf("scrape symbols: %w", err)
	}
	log.Info().Int("count", len(symbols)).Msg("symbols scraped")
	return symbols, nil
}

// fetch gets one batch and writes it through to the cache
func (f *Feed) fetch(ctx context.Context, symbols []string) ([]Quote, error) {
	qs, err := f.client.FetchBatch(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("fetch quotes: %w", err)
	}
	if f.cache != nil && len(qs) > 0 {
		if err := f.cache.UpsertQuotes(qs); err != nil {
			log.Warn().Err(err).Msg("failed to cache quotes")
		}
	}
	return qs, nil
}

// fallback pushes cached quotes when the network is unavailable
func (f *Feed) fallback(out Target) int {
	if f.cache == nil {
		return 0
	}
	qs, err := f.cache.GetQuotes(0)
	if err != nil {
		log.Error().Err(err).Msg("failed to read quote cache")
		return 0
	}
	if len(qs) == 0 {
		return 0
	}

	f.status(StatusFallback)
	if f.cfg.Shuffle {
		f.rng.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
	}
	if len(f.symbols) == 0 {
		for _, q := range qs {
			f.symbols = append(f.symbols, q.Symbol)
		}
	}
	out.Push(Messages(qs)...)
	log.Info().Int("count", len(qs)).Msg("pushed cached quotes")
	return len(qs)
}
