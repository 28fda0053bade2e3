package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
)

// HTTPClientPool provides HTTP/2 connection pooling
type HTTPClientPool struct {
	clients []*http.Client
	mu      sync.Mutex
	idx     uint32
}

// NewHTTPClientPool creates an HTTP/2 capable client pool
func NewHTTPClientPool(size int, timeout time.Duration) *HTTPClientPool {
	if size <= 0 {
		size = 1
	}
	pool := &HTTPClientPool{
		clients: make([]*http.Client, size),
	}

	for i := 0; i < size; i++ {
		transport := &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}

		if err := http2.ConfigureTransport(transport); err != nil {
			log.Warn().Err(err).Msg("http2 not available, using HTTP/1.1")
		}

		pool.clients[i] = &http.Client{
			Transport: transport,
			Timeout:   timeout,
		}
	}

	log.Debug().Int("poolSize", size).Msg("HTTP client pool initialized")
	return pool
}

// Get returns the next client round-robin
func (p *HTTPClientPool) Get() *http.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	client := p.clients[p.idx%uint32(len(p.clients))]
	p.idx++
	return client
}

// Client fetches quotes from a Yahoo-style quote endpoint
type Client struct {
	quoteURL   string
	batchSize  int
	userAgent  string
	clientPool *HTTPClientPool
}

// NewClient creates a quote client
func NewClient(quoteURL string, batchSize int, timeout time.Duration) *Client {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Client{
		quoteURL:   quoteURL,
		batchSize:  batchSize,
		userAgent:  "ticker-rain/1.0",
		clientPool: NewHTTPClientPool(2, timeout),
	}
}

// SetUserAgent overrides the User-Agent header sent upstream
func (c *Client) SetUserAgent(ua string) {
	if ua != "" {
		c.userAgent = ua
	}
}

// BatchSize is the number of symbols sent per request
func (c *Client) BatchSize() int { return c.batchSize }

type quoteEnvelope struct {
	QuoteResponse struct {
		Result []Quote          `json:"result"`
		Error  *json.RawMessage `json:"error"`
	} `json:"quoteResponse"`
}

// Fetch retrieves quotes for every symbol, batchSize symbols per request.
// On error it returns the quotes gathered so far along with the error.
func (c *Client) Fetch(ctx context.Context, symbols []string) ([]Quote, error) {
	var out []Quote
	for _, batch := range Batches(symbols, c.batchSize) {
		qs, err := c.FetchBatch(ctx, batch)
		if err != nil {
			return out, err
		}
		out = append(out, qs...)
	}
	if len(out) == 0 {
		return nil, ErrNoQuotes
	}
	return out, nil
}

// FetchBatch performs one request for the given symbols
func (c *Client) FetchBatch(ctx context.Context, symbols []string) ([]Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	start := time.Now()

	u, err := url.Parse(c.quoteURL)
	if err != nil {
		return nil, fmt.Errorf("parse quote url: %w", err)
	}
	q := u.Query()
	q.Set("symbols", strings.Join(symbols, ","))
	u.RawQuery = q.Encode()

	var env quoteEnvelope
	if err := c.getJSON(ctx, u.String(), &env); err != nil {
		return nil, err
	}

	log.Debug().
		Dur("latency", time.Since(start)).
		Int("requested", len(symbols)).
		Int("received", len(env.QuoteResponse.Result)).
		Msg("quote batch")

	return env.QuoteResponse.Result, nil
}

func (c *Client) get(ctx context.Context, rawURL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.clientPool.Get().Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	resp, err := c.get(ctx, rawURL, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode quotes: %w", err)
	}
	return nil
}

// Batches splits symbols into chunks of at most size
func Batches(symbols []string, size int) [][]string {
	if size <= 0 {
		size = len(symbols)
	}
	var out [][]string
	for len(symbols) > 0 {
		n := min(size, len(symbols))
		out = append(out, symbols[:n])
		symbols = symbols[n:]
	}
	return out
}
