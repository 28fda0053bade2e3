// Package quotes fetches stock quotes and S&P 500 symbols and turns them into
// rain messages.
package quotes

import (
	"errors"
	"fmt"

	"ticker-rain/internal/rain"
)

var (
	// ErrNoQuotes is returned when a fetch yields nothing usable
	ErrNoQuotes = errors.New("no quotes returned")
	// ErrNoSymbols is returned when the symbol page has no constituents table rows
	ErrNoSymbols = errors.New("no symbols found")
)

// HTTPError is a non-2xx upstream response
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}

// Quote is one symbol's latest market data
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"regularMarketPrice"`
	Change        float64 `json:"regularMarketChange"`
	ChangePercent float64 `json:"regularMarketChangePercent"`
}

// Tone colours a quote by the sign of its change
func (q Quote) Tone() rain.Tone {
	switch {
	case q.Change > 0:
		return rain.TonePositive
	case q.Change < 0:
		return rain.ToneNegative
	default:
		return rain.ToneNeutral
	}
}

// Message renders the quote as "SYMBOL +1.23 +0.45%"
func (q Quote) Message() rain.Message {
	return rain.Message{
		Title: q.Symbol,
		Body:  fmt.Sprintf(" %+.2f %+.2f%%", q.Change, q.ChangePercent),
		Tone:  q.Tone(),
	}
}

// Messages converts a batch of quotes
func Messages(qs []Quote) []rain.Message {
	out := make([]rain.Message, 0, len(qs))
	for _, q := range qs {
		if q.Symbol == "" {
			continue
		}
		out = append(out, q.Message())
	}
	return out
}
