// Package stream keeps a websocket connection to a live quote source and
// feeds every update into the rain.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"ticker-rain/internal/quotes"
	"ticker-rain/internal/rain"
)

// ErrNotConnected is reported by Probe while the stream is reconnecting
var ErrNotConnected = errors.New("stream not connected")

// Target receives decoded updates. *rain.Scene satisfies it.
type Target interface {
	Upsert(msgs ...rain.Message)
}

// Config tweaks behaviour; zero-value is sane
type Config struct {
	PingInterval time.Duration // 0 = no pings
	BaseBackoff  time.Duration // default 500ms
	MaxBackoff   time.Duration // default 30s
	Header       http.Header
}

// Stream is a self-reconnecting quote subscription
type Stream struct {
	endpoint  string
	cfg       Config
	out       Target
	dialer    *websocket.Dialer
	connected atomic.Bool
	updates   atomic.Int64
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Dial validates the endpoint and starts the background connection loop.
// The stream runs until ctx is cancelled or Close is called.
func Dial(ctx context.Context, endpoint string, cfg Config, out Target) (*Stream, error) {
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return nil, fmt.Errorf("invalid websocket endpoint %q", endpoint)
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		endpoint: endpoint,
		cfg:      cfg,
		out:      out,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go s.run(ctx)
	return s, nil
}

// Connected reports whether a connection is currently open
func (s *Stream) Connected() bool { return s.connected.Load() }

// Updates counts the quotes received so far
func (s *Stream) Updates() int64 { return s.updates.Load() }

// Probe adapts Connected for the health checker
func (s *Stream) Probe(context.Context) error {
	if !s.Connected() {
		return ErrNotConnected
	}
	return nil
}

// Close stops the stream and waits for the connection loop to exit
func (s *Stream) Close() {
	s.closeOnce.Do(s.cancel)
	<-s.done
}

func (s *Stream) run(ctx context.Context) {
	defer close(s.done)

	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := s.dialer.DialContext(ctx, s.endpoint, s.cfg.Header)
		if err != nil {
			delay := backoff(attempt, s.cfg.BaseBackoff, s.cfg.MaxBackoff)
			log.Warn().Err(err).Dur("retryIn", delay).Str("url", s.endpoint).Msg("stream dial failed")
			attempt++
			if !sleep(ctx, delay) {
				return
			}
			continue
		}
		attempt = 0

		s.connected.Store(true)
		log.Info().Str("url", s.endpoint).Msg("stream connected")

		err = s.readLoop(ctx, conn)
		s.connected.Store(false)

		if ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Msg("stream disconnected, reconnecting")
		if !sleep(ctx, backoff(0, s.cfg.BaseBackoff, s.cfg.MaxBackoff)) {
			return
		}
	}
}

// readLoop blocks, pushing decoded frames until the connection drops
func (s *Stream) readLoop(ctx context.Context, conn *websocket.Conn) error {
	connCtx, connCancel := context.WithCancel(ctx)
	defer connCancel()
	defer conn.Close()

	go func() {
		<-connCtx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	if s.cfg.PingInterval > 0 {
		wait := 2 * s.cfg.PingInterval
		_ = conn.SetReadDeadline(time.Now().Add(wait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wait))
		})
		go pingLoop(connCtx, conn, s.cfg.PingInterval)
	}

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if s.cfg.PingInterval > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingInterval))
		}

		qs, err := DecodeFrame(frame)
		if err != nil {
			log.Debug().Err(err).Int("bytes", len(frame)).Msg("skipping undecodable frame")
			continue
		}
		msgs := quotes.Messages(qs)
		if len(msgs) == 0 {
			continue
		}
		s.out.Upsert(msgs...)
		s.updates.Add(int64(len(msgs)))
	}
}

// pingLoop sends a ping every interval until ctx is done
func pingLoop(ctx context.Context, conn *websocket.Conn, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(interval)); err != nil {
				log.Debug().Err(err).Msg("stream ping failed")
				return
			}
		}
	}
}

// DecodeFrame accepts one quote object or an array of quote objects
func DecodeFrame(frame []byte) ([]quotes.Quote, error) {
	frame = bytes.TrimSpace(frame)
	if len(frame) == 0 {
		return nil, errors.New("empty frame")
	}
	if frame[0] == '[' {
		var qs []quotes.Quote
		if err := json.Unmarshal(frame, &qs); err != nil {
			return nil, fmt.Errorf("decode quote array: %w", err)
		}
		return qs, nil
	}
	var q quotes.Quote
	if err := json.Unmarshal(frame, &q); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	return []quotes.Quote{q}, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
