// Package ingest accepts custom rain messages over HTTP
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/rs/zerolog/log"

	"ticker-rain/internal/health"
	"ticker-rain/internal/rain"
)

const (
	maxFieldRunes = 256
	maxBatch      = 100
)

var (
	// ErrEmptyMessage is returned for a message with neither title nor body
	ErrEmptyMessage = errors.New("message has no title or body")
	// ErrTooLong is returned when a title or body exceeds maxFieldRunes
	ErrTooLong = errors.New("message field too long")
)

// Queue is where accepted messages go. *rain.Queue satisfies it.
type Queue interface {
	Push(msgs ...rain.Message)
	Len() int
	Mode() rain.QueueMode
}

// Store records accepted messages so they survive restarts
type Store interface {
	InsertMessage(m rain.Message) error
}

// StatusSource reports component health for /health
type StatusSource interface {
	GetStatuses() []health.Status
}

// MessagePayload is the JSON shape of one message
type MessagePayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tone  string `json:"tone"`
}

// Message validates the payload and converts it
func (p MessagePayload) Message() (rain.Message, error) {
	if p.Title == "" && p.Body == "" {
		return rain.Message{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(p.Title) > maxFieldRunes || utf8.RuneCountInString(p.Body) > maxFieldRunes {
		return rain.Message{}, ErrTooLong
	}
	return rain.Message{Title: p.Title, Body: p.Body, Tone: rain.ParseTone(p.Tone)}, nil
}

// Config for the ingest server
type Config struct {
	Host               string
	Port               int
	RateLimitPerSecond int // <= 0 disables the limiter
}

// Server runs the HTTP server for receiving messages
type Server struct {
	app    *fiber.App
	cfg    Config
	queue  Queue
	store  Store
	health StatusSource
}

// NewServer creates a new ingest server. store and statuses may be nil.
func NewServer(cfg Config, queue Queue, store Store, statuses StatusSource) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           5 * time.Second,
		WriteTimeout:          5 * time.Second,
		BodyLimit:             256 * 1024,
	})

	s := &Server{
		app:    app,
		cfg:    cfg,
		queue:  queue,
		store:  store,
		health: statuses,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.app.Get("/health", s.handleHealth)

	s.app.Get("/queue", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"pending": s.queue.Len(),
			"mode":    s.queue.Mode().String(),
		})
	})

	handlers := []fiber.Handler{}
	if s.cfg.RateLimitPerSecond > 0 {
		handlers = append(handlers, limiter.New(limiter.Config{
			Max:        s.cfg.RateLimitPerSecond,
			Expiration: time.Second,
			LimitReached: func(c *fiber.Ctx) error {
				log.Warn().Str("ip", c.IP()).Msg("ingest rate limit hit")
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limited"})
			},
		}))
	}
	handlers = append(handlers, s.handleMessages)
	s.app.Post("/messages", handlers...)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	var statuses []health.Status
	if s.health != nil {
		statuses = s.health.GetStatuses()
	}
	healthy := true
	for _, st := range statuses {
		healthy = healthy && st.Healthy
	}
	status := "ok"
	if !healthy {
		status = "degraded"
	}
	return c.JSON(fiber.Map{
		"status":     status,
		"time":       time.Now().Unix(),
		"components": statuses,
	})
}

// decodePayloads accepts one object or an array of objects
func decodePayloads(body []byte) ([]MessagePayload, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty body")
	}
	if body[0] == '[' {
		var many []MessagePayload
		if err := json.Unmarshal(body, &many); err != nil {
			return nil, err
		}
		return many, nil
	}
	var one MessagePayload
	if err := json.Unmarshal(body, &one); err != nil {
		return nil, err
	}
	return []MessagePayload{one}, nil
}

func (s *Server) handleMessages(c *fiber.Ctx) error {
	payloads, err := decodePayloads(c.Body())
	if err != nil {
		log.Error().Err(err).Msg("failed to parse message payload")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	if len(payloads) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no messages"})
	}
	if len(payloads) > maxBatch {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": fmt.Sprintf("at most %d messages per request", maxBatch),
		})
	}

	msgs := make([]rain.Message, 0, len(payloads))
	for i, p := range payloads {
		msg, err := p.Message()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("message %d: %v", i, err),
			})
		}
		msgs = append(msgs, msg)
	}

	s.queue.Push(msgs...)

	if s.store != nil {
		for _, m := range msgs {
			if err := s.store.InsertMessage(m); err != nil {
				log.Warn().Err(err).Str("title", m.Title).Msg("failed to store message")
			}
		}
	}

	log.Info().Int("count", len(msgs)).Int("pending", s.queue.Len()).Msg("messages received")

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":   "queued",
		"accepted": len(msgs),
		"pending":  s.queue.Len(),
	})
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("addr", s.Addr()).Msg("starting ingest server")
	return s.app.Listen(s.Addr())
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
