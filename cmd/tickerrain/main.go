package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ticker-rain/internal/config"
	"ticker-rain/internal/display"
	"ticker-rain/internal/health"
	"ticker-rain/internal/ingest"
	"ticker-rain/internal/quotes"
	"ticker-rain/internal/rain"
	"ticker-rain/internal/storage"
	"ticker-rain/internal/stream"
	"ticker-rain/internal/tui"
)

// components owns everything that outlives the display loop
type components struct {
	cfg     *config.Manager
	scene   *rain.Scene
	db      *storage.DB
	feed    *quotes.Feed
	checker *health.Checker
	server  *ingest.Server
	stream  *stream.Stream
}

func main() {
	setupConsoleLogger()

	// TICKER_RAIN_* overrides may live in a .env next to the binary
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			log.Fatal().Err(err).Msg("failed to load .env")
		}
	}

	cfg, err := config.NewManager(config.PathFromEnv())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Full-screen from here on: logs go to a file so they don't tear the display
	logFile := setupFileLogger(cfg.Get().Log)
	if logFile != nil {
		defer logFile.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := initComponents(ctx, cfg)
	defer c.shutdown()

	switch cfg.Get().Display.Backend {
	case "tcell":
		err = runTerminal(ctx, c)
	default:
		err = runTUI(ctx, c)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running display: %v\n", err)
		os.Exit(1)
	}
}

func initComponents(ctx context.Context, cfg *config.Manager) *components {
	conf := cfg.Get()
	c := &components{cfg: cfg}

	opts := rain.Options{
		MaxPadding: conf.Scene.MaxPadding,
		Mode:       rain.ParseQueueMode(conf.Scene.QueueMode),
		Background: rain.Style{Tone: rain.ToneBackground},
	}
	if conf.Scene.Seed != 0 {
		opts.Rand = rand.New(rand.NewPCG(conf.Scene.Seed, conf.Scene.Seed^0x9e3779b97f4a7c15))
	}
	c.scene = rain.New(0, 0, opts)

	// Storage is optional: without it the feed simply has no offline fallback
	db, err := storage.NewDB(conf.Storage.SQLitePath)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize database")
	} else {
		c.db = db
		if stored, err := db.GetRecentMessages(100); err == nil && len(stored) > 0 {
			for _, s := range stored {
				c.scene.Push(s.Message)
			}
			log.Info().Int("count", len(stored)).Msg("restored custom messages")
		}
	}

	client := quotes.NewClient(conf.Feed.QuoteURL, conf.Feed.BatchSize, conf.FeedTimeout())
	client.SetUserAgent(conf.Feed.UserAgent)

	var cache quotes.Cache
	if c.db != nil {
		cache = c.db
	}
	c.feed = quotes.NewFeed(client, cache, quotes.FeedConfig{
		Symbols:      conf.Feed.Symbols,
		SymbolsURL:   conf.Feed.SymbolsURL,
		InitialBurst: conf.Feed.InitialBurst,
		Refresh:      conf.FeedRefresh(),
		Shuffle:      conf.Feed.Shuffle,
	})

	c.checker = health.NewChecker(30 * time.Second)
	c.checker.AddHTTP("quotes", conf.Feed.QuoteURL)
	if len(conf.Feed.Symbols) == 0 {
		c.checker.AddHTTP("symbols", conf.Feed.SymbolsURL)
	}

	if conf.Stream.URL != "" {
		st, err := stream.Dial(ctx, conf.Stream.URL, stream.Config{
			PingInterval: conf.PingInterval(),
			BaseBackoff:  conf.ReconnectDelay(),
		}, c.scene)
		if err != nil {
			log.Error().Err(err).Msg("quote stream disabled")
		} else {
			c.stream = st
			c.checker.AddFunc("stream", st.Probe)
		}
	}

	if conf.Ingest.Enabled {
		var store ingest.Store
		if c.db != nil {
			store = c.db
		}
		c.server = ingest.NewServer(ingest.Config{
			Host:               conf.Ingest.ListenHost,
			Port:               conf.Ingest.ListenPort,
			RateLimitPerSecond: conf.Ingest.RateLimitPerSecond,
		}, c.scene.Queue(), store, c.checker)

		go func() {
			if err := c.server.Start(); err != nil {
				log.Error().Err(err).Msg("ingest server failed")
			}
		}()
	}

	c.checker.Start(ctx)

	log.Info().
		Str("mode", opts.Mode.String()).
		Int("maxPadding", opts.MaxPadding).
		Str("backend", conf.Display.Backend).
		Bool("ingest", c.server != nil).
		Bool("stream", c.stream != nil).
		Msg("ticker-rain initialized")

	return c
}

func (c *components) startFeed(ctx context.Context) {
	go func() {
		if err := c.feed.Run(ctx, c.scene); err != nil {
			log.Error().Err(err).Msg("quote feed stopped")
		}
	}()
}

func (c *components) shutdown() {
	if c.server != nil {
		if err := c.server.Shutdown(); err != nil {
			log.Warn().Err(err).Msg("ingest shutdown")
		}
	}
	if c.stream != nil {
		c.stream.Close()
	}
	if c.db != nil {
		c.db.Close()
	}
	log.Info().Msg("goodbye")
}

func runTUI(ctx context.Context, c *components) error {
	conf := c.cfg.Get()
	model := tui.NewModel(c.scene, conf.Display.Theme, conf.TickInterval())
	model.OnTheme = func(name string) {
		// off the event loop: Update triggers SendConfig through the reload hook
		go persistTheme(c.cfg, name)
	}

	p := tea.NewProgram(model, tea.WithAltScreen())

	c.feed.OnStatus(func(s string) { tui.SendStatus(p, s) })
	c.cfg.SetOnChange(func(cfg *config.Config) { tui.SendConfig(p, cfg) })

	feedCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.startFeed(feedCtx)

	go func() {
		<-feedCtx.Done()
		p.Quit()
	}()

	_, err := p.Run()
	return err
}

func runTerminal(ctx context.Context, c *components) error {
	conf := c.cfg.Get()
	theme, _ := display.ThemeByName(conf.Display.Theme)

	term, err := display.OpenTerminal(theme)
	if err != nil {
		return err
	}
	defer term.Close()

	term.OnTheme = func(name string) { go persistTheme(c.cfg, name) }

	w, h := term.Size()
	c.scene.Resize(w, h)

	c.feed.OnStatus(func(s string) {
		if s != "" {
			log.Info().Str("status", s).Msg("feed")
		}
	})
	c.cfg.SetOnChange(func(cfg *config.Config) {
		term.Apply(func(t *display.Terminal, sc *rain.Scene) {
			if th, _ := display.ThemeByName(cfg.Display.Theme); th.Name != t.Theme().Name {
				t.SetTheme(th)
			}
			sc.SetMaxPadding(cfg.Scene.MaxPadding)
			t.SetInterval(cfg.TickInterval())
		})
	})

	feedCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.startFeed(feedCtx)

	return term.Run(ctx, c.scene, conf.TickInterval())
}

func persistTheme(cfg *config.Manager, name string) {
	if err := cfg.Update(func(c *config.Config) { c.Display.Theme = name }); err != nil {
		log.Warn().Err(err).Str("theme", name).Msg("failed to save theme")
	}
}

func setupConsoleLogger() {
	log.Logger = zerolog.New(
		zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"},
	).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "1" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// setupFileLogger redirects logs to the configured file, or discards them
// when the file cannot be opened
func setupFileLogger(lc config.LogConfig) *os.File {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil || lc.Level == "" {
		level = zerolog.InfoLevel
	}
	if os.Getenv("DEBUG") == "1" {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if dir := filepath.Dir(lc.File); dir != "." {
		_ = os.MkdirAll(dir, 0755)
	}
	logFile, err := os.OpenFile(lc.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open log file: %v\n", err)
		log.Logger = zerolog.Nop()
		return nil
	}

	log.Logger = zerolog.New(logFile).With().Timestamp().Logger()
	return logFile
}
