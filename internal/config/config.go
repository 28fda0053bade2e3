package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// DefaultPath is used when TICKER_RAIN_CONFIG is unset
const DefaultPath = "config/config.yaml"

// Config holds all ticker-rain configuration
type Config struct {
	Scene   SceneConfig   `mapstructure:"scene"`
	Display DisplayConfig `mapstructure:"display"`
	Feed    FeedConfig    `mapstructure:"feed"`
	Stream  StreamConfig  `mapstructure:"stream"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
}

type SceneConfig struct {
	MaxPadding int    `mapstructure:"max_padding"`
	QueueMode  string `mapstructure:"queue_mode"` // closed | open
	TickMs     int    `mapstructure:"tick_ms"`
	Seed       uint64 `mapstructure:"seed"` // 0 = seed from clock
}

type DisplayConfig struct {
	Backend string `mapstructure:"backend"` // bubbletea | tcell
	Theme   string `mapstructure:"theme"`
}

type FeedConfig struct {
	QuoteURL       string   `mapstructure:"quote_url"`
	SymbolsURL     string   `mapstructure:"symbols_url"`
	Symbols        []string `mapstructure:"symbols"` // empty = scrape SymbolsURL
	BatchSize      int      `mapstructure:"batch_size"`
	InitialBurst   int      `mapstructure:"initial_burst"`
	RefreshSeconds int      `mapstructure:"refresh_seconds"` // 0 = fetch once
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	Shuffle        bool     `mapstructure:"shuffle"`
	UserAgent      string   `mapstructure:"user_agent"`
}

type StreamConfig struct {
	URL              string `mapstructure:"url"` // empty = disabled
	ReconnectDelayMs int    `mapstructure:"reconnect_delay_ms"`
	PingIntervalMs   int    `mapstructure:"ping_interval_ms"`
}

type IngestConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	ListenHost         string `mapstructure:"listen_host"`
	ListenPort         int    `mapstructure:"listen_port"`
	RateLimitPerSecond int    `mapstructure:"rate_limit_per_second"`
}

type StorageConfig struct {
	SQLitePath string `mapstructure:"sqlite_path"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// Manager handles config loading and hot-reload
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	viper    *viper.Viper
	onChange func(*Config)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scene.max_padding", 15)
	v.SetDefault("scene.queue_mode", "closed")
	v.SetDefault("scene.tick_ms", 100)
	v.SetDefault("scene.seed", 0)
	v.SetDefault("display.backend", "bubbletea")
	v.SetDefault("display.theme", "Matrix")
	v.SetDefault("feed.quote_url", "https://query1.finance.yahoo.com/v7/finance/quote")
	v.SetDefault("feed.symbols_url", "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies")
	v.SetDefault("feed.symbols", []string{})
	v.SetDefault("feed.batch_size", 50)
	v.SetDefault("feed.initial_burst", 20)
	v.SetDefault("feed.refresh_seconds", 300)
	v.SetDefault("feed.timeout_seconds", 10)
	v.SetDefault("feed.shuffle", true)
	v.SetDefault("feed.user_agent", "ticker-rain/1.0")
	v.SetDefault("stream.url", "")
	v.SetDefault("stream.reconnect_delay_ms", 1000)
	v.SetDefault("stream.ping_interval_ms", 15000)
	v.SetDefault("ingest.enabled", false)
	v.SetDefault("ingest.listen_host", "127.0.0.1")
	v.SetDefault("ingest.listen_port", 8787)
	v.SetDefault("ingest.rate_limit_per_second", 20)
	v.SetDefault("storage.sqlite_path", "./data/quotes.db")
	v.SetDefault("log.file", "./data/tickerrain.log")
	v.SetDefault("log.level", "info")
}

// PathFromEnv returns TICKER_RAIN_CONFIG or DefaultPath
func PathFromEnv() string {
	if p := os.Getenv("TICKER_RAIN_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// NewManager creates a new config manager. A missing file is not an error:
// defaults (and TICKER_RAIN_* env overrides) apply and nothing is watched.
func NewManager(configPath string) (*Manager, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TICKER_RAIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	exists := true
	if _, err := os.Stat(configPath); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config: %w", err)
		}
		exists = false
		log.Warn().Str("file", configPath).Msg("config file not found, using defaults")
	}

	if exists {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()

	m := &Manager{
		config: &cfg,
		viper:  v,
	}

	if exists {
		v.OnConfigChange(func(e fsnotify.Event) {
			log.Info().Str("file", e.Name).Msg("config file changed, reloading")
			m.reload()
		})
		v.WatchConfig()
	}

	return m, nil
}

// normalize repairs values that would break the scene or the feed
func (c *Config) normalize() {
	if c.Scene.MaxPadding < 0 {
		c.Scene.MaxPadding = 0
	}
	if c.Scene.TickMs <= 0 {
		c.Scene.TickMs = 100
	}
	if c.Feed.BatchSize <= 0 {
		c.Feed.BatchSize = 50
	}
	if c.Feed.InitialBurst < 0 {
		c.Feed.InitialBurst = 0
	}
	if c.Feed.TimeoutSeconds <= 0 {
		c.Feed.TimeoutSeconds = 10
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "./data/quotes.db"
	}
	for i, s := range c.Feed.Symbols {
		c.Feed.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}
}

// Get returns the current config (thread-safe)
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetScene returns scene config (read by the render loop on every reload)
func (m *Manager) GetScene() SceneConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Scene
}

// SetOnChange registers a callback for config changes
func (m *Manager) SetOnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Update modifies the runtime-tunable values and saves them to file
func (m *Manager) Update(fn func(*Config)) error {
	m.mu.Lock()

	next := *m.config
	fn(&next)
	next.normalize()
	m.config = &next

	m.viper.Set("scene.max_padding", next.Scene.MaxPadding)
	m.viper.Set("scene.tick_ms", next.Scene.TickMs)
	m.viper.Set("display.theme", next.Display.Theme)

	err := m.viper.WriteConfig()
	onChange := m.onChange
	m.mu.Unlock()

	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if onChange != nil {
		onChange(&next)
	}
	return nil
}

func (m *Manager) reload() {
	var cfg Config

	m.mu.Lock()
	if err := m.viper.Unmarshal(&cfg); err != nil {
		m.mu.Unlock()
		log.Error().Err(err).Msg("failed to unmarshal config on reload")
		return
	}
	cfg.normalize()
	m.config = &cfg
	onChange := m.onChange
	m.mu.Unlock()

	// hooks run unlocked so they may call back into the manager
	if onChange != nil {
		onChange(&cfg)
	}
}

// TickInterval returns the frame cadence as duration
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Scene.TickMs) * time.Millisecond
}

// FeedRefresh returns the quote refresh interval, zero when disabled
func (c *Config) FeedRefresh() time.Duration {
	return time.Duration(max(c.Feed.RefreshSeconds, 0)) * time.Second
}

// FeedTimeout returns the per-request HTTP timeout
func (c *Config) FeedTimeout() time.Duration {
	return time.Duration(c.Feed.TimeoutSeconds) * time.Second
}

// ListenAddr returns host:port for the ingest server
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Ingest.ListenHost, c.Ingest.ListenPort)
}

// ReconnectDelay returns the stream's base reconnect delay
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Stream.ReconnectDelayMs) * time.Millisecond
}

// PingInterval returns the stream keepalive interval
func (c *Config) PingInterval() time.Duration {
	return time.Duration(c.Stream.PingIntervalMs) * time.Millisecond
}
