package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ticker-rain/internal/config"
	"ticker-rain/internal/quotes"
)

var (
	configPath string
	scrapeOnly bool
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "quotecheck [SYMBOL...]",
	Short: "Fetch quotes once and print them the way the rain colours them",
	Long: `Fetch quotes once and print each line green, red or plain by direction.

Symbols come from the arguments, then from feed.symbols in the config,
then from the scraped S&P 500 list. Dotted symbols like brk.b are
rewritten to the dashed form the quote endpoint expects.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.PathFromEnv(), "config file path")
	rootCmd.Flags().BoolVar(&scrapeOnly, "scrape-only", false, "list the scraped symbols without fetching prices")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 0, "overall deadline (0 = none)")
}

func main() {
	log.Logger = zerolog.New(
		zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"},
	).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if os.Getenv("DEBUG") == "1" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewManager(configPath)
	if err != nil {
		color.Red("❌ Config error: %v", err)
		return err
	}
	conf := cfg.Get()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	client := quotes.NewClient(conf.Feed.QuoteURL, conf.Feed.BatchSize, conf.FeedTimeout())
	client.SetUserAgent(conf.Feed.UserAgent)

	symbols := make([]string, 0, len(args))
	for _, a := range args {
		symbols = append(symbols, strings.ReplaceAll(strings.ToUpper(a), ".", "-"))
	}
	if len(symbols) == 0 && !scrapeOnly {
		symbols = conf.Feed.Symbols
	}
	if len(symbols) == 0 {
		fmt.Println(quotes.StatusSymbols)
		symbols, err = client.ScrapeSymbols(ctx, conf.Feed.SymbolsURL)
		if err != nil {
			color.Red("❌ Symbol scrape failed: %v", err)
			return err
		}
		fmt.Printf("Found %d symbols\n", len(symbols))
	}

	if scrapeOnly {
		fmt.Println(strings.Join(symbols, " "))
		return nil
	}

	fmt.Println("----------------------------------------")
	fmt.Printf("📈 FETCHING %d QUOTES\n", len(symbols))
	fmt.Println("----------------------------------------")

	qs, err := client.Fetch(ctx, symbols)
	up := color.New(color.FgGreen)
	down := color.New(color.FgRed)
	for _, q := range qs {
		line := fmt.Sprintf("%-8s %10.2f %s", q.Symbol, q.Price, q.Message().Body)
		switch {
		case q.Change > 0:
			up.Println(line)
		case q.Change < 0:
			down.Println(line)
		default:
			fmt.Println(line)
		}
	}

	fmt.Println("----------------------------------------")
	if err != nil {
		var httpErr *quotes.HTTPError
		switch {
		case errors.As(err, &httpErr):
			color.Red("❌ Upstream returned %d: %s", httpErr.StatusCode, httpErr.Body)
		case errors.Is(err, quotes.ErrNoQuotes):
			color.Yellow("⚠️  No quotes returned")
		default:
			color.Red("❌ Fetch error: %v", err)
		}
		return err
	}
	color.Green("✅ %d of %d symbols quoted", len(qs), len(symbols))
	return nil
}
