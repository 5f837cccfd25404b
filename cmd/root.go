package cmd

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mempirate/trawl/config"
	"github.com/mempirate/trawl/content"
	"github.com/mempirate/trawl/crawler"
	"github.com/mempirate/trawl/log"
	"github.com/mempirate/trawl/scrape"
)

const appName = "trawl"

// app carries the settings shared by every command.
type app struct {
	log zerolog.Logger

	configPath string
	logLevel   string
	timeout    time.Duration
	delay      time.Duration
	headers    []string

	cfg *config.Config
}

func NewRootCmd() *cobra.Command {
	a := &app{log: log.NewLogger("cmd")}

	root := &cobra.Command{
		Use:           appName,
		Short:         "Crawl a site into markdown and extract structured data from it",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.DurationVar(&a.timeout, "timeout", scrape.DefaultTimeout, "Timeout of a single page request")
	flags.DurationVar(&a.delay, "delay", crawler.DefaultDelay, "Pause between two page requests")
	flags.StringArrayVar(&a.headers, "header", nil, `Request header as "Key: Value", repeatable`)

	root.AddCommand(newCrawlCmd(a), newExtractCmd(a))

	return root
}

// init loads the config file and lays the flags that were set over it.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("timeout") {
		cfg.Crawl.Timeout = a.timeout
	}
	if flags.Changed("delay") {
		cfg.Crawl.Delay = a.delay
	}

	for _, h := range a.headers {
		key, value, err := config.ParseHeader(h)
		if err != nil {
			return err
		}

		if cfg.Crawl.Headers == nil {
			cfg.Crawl.Headers = make(map[string]string)
		}
		cfg.Crawl.Headers[key] = value
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := log.SetLevel(cfg.LogLevel); err != nil {
		return err
	}

	a.cfg = cfg
	a.log.Debug().Str("config", a.configPath).Dur("delay", cfg.Crawl.Delay).Dur("timeout", cfg.Crawl.Timeout).Msg("Configuration loaded")

	return nil
}

func (a *app) newCrawler() *crawler.Crawler {
	fetcher := scrape.NewHTTPFetcher(
		scrape.WithHeaders(a.cfg.Crawl.Headers),
		scrape.WithTimeout(a.cfg.Crawl.Timeout),
	)

	return crawler.New(fetcher, content.NewTransformer(a.cfg.Markdown), crawler.WithDelay(a.cfg.Crawl.Delay))
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		l := log.NewLogger("main")
		l.Error().Err(err).Msg("Command failed")
		stop()
		os.Exit(1)
	}
}
