package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mempirate/trawl/backend"
	"github.com/mempirate/trawl/content"
	"github.com/mempirate/trawl/crawler"
	"github.com/mempirate/trawl/scrape"
)

// Config is the file form of every setting the commands accept. Flags given
// on the command line take precedence over it.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Crawl    CrawlConfig     `yaml:"crawl"`
	Markdown content.Options `yaml:"markdown"`
	OpenAI   OpenAIConfig    `yaml:"openai"`
}

type CrawlConfig struct {
	MaxDepth int               `yaml:"max_depth"`
	Delay    time.Duration     `yaml:"delay"`
	Timeout  time.Duration     `yaml:"timeout"`
	Headers  map[string]string `yaml:"headers"`
}

type OpenAIConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
}

func Default() *Config {
	return &Config{
		LogLevel: "info",
		Crawl: CrawlConfig{
			MaxDepth: crawler.DefaultMaxDepth,
			Delay:    crawler.DefaultDelay,
			Timeout:  scrape.DefaultTimeout,
		},
		Markdown: content.DefaultOptions(),
		OpenAI: OpenAIConfig{
			Model:       backend.DefaultModel,
			Temperature: backend.DefaultTemperature,
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults. An empty API key is filled from OPENAI_API_KEY.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(os.ExpandEnv(path))
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config")
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config %s", path)
		}
	}

	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv(backend.APIKeyEnv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Crawl.MaxDepth < 0 {
		return errors.Wrapf(crawler.ErrInvalidDepth, "crawl.max_depth is %d", c.Crawl.MaxDepth)
	}

	if c.Crawl.Delay < 0 {
		return errors.Errorf("crawl.delay must not be negative, got %s", c.Crawl.Delay)
	}

	if c.Crawl.Timeout < 0 {
		return errors.Errorf("crawl.timeout must not be negative, got %s", c.Crawl.Timeout)
	}

	return nil
}

// ParseHeader splits a "Key: Value" header flag.
func ParseHeader(s string) (string, string, error) {
	key, value, ok := strings.Cut(s, ":")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", errors.Errorf("invalid header %q, expected \"Key: Value\"", s)
	}

	return key, strings.TrimSpace(value), nil
}
