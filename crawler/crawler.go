package crawler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/mempirate/trawl/document"
	"github.com/mempirate/trawl/log"
	"github.com/mempirate/trawl/scrape"
)

const (
	DefaultMaxDepth = 2
	DefaultDelay    = 500 * time.Millisecond
)

var ErrInvalidDepth = errors.New("max depth must not be negative")

// Transformer converts a fetched HTML page into markdown and the links to
// follow from it.
type Transformer interface {
	Transform(body []byte, pageURL string) (markdown string, links []string, err error)
}

// Request describes one crawl.
type Request struct {
	BaseURL  string
	MaxDepth int
	Delay    time.Duration
}

// Crawler walks a site breadth first, one page at a time.
type Crawler struct {
	log zerolog.Logger

	fetcher     scrape.Fetcher
	transformer Transformer

	delay time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

type Option func(*Crawler)

// WithDelay sets the politeness delay between two fetches.
func WithDelay(delay time.Duration) Option {
	return func(c *Crawler) {
		if delay >= 0 {
			c.delay = delay
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Crawler) {
		c.log = log
	}
}

func New(fetcher scrape.Fetcher, transformer Transformer, opts ...Option) *Crawler {
	c := &Crawler{
		log:         log.NewLogger("crawler"),
		fetcher:     fetcher,
		transformer: transformer,
		delay:       DefaultDelay,
		sleep:       sleep,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Crawl visits baseURL and the same-domain pages reachable from it within
// maxDepth links. Per-URL failures do not fail the crawl; they are recorded
// in Result.Failures. Errors are returned only for invalid input or when ctx
// is done.
func (c *Crawler) Crawl(ctx context.Context, baseURL string, maxDepth int, format Format) (*Result, error) {
	return c.Run(ctx, Request{BaseURL: baseURL, MaxDepth: maxDepth, Delay: c.delay}, format)
}

// Run executes a crawl request.
func (c *Crawler) Run(ctx context.Context, req Request, format Format) (*Result, error) {
	if err := scrape.ValidateURL(req.BaseURL); err != nil {
		return nil, err
	}

	if req.MaxDepth < 0 {
		return nil, errors.Wrapf(ErrInvalidDepth, "got %d", req.MaxDepth)
	}

	if format != FormatMarkdown && format != FormatStructured {
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", format)
	}

	log := c.log.With().Str("crawl_id", xid.New().String()).Logger()
	log.Info().Str("url", req.BaseURL).Int("max_depth", req.MaxDepth).Str("format", string(format)).Msg("Starting crawl")

	start := time.Now()

	q := newFrontier(entry{url: req.BaseURL, depth: 0})
	visited := make(map[string]struct{})
	result := &Result{Format: format}

	var pages []*document.Page

	for q.len() > 0 {
		e, _ := q.pop()

		if _, ok := visited[e.url]; ok || e.depth > req.MaxDepth {
			continue
		}

		// Marked before fetching, so a URL is fetched at most once per crawl
		// even when it fails.
		visited[e.url] = struct{}{}

		if len(result.Visited) > 0 {
			if err := c.sleep(ctx, req.Delay); err != nil {
				return nil, errors.Wrap(err, "crawl interrupted")
			}
		}

		result.Visited = append(result.Visited, e.url)

		page, links, err := c.visit(ctx, e)
		if err != nil {
			if errors.Is(err, scrape.ErrNotHTML) {
				log.Debug().Str("url", e.url).Int("depth", e.depth).Msg("Skipping non-HTML content")
				continue
			}

			log.Warn().Err(err).Str("url", e.url).Int("depth", e.depth).Msg("Failed to crawl page")
			result.Failures = append(result.Failures, Failure{URL: e.url, Depth: e.depth, Err: err})
			continue
		}

		pages = append(pages, page)
		result.Collected = append(result.Collected, e.url)

		log.Info().Str("url", e.url).Int("depth", e.depth).Int("links", len(links)).Msg("Page crawled")

		if e.depth < req.MaxDepth {
			for _, link := range links {
				q.push(entry{url: link, depth: e.depth + 1})
			}
		}
	}

	result.Markdown, result.Pages = assemble(format, pages)

	log.Info().
		Int("visited", len(result.Visited)).
		Int("pages", len(pages)).
		Int("failures", len(result.Failures)).
		Dur("duration", time.Since(start)).
		Msg("Crawl finished")

	return result, nil
}

// visit fetches and transforms a single entry.
func (c *Crawler) visit(ctx context.Context, e entry) (*document.Page, []string, error) {
	resp, err := c.fetcher.Fetch(ctx, e.url)
	if err != nil {
		return nil, nil, err
	}

	markdown, links, err := c.transformer.Transform(resp.Body, e.url)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to transform %s", e.url)
	}

	return document.NewPage(e.url, e.depth, markdown), links, nil
}

// sleep blocks for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
