package scrape

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/mempirate/trawl/log"
	"github.com/mempirate/trawl/util"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	DefaultTimeout   = 10 * time.Second
	// MaxBodySize caps how much of a response body is read.
	MaxBodySize = int64(10 * util.MiB)
)

// Response is the raw result of fetching one URL.
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher retrieves the raw content of a single URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// HTTPFetcher is a Fetcher that performs exactly one GET request per call.
type HTTPFetcher struct {
	log     zerolog.Logger
	client  *http.Client
	headers map[string]string
}

type Option func(*HTTPFetcher)

// WithHeaders sets the headers sent with every request. An empty map keeps
// the default User-Agent header.
func WithHeaders(headers map[string]string) Option {
	return func(f *HTTPFetcher) {
		if len(headers) > 0 {
			f.headers = headers
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(f *HTTPFetcher) {
		if timeout > 0 {
			f.client.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying client. Its timeout is kept as is.
func WithHTTPClient(client *http.Client) Option {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(f *HTTPFetcher) {
		f.log = log
	}
}

func NewHTTPFetcher(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		log:     log.NewLogger("fetcher"),
		client:  &http.Client{Timeout: DefaultTimeout},
		headers: map[string]string{"User-Agent": DefaultUserAgent},
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// ValidateURL checks that url carries an explicit http or https scheme.
func ValidateURL(url string) error {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return errors.Wrapf(ErrInvalidURL, "%q", url)
	}
	return nil
}

// Fetch downloads url and classifies the response by content type. For
// non-HTML responses the returned error matches ErrNotHTML and the response
// is still returned, with an empty body.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	if err := ValidateURL(url); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidURL, "%q: %v", url, err)
	}

	for key, value := range f.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &ConnectionError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ConnectionError{URL: url, StatusCode: resp.StatusCode}
	}

	ct := resp.Header.Get("Content-Type")
	response := &Response{
		URL:         url,
		StatusCode:  resp.StatusCode,
		ContentType: ct,
	}

	if !IsHTML(ct) {
		return response, errors.Wrapf(ErrNotHTML, "%s (%s)", url, ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, &ConnectionError{URL: url, Err: errors.Wrap(err, "failed to read body")}
	}

	response.Body = body

	f.log.Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Str("content_type", ct).
		Str("size", util.FormatBytes(int64(len(body)))).
		Dur("duration", time.Since(start)).
		Msg("Page fetched")

	return response, nil
}

// IsHTML reports whether a Content-Type header value denotes an HTML page.
func IsHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "text/html")
	}
	return mediaType == "text/html"
}
