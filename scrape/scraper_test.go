package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(opts ...Option) *HTTPFetcher {
	return NewHTTPFetcher(append([]Option{WithLogger(zerolog.Nop())}, opts...)...)
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{"https://example.com", true},
		{"http://example.com/path?q=1", true},
		{"ftp://example.com", false},
		{"example.com", false},
		{"", false},
		{"HTTPS://example.com", false},
	}

	for _, test := range tests {
		t.Run(test.url, func(t *testing.T) {
			err := ValidateURL(test.url)
			if test.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidURL))
			}
		})
	}
}

func TestFetchHTML(t *testing.T) {
	var userAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body><h1>Hello</h1></body></html>"))
	}))
	defer srv.Close()

	resp, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, DefaultUserAgent, userAgent)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.ContentType)
	assert.Equal(t, "<html><body><h1>Hello</h1></body></html>", string(resp.Body))
}

func TestFetchCustomHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "text/html")
	}))
	defer srv.Close()

	fetcher := newTestFetcher(WithHeaders(map[string]string{
		"User-Agent":      "trawl-test",
		"Accept-Language": "en",
	}))

	_, err := fetcher.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "trawl-test", got.Get("User-Agent"))
	assert.Equal(t, "en", got.Get("Accept-Language"))
}

func TestFetchNotHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	resp, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrNotHTML))
	assert.False(t, IsConnectionError(err))
	require.NotNil(t, resp)
	assert.Equal(t, "application/pdf", resp.ContentType)
	assert.Empty(t, resp.Body)
}

func TestFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL+"/missing")
	require.Error(t, err)

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, http.StatusNotFound, connErr.StatusCode)
	assert.Equal(t, srv.URL+"/missing", connErr.URL)
}

func TestFetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := newTestFetcher(WithTimeout(20*time.Millisecond)).Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Zero(t, connErr.StatusCode)
	assert.Error(t, connErr.Unwrap())
}

func TestFetchInvalidURLMakesNoRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), "file:///etc/passwd")
	assert.True(t, errors.Is(err, ErrInvalidURL))
	assert.False(t, called)
}

func TestIsHTML(t *testing.T) {
	assert.True(t, IsHTML("text/html"))
	assert.True(t, IsHTML("text/html; charset=UTF-8"))
	assert.True(t, IsHTML("TEXT/HTML"))
	assert.False(t, IsHTML("application/json"))
	assert.False(t, IsHTML(""))
}
