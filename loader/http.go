package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/schollz/progressbar/v3"
)

// maxSourceBytes caps how much of a response body is read.
const maxSourceBytes = 64 << 20

// HTTP loads sources over HTTP(S). Source identifiers are absolute URLs.
type HTTP struct {
	client   *http.Client
	progress io.Writer
	logger   *slog.Logger
	limit    int64
}

// HTTPOption configures an HTTP loader.
type HTTPOption func(*HTTP)

// WithClient sets the HTTP client. The default is http.DefaultClient.
func WithClient(c *http.Client) HTTPOption {
	return func(h *HTTP) {
		if c != nil {
			h.client = c
		}
	}
}

// WithProgress renders a download progress bar to w while a source is
// fetched. A nil writer disables the bar.
func WithProgress(w io.Writer) HTTPOption {
	return func(h *HTTP) { h.progress = w }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) HTTPOption {
	return func(h *HTTP) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHTTP returns an HTTP loader.
func NewHTTP(opts ...HTTPOption) *HTTP {
	h := &HTTP{
		client: http.DefaultClient,
		logger: slog.New(slog.DiscardHandler),
		limit:  maxSourceBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// LoadText issues a GET for source and returns the body. Any status other
// than 2xx is a fetch error, and so is a body larger than 64 MiB.
// Cancelling ctx aborts the request.
func (h *HTTP) LoadText(ctx context.Context, source string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %w", ErrFetch, err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s: %s", ErrFetch, source, resp.Status)
	}

	var buf bytes.Buffer
	var w io.Writer = &buf
	if h.progress != nil {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(h.progress),
			progressbar.OptionSetDescription("fetch "+source),
			progressbar.OptionShowBytes(true),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Close()
		w = io.MultiWriter(&buf, bar)
	}

	n, err := io.Copy(w, io.LimitReader(resp.Body, h.limit+1))
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", ErrFetch, source, err)
	}
	if n > h.limit {
		return "", fmt.Errorf("%w: %s: larger than %d bytes", ErrFetch, source, h.limit)
	}
	h.logger.Debug("loader: fetched", slog.String("source", source), slog.Int64("bytes", n))

	return checkText(source, buf.String())
}
