// Package remote downloads tabular inputs over HTTP with retry and backoff.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxBytes caps downloads at 64 MiB.
const DefaultMaxBytes = 64 << 20

type Client struct {
	httpClient       *http.Client
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	maxBytes         int64
}

// Resource is a downloaded file.
type Resource struct {
	// Name is a file name suitable for picking a decoder, e.g. "sales.csv".
	Name        string
	ContentType string
	Data        []byte
}

// NewClient allows customizing HTTP timeout and retry/backoff behavior.
func NewClient(httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *Client {
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	if retryMax <= 0 {
		retryMax = 3
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 4 * time.Second
	}
	return &Client{
		httpClient:       &http.Client{Timeout: httpTimeout},
		retryMaxAttempts: retryMax,
		retryBaseDelay:   baseDelay,
		retryMaxDelay:    maxDelay,
		maxBytes:         DefaultMaxBytes,
	}
}

// WithMaxBytes sets the download size limit; n <= 0 keeps the default.
func (c *Client) WithMaxBytes(n int64) *Client {
	if n > 0 {
		c.maxBytes = n
	}
	return c
}

// Fetch downloads rawURL. 429 and 5xx responses and transient network errors are
// retried with exponential backoff, honoring Retry-After.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Resource, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, &FetchError{URL: rawURL, Err: errors.New("only http and https URLs are supported")}
	}
	backoff := c.retryBaseDelay
	var lastErr error
	for attempt := 1; attempt <= c.retryMaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		res, wait, err := c.once(ctx, u)
		if err == nil {
			return res, nil
		}
		lastErr = err
		var fe *FetchError
		if !errors.As(err, &fe) || !fe.Temporary() || attempt == c.retryMaxAttempts {
			break
		}
		if wait <= 0 {
			wait = min(withJitter(backoff), c.retryMaxDelay)
			backoff *= 2
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

// once performs a single request. wait is the server-requested delay, if any.
func (c *Client) once(ctx context.Context, u *url.URL) (*Resource, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, text/tab-separated-values, application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, text/plain;q=0.8, */*;q=0.5")
	req.Header.Set("User-Agent", "pivotloom-cli")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &FetchError{URL: u.String(), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		fe := &FetchError{URL: u.String(), StatusCode: resp.StatusCode}
		if msg := strings.TrimSpace(string(body)); msg != "" {
			fe.Err = errors.New(msg)
		}
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := parseRetryAfterSeconds(ra); err == nil && secs > 0 {
				fe.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		return nil, fe.RetryAfter, fe
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, 0, &FetchError{URL: u.String(), Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(data)) > c.maxBytes {
		return nil, 0, &FetchError{URL: u.String(), Err: fmt.Errorf("response exceeds %d bytes", c.maxBytes)}
	}
	ct := resp.Header.Get("Content-Type")
	return &Resource{Name: resourceName(u, resp.Header.Get("Content-Disposition"), ct), ContentType: ct, Data: data}, 0, nil
}

// resourceName prefers the Content-Disposition file name, then the URL path, and adds an
// extension from the content type when the name has none.
func resourceName(u *url.URL, disposition, contentType string) string {
	name := ""
	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		name = path.Base(params["filename"])
	}
	if name == "" || name == "." || name == "/" {
		name = path.Base(u.Path)
	}
	if name == "" || name == "." || name == "/" {
		name = u.Hostname()
	}
	if path.Ext(name) != "" {
		return name
	}
	mt, _, _ := mime.ParseMediaType(contentType)
	switch mt {
	case "text/csv", "application/csv":
		return name + ".csv"
	case "text/tab-separated-values":
		return name + ".tsv"
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return name + ".xlsx"
	}
	return name
}

func isRetryableNetErr(err error) bool {
	// net errors like timeouts
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	// EOF or connection reset
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// parseRetryAfterSeconds tries to interpret Retry-After header value as seconds or HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return int(d.Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	// jitter factor in [0.8, 1.2)
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}
