// Package canvas is the Canvas LMS REST transport: listing, fetching,
// creating and updating course resources.
package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Brehove/canvas-cli-for-codex/internal/faults"
	"github.com/Brehove/canvas-cli-for-codex/internal/httpx"
	"github.com/Brehove/canvas-cli-for-codex/internal/logging"
)

// DefaultRateLimit is the default number of requests per second.
const DefaultRateLimit = 10

const perPage = "100"

// Options configures a Client.
type Options struct {
	BaseURL string
	Token   string
	// RateLimit is requests per second. Zero uses DefaultRateLimit; a
	// negative value disables limiting.
	RateLimit float64
	// HTTPClient defaults to a client with a two minute timeout.
	HTTPClient *http.Client
	Retry      httpx.RetryConfig
}

// Client talks to one Canvas instance. It is safe for concurrent use.
type Client struct {
	apiURL  *url.URL
	token   string
	http    *http.Client
	limiter *rate.Limiter
	retry   httpx.RetryConfig
}

// New validates opts and returns a client.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, faults.Invalid("canvas_url", "is required")
	}
	u, err := url.Parse(base + "/api/v1/")
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, faults.Invalid("canvas_url", "must be an absolute URL, got %q", opts.BaseURL)
	}
	if strings.TrimSpace(opts.Token) == "" {
		return nil, faults.Invalid("api_token", "is required")
	}

	c := &Client{
		apiURL: u,
		token:  strings.TrimSpace(opts.Token),
		http:   opts.HTTPClient,
		retry:  opts.Retry,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 2 * time.Minute}
	}
	switch {
	case opts.RateLimit == 0:
		c.limiter = rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit)
	case opts.RateLimit > 0:
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(1, int(opts.RateLimit)))
	}
	return c, nil
}

// endpoint resolves an API path such as "courses/1/pages".
func (c *Client) endpoint(path string, query url.Values) string {
	u := c.apiURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends one API request and decodes the JSON response into out.
// It returns the response so callers can follow pagination links.
func (c *Client) do(ctx context.Context, method, rawURL string, payload, out any) (*http.Response, error) {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", method, err)
		}
	}

	build := func(ctx context.Context) (*http.Request, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		var r io.Reader
		if body != nil {
			r = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, r)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Accept-Encoding", httpx.AcceptEncoding)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	}

	start := time.Now()
	resp, data, err := httpx.DoWithRetry(ctx, c.http, build, c.retry)
	logging.WithContext(ctx).Debug("canvas request",
		"method", method, "url", redact(rawURL),
		logging.Operation("http"), "duration", time.Since(start), logging.Err(err))
	if err != nil {
		return resp, classify(method, rawURL, err)
	}
	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp, faults.Transport(fmt.Sprintf("unexpected response from %s %s", method, redact(rawURL)), err)
		}
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	_, err := c.do(ctx, http.MethodGet, c.endpoint(path, query), nil, out)
	return err
}

func (c *Client) send(ctx context.Context, method, path string, payload, out any) error {
	_, err := c.do(ctx, method, c.endpoint(path, nil), payload, out)
	return err
}

// list follows Link rel="next" headers and collects every page of results.
func list[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	if query == nil {
		query = url.Values{}
	}
	if query.Get("per_page") == "" {
		query.Set("per_page", perPage)
	}

	var all []T
	next := c.endpoint(path, query)
	for next != "" {
		var page []T
		resp, err := c.do(ctx, http.MethodGet, next, nil, &page)
		if err != nil {
			return all, err
		}
		all = append(all, page...)
		next = NextLink(resp.Header.Get("Link"))
	}
	return all, nil
}

var linkPart = regexp.MustCompile(`<([^>]+)>\s*;\s*(.+)`)

// NextLink returns the URL marked rel="next" in a Link header, or "".
func NextLink(header string) string {
	for part := range strings.SplitSeq(header, ",") {
		m := linkPart.FindStringSubmatch(strings.TrimSpace(part))
		if m == nil {
			continue
		}
		for param := range strings.SplitSeq(m[2], ";") {
			key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
			if ok && strings.EqualFold(key, "rel") && strings.Trim(value, `"`) == "next" {
				return m[1]
			}
		}
	}
	return ""
}

// classify maps transport failures onto the shared error categories.
func classify(method, rawURL string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	target := method + " " + redact(rawURL)

	var herr *httpx.HTTPError
	if errors.As(err, &herr) {
		switch herr.StatusCode {
		case http.StatusNotFound:
			return faults.NewTypedError(faults.NotFoundError, "not found: "+target, err)
		case http.StatusUnauthorized:
			return faults.Transport("canvas rejected the API token", err)
		case http.StatusForbidden:
			return faults.Transport("not authorized for "+target, err)
		default:
			return faults.Transport(fmt.Sprintf("canvas returned %d for %s", herr.StatusCode, target), err)
		}
	}
	return faults.Transport("request failed: "+target, err)
}

// redact drops the query string, which may carry verifier tokens on
// download links.
func redact(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
