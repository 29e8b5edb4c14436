package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/campusfront/campusfront/internal/pkg/httpx"
	"github.com/campusfront/campusfront/internal/platform/envutil"
)

// TokenSource supplies the current access token for authenticated calls. The
// client never stores credentials itself.
type TokenSource interface {
	GetAccessToken() string
}

// Refresher renews the access token before an authenticated call goes out.
// Wired after construction (SetRefresher) because the session controller
// performing the refresh needs this client to reach the platform.
type Refresher interface {
	EnsureAccessToken(ctx context.Context) error
}

type Options struct {
	BaseURL string

	Timeout    time.Duration
	MaxRetries int

	Tokens     TokenSource
	HTTPClient *http.Client
}

type Client struct {
	baseURL string

	timeout    time.Duration
	maxRetries int

	tokens     TokenSource
	refresher  Refresher
	httpClient *http.Client
	tracer     trace.Tracer
}

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		baseURL:    baseURL,
		timeout:    timeout,
		maxRetries: maxRetries,
		tokens:     opts.Tokens,
		httpClient: hc,
		tracer:     otel.Tracer("campusfront/api"),
	}, nil
}

func NewFromEnv(tokens TokenSource) (*Client, error) {
	return New(Options{
		BaseURL:    envutil.String("PLATFORM_API_BASE_URL", "http://localhost:8080"),
		Timeout:    envutil.Seconds("PLATFORM_API_TIMEOUT_SECONDS", 30*time.Second),
		MaxRetries: envutil.Int("PLATFORM_API_MAX_RETRIES", 2),
		Tokens:     tokens,
	})
}

func (c *Client) BaseURL() string { return c.baseURL }

// SetRefresher installs the proactive token refresh hook. Must be called
// during wiring, before the client serves requests.
func (c *Client) SetRefresher(r Refresher) { c.refresher = r }

func (c *Client) setHeaders(req *http.Request, authed bool) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if !authed || c.tokens == nil {
		return
	}
	if tok := strings.TrimSpace(c.tokens.GetAccessToken()); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
}

// doJSON issues one JSON round trip with bounded retries. Retries cover
// transport failures and retryable statuses only; 4xx responses return
// immediately so an optimistic rollback is not delayed by backoff.
func (c *Client) doJSON(ctx context.Context, method, path string, authed bool, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	ctx2 := ctx
	var cancel context.CancelFunc
	if c.timeout > 0 {
		ctx2, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if authed && c.refresher != nil {
		// A stale access token is renewed here rather than burned on a 401.
		// When the refresh itself fails the request still goes out and the
		// response carries the real auth status.
		_ = c.refresher.EnsureAccessToken(ctx2)
	}

	ctx2, span := c.tracer.Start(ctx2, method+" "+routePattern(path),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	var lastErr error
	backoff := 250 * time.Millisecond
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx2.Err() != nil {
			span.SetStatus(codes.Error, ctx2.Err().Error())
			return ctx2.Err()
		}

		req, err := http.NewRequestWithContext(ctx2, method, c.baseURL+path, bytes.NewReader(buf.Bytes()))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		c.setHeaders(req, authed)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			_ = resp.Body.Close()
			if readErr != nil {
				span.SetStatus(codes.Error, readErr.Error())
				return readErr
			}
			span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				lastErr = parseHTTPError(resp.StatusCode, raw)
				if !httpx.IsRetryableHTTPStatus(resp.StatusCode) {
					span.SetStatus(codes.Error, lastErr.Error())
					return lastErr
				}
			} else {
				if out == nil {
					return nil
				}
				if err := json.Unmarshal(raw, out); err != nil {
					span.SetStatus(codes.Error, err.Error())
					return err
				}
				return nil
			}
		}

		if attempt < c.maxRetries {
			select {
			case <-ctx2.Done():
				span.SetStatus(codes.Error, ctx2.Err().Error())
				return ctx2.Err()
			case <-time.After(httpx.JitterSleep(backoff)):
			}
			backoff *= 2
			continue
		}
	}

	if lastErr == nil {
		lastErr = errors.New("request failed")
	}
	span.SetStatus(codes.Error, lastErr.Error())
	return lastErr
}

// routePattern strips concrete IDs out of span names so traces group by route.
func routePattern(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if len(p) == 36 && strings.Count(p, "-") == 4 {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

func pageQuery(path string, page, size int, filter url.Values) string {
	q := url.Values{}
	for k, vs := range filter {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("page", fmt.Sprint(page))
	q.Set("size", fmt.Sprint(size))
	return path + "?" + q.Encode()
}
