// Package lichess is a small client for the lichess.org HTTP API and a
// decoder for its NDJSON game export.
package lichess

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/cgebler-biproservice/LichessAnnualStats/internal/logger"
	"github.com/cgebler-biproservice/LichessAnnualStats/internal/version"
)

// DefaultBaseURL is the public lichess.org API root.
const DefaultBaseURL = "https://lichess.org"

// maxGames is passed as the export's max parameter; effectively unbounded
// for a single year.
const maxGames = 300000

// Client talks to the lichess API. It is safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	log     *zerolog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// Option configures a Client.
type Option func(*Client)

// NewClient returns a client for baseURL. token may be empty; endpoints that
// need one will then be rejected by the server.
func NewClient(baseURL, token string, opts ...Option) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.ResponseHeaderTimeout = 30 * time.Second
	c := &Client{
		baseURL:      baseURL,
		token:        token,
		http:         &http.Client{Transport: tr},
		limiter:      rate.NewLimiter(rate.Limit(1), 2),
		log:          logger.Named("lichess"),
		maxRetries:   2,
		retryBackoff: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTimeout bounds the wait for response headers. Bodies are streamed and
// have no overall deadline; cancel the context to abort one.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if tr, ok := c.http.Transport.(*http.Transport); ok {
			tr.ResponseHeaderTimeout = d
		}
	}
}

// WithRetries sets how often a rejected or failed request is retried before
// any body is consumed.
func WithRetries(max int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithRateLimit paces outgoing requests.
func WithRateLimit(perSec float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
}

// WithLogger replaces the diagnostics logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// HasToken reports whether requests are authenticated.
func (c *Client) HasToken() bool { return c.token != "" }

// StreamGames opens the NDJSON export of username's games created in
// [since, until) (ms since epoch). The caller must close the returned body.
// Errors from reading the body are *TransportError.
func (c *Client) StreamGames(ctx context.Context, username string, since, until int64) (io.ReadCloser, error) {
	q := url.Values{}
	q.Set("since", strconv.FormatInt(since, 10))
	q.Set("until", strconv.FormatInt(until, 10))
	q.Set("max", strconv.Itoa(maxGames))
	for _, k := range []string{"moves", "pgnInJson", "clocks", "evals", "opening"} {
		q.Set(k, "false")
	}
	return c.open(ctx, "/api/games/user/"+url.PathEscape(username), q, "application/x-ndjson")
}

// RatingSeries is one perf's rating history. Each point is
// [year, month (0-based), day, rating].
type RatingSeries struct {
	Name   string  `json:"name"`
	Points [][]int `json:"points"`
}

// RatingHistory fetches every rating series for username.
func (c *Client) RatingHistory(ctx context.Context, username string) ([]RatingSeries, error) {
	body, err := c.open(ctx, "/api/user/"+url.PathEscape(username)+"/rating-history", nil, "application/json")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var series []RatingSeries
	if err := json.NewDecoder(body).Decode(&series); err != nil {
		return nil, fmt.Errorf("decode rating history: %w", err)
	}
	return series, nil
}

// PuzzleActivity opens the NDJSON stream of the token owner's puzzle
// attempts in [since, until). Requires a token.
func (c *Client) PuzzleActivity(ctx context.Context, since, until int64) (io.ReadCloser, error) {
	q := url.Values{}
	q.Set("since", strconv.FormatInt(since, 10))
	q.Set("until", strconv.FormatInt(until, 10))
	return c.open(ctx, "/api/puzzle/activity", q, "application/x-ndjson")
}

// open issues a GET and returns the body of a 2xx response. Rejections
// worth retrying (429, 5xx) and transport failures are retried with
// jittered exponential backoff; nothing has been read from the stream yet.
func (c *Client) open(ctx context.Context, path string, query url.Values, accept string) (io.ReadCloser, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff/2 + time.Duration(rand.Int64N(int64(backoff)+1))
			if apiErr, ok := lastErr.(*APIError); ok && apiErr.RetryAfter > wait {
				wait = apiErr.RetryAfter
			}
			c.log.Debug().Int("attempt", attempt).Dur("wait", wait).Str("path", path).Msg("retrying request")
			select {
			case <-ctx.Done():
				return nil, &TransportError{Op: "GET " + path, Err: ctx.Err()}
			case <-time.After(wait):
			}
			backoff *= 2
		}

		body, err := c.do(ctx, path, query, accept)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !isRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, path string, query url.Values, accept string) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Op: "GET " + path, Err: err}
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", version.UserAgent())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "GET " + path, Err: err}
	}
	c.log.Debug().Str("path", path).Int("status", resp.StatusCode).Dur("latency", time.Since(start)).Msg("response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		resp.Body.Close()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Reason:     http.StatusText(resp.StatusCode),
			Body:       snippet,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return &streamBody{rc: resp.Body, op: "read " + path}, nil
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// streamBody turns mid-stream read failures into *TransportError.
type streamBody struct {
	rc io.ReadCloser
	op string
}

func (b *streamBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if err != nil && err != io.EOF {
		err = &TransportError{Op: b.op, Err: err}
	}
	return n, err
}

func (b *streamBody) Close() error { return b.rc.Close() }
