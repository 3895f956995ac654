// Package remote implements substrate.Store over HTTP against a peer
// cmd/cacheserver, demonstrating that scripts.Engine and cache.Facade are
// substrate-agnostic (SPEC_FULL.md §6.1). Every round trip is wrapped in a
// resilience.Executor composing a rate limiter, a bulkhead, a circuit
// breaker, retry, and a timeout, exactly the teacher's
// resilience/executor.go composition order — this is transport-level
// resilience for a substrate *implementation*, not engine-level retry of
// a script; scripts.Engine still only ever sees one substrate call
// succeed or fail.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jonwraymond/permcache/resilience"
	"github.com/jonwraymond/permcache/substrate"
)

// Client is a substrate.Store backed by HTTP calls to a peer server
// exposing the /substrate/* routes cmd/cacheserver registers.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

// Config configures a remote Client.
type Config struct {
	// BaseURL is the peer server's base URL, e.g. "http://cache-1:8080".
	BaseURL string

	// HTTPClient is the underlying transport. If nil, http.DefaultClient
	// is used.
	HTTPClient *http.Client

	// RequestTimeout bounds a single round trip. Default: 5s.
	RequestTimeout time.Duration

	// MaxRetries bounds transient-failure retries. Default: 2.
	MaxRetries int

	// MaxConcurrentRequests bounds in-flight round trips to the peer via a
	// bulkhead. Default: 32.
	MaxConcurrentRequests int

	// RequestsPerSecond bounds the sustained call rate to the peer via a
	// token-bucket rate limiter. Default: 200.
	RequestsPerSecond float64
}

// NewClient builds a remote Store, wrapping every round trip in the
// teacher's resilience.Executor in its full composition order: rate
// limiter and bulkhead outermost (shed or queue load before it ever
// reaches the peer), then circuit breaker, then retry, then timeout
// innermost — so a flapping peer trips the breaker instead of every
// caller retrying into it, and a single slow caller can't starve this
// process's whole connection budget to that peer.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}
	maxConcurrent := cfg.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = 32
	}
	rateLimit := cfg.RequestsPerSecond
	if rateLimit <= 0 {
		rateLimit = 200
	}

	executor := resilience.NewExecutor(
		resilience.WithTimeout(timeout),
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  maxRetries + 1,
			InitialDelay: 20 * time.Millisecond,
		})),
		resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			MaxFailures:  5,
			ResetTimeout: 10 * time.Second,
		})),
		resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: maxConcurrent,
			MaxWait:       timeout,
		})),
		resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:        rateLimit,
			Burst:       maxConcurrent,
			WaitOnLimit: true,
			MaxWait:     timeout,
		})),
	)

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		executor:   executor,
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	var resp *http.Response
	err := c.executor.Execute(ctx, func(ctx context.Context) error {
		var reader io.Reader
		if body != nil {
			b, err := json.Marshal(body)
			if err != nil {
				return err
			}
			reader = bytes.NewReader(b)
		}
		u := c.baseURL + path
		if len(query) > 0 {
			u += "?" + query.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reader)
		if err != nil {
			return err
		}
		if reader != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		r, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", substrate.ErrUnavailable, err)
		}
		resp = r
		return nil
	})
	return resp, err
}

type stringResponse struct {
	Value []byte `json:"value"`
	OK    bool   `json:"ok"`
}

func (c *Client) GetString(ctx context.Context, key string) ([]byte, bool) {
	resp, err := c.do(ctx, http.MethodGet, "/substrate/string/"+url.PathEscape(key), nil, nil)
	if err != nil {
		return nil, false
	}
	defer resp.Body.Close()
	var out stringResponse
	if json.NewDecoder(resp.Body).Decode(&out) != nil {
		return nil, false
	}
	return out.Value, out.OK
}

func (c *Client) SetString(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	q := url.Values{"ttl_ms": {strconv.FormatInt(ttl.Milliseconds(), 10)}}
	resp, err := c.do(ctx, http.MethodPut, "/substrate/string/"+url.PathEscape(key), q, stringResponse{Value: value})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	q := url.Values{"ttl_ms": {strconv.FormatInt(ttl.Milliseconds(), 10)}}
	resp, err := c.do(ctx, http.MethodPost, "/substrate/expire/"+url.PathEscape(key), q, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

func (c *Client) Exists(ctx context.Context, key string) bool {
	resp, err := c.do(ctx, http.MethodHead, "/substrate/string/"+url.PathEscape(key), nil, nil)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type setResponse struct {
	Members []string `json:"members"`
}

func (c *Client) SAdd(ctx context.Context, key string, members ...string) error {
	resp, err := c.do(ctx, http.MethodPost, "/substrate/set/"+url.PathEscape(key)+"/add", nil, setResponse{Members: members})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

func (c *Client) SMembers(ctx context.Context, key string) []string {
	resp, err := c.do(ctx, http.MethodGet, "/substrate/set/"+url.PathEscape(key), nil, nil)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	var out setResponse
	if json.NewDecoder(resp.Body).Decode(&out) != nil {
		return nil
	}
	return out.Members
}

func (c *Client) SInter(ctx context.Context, keys ...string) []string {
	q := url.Values{"key": keys}
	resp, err := c.do(ctx, http.MethodGet, "/substrate/set/inter", q, nil)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	var out setResponse
	if json.NewDecoder(resp.Body).Decode(&out) != nil {
		return nil
	}
	return out.Members
}

type cardResponse struct {
	Count int `json:"count"`
}

func (c *Client) SCard(ctx context.Context, key string) int {
	resp, err := c.do(ctx, http.MethodGet, "/substrate/set/"+url.PathEscape(key)+"/card", nil, nil)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()
	var out cardResponse
	if json.NewDecoder(resp.Body).Decode(&out) != nil {
		return 0
	}
	return out.Count
}

type misMemberResponse struct {
	Present []bool `json:"present"`
}

func (c *Client) SMIsMember(ctx context.Context, key string, members ...string) []bool {
	q := url.Values{"member": members}
	resp, err := c.do(ctx, http.MethodGet, "/substrate/set/"+url.PathEscape(key)+"/ismember", q, nil)
	if err != nil {
		return make([]bool, len(members))
	}
	defer resp.Body.Close()
	var out misMemberResponse
	if json.NewDecoder(resp.Body).Decode(&out) != nil {
		return make([]bool, len(members))
	}
	return out.Present
}

type keysResponse struct {
	Keys []string `json:"keys"`
}

func (c *Client) Keys(ctx context.Context, prefix string) []string {
	q := url.Values{"prefix": {prefix}}
	resp, err := c.do(ctx, http.MethodGet, "/substrate/keys", q, nil)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	var out keysResponse
	if json.NewDecoder(resp.Body).Decode(&out) != nil {
		return nil
	}
	return out.Keys
}

// WithLock runs fn directly, with no cross-process exclusion: a remote
// peer cannot execute an arbitrary Go closure, so there is no way to ask
// it to hold a lock for the duration of fn the way MemoryStore's WithLock
// does in-process. cmd/cacheserver's -substrate=remote mode accepts this
// tradeoff deliberately — it runs scripts.Engine locally against this
// Client so every individual GetString/SetString/SAdd/... call is still
// atomic at the peer (spec §6's per-call atomicity guarantee), but a
// script's several calls can now interleave with another process's calls
// to the same peer between them. This is the documented cost of fronting
// a single logical substrate over HTTP rather than colocating the script
// with its store; it does not change §7's "the engine does not retry" —
// resilience around each individual round trip (timeout/retry/circuit
// breaker, below) is still the only retry behavior in this path.
func (c *Client) WithLock(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var _ substrate.Store = (*Client)(nil)
