package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/ronoel/bolt-payment-gateway/internal/domain"
	"github.com/ronoel/bolt-payment-gateway/internal/money"
	"github.com/ronoel/bolt-payment-gateway/internal/observability"
)

const (
	defaultTTL         = 30 * time.Second
	defaultHTTPTimeout = 10 * time.Second
	defaultSymbol      = "BTCUSDT"
)

// cachedPrice is replaced wholesale on every refresh, never mutated.
type cachedPrice struct {
	value      int64
	observedAt time.Time
}

// flight is one in-progress upstream fetch. Callers that arrive while it is
// pending wait on done instead of issuing their own request; price/err are
// valid once done is closed.
type flight struct {
	done  chan struct{}
	price int64
	err   error
}

// Oracle serves the current base-asset unit price in fiat minor units from
// an upstream average-price API, behind a TTL cache with single-flight
// request collapsing.
type Oracle struct {
	baseURL string
	symbol  string
	client  *http.Client
	ttl     time.Duration
	now     func() time.Time

	mu       sync.Mutex
	cached   *cachedPrice
	inFlight *flight
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithHTTPClient installs a custom HTTP client. The client must carry its
// own timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Oracle) { o.client = c }
}

// WithTTL overrides the cache lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(o *Oracle) { o.ttl = ttl }
}

// WithClock overrides the time source, used by tests to step over the TTL.
func WithClock(now func() time.Time) Option {
	return func(o *Oracle) { o.now = now }
}

// WithSymbol overrides the upstream trading pair symbol.
func WithSymbol(symbol string) Option {
	return func(o *Oracle) { o.symbol = symbol }
}

// NewOracle creates an oracle against a Binance-style API base URL
// (the upstream endpoint is GET {baseURL}/avgPrice?symbol=...).
func NewOracle(baseURL string, opts ...Option) *Oracle {
	o := &Oracle{
		baseURL: baseURL,
		symbol:  defaultSymbol,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
		ttl:     defaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CurrentPrice returns the unit price in fiat minor units. A fresh cached
// value is served without network access. When the cache is stale, exactly
// one upstream fetch runs per expiry window: concurrent callers join the
// in-flight fetch and share its outcome. Failures are never cached.
func (o *Oracle) CurrentPrice(ctx context.Context) (int64, error) {
	o.mu.Lock()
	if o.cached != nil && o.now().Sub(o.cached.observedAt) < o.ttl {
		price := o.cached.value
		o.mu.Unlock()
		observability.OracleCacheHit()
		return price, nil
	}
	if f := o.inFlight; f != nil {
		o.mu.Unlock()
		select {
		case <-f.done:
			return f.price, f.err
		case <-ctx.Done():
			return 0, &domain.UpstreamError{Op: "price fetch", Transient: true, Err: ctx.Err()}
		}
	}
	f := &flight{done: make(chan struct{})}
	o.inFlight = f
	o.mu.Unlock()

	observability.OracleCacheMiss()
	price, err := o.fetch(ctx)

	o.mu.Lock()
	if err == nil {
		o.cached = &cachedPrice{value: price, observedAt: o.now()}
	}
	// Clear the slot so the next window starts a fresh fetch; a failed
	// flight must not pin its error for later callers.
	o.inFlight = nil
	o.mu.Unlock()

	f.price, f.err = price, err
	close(f.done)
	return price, err
}

// Invalidate drops the cached price so the next call fetches fresh data.
func (o *Oracle) Invalidate() {
	o.mu.Lock()
	o.cached = nil
	o.mu.Unlock()
	log.Printf("[oracle] price cache invalidated")
}

// CacheExpiresIn reports how long the cached price remains fresh, zero when
// the cache is empty or already stale.
func (o *Oracle) CacheExpiresIn() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cached == nil {
		return 0
	}
	remaining := o.ttl - o.now().Sub(o.cached.observedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// avgPriceResponse mirrors the upstream avgPrice payload.
type avgPriceResponse struct {
	Mins      int    `json:"mins"`
	Price     string `json:"price"`
	CloseTime int64  `json:"closeTime"`
}

func (o *Oracle) fetch(ctx context.Context) (int64, error) {
	url := fmt.Sprintf("%s/avgPrice?symbol=%s", o.baseURL, o.symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, &domain.UpstreamError{Op: "price fetch", Transient: false, Err: err}
	}

	resp, err := o.client.Do(req)
	if err != nil {
		observability.OracleFetch("error")
		return 0, &domain.UpstreamError{Op: "price fetch", Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		observability.OracleFetch("error")
		return 0, &domain.UpstreamError{
			Op:        "price fetch",
			Transient: true,
			Err:       fmt.Errorf("upstream returned status %d", resp.StatusCode),
		}
	}

	var body avgPriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		observability.OracleFetch("malformed")
		return 0, &domain.UpstreamError{
			Op:        "price parse",
			Transient: false,
			Err:       fmt.Errorf("decode avgPrice response: %w", err),
		}
	}

	price, err := money.Parse(body.Price)
	if err != nil {
		observability.OracleFetch("malformed")
		return 0, &domain.UpstreamError{
			Op:        "price parse",
			Transient: false,
			Err:       fmt.Errorf("parse avgPrice %q: %w", body.Price, err),
		}
	}
	if price <= 0 {
		observability.OracleFetch("malformed")
		return 0, &domain.UpstreamError{
			Op:        "price parse",
			Transient: false,
			Err:       fmt.Errorf("non-positive avgPrice %q", body.Price),
		}
	}

	observability.OracleFetch("ok")
	return price, nil
}
