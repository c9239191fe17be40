package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ronoel/bolt-payment-gateway/internal/domain"
)

func avgPriceServer(t *testing.T, price string, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/avgPrice", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		fmt.Fprintf(w, `{"mins":5,"price":%q,"closeTime":1700000000000}`, price)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCurrentPriceCachesWithinTTL(t *testing.T) {
	var hits atomic.Int64
	srv := avgPriceServer(t, "60000.00", &hits)

	now := time.Now()
	clock := func() time.Time { return now }
	o := NewOracle(srv.URL, WithClock(clock))

	price, err := o.CurrentPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(6_000_000), price)
	assert.Equal(t, int64(1), hits.Load())

	// Fresh cache: no network.
	price, err = o.CurrentPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(6_000_000), price)
	assert.Equal(t, int64(1), hits.Load())

	// Step past the TTL: one refetch.
	now = now.Add(31 * time.Second)
	_, err = o.CurrentPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load())
}

func TestCurrentPriceTruncatesUpstreamDecimals(t *testing.T) {
	var hits atomic.Int64
	srv := avgPriceServer(t, "65000.12345678", &hits)

	o := NewOracle(srv.URL)
	price, err := o.CurrentPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(6_500_012), price)
}

func TestCurrentPriceSingleFlight(t *testing.T) {
	var hits atomic.Int64
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		fmt.Fprint(w, `{"mins":5,"price":"60000.00","closeTime":1700000000000}`)
	}))
	defer srv.Close()

	o := NewOracle(srv.URL)

	const callers = 16
	var wg sync.WaitGroup
	prices := make([]int64, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			prices[i], errs[i] = o.CurrentPrice(context.Background())
		}(i)
	}

	// Let the callers pile up behind the single in-flight fetch.
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), hits.Load(), "concurrent callers must share one fetch")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, int64(6_000_000), prices[i])
	}
}

func TestCurrentPriceFailureNotCached(t *testing.T) {
	var hits atomic.Int64
	var fail atomic.Bool
	fail.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"mins":5,"price":"60000.00","closeTime":1700000000000}`)
	}))
	defer srv.Close()

	o := NewOracle(srv.URL)

	_, err := o.CurrentPrice(context.Background())
	var ue *domain.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.True(t, ue.Transient)

	fail.Store(false)
	price, err := o.CurrentPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(6_000_000), price)
	assert.Equal(t, int64(2), hits.Load())
}

func TestCurrentPriceMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"mins":5,"price":"not-a-price","closeTime":0}`)
	}))
	defer srv.Close()

	o := NewOracle(srv.URL)
	_, err := o.CurrentPrice(context.Background())
	var ue *domain.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.False(t, ue.Transient, "parse failures are protocol drift, not connectivity")
}

func TestCurrentPriceConnectError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	o := NewOracle(srv.URL)
	_, err := o.CurrentPrice(context.Background())
	var ue *domain.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.True(t, ue.Transient)
	assert.False(t, errors.Is(err, ErrPriceUnavailable))
}

func TestInvalidate(t *testing.T) {
	var hits atomic.Int64
	srv := avgPriceServer(t, "60000.00", &hits)

	o := NewOracle(srv.URL)
	_, err := o.CurrentPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits.Load())

	o.Invalidate()
	assert.Equal(t, time.Duration(0), o.CacheExpiresIn())

	_, err = o.CurrentPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load())
}

func TestCacheExpiresIn(t *testing.T) {
	var hits atomic.Int64
	srv := avgPriceServer(t, "60000.00", &hits)

	now := time.Now()
	o := NewOracle(srv.URL, WithClock(func() time.Time { return now }))

	assert.Equal(t, time.Duration(0), o.CacheExpiresIn())

	_, err := o.CurrentPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, o.CacheExpiresIn())

	now = now.Add(10 * time.Second)
	assert.Equal(t, 20*time.Second, o.CacheExpiresIn())

	now = now.Add(25 * time.Second)
	assert.Equal(t, time.Duration(0), o.CacheExpiresIn())
}
