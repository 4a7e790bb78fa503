package wallet

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/hyperx/pkg/notify"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/walletapi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC)

func fixedClock() time.Time {
	return fixedNow
}

type fakeAPI struct {
	mu sync.Mutex

	balances    []walletapi.BalanceEntry
	balancesErr error
	history     []walletapi.HistoryRecord
	historyErr  error
	sendErr     error
	quote       walletapi.Quote
	quoteErr    error
	executeErr  error
	deposit     string
	depositErr  error

	balanceCalls    int
	historyCalls    int
	sendRequests    []walletapi.SendRequest
	quoteRequests   [][3]string
	executeRequests []walletapi.ExecuteSwapRequest
	depositRequests [][3]string
}

func (api *fakeAPI) Balances(context.Context, string) ([]walletapi.BalanceEntry, error) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.balanceCalls++
	return api.balances, api.balancesErr
}

func (api *fakeAPI) History(context.Context, string) ([]walletapi.HistoryRecord, error) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.historyCalls++
	return api.history, api.historyErr
}

func (api *fakeAPI) SendExternal(_ context.Context, request walletapi.SendRequest) error {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.sendRequests = append(api.sendRequests, request)
	return api.sendErr
}

func (api *fakeAPI) SwapQuote(_ context.Context, fromCurrency string, toCurrency string, amount string) (walletapi.Quote, error) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.quoteRequests = append(api.quoteRequests, [3]string{fromCurrency, toCurrency, amount})
	return api.quote, api.quoteErr
}

func (api *fakeAPI) ExecuteSwap(_ context.Context, request walletapi.ExecuteSwapRequest) error {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.executeRequests = append(api.executeRequests, request)
	return api.executeErr
}

func (api *fakeAPI) DepositAddress(_ context.Context, currency string, chain string, userID string) (string, error) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.depositRequests = append(api.depositRequests, [3]string{currency, chain, userID})
	return api.deposit, api.depositErr
}

type memoryCache struct {
	mu     sync.Mutex
	values map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string][]byte{}}
}

func (cache *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	value, ok := cache.values[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), value...), nil
}

func (cache *memoryCache) Put(_ context.Context, key string, value []byte) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.values[key] = append([]byte(nil), value...)
	return nil
}

type recorderLogger struct {
	mu      sync.Mutex
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	logger.entries = append(logger.entries, entry)
}

type engineFixture struct {
	engine   *Engine
	api      *fakeAPI
	cache    *memoryCache
	notifier *notify.Recorder
	logger   *recorderLogger
}

func newFixture(t *testing.T, options ...EngineOption) engineFixture {
	t.Helper()
	fixture := engineFixture{
		api:      &fakeAPI{},
		cache:    newMemoryCache(),
		notifier: &notify.Recorder{},
		logger:   &recorderLogger{},
	}
	options = append([]EngineOption{WithOperationLogger(fixture.logger)}, options...)
	engine, err := NewEngine(fixture.api, fixture.cache, fixture.notifier, fixedClock, options...)
	require.NoError(t, err)
	fixture.engine = engine
	return fixture
}

// seed loads balances through a successful fetch.
func (fixture engineFixture) seed(t *testing.T, entries ...walletapi.BalanceEntry) {
	t.Helper()
	fixture.api.balances = entries
	fixture.engine.FetchBalances(context.Background(), "u1")
	fixture.api.balances = nil
}

func mustDecimal(t *testing.T, raw string) decimal.Decimal {
	t.Helper()
	value, err := decimal.NewFromString(raw)
	require.NoError(t, err)
	return value
}

func requireDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	require.Truef(t, mustDecimal(t, expected).Equal(actual), "expected %s, got %s", expected, actual)
}

func lastNotification(t *testing.T, recorder *notify.Recorder) notify.Notification {
	t.Helper()
	notification, ok := recorder.Last()
	require.True(t, ok, "expected a notification")
	return notification
}
