package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MarkoPoloResearchLab/hyperx/pkg/notify"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/walletapi"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// API is the subset of the wallet service the engine depends on.
type API interface {
	Balances(ctx context.Context, userID string) ([]walletapi.BalanceEntry, error)
	History(ctx context.Context, userID string) ([]walletapi.HistoryRecord, error)
	SendExternal(ctx context.Context, request walletapi.SendRequest) error
	SwapQuote(ctx context.Context, fromCurrency string, toCurrency string, amount string) (walletapi.Quote, error)
	ExecuteSwap(ctx context.Context, request walletapi.ExecuteSwapRequest) error
	DepositAddress(ctx context.Context, currency string, chain string, userID string) (string, error)
}

// Cache mirrors engine state across restarts. Get returns ErrCacheMiss for
// absent keys.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Engine reconciles server balances and history with the local cache.
type Engine struct {
	api             API
	cache           Cache
	notifier        notify.Notifier
	nowFn           func() time.Time
	logger          *zap.Logger
	operationLogger OperationLogger
	capabilities    Capabilities

	mu           sync.RWMutex
	assets       []AssetBalance
	transactions []Transaction
}

// NewEngine wires an Engine.
func NewEngine(api API, cache Cache, notifier notify.Notifier, now func() time.Time, options ...EngineOption) (*Engine, error) {
	if api == nil {
		return nil, fmt.Errorf("%w: wallet api dependency is nil", ErrInvalidServiceConfig)
	}
	if cache == nil {
		return nil, fmt.Errorf("%w: cache dependency is nil", ErrInvalidServiceConfig)
	}
	if notifier == nil {
		return nil, fmt.Errorf("%w: notifier dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	engine := &Engine{
		api:          api,
		cache:        cache,
		notifier:     notifier,
		nowFn:        now,
		logger:       zap.NewNop(),
		capabilities: DefaultCapabilities(),
	}
	for _, option := range options {
		if option != nil {
			option(engine)
		}
	}
	if err := engine.capabilities.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidServiceConfig, err)
	}
	return engine, nil
}

// Capabilities returns the routing table in effect.
func (engine *Engine) Capabilities() Capabilities {
	copied := make(Capabilities, len(engine.capabilities))
	for operation, hasBackend := range engine.capabilities {
		copied[operation] = hasBackend
	}
	return copied
}

// Rehydrate loads the cached assets and transactions.
func (engine *Engine) Rehydrate(ctx context.Context) error {
	assets, assetsErr := engine.cachedAssets(ctx)
	transactions, transactionsErr := engine.cachedTransactions(ctx)
	engine.mu.Lock()
	engine.assets = assets
	engine.transactions = transactions
	engine.mu.Unlock()
	err := errors.Join(assetsErr, transactionsErr)
	if err != nil {
		engine.logger.Warn("rehydrate from cache failed", zap.Error(err))
	}
	engine.logOperation(ctx, OperationLog{Operation: operationRehydrate, Error: err})
	return err
}

// Refresh fetches balances and history concurrently. Each fetch applies its
// fallback on failure; the first remote failure is returned.
func (engine *Engine) Refresh(ctx context.Context, subjectID string) error {
	var group errgroup.Group
	group.Go(func() error {
		_, err := engine.fetchBalances(ctx, subjectID)
		return err
	})
	group.Go(func() error {
		_, err := engine.fetchHistory(ctx, subjectID)
		return err
	})
	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// FetchBalances replaces the asset list with the server balances of subjectID.
func (engine *Engine) FetchBalances(ctx context.Context, subjectID string) []AssetBalance {
	assets, _ := engine.fetchBalances(ctx, subjectID)
	return assets
}

func (engine *Engine) fetchBalances(ctx context.Context, subjectID string) ([]AssetBalance, error) {
	if strings.TrimSpace(subjectID) == "" {
		return engine.Assets(), nil
	}
	entries, err := engine.api.Balances(ctx, subjectID)
	if err != nil {
		engine.logger.Warn("fetch balances failed", zap.Error(err))
		engine.notifier.Notify(notify.Failure("Failed to Load Balances", "Could not fetch wallet balances. Using default values."))
		assets, cacheErr := engine.cachedAssets(ctx)
		if cacheErr != nil || len(assets) == 0 {
			assets = zeroBalances()
		}
		engine.setAssets(assets)
		fetchErr := WrapError(operationFetchBalances, errorSubjectRemote, errorCodeRequestFailed, err)
		engine.logOperation(ctx, OperationLog{Operation: operationFetchBalances, Error: fetchErr})
		return cloneAssets(assets), fetchErr
	}
	assets := mergeBalances(entries)
	if len(assets) == 0 {
		assets = zeroBalances()
	}
	engine.setAssets(assets)
	engine.persistAssets(ctx, assets)
	engine.logOperation(ctx, OperationLog{Operation: operationFetchBalances})
	return cloneAssets(assets), nil
}

// FetchHistory replaces the transaction list with the server history of subjectID.
func (engine *Engine) FetchHistory(ctx context.Context, subjectID string) []Transaction {
	transactions, _ := engine.fetchHistory(ctx, subjectID)
	return transactions
}

func (engine *Engine) fetchHistory(ctx context.Context, subjectID string) ([]Transaction, error) {
	if strings.TrimSpace(subjectID) == "" {
		return engine.Transactions(), nil
	}
	records, err := engine.api.History(ctx, subjectID)
	if err != nil {
		engine.logger.Warn("fetch history failed, using cached transactions", zap.Error(err))
		transactions, cacheErr := engine.cachedTransactions(ctx)
		if cacheErr != nil {
			transactions = nil
		}
		engine.setTransactions(transactions)
		fetchErr := WrapError(operationFetchHistory, errorSubjectRemote, errorCodeRequestFailed, err)
		engine.logOperation(ctx, OperationLog{Operation: operationFetchHistory, Error: fetchErr})
		return cloneTransactions(transactions), fetchErr
	}
	transactions := transformHistory(records, engine.nowFn)
	engine.setTransactions(transactions)
	engine.persistTransactions(ctx, transactions)
	engine.logOperation(ctx, OperationLog{Operation: operationFetchHistory})
	return cloneTransactions(transactions), nil
}

// TotalBalance returns the sum of balance times reference price.
func (engine *Engine) TotalBalance() decimal.Decimal {
	engine.mu.RLock()
	defer engine.mu.RUnlock()
	total := decimal.Zero
	for _, asset := range engine.assets {
		total = total.Add(asset.Value())
	}
	return total
}

// Balance returns the balance of assetID, or zero when unknown.
func (engine *Engine) Balance(assetID string) decimal.Decimal {
	asset, ok := engine.asset(assetID)
	if !ok {
		return decimal.Zero
	}
	return asset.Balance
}

// Address returns the cached address of assetID.
func (engine *Engine) Address(assetID string) string {
	asset, ok := engine.asset(assetID)
	if !ok || asset.Address == "" {
		return addressUnavailable
	}
	return asset.Address
}

// Assets returns a snapshot of the asset list.
func (engine *Engine) Assets() []AssetBalance {
	engine.mu.RLock()
	defer engine.mu.RUnlock()
	return cloneAssets(engine.assets)
}

// Transactions returns a snapshot of the transaction list, newest first.
func (engine *Engine) Transactions() []Transaction {
	engine.mu.RLock()
	defer engine.mu.RUnlock()
	return cloneTransactions(engine.transactions)
}

func (engine *Engine) asset(assetID string) (AssetBalance, bool) {
	engine.mu.RLock()
	defer engine.mu.RUnlock()
	for _, asset := range engine.assets {
		if asset.ID == assetID {
			return asset, true
		}
	}
	return AssetBalance{}, false
}

func (engine *Engine) setAssets(assets []AssetBalance) {
	engine.mu.Lock()
	engine.assets = cloneAssets(assets)
	engine.mu.Unlock()
}

func (engine *Engine) setTransactions(transactions []Transaction) {
	engine.mu.Lock()
	engine.transactions = cloneTransactions(transactions)
	engine.mu.Unlock()
}

func mergeBalances(entries []walletapi.BalanceEntry) []AssetBalance {
	assets := make([]AssetBalance, 0, len(entries))
	for _, entry := range entries {
		metadata, ok := LookupMetadata(strings.ToLower(strings.TrimSpace(entry.Currency)))
		if !ok {
			continue
		}
		balance, ok := walletapi.ParseDecimal(entry.BalanceFormatted)
		if !ok {
			balance = decimal.Zero
		}
		assets = append(assets, newAssetBalance(metadata, balance, entry.Address))
	}
	return assets
}

func (engine *Engine) cachedAssets(ctx context.Context) ([]AssetBalance, error) {
	payload, err := engine.cache.Get(ctx, CacheKeyAssets)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, WrapError(operationRehydrate, errorSubjectCache, errorCodeRead, err)
	}
	var cached []AssetBalance
	if err := json.Unmarshal(payload, &cached); err != nil {
		return nil, WrapError(operationRehydrate, errorSubjectCache, errorCodeDecode, err)
	}
	assets := make([]AssetBalance, 0, len(cached))
	for _, asset := range cached {
		if _, ok := LookupMetadata(asset.ID); ok {
			assets = append(assets, asset)
		}
	}
	return assets, nil
}

func (engine *Engine) cachedTransactions(ctx context.Context) ([]Transaction, error) {
	payload, err := engine.cache.Get(ctx, CacheKeyTransactions)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, WrapError(operationRehydrate, errorSubjectCache, errorCodeRead, err)
	}
	transactions, err := decodeCachedTransactions(payload)
	if err != nil {
		return nil, WrapError(operationRehydrate, errorSubjectCache, errorCodeDecode, err)
	}
	return transactions, nil
}

func (engine *Engine) persistAssets(ctx context.Context, assets []AssetBalance) {
	engine.persist(ctx, CacheKeyAssets, assets)
}

func (engine *Engine) persistTransactions(ctx context.Context, transactions []Transaction) {
	if transactions == nil {
		transactions = []Transaction{}
	}
	engine.persist(ctx, CacheKeyTransactions, transactions)
}

func (engine *Engine) persist(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		engine.logOperation(ctx, OperationLog{Operation: operationPersist, Error: WrapError(operationPersist, errorSubjectCache, errorCodeEncode, err)})
		return
	}
	if err := engine.cache.Put(ctx, key, payload); err != nil {
		engine.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		engine.logOperation(ctx, OperationLog{Operation: operationPersist, Error: WrapError(operationPersist, errorSubjectCache, errorCodeWrite, err)})
	}
}

func cloneAssets(assets []AssetBalance) []AssetBalance {
	if assets == nil {
		return nil
	}
	return append([]AssetBalance(nil), assets...)
}

func cloneTransactions(transactions []Transaction) []Transaction {
	if transactions == nil {
		return nil
	}
	return append([]Transaction(nil), transactions...)
}
