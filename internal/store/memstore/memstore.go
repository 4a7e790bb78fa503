package memstore

import (
	"context"

	"github.com/MarkoPoloResearchLab/hyperx/pkg/gateway"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/wallet"
	"github.com/patrickmn/go-cache"
)

const tokenKey = "session.tokens"

// Store keeps cache entries and the token pair in process memory.
type Store struct {
	entries *cache.Cache
}

// New returns an empty Store whose entries never expire.
func New() *Store {
	return &Store{entries: cache.New(cache.NoExpiration, 0)}
}

// Get returns a copy of the bytes stored under key, or wallet.ErrCacheMiss.
func (store *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, found := store.entries.Get(key)
	if !found {
		return nil, wallet.ErrCacheMiss
	}
	payload, ok := value.([]byte)
	if !ok {
		return nil, wallet.ErrCacheMiss
	}
	return append([]byte(nil), payload...), nil
}

// Put replaces the bytes stored under key.
func (store *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	store.entries.Set(key, append([]byte(nil), value...), cache.NoExpiration)
	return nil
}

// Load returns the stored token pair or a zero pair.
func (store *Store) Load(ctx context.Context) (gateway.TokenPair, error) {
	if err := ctx.Err(); err != nil {
		return gateway.TokenPair{}, err
	}
	value, found := store.entries.Get(tokenKey)
	if !found {
		return gateway.TokenPair{}, nil
	}
	pair, _ := value.(gateway.TokenPair)
	return pair, nil
}

// Save replaces the stored token pair.
func (store *Store) Save(ctx context.Context, pair gateway.TokenPair) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	store.entries.Set(tokenKey, pair, cache.NoExpiration)
	return nil
}

// Clear removes the stored token pair.
func (store *Store) Clear(ctx context.Context) error {
	store.entries.Delete(tokenKey)
	return nil
}
