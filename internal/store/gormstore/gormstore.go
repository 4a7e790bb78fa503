package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/hyperx/pkg/gateway"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/wallet"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// TokenKey holds the serialized gateway.TokenPair.
	TokenKey = "session.tokens"

	errorOperationStore = "store"
	errorSubjectEntry   = "entry"
	errorSubjectTokens  = "tokens"
	errorCodeMigrate    = "migrate"
	errorCodeGet        = "get"
	errorCodePut        = "put"
	errorCodeDelete     = "delete"
	errorCodeDecode     = "decode"
	errorCodeEncode     = "encode"
)

// Store implements wallet.Cache and gateway.TokenStore using GORM.
type Store struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db, nowFn: time.Now}
}

// Migrate creates or updates the cache_entries table.
func (store *Store) Migrate(ctx context.Context) error {
	if err := store.db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return wrapStoreError(errorSubjectEntry, errorCodeMigrate, err)
	}
	return nil
}

// Get returns the raw JSON stored under key, or wallet.ErrCacheMiss.
func (store *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var entry CacheEntry
	err := store.db.WithContext(ctx).Where("key = ?", key).Take(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wallet.ErrCacheMiss
		}
		return nil, wrapStoreError(errorSubjectEntry, errorCodeGet, err)
	}
	return []byte(entry.Value), nil
}

// Put upserts the JSON document stored under key.
func (store *Store) Put(ctx context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return wrapStoreError(errorSubjectEntry, errorCodeEncode, errors.New("value is not valid json"))
	}
	now := store.nowFn().UTC()
	entry := CacheEntry{
		Key:       key,
		Value:     datatypes.JSON(append([]byte(nil), value...)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
	if err != nil {
		return wrapStoreError(errorSubjectEntry, errorCodePut, err)
	}
	return nil
}

// Delete removes key; deleting an absent key is not an error.
func (store *Store) Delete(ctx context.Context, key string) error {
	if err := store.db.WithContext(ctx).Where("key = ?", key).Delete(&CacheEntry{}).Error; err != nil {
		return wrapStoreError(errorSubjectEntry, errorCodeDelete, err)
	}
	return nil
}

// Load returns the stored token pair, or a zero pair when none is stored.
func (store *Store) Load(ctx context.Context) (gateway.TokenPair, error) {
	payload, err := store.Get(ctx, TokenKey)
	if errors.Is(err, wallet.ErrCacheMiss) {
		return gateway.TokenPair{}, nil
	}
	if err != nil {
		return gateway.TokenPair{}, err
	}
	var pair gateway.TokenPair
	if err := json.Unmarshal(payload, &pair); err != nil {
		return gateway.TokenPair{}, wrapStoreError(errorSubjectTokens, errorCodeDecode, err)
	}
	return pair, nil
}

// Save replaces the stored token pair.
func (store *Store) Save(ctx context.Context, pair gateway.TokenPair) error {
	payload, err := json.Marshal(pair)
	if err != nil {
		return wrapStoreError(errorSubjectTokens, errorCodeEncode, err)
	}
	return store.Put(ctx, TokenKey, payload)
}

// Clear removes the stored token pair.
func (store *Store) Clear(ctx context.Context) error {
	return store.Delete(ctx, TokenKey)
}

func wrapStoreError(subject string, code string, err error) error {
	return wallet.WrapError(errorOperationStore, subject, code, err)
}
