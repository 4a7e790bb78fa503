package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CacheEntry mirrors the cache_entries table: one JSON document per key.
type CacheEntry struct {
	EntryID   string         `gorm:"type:uuid;primaryKey"`
	Key       string         `gorm:"not null;uniqueIndex:idx_cache_entries_key"`
	Value     datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

func (CacheEntry) TableName() string { return "cache_entries" }

func (entry *CacheEntry) BeforeCreate(tx *gorm.DB) error {
	if entry.EntryID == "" {
		entry.EntryID = uuid.NewString()
	}
	return nil
}

// Models lists every model the store needs migrated.
func Models() []any {
	return []any{&CacheEntry{}}
}
