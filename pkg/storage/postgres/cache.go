package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"klinecache/pkg/storage"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Get returns the value stored under key, or storage.ErrNotFound.
func (p *PostgresClient) Get(ctx context.Context, key string) ([]byte, error) {
	var record CacheRecord
	err := p.DB.WithContext(ctx).
		Where("key = ?", key).
		First(&record).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cache record %q: %w", key, err)
	}
	return record.Value, nil
}

// Put upserts the full value for key.
func (p *PostgresClient) Put(ctx context.Context, key string, value []byte) error {
	record := &CacheRecord{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}

	tx := p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(record)

	if tx.Error != nil {
		return fmt.Errorf("put cache record %q: %w", key, tx.Error)
	}
	return nil
}
