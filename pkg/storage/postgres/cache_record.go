package postgres

import "time"

// CacheRecord holds the latest serialized candle buffer stored under one key.
type CacheRecord struct {
	Key   string `gorm:"primaryKey;type:text"`
	Value []byte `gorm:"type:bytea;not null"`

	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides the default table name for GORM.
func (CacheRecord) TableName() string {
	return "kline_cache"
}
