package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVEntry 对应 migrations 中的 kv_entries 表
type KVEntry struct {
	Key       string `gorm:"primaryKey;type:text"`
	Value     []byte `gorm:"type:bytea;not null"`
	UpdatedAt time.Time
}

func (KVEntry) TableName() string {
	return "kv_entries"
}

// PostgresBackend 状态保存在 PostgreSQL
type PostgresBackend struct {
	db *gorm.DB
}

func NewPostgresBackend(db *gorm.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var e KVEntry
	err := b.db.WithContext(ctx).Where("key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("查询状态失败: %w", err)
	}
	return e.Value, true, nil
}

// Apply 单个数据库事务内完成整个批次
func (b *PostgresBackend) Apply(ctx context.Context, batch []Write) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, w := range batch {
			if w.Delete {
				if err := tx.Where("key = ?", w.Key).Delete(&KVEntry{}).Error; err != nil {
					return fmt.Errorf("删除 %s 失败: %w", w.Key, err)
				}
				continue
			}
			entry := KVEntry{Key: w.Key, Value: w.Value, UpdatedAt: time.Now()}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&entry).Error
			if err != nil {
				return fmt.Errorf("写入 %s 失败: %w", w.Key, err)
			}
		}
		return nil
	})
}

func (b *PostgresBackend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
