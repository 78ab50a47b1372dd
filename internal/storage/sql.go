package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fireguard-store/storefront/internal/models"

	"gorm.io/gorm"
)

// SQLSlot 基于数据库表 cart_snapshots 的槽位
type SQLSlot struct {
	db *gorm.DB
}

// NewSQLSlot 创建数据库槽位
func NewSQLSlot(db *gorm.DB) *SQLSlot {
	return &SQLSlot{db: db}
}

// Get 读取槽位
func (s *SQLSlot) Get(ctx context.Context, key string) ([]byte, bool, error) {
	db, key, err := s.prepare(ctx, key)
	if err != nil {
		return nil, false, err
	}
	var snapshot models.CartSnapshot
	err = db.Where("slot_key = ?", key).First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sql slot get failed: %w", err)
	}
	return []byte(snapshot.Payload), true, nil
}

// Set 写入槽位（存在则更新，不存在则创建）
func (s *SQLSlot) Set(ctx context.Context, key string, value []byte) error {
	db, key, err := s.prepare(ctx, key)
	if err != nil {
		return err
	}
	now := time.Now()
	var existing models.CartSnapshot
	err = db.Where("slot_key = ?", key).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		snapshot := &models.CartSnapshot{
			SlotKey:   key,
			Payload:   string(value),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := db.Create(snapshot).Error; err != nil {
			return fmt.Errorf("sql slot create failed: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("sql slot get failed: %w", err)
	}
	updates := map[string]interface{}{
		"payload":    string(value),
		"updated_at": now,
	}
	if err := db.Model(&existing).Updates(updates).Error; err != nil {
		return fmt.Errorf("sql slot update failed: %w", err)
	}
	return nil
}

// Delete 删除槽位
func (s *SQLSlot) Delete(ctx context.Context, key string) error {
	db, key, err := s.prepare(ctx, key)
	if err != nil {
		return err
	}
	if err := db.Where("slot_key = ?", key).Delete(&models.CartSnapshot{}).Error; err != nil {
		return fmt.Errorf("sql slot delete failed: %w", err)
	}
	return nil
}

// CompareAndSwap 当前内容等于 old 时写入 value，返回是否写入
func (s *SQLSlot) CompareAndSwap(ctx context.Context, key string, old, value []byte) (bool, error) {
	db, key, err := s.prepare(ctx, key)
	if err != nil {
		return false, err
	}
	result := db.Model(&models.CartSnapshot{}).
		Where("slot_key = ? AND payload = ?", key, string(old)).
		Updates(map[string]interface{}{
			"payload":    string(value),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("sql slot compare and swap failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *SQLSlot) prepare(ctx context.Context, key string) (*gorm.DB, string, error) {
	if s == nil || s.db == nil {
		return nil, "", ErrUnavailable
	}
	key, err := normalizeKey(key)
	if err != nil {
		return nil, "", err
	}
	return s.db.WithContext(ctx), key, nil
}
