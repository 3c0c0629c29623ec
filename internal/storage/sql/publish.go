package sql

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"newsletter/backend/internal/domain"
	"newsletter/backend/internal/storage"
)

// ========== Publish Receipt Repository ==========
//
// 回执表走 GORM：主键列名 key 在 MySQL 下是保留字，交给方言层转义；
// 占位声明依赖 ON CONFLICT DO NOTHING / INSERT IGNORE 的方言差异。

// CreateReceipt 创建发布回执
func (s *Store) CreateReceipt(receipt *domain.PublishReceipt) error {
	return s.gormDB.Create(receipt).Error
}

// GetReceipt 根据幂等键获取发布回执
func (s *Store) GetReceipt(key string) (*domain.PublishReceipt, error) {
	var receipt domain.PublishReceipt
	err := s.gormDB.Where(&domain.PublishReceipt{Key: key}).First(&receipt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrReceiptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// CompleteReceipt 写入回执的最终计数并标记完成
func (s *Store) CompleteReceipt(receipt *domain.PublishReceipt) error {
	result := s.gormDB.Model(&domain.PublishReceipt{}).
		Where(&domain.PublishReceipt{Key: receipt.Key}).
		Updates(map[string]interface{}{
			"delivered":    receipt.Delivered,
			"skipped":      receipt.Skipped,
			"failed":       receipt.Failed,
			"completed_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrReceiptNotFound
	}
	return nil
}

// MarkDelivered 为 (key, subscriberID) 声明投递占位
//
// 复合主键冲突让并发声明恰好成功一次。
func (s *Store) MarkDelivered(key, subscriberID string) (bool, error) {
	record := domain.DeliveryRecord{Key: key, SubscriberID: subscriberID}
	result := s.gormDB.Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
