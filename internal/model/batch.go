package model

import (
	"errors"
	"time"
)

// BatchModel 批次数据模型
// 批次创建后不可修改,唯一的例外是上链回执写回 Anchor 字段
type BatchModel struct {
	ID               string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ManufacturerID   string         `gorm:"type:varchar(64);not null;index" json:"manufacturer_id"`
	ManufacturerName string         `gorm:"type:varchar(255);not null" json:"manufacturer_name"`
	SampleIDs        []string       `gorm:"type:jsonb;serializer:json" json:"sample_ids"`
	SampleCount      int            `gorm:"not null" json:"sample_count"`
	ContentHash      string         `gorm:"type:varchar(64);not null;index" json:"content_hash"`
	Notes            string         `gorm:"type:text" json:"notes,omitempty"`
	Anchor           *AnchorReceipt `gorm:"type:jsonb;serializer:json" json:"anchor,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;index" json:"created_at"`
}

// TableName 指定表名
func (BatchModel) TableName() string {
	return "batches"
}

// Validate 验证批次模型
func (bm *BatchModel) Validate() error {
	if bm.ID == "" {
		return errors.New("batch ID is required")
	}
	if bm.ManufacturerID == "" {
		return errors.New("manufacturer ID is required")
	}
	if len(bm.SampleIDs) == 0 {
		return errors.New("batch must contain at least one sample")
	}
	if bm.ContentHash == "" {
		return errors.New("content hash is required")
	}
	return nil
}
