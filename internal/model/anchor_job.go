package model

import (
	"errors"
	"time"
)

// 上链任务状态
const (
	AnchorJobPending = "pending"
	AnchorJobSuccess = "success"
	AnchorJobFailed  = "failed"
)

// AnchorJobModel 上链任务数据模型
// 批次提交后异步上链,失败重试;任务的成败不影响批次本身
type AnchorJobModel struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	BatchID     string    `gorm:"type:varchar(64);not null;index" json:"batch_id"`
	ContentHash string    `gorm:"type:varchar(64);not null" json:"content_hash"`
	Status      string    `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"` // pending/success/failed
	RetryCount  int       `gorm:"type:int;default:0" json:"retry_count"`
	LastError   string    `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt   time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

// TableName 指定表名
func (AnchorJobModel) TableName() string {
	return "anchor_jobs"
}

// Validate 验证上链任务模型
func (ajm *AnchorJobModel) Validate() error {
	if ajm.ID == "" {
		return errors.New("anchor job ID is required")
	}
	if ajm.BatchID == "" {
		return errors.New("batch ID is required")
	}
	if ajm.ContentHash == "" {
		return errors.New("content hash is required")
	}
	if ajm.Status == "" {
		ajm.Status = AnchorJobPending
	}
	return nil
}
