package model

import (
	"errors"
	"time"
)

// 样本状态
const (
	StatusPendingReview = "pending_review" // 待质检
	StatusApproved      = "approved"       // 质检通过
	StatusRejected      = "rejected"       // 质检拒绝
	StatusAppealed      = "appealed"       // 申诉中
	StatusBatched       = "batched"        // 已入批次
)

// 质检决定
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// AnalysisResult AI 分析结果
// 由分类网关在样本首次落库前写入,之后不再修改
type AnalysisResult struct {
	Species      string  `json:"species"`
	Confidence   float64 `json:"confidence"`    // [0, 1]
	QualityScore int     `json:"quality_score"` // [0, 100]
}

// Validate 验证分析结果
func (a *AnalysisResult) Validate() error {
	if a.Species == "" {
		return errors.New("species is required")
	}
	if a.Confidence < 0 || a.Confidence > 1 {
		return errors.New("confidence must be in [0, 1]")
	}
	if a.QualityScore < 0 || a.QualityScore > 100 {
		return errors.New("quality score must be in [0, 100]")
	}
	return nil
}

// QCReview 质检记录
// 每次质检或管理员裁决整体替换,不允许部分更新
type QCReview struct {
	AgentID   string    `json:"agent_id"`
	AgentName string    `json:"agent_name"`
	DecidedAt time.Time `json:"decided_at"`
	Decision  string    `json:"decision"` // approved/rejected
	Reason    string    `json:"reason,omitempty"`
}

// Appeal 申诉记录
// 每个样本至多一条,创建后不可修改
type Appeal struct {
	Reason  string    `json:"reason"`
	FiledAt time.Time `json:"filed_at"`
}

// AnchorReceipt 上链回执
type AnchorReceipt struct {
	TxID       string    `json:"tx_id"`
	Chain      string    `json:"chain"`
	AnchoredAt time.Time `json:"anchored_at"`
}

// SampleModel 样本数据模型
type SampleModel struct {
	ID            string          `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CollectorID   string          `gorm:"type:varchar(64);not null;index" json:"collector_id"`
	CollectorName string          `gorm:"type:varchar(255);not null" json:"collector_name"`
	Latitude      float64         `gorm:"not null" json:"latitude"`
	Longitude     float64         `gorm:"not null" json:"longitude"`
	Quantity      float64         `gorm:"not null" json:"quantity"` // 千克
	ImageRef      string          `gorm:"type:varchar(255)" json:"image_ref"`
	Analysis      *AnalysisResult `gorm:"type:jsonb;serializer:json" json:"analysis,omitempty"`
	Status        string          `gorm:"type:varchar(32);not null;index" json:"status"`
	QCReview      *QCReview       `gorm:"type:jsonb;serializer:json" json:"qc_review,omitempty"`
	Appeal        *Appeal         `gorm:"type:jsonb;serializer:json" json:"appeal,omitempty"`
	BatchID       string          `gorm:"type:varchar(64);index" json:"batch_id,omitempty"`
	SubmittedAt   time.Time       `gorm:"not null;index" json:"submitted_at"`
	UpdatedAt     time.Time       `gorm:"not null;index" json:"updated_at"`
}

// TableName 指定表名
func (SampleModel) TableName() string {
	return "samples"
}

// Validate 验证样本模型
func (sm *SampleModel) Validate() error {
	if sm.ID == "" {
		return errors.New("sample ID is required")
	}
	if sm.CollectorID == "" {
		return errors.New("collector ID is required")
	}
	if sm.Quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	if sm.Latitude < -90 || sm.Latitude > 90 {
		return errors.New("latitude out of range")
	}
	if sm.Longitude < -180 || sm.Longitude > 180 {
		return errors.New("longitude out of range")
	}
	if sm.Status == "" {
		return errors.New("sample status is required")
	}
	if sm.Analysis != nil {
		if err := sm.Analysis.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsValidStatus 判断状态值是否合法
func IsValidStatus(status string) bool {
	switch status {
	case StatusPendingReview, StatusApproved, StatusRejected, StatusAppealed, StatusBatched:
		return true
	}
	return false
}
