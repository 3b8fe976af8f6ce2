package repository

import (
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/model"
	"gorm.io/gorm"
)

// StateHistoryRepository 状态历史仓储接口
type StateHistoryRepository interface {
	Save(history *model.StateHistoryModel) error
	FindBySampleID(sampleID string) ([]*model.StateHistoryModel, error)
	WithTx(tx *gorm.DB) StateHistoryRepository
}

// stateHistoryRepository 状态历史仓储实现
type stateHistoryRepository struct {
	db *gorm.DB
}

// NewStateHistoryRepository 创建状态历史仓储
func NewStateHistoryRepository(db *gorm.DB) StateHistoryRepository {
	return &stateHistoryRepository{db: db}
}

// Save 保存状态历史
func (r *stateHistoryRepository) Save(history *model.StateHistoryModel) error {
	return r.db.Create(history).Error
}

// FindBySampleID 查找样本的状态历史
func (r *stateHistoryRepository) FindBySampleID(sampleID string) ([]*model.StateHistoryModel, error) {
	var histories []*model.StateHistoryModel
	err := r.db.Where("sample_id = ?", sampleID).
		Order("created_at ASC").Find(&histories).Error
	return histories, err
}

// WithTx 绑定事务
func (r *stateHistoryRepository) WithTx(tx *gorm.DB) StateHistoryRepository {
	return &stateHistoryRepository{db: tx}
}
