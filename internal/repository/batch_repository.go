package repository

import (
	"time"

	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/model"
	"gorm.io/gorm"
)

// BatchRepository 批次仓储接口
type BatchRepository interface {
	Create(batch *model.BatchModel) error
	FindByID(id string) (*model.BatchModel, error)
	FindAll() ([]*model.BatchModel, error)
	FindByManufacturer(manufacturerID string) ([]*model.BatchModel, error)
	// UpdateAnchor 写回上链回执,批次创建后唯一允许的修改
	UpdateAnchor(batchID string, receipt *model.AnchorReceipt) error
	WithTx(tx *gorm.DB) BatchRepository
}

// batchRepository 批次仓储实现
type batchRepository struct {
	db *gorm.DB
}

// NewBatchRepository 创建批次仓储
func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &batchRepository{db: db}
}

// Create 创建批次
func (r *batchRepository) Create(batch *model.BatchModel) error {
	return r.db.Create(batch).Error
}

// FindByID 根据 ID 查找批次
func (r *batchRepository) FindByID(id string) (*model.BatchModel, error) {
	var batch model.BatchModel
	if err := r.db.Where("id = ?", id).First(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

// FindAll 查找所有批次
func (r *batchRepository) FindAll() ([]*model.BatchModel, error) {
	var batches []*model.BatchModel
	err := r.db.Order("created_at DESC").Find(&batches).Error
	return batches, err
}

// FindByManufacturer 查找制造商的批次
func (r *batchRepository) FindByManufacturer(manufacturerID string) ([]*model.BatchModel, error) {
	var batches []*model.BatchModel
	err := r.db.Where("manufacturer_id = ?", manufacturerID).
		Order("created_at DESC").Find(&batches).Error
	return batches, err
}

// UpdateAnchor 写回上链回执
func (r *batchRepository) UpdateAnchor(batchID string, receipt *model.AnchorReceipt) error {
	if receipt.AnchoredAt.IsZero() {
		receipt.AnchoredAt = time.Now()
	}
	return r.db.Model(&model.BatchModel{}).
		Where("id = ?", batchID).
		Select("anchor").
		Updates(&model.BatchModel{Anchor: receipt}).Error
}

// WithTx 绑定事务
func (r *batchRepository) WithTx(tx *gorm.DB) BatchRepository {
	return &batchRepository{db: tx}
}
