package repository

import (
	"time"

	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/lifecycle"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/model"
	"gorm.io/gorm"
)

// SampleRepository 样本仓储接口
type SampleRepository interface {
	Save(sample *model.SampleModel) error
	FindByID(id string) (*model.SampleModel, error)
	FindAll() ([]*model.SampleModel, error)
	FindByFilter(filter *SampleFilter) ([]*model.SampleModel, error)
	// UpdateStatusCAS 以 status 为条件做比较交换写入:
	// 仅当数据库中的状态仍等于 expectedStatus 时,才写入 sample 携带的
	// 新状态与裁定记录;未命中返回 lifecycle.ErrStaleState
	UpdateStatusCAS(sample *model.SampleModel, expectedStatus string) error
	// WithTx 返回绑定到指定事务的仓储
	WithTx(tx *gorm.DB) SampleRepository
}

// SampleFilter 样本查询过滤器,零值字段不参与过滤
type SampleFilter struct {
	Status      string
	CollectorID string
	BatchID     string
	StartTime   *time.Time
	EndTime     *time.Time
	Limit       int
	Offset      int
}

// sampleRepository 样本仓储实现
type sampleRepository struct {
	db *gorm.DB
}

// NewSampleRepository 创建样本仓储
func NewSampleRepository(db *gorm.DB) SampleRepository {
	return &sampleRepository{db: db}
}

// Save 保存样本
func (r *sampleRepository) Save(sample *model.SampleModel) error {
	return r.db.Save(sample).Error
}

// FindByID 根据 ID 查找样本
func (r *sampleRepository) FindByID(id string) (*model.SampleModel, error) {
	var sample model.SampleModel
	if err := r.db.Where("id = ?", id).First(&sample).Error; err != nil {
		return nil, err
	}
	return &sample, nil
}

// FindAll 查找所有样本
func (r *sampleRepository) FindAll() ([]*model.SampleModel, error) {
	var samples []*model.SampleModel
	err := r.db.Order("submitted_at DESC").Find(&samples).Error
	return samples, err
}

// FindByFilter 根据过滤器查找样本
func (r *sampleRepository) FindByFilter(filter *SampleFilter) ([]*model.SampleModel, error) {
	var samples []*model.SampleModel
	query := r.db.Model(&model.SampleModel{})

	if filter != nil {
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.CollectorID != "" {
			query = query.Where("collector_id = ?", filter.CollectorID)
		}
		if filter.BatchID != "" {
			query = query.Where("batch_id = ?", filter.BatchID)
		}
		if filter.StartTime != nil {
			query = query.Where("submitted_at >= ?", *filter.StartTime)
		}
		if filter.EndTime != nil {
			query = query.Where("submitted_at <= ?", *filter.EndTime)
		}
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			query = query.Offset(filter.Offset)
		}
	}

	err := query.Order("submitted_at DESC").Find(&samples).Error
	return samples, err
}

// UpdateStatusCAS 比较交换状态写入
// 两个并发写入者中只有一个能命中 WHERE 条件,另一个拿到 ErrStaleState,
// 永远不会出现静默的后写覆盖
func (r *sampleRepository) UpdateStatusCAS(sample *model.SampleModel, expectedStatus string) error {
	sample.UpdatedAt = time.Now()

	res := r.db.Model(&model.SampleModel{}).
		Where("id = ? AND status = ?", sample.ID, expectedStatus).
		Select("status", "qc_review", "appeal", "batch_id", "updated_at").
		Updates(sample)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return lifecycle.ErrStaleState
	}
	return nil
}

// WithTx 绑定事务
func (r *sampleRepository) WithTx(tx *gorm.DB) SampleRepository {
	return &sampleRepository{db: tx}
}
