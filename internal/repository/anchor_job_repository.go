package repository

import (
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/model"
	"gorm.io/gorm"
)

// AnchorJobRepository 上链任务仓储接口
type AnchorJobRepository interface {
	Save(job *model.AnchorJobModel) error
	FindByID(id string) (*model.AnchorJobModel, error)
	FindByBatchID(batchID string) ([]*model.AnchorJobModel, error)
	FindPending() ([]*model.AnchorJobModel, error)
}

// anchorJobRepository 上链任务仓储实现
type anchorJobRepository struct {
	db *gorm.DB
}

// NewAnchorJobRepository 创建上链任务仓储
func NewAnchorJobRepository(db *gorm.DB) AnchorJobRepository {
	return &anchorJobRepository{db: db}
}

// Save 保存上链任务
func (r *anchorJobRepository) Save(job *model.AnchorJobModel) error {
	return r.db.Save(job).Error
}

// FindByID 根据 ID 查找上链任务
func (r *anchorJobRepository) FindByID(id string) (*model.AnchorJobModel, error) {
	var job model.AnchorJobModel
	if err := r.db.Where("id = ?", id).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// FindByBatchID 查找批次的上链任务
func (r *anchorJobRepository) FindByBatchID(batchID string) ([]*model.AnchorJobModel, error) {
	var jobs []*model.AnchorJobModel
	err := r.db.Where("batch_id = ?", batchID).
		Order("created_at DESC").Find(&jobs).Error
	return jobs, err
}

// FindPending 查找待处理的上链任务,服务重启后由 worker 重新入队
func (r *anchorJobRepository) FindPending() ([]*model.AnchorJobModel, error) {
	var jobs []*model.AnchorJobModel
	err := r.db.Where("status = ?", model.AnchorJobPending).
		Order("created_at ASC").Find(&jobs).Error
	return jobs, err
}
