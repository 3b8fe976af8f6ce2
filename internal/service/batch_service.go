package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/authz"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/lifecycle"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/metrics"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/model"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/repository"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/utils"
	"gorm.io/gorm"
)

// BatchService 批次服务接口
type BatchService interface {
	// Create 把一组已通过质检的样本装配为批次
	Create(ctx context.Context, req *CreateBatchRequest) (*model.BatchModel, error)
	Get(id string) (*model.BatchModel, error)
	List() ([]*model.BatchModel, error)
	ListByManufacturer(manufacturerID string) ([]*model.BatchModel, error)
	// Verify 重算批次内容哈希并与给定值比对,供第三方扫码校验
	Verify(id string, contentHash string) (*VerifyResult, error)
	// AnchorJobs 查询批次的上链任务
	AnchorJobs(batchID string) ([]*model.AnchorJobModel, error)
}

// BatchAnchorEnqueuer 批次上链入队接口,由 anchor.Worker 实现
type BatchAnchorEnqueuer interface {
	Enqueue(batchID, contentHash string) error
}

// CreateBatchRequest 创建批次请求
// @Description 制造商装配批次的请求参数
type CreateBatchRequest struct {
	ID        string   `json:"id" example:"HB-2025-001"`      // 批次 ID,缺省自动生成
	SampleIDs []string `json:"sample_ids" binding:"required"` // 样本 ID 列表,重复项静默折叠
	Notes     string   `json:"notes" example:"秋季首批"`          // 备注
}

// VerifyResult 批次校验结果
// @Description 内容哈希校验结果
type VerifyResult struct {
	BatchID      string `json:"batch_id"`
	Match        bool   `json:"match"`
	ExpectedHash string `json:"expected_hash"`
	ProvidedHash string `json:"provided_hash"`
}

// batchService 批次服务实现
type batchService struct {
	db          *gorm.DB
	sampleRepo  repository.SampleRepository
	batchRepo   repository.BatchRepository
	historyRepo repository.StateHistoryRepository
	jobRepo     repository.AnchorJobRepository
	auditLogSvc AuditLogService
	enqueuer    BatchAnchorEnqueuer
	notifier    StatusNotifier
}

// NewBatchService 创建批次服务
// enqueuer 为 nil 时不请求上链(未配置锚定服务)
func NewBatchService(db *gorm.DB, auditLogSvc AuditLogService, enqueuer BatchAnchorEnqueuer, notifier StatusNotifier) BatchService {
	return &batchService{
		db:          db,
		sampleRepo:  repository.NewSampleRepository(db),
		batchRepo:   repository.NewBatchRepository(db),
		historyRepo: repository.NewStateHistoryRepository(db),
		jobRepo:     repository.NewAnchorJobRepository(db),
		auditLogSvc: auditLogSvc,
		enqueuer:    enqueuer,
		notifier:    notifier,
	}
}

// ComputeContentHash 计算批次内容哈希
// 样本 ID 先排序再参与摘要,哈希与提交顺序无关;时间只取到日,
// 同一天对同一组样本重复装配得到相同的哈希
func ComputeContentHash(sampleIDs []string, manufacturerID string, createdAt time.Time) string {
	ids := append([]string(nil), sampleIDs...)
	sort.Strings(ids)

	payload := strings.Join(ids, ",") + "|" + manufacturerID + "|" + createdAt.UTC().Format("2006-01-02")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// dedupeSampleIDs 去重并保留首次出现的顺序
func dedupeSampleIDs(sampleIDs []string) []string {
	seen := make(map[string]bool, len(sampleIDs))
	deduped := make([]string, 0, len(sampleIDs))
	for _, id := range sampleIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		deduped = append(deduped, id)
	}
	return deduped
}

// Create 创建批次
// 资格检查与成员状态翻转在同一个事务里执行:任何一个样本在检查与
// 提交之间被并发修改,整个装配失败回滚,没有样本被动过
func (s *batchService) Create(ctx context.Context, req *CreateBatchRequest) (*model.BatchModel, error) {
	actor := actorFromContext(ctx)
	if !authz.CanPerform(actor.Role, authz.ActionCreateBatch) {
		return nil, &lifecycle.ForbiddenError{Role: string(actor.Role), Action: string(authz.ActionCreateBatch)}
	}

	sampleIDs := dedupeSampleIDs(req.SampleIDs)
	if len(sampleIDs) == 0 {
		return nil, &lifecycle.ValidationError{Field: "sample_ids", Message: "must not be empty"}
	}

	batchID := strings.TrimSpace(req.ID)
	if batchID == "" {
		batchID = "HB-" + strings.ToUpper(uuid.New().String()[:8])
	}

	now := time.Now()
	batch := &model.BatchModel{
		ID:               batchID,
		ManufacturerID:   actor.ID,
		ManufacturerName: actor.Name,
		SampleIDs:        sampleIDs,
		SampleCount:      len(sampleIDs),
		ContentHash:      ComputeContentHash(sampleIDs, actor.ID, now),
		Notes:            utils.SanitizeString(strings.TrimSpace(req.Notes)),
		CreatedAt:        now,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		sampleRepo := s.sampleRepo.WithTx(tx)
		batchRepo := s.batchRepo.WithTx(tx)
		historyRepo := s.historyRepo.WithTx(tx)

		// 先探测再写入,客户端指定的重复批次 ID 报校验错误而不是主键冲突
		if _, err := batchRepo.FindByID(batch.ID); err == nil {
			return &lifecycle.ValidationError{Field: "id", Message: "batch " + batch.ID + " already exists"}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// 全量资格检查,任何一个不合格都整单失败,不动任何样本
		loaded := make([]*model.SampleModel, 0, len(sampleIDs))
		for _, id := range sampleIDs {
			sample, err := sampleRepo.FindByID(id)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &lifecycle.NotEligibleError{SampleID: id, Reason: "sample not found"}
				}
				return err
			}
			if sample.Status != model.StatusApproved {
				return &lifecycle.NotEligibleError{SampleID: id, Reason: fmt.Sprintf("status is %s", sample.Status)}
			}
			if sample.BatchID != "" {
				return &lifecycle.NotEligibleError{SampleID: id, Reason: "already assigned to batch " + sample.BatchID}
			}
			loaded = append(loaded, sample)
		}

		if err := batchRepo.Create(batch); err != nil {
			return fmt.Errorf("failed to create batch: %w", err)
		}

		for _, sample := range loaded {
			readStatus := sample.Status
			sample.Status = model.StatusBatched
			sample.BatchID = batch.ID
			if err := sampleRepo.UpdateStatusCAS(sample, readStatus); err != nil {
				if errors.Is(err, lifecycle.ErrStaleState) {
					metrics.RecordStaleWrite()
					return lifecycle.ErrConcurrentModification
				}
				return err
			}
			_ = historyRepo.Save(&model.StateHistoryModel{
				ID:         uuid.New().String(),
				SampleID:   sample.ID,
				FromStatus: readStatus,
				ToStatus:   model.StatusBatched,
				Reason:     "included in batch " + batch.ID,
				Operator:   actor.ID,
				CreatedAt:  time.Now(),
			})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordBatchCreated()
	s.audit(ctx, actor, "create_batch", batch.ID, map[string]interface{}{
		"sample_ids":   sampleIDs,
		"content_hash": batch.ContentHash,
	})

	if s.notifier != nil {
		for _, id := range sampleIDs {
			s.notifier.NotifyStatusChange(id, model.StatusApproved, model.StatusBatched)
		}
	}

	// 上链是尽力而为的异步步骤,入队失败只记录,不回滚批次
	if s.enqueuer != nil {
		if err := s.enqueuer.Enqueue(batch.ID, batch.ContentHash); err != nil {
			metrics.RecordAnchorAttempt("enqueue_failed")
		}
	}

	return batch, nil
}

// Get 获取批次详情
func (s *batchService) Get(id string) (*model.BatchModel, error) {
	return s.batchRepo.FindByID(id)
}

// List 查询所有批次
func (s *batchService) List() ([]*model.BatchModel, error) {
	return s.batchRepo.FindAll()
}

// ListByManufacturer 查询制造商的批次
func (s *batchService) ListByManufacturer(manufacturerID string) ([]*model.BatchModel, error) {
	return s.batchRepo.FindByManufacturer(manufacturerID)
}

// Verify 校验批次内容哈希
// 持有同样的样本清单、制造商和创建日期的任何第三方都能重算出
// 相同的哈希,不需要信任本系统的数据库
func (s *batchService) Verify(id string, contentHash string) (*VerifyResult, error) {
	batch, err := s.batchRepo.FindByID(id)
	if err != nil {
		return nil, err
	}

	expected := ComputeContentHash(batch.SampleIDs, batch.ManufacturerID, batch.CreatedAt)
	return &VerifyResult{
		BatchID:      batch.ID,
		Match:        expected == contentHash,
		ExpectedHash: expected,
		ProvidedHash: contentHash,
	}, nil
}

// AnchorJobs 查询批次的上链任务
func (s *batchService) AnchorJobs(batchID string) ([]*model.AnchorJobModel, error) {
	return s.jobRepo.FindByBatchID(batchID)
}

// audit 记录审计日志
func (s *batchService) audit(ctx context.Context, actor Actor, action, batchID string, details interface{}) {
	if s.auditLogSvc == nil || actor.ID == "" {
		return
	}
	_ = s.auditLogSvc.RecordAction(ctx, actor.ID, string(actor.Role), action, "batch", batchID, details)
}
