package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/authz"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/classifier"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/lifecycle"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/metrics"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/model"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/repository"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/utils"
	"gorm.io/gorm"
)

// SampleService 样本服务接口
type SampleService interface {
	Create(ctx context.Context, req *CreateSampleRequest) (*model.SampleModel, error)
	Get(id string) (*model.SampleModel, error)
	List(filter *repository.SampleFilter) ([]*model.SampleModel, error)
	History(id string) ([]*model.StateHistoryModel, error)
	// Decide 质检裁定,整体替换 qc_review 记录
	Decide(ctx context.Context, id string, req *DecideRequest) (*model.SampleModel, error)
	// FileAppeal 采集员对拒绝结果提交申诉,每个样本至多一次
	FileAppeal(ctx context.Context, id string, req *AppealRequest) (*model.SampleModel, error)
	// ResolveAppeal 管理员裁决申诉: override 改判通过,uphold 维持拒绝
	ResolveAppeal(ctx context.Context, id string, req *ResolveAppealRequest) (*model.SampleModel, error)
	// ForceDecide 管理员绕过申诉路径直接改判
	ForceDecide(ctx context.Context, id string, req *ForceDecideRequest) (*model.SampleModel, error)
}

// CreateSampleRequest 提交样本请求
// @Description 采集员提交样本的请求参数
type CreateSampleRequest struct {
	Latitude  float64 `json:"latitude" example:"30.2741" binding:"required"`            // 采集纬度
	Longitude float64 `json:"longitude" example:"120.1551" binding:"required"`          // 采集经度
	Quantity  float64 `json:"quantity" example:"12.5" binding:"required"`               // 数量(千克)
	ImageRef  string  `json:"image_ref" example:"img://samples/abc" binding:"required"` // 样本图片引用
}

// DecideRequest 质检裁定请求
// @Description 质检员通过或拒绝样本的请求参数
type DecideRequest struct {
	Decision string `json:"decision" example:"approved" binding:"required"` // approved/rejected
	Reason   string `json:"reason" example:"色泽不达标"`                         // 拒绝时必填
}

// AppealRequest 申诉请求
// @Description 采集员申诉的请求参数
type AppealRequest struct {
	Reason string `json:"reason" example:"已重新取样" binding:"required"` // 申诉理由
}

// ResolveAppealRequest 申诉裁决请求
// @Description 管理员裁决申诉的请求参数
type ResolveAppealRequest struct {
	Resolution string `json:"resolution" example:"override" binding:"required"` // override/uphold
	Reason     string `json:"reason" example:"复检合格"`                            // 裁决说明
}

// ForceDecideRequest 强制改判请求
// @Description 管理员强制改判的请求参数
type ForceDecideRequest struct {
	Decision string `json:"decision" example:"approved" binding:"required"` // approved/rejected
	Reason   string `json:"reason" example:"抽检复核"`                          // 改判理由
}

// 申诉裁决方式
const (
	ResolutionOverride = "override"
	ResolutionUphold   = "uphold"
)

// maxReasonLen 自由文本理由的最大长度
const maxReasonLen = 500

// sampleService 样本服务实现
type sampleService struct {
	db          *gorm.DB
	sampleRepo  repository.SampleRepository
	historyRepo repository.StateHistoryRepository
	classifier  classifier.Classifier
	auditLogSvc AuditLogService
	notifier    StatusNotifier
}

// NewSampleService 创建样本服务
func NewSampleService(db *gorm.DB, cls classifier.Classifier, auditLogSvc AuditLogService, notifier StatusNotifier) SampleService {
	return &sampleService{
		db:          db,
		sampleRepo:  repository.NewSampleRepository(db),
		historyRepo: repository.NewStateHistoryRepository(db),
		classifier:  cls,
		auditLogSvc: auditLogSvc,
		notifier:    notifier,
	}
}

// Create 提交样本
// 分类网关同步调用,分析失败则整个提交中止,不落库
func (s *sampleService) Create(ctx context.Context, req *CreateSampleRequest) (*model.SampleModel, error) {
	actor := actorFromContext(ctx)
	if !authz.CanPerform(actor.Role, authz.ActionSubmitSample) {
		return nil, &lifecycle.ForbiddenError{Role: string(actor.Role), Action: string(authz.ActionSubmitSample)}
	}

	if req.Quantity <= 0 {
		return nil, &lifecycle.ValidationError{Field: "quantity", Message: "must be positive"}
	}
	if req.Latitude < -90 || req.Latitude > 90 {
		return nil, &lifecycle.ValidationError{Field: "latitude", Message: "out of range"}
	}
	if req.Longitude < -180 || req.Longitude > 180 {
		return nil, &lifecycle.ValidationError{Field: "longitude", Message: "out of range"}
	}
	if strings.TrimSpace(req.ImageRef) == "" {
		return nil, &lifecycle.ValidationError{Field: "image_ref", Message: "is required"}
	}

	analysis, err := s.classifier.Analyze(ctx, req.ImageRef)
	if err != nil {
		return nil, &lifecycle.AnalysisError{Cause: err}
	}
	// 分类网关是外部系统,返回的物种名按不可信输入校验
	if err := utils.ValidateSpeciesName(analysis.Species); err != nil {
		return nil, &lifecycle.AnalysisError{Cause: err}
	}

	now := time.Now()
	sample := &model.SampleModel{
		ID:            "HC-" + strings.ToUpper(uuid.New().String()[:8]),
		CollectorID:   actor.ID,
		CollectorName: actor.Name,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Quantity:      req.Quantity,
		ImageRef:      req.ImageRef,
		Analysis:      analysis,
		Status:        model.StatusPendingReview,
		SubmittedAt:   now,
		UpdatedAt:     now,
	}
	if err := sample.Validate(); err != nil {
		return nil, &lifecycle.ValidationError{Message: err.Error()}
	}

	if err := s.sampleRepo.Save(sample); err != nil {
		return nil, fmt.Errorf("failed to save sample: %w", err)
	}

	s.recordHistory(sample.ID, "", model.StatusPendingReview, "sample submitted", actor.ID)
	metrics.RecordSampleCreated()
	s.audit(ctx, actor, "submit", sample.ID, map[string]interface{}{
		"species":    analysis.Species,
		"confidence": analysis.Confidence,
	})

	return sample, nil
}

// Get 获取样本详情
func (s *sampleService) Get(id string) (*model.SampleModel, error) {
	return s.sampleRepo.FindByID(id)
}

// List 查询样本列表
func (s *sampleService) List(filter *repository.SampleFilter) ([]*model.SampleModel, error) {
	return s.sampleRepo.FindByFilter(filter)
}

// History 查询样本的状态历史
func (s *sampleService) History(id string) ([]*model.StateHistoryModel, error) {
	return s.historyRepo.FindBySampleID(id)
}

// Decide 质检裁定
func (s *sampleService) Decide(ctx context.Context, id string, req *DecideRequest) (*model.SampleModel, error) {
	actor := actorFromContext(ctx)
	if !authz.CanPerform(actor.Role, authz.ActionQCDecide) {
		return nil, &lifecycle.ForbiddenError{Role: string(actor.Role), Action: string(authz.ActionQCDecide)}
	}

	sample, err := s.sampleRepo.FindByID(id)
	if err != nil {
		return nil, err
	}

	// 分析结果必须先于任何质检裁定存在
	if sample.Analysis == nil {
		return nil, &lifecycle.ValidationError{Field: "analysis", Message: "sample has no analysis result"}
	}

	var event lifecycle.Event
	reason := utils.SanitizeString(strings.TrimSpace(req.Reason))
	switch req.Decision {
	case model.DecisionApproved:
		event = lifecycle.EventQCApprove
	case model.DecisionRejected:
		cleaned, rerr := utils.TrimAndValidate(req.Reason, maxReasonLen)
		if rerr != nil {
			return nil, &lifecycle.ValidationError{Field: "reason", Message: rerr.Error()}
		}
		reason = cleaned
		event = lifecycle.EventQCReject
	default:
		return nil, &lifecycle.ValidationError{Field: "decision", Message: "must be approved or rejected"}
	}

	readStatus := sample.Status
	next, err := lifecycle.Next(readStatus, event)
	if err != nil {
		return nil, err
	}

	sample.Status = next
	sample.QCReview = &model.QCReview{
		AgentID:   actor.ID,
		AgentName: actor.Name,
		DecidedAt: time.Now(),
		Decision:  req.Decision,
		Reason:    reason,
	}

	if err := s.commit(sample, readStatus, reason, actor); err != nil {
		return nil, err
	}

	metrics.RecordQCDecision(req.Decision)
	s.audit(ctx, actor, req.Decision, sample.ID, map[string]interface{}{"reason": reason})

	return sample, nil
}

// FileAppeal 提交申诉
func (s *sampleService) FileAppeal(ctx context.Context, id string, req *AppealRequest) (*model.SampleModel, error) {
	actor := actorFromContext(ctx)
	if !authz.CanPerform(actor.Role, authz.ActionFileAppeal) {
		return nil, &lifecycle.ForbiddenError{Role: string(actor.Role), Action: string(authz.ActionFileAppeal)}
	}

	sample, err := s.sampleRepo.FindByID(id)
	if err != nil {
		return nil, err
	}

	if actor.ID == "" || actor.ID != sample.CollectorID {
		return nil, lifecycle.ErrNotOwner
	}
	if sample.Status != model.StatusRejected {
		return nil, &lifecycle.WrongStateError{Current: sample.Status, Required: model.StatusRejected}
	}
	if sample.Appeal != nil {
		return nil, lifecycle.ErrAppealAlreadyFiled
	}
	reason, rerr := utils.TrimAndValidate(req.Reason, maxReasonLen)
	if rerr != nil {
		return nil, &lifecycle.ValidationError{Field: "reason", Message: rerr.Error()}
	}

	readStatus := sample.Status
	next, err := lifecycle.Next(readStatus, lifecycle.EventFileAppeal)
	if err != nil {
		return nil, err
	}

	sample.Status = next
	sample.Appeal = &model.Appeal{
		Reason:  reason,
		FiledAt: time.Now(),
	}

	if err := s.commit(sample, readStatus, reason, actor); err != nil {
		return nil, err
	}

	metrics.RecordAppeal("filed")
	s.audit(ctx, actor, "appeal", sample.ID, map[string]interface{}{"reason": reason})

	return sample, nil
}

// ResolveAppeal 裁决申诉
// 申诉记录本身永久保留,标记裁决结果的是状态转换而不是记录删除
func (s *sampleService) ResolveAppeal(ctx context.Context, id string, req *ResolveAppealRequest) (*model.SampleModel, error) {
	actor := actorFromContext(ctx)
	if !authz.CanPerform(actor.Role, authz.ActionResolveAppeal) {
		return nil, lifecycle.ErrNotAdmin
	}

	sample, err := s.sampleRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if sample.Status != model.StatusAppealed {
		return nil, &lifecycle.WrongStateError{Current: sample.Status, Required: model.StatusAppealed}
	}

	originalReason := ""
	if sample.QCReview != nil {
		originalReason = sample.QCReview.Reason
	}

	extra := utils.SanitizeString(strings.TrimSpace(req.Reason))

	var event lifecycle.Event
	var decision, reason string
	switch req.Resolution {
	case ResolutionOverride:
		event = lifecycle.EventResolveOverride
		decision = model.DecisionApproved
		// 保留原始拒绝理由,维持审计连续性
		reason = fmt.Sprintf("appeal override (original rejection: %s)", originalReason)
		if extra != "" {
			reason = reason + ": " + extra
		}
	case ResolutionUphold:
		event = lifecycle.EventResolveUphold
		decision = model.DecisionRejected
		reason = "appeal denied"
		if extra != "" {
			reason = reason + ": " + extra
		}
	default:
		return nil, &lifecycle.ValidationError{Field: "resolution", Message: "must be override or uphold"}
	}

	readStatus := sample.Status
	next, err := lifecycle.Next(readStatus, event)
	if err != nil {
		return nil, err
	}

	sample.Status = next
	sample.QCReview = &model.QCReview{
		AgentID:   actor.ID,
		AgentName: actor.Name,
		DecidedAt: time.Now(),
		Decision:  decision,
		Reason:    reason,
	}

	if err := s.commit(sample, readStatus, reason, actor); err != nil {
		return nil, err
	}

	metrics.RecordAppeal(req.Resolution)
	s.audit(ctx, actor, "resolve_"+req.Resolution, sample.ID, map[string]interface{}{"reason": reason})

	return sample, nil
}

// ForceDecide 管理员强制改判
// 无需在案申诉即可推翻质检结论,转换表约束可达状态
func (s *sampleService) ForceDecide(ctx context.Context, id string, req *ForceDecideRequest) (*model.SampleModel, error) {
	actor := actorFromContext(ctx)
	if !authz.CanPerform(actor.Role, authz.ActionForceDecide) {
		return nil, lifecycle.ErrNotAdmin
	}

	sample, err := s.sampleRepo.FindByID(id)
	if err != nil {
		return nil, err
	}

	var event lifecycle.Event
	switch req.Decision {
	case model.DecisionApproved:
		event = lifecycle.EventForceApprove
	case model.DecisionRejected:
		event = lifecycle.EventForceReject
	default:
		return nil, &lifecycle.ValidationError{Field: "decision", Message: "must be approved or rejected"}
	}

	readStatus := sample.Status
	next, err := lifecycle.Next(readStatus, event)
	if err != nil {
		return nil, err
	}

	reason := "administrative decision"
	if extra := utils.SanitizeString(strings.TrimSpace(req.Reason)); extra != "" {
		reason = reason + ": " + extra
	}

	sample.Status = next
	sample.QCReview = &model.QCReview{
		AgentID:   actor.ID,
		AgentName: actor.Name,
		DecidedAt: time.Now(),
		Decision:  req.Decision,
		Reason:    reason,
	}

	if err := s.commit(sample, readStatus, reason, actor); err != nil {
		return nil, err
	}

	metrics.RecordQCDecision(req.Decision)
	s.audit(ctx, actor, "force_"+req.Decision, sample.ID, map[string]interface{}{"reason": reason})

	return sample, nil
}

// commit 以 CAS 方式提交状态转换并记录历史
func (s *sampleService) commit(sample *model.SampleModel, readStatus, reason string, actor Actor) error {
	if err := s.sampleRepo.UpdateStatusCAS(sample, readStatus); err != nil {
		if errors.Is(err, lifecycle.ErrStaleState) {
			metrics.RecordStaleWrite()
		}
		return err
	}

	s.recordHistory(sample.ID, readStatus, sample.Status, reason, actor.ID)

	if s.notifier != nil {
		s.notifier.NotifyStatusChange(sample.ID, readStatus, sample.Status)
	}
	return nil
}

// recordHistory 追加状态历史,历史写入失败不影响主流程
func (s *sampleService) recordHistory(sampleID, from, to, reason, operator string) {
	_ = s.historyRepo.Save(&model.StateHistoryModel{
		ID:         uuid.New().String(),
		SampleID:   sampleID,
		FromStatus: from,
		ToStatus:   to,
		Reason:     reason,
		Operator:   operator,
		CreatedAt:  time.Now(),
	})
}

// audit 记录审计日志
func (s *sampleService) audit(ctx context.Context, actor Actor, action, sampleID string, details interface{}) {
	if s.auditLogSvc == nil || actor.ID == "" {
		return
	}
	_ = s.auditLogSvc.RecordAction(ctx, actor.ID, string(actor.Role), action, "sample", sampleID, details)
}
