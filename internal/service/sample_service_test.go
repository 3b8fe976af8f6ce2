package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/lifecycle"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/model"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/repository"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeClassifier 测试用分类网关
type fakeClassifier struct {
	result *model.AnalysisResult
	err    error
}

func (f *fakeClassifier) Analyze(_ context.Context, _ string) (*model.AnalysisResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// setupTestDB 创建内存数据库
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&model.SampleModel{},
		&model.BatchModel{},
		&model.StateHistoryModel{},
		&model.AuditLogModel{},
		&model.AnchorJobModel{},
	)
	require.NoError(t, err)

	return db
}

// ctxFor 构造携带操作者身份的 context
func ctxFor(userID, userName, role string) context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, "user_id", userID)
	ctx = context.WithValue(ctx, "user_name", userName)
	ctx = context.WithValue(ctx, "user_role", role)
	return ctx
}

func newSampleService(t *testing.T, db *gorm.DB, cls *fakeClassifier) service.SampleService {
	auditSvc := service.NewAuditLogService(repository.NewAuditLogRepository(db))
	return service.NewSampleService(db, cls, auditSvc, nil)
}

func healthyClassifier() *fakeClassifier {
	return &fakeClassifier{result: &model.AnalysisResult{
		Species:      "Panax ginseng",
		Confidence:   0.93,
		QualityScore: 88,
	}}
}

// TestSampleService_Create 测试样本提交
func TestSampleService_Create(t *testing.T) {
	db := setupTestDB(t)
	svc := newSampleService(t, db, healthyClassifier())
	ctx := ctxFor("collector-1", "张采集员", "collector")

	sample, err := svc.Create(ctx, &service.CreateSampleRequest{
		Latitude:  30.2741,
		Longitude: 120.1551,
		Quantity:  12.5,
		ImageRef:  "img://samples/abc",
	})
	require.NoError(t, err)
	assert.Regexp(t, `^HC-[A-F0-9]{8}$`, sample.ID)
	assert.Equal(t, model.StatusPendingReview, sample.Status)
	assert.Equal(t, "collector-1", sample.CollectorID)
	assert.Equal(t, "张采集员", sample.CollectorName)
	require.NotNil(t, sample.Analysis)
	assert.Equal(t, "Panax ginseng", sample.Analysis.Species)

	// 状态历史记录了初始转换
	history, err := svc.History(sample.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "", history[0].FromStatus)
	assert.Equal(t, model.StatusPendingReview, history[0].ToStatus)
}

// TestSampleService_Create_AnalysisFailure 测试分析失败时提交中止
func TestSampleService_Create_AnalysisFailure(t *testing.T) {
	db := setupTestDB(t)
	svc := newSampleService(t, db, &fakeClassifier{err: errors.New("gateway timeout")})
	ctx := ctxFor("collector-1", "张采集员", "collector")

	_, err := svc.Create(ctx, &service.CreateSampleRequest{
		Latitude:  30.0,
		Longitude: 120.0,
		Quantity:  1.0,
		ImageRef:  "img://samples/abc",
	})
	var analysisErr *lifecycle.AnalysisError
	require.ErrorAs(t, err, &analysisErr)

	// 没有任何样本落库
	var count int64
	require.NoError(t, db.Model(&model.SampleModel{}).Count(&count).Error)
	assert.Zero(t, count)
}

// TestSampleService_Create_Forbidden 测试非采集员提交被拒
func TestSampleService_Create_Forbidden(t *testing.T) {
	db := setupTestDB(t)
	svc := newSampleService(t, db, healthyClassifier())
	ctx := ctxFor("qc-1", "李质检", "qc")

	_, err := svc.Create(ctx, &service.CreateSampleRequest{
		Latitude:  30.0,
		Longitude: 120.0,
		Quantity:  1.0,
		ImageRef:  "img://samples/abc",
	})
	var forbidden *lifecycle.ForbiddenError
	assert.ErrorAs(t, err, &forbidden)
}

// TestSampleService_Create_Validation 测试提交参数校验
func TestSampleService_Create_Validation(t *testing.T) {
	db := setupTestDB(t)
	svc := newSampleService(t, db, healthyClassifier())
	ctx := ctxFor("collector-1", "张采集员", "collector")

	cases := []struct {
		name string
		req  *service.CreateSampleRequest
	}{
		{"数量为零", &service.CreateSampleRequest{Latitude: 30, Longitude: 120, Quantity: 0, ImageRef: "img://x"}},
		{"纬度越界", &service.CreateSampleRequest{Latitude: 91, Longitude: 120, Quantity: 1, ImageRef: "img://x"}},
		{"经度越界", &service.CreateSampleRequest{Latitude: 30, Longitude: -181, Quantity: 1, ImageRef: "img://x"}},
		{"缺少图片引用", &service.CreateSampleRequest{Latitude: 30, Longitude: 120, Quantity: 1, ImageRef: "  "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.req)
			var validationErr *lifecycle.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

// TestSampleService_Create_SuspectSpecies 测试网关返回可疑物种名时提交中止
func TestSampleService_Create_SuspectSpecies(t *testing.T) {
	db := setupTestDB(t)
	svc := newSampleService(t, db, &fakeClassifier{result: &model.AnalysisResult{
		Species:      "<script>alert(1)</script>",
		Confidence:   0.9,
		QualityScore: 80,
	}})
	ctx := ctxFor("collector-1", "张采集员", "collector")

	_, err := svc.Create(ctx, &service.CreateSampleRequest{
		Latitude: 30, Longitude: 120, Quantity: 1, ImageRef: "img://x",
	})
	var analysisErr *lifecycle.AnalysisError
	require.ErrorAs(t, err, &analysisErr)

	var count int64
	require.NoError(t, db.Model(&model.SampleModel{}).Count(&count).Error)
	assert.Zero(t, count)
}

// TestSampleService_ReasonSanitized 测试自由文本理由落库前被清理
func TestSampleService_ReasonSanitized(t *testing.T) {
	db := setupTestDB(t)
	svc := newSampleService(t, db, healthyClassifier())

	collectorCtx := ctxFor("collector-1", "张采集员", "collector")
	qcCtx := ctxFor("qc-1", "李质检", "qc")

	sample, err := svc.Create(collectorCtx, &service.CreateSampleRequest{
		Latitude: 30, Longitude: 120, Quantity: 1, ImageRef: "img://x",
	})
	require.NoError(t, err)

	// 拒绝理由中的 HTML 被转义
	sample, err = svc.Decide(qcCtx, sample.ID, &service.DecideRequest{
		Decision: model.DecisionRejected,
		Reason:   "<b>moldy</b>",
	})
	require.NoError(t, err)
	assert.Equal(t, "&lt;b&gt;moldy&lt;/b&gt;", sample.QCReview.Reason)

	// 申诉理由中的控制字符被剔除,HTML 被转义
	sample, err = svc.FileAppeal(collectorCtx, sample.ID, &service.AppealRequest{
		Reason: "resampled\x00 from <i>clean</i> plot",
	})
	require.NoError(t, err)
	assert.Equal(t, "resampled from &lt;i&gt;clean&lt;/i&gt; plot", sample.Appeal.Reason)
}

// TestSampleService_AppealFlow 测试 拒绝-申诉-改判 全流程
func TestSampleService_AppealFlow(t *testing.T) {
	db := setupTestDB(t)
	svc := newSampleService(t, db, healthyClassifier())

	collectorCtx := ctxFor("collector-1", "张采集员", "collector")
	qcCtx := ctxFor("qc-1", "李质检", "qc")
	adminCtx := ctxFor("admin-1", "王管理", "admin")

	sample, err := svc.Create(collectorCtx, &service.CreateSampleRequest{
		Latitude:  30.0,
		Longitude: 120.0,
		Quantity:  2.0,
		ImageRef:  "img://samples/abc",
	})
	require.NoError(t, err)

	// 质检拒绝
	sample, err = svc.Decide(qcCtx, sample.ID, &service.DecideRequest{
		Decision: model.DecisionRejected,
		Reason:   "contaminated",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, sample.Status)
	require.NotNil(t, sample.QCReview)
	assert.Equal(t, "qc-1", sample.QCReview.AgentID)

	// 采集员申诉
	sample, err = svc.FileAppeal(collectorCtx, sample.ID, &service.AppealRequest{
		Reason: "resampled from clean plot",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusAppealed, sample.Status)
	require.NotNil(t, sample.Appeal)

	// 管理员改判通过,裁定理由保留原始拒绝理由
	sample, err = svc.ResolveAppeal(adminCtx, sample.ID, &service.ResolveAppealRequest{
		Resolution: service.ResolutionOverride,
		Reason:     "复检合格",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, sample.Status)
	require.NotNil(t, sample.QCReview)
	assert.Equal(t, model.DecisionApproved, sample.QCReview.Decision)
	assert.Contains(t, sample.QCReview.Reason, "original rejection: contaminated")
	assert.Contains(t, sample.QCReview.Reason, "复检合格")

	// 申诉记录永久保留
	found, err := svc.Get(sample.ID)
	require.NoError(t, err)
	require.NotNil(t, found.Appeal)
	assert.Equal(t, "resampled from clean plot", found.Appeal.Reason)

	// 全流程四条状态历史
	history, err := svc.History(sample.ID)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

// TestSampleService_ResolveUphold 测试维持拒绝的申诉裁决
func TestSampleService_ResolveUphold(t *testing.T) {
	db := setupTestDB(t)
	svc := newSampleService(t, db, healthyClassifier())

	collectorCtx := ctxFor("collector-1", "张采集员", "collector")
	qcCtx := ctxFor("qc-1", "李质检", "qc")
	adminCtx := ctxFor("admin-1", "王管理", "admin")

	sample, err := svc.Create(collectorCtx, &service.CreateSampleRequest{
		Latitude: 30, Longitude: 120, Quantity: 1, ImageRef: "img://x",
	})
	require.NoError(t, err)
	_, err = svc.Decide(qcCtx, sample.ID, &service.DecideRequest{Decision: model.DecisionRejected, Reason: "low quality"})
	require.NoError(t, err)
	_, err = svc.FileAppeal(collectorCtx, sample.ID, &service.AppealRequest{Reason: "please recheck"})
	require.NoError(t, err)

	// 非管理员无权裁决申诉
	_, err = svc.ResolveAppeal(qcCtx, sample.ID, &service.ResolveAppealRequest{
		Resolution: service.ResolutionUphold,
	})
	assert.ErrorIs(t, err, lifecycle.ErrNotAdmin)

	sample, err = svc.ResolveAppeal(adminCtx, sample.ID, &service.ResolveAppealRequest{
		Resolution: service.ResolutionUphold,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, sample.Status)
	assert.Equal(t, "appeal denied", sample.QCReview.Reason)

	// 同一申诉不可二次裁决
	_, err = svc.ResolveAppeal(adminCtx, sample.ID, &service.ResolveAppealRequest{
		Resolution: service.ResolutionUphold,
	})
	var wrongState *lifecycle.WrongStateError
	assert.ErrorAs(t, err, &wrongState)

	// 维持拒绝后不允许再次申诉
	_, err = svc.FileAppeal(collectorCtx, sample.ID, &service.AppealRequest{Reason: "again"})
	assert.ErrorIs(t, err, lifecycle.ErrAppealAlreadyFiled)
}

// TestSampleService_AppealGuards 测试申诉的前置约束
func TestSampleService_AppealGuards(t *testing.T) {
	db := setupTestDB(t)
	svc := newSampleService(t, db, healthyClassifier())

	collectorCtx := ctxFor("collector-1", "张采集员", "collector")
	qcCtx := ctxFor("qc-1", "李质检", "qc")

	sample, err := svc.Create(collectorCtx, &service.CreateSampleRequest{
		Latitude: 30, Longitude: 120, Quantity: 1, ImageRef: "img://x",
	})
	require.NoError(t, err)

	// 未被拒绝时申诉
	_, err = svc.FileAppeal(collectorCtx, sample.ID, &service.AppealRequest{Reason: "x"})
	var wrongState *lifecycle.WrongStateError
	assert.ErrorAs(t, err, &wrongState)

	_, err = svc.Decide(qcCtx, sample.ID, &service.DecideRequest{Decision: model.DecisionRejected, Reason: "moldy"})
	require.NoError(t, err)

	// 无申诉权限的角色在所有权检查之前就被拦下
	_, err = svc.FileAppeal(qcCtx, sample.ID, &service.AppealRequest{Reason: "x"})
	var forbidden *lifecycle.ForbiddenError
	assert.ErrorAs(t, err, &forbidden)

	// 非样本所有者申诉
	otherCtx := ctxFor("collector-2", "另一采集员", "collector")
	_, err = svc.FileAppeal(otherCtx, sample.ID, &service.AppealRequest{Reason: "x"})
	assert.ErrorIs(t, err, lifecycle.ErrNotOwner)

	// 申诉理由为空
	_, err = svc.FileAppeal(collectorCtx, sample.ID, &service.AppealRequest{Reason: "  "})
	var validationErr *lifecycle.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	// 申诉理由超长
	_, err = svc.FileAppeal(collectorCtx, sample.ID, &service.AppealRequest{Reason: strings.Repeat("a", 501)})
	assert.ErrorAs(t, err, &validationErr)
}

// TestSampleService_Decide_Guards 测试质检裁定的约束
func TestSampleService_Decide_Guards(t *testing.T) {
	db := setupTestDB(t)
	svc := newSampleService(t, db, healthyClassifier())

	collectorCtx := ctxFor("collector-1", "张采集员", "collector")
	qcCtx := ctxFor("qc-1", "李质检", "qc")

	sample, err := svc.Create(collectorCtx, &service.CreateSampleRequest{
		Latitude: 30, Longitude: 120, Quantity: 1, ImageRef: "img://x",
	})
	require.NoError(t, err)

	// 采集员无质检权限
	_, err = svc.Decide(collectorCtx, sample.ID, &service.DecideRequest{Decision: model.DecisionApproved})
	var forbidden *lifecycle.ForbiddenError
	assert.ErrorAs(t, err, &forbidden)

	// 拒绝必须给出理由
	_, err = svc.Decide(qcCtx, sample.ID, &service.DecideRequest{Decision: model.DecisionRejected})
	var validationErr *lifecycle.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	// 裁定通过后重复裁定
	_, err = svc.Decide(qcCtx, sample.ID, &service.DecideRequest{Decision: model.DecisionApproved})
	require.NoError(t, err)
	_, err = svc.Decide(qcCtx, sample.ID, &service.DecideRequest{Decision: model.DecisionApproved})
	var invalidTransition *lifecycle.InvalidTransitionError
	assert.ErrorAs(t, err, &invalidTransition)
}

// TestSampleService_ForceDecide 测试管理员强制改判
func TestSampleService_ForceDecide(t *testing.T) {
	db := setupTestDB(t)
	svc := newSampleService(t, db, healthyClassifier())

	collectorCtx := ctxFor("collector-1", "张采集员", "collector")
	qcCtx := ctxFor("qc-1", "李质检", "qc")
	adminCtx := ctxFor("admin-1", "王管理", "admin")

	sample, err := svc.Create(collectorCtx, &service.CreateSampleRequest{
		Latitude: 30, Longitude: 120, Quantity: 1, ImageRef: "img://x",
	})
	require.NoError(t, err)
	_, err = svc.Decide(qcCtx, sample.ID, &service.DecideRequest{Decision: model.DecisionRejected, Reason: "dry"})
	require.NoError(t, err)

	// 非管理员无权强制改判
	_, err = svc.ForceDecide(qcCtx, sample.ID, &service.ForceDecideRequest{Decision: model.DecisionApproved})
	assert.ErrorIs(t, err, lifecycle.ErrNotAdmin)

	// 管理员直接改判通过,无需在案申诉
	sample, err = svc.ForceDecide(adminCtx, sample.ID, &service.ForceDecideRequest{
		Decision: model.DecisionApproved,
		Reason:   "抽检复核",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, sample.Status)
	assert.Contains(t, sample.QCReview.Reason, "administrative decision")
	assert.Contains(t, sample.QCReview.Reason, "抽检复核")
}
