package repository_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/lifecycle"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/model"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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

// newTestSample 构造一个待质检样本
func newTestSample(id, collectorID string) *model.SampleModel {
	now := time.Now()
	return &model.SampleModel{
		ID:            id,
		CollectorID:   collectorID,
		CollectorName: "张采集员",
		Latitude:      30.25,
		Longitude:     120.16,
		Quantity:      2.5,
		ImageRef:      "s3://samples/" + id + ".jpg",
		Analysis: &model.AnalysisResult{
			Species:      "Panax ginseng",
			Confidence:   0.93,
			QualityScore: 88,
		},
		Status:      model.StatusPendingReview,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
}

// TestSampleRepository_SaveAndFind 测试样本保存和查询
func TestSampleRepository_SaveAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewSampleRepository(db)

	sample := newTestSample("HC-TEST0001", "collector-1")
	require.NoError(t, repo.Save(sample))

	found, err := repo.FindByID("HC-TEST0001")
	require.NoError(t, err)
	assert.Equal(t, "collector-1", found.CollectorID)
	assert.Equal(t, model.StatusPendingReview, found.Status)
	require.NotNil(t, found.Analysis)
	assert.Equal(t, "Panax ginseng", found.Analysis.Species)
	assert.InDelta(t, 0.93, found.Analysis.Confidence, 1e-9)

	_, err = repo.FindByID("HC-MISSING")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// TestSampleRepository_FindByFilter 测试过滤查询
func TestSampleRepository_FindByFilter(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewSampleRepository(db)

	s1 := newTestSample("HC-F001", "collector-1")
	s2 := newTestSample("HC-F002", "collector-2")
	s2.Status = model.StatusApproved
	s3 := newTestSample("HC-F003", "collector-1")
	s3.Status = model.StatusApproved
	for _, s := range []*model.SampleModel{s1, s2, s3} {
		require.NoError(t, repo.Save(s))
	}

	// 按状态过滤
	approved, err := repo.FindByFilter(&repository.SampleFilter{Status: model.StatusApproved})
	require.NoError(t, err)
	assert.Len(t, approved, 2)

	// 状态和采集员组合过滤
	mine, err := repo.FindByFilter(&repository.SampleFilter{
		Status:      model.StatusApproved,
		CollectorID: "collector-1",
	})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "HC-F003", mine[0].ID)

	// 空过滤器返回全部
	all, err := repo.FindByFilter(&repository.SampleFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// 分页
	page, err := repo.FindByFilter(&repository.SampleFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
	rest, err := repo.FindByFilter(&repository.SampleFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

// TestSampleRepository_UpdateStatusCAS 测试比较交换写入:
// 同一预期状态下只有第一次写入命中,第二次拿到过期状态错误
func TestSampleRepository_UpdateStatusCAS(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewSampleRepository(db)

	sample := newTestSample("HC-CAS001", "collector-1")
	require.NoError(t, repo.Save(sample))

	// 第一个写入者:质检通过
	first, err := repo.FindByID("HC-CAS001")
	require.NoError(t, err)
	first.Status = model.StatusApproved
	first.QCReview = &model.QCReview{
		AgentID:   "qc-1",
		AgentName: "李质检",
		DecidedAt: time.Now(),
		Decision:  model.DecisionApproved,
	}
	require.NoError(t, repo.UpdateStatusCAS(first, model.StatusPendingReview))

	// 第二个写入者:基于同样的旧状态尝试拒绝,应当失败
	second, err := repo.FindByID("HC-CAS001")
	require.NoError(t, err)
	second.Status = model.StatusRejected
	second.QCReview = &model.QCReview{
		AgentID:   "qc-2",
		AgentName: "王质检",
		DecidedAt: time.Now(),
		Decision:  model.DecisionRejected,
		Reason:    "contaminated",
	}
	err = repo.UpdateStatusCAS(second, model.StatusPendingReview)
	assert.ErrorIs(t, err, lifecycle.ErrStaleState)
	assert.True(t, lifecycle.IsStale(err))

	// 数据库中保留第一个写入者的结果
	final, err := repo.FindByID("HC-CAS001")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, final.Status)
	require.NotNil(t, final.QCReview)
	assert.Equal(t, "qc-1", final.QCReview.AgentID)
}

// TestSampleRepository_UpdateStatusCAS_Concurrent 测试真正并发的写入:
// 两个 goroutine 基于同一旧状态同时提交,恰好一个命中,另一个拿到过期状态错误
func TestSampleRepository_UpdateStatusCAS_Concurrent(t *testing.T) {
	db := setupTestDB(t)

	// :memory: 的每个新连接都是独立的数据库,并发写入必须复用同一个连接
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := repository.NewSampleRepository(db)
	require.NoError(t, repo.Save(newTestSample("HC-RACE01", "collector-1")))

	approve, err := repo.FindByID("HC-RACE01")
	require.NoError(t, err)
	approve.Status = model.StatusApproved
	approve.QCReview = &model.QCReview{AgentID: "qc-1", Decision: model.DecisionApproved, DecidedAt: time.Now()}

	reject, err := repo.FindByID("HC-RACE01")
	require.NoError(t, err)
	reject.Status = model.StatusRejected
	reject.QCReview = &model.QCReview{AgentID: "qc-2", Decision: model.DecisionRejected, Reason: "contaminated", DecidedAt: time.Now()}

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, s := range []*model.SampleModel{approve, reject} {
		wg.Add(1)
		go func(s *model.SampleModel) {
			defer wg.Done()
			results <- repo.UpdateStatusCAS(s, model.StatusPendingReview)
		}(s)
	}
	wg.Wait()
	close(results)

	var wins, stale int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, lifecycle.ErrStaleState):
			stale++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, stale)

	// 落库的是胜出者的完整裁定
	final, err := repo.FindByID("HC-RACE01")
	require.NoError(t, err)
	require.NotNil(t, final.QCReview)
	if final.Status == model.StatusApproved {
		assert.Equal(t, "qc-1", final.QCReview.AgentID)
	} else {
		assert.Equal(t, model.StatusRejected, final.Status)
		assert.Equal(t, "qc-2", final.QCReview.AgentID)
	}
}

// TestSampleRepository_CASClearsQCReview 测试 CAS 写入覆盖整条裁定记录
func TestSampleRepository_CASClearsQCReview(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewSampleRepository(db)

	sample := newTestSample("HC-CAS002", "collector-1")
	sample.Status = model.StatusRejected
	sample.QCReview = &model.QCReview{
		AgentID:  "qc-1",
		Decision: model.DecisionRejected,
		Reason:   "contaminated",
	}
	require.NoError(t, repo.Save(sample))

	// 申诉:状态切换且保留原裁定
	sample.Status = model.StatusAppealed
	sample.Appeal = &model.Appeal{Reason: "resampled from clean plot", FiledAt: time.Now()}
	require.NoError(t, repo.UpdateStatusCAS(sample, model.StatusRejected))

	found, err := repo.FindByID("HC-CAS002")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAppealed, found.Status)
	require.NotNil(t, found.Appeal)
	assert.Equal(t, "resampled from clean plot", found.Appeal.Reason)
	require.NotNil(t, found.QCReview)
	assert.Equal(t, "contaminated", found.QCReview.Reason)
}
