package model_test

import (
	"testing"
	"time"

	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/model"
	"github.com/stretchr/testify/assert"
)

// TestSampleModelTableName 测试表名
func TestSampleModelTableName(t *testing.T) {
	sm := model.SampleModel{}
	assert.Equal(t, "samples", sm.TableName())
}

// TestSampleModelValidation 测试样本模型验证
func TestSampleModelValidation(t *testing.T) {
	valid := &model.SampleModel{
		ID:            "HC-TEST0001",
		CollectorID:   "user-001",
		CollectorName: "测试采集员",
		Latitude:      30.2741,
		Longitude:     120.1551,
		Quantity:      12.5,
		ImageRef:      "img://samples/abc",
		Status:        model.StatusPendingReview,
		SubmittedAt:   time.Now(),
		UpdatedAt:     time.Now(),
	}
	assert.NoError(t, valid.Validate())

	// ID 为空
	invalid := *valid
	invalid.ID = ""
	assert.Error(t, invalid.Validate())

	// 数量非正
	invalid = *valid
	invalid.Quantity = 0
	assert.Error(t, invalid.Validate())

	invalid = *valid
	invalid.Quantity = -1
	assert.Error(t, invalid.Validate())

	// 经纬度越界
	invalid = *valid
	invalid.Latitude = 91
	assert.Error(t, invalid.Validate())

	invalid = *valid
	invalid.Longitude = -181
	assert.Error(t, invalid.Validate())
}

// TestAnalysisResultValidation 测试分析结果验证
func TestAnalysisResultValidation(t *testing.T) {
	valid := &model.AnalysisResult{
		Species:      "Panax ginseng",
		Confidence:   0.93,
		QualityScore: 87,
	}
	assert.NoError(t, valid.Validate())

	// 置信度越界
	invalid := *valid
	invalid.Confidence = 1.5
	assert.Error(t, invalid.Validate())

	invalid = *valid
	invalid.Confidence = -0.1
	assert.Error(t, invalid.Validate())

	// 质量分越界
	invalid = *valid
	invalid.QualityScore = 101
	assert.Error(t, invalid.Validate())

	// 物种为空
	invalid = *valid
	invalid.Species = ""
	assert.Error(t, invalid.Validate())
}

// TestIsValidStatus 测试状态值合法性判断
func TestIsValidStatus(t *testing.T) {
	assert.True(t, model.IsValidStatus(model.StatusPendingReview))
	assert.True(t, model.IsValidStatus(model.StatusApproved))
	assert.True(t, model.IsValidStatus(model.StatusRejected))
	assert.True(t, model.IsValidStatus(model.StatusAppealed))
	assert.True(t, model.IsValidStatus(model.StatusBatched))
	assert.False(t, model.IsValidStatus("draft"))
	assert.False(t, model.IsValidStatus(""))
}
