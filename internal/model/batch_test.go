package model_test

import (
	"testing"
	"time"

	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/model"
	"github.com/stretchr/testify/assert"
)

// TestBatchModelTableName 测试表名
func TestBatchModelTableName(t *testing.T) {
	bm := model.BatchModel{}
	assert.Equal(t, "batches", bm.TableName())
}

// TestBatchModelValidation 测试批次模型验证
func TestBatchModelValidation(t *testing.T) {
	valid := &model.BatchModel{
		ID:               "HB-TEST0001",
		ManufacturerID:   "mfr-001",
		ManufacturerName: "测试制造商",
		SampleIDs:        []string{"HC-001", "HC-002"},
		SampleCount:      2,
		ContentHash:      "abc123",
		CreatedAt:        time.Now(),
	}
	assert.NoError(t, valid.Validate())

	invalid := *valid
	invalid.ID = ""
	assert.Error(t, invalid.Validate())

	invalid = *valid
	invalid.ManufacturerID = ""
	assert.Error(t, invalid.Validate())

	invalid = *valid
	invalid.SampleIDs = nil
	assert.Error(t, invalid.Validate())

	invalid = *valid
	invalid.ContentHash = ""
	assert.Error(t, invalid.Validate())
}

// TestAnchorJobModelValidation 测试上链任务模型验证
func TestAnchorJobModelValidation(t *testing.T) {
	job := &model.AnchorJobModel{
		ID:          "job-001",
		BatchID:     "HB-TEST0001",
		ContentHash: "abc123",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	assert.NoError(t, job.Validate())
	// 状态缺省回填为 pending
	assert.Equal(t, model.AnchorJobPending, job.Status)

	invalid := &model.AnchorJobModel{ID: "job-002"}
	assert.Error(t, invalid.Validate())
}
