package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/config"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒
}

// BuildDSN 构建 PostgreSQL DSN
func BuildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// GetPoolConfig 获取连接池配置
func GetPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 600,  // 10 分钟
	}
}

// Connect 连接数据库
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := BuildDSN(cfg)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 从配置中读取连接池参数，如果没有配置则使用默认值
	var poolConfig *PoolConfig
	if cfg.MaxIdleConns > 0 || cfg.MaxOpenConns > 0 {
		poolConfig = &PoolConfig{
			MaxIdleConns:    cfg.MaxIdleConns,
			MaxOpenConns:    cfg.MaxOpenConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		}
		// 如果某些值未设置，使用默认值
		if poolConfig.MaxIdleConns == 0 {
			poolConfig.MaxIdleConns = 10
		}
		if poolConfig.MaxOpenConns == 0 {
			poolConfig.MaxOpenConns = 100
		}
		if poolConfig.ConnMaxLifetime == 0 {
			poolConfig.ConnMaxLifetime = 3600
		}
		if poolConfig.ConnMaxIdleTime == 0 {
			poolConfig.ConnMaxIdleTime = 600
		}
	} else {
		poolConfig = GetPoolConfig()
	}

	sqlDB.SetMaxIdleConns(poolConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(poolConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(poolConfig.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(poolConfig.ConnMaxIdleTime) * time.Second)

	return db, nil
}

// ConnectWithRetry 带重试的数据库连接
func ConnectWithRetry(cfg config.DatabaseConfig, maxRetries int, retryInterval time.Duration) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = Connect(cfg)
		if err == nil {
			return db, nil
		}

		// 如果不是最后一次重试，等待后重试
		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2 // 指数退避
		}
	}

	return nil, fmt.Errorf("failed to connect database after %d retries: %w", maxRetries, err)
}

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	// 检测数据库类型
	dialector := db.Dialector.Name()

	// SQLite 不支持 jsonb，需要手动创建表
	// GORM SQLite dialector 的名称可能是 "sqlite" 或 "sqlite3"
	if dialector == "sqlite" || dialector == "sqlite3" {
		// 手动创建 SQLite 表（使用 TEXT 替代 jsonb）
		if err := createSQLiteTables(db); err != nil {
			return fmt.Errorf("failed to create SQLite tables: %w", err)
		}
	} else {
		// PostgreSQL 等其他数据库使用 AutoMigrate
		if err := db.AutoMigrate(
			&model.SampleModel{},
			&model.BatchModel{},
			&model.StateHistoryModel{},
			&model.AuditLogModel{},
			&model.AnchorJobModel{},
		); err != nil {
			return fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	// 创建索引
	if err := CreateIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createSQLiteTables 为 SQLite 手动创建表（使用 TEXT 替代 jsonb）
func createSQLiteTables(db *gorm.DB) error {
	// 创建 samples 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS samples (
			id VARCHAR(64) PRIMARY KEY,
			collector_id VARCHAR(64) NOT NULL,
			collector_name VARCHAR(255) NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			quantity REAL NOT NULL,
			image_ref VARCHAR(255),
			status VARCHAR(32) NOT NULL,
			analysis TEXT,
			qc_review TEXT,
			appeal TEXT,
			batch_id VARCHAR(64),
			submitted_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create samples table: %w", err)
	}

	// 创建 batches 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS batches (
			id VARCHAR(64) PRIMARY KEY,
			manufacturer_id VARCHAR(64) NOT NULL,
			manufacturer_name VARCHAR(255) NOT NULL,
			sample_ids TEXT NOT NULL,
			sample_count INTEGER NOT NULL,
			content_hash VARCHAR(64) NOT NULL,
			notes TEXT,
			anchor TEXT,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create batches table: %w", err)
	}

	// 创建 state_history 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS state_history (
			id VARCHAR(64) PRIMARY KEY,
			sample_id VARCHAR(64) NOT NULL,
			from_status VARCHAR(32),
			to_status VARCHAR(32) NOT NULL,
			reason TEXT,
			operator VARCHAR(64) NOT NULL,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create state_history table: %w", err)
	}

	// 创建 audit_logs 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_logs (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			user_role VARCHAR(32),
			action VARCHAR(64) NOT NULL,
			resource_type VARCHAR(32) NOT NULL,
			resource_id VARCHAR(64) NOT NULL,
			request_id VARCHAR(64),
			ip VARCHAR(45),
			details TEXT,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create audit_logs table: %w", err)
	}

	// 创建 anchor_jobs 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS anchor_jobs (
			id VARCHAR(64) PRIMARY KEY,
			batch_id VARCHAR(64) NOT NULL,
			content_hash VARCHAR(64) NOT NULL,
			status VARCHAR(32) NOT NULL DEFAULT 'pending',
			retry_count INTEGER DEFAULT 0,
			last_error TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create anchor_jobs table: %w", err)
	}

	return nil
}

// CreateIndexes 创建数据库索引
func CreateIndexes(db *gorm.DB) error {
	// 检测数据库类型
	dialector := db.Dialector.Name()

	// samples 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_samples_status ON samples(status)").Error; err != nil {
		return fmt.Errorf("failed to create idx_samples_status: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_samples_collector_id ON samples(collector_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_samples_collector_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_samples_batch_id ON samples(batch_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_samples_batch_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_samples_submitted_at ON samples(submitted_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_samples_submitted_at: %w", err)
	}

	// batches 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_batches_manufacturer_id ON batches(manufacturer_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_batches_manufacturer_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_batches_content_hash ON batches(content_hash)").Error; err != nil {
		return fmt.Errorf("failed to create idx_batches_content_hash: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_batches_created_at ON batches(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_batches_created_at: %w", err)
	}

	// state_history 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_history_sample_id ON state_history(sample_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_history_sample_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_history_created_at ON state_history(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_history_created_at: %w", err)
	}

	// audit_logs 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_logs(resource_type, resource_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_resource: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_user_id ON audit_logs(user_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_user_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_logs(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_created_at: %w", err)
	}

	// anchor_jobs 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_anchor_jobs_status ON anchor_jobs(status)").Error; err != nil {
		return fmt.Errorf("failed to create idx_anchor_jobs_status: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_anchor_jobs_batch_id ON anchor_jobs(batch_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_anchor_jobs_batch_id: %w", err)
	}

	// PostgreSQL 特定的 GIN 索引
	if dialector == "postgres" {
		// JSONB 字段的 GIN 索引
		if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_samples_analysis_gin ON samples USING GIN (analysis)").Error; err != nil {
			return fmt.Errorf("failed to create idx_samples_analysis_gin: %w", err)
		}
		if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_batches_sample_ids_gin ON batches USING GIN (sample_ids)").Error; err != nil {
			return fmt.Errorf("failed to create idx_batches_sample_ids_gin: %w", err)
		}
	}

	return nil
}

// CheckHealth 检查数据库连接健康状态
func CheckHealth(db *gorm.DB) bool {
	if db == nil {
		return false
	}

	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return false
	}

	return true
}

// Reconnect 重新连接数据库
func Reconnect(cfg config.DatabaseConfig, oldDB *gorm.DB) (*gorm.DB, error) {
	// 关闭旧连接
	if oldDB != nil {
		if sqlDB, err := oldDB.DB(); err == nil {
			sqlDB.Close()
		}
	}

	// 重新连接
	return Connect(cfg)
}
