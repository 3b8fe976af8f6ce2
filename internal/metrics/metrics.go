package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 样本提交数
	samplesCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "samples_created_total",
			Help: "Total number of samples submitted",
		},
	)

	// 质检裁定数
	qcDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qc_decisions_total",
			Help: "Total number of QC decisions",
		},
		[]string{"decision"}, // approved, rejected
	)

	// 申诉操作数
	appealsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appeals_total",
			Help: "Total number of appeal operations",
		},
		[]string{"action"}, // filed, override, uphold
	)

	// 批次创建数
	batchesCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "batches_created_total",
			Help: "Total number of batches assembled",
		},
	)

	// 上链尝试数
	anchorAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchor_attempts_total",
			Help: "Total number of anchoring attempts",
		},
		[]string{"result"}, // success, retry, failed
	)

	// 并发写入冲突数
	staleWritesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stale_writes_total",
			Help: "Total number of rejected concurrent status writes",
		},
	)

	// 样本状态分布
	samplesByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "samples_by_status",
			Help: "Number of samples by status",
		},
		[]string{"status"},
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	databaseConnectionsMax = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_max",
			Help: "Maximum number of database connections",
		},
	)
)

var (
	once sync.Once
)

func init() {
	// 注册指标
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(samplesCreatedTotal)
	prometheus.MustRegister(qcDecisionsTotal)
	prometheus.MustRegister(appealsTotal)
	prometheus.MustRegister(batchesCreatedTotal)
	prometheus.MustRegister(anchorAttemptsTotal)
	prometheus.MustRegister(staleWritesTotal)
	prometheus.MustRegister(samplesByStatus)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)
	prometheus.MustRegister(databaseConnectionsMax)

	// 注册 Go 运行时指标（只注册一次）
	once.Do(func() {
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordSampleCreated 记录样本提交
func RecordSampleCreated() {
	samplesCreatedTotal.Inc()
}

// RecordQCDecision 记录质检裁定
func RecordQCDecision(decision string) {
	qcDecisionsTotal.WithLabelValues(decision).Inc()
}

// RecordAppeal 记录申诉操作
func RecordAppeal(action string) {
	appealsTotal.WithLabelValues(action).Inc()
}

// RecordBatchCreated 记录批次创建
func RecordBatchCreated() {
	batchesCreatedTotal.Inc()
}

// RecordAnchorAttempt 记录上链尝试
func RecordAnchorAttempt(result string) {
	anchorAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordStaleWrite 记录被拒绝的并发写入
func RecordStaleWrite() {
	staleWritesTotal.Inc()
}

// UpdateSamplesByStatus 更新样本状态分布指标
func UpdateSamplesByStatus(db *gorm.DB) error {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	if err := db.Table("samples").
		Select("status, count(*) as count").
		Group("status").Scan(&rows).Error; err != nil {
		return err
	}
	for _, r := range rows {
		samplesByStatus.WithLabelValues(r.Status).Set(float64(r.Count))
	}
	return nil
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.InUse))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	databaseConnectionsMax.Set(float64(stats.MaxOpenConnections))
	return nil
}
