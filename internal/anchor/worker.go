package anchor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/metrics"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/model"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Worker 异步上链 worker
// 批次落库之后才入队,成败都不回滚批次:失败的任务带退避重试,
// 超过重试上限标记 failed,由运维或下一次手动触发兜底
type Worker struct {
	jobRepo   repository.AnchorJobRepository
	batchRepo repository.BatchRepository
	anchorer  Anchorer
	logger    *logrus.Logger

	queue      chan *model.AnchorJobModel
	workers    int
	maxRetries int
	backoff    time.Duration
	stop       chan struct{}
}

// WorkerOptions worker 配置
type WorkerOptions struct {
	Workers    int
	MaxRetries int
	Backoff    time.Duration
	QueueSize  int
}

// NewWorker 创建上链 worker
func NewWorker(db *gorm.DB, anchorer Anchorer, logger *logrus.Logger, opts WorkerOptions) *Worker {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1000
	}

	return &Worker{
		jobRepo:    repository.NewAnchorJobRepository(db),
		batchRepo:  repository.NewBatchRepository(db),
		anchorer:   anchorer,
		logger:     logger,
		queue:      make(chan *model.AnchorJobModel, opts.QueueSize),
		workers:    opts.Workers,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		stop:       make(chan struct{}),
	}
}

// Start 启动 worker goroutines,并把重启前遗留的待处理任务重新入队
func (w *Worker) Start() {
	for i := 0; i < w.workers; i++ {
		go w.loop()
	}

	pending, err := w.jobRepo.FindPending()
	if err != nil {
		w.logger.WithError(err).Warn("failed to reload pending anchor jobs")
		return
	}
	for _, job := range pending {
		w.enqueue(job)
	}
}

// Stop 停止 worker
func (w *Worker) Stop() {
	close(w.stop)
}

// Enqueue 为批次创建上链任务并入队
func (w *Worker) Enqueue(batchID, contentHash string) error {
	now := time.Now()
	job := &model.AnchorJobModel{
		ID:          uuid.New().String(),
		BatchID:     batchID,
		ContentHash: contentHash,
		Status:      model.AnchorJobPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := w.jobRepo.Save(job); err != nil {
		return err
	}
	w.enqueue(job)
	return nil
}

// enqueue 入队,队列满时不阻塞调用方,任务留在表里等下次重载
func (w *Worker) enqueue(job *model.AnchorJobModel) {
	select {
	case w.queue <- job:
	default:
		w.logger.WithField("batch_id", job.BatchID).Warn("anchor queue full, job left pending")
	}
}

// loop worker 主循环
func (w *Worker) loop() {
	for {
		select {
		case job := <-w.queue:
			w.process(job)
		case <-w.stop:
			return
		}
	}
}

// process 执行单个上链任务,带指数退避重试
func (w *Worker) process(job *model.AnchorJobModel) {
	backoff := w.backoff

	for attempt := 0; attempt < w.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-w.stop:
				return
			}
			backoff *= 2
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		receipt, err := w.anchorer.Anchor(ctx, job.ContentHash)
		cancel()

		if err == nil {
			w.complete(job, receipt)
			return
		}

		job.RetryCount = attempt + 1
		job.LastError = err.Error()
		job.UpdatedAt = time.Now()
		_ = w.jobRepo.Save(job)
		metrics.RecordAnchorAttempt("retry")

		w.logger.WithFields(logrus.Fields{
			"batch_id": job.BatchID,
			"attempt":  job.RetryCount,
		}).WithError(err).Warn("anchor attempt failed")
	}

	job.Status = model.AnchorJobFailed
	job.UpdatedAt = time.Now()
	_ = w.jobRepo.Save(job)
	metrics.RecordAnchorAttempt("failed")
	w.logger.WithField("batch_id", job.BatchID).Error("anchor job exhausted retries")
}

// complete 任务成功,写回批次回执
func (w *Worker) complete(job *model.AnchorJobModel, receipt *Receipt) {
	err := w.batchRepo.UpdateAnchor(job.BatchID, &model.AnchorReceipt{
		TxID:       receipt.TxID,
		Chain:      receipt.Chain,
		AnchoredAt: time.Now(),
	})
	if err != nil {
		w.logger.WithField("batch_id", job.BatchID).WithError(err).Error("failed to write anchor receipt")
		return
	}

	job.Status = model.AnchorJobSuccess
	job.LastError = ""
	job.UpdatedAt = time.Now()
	_ = w.jobRepo.Save(job)
	metrics.RecordAnchorAttempt("success")

	w.logger.WithFields(logrus.Fields{
		"batch_id": job.BatchID,
		"tx_id":    receipt.TxID,
		"chain":    receipt.Chain,
	}).Info("batch anchored")
}
