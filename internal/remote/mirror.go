package remote

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const taskTimeout = 5 * time.Second

type task struct {
	name string
	fn   func(ctx context.Context) error
}

// Mirror выполняет задачи синхронизации с удалённым зеркалом по одной, в порядке постановки.
// Каждая задача выполняется один раз, ошибка записывается в журнал.
type Mirror struct {
	tasks  chan task
	logger *zap.Logger
}

// NewMirror создаёт очередь на size задач.
func NewMirror(logger *zap.Logger, size int) *Mirror {
	return &Mirror{
		tasks:  make(chan task, size),
		logger: logger,
	}
}

// Enqueue ставит задачу в очередь, не блокируясь. При переполненной очереди задача
// отбрасывается и возвращается false.
func (m *Mirror) Enqueue(name string, fn func(ctx context.Context) error) bool {
	select {
	case m.tasks <- task{name: name, fn: fn}:
		return true
	default:
		m.logger.Warn("remote mirror queue full, task dropped", zap.String("task", name))
		return false
	}
}

// Run обрабатывает очередь до отмены ctx.
func (m *Mirror) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-m.tasks:
			m.execute(ctx, t)
		}
	}
}

func (m *Mirror) execute(ctx context.Context, t task) {
	taskCtx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()

	start := time.Now()
	if err := t.fn(taskCtx); err != nil {
		m.logger.Warn("remote mirror task failed",
			zap.String("task", t.name), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return
	}
	m.logger.Debug("remote mirror task done", zap.String("task", t.name), zap.Duration("elapsed", time.Since(start)))
}
