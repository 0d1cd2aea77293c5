package service

import (
	"context"
	"sync"

	"scrap_ctf/pkg/logger"
	"scrap_ctf/pkg/monitoring"

	"go.uber.org/zap"
)

// Reconciler is implemented by RepositoryLoader.
type Reconciler interface {
	Reconcile(ctx context.Context) (*ReloadResult, error)
}

// ReloadScheduler runs reconciliation passes on a single worker. A trigger
// that arrives while a pass is running queues exactly one follow-up pass;
// triggers beyond that are dropped because the queued pass will see their
// changes anyway.
type ReloadScheduler struct {
	Loader  Reconciler
	pending chan struct{}

	// 测试用：每次执行完成后回调
	afterPass func(*ReloadResult, error)

	mu sync.Mutex
}

func NewReloadScheduler(loader Reconciler) *ReloadScheduler {
	return &ReloadScheduler{
		Loader:  loader,
		pending: make(chan struct{}, 1),
	}
}

// Trigger requests a pass without blocking. It reports whether the request
// was queued (false means one is already pending).
func (s *ReloadScheduler) Trigger() bool {
	select {
	case s.pending <- struct{}{}:
		return true
	default:
		return false
	}
}

// RunOnce performs one pass synchronously. Passes never overlap.
func (s *ReloadScheduler) RunOnce(ctx context.Context) (*ReloadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.Loader.Reconcile(ctx)
	if err != nil {
		monitoring.ReloadCounter.WithLabelValues("failure").Inc()
	} else {
		monitoring.ReloadCounter.WithLabelValues("success").Inc()
	}
	if s.afterPass != nil {
		s.afterPass(result, err)
	}
	return result, err
}

// Run 处理触发请求直到 ctx 结束。单次同步失败只记录日志，服务继续使用上次的数据
func (s *ReloadScheduler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.pending:
			// 已开始的同步不因关闭而中断
			if _, err := s.RunOnce(context.WithoutCancel(ctx)); err != nil {
				logger.Log.Error("Repository reload failed, keeping previous data", zap.Error(err))
			}
		}
	}
}
