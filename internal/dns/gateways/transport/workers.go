package transport

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/haukened/lbdns/internal/dns/common/log"
	"github.com/haukened/lbdns/internal/dns/common/metrics"
)

// workerPool runs request handlers on at most size goroutines at once.
type workerPool struct {
	sem       *semaphore.Weighted
	transport string
	logger    log.Logger
	wg        sync.WaitGroup
}

func newWorkerPool(size int, transport string, logger log.Logger) *workerPool {
	return &workerPool{
		sem:       semaphore.NewWeighted(int64(size)),
		transport: transport,
		logger:    logger,
	}
}

// Go blocks until a worker is free, then runs fn on it. It returns the
// context error if ctx ends first. A panic in fn is recovered and logged;
// it never reaches the caller or other workers.
func (p *workerPool) Go(ctx context.Context, fn func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	p.wg.Add(1)
	inflight := metrics.InflightRequests.WithLabelValues(p.transport)
	inflight.Inc()

	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer inflight.Dec()
		defer func() {
			if r := recover(); r != nil {
				metrics.RequestsDropped.WithLabelValues(p.transport, metrics.ReasonPanic).Inc()
				log.Emit(p.logger, log.EventRequestDropped, map[string]any{
					"transport": p.transport,
					"reason":    metrics.ReasonPanic,
					"error":     fmt.Sprint(r),
					"stack":     string(debug.Stack()),
				})
			}
		}()
		fn()
	}()
	return nil
}

// Wait blocks until every started worker has returned.
func (p *workerPool) Wait() {
	p.wg.Wait()
}
