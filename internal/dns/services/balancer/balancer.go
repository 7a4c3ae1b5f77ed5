// Package balancer owns the backend pool, the active backend and the
// publication of zone snapshots derived from it.
package balancer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haukened/lbdns/internal/dns/common/clock"
	"github.com/haukened/lbdns/internal/dns/common/log"
	"github.com/haukened/lbdns/internal/dns/common/metrics"
	"github.com/haukened/lbdns/internal/dns/domain"
)

// DefaultRefreshTimeout bounds one selection plus rebuild.
const DefaultRefreshTimeout = 5 * time.Second

// Status is a point-in-time view of the balancer for health reporting.
type Status struct {
	Active              string    `json:"active"`
	Policy              string    `json:"policy"`
	Backends            int       `json:"backends"`
	LastRefresh         time.Time `json:"last_refresh"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}

// Balancer serialises selection and rebuild behind one lock and publishes
// each new snapshot with a single store.
type Balancer struct {
	mu      sync.Mutex
	pool    *domain.BackendPool
	policy  Policy
	builder SnapshotBuilder
	store   SnapshotStore
	logger  log.Logger
	clock   clock.Clock
	timeout time.Duration

	// guarded by mu
	active   string
	failures int

	status atomic.Pointer[Status]
}

// Options configures a Balancer.
type Options struct {
	Pool    *domain.BackendPool
	Policy  Policy
	Builder SnapshotBuilder
	Store   SnapshotStore
	Logger  log.Logger
	Clock   clock.Clock
	// Timeout bounds each Refresh; zero selects DefaultRefreshTimeout and a
	// negative value disables the bound.
	Timeout time.Duration
}

// New validates opts and returns a Balancer with no active backend yet.
// Call Start before serving.
func New(opts Options) (*Balancer, error) {
	switch {
	case opts.Pool == nil:
		return nil, domain.ErrEmptyPool
	case opts.Policy == nil:
		return nil, fmt.Errorf("%w: no policy", domain.ErrUnknownPolicy)
	case opts.Builder == nil:
		return nil, errors.New("balancer requires a snapshot builder")
	case opts.Store == nil:
		return nil, errors.New("balancer requires a snapshot store")
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultRefreshTimeout
	}

	b := &Balancer{
		pool:    opts.Pool,
		policy:  opts.Policy,
		builder: opts.Builder,
		store:   opts.Store,
		logger:  opts.Logger,
		clock:   opts.Clock,
		timeout: opts.Timeout,
	}
	b.status.Store(&Status{Policy: b.policy.Name().String(), Backends: b.pool.Len()})
	return b, nil
}

// Start performs the initial selection and publishes the first snapshot.
// An error here leaves nothing to serve and should abort startup.
func (b *Balancer) Start(ctx context.Context) error {
	log.Emit(b.logger, log.EventPolicyChosen, map[string]any{
		"policy":   b.policy.Name().String(),
		"backends": b.pool.Addresses(),
	})
	if err := b.Refresh(ctx); err != nil {
		return fmt.Errorf("initial backend selection: %w", err)
	}
	return nil
}

// Refresh runs one selection followed by one rebuild and publishes the
// result. On failure the previous backend and snapshot stay in place and the
// error wraps domain.ErrSelection.
func (b *Balancer) Refresh(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RefreshDuration)

	chosen, err := b.policy.Select(ctx, b.pool)
	if err != nil {
		return b.degraded(err)
	}
	snap, err := b.builder.Build(chosen)
	if err != nil {
		return b.degraded(fmt.Errorf("%w: rebuild for %s: %w", domain.ErrSelection, chosen, err))
	}
	b.store.Swap(snap)

	previous := b.active
	b.active = chosen
	b.failures = 0
	b.publishStatus("")

	metrics.RefreshTotal.WithLabelValues("ok").Inc()
	metrics.SetActiveBackend(chosen)
	log.Emit(b.logger, log.EventBackendChosen, map[string]any{
		"backend":  chosen,
		"previous": previous,
		"policy":   b.policy.Name().String(),
		"duration": timer.Duration().String(),
	})
	return nil
}

// degraded records a failed refresh. Callers hold mu.
func (b *Balancer) degraded(err error) error {
	if !errors.Is(err, domain.ErrSelection) {
		err = fmt.Errorf("%w: %w", domain.ErrSelection, err)
	}
	b.failures++
	b.publishStatus(err.Error())

	metrics.RefreshTotal.WithLabelValues("failed").Inc()
	log.Emit(b.logger, log.EventRefreshDegraded, map[string]any{
		"policy":   b.policy.Name().String(),
		"retained": b.active,
		"failures": b.failures,
		"error":    err,
	})
	return err
}

// publishStatus replaces the health view. Callers hold mu.
func (b *Balancer) publishStatus(lastErr string) {
	prev := b.status.Load()
	next := &Status{
		Active:              b.active,
		Policy:              b.policy.Name().String(),
		Backends:            b.pool.Len(),
		LastRefresh:         prev.LastRefresh,
		LastError:           lastErr,
		ConsecutiveFailures: b.failures,
	}
	if lastErr == "" {
		next.LastRefresh = b.clock.Now()
	}
	b.status.Store(next)
}

// Active returns the backend chosen by the latest successful refresh.
func (b *Balancer) Active() string {
	return b.status.Load().Active
}

// Status returns the current health view without waiting for a refresh in
// progress.
func (b *Balancer) Status() Status {
	return *b.status.Load()
}

// Current returns the published snapshot.
func (b *Balancer) Current() *domain.ZoneSnapshot {
	return b.store.Current()
}
