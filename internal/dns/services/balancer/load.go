package balancer

import (
	"context"
	"errors"
	"fmt"

	"github.com/haukened/lbdns/internal/dns/domain"
)

// LeastLoad selects the backend with the lowest reported load.
type LeastLoad struct {
	reporter LoadReporter
}

// NewLeastLoad returns a load policy reading from reporter.
func NewLeastLoad(reporter LoadReporter) (*LeastLoad, error) {
	if reporter == nil {
		return nil, errors.New("load policy requires a load reporter")
	}
	return &LeastLoad{reporter: reporter}, nil
}

func (l *LeastLoad) Name() domain.Policy { return domain.PolicyLoad }

// Select pairs loads with backends by position. The number of values must
// equal the pool size exactly.
func (l *LeastLoad) Select(ctx context.Context, pool *domain.BackendPool) (string, error) {
	loads, err := l.reporter.Loads(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: read loads: %w", domain.ErrSelection, err)
	}
	if len(loads) != pool.Len() {
		return "", fmt.Errorf("%w: got %d load values for %d backends", domain.ErrSelection, len(loads), pool.Len())
	}
	return pool.Addresses()[argmin(loads)], nil
}

var _ Policy = (*LeastLoad)(nil)
