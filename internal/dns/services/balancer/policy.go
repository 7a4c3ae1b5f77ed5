package balancer

import (
	"context"
	"fmt"
	"math"

	"github.com/haukened/lbdns/internal/dns/domain"
)

// Policy chooses the active backend from a pool. Select is only ever called
// with the balancer lock held, so implementations need no locking of their own.
type Policy interface {
	Name() domain.Policy
	Select(ctx context.Context, pool *domain.BackendPool) (string, error)
}

// PolicyOptions carries the collaborators a policy may need.
type PolicyOptions struct {
	Locator   GeoLocator
	Reporter  LoadReporter
	Reference string
}

// NewPolicy constructs the policy identified by kind.
func NewPolicy(kind domain.Policy, opts PolicyOptions) (Policy, error) {
	switch kind {
	case domain.PolicyRoundRobin:
		return RoundRobin{}, nil
	case domain.PolicyGeo:
		return NewGeoProximity(opts.Locator, opts.Reference)
	case domain.PolicyLoad:
		return NewLeastLoad(opts.Reporter)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownPolicy, kind)
	}
}

// PickPolicy parses every configured name and returns one of them chosen by
// intn, which must return a value in [0, n). Any unknown name is an error even
// if it would not have been picked.
func PickPolicy(names []string, intn func(n int) int) (domain.Policy, error) {
	if len(names) == 0 {
		return 0, fmt.Errorf("%w: none configured", domain.ErrUnknownPolicy)
	}
	kinds := make([]domain.Policy, 0, len(names))
	for _, n := range names {
		p, err := domain.ParsePolicy(n)
		if err != nil {
			return 0, err
		}
		kinds = append(kinds, p)
	}
	if len(kinds) == 1 {
		return kinds[0], nil
	}
	return kinds[intn(len(kinds))], nil
}

// argmin returns the index of the smallest value. Ties resolve to the earliest
// index and NaN ranks above every number. values must not be empty.
func argmin(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if math.IsNaN(values[best]) || values[i] < values[best] {
			if !math.IsNaN(values[i]) {
				best = i
			}
		}
	}
	return best
}
