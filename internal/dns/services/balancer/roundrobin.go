package balancer

import (
	"context"

	"github.com/haukened/lbdns/internal/dns/domain"
)

// RoundRobin cycles through the pool by rotating it one step per selection.
type RoundRobin struct{}

func (RoundRobin) Name() domain.Policy { return domain.PolicyRoundRobin }

// Select returns the head of the pool and moves it to the back.
func (RoundRobin) Select(_ context.Context, pool *domain.BackendPool) (string, error) {
	return pool.Rotate(), nil
}

var _ Policy = RoundRobin{}
