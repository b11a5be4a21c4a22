package locks

import (
	"context"
	"time"
)

const (
	operationKeyPrefix = "op:"
	customerKeyPrefix  = "cust:"
)

// Coordinator holds the two lock domains every state-changing pipeline
// invocation must take: the operation lock (same physical event delivered
// twice) and the customer lock (two different events for one customer).
// Always operation first, then customer, released together.
type Coordinator struct {
	locker Locker
	ttl    time.Duration
	wait   time.Duration
}

func NewCoordinator(locker Locker, ttl, wait time.Duration) *Coordinator {
	return &Coordinator{locker: locker, ttl: ttl, wait: wait}
}

// AcquireBoth takes the operation lock then the customer lock. The returned
// release func drops both, in reverse order, and is safe to defer on every
// exit path.
func (c *Coordinator) AcquireBoth(ctx context.Context, operationKey, custID string) (func(), error) {
	releaseOp, err := c.locker.Acquire(ctx, operationKeyPrefix+operationKey, c.ttl, c.wait)
	if err != nil {
		return nil, err
	}

	releaseCust, err := c.locker.Acquire(ctx, customerKeyPrefix+custID, c.ttl, c.wait)
	if err != nil {
		releaseOp()
		return nil, err
	}

	return func() {
		releaseCust()
		releaseOp()
	}, nil
}
