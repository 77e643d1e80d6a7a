package async

import (
	"time"

	"github.com/hiveframe/hiveframe-go/logger"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
)

// SerialScheduler runs tasks one at a time on a single worker. Submit blocks
// while the worker is busy, so tasks never interleave.
type SerialScheduler struct {
	pool *ants.Pool
}

var _ Scheduler = (*SerialScheduler)(nil)

func NewSerialScheduler() (*SerialScheduler, error) {
	pool, err := ants.NewPool(1, ants.WithPanicHandler(func(v any) {
		logger.Error().Msgf("hiveframe: scheduled task panic: %v", v)
	}))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &SerialScheduler{pool: pool}, nil
}

func (s *SerialScheduler) Submit(task func()) error {
	return s.pool.Submit(task)
}

// Release waits up to timeout for the running task and stops the worker.
// Submitting after Release fails.
func (s *SerialScheduler) Release(timeout time.Duration) error {
	return s.pool.ReleaseTimeout(timeout)
}

// IsReleased reports whether Release was called.
func (s *SerialScheduler) IsReleased() bool {
	return s.pool.IsClosed()
}
