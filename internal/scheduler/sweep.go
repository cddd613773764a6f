package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper removes entries older than a cutoff and reports how many went.
type Sweeper interface {
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}

// SweepJob evicts everything idle for longer than ttl.
func SweepJob(st Sweeper, ttl time.Duration, now func() time.Time, log *zap.SugaredLogger) Job {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return func(ctx context.Context) error {
		n, err := st.Sweep(ctx, now().Add(-ttl))
		if err != nil {
			return err
		}
		if n > 0 {
			log.Infow("expired sessions removed", "count", n, "ttl", ttl)
		}
		return nil
	}
}
