package scheduler

import (
	"context"
	"time"
)

type Job interface{ Run(ctx context.Context) }

type FuncJob func(ctx context.Context)

func (f FuncJob) Run(ctx context.Context) { f(ctx) }

// Scheduler runs periodic jobs on goroutines tied to a shared root context.
// Every returns a cancel handle so individual loops (one per active SOS alert,
// one per auto-updating user) can be stopped without tearing down the rest.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{ctx: ctx, cancel: cancel}
}

// Stop cancels every loop started from this scheduler.
func (s *Scheduler) Stop() { s.cancel() }

// Every runs job each d until the returned cancel is called or the scheduler
// stops. The first run happens after the first tick, not immediately.
func (s *Scheduler) Every(d time.Duration, job Job) context.CancelFunc {
	ctx, cancel := context.WithCancel(s.ctx)
	go loopEvery(ctx, d, job)
	return cancel
}

func loopEvery(ctx context.Context, d time.Duration, job Job) {
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			job.Run(ctx)
		}
	}
}
