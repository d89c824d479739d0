package workers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/patrickward/livepad/internal/logging"
)

// BackgroundTask represents a background task that can be cancelled
type BackgroundTask struct {
	Name     string
	Handler  func(ctx context.Context) error
	Interval time.Duration // For periodic tasks, 0 means run once
}

// BackgroundWorker manages and runs background tasks with graceful shutdown.
// Tasks added before Start are queued; tasks added afterwards start at once.
type BackgroundWorker struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	tasks   []BackgroundTask
	mu      sync.Mutex
	started bool
	stopped bool
	log     zerolog.Logger
}

// NewBackgroundWorker creates a new BackgroundWorker
func NewBackgroundWorker(ctx context.Context) *BackgroundWorker {
	cctx, cancel := context.WithCancel(ctx)
	return &BackgroundWorker{
		ctx:    cctx,
		cancel: cancel,
		log:    logging.Component("workers"),
	}
}

// AddTask adds a new background task to the runner
func (br *BackgroundWorker) AddTask(task BackgroundTask) {
	br.mu.Lock()
	defer br.mu.Unlock()

	if br.stopped {
		return
	}
	if br.started {
		br.startTask(task)
		return
	}
	br.tasks = append(br.tasks, task)
}

// AddPeriodicTask adds a new periodic background task to the runner
func (br *BackgroundWorker) AddPeriodicTask(name string, interval time.Duration, handler func(ctx context.Context) error) {
	br.AddTask(BackgroundTask{
		Name:     name,
		Handler:  handler,
		Interval: interval,
	})
}

// StartOneTimeTask adds a new one-time background task to the runner
func (br *BackgroundWorker) StartOneTimeTask(name string, handler func(ctx context.Context) error) {
	br.AddTask(BackgroundTask{
		Name:    name,
		Handler: handler,
		// Interval is 0 for one-time tasks
	})
}

// Start begins executing all added background tasks
func (br *BackgroundWorker) Start() {
	br.mu.Lock()
	defer br.mu.Unlock()

	if br.started || br.stopped {
		return
	}
	br.started = true
	for _, task := range br.tasks {
		br.startTask(task)
	}
	br.tasks = nil
}

// Context returns the context handed to every task. It is cancelled on
// Shutdown.
func (br *BackgroundWorker) Context() context.Context {
	return br.ctx
}

// startTask starts a single background task
func (br *BackgroundWorker) startTask(task BackgroundTask) {
	br.wg.Add(1)
	go func(t BackgroundTask) {
		defer br.wg.Done()

		defer func() {
			if r := recover(); r != nil {
				br.log.Error().Str("task", t.Name).Interface("panic", r).Msg("recovered from panic in task")
			}
		}()

		if t.Interval <= 0 {
			br.run(t)
			return
		}

		ticker := time.NewTicker(t.Interval)
		defer ticker.Stop()

		// Run once immediately
		br.run(t)

		for {
			select {
			case <-br.ctx.Done():
				br.log.Debug().Str("task", t.Name).Msg("background task stopping")
				return
			case <-ticker.C:
				br.run(t)
			}
		}
	}(task)
}

func (br *BackgroundWorker) run(t BackgroundTask) {
	if err := t.Handler(br.ctx); err != nil && br.ctx.Err() == nil {
		br.log.Error().Err(err).Str("task", t.Name).Msg("background task error")
	}
}

// Shutdown gracefully stops all background tasks
func (br *BackgroundWorker) Shutdown() {
	br.mu.Lock()
	br.stopped = true
	br.mu.Unlock()

	br.log.Info().Msg("shutting down background tasks")
	br.cancel()
	br.wg.Wait()
	br.log.Info().Msg("all background tasks stopped")
}
