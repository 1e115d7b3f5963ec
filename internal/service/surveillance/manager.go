package surveillance

import (
	"context"
	"errors"
	"sync"

	"cctvmonitor/internal/logger"
)

// Runner is a pipeline the Manager can drive; *Loop satisfies it for any frame type.
type Runner interface {
	Camera() string
	Run(ctx context.Context) error
	Stop()
	Stats() Stats
}

// Manager runs one independent pipeline per camera. Pipelines share no
// mutable state; the Manager only starts, stops and observes them.
type Manager struct {
	runners []Runner
	logger  *logger.Logger

	wg     sync.WaitGroup
	mu     sync.Mutex
	errs   map[string]error
	cancel context.CancelFunc
}

// NewManager creates a Manager for the given pipelines.
func NewManager(runners []Runner, logger *logger.Logger) *Manager {
	return &Manager{
		runners: runners,
		logger:  logger,
		errs:    make(map[string]error),
	}
}

// Start launches every pipeline in its own goroutine.
func (m *Manager) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)

	for _, runner := range m.runners {
		m.wg.Add(1)
		go m.run(ctx, runner)
	}

	m.logger.Info("🎬 Manager started %d camera pipeline(s)", len(m.runners))
}

func (m *Manager) run(ctx context.Context, runner Runner) {
	defer m.wg.Done()

	if err := runner.Run(ctx); err != nil {
		m.logger.Error("Pipeline %s ended: %v", runner.Camera(), err)
		m.mu.Lock()
		m.errs[runner.Camera()] = err
		m.mu.Unlock()
		return
	}
	m.logger.Info("Pipeline %s ended", runner.Camera())
}

// Stop signals every pipeline and waits for them to release their sources.
func (m *Manager) Stop() {
	for _, runner := range m.runners {
		runner.Stop()
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.logger.Info("🛑 All camera pipelines stopped")
}

// Wait blocks until every pipeline has returned and reports their failures.
func (m *Manager) Wait() error {
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for _, runner := range m.runners {
		if err, ok := m.errs[runner.Camera()]; ok {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stats returns per-camera totals in configuration order.
func (m *Manager) Stats() []Stats {
	stats := make([]Stats, 0, len(m.runners))
	for _, runner := range m.runners {
		stats = append(stats, runner.Stats())
	}
	return stats
}
