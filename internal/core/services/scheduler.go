package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driving"
	"github.com/custodia-labs/hubsearch/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

const (
	// historyRetention is the number of task results kept per task.
	historyRetention = 100

	// maxTick bounds how long a due task can wait for the loop to notice it.
	maxTick = time.Minute
)

// Scheduler manages background task execution.
// A task never overlaps with itself, so sync runs are serialised.
type Scheduler struct {
	store    driven.SchedulerStore
	syncOrch driving.SyncOrchestrator
	tick     time.Duration

	mu       sync.Mutex
	config   domain.SchedulerConfig
	running  bool
	inflight map[string]bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	syncOrch driving.SyncOrchestrator,
) *Scheduler {
	return &Scheduler{
		config:   config,
		store:    store,
		syncOrch: syncOrch,
		tick:     tickFor(config),
		inflight: make(map[string]bool),
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler, waiting for running tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()

	return nil
}

// Reconfigure applies a new configuration, e.g. after the config file changed.
func (s *Scheduler) Reconfigure(ctx context.Context, config domain.SchedulerConfig) error {
	s.mu.Lock()
	s.config = config
	s.tick = tickFor(config)
	s.mu.Unlock()
	return s.initialiseTasks(ctx)
}

// tickFor returns how often the loop checks for due tasks: never less often
// than the index sync interval and at most once a minute.
func tickFor(config domain.SchedulerConfig) time.Duration {
	interval := config.GetTaskConfig(domain.TaskIDIndexSync).Interval
	switch {
	case interval <= 0 || interval > maxTick:
		return maxTick
	case interval < domain.MinTaskInterval:
		return domain.MinTaskInterval
	default:
		return interval
	}
}

func (s *Scheduler) currentTick() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// initialiseTasks ensures all configured tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	s.mu.Lock()
	taskCfg := s.config.GetTaskConfig(domain.TaskIDIndexSync)
	enabled := s.config.Enabled
	s.mu.Unlock()

	taskCfg.Enabled = taskCfg.Enabled && enabled
	if taskCfg.Interval <= 0 {
		return nil
	}
	return s.ensureTask(ctx, domain.TaskIDIndexSync, "Index Sync", taskCfg)
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			NextRun:  time.Now(),
		}
	} else {
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = time.Now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	s.checkAndRunDueTasks(ctx)

	tick := s.currentTick()
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
			if next := s.currentTick(); next != tick {
				tick = next
				ticker.Reset(tick)
			}
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := &tasks[i]
		if !task.Enabled {
			continue
		}
		if task.NextRun.IsZero() || !task.NextRun.After(now) {
			s.runTask(ctx, task)
		}
	}
}

// runTask executes a single task unless it is already running.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.mu.Lock()
	if s.inflight[task.ID] {
		s.mu.Unlock()
		logger.Debug("scheduler: task %s still running, skipping", task.ID)
		return
	}
	s.inflight[task.ID] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inflight, task.ID)
			s.mu.Unlock()
		}()

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: time.Now(),
		}

		var err error
		switch task.ID {
		case domain.TaskIDIndexSync:
			err = s.runIndexSync(ctx, result)
		default:
			logger.Warn("scheduler: unknown task ID: %s", task.ID)
			return
		}

		result.EndedAt = time.Now()
		if err != nil {
			result.Success = false
			result.Error = err.Error()
			task.LastError = err.Error()
		} else {
			result.Success = true
			task.LastError = ""
			task.LastSuccess = result.EndedAt
		}

		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)

		if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
			logger.Warn("scheduler: failed to save task %s: %v", task.ID, saveErr)
		}

		if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
			logger.Warn("scheduler: failed to record result for %s: %v", task.ID, recordErr)
		}

		if pruneErr := s.store.PruneHistory(ctx, historyRetention); pruneErr != nil {
			logger.Warn("scheduler: failed to prune history: %v", pruneErr)
		}
	}()
}

// runIndexSync runs one sync pass and copies its report into result.
// ItemsProcessed counts documents indexed or deleted.
func (s *Scheduler) runIndexSync(ctx context.Context, result *domain.TaskResult) error {
	if s.syncOrch == nil {
		return nil
	}

	report, err := s.syncOrch.Run(ctx)
	if report == nil {
		return err
	}
	result.RunID = report.RunID
	result.Streams = make(map[domain.Stream]domain.StreamReport, len(report.Streams))
	for stream, sr := range report.Streams {
		result.Streams[stream] = sr
		result.ItemsProcessed += sr.Indexed + sr.Deleted
	}
	return err
}
