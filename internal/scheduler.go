// Scheduler Core: an N-level Round-Robin / Multi-Level Feedback Queue
// kernel driving a fixed-size worker pool against the Ready-Queue Bank.
// Round-Robin is the degenerate case of a single level with no demotion
// and no priority boost; MLFQ generalizes it to N levels with demotion on
// timeslice overrun and a periodic boost that pulls every non-top-level
// task back to level 0.
//
// The dispatch step (spawn/resume, run for one timeslice, stop, examine)
// and the shutdown protocol (graceful STOP vs immediate HALT) follow the
// wait4/SIGSTOP worker-pool pattern used throughout this package for
// process lifecycle management.

package schedsim_internal

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const (
	SCHEDULER_CONFIG_NUM_WORKERS_DEFAULT  = 1
	SCHEDULER_CONFIG_NUM_LEVELS_DEFAULT   = 1
	SCHEDULER_CONFIG_TIMESLICE_DEFAULT    = 100 * time.Millisecond
	SCHEDULER_CONFIG_BOOST_PERIOD_DEFAULT = 2500 * time.Millisecond
)

type SchedulerConfig struct {
	// Number of worker goroutines, each of which owns at most one live
	// child process at a time; normally set to the available CPU count.
	NumWorkers int `yaml:"num_workers"`
	// Number of MLFQ priority levels. 1 means plain Round-Robin: no
	// demotion, no boost coordinator.
	NumLevels int `yaml:"num_levels"`
	// Quantum granted to a task before it is preempted and, if it has
	// not finished, considered for demotion.
	Timeslice time.Duration `yaml:"timeslice"`
	// How often the boost coordinator pulls every task below level 0
	// back up to level 0. Ignored when NumLevels == 1.
	BoostPeriod time.Duration `yaml:"boost_period"`
}

func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		NumWorkers:  SCHEDULER_CONFIG_NUM_WORKERS_DEFAULT,
		NumLevels:   SCHEDULER_CONFIG_NUM_LEVELS_DEFAULT,
		Timeslice:   SCHEDULER_CONFIG_TIMESLICE_DEFAULT,
		BoostPeriod: SCHEDULER_CONFIG_BOOST_PERIOD_DEFAULT,
	}
}

type SchedulerState int

const (
	SchedulerCreated SchedulerState = iota
	SchedulerRunning
	SchedulerStopped
)

var schedulerStateName = map[SchedulerState]string{
	SchedulerCreated: "CREATED",
	SchedulerRunning: "RUNNING",
	SchedulerStopped: "STOPPED",
}

func (s SchedulerState) String() string {
	if name, ok := schedulerStateName[s]; ok {
		return name
	}
	return "UNKNOWN"
}

var schedLog = NewCompLogger("scheduler")

// Scheduler is the RR/MLFQ kernel. Build one with NewScheduler, call
// Start once, EnqueueTask any number of times while running, then
// Shutdown(graceful) exactly once.
type Scheduler struct {
	config *SchedulerConfig
	bank   *ReadyQueueBank
	flags  schedFlags

	mu    sync.Mutex
	state SchedulerState

	wg        sync.WaitGroup
	boostWg   sync.WaitGroup
	boostDone chan struct{}

	completedMu sync.Mutex
	completed   []*Task

	// boostRecaptures counts how many times a worker has pulled a task
	// out of a priority-boost window and redirected it to level 0
	// instead of dispatching it; exposed for diagnostics and tests,
	// never consumed by the metrics aggregator.
	boostRecaptures atomic.Uint64
}

func NewScheduler(config *SchedulerConfig) *Scheduler {
	if config == nil {
		config = DefaultSchedulerConfig()
	}
	if config.NumWorkers < 1 {
		config.NumWorkers = 1
	}
	if config.NumLevels < 1 {
		config.NumLevels = 1
	}
	return &Scheduler{
		config:    config,
		bank:      NewReadyQueueBank(config.NumLevels),
		state:     SchedulerCreated,
		boostDone: make(chan struct{}),
	}
}

// Start spawns the worker pool (and, for NumLevels > 1, the priority
// boost coordinator). Calling it more than once is an error.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SchedulerCreated {
		return fmt.Errorf("scheduler: Start() invalid from state %s", s.state)
	}
	for i := 0; i < s.config.NumWorkers; i++ {
		s.wg.Add(1)
		go s.workerLoop(i)
	}
	if s.config.NumLevels > 1 && s.config.BoostPeriod > 0 {
		s.boostWg.Add(1)
		go s.boostLoop()
	}
	s.state = SchedulerRunning
	schedLog.Infof(
		"scheduler started: workers=%d levels=%d timeslice=%s boost_period=%s",
		s.config.NumWorkers, s.config.NumLevels, s.config.Timeslice, s.config.BoostPeriod,
	)
	return nil
}

// EnqueueTask admits a new, RUNNABLE task at the top priority level.
func (s *Scheduler) EnqueueTask(t *Task) error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state != SchedulerRunning {
		return fmt.Errorf("scheduler: EnqueueTask() invalid from state %s", state)
	}
	s.bank.Enqueue(0, t)
	return nil
}

// Shutdown stops the scheduler. If graceful is true (STOP), every worker
// finishes draining its current task and the ready-queue bank down to
// empty before exiting; tasks still queued when graceful is false (HALT)
// are abandoned and their child processes killed outright. Either way
// Shutdown blocks until every worker (and the boost coordinator, if any)
// has exited.
func (s *Scheduler) Shutdown(graceful bool) error {
	s.mu.Lock()
	if s.state != SchedulerRunning {
		s.mu.Unlock()
		return fmt.Errorf("scheduler: Shutdown() invalid from state %s", s.state)
	}
	s.mu.Unlock()

	if graceful {
		s.flags.set(flagStop)
		schedLog.Info("scheduler: graceful shutdown requested")
	} else {
		s.flags.set(flagHalt)
		schedLog.Info("scheduler: immediate shutdown requested")
	}
	s.bank.BroadcastAll()
	s.wg.Wait()

	if s.config.NumLevels > 1 && s.config.BoostPeriod > 0 {
		close(s.boostDone)
		s.boostWg.Wait()
	}

	if !graceful {
		s.abandonRemaining()
	}

	s.mu.Lock()
	s.state = SchedulerStopped
	s.mu.Unlock()
	schedLog.Infof("scheduler stopped: %d task(s) completed", len(s.CompletedTasks()))
	return nil
}

// abandonRemaining kills the child process of any task still sitting in
// the ready-queue bank after a HALT shutdown; those tasks never get to
// run again and are excluded from the metrics aggregator.
func (s *Scheduler) abandonRemaining() {
	for lvl := 0; lvl < s.bank.NumLevels(); lvl++ {
		for _, t := range s.bank.DrainLevel(lvl) {
			if t.State() == TaskStopped || t.State() == TaskRunning {
				t.terminate()
			}
		}
	}
}

// CompletedTasks returns a snapshot of every task that has reached
// FINISHED so far; it is the feed consumed by the metrics aggregator.
func (s *Scheduler) CompletedTasks() []*Task {
	s.completedMu.Lock()
	defer s.completedMu.Unlock()
	out := make([]*Task, len(s.completed))
	copy(out, s.completed)
	return out
}

// BoostRecaptureCount reports how many tasks have been pulled back to
// level 0 by a worker racing a priority boost, cumulative over the life
// of the scheduler.
func (s *Scheduler) BoostRecaptureCount() uint64 {
	return s.boostRecaptures.Load()
}

func (s *Scheduler) recordCompletion(t *Task) {
	s.completedMu.Lock()
	s.completed = append(s.completed, t)
	s.completedMu.Unlock()
}

func (s *Scheduler) workerLoop(workerId int) {
	defer s.wg.Done()
	for {
		task, level, halt := s.bank.Dispatch(&s.flags)
		if halt {
			return
		}
		if task == nil {
			// STOP set and the whole bank is empty: graceful drain done.
			return
		}
		if s.flags.has(flagBoost) {
			// A priority boost is in progress: pull this task out of
			// whatever level dequeue_any found it at and hand it
			// straight back to level 0 instead of running a dispatch
			// step. The coordinator itself never touches the queues.
			schedLog.Debugf("priority boost: task %d pulled from level %d to level 0", task.Id(), level)
			s.boostRecaptures.Add(1)
			s.bank.Enqueue(0, task)
			continue
		}
		s.dispatchStep(task, level)
	}
}

// dispatchStep runs task for one timeslice at the given level, then
// either records its completion or re-enqueues it, demoted by one level
// if it consumed a full timeslice without finishing.
func (s *Scheduler) dispatchStep(t *Task, level int) {
	prevUsage := t.UsageMs()

	if t.State() == TaskRunnable {
		t.spawn()
	} else {
		t.resume()
	}

	time.Sleep(s.config.Timeslice)

	now := time.Now()
	t.suspend(now)

	switch t.State() {
	case TaskFinished:
		s.recordCompletion(t)
	case TaskStopped:
		used := usageDelta(prevUsage, t.UsageMs())
		nextLevel := level
		if used >= durationMs(s.config.Timeslice) && level < s.bank.NumLevels()-1 {
			nextLevel = level + 1
		}
		s.bank.Enqueue(nextLevel, t)
	default:
		schedLog.Fatalf("task %d: unexpected state %s after dispatch", t.Id(), t.State())
	}
}

// boostLoop periodically defeats starvation of tasks demoted to the
// bottom of the feedback queue. The coordinator itself never touches a
// level's queue: it only sets BOOST, broadcasts the non-empty levels
// above 0 so their parked workers wake up, and clears BOOST again. Each
// woken worker pulls its own candidate out of dequeue_any and
// re-enqueues it at level 0 itself (see workerLoop) -- this is the
// pulled-task variant, never a wholesale migration of queue storage.
func (s *Scheduler) boostLoop() {
	defer s.boostWg.Done()
	ticker := time.NewTicker(s.config.BoostPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if s.flags.has(flagStop) || s.flags.has(flagHalt) {
				return
			}
			s.runBoost()
		case <-s.boostDone:
			return
		}
	}
}

func (s *Scheduler) runBoost() {
	s.flags.set(flagBoost)
	for lvl := 1; lvl < s.bank.NumLevels(); lvl++ {
		if s.bank.Len(lvl) > 0 {
			s.bank.Broadcast(lvl)
		}
	}
	s.flags.clear(flagBoost)
}
