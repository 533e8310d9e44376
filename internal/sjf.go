// Shortest-Job-First: a non-preemptive scheduler variant. Unlike the
// MLFQ/RR kernel, a task that starts running keeps the CPU until it
// exits; scheduling decisions are made only when a worker goes idle, by
// picking the queued task with the smallest declared runtime.

package schedsim_internal

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

var sjfLog = NewCompLogger("sjf")

type SJFConfig struct {
	NumWorkers int `yaml:"num_workers"`
}

func DefaultSJFConfig() *SJFConfig {
	return &SJFConfig{NumWorkers: SCHEDULER_CONFIG_NUM_WORKERS_DEFAULT}
}

// SJFScheduler holds every admitted, not-yet-finished task in a single
// unordered pool; each idle worker scans the pool for the task with the
// smallest DeclaredRuntime and runs it to completion.
type SJFScheduler struct {
	config *SJFConfig

	mu    sync.Mutex
	cond  *sync.Cond
	state SchedulerState
	flags schedFlags
	pool  []*Task

	wg sync.WaitGroup

	completedMu sync.Mutex
	completed   []*Task
}

func NewSJFScheduler(config *SJFConfig) *SJFScheduler {
	if config == nil {
		config = DefaultSJFConfig()
	}
	if config.NumWorkers < 1 {
		config.NumWorkers = 1
	}
	s := &SJFScheduler{config: config, state: SchedulerCreated}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *SJFScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SchedulerCreated {
		return fmt.Errorf("sjf: Start() invalid from state %s", s.state)
	}
	for i := 0; i < s.config.NumWorkers; i++ {
		s.wg.Add(1)
		go s.workerLoop(i)
	}
	s.state = SchedulerRunning
	sjfLog.Infof("sjf scheduler started: workers=%d", s.config.NumWorkers)
	return nil
}

func (s *SJFScheduler) EnqueueTask(t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SchedulerRunning {
		return fmt.Errorf("sjf: EnqueueTask() invalid from state %s", s.state)
	}
	s.pool = append(s.pool, t)
	s.cond.Broadcast()
	return nil
}

func (s *SJFScheduler) Shutdown(graceful bool) error {
	s.mu.Lock()
	if s.state != SchedulerRunning {
		s.mu.Unlock()
		return fmt.Errorf("sjf: Shutdown() invalid from state %s", s.state)
	}
	s.mu.Unlock()

	if graceful {
		s.flags.set(flagStop)
	} else {
		s.flags.set(flagHalt)
	}
	s.mu.Lock()
	s.cond.Broadcast()
	s.mu.Unlock()
	s.wg.Wait()

	if !graceful {
		s.mu.Lock()
		remaining := s.pool
		s.pool = nil
		s.mu.Unlock()
		for _, t := range remaining {
			if t.State() == TaskStopped || t.State() == TaskRunning {
				t.terminate()
			}
		}
	}

	s.mu.Lock()
	s.state = SchedulerStopped
	s.mu.Unlock()
	sjfLog.Infof("sjf scheduler stopped: %d task(s) completed", len(s.CompletedTasks()))
	return nil
}

func (s *SJFScheduler) CompletedTasks() []*Task {
	s.completedMu.Lock()
	defer s.completedMu.Unlock()
	out := make([]*Task, len(s.completed))
	copy(out, s.completed)
	return out
}

// pickShortest removes and returns the queued task with the smallest
// DeclaredRuntime, or nil if the pool is empty.
func (s *SJFScheduler) pickShortest() *Task {
	if len(s.pool) == 0 {
		return nil
	}
	sort.Slice(s.pool, func(i, j int) bool {
		return s.pool[i].DeclaredRuntime() < s.pool[j].DeclaredRuntime()
	})
	t := s.pool[0]
	s.pool = s.pool[1:]
	return t
}

func (s *SJFScheduler) workerLoop(workerId int) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		for len(s.pool) == 0 && !s.flags.has(flagHalt) && !s.flags.has(flagStop) {
			s.cond.Wait()
		}
		if s.flags.has(flagHalt) {
			s.mu.Unlock()
			return
		}
		t := s.pickShortest()
		if t == nil {
			s.mu.Unlock()
			// STOP set and pool drained: nothing left for this worker.
			return
		}
		s.mu.Unlock()

		s.runToCompletion(t)
	}
}

// runToCompletion spawns t and lets it run uninterrupted, polling its
// exit with a blocking wait4 (no SIGSTOP round trips, since SJF never
// preempts).
func (s *SJFScheduler) runToCompletion(t *Task) {
	t.spawn()
	status, usageMs, err := t.child.waitUntilExit()
	if err != nil {
		sjfLog.Fatalf("task %d: runToCompletion: %v", t.Id(), err)
	}
	now := time.Now()
	t.mu.Lock()
	t.usageMs = usageMs
	t.tCompletion = now
	t.state = TaskFinished
	t.mu.Unlock()
	if !status.Exited() {
		sjfLog.Warnf("task %d: exited abnormally: %s", t.Id(), status)
	}
	s.completedMu.Lock()
	s.completed = append(s.completed, t)
	s.completedMu.Unlock()
}
