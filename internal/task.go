// Task definition and state machine.
//
// A Task is one scheduled unit. It owns a child OS process that embodies
// either a CPU-bound or a memory-bound workload and it tracks the five
// timestamps needed by the metrics aggregator (t_start, t_firstrun,
// t_completion, t_laststop, t_waiting).

package schedsim_internal

import (
	"fmt"
	"sync"
	"time"
)

type TaskKind int

const (
	TaskKindCPU TaskKind = iota
	TaskKindMem
)

var taskKindName = map[TaskKind]string{
	TaskKindCPU: "cpu",
	TaskKindMem: "mem",
}

func (kind TaskKind) String() string {
	if name, ok := taskKindName[kind]; ok {
		return name
	}
	return "unknown"
}

type TaskState int

const (
	TaskRunnable TaskState = iota
	TaskRunning
	TaskStopped
	TaskFinished
)

var taskStateName = map[TaskState]string{
	TaskRunnable: "RUNNABLE",
	TaskRunning:  "RUNNING",
	TaskStopped:  "STOPPED",
	TaskFinished: "FINISHED",
}

func (state TaskState) String() string {
	if name, ok := taskStateName[state]; ok {
		return name
	}
	return "UNKNOWN"
}

var taskLog = NewCompLogger("task")

// TaskLeafCommand returns the executable path and args used to spawn the
// leaf workload for a given kind. It is a package variable rather than a
// hardwired switch so that tests can substitute a lightweight stand-in
// (e.g. a shell sleep) without a real cpu_task/mem_task binary on PATH.
var TaskLeafCommand = func(kind TaskKind) (string, []string) {
	switch kind {
	case TaskKindCPU:
		return "cpu_task", nil
	case TaskKindMem:
		return "mem_task", nil
	default:
		return "cpu_task", nil
	}
}

// Task is the scheduled unit. Every field is mutated by exactly one
// worker at a time -- the one currently dispatching it -- except for the
// id, kind and declaredRuntime, which are immutable after construction.
type Task struct {
	id   uint64
	kind TaskKind

	// declaredRuntime is used only by the SJF variant to pick the
	// shortest job; it is zero for RR/MLFQ tasks.
	declaredRuntime time.Duration

	child *ChildProcess
	state TaskState

	// usage is the most recently observed child rusage, in CPU
	// milliseconds (user+system).
	usageMs float64

	tStart      time.Time
	tFirstRun   time.Time
	tCompletion time.Time
	tLastStop   time.Time
	tWaiting    time.Duration

	mu sync.Mutex
}

var taskIdCounter struct {
	mu   sync.Mutex
	next uint64
}

func nextTaskId() uint64 {
	taskIdCounter.mu.Lock()
	defer taskIdCounter.mu.Unlock()
	taskIdCounter.next++
	return taskIdCounter.next
}

// NewTask constructs a RUNNABLE task. declaredRuntime is only consulted
// by the SJF scheduler; pass 0 for RR/MLFQ.
func NewTask(kind TaskKind, declaredRuntime time.Duration) *Task {
	t := &Task{
		id:              nextTaskId(),
		kind:            kind,
		declaredRuntime: declaredRuntime,
		state:           TaskRunnable,
		tStart:          time.Now(),
	}
	taskLog.Infof("task %d (%s): created", t.id, t.kind)
	return t
}

func (t *Task) Id() uint64            { return t.id }
func (t *Task) Kind() TaskKind        { return t.kind }
func (t *Task) DeclaredRuntime() time.Duration { return t.declaredRuntime }

func (t *Task) State() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Task) UsageMs() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usageMs
}

// usageDelta returns cur - prev in CPU milliseconds.
func usageDelta(prev, cur float64) float64 {
	return cur - prev
}

func (t *Task) TStart() time.Time      { return t.tStart }
func (t *Task) TFirstRun() time.Time   { t.mu.Lock(); defer t.mu.Unlock(); return t.tFirstRun }
func (t *Task) TCompletion() time.Time { t.mu.Lock(); defer t.mu.Unlock(); return t.tCompletion }
func (t *Task) TLastStop() time.Time   { t.mu.Lock(); defer t.mu.Unlock(); return t.tLastStop }
func (t *Task) TWaiting() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tWaiting
}

// HasRun reports whether the task ever left RUNNABLE, i.e. whether it is
// meaningful to compute response/waiting/running times for it.
func (t *Task) HasRun() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.tFirstRun.IsZero()
}

// spawn transitions RUNNABLE -> RUNNING, forking the leaf executable.
// Fatal on process creation failure, per the error taxonomy.
func (t *Task) spawn() {
	t.mu.Lock()
	if t.state != TaskRunnable {
		t.mu.Unlock()
		taskLog.Fatalf("task %d: spawn() called from state %s", t.id, t.state)
	}
	name, args := TaskLeafCommand(t.kind)
	child, err := StartChildProcess(name, args)
	if err != nil {
		t.mu.Unlock()
		taskLog.Fatalf("task %d: spawn(): %v", t.id, err)
	}
	t.child = child
	if t.tFirstRun.IsZero() {
		t.tFirstRun = time.Now()
	}
	t.state = TaskRunning
	t.mu.Unlock()
	taskLog.Infof("task %d (%s): spawned pid=%d", t.id, t.kind, child.Pid())
}

// resume sends SIGCONT to a STOPPED child and transitions STOPPED -> RUNNING.
func (t *Task) resume() {
	t.mu.Lock()
	if t.state != TaskStopped {
		t.mu.Unlock()
		taskLog.Fatalf("task %d: resume() called from state %s", t.id, t.state)
	}
	now := time.Now()
	t.tWaiting += now.Sub(t.tLastStop)
	if err := t.child.Continue(); err != nil {
		t.mu.Unlock()
		taskLog.Fatalf("task %d: resume(): %v", t.id, err)
	}
	t.state = TaskRunning
	t.mu.Unlock()
}

// suspend sends SIGSTOP to the running child and blocks until the host
// reports a stopped (or exited) status, updating usage and timestamps.
// now is the caller-supplied timestamp used for t_laststop/t_completion,
// so that callers can keep a single, consistent notion of "now" across a
// dispatch step.
func (t *Task) suspend(now time.Time) {
	t.mu.Lock()
	if t.state != TaskRunning {
		t.mu.Unlock()
		taskLog.Fatalf("task %d: suspend() called from state %s", t.id, t.state)
	}
	child := t.child
	t.mu.Unlock()

	status, usageMs, err := child.StopAndWait()
	if err != nil {
		taskLog.Fatalf("task %d: suspend(): %v", t.id, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case status.Exited():
		t.usageMs = usageMs
		t.tCompletion = now
		t.state = TaskFinished
		taskLog.Infof("task %d (%s): finished, exit=%d", t.id, t.kind, status.ExitCode())
	case status.StoppedByStopSignal():
		t.usageMs = usageMs
		t.tLastStop = now
		t.state = TaskStopped
	default:
		// Either the wait returned with no state change, or the child
		// stopped/terminated for a reason other than our own stop
		// request: both are faults per the error taxonomy.
		taskLog.Fatalf(
			"task %d (%s): unexpected child status after suspend: %s",
			t.id, t.kind, status,
		)
	}
}

// terminate is used by HALT truncation to kill a still-live child
// unconditionally; it does nothing for a task with no child or one that
// has already FINISHED.
func (t *Task) terminate() {
	t.mu.Lock()
	child := t.child
	state := t.state
	t.mu.Unlock()
	if child == nil || state == TaskFinished {
		return
	}
	if err := child.Kill(); err != nil {
		taskLog.Warnf("task %d: terminate(): %v", t.id, err)
	}
}

func (t *Task) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.child == nil {
		return fmt.Sprintf("task#%d(%s)", t.id, t.kind)
	}
	return fmt.Sprintf("task#%d(%s,pid=%d)", t.id, t.kind, t.child.Pid())
}
