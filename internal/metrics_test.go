// Tests for metrics.go

package schedsim_internal

import (
	"testing"
	"time"
)

func testFinishedTask(kind TaskKind, start, firstRun, completion time.Time, waiting time.Duration, usageMs float64) *Task {
	return &Task{
		id:          nextTaskId(),
		kind:        kind,
		state:       TaskFinished,
		tStart:      start,
		tFirstRun:   firstRun,
		tCompletion: completion,
		tWaiting:    waiting,
		usageMs:     usageMs,
	}
}

func TestComputeMetricsBasicAggregates(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	tasks := []*Task{
		testFinishedTask(
			TaskKindCPU,
			base,
			base.Add(10*time.Millisecond),
			base.Add(110*time.Millisecond),
			20*time.Millisecond,
			80,
		),
		testFinishedTask(
			TaskKindMem,
			base,
			base.Add(5*time.Millisecond),
			base.Add(205*time.Millisecond),
			50*time.Millisecond,
			40,
		),
	}

	m := ComputeMetrics(tasks, 2, base.Add(-1*time.Millisecond))

	if m.NumTasks != 2 {
		t.Fatalf("NumTasks: want 2, got %d", m.NumTasks)
	}
	if m.NumCPUTasks != 1 || m.NumMemTasks != 1 {
		t.Fatalf("kind counts: want 1/1, got %d/%d", m.NumCPUTasks, m.NumMemTasks)
	}

	wantTurnaround := ((110 * time.Millisecond) + (205 * time.Millisecond)) / 2
	if m.AvgTurnaround != wantTurnaround {
		t.Errorf("AvgTurnaround: want %s, got %s", wantTurnaround, m.AvgTurnaround)
	}

	wantResponse := ((10 * time.Millisecond) + (5 * time.Millisecond)) / 2
	if m.AvgResponse != wantResponse {
		t.Errorf("AvgResponse: want %s, got %s", wantResponse, m.AvgResponse)
	}

	wantWaiting := ((20 * time.Millisecond) + (50 * time.Millisecond)) / 2
	if m.AvgWaiting != wantWaiting {
		t.Errorf("AvgWaiting: want %s, got %s", wantWaiting, m.AvgWaiting)
	}

	if m.ThroughputPerSec <= 0 {
		t.Errorf("ThroughputPerSec: want positive, got %v", m.ThroughputPerSec)
	}
	if m.CPUUtilizationPct <= 0 {
		t.Errorf("CPUUtilizationPct: want positive, got %v", m.CPUUtilizationPct)
	}
}

func TestComputeMetricsToleratesAbandonedTasks(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	finished := testFinishedTask(
		TaskKindCPU,
		base,
		base.Add(10*time.Millisecond),
		base.Add(110*time.Millisecond),
		20*time.Millisecond,
		80,
	)
	abandoned := &Task{
		id:    nextTaskId(),
		kind:  TaskKindCPU,
		state: TaskRunnable,
	}
	tasks := []*Task{finished, abandoned}

	m := ComputeMetrics(tasks, 1, base.Add(-time.Millisecond))

	if m.NumTasks != 2 {
		t.Fatalf("NumTasks: want 2, got %d", m.NumTasks)
	}
	if m.AvgTurnaround != 110*time.Millisecond {
		t.Errorf("AvgTurnaround: want only the finished task counted, got %s", m.AvgTurnaround)
	}
}

func TestComputeMetricsEmptyBatch(t *testing.T) {
	m := ComputeMetrics(nil, 4, time.Now())
	if m.NumTasks != 0 {
		t.Fatalf("NumTasks: want 0, got %d", m.NumTasks)
	}
}

func TestWriteReportDoesNotError(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	tasks := []*Task{
		testFinishedTask(TaskKindCPU, base, base.Add(time.Millisecond), base.Add(50*time.Millisecond), 0, 30),
	}
	m := ComputeMetrics(tasks, 1, base.Add(-time.Millisecond))
	if err := m.WriteReport(new(discardWriter)); err != nil {
		t.Fatal(err)
	}
}

type discardWriter struct{}

func (*discardWriter) Write(p []byte) (int, error) { return len(p), nil }
