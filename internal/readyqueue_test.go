// Tests for readyqueue.go

package schedsim_internal

import (
	"testing"
	"time"
)

func TestReadyQueueBankFIFOWithinLevel(t *testing.T) {
	bank := NewReadyQueueBank(2)
	t1 := NewTask(TaskKindCPU, 0)
	t2 := NewTask(TaskKindCPU, 0)
	bank.Enqueue(0, t1)
	bank.Enqueue(0, t2)

	var flags schedFlags
	got, level, halt := bank.Dispatch(&flags)
	if halt || got != t1 || level != 0 {
		t.Fatalf("want t1 at level 0, got %v level %d halt %v", got, level, halt)
	}
	got, level, _ = bank.Dispatch(&flags)
	if got != t2 || level != 0 {
		t.Fatalf("want t2 at level 0, got %v level %d", got, level)
	}
}

func TestReadyQueueBankPrefersLowerLevel(t *testing.T) {
	bank := NewReadyQueueBank(3)
	low := NewTask(TaskKindCPU, 0)
	high := NewTask(TaskKindCPU, 0)
	bank.Enqueue(2, low)
	bank.Enqueue(0, high)

	var flags schedFlags
	got, level, _ := bank.Dispatch(&flags)
	if got != high || level != 0 {
		t.Fatalf("want high-priority task from level 0 first, got %v level %d", got, level)
	}
}

func TestReadyQueueBankDispatchBlocksUntilEnqueue(t *testing.T) {
	bank := NewReadyQueueBank(1)
	var flags schedFlags
	task := NewTask(TaskKindCPU, 0)

	done := make(chan struct{})
	var got *Task
	go func() {
		got, _, _ = bank.Dispatch(&flags)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Dispatch returned before any task was enqueued")
	case <-time.After(30 * time.Millisecond):
	}

	bank.Enqueue(0, task)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch did not wake up after Enqueue")
	}
	if got != task {
		t.Fatalf("want %v, got %v", task, got)
	}
}

func TestReadyQueueBankStopWithEmptyBankReturnsNil(t *testing.T) {
	bank := NewReadyQueueBank(1)
	var flags schedFlags
	flags.set(flagStop)

	got, _, halt := bank.Dispatch(&flags)
	if got != nil || halt {
		t.Fatalf("want (nil, halt=false) on STOP with an empty bank, got (%v, halt=%v)", got, halt)
	}
}

func TestReadyQueueBankHaltUnblocksImmediately(t *testing.T) {
	bank := NewReadyQueueBank(1)
	var flags schedFlags
	flags.set(flagHalt)

	got, _, halt := bank.Dispatch(&flags)
	if got != nil || !halt {
		t.Fatalf("want (nil, halt=true) on HALT, got (%v, halt=%v)", got, halt)
	}
}

func TestReadyQueueBankDrainLevel(t *testing.T) {
	bank := NewReadyQueueBank(2)
	t1 := NewTask(TaskKindCPU, 0)
	t2 := NewTask(TaskKindCPU, 0)
	bank.Enqueue(1, t1)
	bank.Enqueue(1, t2)

	drained := bank.DrainLevel(1)
	if len(drained) != 2 || drained[0] != t1 || drained[1] != t2 {
		t.Fatalf("unexpected drain result: %v", drained)
	}
	if bank.Len(1) != 0 {
		t.Fatalf("level 1 should be empty after drain, got len %d", bank.Len(1))
	}
}
