// Child process control: spawning the leaf workload binaries and driving
// them through the RUNNING <-> STOPPED cycle via SIGSTOP/SIGCONT, with a
// blocking wait4(2) (WUNTRACED) to observe the transition and collect
// rusage, mirroring the wait4/SIGSTOP dance of the original scheduler.

//go:build unix

package schedsim_internal

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

var procLog = NewCompLogger("childproc")

// ChildStatus is a thin, loggable wrapper around unix.WaitStatus.
type ChildStatus struct {
	ws unix.WaitStatus
}

func (s ChildStatus) Exited() bool { return s.ws.Exited() }
func (s ChildStatus) ExitCode() int {
	return s.ws.ExitStatus()
}
func (s ChildStatus) StoppedByStopSignal() bool {
	return s.ws.Stopped() && s.ws.StopSignal() == unix.SIGSTOP
}
func (s ChildStatus) Signaled() bool { return s.ws.Signaled() }

func (s ChildStatus) String() string {
	switch {
	case s.ws.Exited():
		return fmt.Sprintf("exited(%d)", s.ws.ExitStatus())
	case s.ws.Signaled():
		return fmt.Sprintf("signaled(%s)", s.ws.Signal())
	case s.ws.Stopped():
		return fmt.Sprintf("stopped(%s)", s.ws.StopSignal())
	default:
		return fmt.Sprintf("wait-status(%#x)", uint32(s.ws))
	}
}

// ChildProcess wraps a single leaf-workload process: its pid and the
// os/exec.Cmd used to spawn it. All blocking calls against it (Wait4) are
// expected to be made from the single worker goroutine that owns it, so
// no extra synchronization is needed here.
type ChildProcess struct {
	cmd *exec.Cmd
	pid int
}

// StartChildProcess forks+execs name(args...), returning once the child
// is running. The child inherits stdout/stderr so leaf workload crashes
// are visible on the console.
func StartChildProcess(name string, args []string) (*ChildProcess, error) {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", name, err)
	}
	return &ChildProcess{cmd: cmd, pid: cmd.Process.Pid}, nil
}

func (c *ChildProcess) Pid() int { return c.pid }

// Continue sends SIGCONT to resume a STOPPED child.
func (c *ChildProcess) Continue() error {
	return unix.Kill(c.pid, unix.SIGCONT)
}

// Kill sends SIGKILL unconditionally, used for teardown of tasks that
// are abandoned mid-flight (HALT shutdown).
func (c *ChildProcess) Kill() error {
	err := unix.Kill(c.pid, unix.SIGKILL)
	if err != nil {
		return err
	}
	var ws unix.WaitStatus
	_, _ = unix.Wait4(c.pid, &ws, 0, nil)
	return nil
}

// StopAndWait sends SIGSTOP to the child and blocks in wait4(2) with
// WUNTRACED until the kernel reports either a stop or an exit, returning
// the child's cumulative CPU time (user+system) in milliseconds as
// observed via rusage at that instant.
func (c *ChildProcess) StopAndWait() (ChildStatus, float64, error) {
	if err := unix.Kill(c.pid, unix.SIGSTOP); err != nil {
		// The child may have exited on its own between the scheduler's
		// decision to preempt it and the signal delivery; that is not a
		// fault, wait4 below will reap the exit status.
		if err != unix.ESRCH {
			return ChildStatus{}, 0, fmt.Errorf("kill(%d, SIGSTOP): %w", c.pid, err)
		}
	}

	var ws unix.WaitStatus
	var rusage unix.Rusage
	_, err := unix.Wait4(c.pid, &ws, unix.WUNTRACED, &rusage)
	if err != nil {
		return ChildStatus{}, 0, fmt.Errorf("wait4(%d): %w", c.pid, err)
	}

	cpuMs := rusageMs(int64(rusage.Utime.Sec), int64(rusage.Utime.Usec)) +
		rusageMs(int64(rusage.Stime.Sec), int64(rusage.Stime.Usec))

	return ChildStatus{ws: ws}, cpuMs, nil
}

// waitUntilExit blocks until the child exits (no WUNTRACED), used by the
// non-preemptive SJF variant which never stops a running task.
func (c *ChildProcess) waitUntilExit() (ChildStatus, float64, error) {
	var ws unix.WaitStatus
	var rusage unix.Rusage
	_, err := unix.Wait4(c.pid, &ws, 0, &rusage)
	if err != nil {
		return ChildStatus{}, 0, fmt.Errorf("wait4(%d): %w", c.pid, err)
	}
	cpuMs := rusageMs(int64(rusage.Utime.Sec), int64(rusage.Utime.Usec)) +
		rusageMs(int64(rusage.Stime.Sec), int64(rusage.Stime.Usec))
	return ChildStatus{ws: ws}, cpuMs, nil
}

// waitExited reaps a child that is known to have already exited (or been
// killed) without needing a further SIGSTOP round trip, retrying wait4
// on EINTR.
func waitExited(pid int) {
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &ws, 0, nil)
		if err != syscall.EINTR {
			return
		}
	}
}
