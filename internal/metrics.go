// Metrics Aggregator: turns a batch of FINISHED tasks plus the overall
// wall-clock window into the fairness/throughput report, and renders it
// for stdout. The arithmetic mirrors the original scheduler's tally
// exactly (same per-metric divisions), only the CPU-task/mem-task tally
// no longer relies on a dynamic downcast: Task carries an explicit Kind.

package schedsim_internal

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/docker/go-units"
)

var metricsLog = NewCompLogger("metrics")

// Metrics is the fairness/throughput report computed once over a batch
// of completed tasks.
type Metrics struct {
	TotalUptime time.Duration

	NumTasks       int
	NumCPUTasks    int
	NumMemTasks    int

	AvgTurnaround time.Duration
	AvgResponse   time.Duration
	AvgWaiting    time.Duration
	AvgRunning    time.Duration

	CPUUtilizationPct float64
	ThroughputPerSec  float64

	AvgRuntimeAllTasks time.Duration
	AvgRuntimeCPUTasks time.Duration
	AvgRuntimeMemTasks time.Duration

	// HostInfo is a short diagnostic line describing the machine the
	// simulation ran on, independent of the per-task arithmetic above.
	HostInfo string

	// SimulatorCpuTimeSec is the harness's own process CPU time (user +
	// sys), reported separately from the tasks it scheduled so the two
	// are never confused.
	SimulatorCpuTimeSec float64
}

// ComputeMetrics aggregates tasks over a run that started at tStart and
// used numCPUs workers. Tasks that never reached FINISHED -- abandoned
// by a HALT shutdown before they ran to completion -- are counted in
// NumTasks but excluded from the per-task timing averages and from the
// throughput, since they have no TCompletion to measure a turnaround from.
func ComputeMetrics(tasks []*Task, numCPUs int, tStart time.Time) *Metrics {
	m := &Metrics{}
	m.TotalUptime = time.Since(tStart)
	m.NumTasks = len(tasks)

	if m.NumTasks == 0 {
		metricsLog.Warn("computing metrics over an empty task batch")
		return m
	}

	var (
		sumTurnaround, sumResponse, sumWaiting, sumRunning time.Duration
		sumCPUTimeMs                                       float64
		sumRuntimeAll, sumRuntimeCPU, sumRuntimeMem         time.Duration
		numFinished                                         int
	)

	for _, t := range tasks {
		if t.State() != TaskFinished {
			metricsLog.Debugf("task %d: excluded from timing averages, state %s", t.Id(), t.State())
			continue
		}
		numFinished++

		turnaround := t.TCompletion().Sub(t.TStart())
		waiting := t.TWaiting()
		response := t.TFirstRun().Sub(t.TStart())
		running := turnaround - waiting - response

		sumTurnaround += turnaround
		sumResponse += response
		sumWaiting += waiting
		sumRunning += running
		sumCPUTimeMs += t.UsageMs()

		sumRuntimeAll += running
		switch t.Kind() {
		case TaskKindCPU:
			sumRuntimeCPU += running
			m.NumCPUTasks++
		case TaskKindMem:
			sumRuntimeMem += running
			m.NumMemTasks++
		}
	}

	if numFinished > 0 {
		n := time.Duration(numFinished)
		m.AvgTurnaround = sumTurnaround / n
		m.AvgResponse = sumResponse / n
		m.AvgWaiting = sumWaiting / n
		m.AvgRunning = sumRunning / n
		m.AvgRuntimeAllTasks = sumRuntimeAll / n
	}

	if m.NumCPUTasks > 0 {
		m.AvgRuntimeCPUTasks = sumRuntimeCPU / time.Duration(m.NumCPUTasks)
	}
	if m.NumMemTasks > 0 {
		m.AvgRuntimeMemTasks = sumRuntimeMem / time.Duration(m.NumMemTasks)
	}

	totalMs := durationMs(m.TotalUptime)
	if totalMs > 0 && numCPUs > 0 {
		m.CPUUtilizationPct = sumCPUTimeMs / ((totalMs * float64(numCPUs)) / 100.0)
		m.ThroughputPerSec = float64(numFinished) / (totalMs / 1000.0)
	}

	m.HostInfo = fmt.Sprintf(
		"%s %s, %d cpu(s), up %s",
		OsInfo["name"], OsInfo["release"], AvailableCPUCount, units.HumanDuration(time.Since(BootTime)),
	)

	if cpuTime, err := GetMyCpuTime(); err == nil {
		m.SimulatorCpuTimeSec = cpuTime
	} else {
		metricsLog.Warnf("GetMyCpuTime: %v", err)
	}

	return m
}

// WriteReport renders the report as a tab-aligned key/value table,
// matching the original scheduler's stdout summary.
func (m *Metrics) WriteReport(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	rows := [][2]string{
		{"Total Scheduler Uptime:", units.HumanDuration(m.TotalUptime)},
		{"Total Tasks:", fmt.Sprintf("%d", m.NumTasks)},
		{"Total CPU Bound Tasks:", fmt.Sprintf("%d", m.NumCPUTasks)},
		{"Total Memory Bound Tasks:", fmt.Sprintf("%d", m.NumMemTasks)},
		{"Average Turnaround Time:", fmt.Sprintf("%.4gms", durationMs(m.AvgTurnaround))},
		{"Average Response Time:", fmt.Sprintf("%.4gms", durationMs(m.AvgResponse))},
		{"Average Waiting Time:", fmt.Sprintf("%.4gms", durationMs(m.AvgWaiting))},
		{"Average Running Time:", fmt.Sprintf("%.4gms", durationMs(m.AvgRunning))},
		{"CPU Utilization:", fmt.Sprintf("%.4g%%", m.CPUUtilizationPct)},
		{"Throughput:", fmt.Sprintf("%.4g tasks/sec", m.ThroughputPerSec)},
		{"Average Runtime:", fmt.Sprintf("%.4gms", durationMs(m.AvgRuntimeAllTasks))},
		{"Average Runtime (CPU Bound Tasks):", fmt.Sprintf("%.4gms", durationMs(m.AvgRuntimeCPUTasks))},
		{"Average Runtime (Memory Bound Tasks):", fmt.Sprintf("%.4gms", durationMs(m.AvgRuntimeMemTasks))},
		{"Host:", m.HostInfo},
		{"Simulator Process CPU Time:", fmt.Sprintf("%.3gs", m.SimulatorCpuTimeSec)},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}
