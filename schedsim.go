// The public face of the simulator for the users of this package.

package schedsim

import (
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	schedsim_internal "github.com/schedsim/schedsim/internal"
)

type TaskKind = schedsim_internal.TaskKind
type TaskState = schedsim_internal.TaskState
type Task = schedsim_internal.Task
type SimConfig = schedsim_internal.SimConfig
type SchedulerConfig = schedsim_internal.SchedulerConfig
type SJFConfig = schedsim_internal.SJFConfig
type Metrics = schedsim_internal.Metrics

const (
	TaskKindCPU = schedsim_internal.TaskKindCPU
	TaskKindMem = schedsim_internal.TaskKindMem
)

// Set the config flag default value, typically to
// <default_instance>-config.yaml:
func SetDefaultConfigFile(filePath string) {
	if configFlag := flag.Lookup(schedsim_internal.CONFIG_FLAG_NAME); configFlag != nil {
		if err := configFlag.Value.Set(filePath); err == nil {
			configFlag.DefValue = filePath
		}
	}
}

// The root logger. Needed only for tests where the logger is captured
// (see schedsim/testutils/log_collector.go), its actual type is
// obscured. The only use case for call is during tests, as follows:
//
//	func TestSomethingWithLogger() {
//		tlc := schedsim_testutils.NewTestLogCollect(t, schedsim.GetRootLogger(), nil)
//		defer tlc.RestoreLog()
//	}
func GetRootLogger() any { return schedsim_internal.RootLogger }

// Create new component logger w/ comp=compName field:
func NewCompLogger(comp string) *logrus.Entry {
	return schedsim_internal.NewCompLogger(comp)
}

// When logging files, the log file name is derived from the file path
// typically relative to the module root dir. The logger maintains a list
// of prefixes to strip and the following function will add the caller's
// module path to it. The latter is inferred from the caller's file path,
// going up N dirs. Typically the call is made from main.init() so the
// parameter is 0 (assuming that main.go is at the root dir of the module).
func AddCallerSrcPathPrefixToLogger(upNDirs int) {
	// skip = 1 below to base the caller's path on the caller of this function.
	schedsim_internal.AddCallerSrcPathPrefixToLogger(upNDirs, 1)
}

// ComputeMetrics aggregates a batch of FINISHED tasks, run on numCPUs
// workers starting at tStart, into the fairness/throughput report.
// Exposed so that non-CLI consumers of this package can run the
// simulation loop programmatically instead of through Run.
func ComputeMetrics(tasks []*Task, numCPUs int, tStart time.Time) *Metrics {
	return schedsim_internal.ComputeMetrics(tasks, numCPUs, tStart)
}

// Run is the simulator's entry point. It loads configuration, builds the
// configured scheduler, drives the synthetic workload for the configured
// runtime, and prints the fairness/throughput report. Its return value
// should be used as the process exit status.
func Run() int { return schedsim_internal.Run() }
