package schedsim_internal

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bgp59/logrusx"
)

// The harness is the main entry point for the simulator. It loads the
// configuration, builds the selected scheduler (RR, SJF or MLFQ),
// generates a synthetic workload of CPU- and memory-bound tasks at
// random intervals for the configured runtime, then triggers a graceful
// shutdown and prints the fairness/throughput report.
//
// Tasks are a 50/50 mix of TaskKindCPU and TaskKindMem. For RR and MLFQ,
// DeclaredRuntime is left at zero since neither variant consults it; for
// SJF each generated task is given a random declared runtime so the
// scheduler has something to rank on.

const (
	CONFIG_FLAG_NAME   = "config"
	INSTANCE_DEFAULT   = "schedsim"
	SJF_RUNTIME_MIN_MS = 50
	SJF_RUNTIME_MAX_MS = 2000
)

// taskScheduler is satisfied by both Scheduler (RR/MLFQ) and
// SJFScheduler; the harness drives whichever one the config selected
// through this common surface.
type taskScheduler interface {
	Start() error
	EnqueueTask(*Task) error
	Shutdown(graceful bool) error
	CompletedTasks() []*Task
}

var (
	configFileArg = flag.String(
		CONFIG_FLAG_NAME,
		fmt.Sprintf("%s-config.yaml", INSTANCE_DEFAULT),
		FormatFlagUsage(`Config file to load`),
	)

	schedulerArg = flag.String(
		"s",
		"",
		FormatFlagUsage(`Override the "sim_config.scheduler" setting: rr, sjf or mlfq`),
	)

	ncpusArg = flag.Int(
		"n",
		0,
		FormatFlagUsage(`Override the "sim_config.scheduler_config.num_workers" setting (0: keep the configured value; a configured 0 means autodetect)`),
	)

	timesliceArg = flag.Duration(
		"t",
		0,
		FormatFlagUsage(`Override the "sim_config.scheduler_config.timeslice" setting`),
	)

	nlevelsArg = flag.Int(
		"l",
		0,
		FormatFlagUsage(`Override the "sim_config.scheduler_config.num_levels" setting`),
	)

	runtimeArg = flag.Duration(
		"r",
		0,
		FormatFlagUsage(`Override the "sim_config.runtime" setting`),
	)

	boostPeriodArg = flag.Duration(
		"b",
		0,
		FormatFlagUsage(`Override the "sim_config.scheduler_config.boost_period" setting`),
	)
)

func init() {
	logrusx.EnableLoggerArgs()
}

var harnessLog = NewCompLogger("harness")

func applyFlagOverrides(cfg *SimConfig) {
	if *schedulerArg != "" {
		cfg.Scheduler = *schedulerArg
	}
	if *ncpusArg > 0 {
		cfg.SchedulerConfig.NumWorkers = *ncpusArg
		cfg.SJFConfig.NumWorkers = *ncpusArg
	}
	if *timesliceArg > 0 {
		cfg.SchedulerConfig.Timeslice = *timesliceArg
	}
	if *nlevelsArg > 0 {
		cfg.SchedulerConfig.NumLevels = *nlevelsArg
	}
	if *runtimeArg > 0 {
		cfg.Runtime = *runtimeArg
	}
	if *boostPeriodArg > 0 {
		cfg.SchedulerConfig.BoostPeriod = *boostPeriodArg
	}
	if cfg.SchedulerConfig.NumWorkers == 0 {
		cfg.SchedulerConfig.NumWorkers = AvailableCPUCount
		cfg.SJFConfig.NumWorkers = AvailableCPUCount
	}
}

func buildScheduler(cfg *SimConfig) (taskScheduler, error) {
	switch cfg.Scheduler {
	case "rr":
		schedCfg := *cfg.SchedulerConfig
		schedCfg.NumLevels = 1
		schedCfg.BoostPeriod = 0
		return NewScheduler(&schedCfg), nil
	case "mlfq":
		return NewScheduler(cfg.SchedulerConfig), nil
	case "sjf":
		return NewSJFScheduler(cfg.SJFConfig), nil
	default:
		return nil, fmt.Errorf("unsupported scheduler %q (want rr, sjf or mlfq)", cfg.Scheduler)
	}
}

// randomTaskKind picks CPU or memory bound with equal probability.
func randomTaskKind() TaskKind {
	if rand.Intn(2) == 0 {
		return TaskKindCPU
	}
	return TaskKindMem
}

func randomDeclaredRuntime() time.Duration {
	ms := SJF_RUNTIME_MIN_MS + rand.Intn(SJF_RUNTIME_MAX_MS-SJF_RUNTIME_MIN_MS)
	return time.Duration(ms) * time.Millisecond
}

// Run is the simulator's entry point; it returns the process exit code.
func Run() int {
	if !flag.Parsed() {
		flag.Parse()
	}

	cfg, err := LoadConfig(*configFileArg, nil)
	if err != nil {
		// A missing default config file is not fatal: fall back to
		// built-in defaults plus whatever flags were given.
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "error loading config file: %v\n", err)
			return 1
		}
		cfg = DefaultSimConfig()
	}
	applyFlagOverrides(cfg)

	logrusx.ApplySetLoggerArgs(cfg.LoggerConfig)
	if err := SetLogger(cfg.LoggerConfig); err != nil {
		fmt.Fprintf(os.Stderr, "error setting the logger: %v\n", err)
		return 1
	}

	sched, err := buildScheduler(cfg)
	if err != nil {
		harnessLog.Error(err)
		return 1
	}
	if err := sched.Start(); err != nil {
		harnessLog.Error(err)
		return 1
	}

	harnessLog.Infof(
		"scheduler=%s runtime=%s arrival_interval=%s",
		cfg.Scheduler, cfg.Runtime, cfg.ArrivalInterval,
	)

	tStart := time.Now()

	// Generate arrivals on a dedicated goroutine so that a signal or the
	// runtime deadline can interrupt admission promptly.
	stopArrivals := make(chan struct{})
	arrivalsDone := make(chan struct{})
	go func() {
		defer close(arrivalsDone)
		for {
			select {
			case <-stopArrivals:
				return
			case <-time.After(jitter(cfg.ArrivalInterval)):
				declared := time.Duration(0)
				if cfg.Scheduler == "sjf" {
					declared = randomDeclaredRuntime()
				}
				task := NewTask(randomTaskKind(), declared)
				if err := sched.EnqueueTask(task); err != nil {
					harnessLog.Warnf("EnqueueTask: %v", err)
					return
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var shutdownTimer *time.Timer
	if cfg.ShutdownMaxWait > 0 {
		shutdownTimer = time.NewTimer(1 * time.Hour)
		shutdownTimer.Stop()
		defer shutdownTimer.Stop()
	}

	select {
	case <-time.After(cfg.Runtime):
		harnessLog.Info("runtime budget elapsed, shutting down")
	case sig := <-sigChan:
		harnessLog.Warnf("%s signal received, shutting down", sig)
	}

	close(stopArrivals)
	<-arrivalsDone

	if shutdownTimer != nil {
		go func() {
			shutdownTimer.Reset(cfg.ShutdownMaxWait)
			<-shutdownTimer.C
			harnessLog.Fatalf("shutdown timed out after %s, force exit", cfg.ShutdownMaxWait)
		}()
	}

	if err := sched.Shutdown(true); err != nil {
		harnessLog.Error(err)
		return 1
	}

	numCPUs := cfg.SchedulerConfig.NumWorkers
	if cfg.Scheduler == "sjf" {
		numCPUs = cfg.SJFConfig.NumWorkers
	}
	metrics := ComputeMetrics(sched.CompletedTasks(), numCPUs, tStart)
	if err := metrics.WriteReport(os.Stdout); err != nil {
		harnessLog.Error(err)
		return 1
	}

	return 0
}

// jitter returns a duration uniformly distributed in [0.5*d, 1.5*d), so
// that synthetic arrivals don't all land in lockstep.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := int64(d) / 2
	return time.Duration(half + rand.Int63n(int64(d)))
}
