// Simulator configuration.
//
// The configuration is loaded from a YAML file, with the following
// structure:
//
//  sim_config:
//    scheduler: mlfq
//    runtime: 30s
//    arrival_interval: 250ms
//    scheduler_config:
//      num_workers: 4
//      timeslice: 100ms
//      num_levels: 4
//      boost_period: 2500ms
//    log_config:
//      ...
//
// The "sim_config" section maps to the SimConfig structure defined in
// this package.

package schedsim_internal

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SIM_CONFIG_SECTION_NAME = "sim_config"

	SIM_CONFIG_SCHEDULER_DEFAULT         = "mlfq"
	SIM_CONFIG_RUNTIME_DEFAULT           = 30 * time.Second
	SIM_CONFIG_ARRIVAL_INTERVAL_DEFAULT  = 250 * time.Millisecond
	SIM_CONFIG_SHUTDOWN_MAX_WAIT_DEFAULT = 5 * time.Second
)

// SimConfig is the whole-program configuration: which scheduler variant
// to run, how many workers/levels/timeslice it gets, how long the
// simulation runs, and the ambient logging setup.
type SimConfig struct {
	// Scheduler selects the algorithm: "rr", "sjf" or "mlfq".
	Scheduler string `yaml:"scheduler"`

	// How long to keep admitting and running tasks before triggering a
	// graceful shutdown.
	Runtime time.Duration `yaml:"runtime"`

	// Mean inter-arrival time between synthetically generated tasks.
	ArrivalInterval time.Duration `yaml:"arrival_interval"`

	// How long to wait for a graceful shutdown to finish draining before
	// the process logs a fatal error and exits. Zero or a negative value
	// means wait indefinitely.
	ShutdownMaxWait time.Duration `yaml:"shutdown_max_wait"`

	SchedulerConfig *SchedulerConfig `yaml:"scheduler_config"`
	SJFConfig       *SJFConfig       `yaml:"sjf_config"`
	LoggerConfig    *LoggerConfig    `yaml:"log_config"`
}

func DefaultSimConfig() *SimConfig {
	return &SimConfig{
		Scheduler:       SIM_CONFIG_SCHEDULER_DEFAULT,
		Runtime:         SIM_CONFIG_RUNTIME_DEFAULT,
		ArrivalInterval: SIM_CONFIG_ARRIVAL_INTERVAL_DEFAULT,
		ShutdownMaxWait: SIM_CONFIG_SHUTDOWN_MAX_WAIT_DEFAULT,
		SchedulerConfig: DefaultSchedulerConfig(),
		SJFConfig:       DefaultSJFConfig(),
		LoggerConfig:    DefaultLoggerConfig(),
	}
}

// LoadConfig loads the configuration from the specified YAML file (or
// buf, for testing) into a SimConfig. An error is returned if the
// configuration could not be loaded or parsed.
func LoadConfig(cfgFile string, buf []byte) (*SimConfig, error) {
	if buf == nil {
		f, err := os.Open(cfgFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		buf, err = io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("file: %q: %v", cfgFile, err)
		}
	}

	docNode := yaml.Node{}
	if err := yaml.Unmarshal(buf, &docNode); err != nil {
		return nil, fmt.Errorf("file: %q: %v", cfgFile, err)
	}

	simConfig := DefaultSimConfig()
	if docNode.Kind == yaml.DocumentNode && len(docNode.Content) > 0 {
		rootNode := docNode.Content[0]
		if rootNode.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("file: %q: invalid YAML root node %q", cfgFile, rootNode.Tag)
		}
		for i := 0; i+1 < len(rootNode.Content); i += 2 {
			keyNode, valNode := rootNode.Content[i], rootNode.Content[i+1]
			if keyNode.Kind == yaml.ScalarNode && keyNode.Value == SIM_CONFIG_SECTION_NAME {
				if valNode.Kind == yaml.MappingNode {
					if err := valNode.Decode(simConfig); err != nil {
						return nil, fmt.Errorf("file: %q: %v", cfgFile, err)
					}
				}
				break
			}
		}
	}

	return simConfig, nil
}
