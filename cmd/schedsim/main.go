package main

import (
	"os"

	"github.com/schedsim/schedsim"
)

const (
	DEFAULT_INSTANCE = "schedsim"
)

var mainLog = schedsim.NewCompLogger(DEFAULT_INSTANCE)

func init() {
	// Add the prefix to strip when logging source file path for messages
	// from this module, based on the location of this file:
	schedsim.AddCallerSrcPathPrefixToLogger(2) // this file is at cmd/schedsim

	schedsim.SetDefaultConfigFile(DEFAULT_INSTANCE + "-config.yaml")
}

func main() {
	mainLog.Info("start")
	os.Exit(schedsim.Run())
}
