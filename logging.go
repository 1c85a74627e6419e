// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package stagesplit

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var once sync.Once

type logger struct {
	*log.Logger
}

var singleton *logger

func getLogger() *logger {
	if singleton == nil {
		once.Do(
			func() {
				l := log.NewWithOptions(os.Stderr, log.Options{
					ReportTimestamp: true,
					TimeFormat:      time.RFC3339,
					Prefix:          "stagesplit",
				})
				l.SetLevel(log.WarnLevel)
				singleton = &logger{l}
			})
	}
	return singleton
}

// SetVerbose lowers the log level to debug so compile phases are traced.
func SetVerbose(verbose bool) {
	if verbose {
		getLogger().SetLevel(log.DebugLevel)
	} else {
		getLogger().SetLevel(log.WarnLevel)
	}
}

func LogDebug(msg string, args ...interface{}) {
	getLogger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	getLogger().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	getLogger().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	getLogger().Errorf(msg, args...)
}
