// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package logger

import (
	"fmt"
	"io"
	"runtime"

	"github.com/sirupsen/logrus"
)

var emptyLogger = func() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// DebugLogger raises the debug messages of one subsystem to info level when
// enabled, without turning on debug logging for the whole agent.
type DebugLogger struct {
	logger       logrus.FieldLogger
	debugEnabled bool
}

func NewDebugLogger(logger logrus.FieldLogger, debugEnabled bool) *DebugLogger {
	return &DebugLogger{
		logger:       logger,
		debugEnabled: debugEnabled,
	}
}

// DebugLogWithCallers returns a logger annotated with the names of the
// nCallers functions above the caller, or a discarding logger when
// disabled.
func (d *DebugLogger) DebugLogWithCallers(nCallers int) logrus.FieldLogger {
	if !d.debugEnabled {
		return emptyLogger
	}

	log := d.logger
	for i := 1; i <= nCallers; i++ {
		pc, _, _, ok := runtime.Caller(i)
		if !ok {
			return log
		}
		fn := runtime.FuncForPC(pc)
		log = log.WithField(fmt.Sprintf("caller-%d", i), fn.Name())
	}
	return log
}

func (d *DebugLogger) Debug(args ...any) {
	if d.debugEnabled {
		d.logger.Info(args...)
	} else {
		d.logger.Debug(args...)
	}
}

func (d *DebugLogger) Debugf(format string, args ...any) {
	if d.debugEnabled {
		d.logger.Infof(format, args...)
	} else {
		d.logger.Debugf(format, args...)
	}
}
