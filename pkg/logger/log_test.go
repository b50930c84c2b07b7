// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package logger

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopulateLogOpts(t *testing.T) {
	o := LogOptions{}
	PopulateLogOpts(o, "warning", "JSON")
	assert.Equal(t, LogOptions{levelOpt: "warning", formatOpt: "json"}, o)

	o = LogOptions{}
	PopulateLogOpts(o, "loud", "xml")
	assert.Empty(t, o)
}

func TestSetupLogging(t *testing.T) {
	defer SetupLogging(LogOptions{}, false)

	require.NoError(t, SetupLogging(LogOptions{levelOpt: "error"}, false))
	assert.Equal(t, logrus.ErrorLevel, GetLogLevel())

	require.NoError(t, SetupLogging(LogOptions{levelOpt: "error"}, true))
	assert.Equal(t, logrus.DebugLevel, GetLogLevel())

	assert.Error(t, SetupLogging(LogOptions{formatOpt: "xml"}, false))
}

func TestDebugLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetLevel(logrus.InfoLevel)

	NewDebugLogger(l, false).Debug("hidden")
	assert.Empty(t, buf.String())

	d := NewDebugLogger(l, true)
	d.Debugf("shown %d", 1)
	assert.Contains(t, buf.String(), "shown 1")

	d.DebugLogWithCallers(1).Info("with caller")
	assert.Contains(t, buf.String(), "caller-1")
}
