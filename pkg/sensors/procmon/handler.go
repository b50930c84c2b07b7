// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package procmon

import (
	"bytes"

	"github.com/ruidanwang/docker-sys-monitor/pkg/api/eventapi"
	"github.com/ruidanwang/docker-sys-monitor/pkg/observer"
)

func handleExec(r *bytes.Reader) ([]observer.Event, error) {
	ktime, proc, err := eventapi.DecodeProcInfo(r, eventapi.MSG_PROCEXEC)
	if err != nil {
		return nil, err
	}
	return []observer.Event{&eventapi.MsgProcessExec{Ktime: ktime, Process: *proc}}, nil
}

func handleExit(r *bytes.Reader) ([]observer.Event, error) {
	ktime, proc, err := eventapi.DecodeProcInfo(r, eventapi.MSG_PROCEXIT)
	if err != nil {
		return nil, err
	}
	return []observer.Event{&eventapi.MsgProcessExit{Ktime: ktime, Process: *proc}}, nil
}

func init() {
	observer.RegisterEventHandlerAtInit(eventapi.MSG_PROCEXEC, handleExec)
	observer.RegisterEventHandlerAtInit(eventapi.MSG_PROCEXIT, handleExit)
}
