// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package version

import (
	"fmt"
	"io"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// Version is set at link time with -X.
var Version string

type BuildInfo struct {
	GoVersion string
	Commit    string
	Time      string
	Modified  string
}

func ReadBuildInfo() *BuildInfo {
	info := &BuildInfo{}
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = buildInfo.GoVersion
	for _, s := range buildInfo.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = s.Value
		case "vcs.time":
			info.Time = s.Value
		case "vcs.modified":
			info.Modified = s.Value
		}
	}
	return info
}

func (info *BuildInfo) treeState() string {
	switch info.Modified {
	case "true":
		return "dirty"
	case "false":
		return "clean"
	}
	return ""
}

// Fields returns the non-empty build attributes for the startup log.
func (info *BuildInfo) Fields() logrus.Fields {
	f := logrus.Fields{"version": Version}
	if info.GoVersion != "" {
		f["goVersion"] = info.GoVersion
	}
	if info.Commit != "" {
		f["commit"] = info.Commit
	}
	if s := info.treeState(); s != "" {
		f["treeState"] = s
	}
	return f
}

func (info *BuildInfo) Print(w io.Writer) {
	fmt.Fprintf(w, "Version: %s\n", Version)
	if info.GoVersion != "" {
		fmt.Fprintf(w, "GoVersion: %s\n", info.GoVersion)
	}
	if info.Time != "" {
		fmt.Fprintf(w, "Date: %s\n", info.Time)
	}
	if info.Commit != "" {
		fmt.Fprintf(w, "GitCommit: %s\n", info.Commit)
	}
	if s := info.treeState(); s != "" {
		fmt.Fprintf(w, "GitTreeState: %s\n", s)
	}
}
