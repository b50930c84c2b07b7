// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package option

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ruidanwang/docker-sys-monitor/pkg/defaults"
	"github.com/ruidanwang/docker-sys-monitor/pkg/logger"
	"github.com/ruidanwang/docker-sys-monitor/pkg/strutils"
)

const (
	KeyConfigDir = "config-dir"
	KeyDebug     = "debug"
	KeyProcFS    = "procfs"
	KeyBpfDir    = "bpf-dir"

	KeyLogLevel  = "log-level"
	KeyLogFormat = "log-format"

	KeyRBEntries      = "rb-entries"
	KeyRBQueueSize    = "rb-queue-size"
	KeyProcMapEntries = "proc-map-entries"
	KeyCPUs           = "cpus"

	KeyProcScanInterval = "proc-scan-interval"
	KeyProcMonDebug     = "procmon-debug"
	KeyFilterPolicy     = "filter-policy"
	KeyWatchPath        = "watch-path"
	KeyExposeEvents     = "expose-events"

	KeyOutput = "output"
	KeyColor  = "color"

	KeyMetricsServer = "metrics-server"
	KeyGopsAddr      = "gops-address"
)

func ReadAndSetFlags() error {
	var err error

	Config.Debug = viper.GetBool(KeyDebug)
	Config.ProcFS = viper.GetString(KeyProcFS)
	Config.BpfDir = viper.GetString(KeyBpfDir)

	logLevel := viper.GetString(KeyLogLevel)
	logFormat := viper.GetString(KeyLogFormat)
	logger.PopulateLogOpts(Config.LogOpts, logLevel, logFormat)

	if Config.RBEntries, err = strutils.ParseSize(viper.GetString(KeyRBEntries)); err != nil {
		return fmt.Errorf("failed to parse rb-entries value: %w", err)
	}
	if Config.RBEntries <= 0 {
		return fmt.Errorf("failed to parse rb-entries value: must be > 0")
	}
	if Config.RBQueueSize, err = strutils.ParseSize(viper.GetString(KeyRBQueueSize)); err != nil {
		return fmt.Errorf("failed to parse rb-queue-size value: %w", err)
	}
	if Config.ProcMapEntries, err = strutils.ParseSize(viper.GetString(KeyProcMapEntries)); err != nil {
		return fmt.Errorf("failed to parse proc-map-entries value: %w", err)
	}
	Config.CPUs = viper.GetInt(KeyCPUs)
	if Config.CPUs <= 0 {
		Config.CPUs = runtime.NumCPU()
	}

	Config.ProcScanInterval = viper.GetDuration(KeyProcScanInterval)
	if Config.ProcScanInterval < 0 {
		return fmt.Errorf("failed to parse proc-scan-interval value: must be >= 0")
	}
	Config.ProcMonDebug = viper.GetBool(KeyProcMonDebug)
	Config.FilterPolicy = viper.GetString(KeyFilterPolicy)
	if err = viper.UnmarshalKey(KeyWatchPath, &Config.WatchPaths, viper.DecodeHook(stringToSliceHookFunc(","))); err != nil {
		return fmt.Errorf("failed to parse watch-path value: %w", err)
	}
	Config.ExposeEvents = viper.GetBool(KeyExposeEvents)

	switch o := viper.GetString(KeyOutput); o {
	case OutputJSON, OutputCompact:
		Config.Output = o
	default:
		return fmt.Errorf("unknown option for %s: %q", KeyOutput, o)
	}
	switch c := viper.GetString(KeyColor); c {
	case "auto", "always", "never":
		Config.Color = c
	default:
		return fmt.Errorf("unknown option for %s: %q", KeyColor, c)
	}

	Config.MetricsServer = viper.GetString(KeyMetricsServer)
	Config.GopsAddr = viper.GetString(KeyGopsAddr)
	return nil
}

func stringToSliceHookFunc(sep string) mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.SliceOf(f) {
			return data, nil
		}

		outSlice := []string{}
		for _, s := range strings.Split(data.(string), sep) {
			s = strings.TrimSpace(s)
			if s != "" {
				outSlice = append(outSlice, s)
			}
		}
		return outSlice, nil
	}
}

func AddFlags(flags *pflag.FlagSet) {
	flags.String(KeyConfigDir, "", "Configuration directory that contains a file for each option")
	flags.BoolP(KeyDebug, "d", false, "Enable debug messages. Equivalent to '--log-level=debug'")
	flags.String(KeyProcFS, defaults.DefaultProcFS, "Location of procfs to consume existing PIDs")
	flags.String(KeyBpfDir, "", "bpffs directory of maps pinned by the kernel programs (e.g. '/sys/fs/bpf/sysmond'). Empty runs the host pipeline")

	flags.String(KeyLogLevel, "info", "Set log level")
	flags.String(KeyLogFormat, "text", "Set log format")

	flags.String(KeyRBEntries, fmt.Sprint(defaults.DefaultRBEntries), "Number of records of the event ring buffer (allows K/M/G suffix)")
	flags.String(KeyRBQueueSize, fmt.Sprint(defaults.DefaultRBQueueSize), "Set size of channel between ring buffer and event handlers (allows K/M/G suffix)")
	flags.String(KeyProcMapEntries, fmt.Sprint(defaults.DefaultProcMapEntries), "Max entries of the process info table (allows K/M/G suffix)")
	flags.Int(KeyCPUs, 0, "Number of execution contexts for per-CPU state. 0 uses the number of CPUs")

	flags.Duration(KeyProcScanInterval, defaults.DefaultProcScanInterval, "Interval between procfs rescans of the process table. 0 scans once at startup")
	flags.Bool(KeyProcMonDebug, false, "Log procfs scan results at info level")
	flags.String(KeyFilterPolicy, "", "YAML process filter policy applied to the file monitor")
	flags.StringSlice(KeyWatchPath, []string{"/"}, "Mount points watched for file opens")
	flags.Bool(KeyExposeEvents, true, "Forward file events to the output, when no filter policy overrides it")

	flags.String(KeyOutput, OutputJSON, "Event output format: json or compact")
	flags.String(KeyColor, "auto", "Colorize compact output: auto, always or never")

	flags.String(KeyMetricsServer, "", "Metrics server address (e.g. ':2112'). Disabled by default")
	flags.String(KeyGopsAddr, "", "gops server address (e.g. 'localhost:8118'). Disabled by default")
}
