// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	gops "github.com/google/gops/agent"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/ruidanwang/docker-sys-monitor/pkg/api/confapi"
	"github.com/ruidanwang/docker-sys-monitor/pkg/bpf"
	"github.com/ruidanwang/docker-sys-monitor/pkg/checkprocfs"
	"github.com/ruidanwang/docker-sys-monitor/pkg/defaults"
	"github.com/ruidanwang/docker-sys-monitor/pkg/encoder"
	"github.com/ruidanwang/docker-sys-monitor/pkg/eventsource"
	"github.com/ruidanwang/docker-sys-monitor/pkg/kernel"
	"github.com/ruidanwang/docker-sys-monitor/pkg/logger"
	"github.com/ruidanwang/docker-sys-monitor/pkg/logger/logfields"
	"github.com/ruidanwang/docker-sys-monitor/pkg/metrics"
	"github.com/ruidanwang/docker-sys-monitor/pkg/metrics/capturemetrics"
	"github.com/ruidanwang/docker-sys-monitor/pkg/metrics/errormetrics"
	"github.com/ruidanwang/docker-sys-monitor/pkg/metrics/mapmetrics"
	"github.com/ruidanwang/docker-sys-monitor/pkg/metrics/ringbufmetrics"
	"github.com/ruidanwang/docker-sys-monitor/pkg/observer"
	"github.com/ruidanwang/docker-sys-monitor/pkg/option"
	"github.com/ruidanwang/docker-sys-monitor/pkg/processfilter"
	"github.com/ruidanwang/docker-sys-monitor/pkg/ringbuf"
	"github.com/ruidanwang/docker-sys-monitor/pkg/sensors/filemon"
	"github.com/ruidanwang/docker-sys-monitor/pkg/sensors/procmon"
	"github.com/ruidanwang/docker-sys-monitor/pkg/version"
)

const ringMetricsInterval = 5 * time.Second

var (
	log = logger.GetLogger()
)

func registerMetrics() {
	group := metrics.NewMetricsGroup()
	ringbufmetrics.RegisterMetrics(group)
	capturemetrics.RegisterMetrics(group)
	errormetrics.RegisterMetrics(group)
	mapmetrics.RegisterMetrics(group)
	observer.RegisterHealthMetrics(group)
	group.MustRegister(version.NewBuildInfoCollector())
	metrics.RegisterGroup(group)
}

func newEncoder(w io.Writer) encoder.EventEncoder {
	if option.Config.Output == option.OutputCompact {
		return encoder.NewCompactEncoder(w, encoder.ColorMode(option.Config.Color), false)
	}
	return encoder.NewJSONEncoder(w)
}

func nodeName() string {
	name, err := os.Hostname()
	if err != nil {
		log.WithError(err).Warn("Failed to get hostname")
		return ""
	}
	return name
}

// applyFilterPolicy provisions the file monitor maps from the configured
// policy file, or enables the monitor unfiltered when there is none.
func applyFilterPolicy(maps *filemon.HostMaps) error {
	if option.Config.FilterPolicy == "" {
		return maps.Config.Update(0, confapi.FileMonConfig{ExposeEvents: option.Config.ExposeEvents})
	}
	p, err := filemon.PolicyFromYamlFilename(option.Config.FilterPolicy)
	if err != nil {
		return err
	}
	if err := maps.Apply(p); err != nil {
		return fmt.Errorf("failed to apply filter policy %s: %w", p.Metadata.Name, err)
	}
	log.WithFields(logrus.Fields{
		logfields.Policy: p.Metadata.Name,
		"mask":           p.Mask().String(),
		"denyList":       p.Spec.DenyList,
	}).Info("Applied filter policy")
	return nil
}

// runHost runs the host pipeline: procfs scanner, fanotify event source and
// the file monitor, all writing into the host ring.
func runHost(ctx context.Context, g *errgroup.Group, out observer.Listener) (*observer.Observer, error) {
	checkprocfs.Check(option.Config.ProcFS)

	rb, err := ringbuf.New(defaults.DefaultEventMap, option.Config.RBEntries)
	if err != nil {
		return nil, err
	}

	procs, err := procmon.NewTable(option.Config.ProcMapEntries)
	if err != nil {
		return nil, err
	}
	fileMaps := filemon.NewHostMaps()
	if err := applyFilterPolicy(fileMaps); err != nil {
		return nil, err
	}
	mapmetrics.Watch(procs)
	mapmetrics.Watch(fileMaps.Sized()...)

	procConfig := procmon.NewConfig()
	if err := procConfig.Update(0, confapi.ProcMonConfig{}); err != nil {
		return nil, err
	}
	maps := fileMaps.Maps(procs)

	scanner, err := procmon.NewScanner(option.Config.ProcFS, procs,
		procmon.WithEvents(rb, procConfig, maps.Filter),
		procmon.WithDebug(option.Config.ProcMonDebug),
	)
	if err != nil {
		return nil, err
	}

	sensor := filemon.New(rb, maps, processfilter.NewScratch(option.Config.CPUs), kernel.Host{})
	source := eventsource.NewFanotify(eventsource.Config{
		Paths:   option.Config.WatchPaths,
		Workers: option.Config.CPUs,
	}, sensor.FileOpen)

	obs := observer.NewObserver(
		observer.WithQueueSize(option.Config.RBQueueSize),
		observer.WithLostCounter(func() uint64 { return rb.Stats().Lost }),
	)
	obs.AddListener(filemon.ExposeListener(fileMaps.Config, out))

	// the first scan seeds the process table
	g.Go(func() error {
		return scanner.Run(ctx, option.Config.ProcScanInterval)
	})
	g.Go(func() error {
		err := source.Run(ctx)
		if errors.Is(err, eventsource.ErrNotSupported) {
			log.WithError(err).Warn("File open events disabled")
			return nil
		}
		return err
	})
	g.Go(func() error {
		ticker := time.NewTicker(ringMetricsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				rb.UpdateMetrics()
				return nil
			case <-ticker.C:
				rb.UpdateMetrics()
			}
		}
	})
	g.Go(func() error {
		defer rb.Close()
		return obs.RunEvents(ctx, ringbuf.NewReader(rb), func() {
			log.WithField(logfields.Map, rb.Name()).Info("Listening for events")
		})
	})
	return obs, nil
}

// runPinned consumes the ring buffer of the kernel-resident programs pinned
// under bpfDir.
func runPinned(ctx context.Context, g *errgroup.Group, out observer.Listener, bpfDir string) (*observer.Observer, error) {
	obs := observer.NewObserver(observer.WithQueueSize(option.Config.RBQueueSize))
	obs.LogPinnedBpf(bpfDir)

	rd, err := observer.OpenPinnedReader(bpfDir)
	if err != nil {
		return nil, err
	}
	config, err := filemon.OpenPinnedConfig(bpfDir)
	if err != nil {
		return nil, multierr.Append(err, rd.Close())
	}
	next := out
	if option.Config.FilterPolicy != "" {
		policyMaps := filemon.NewHostMaps()
		if err := applyFilterPolicy(policyMaps); err != nil {
			return nil, multierr.Combine(err, config.Close(), rd.Close())
		}
		filter := processfilter.New(policyMaps.Maps(nil).Filter, processfilter.NewScratch(1), kernel.Host{})
		next = filemon.FilterListener(policyMaps.Config, filter, next)
	}
	obs.AddListener(filemon.ExposeListener(config, next))

	g.Go(func() error {
		defer config.Close()
		return obs.RunEvents(ctx, rd, func() {
			log.WithField(logfields.Map, bpf.MapPath(bpfDir, defaults.DefaultEventMap)).Info("Listening for events")
		})
	})
	return obs, nil
}

func sysmondExecute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Logging should always be bootstrapped first. Do not add any code above this!
	if err := logger.SetupLogging(option.Config.LogOpts, option.Config.Debug); err != nil {
		log.Fatal(err)
	}
	log.WithFields(version.ReadBuildInfo().Fields()).Info("Starting sysmond")
	log.WithField("config", viper.AllSettings()).Info("config settings")

	registerMetrics()
	if option.Config.MetricsServer != "" {
		go func() {
			if err := metrics.EnableMetrics(ctx, option.Config.MetricsServer); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	out := encoder.NewListener(newEncoder(os.Stdout), nodeName(), nil)

	g, gctx := errgroup.WithContext(ctx)
	var (
		obs *observer.Observer
		err error
	)
	if option.Config.BpfDir != "" {
		obs, err = runPinned(gctx, g, out, option.Config.BpfDir)
	} else {
		obs, err = runHost(gctx, g, out)
	}
	if err != nil {
		cancel()
		return multierr.Append(err, g.Wait())
	}
	defer func() {
		obs.PrintStats()
		obs.CloseListeners()
	}()
	return g.Wait()
}

func execute() error {
	rootCmd := &cobra.Command{
		Use:   "sysmond",
		Short: "Run the process and file activity monitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := option.ReadAndSetFlags(); err != nil {
				return err
			}

			if option.Config.GopsAddr != "" {
				log.WithField("addr", option.Config.GopsAddr).Info("Starting gops server")
				if err := gops.Listen(gops.Options{
					Addr:                   option.Config.GopsAddr,
					ReuseSocketAddrAndPort: true,
				}); err != nil {
					log.WithError(err).Fatal("Failed to start gops")
				}
				defer gops.Close()
			}

			if err := sysmondExecute(); err != nil {
				log.WithError(err).Fatal("Failed to start sysmond")
			}
			return nil
		},
		SilenceUsage: true,
	}

	cobra.OnInitialize(readConfigSettings)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			version.ReadBuildInfo().Print(cmd.OutOrStdout())
		},
	})

	flags := rootCmd.PersistentFlags()
	option.AddFlags(flags)
	viper.BindPFlags(flags)
	return rootCmd.Execute()
}
