// Package daemon wires the probe, capture pipeline, metrics server and
// snapshot reporting into one process lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"firestige.xyz/dnsrtt/internal/capture"
	"firestige.xyz/dnsrtt/internal/config"
	"firestige.xyz/dnsrtt/internal/metrics"
	"firestige.xyz/dnsrtt/internal/pipeline"
	"firestige.xyz/dnsrtt/internal/probe"
	"firestige.xyz/dnsrtt/internal/report"
)

const stopTimeout = 10 * time.Second

// Options selects how the daemon sources its frames.
type Options struct {
	PIDFile string
	// ReplayFile replays a pcap/pcapng file with capture timestamps instead
	// of capturing live. The daemon stops once the file is exhausted.
	ReplayFile string
}

// Daemon manages the dnsrtt process lifecycle.
type Daemon struct {
	config *config.GlobalConfig
	opts   Options

	probe         *probe.Probe
	pipeline      *pipeline.Pipeline
	reportLoop    *report.Loop
	metricsServer *metrics.Server // nil if metrics disabled

	ctx        context.Context
	cancel     context.CancelFunc
	reportDone chan error
	stopOnce   sync.Once
	stopErr    error
	sigChan    chan os.Signal
}

// New builds every component from cfg without starting anything.
func New(cfg *config.GlobalConfig, opts Options) (*Daemon, error) {
	p, err := probe.Build(cfg.ProbeParams())
	if err != nil {
		return nil, fmt.Errorf("failed to build probe: %w", err)
	}

	pcfg := pipeline.Config{
		Workers: cfg.Capture.Workers,
		Probe:   p,
	}
	if opts.ReplayFile != "" {
		path := opts.ReplayFile
		pcfg.Workers = 1
		pcfg.UseCaptureTime = true
		pcfg.Open = func(int) (capture.Source, error) { return capture.OpenFile(path) }
	} else {
		af := cfg.AFPacket()
		pcfg.Open = func(int) (capture.Source, error) { return capture.NewAFPacket(af) }
	}
	pl, err := pipeline.New(pcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	reporters, err := buildReporters(cfg)
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		config:     cfg,
		opts:       opts,
		probe:      p,
		pipeline:   pl,
		reportLoop: report.NewLoop(cfg.ReportLoop(), p, reporters...),
		reportDone: make(chan error, 1),
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d, nil
}

func buildReporters(cfg *config.GlobalConfig) ([]report.Reporter, error) {
	var reporters []report.Reporter
	if cfg.Report.Log.Enabled {
		reporters = append(reporters, report.NewLogReporter(nil))
	}
	if cfg.Report.File.Enabled {
		r, err := report.NewFileReporter(cfg.Report.File.FileConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create file reporter: %w", err)
		}
		reporters = append(reporters, r)
	}
	if cfg.Report.Kafka.Enabled {
		r, err := report.NewKafkaReporter(cfg.Report.Kafka.KafkaConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka reporter: %w", err)
		}
		reporters = append(reporters, r)
	}
	return reporters, nil
}

// Probe returns the shared probe.
func (d *Daemon) Probe() *probe.Probe {
	return d.probe
}

// Start initializes and starts all daemon components.
func (d *Daemon) Start() error {
	slog.Info("starting dnsrtt",
		"hostname", d.config.Node.Hostname,
		"interface", d.config.Capture.Interface,
		"replay", d.opts.ReplayFile,
		"dns_port", d.config.Probe.DNSPort,
	)

	// 1. Write PID file
	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	// 2. Start metrics server
	if err := d.startMetrics(); err != nil {
		d.removePIDFile()
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	// 3. Start capture workers
	if err := d.pipeline.Start(); err != nil {
		d.stopMetrics()
		d.removePIDFile()
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	// 4. Start snapshot reporting
	go func() {
		d.reportDone <- d.reportLoop.Run(d.ctx)
	}()

	slog.Info("dnsrtt started successfully")
	return nil
}

// Stop performs graceful shutdown of all components. It is safe to call
// more than once; later calls return the first result.
func (d *Daemon) Stop() error {
	d.stopOnce.Do(func() {
		slog.Info("initiating graceful shutdown")

		// 1. Stop capture so the final snapshot sees every frame
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := d.pipeline.Stop(stopCtx); err != nil {
			slog.Error("error stopping pipeline", "error", err)
			d.stopErr = err
		}

		// 2. Final snapshot and reporter shutdown
		d.cancel()
		select {
		case err := <-d.reportDone:
			if err != nil {
				slog.Error("error in final report", "error", err)
				d.stopErr = errors.Join(d.stopErr, err)
			}
		case <-stopCtx.Done():
			d.stopErr = errors.Join(d.stopErr, fmt.Errorf("report loop stop: %w", stopCtx.Err()))
		}

		// 3. Stop metrics server
		d.stopMetrics()

		if d.sigChan != nil {
			signal.Stop(d.sigChan)
		}

		// 4. Remove PID file
		if err := d.removePIDFile(); err != nil {
			slog.Error("error removing PID file", "error", err)
		}

		totals := d.pipeline.Totals()
		slog.Info("dnsrtt stopped gracefully",
			"received", totals.Received,
			"kernel_drops", totals.KernelDrops,
			"samples", d.probe.Histogram().Total(),
			"pending", d.probe.Table().Len(),
		)
	})
	return d.stopErr
}

// Run blocks until shutdown is triggered.
// Shutdown can be triggered by:
//  1. OS signals (SIGTERM, SIGINT)
//  2. every capture worker exiting, e.g. the end of a replay
//  3. ctx cancellation
//
// SIGHUP reports a snapshot immediately.
func (d *Daemon) Run(ctx context.Context) error {
	d.sigChan = make(chan os.Signal, 1)
	signal.Notify(d.sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	slog.Info("dnsrtt running, waiting for signals")

	for {
		select {
		case sig := <-d.sigChan:
			switch sig {
			case syscall.SIGTERM, syscall.SIGINT:
				slog.Info("received shutdown signal", "signal", sig)
				return d.Stop()

			case syscall.SIGHUP:
				slog.Info("received report signal")
				reportCtx, cancel := context.WithTimeout(d.ctx, stopTimeout)
				if err := d.reportLoop.ReportOnce(reportCtx); err != nil {
					slog.Error("on-demand report failed", "error", err)
				}
				cancel()
			}

		case <-d.pipeline.Done():
			if d.opts.ReplayFile != "" {
				slog.Info("replay finished", "file", d.opts.ReplayFile)
				return d.Stop()
			}
			slog.Error("all capture workers exited")
			return errors.Join(errors.New("capture stopped unexpectedly"), d.Stop())

		case <-ctx.Done():
			slog.Info("context cancelled", "error", ctx.Err())
			return errors.Join(d.Stop(), ctx.Err())
		}
	}
}

// startMetrics starts the metrics HTTP server if enabled.
func (d *Daemon) startMetrics() error {
	if !d.config.Metrics.Enabled {
		slog.Info("metrics server disabled")
		return nil
	}

	collector := metrics.NewCollector(d.probe, d.pipeline.Totals)
	if err := prometheusRegister(collector); err != nil {
		return err
	}

	d.metricsServer = metrics.NewServer(d.config.Metrics.Listen, d.config.Metrics.Path, nil)
	if err := d.metricsServer.Start(d.ctx); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	slog.Info("metrics server started",
		"addr", d.metricsServer.Addr(),
		"path", d.config.Metrics.Path,
	)
	return nil
}

func (d *Daemon) stopMetrics() {
	if d.metricsServer == nil {
		return
	}
	slog.Info("stopping metrics server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.metricsServer.Stop(shutdownCtx); err != nil {
		slog.Error("error stopping metrics server", "error", err)
	}
}

// writePIDFile writes the current process ID to the PID file.
func (d *Daemon) writePIDFile() error {
	if d.opts.PIDFile == "" {
		return nil
	}

	pid := os.Getpid()
	data := []byte(strconv.Itoa(pid) + "\n")

	if err := os.WriteFile(d.opts.PIDFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write PID file %s: %w", d.opts.PIDFile, err)
	}

	slog.Debug("PID file written", "path", d.opts.PIDFile, "pid", pid)
	return nil
}

// removePIDFile removes the PID file.
func (d *Daemon) removePIDFile() error {
	if d.opts.PIDFile == "" {
		return nil
	}

	if err := os.Remove(d.opts.PIDFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file %s: %w", d.opts.PIDFile, err)
	}

	slog.Debug("PID file removed", "path", d.opts.PIDFile)
	return nil
}
