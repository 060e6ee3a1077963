// Command lorasimmac runs a single discrete-event LoRa star-network MAC
// simulation to completion and prints its end-of-run report, mirroring
// the reference implementation's "one process per experiment" batch
// workflow rather than a long-lived service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-wordwrap"
	"github.com/pkg/errors"

	"github.com/CongducPham/lorasimmac/internal/config"
	"github.com/CongducPham/lorasimmac/internal/energy"
	"github.com/CongducPham/lorasimmac/internal/logger"
	"github.com/CongducPham/lorasimmac/internal/lora"
	"github.com/CongducPham/lorasimmac/internal/metrics"
	"github.com/CongducPham/lorasimmac/internal/progctx"
	"github.com/CongducPham/lorasimmac/internal/runid"
	"github.com/CongducPham/lorasimmac/internal/stats"
)

// MainArgs are the named flags, distinct from the positional LoRa
// argument vector config.ParseArgs consumes out of flag.Args().
type MainArgs struct {
	Verbose     bool
	LogLevel    string
	MetricsAddr string
	Seed        int64
	OutDir      string
	Energy      bool
}

var args MainArgs

const usageHeader = `lorasimmac simulates a LoRa star-topology network running one of three
MAC disciplines (pure ALOHA, ALOHA+CSMA with backoff, or RTS/NAV collision
avoidance) and reports its delivery ratio and collision breakdown.

Usage:

  lorasimmac [flags] <ca> <nodes> <avgsend> <experiment> <simtime> \
      [collision] [WL] [W2] [W3] [Wnav] [W2afterNAV] [P]

Flags:
`

func parseArgs() []string {
	flag.BoolVar(&args.Verbose, "verbose", false, "enable verbose (debug-level) logging")
	flag.StringVar(&args.LogLevel, "log-level", "warn", "log level: trace|debug|info|note|warn|error|fatal|off")
	flag.StringVar(&args.MetricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9100)")
	flag.Int64Var(&args.Seed, "seed", 0, "PRNG seed; 0 lets the run be non-reproducible across invocations")
	flag.StringVar(&args.OutDir, "out-dir", ".", "directory to append the exp<N>.dat report to")
	flag.BoolVar(&args.Energy, "energy", false, "also compute and print the per-node/network energy breakdown")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, wordwrap.WrapString(usageHeader, 78))
		flag.PrintDefaults()
	}
	flag.Parse()
	return flag.Args()
}

func main() {
	positional := parseArgs()

	logger.SetLevel(logger.ParseLevel(args.LogLevel))
	if args.Verbose {
		logger.SetLevel(logger.DebugLevel)
	}

	ctx := progctx.New(context.Background())
	ctx.CancelOnInterrupt()

	run := runid.New()
	logger.Infof("starting run %s", run)

	var coll *metrics.Collector
	if args.MetricsAddr != "" {
		coll = metrics.New(run)
		go func() {
			if err := metrics.Serve(args.MetricsAddr); err != nil {
				logger.Errorf("metrics server stopped: %v", err)
			}
		}()
	}

	cfgArgs, err := config.ParseArgs(positional)
	if err != nil {
		logger.FatalIfError(err, errors.Wrap(err, "invalid arguments"))
		os.Exit(2)
	}
	cfgArgs.Seed = args.Seed

	sim, err := config.Bootstrap(cfgArgs, ctx)
	if err != nil {
		logger.FatalIfError(err, errors.Wrap(err, "bootstrap failed"))
		os.Exit(1)
	}

	sim.Scheduler.Run()
	ctx.Wait()

	settings := stats.Settings{
		Nodes: cfgArgs.Nodes, AvgSendMs: cfgArgs.AvgSendMs, Uniform: true,
		Experiment: cfgArgs.Experiment, SimtimeMs: cfgArgs.SimtimeMs,
		FullCollision: cfgArgs.FullCollision, NRetry: config.DefaultNRetry,
		CheckBusy: true, CCAProb: config.DefaultCCAProb,
		PacketLength: config.DefaultPacketLength, TargetSent: config.DefaultTargetSent * cfgArgs.Nodes,
		WbusyMin: config.DefaultWbusyMin, WbusyBE: config.DefaultWbusyBE, WbusyMaxBE: config.DefaultWbusyMaxBE,
		WbusyExpBackoff: true, CA: cfgArgs.CA,
		P: cfgArgs.P, WL: cfgArgs.WL, W2: cfgArgs.W2, W3: cfgArgs.W3,
		Wnav: cfgArgs.Wnav, W2afterNAV: cfgArgs.W2afterNAV,
		NRetryRTS: config.DefaultNRetryRTS, CheckBusyRTS: true,
		RunID: run,
	}
	report := stats.New(settings, sim.Nodes, sim.Globals, sim.Scheduler.Now())

	if _, err := report.WriteTo(os.Stdout); err != nil {
		logger.Errorf("writing report to stdout: %v", err)
	}

	datPath := filepath.Join(args.OutDir, fmt.Sprintf("exp%d.dat", cfgArgs.Experiment))
	if err := appendReport(datPath, report); err != nil {
		logger.Errorf("appending report to %s: %v", datPath, err)
	}

	if args.Energy {
		eReport := energy.Compute(sim.Nodes, lora.BandSubGHz, cfgArgs.CA)
		if _, err := eReport.WriteTo(os.Stdout); err != nil {
			logger.Errorf("writing energy report: %v", err)
		}
		if coll != nil {
			coll.PublishFinal(report.Sent, report.NrCollisions, report.NrReceived, report.DERMethod2(), eReport.TotalEnergyJ)
		}
	} else if coll != nil {
		coll.PublishFinal(report.Sent, report.NrCollisions, report.NrReceived, report.DERMethod2(), 0)
	}

	ctx.Cancel(nil)
}

func appendReport(path string, report *stats.Report) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return errors.Wrap(err, "open report file")
	}
	defer f.Close()

	_, err = report.WriteTo(f)
	return errors.Wrap(err, "write report")
}
