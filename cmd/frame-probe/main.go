package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/framelab/framebench-web/internal/adapter"
	"github.com/framelab/framebench-web/internal/frame"
	"github.com/framelab/framebench-web/internal/timing"
)

type options struct {
	sysfsRoot  string
	timingRoot string
	sample     bool
	count      int
	jsonOutput bool
}

func parseFlags() options {
	defaultSysfs := envOrDefault("APP_SYSFS_ROOT", "/sys")
	defaultTiming := envOrDefault("APP_TIMING_ROOT", "/run/framebench/timing")

	var opts options
	flag.StringVar(&opts.sysfsRoot, "sysfs", defaultSysfs, "Path to sysfs root")
	flag.StringVar(&opts.timingRoot, "timing", defaultTiming, "Path to frame timing export root")
	flag.BoolVar(&opts.sample, "sample", false, "Collect frame samples from the timing export")
	flag.IntVar(&opts.count, "count", 1, "Number of frame samples to collect")
	flag.BoolVar(&opts.jsonOutput, "json", false, "Emit output as JSON")
	flag.Parse()
	return opts
}

func main() {
	opts := parseFlags()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	infos, err := adapter.Discover(opts.sysfsRoot, logger.With("component", "adapter_discovery"))
	if err != nil {
		logger.Error("adapter discovery failed", "err", err)
		os.Exit(1)
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(infos); err != nil {
			logger.Error("encode discovery output", "err", err)
			os.Exit(1)
		}
	} else {
		if len(infos) == 0 {
			fmt.Println("No adapters detected")
		} else {
			fmt.Println("Discovered adapters:")
		}
		for _, info := range infos {
			fmt.Printf("- %s (PCI: %s, PCIID: %s, Render: %s, Name: %s)\n", info.ID, info.PCI, info.PCIID, info.RenderNode, info.Name)
		}
	}

	if !opts.sample {
		return
	}

	reader, err := timing.NewReader(opts.timingRoot, logger.With("component", "timing_reader"))
	if err != nil {
		logger.Error("timing reader init failed", "root", opts.timingRoot, "err", err)
		os.Exit(1)
	}

	start := time.Now()
	samples := make([]frame.Sample, 0, opts.count)
	for i := 0; i < opts.count; i++ {
		timeline := time.Since(start).Seconds()
		samples = append(samples, frame.CurrentFrame(reader, reader, timeline, true))
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(samples); err != nil {
			logger.Error("encode samples", "err", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println()
	fmt.Printf("Collected %d sample(s) at %s\n", len(samples), time.Now().UTC().Format(time.RFC3339))
	for i, sample := range samples {
		fmt.Printf("frame %d: %s\n", i, sample.String())
	}
	if len(samples) > 1 {
		fmt.Printf("min: %s\n", frame.MinOf(samples).String())
		fmt.Printf("max: %s\n", frame.MaxOf(samples).String())
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
