// Command agsecscan runs a configured scan to completion and gates on the
// result, for use as a CI step. Interactive/streaming use is served by the
// scan.Controller surface directly; this binary is the one-shot wrapper
// around it.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/msoedov/agentic-security/internal/classifier"
	"github.com/msoedov/agentic-security/internal/dataset"
	"github.com/msoedov/agentic-security/internal/engine"
	"github.com/msoedov/agentic-security/internal/httpclient"
	"github.com/msoedov/agentic-security/internal/log"
	"github.com/msoedov/agentic-security/internal/render"
	"github.com/msoedov/agentic-security/internal/scan"
)

// Exit codes, per the configuration table: 0 all modules within
// threshold, 1 at least one module over threshold, 2 config or spec
// parse error, 3 stopped.
const (
	exitOK            = 0
	exitOverThreshold = 1
	exitConfigError   = 2
	exitStopped       = 3
)

func main() {
	cmd := &cli.Command{
		Name:  "agsecscan",
		Usage: "fuzz an LLM endpoint for jailbreaks and gate CI on the failure rate",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Usage:    "path to the scan's TOML configuration file",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "csv-dir",
				Usage: "directory of CSV prompt datasets to load alongside any registry providers",
			},
			&cli.StringFlag{
				Name:  "failures-out",
				Usage: "path to the append-only compliance-failures log",
				Value: "failures.jsonl",
			},
			&cli.StringFlag{
				Name:  "render-cache-dir",
				Usage: "directory used to cache rendered image/audio payloads",
				Value: ".agsecscan-cache",
			},
			&cli.StringFlag{
				Name:  "policy",
				Usage: "prompt-selection policy: naive, random, qlearning, or cloud",
				Value: "naive",
			},
			&cli.StringFlag{
				Name:  "cloud-endpoint",
				Usage: "endpoint for the cloud policy (only used when --policy=cloud)",
			},
			&cli.StringFlag{
				Name:  "cloud-token",
				Usage: "bearer token for the cloud policy (only used when --policy=cloud)",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfigError)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := scan.LoadConfig(cmd.String("config"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfigError)
	}

	cache, err := render.NewCache(cmd.String("render-cache-dir"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfigError)
	}

	datasets, err := dataset.Assemble(ctx, dataset.AssemblyOptions{
		CSVDir:      cmd.String("csv-dir"),
		RenderCache: cache,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfigError)
	}

	sink, err := scan.NewFailuresSink(cmd.String("failures-out"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfigError)
	}

	client := httpclient.NewClient(30 * time.Second)
	ctrl := scan.NewController(client, classifier.NewManager(), datasets, sink)

	events, err := ctrl.Scan(ctx, scan.Request{
		MaxBudget:             cfg.MaxBudget,
		LLMSpec:               cfg.LLMSpec,
		Datasets:              selectionsFromModules(cfg.Modules),
		Optimize:              cfg.Optimize,
		EnableMultiStepAttack: cfg.EnableMultiStepAttack,
		PolicyName:            cmd.String("policy"),
		CloudEndpoint:         cmd.String("cloud-endpoint"),
		CloudAuthToken:        cmd.String("cloud-token"),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfigError)
	}

	all := make([]engine.ScanProgressEvent, 0, 256)
	for ev := range events {
		all = append(all, ev)

		if ev.Kind == engine.EventStatus {
			log.Info(ctx, "module finished", log.String("module", ev.Module), log.String("status", ev.Status))
		}
	}

	report := scan.BuildReport(all, cfg.MaxThreshold, cfg.Thresholds)
	printReport(report)

	switch report.ExitCode() {
	case 3:
		os.Exit(exitStopped)
	case 1:
		os.Exit(exitOverThreshold)
	default:
		os.Exit(exitOK)
	}

	return nil
}

// selectionsFromModules builds the dataset selection list from the
// configuration's module table, in a deterministic (sorted) order so
// module dispatch order doesn't depend on map iteration.
func selectionsFromModules(modules map[string]scan.ModuleConfig) []scan.DatasetSelection {
	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}

	sort.Strings(names)

	selections := make([]scan.DatasetSelection, 0, len(names))
	for _, name := range names {
		selections = append(selections, scan.DatasetSelection{
			Name:     modules[name].DatasetName,
			Selected: true,
		})
	}

	return selections
}

func printReport(r scan.Report) {
	fmt.Println("module\tfailure_rate\tbucket\tover_threshold")

	for _, m := range r.Modules {
		fmt.Printf("%s\t%.2f%%\t%s\t%v\n", m.Name, m.FailureRate, m.Bucket, m.OverThreshold)
	}

	if r.Stopped {
		fmt.Println("scan stopped before completion")
	}
}
