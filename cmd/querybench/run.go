package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/querylabs/querybench/pkg/archive"
	"github.com/querylabs/querybench/pkg/bench"
	"github.com/querylabs/querybench/pkg/cases"
	"github.com/querylabs/querybench/pkg/config"
	"github.com/querylabs/querybench/pkg/history"
	"github.com/querylabs/querybench/pkg/query"
	"github.com/querylabs/querybench/pkg/report"
	"github.com/querylabs/querybench/pkg/sysinfo"
	"github.com/spf13/cobra"
)

var (
	flagServer      string
	flagAPIKey      string
	flagRuns        int
	flagCases       string
	flagStart       string
	flagEnd         string
	flagDescription string
	flagRemoteURL   string
	flagRemoteKey   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the benchmark",
	Long:  `Execute every case of the configured case set against the target server and report timing statistics.`,
	RunE:  runBenchmark,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&flagServer, "server", "", "Base URL of the data-query endpoint")
	runCmd.Flags().StringVar(&flagAPIKey, "api-key", "", "Access credential for the data-query endpoint")
	runCmd.Flags().IntVar(&flagRuns, "runs", 0, "Executions per case (default from config)")
	runCmd.Flags().StringVar(&flagCases, "cases", "", "Path to a case-set document (default: built-in)")
	runCmd.Flags().StringVar(&flagStart, "start", "", "Query range start (RFC3339)")
	runCmd.Flags().StringVar(&flagEnd, "end", "", "Query range end (RFC3339)")
	runCmd.Flags().StringVar(&flagDescription, "description", "", "Free-text run description")
	runCmd.Flags().StringVar(&flagRemoteURL, "reporting-server", "", "Remote structured-event sink URL")
	runCmd.Flags().StringVar(&flagRemoteKey, "reporting-api-key", "", "Access credential for the remote sink")
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	applyFlagOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	start, end, err := cfg.TimeRange()
	if err != nil {
		return err
	}

	// Setup context with signal handling.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	}()

	// Load the case set before touching any sink: configuration problems
	// must abort before the first query executes.
	set, err := cases.Load(cfg.Benchmark.CasesFile)
	if err != nil {
		return fmt.Errorf("loading case set: %w", err)
	}

	collector := report.NewCollector()
	reporters := []bench.Reporter{report.NewConsole(log), collector}

	if cfg.Reporting.Remote.Enabled {
		reporters = append(reporters, report.NewRemote(log, &report.RemoteConfig{
			URL:    cfg.Reporting.Remote.URL,
			APIKey: cfg.Reporting.Remote.APIKey,
		}))
	}

	if cfg.History.Enabled {
		store := history.NewStore(log, &cfg.History.Database)
		if err := store.Start(ctx); err != nil {
			return fmt.Errorf("starting history store: %w", err)
		}

		defer func() {
			if err := store.Stop(); err != nil {
				log.WithError(err).Warn("Failed to stop history store")
			}
		}()

		reporters = append(reporters, history.NewRecorder(log, store))
	}

	var archiver archive.Archiver

	if cfg.Archive.S3.Enabled {
		archiver, err = archive.NewS3Archiver(log, &cfg.Archive.S3)
		if err != nil {
			return fmt.Errorf("creating s3 archiver: %w", err)
		}

		// Fail fast: verify the bucket is writable before benchmarking.
		if err := archiver.Preflight(ctx); err != nil {
			return fmt.Errorf("s3 archive preflight check failed: %w", err)
		}

		log.Info("S3 archive preflight check passed")
	}

	reporter := report.NewMulti(log, reporters...)

	// Every sink is drained before the process exits, success or failure.
	defer func() {
		if err := reporter.Close(); err != nil {
			log.WithError(err).Warn("Failed to close reporters")
		}
	}()

	executor := query.NewClient(log, &query.Config{
		ServerURL: cfg.Server.URL,
		APIKey:    cfg.Server.APIKey,
	})

	runner := bench.NewRunner(log, &bench.Config{
		Server:      cfg.Server.URL,
		Runs:        cfg.Benchmark.Runs,
		Start:       start,
		End:         end,
		Description: cfg.Benchmark.Description,
	}, executor, reporter)

	host := sysinfo.Collect(ctx, log)

	if err := runner.Run(ctx, set); err != nil {
		return fmt.Errorf("bench run failed: %w", err)
	}

	results := collector.Results()
	if len(results) == 0 {
		return fmt.Errorf("bench run produced no results")
	}

	summary, err := writeRunSummary(cfg.Benchmark.ResultsDir, host, results)
	if err != nil {
		log.WithError(err).Warn("Failed to write run summary file")
	} else if archiver != nil {
		if err := archiver.ArchiveRun(ctx, results[0].BenchRunID, summary); err != nil {
			log.WithError(err).Warn("Failed to archive run summary")
		}
	}

	log.WithField("cases", len(results)).Info("Bench run completed")

	return nil
}

// applyFlagOverrides merges CLI flags into the loaded configuration.
// Flags win over both the file and the environment.
func applyFlagOverrides(cfg *config.Config) {
	if flagServer != "" {
		cfg.Server.URL = flagServer
	}

	if flagAPIKey != "" {
		cfg.Server.APIKey = flagAPIKey
	}

	if flagRuns > 0 {
		cfg.Benchmark.Runs = flagRuns
	}

	if flagCases != "" {
		cfg.Benchmark.CasesFile = flagCases
	}

	if flagStart != "" {
		cfg.Benchmark.Start = flagStart
	}

	if flagEnd != "" {
		cfg.Benchmark.End = flagEnd
	}

	if flagDescription != "" {
		cfg.Benchmark.Description = flagDescription
	}

	if flagRemoteURL != "" {
		cfg.Reporting.Remote.Enabled = true
		cfg.Reporting.Remote.URL = flagRemoteURL
	}

	if flagRemoteKey != "" {
		cfg.Reporting.Remote.APIKey = flagRemoteKey
	}
}
