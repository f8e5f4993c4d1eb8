package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/querylabs/querybench/pkg/bench"
	"github.com/querylabs/querybench/pkg/sysinfo"
)

// runSummary is the on-disk record of one complete bench run.
type runSummary struct {
	BenchRunID string          `json:"bench_run_id"`
	CasesHash  string          `json:"cases_hash"`
	Server     string          `json:"server"`
	CreatedAt  time.Time       `json:"created_at"`
	Host       *sysinfo.Info   `json:"host,omitempty"`
	Results    []*bench.Result `json:"results"`
}

// writeRunSummary writes <results_dir>/<runID>/summary.json and returns the
// serialized document for archiving.
func writeRunSummary(
	resultsDir string,
	host *sysinfo.Info,
	results []*bench.Result,
) ([]byte, error) {
	first := results[0]

	summary := runSummary{
		BenchRunID: first.BenchRunID,
		CasesHash:  first.CasesHash,
		Server:     first.Server,
		CreatedAt:  time.Now().UTC(),
		Host:       host,
		Results:    results,
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling run summary: %w", err)
	}

	runDir := filepath.Join(resultsDir, first.BenchRunID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}

	summaryPath := filepath.Join(runDir, "summary.json")
	if err := os.WriteFile(summaryPath, data, 0644); err != nil {
		return nil, fmt.Errorf("writing summary: %w", err)
	}

	log.WithField("path", summaryPath).Info("Run summary written")

	return data, nil
}
