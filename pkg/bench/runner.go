package bench

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/querylabs/querybench/pkg/cases"
	"github.com/querylabs/querybench/pkg/query"
	"github.com/querylabs/querybench/pkg/timing"
	"github.com/sirupsen/logrus"
)

// QueryExecutor issues one query execution against the target endpoint.
// Implemented by query.Client; faked in tests.
type QueryExecutor interface {
	Execute(
		ctx context.Context,
		q string,
		start, end time.Time,
		signal string,
	) (*query.Result, error)
}

// Reporter consumes one finished per-case result. Results are streamed:
// each is reported before the next case starts.
type Reporter interface {
	Report(result *Result) error
	Close() error
}

// Config for the bench runner.
type Config struct {
	// Server is the target endpoint address, recorded in every result.
	Server string

	// Runs is the number of sequential executions per case.
	Runs int

	// Start and End bound every query execution.
	Start time.Time
	End   time.Time

	// Description is optional free text attached to every result.
	Description string
}

// Runner drives all cases of a set through the query executor and hands
// one result per case to the reporter.
type Runner interface {
	Run(ctx context.Context, set *cases.Set) error
}

// Compile-time interface check.
var _ Runner = (*runner)(nil)

type runner struct {
	log      logrus.FieldLogger
	cfg      *Config
	executor QueryExecutor
	reporter Reporter
}

// NewRunner creates a bench runner.
func NewRunner(
	log logrus.FieldLogger,
	cfg *Config,
	executor QueryExecutor,
	reporter Reporter,
) Runner {
	return &runner{
		log:      log.WithField("component", "runner"),
		cfg:      cfg,
		executor: executor,
		reporter: reporter,
	}
}

// Run executes every case of the set in order, strictly sequentially.
// Concurrent executions would contaminate the latency measurement, so the
// query call is the only suspension point. Any execution failure aborts
// the remaining run; results already reported stand.
func (r *runner) Run(ctx context.Context, set *cases.Set) error {
	runID, err := newRunID()
	if err != nil {
		return fmt.Errorf("generating bench run id: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"bench_run_id": runID,
		"cases_hash":   set.Hash,
		"cases":        len(set.Cases),
		"runs":         r.cfg.Runs,
	}).Info("Starting bench run")

	for i := range set.Cases {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := r.runCase(ctx, runID, set.Hash, &set.Cases[i])
		if err != nil {
			return err
		}

		if err := r.reporter.Report(result); err != nil {
			return fmt.Errorf("reporting case %q: %w", set.Cases[i].ID, err)
		}
	}

	return nil
}

// runCase executes one case Runs times and assembles its result record.
func (r *runner) runCase(
	ctx context.Context,
	runID, casesHash string,
	c *cases.Case,
) (*Result, error) {
	acc := timing.NewAccumulator()

	var lastResult any

	for run := 1; run <= r.cfg.Runs; run++ {
		res, err := r.executor.Execute(
			ctx, c.Query, r.cfg.Start, r.cfg.End, c.SignalExpression,
		)
		if err != nil {
			return nil, fmt.Errorf("case %q run %d/%d: %w", c.ID, run, r.cfg.Runs, err)
		}

		acc.Push(res.ElapsedMs)

		// Only the final execution's scalar result is kept.
		if run == r.cfg.Runs {
			lastResult = scalarResult(res.Rows)
		}

		r.log.WithFields(logrus.Fields{
			"case_id":    c.ID,
			"run":        run,
			"elapsed_ms": res.ElapsedMs,
		}).Debug("Case run completed")
	}

	return &Result{
		BenchRunID:                       runID,
		CasesHash:                        casesHash,
		CaseID:                           c.ID,
		Server:                           r.cfg.Server,
		Query:                            c.Query,
		SignalExpression:                 c.SignalExpression,
		Description:                      r.cfg.Description,
		Start:                            r.cfg.Start,
		End:                              r.cfg.End,
		Runs:                             r.cfg.Runs,
		LastResult:                       lastResult,
		MinElapsed:                       acc.Min(),
		MaxElapsed:                       acc.Max(),
		MeanElapsed:                      acc.Mean(),
		StandardDeviationElapsed:         acc.StdDev(),
		RelativeStandardDeviationElapsed: acc.RelStdDev(),
	}, nil
}

// scalarResult extracts the terminal value when the response is exactly one
// row with exactly one column, and nil otherwise.
func scalarResult(rows [][]any) any {
	if len(rows) != 1 || len(rows[0]) != 1 {
		return nil
	}

	return rows[0][0]
}

// newRunID generates the short random correlation tag shared by every
// result of one bench run. Collisions are acceptable; it is a human-facing
// tag, not a uniqueness guarantee.
func newRunID() (string, error) {
	buf := make([]byte, 2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}
