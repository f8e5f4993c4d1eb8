package report

import (
	"fmt"

	"github.com/querylabs/querybench/pkg/bench"
	"github.com/sirupsen/logrus"
)

// renderMessage builds the human-readable summary line for a result. The
// full-precision values travel as structured fields; the message rounds
// the mean to whole milliseconds and the dispersion to two decimals.
func renderMessage(result *bench.Result) string {
	return fmt.Sprintf(
		"Bench run %s/%s against %s: case %s mean %.0f ms (rsd %.2f)",
		result.CasesHash,
		result.BenchRunID,
		result.Server,
		result.CaseID,
		result.MeanElapsed,
		result.RelativeStandardDeviationElapsed,
	)
}

// resultFields maps every populated result field to a structured log field.
// Optional fields are included only when present, mirroring the serialized
// record.
func resultFields(result *bench.Result) logrus.Fields {
	fields := logrus.Fields{
		"bench_run_id":                        result.BenchRunID,
		"cases_hash":                          result.CasesHash,
		"case_id":                             result.CaseID,
		"server":                              result.Server,
		"query":                               result.Query,
		"start":                               result.Start,
		"end":                                 result.End,
		"runs":                                result.Runs,
		"min_elapsed":                         result.MinElapsed,
		"max_elapsed":                         result.MaxElapsed,
		"mean_elapsed":                        result.MeanElapsed,
		"standard_deviation_elapsed":          result.StandardDeviationElapsed,
		"relative_standard_deviation_elapsed": result.RelativeStandardDeviationElapsed,
	}

	if result.SignalExpression != "" {
		fields["signal_expression"] = result.SignalExpression
	}

	if result.Description != "" {
		fields["description"] = result.Description
	}

	if result.LastResult != nil {
		fields["last_result"] = result.LastResult
	}

	return fields
}

// Console reports results as structured log entries on the local console.
type Console struct {
	log logrus.FieldLogger
}

// Compile-time interface check.
var _ bench.Reporter = (*Console)(nil)

// NewConsole creates a console reporter.
func NewConsole(log logrus.FieldLogger) *Console {
	return &Console{log: log}
}

// Report writes one result to the console sink.
func (c *Console) Report(result *bench.Result) error {
	c.log.WithFields(resultFields(result)).Info(renderMessage(result))

	return nil
}

// Close is a no-op; the console needs no draining.
func (c *Console) Close() error {
	return nil
}

// Multi fans every result out to several reporters. A delivery failure in
// one reporter is reported but does not stop delivery to the others; the
// run must never abort on reporting trouble.
type Multi struct {
	log       logrus.FieldLogger
	reporters []bench.Reporter
}

// Compile-time interface check.
var _ bench.Reporter = (*Multi)(nil)

// NewMulti creates a fan-out reporter.
func NewMulti(log logrus.FieldLogger, reporters ...bench.Reporter) *Multi {
	return &Multi{log: log, reporters: reporters}
}

// Report delivers the result to every underlying reporter.
func (m *Multi) Report(result *bench.Result) error {
	for _, r := range m.reporters {
		if err := r.Report(result); err != nil {
			m.log.WithError(err).Warn("Result delivery failed")
		}
	}

	return nil
}

// Close closes every underlying reporter.
func (m *Multi) Close() error {
	for _, r := range m.reporters {
		if err := r.Close(); err != nil {
			m.log.WithError(err).Warn("Closing reporter failed")
		}
	}

	return nil
}

// Collector retains reported results in memory, in arrival order, for the
// run summary file.
type Collector struct {
	results []*bench.Result
}

// Compile-time interface check.
var _ bench.Reporter = (*Collector)(nil)

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Report retains the result.
func (c *Collector) Report(result *bench.Result) error {
	c.results = append(c.results, result)

	return nil
}

// Close is a no-op.
func (c *Collector) Close() error {
	return nil
}

// Results returns the retained results in arrival order.
func (c *Collector) Results() []*bench.Result {
	return c.results
}
