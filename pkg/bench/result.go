package bench

import "time"

// Result is the per-case output record: full run provenance plus the
// aggregate timing statistics. Optional fields carry omitempty so the
// serialized record distinguishes absent from present-but-empty.
type Result struct {
	BenchRunID       string    `json:"bench_run_id"`
	CasesHash        string    `json:"cases_hash"`
	CaseID           string    `json:"case_id"`
	Server           string    `json:"server"`
	Query            string    `json:"query"`
	SignalExpression string    `json:"signal_expression,omitempty"`
	Description      string    `json:"description,omitempty"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	Runs             int       `json:"runs"`

	// LastResult is set only when the final execution returned exactly one
	// row with exactly one column.
	LastResult any `json:"last_result,omitempty"`

	MinElapsed                       float64 `json:"min_elapsed"`
	MaxElapsed                       float64 `json:"max_elapsed"`
	MeanElapsed                      float64 `json:"mean_elapsed"`
	StandardDeviationElapsed         float64 `json:"standard_deviation_elapsed"`
	RelativeStandardDeviationElapsed float64 `json:"relative_standard_deviation_elapsed"`
}
