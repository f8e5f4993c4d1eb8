package history

import "time"

// ResultRecord is one persisted per-case bench result. The full record is
// kept so trends can be compared across runs of the same case set.
type ResultRecord struct {
	ID uint `gorm:"primaryKey" json:"-"`

	BenchRunID       string    `gorm:"index" json:"bench_run_id"`
	CasesHash        string    `gorm:"index" json:"cases_hash"`
	CaseID           string    `gorm:"index" json:"case_id"`
	Server           string    `json:"server"`
	Query            string    `json:"query"`
	SignalExpression string    `json:"signal_expression,omitempty"`
	Description      string    `json:"description,omitempty"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	Runs             int       `json:"runs"`
	LastResult       string    `json:"last_result,omitempty"`

	MinElapsed                       float64 `json:"min_elapsed"`
	MaxElapsed                       float64 `json:"max_elapsed"`
	MeanElapsed                      float64 `json:"mean_elapsed"`
	StandardDeviationElapsed         float64 `json:"standard_deviation_elapsed"`
	RelativeStandardDeviationElapsed float64 `json:"relative_standard_deviation_elapsed"`

	CreatedAt time.Time `json:"created_at"`
}

// RunSummary is an aggregate view of one bench run.
type RunSummary struct {
	BenchRunID string    `json:"bench_run_id"`
	CasesHash  string    `json:"cases_hash"`
	Server     string    `json:"server"`
	Cases      int       `json:"cases"`
	CreatedAt  time.Time `json:"created_at"`
}
