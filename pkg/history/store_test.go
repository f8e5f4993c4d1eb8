package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/querylabs/querybench/pkg/bench"
	"github.com/querylabs/querybench/pkg/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return log
}

func openTestStore(t *testing.T) Store {
	t.Helper()

	s := NewStore(testLogger(), &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "history.db")},
	})

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { require.NoError(t, s.Stop()) })

	return s
}

func sampleRecord(runID, caseID string) *ResultRecord {
	return &ResultRecord{
		BenchRunID:  runID,
		CasesHash:   "ab12",
		CaseID:      caseID,
		Server:      "https://logs.example.com",
		Query:       "select count(*) from stream",
		Start:       time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
		Runs:        3,
		MinElapsed:  9,
		MaxElapsed:  11,
		MeanElapsed: 10,
	}
}

func TestStore_SaveAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveResult(ctx, sampleRecord("run1", "q1")))
	require.NoError(t, s.SaveResult(ctx, sampleRecord("run1", "q2")))
	require.NoError(t, s.SaveResult(ctx, sampleRecord("run2", "q1")))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byRunID := make(map[string]RunSummary, len(runs))
	for _, r := range runs {
		byRunID[r.BenchRunID] = r
	}

	assert.Equal(t, 2, byRunID["run1"].Cases)
	assert.Equal(t, 1, byRunID["run2"].Cases)
	assert.Equal(t, "ab12", byRunID["run1"].CasesHash)
}

func TestStore_ListResultsFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveResult(ctx, sampleRecord("run1", "q1")))
	require.NoError(t, s.SaveResult(ctx, sampleRecord("run1", "q2")))
	require.NoError(t, s.SaveResult(ctx, sampleRecord("run2", "q1")))

	results, err := s.ListResults(ctx, ResultFilter{CaseID: "q1"})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = s.ListResults(ctx, ResultFilter{BenchRunID: "run1", CaseID: "q1"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "run1", results[0].BenchRunID)

	results, err = s.ListResults(ctx, ResultFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = s.ListResults(ctx, ResultFilter{CasesHash: "none"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRecorder_PersistsResults(t *testing.T) {
	s := openTestStore(t)
	rec := NewRecorder(testLogger(), s)

	require.NoError(t, rec.Report(&bench.Result{
		BenchRunID:  "run1",
		CasesHash:   "ab12",
		CaseID:      "q1",
		Runs:        3,
		LastResult:  float64(42),
		MeanElapsed: 10,
	}))
	require.NoError(t, rec.Close())

	results, err := s.ListResults(context.Background(), ResultFilter{BenchRunID: "run1"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "42", results[0].LastResult)
	assert.Equal(t, 3, results[0].Runs)
	assert.False(t, results[0].CreatedAt.IsZero())
}
