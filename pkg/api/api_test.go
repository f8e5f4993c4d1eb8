package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/querylabs/querybench/pkg/config"
	"github.com/querylabs/querybench/pkg/history"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return log
}

func testServer(t *testing.T, cfg *config.APIConfig) (*httptest.Server, history.Store) {
	t.Helper()

	store := history.NewStore(testLogger(), &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "history.db")},
	})
	require.NoError(t, store.Start(context.Background()))
	t.Cleanup(func() { require.NoError(t, store.Stop()) })

	srv := &server{log: testLogger(), cfg: cfg, store: store}
	ts := httptest.NewServer(srv.buildRouter())
	t.Cleanup(ts.Close)

	return ts, store
}

func seedResults(t *testing.T, store history.Store) {
	t.Helper()

	ctx := context.Background()

	for _, rec := range []*history.ResultRecord{
		{BenchRunID: "run1", CasesHash: "ab12", CaseID: "q1", Server: "s", MeanElapsed: 10},
		{BenchRunID: "run1", CasesHash: "ab12", CaseID: "q2", Server: "s", MeanElapsed: 20},
		{BenchRunID: "run2", CasesHash: "cd34", CaseID: "q1", Server: "s", MeanElapsed: 30},
	} {
		rec.Start = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		rec.End = rec.Start.Add(time.Hour)
		require.NoError(t, store.SaveResult(ctx, rec))
	}
}

func TestAPI_Health(t *testing.T) {
	ts, _ := testServer(t, &config.APIConfig{Listen: ":0"})

	resp, err := http.Get(ts.URL + "/api/v1/health")
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_ListRuns(t *testing.T) {
	ts, store := testServer(t, &config.APIConfig{Listen: ":0"})
	seedResults(t, store)

	resp, err := http.Get(ts.URL + "/api/v1/runs")
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Runs []history.RunSummary `json:"runs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Len(t, payload.Runs, 2)
}

func TestAPI_ListResults(t *testing.T) {
	ts, store := testServer(t, &config.APIConfig{Listen: ":0"})
	seedResults(t, store)

	resp, err := http.Get(ts.URL + "/api/v1/results?case_id=q1")
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Results []history.ResultRecord `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Len(t, payload.Results, 2)

	for _, r := range payload.Results {
		assert.Equal(t, "q1", r.CaseID)
	}
}

func TestAPI_ListResults_InvalidLimit(t *testing.T) {
	ts, _ := testServer(t, &config.APIConfig{Listen: ":0"})

	resp, err := http.Get(ts.URL + "/api/v1/results?limit=nope")
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_RateLimit(t *testing.T) {
	ts, _ := testServer(t, &config.APIConfig{
		Listen: ":0",
		RateLimit: config.RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 2,
		},
	})

	var limited bool

	for i := 0; i < 5; i++ {
		resp, err := http.Get(ts.URL + "/api/v1/runs")
		require.NoError(t, err)
		_ = resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
		}
	}

	assert.True(t, limited, "expected at least one rate-limited response")
}
