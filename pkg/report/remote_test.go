package report

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/querylabs/querybench/pkg/bench"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return log
}

func sampleResult() *bench.Result {
	return &bench.Result{
		BenchRunID:                       "ab12",
		CasesHash:                        "cd34",
		CaseID:                           "q1",
		Server:                           "https://logs.example.com",
		Query:                            "select count(*) from stream",
		Start:                            time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		End:                              time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
		Runs:                             3,
		LastResult:                       float64(42),
		MinElapsed:                       9.5,
		MaxElapsed:                       11.5,
		MeanElapsed:                      10.5,
		StandardDeviationElapsed:         0.8,
		RelativeStandardDeviationElapsed: 0.076,
	}
}

func TestRenderMessage(t *testing.T) {
	msg := renderMessage(sampleResult())

	assert.Equal(t,
		"Bench run cd34/ab12 against https://logs.example.com: case q1 mean 10 ms (rsd 0.08)",
		msg,
	)
}

func TestResultFields_OptionalPresence(t *testing.T) {
	result := sampleResult()
	result.SignalExpression = ""
	result.Description = ""
	result.LastResult = nil

	fields := resultFields(result)
	assert.NotContains(t, fields, "signal_expression")
	assert.NotContains(t, fields, "description")
	assert.NotContains(t, fields, "last_result")

	result.SignalExpression = "signal-errors"
	result.Description = "nightly"
	result.LastResult = float64(1)

	fields = resultFields(result)
	assert.Equal(t, "signal-errors", fields["signal_expression"])
	assert.Equal(t, "nightly", fields["description"])
	assert.Equal(t, float64(1), fields["last_result"])
}

func TestRemote_DeliversEvents(t *testing.T) {
	var (
		mu       sync.Mutex
		received []map[string]any
		apiKey   string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/events", r.URL.Path)

		var payload struct {
			Events []map[string]any `json:"events"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		mu.Lock()
		received = append(received, payload.Events...)
		apiKey = r.Header.Get("X-Api-Key")
		mu.Unlock()

		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	remote := NewRemote(testLogger(), &RemoteConfig{URL: srv.URL, APIKey: "secret"})

	require.NoError(t, remote.Report(sampleResult()))
	require.NoError(t, remote.Close())

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, received, 1)
	assert.Equal(t, "secret", apiKey)

	props, ok := received[0]["properties"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ab12", props["bench_run_id"])
	assert.Equal(t, "cd34", props["cases_hash"])
	assert.Equal(t, "q1", props["case_id"])
	assert.Equal(t, float64(3), props["runs"])
	assert.Equal(t, float64(42), props["last_result"])

	// Optional fields were absent from the source and must be absent here.
	assert.NotContains(t, props, "signal_expression")
	assert.NotContains(t, props, "description")
}

func TestRemote_UnreachableSinkDoesNotFail(t *testing.T) {
	remote := NewRemote(testLogger(), &RemoteConfig{URL: "http://127.0.0.1:1"})

	// Report and Close must both succeed; delivery is best-effort.
	assert.NoError(t, remote.Report(sampleResult()))
	assert.NoError(t, remote.Close())
}

func TestMulti_ContinuesPastFailures(t *testing.T) {
	failing := &failingReporter{}
	collector := NewCollector()

	multi := NewMulti(testLogger(), failing, collector)

	require.NoError(t, multi.Report(sampleResult()))
	require.NoError(t, multi.Close())

	// The failing reporter did not block delivery to the collector.
	assert.Len(t, collector.Results(), 1)
	assert.True(t, failing.closed)
}

type failingReporter struct {
	closed bool
}

func (f *failingReporter) Report(*bench.Result) error {
	return assert.AnError
}

func (f *failingReporter) Close() error {
	f.closed = true

	return assert.AnError
}
