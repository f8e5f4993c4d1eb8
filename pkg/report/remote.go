package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/querylabs/querybench/pkg/bench"
	"github.com/sirupsen/logrus"
)

const (
	// remoteBufferSize bounds how many undelivered events are held before
	// new ones are dropped. Remote delivery is best-effort.
	remoteBufferSize = 64

	// remoteBatchSize is the maximum number of events per HTTP request.
	remoteBatchSize = 16

	// remoteFlushInterval is how often buffered events are shipped.
	remoteFlushInterval = 200 * time.Millisecond

	// remoteDrainTimeout bounds the wait for in-flight events on Close.
	// The process must not block indefinitely on remote sink health.
	remoteDrainTimeout = 750 * time.Millisecond

	// remoteRequestTimeout bounds a single delivery request.
	remoteRequestTimeout = 10 * time.Second
)

// RemoteConfig for the remote structured-event sink.
type RemoteConfig struct {
	// URL is the base address of the remote sink.
	URL string

	// APIKey is an optional access credential.
	APIKey string
}

// event is the envelope shipped to the remote sink: a rendered summary
// message plus the full result record as named properties.
type event struct {
	Timestamp  time.Time     `json:"timestamp"`
	Message    string        `json:"message"`
	Properties *bench.Result `json:"properties"`
}

// Remote ships results to a remote structured-event sink, fire-and-forget.
// Events are buffered and delivered in batches by a background goroutine;
// delivery failures are logged as warnings and never abort the run.
type Remote struct {
	log    logrus.FieldLogger
	cfg    *RemoteConfig
	http   *http.Client
	events chan event
	done   chan struct{}
}

// Compile-time interface check.
var _ bench.Reporter = (*Remote)(nil)

// NewRemote creates the remote reporter and starts its delivery loop.
func NewRemote(log logrus.FieldLogger, cfg *RemoteConfig) *Remote {
	r := &Remote{
		log:    log.WithField("component", "remote-reporter"),
		cfg:    cfg,
		http:   &http.Client{Timeout: remoteRequestTimeout},
		events: make(chan event, remoteBufferSize),
		done:   make(chan struct{}),
	}

	go r.deliveryLoop()

	return r
}

// Report enqueues the result for asynchronous delivery. A full buffer
// drops the event rather than blocking the benchmark.
func (r *Remote) Report(result *bench.Result) error {
	ev := event{
		Timestamp:  time.Now().UTC(),
		Message:    renderMessage(result),
		Properties: result,
	}

	select {
	case r.events <- ev:
	default:
		r.log.WithField("case_id", result.CaseID).
			Warn("Remote sink buffer full, dropping event")
	}

	return nil
}

// Close stops accepting events and waits, bounded, for the delivery loop
// to drain what is already buffered.
func (r *Remote) Close() error {
	close(r.events)

	select {
	case <-r.done:
	case <-time.After(remoteDrainTimeout):
		r.log.Warn("Remote sink drain timed out, some events may be undelivered")
	}

	return nil
}

// deliveryLoop batches buffered events and ships them until the event
// channel is closed and drained.
func (r *Remote) deliveryLoop() {
	defer close(r.done)

	ticker := time.NewTicker(remoteFlushInterval)
	defer ticker.Stop()

	batch := make([]event, 0, remoteBatchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}

		if err := r.send(batch); err != nil {
			r.log.WithError(err).Warn("Remote result delivery failed")
		}

		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-r.events:
			if !ok {
				flush()

				return
			}

			batch = append(batch, ev)
			if len(batch) >= remoteBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// send delivers one batch of events to the remote sink.
func (r *Remote) send(batch []event) error {
	body, err := json.Marshal(map[string]any{"events": batch})
	if err != nil {
		return fmt.Errorf("encoding events: %w", err)
	}

	url := strings.TrimRight(r.cfg.URL, "/") + "/api/events"

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building delivery request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if r.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", r.cfg.APIKey)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("delivering events: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("remote sink rejected delivery with status %d", resp.StatusCode)
	}

	r.log.WithField("events", len(batch)).Debug("Delivered events to remote sink")

	return nil
}
