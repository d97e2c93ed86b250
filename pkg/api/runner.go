package api

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/rubiojr/fingertips/pkg/catalog"
	"github.com/rubiojr/fingertips/pkg/download"
	"github.com/rubiojr/fingertips/pkg/log"
	"github.com/rubiojr/fingertips/pkg/realtime"
	"github.com/rubiojr/fingertips/pkg/storage"
	"github.com/rubiojr/fingertips/pkg/table"
)

// ErrBusy is returned by Start while a batch is running.
var ErrBusy = errors.New("a download is already running")

// State is the progress of the current (or last) batch.
type State struct {
	Running    bool               `json:"running"`
	BatchID    string             `json:"batch_id,omitempty"`
	AreaTypeID string             `json:"area_type_id,omitempty"`
	Done       int                `json:"done"`
	Total      int                `json:"total"`
	Outcomes   []download.Outcome `json:"outcomes"`
	Report     *download.Report   `json:"report,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Runner runs at most one download batch at a time in the background.
type Runner struct {
	ctx       context.Context
	fetcher   download.Fetcher
	outputDir string
	format    table.Format
	hub       *realtime.Hub
	history   *storage.History

	mu    sync.Mutex
	state State
	wg    sync.WaitGroup
}

type RunnerOption func(*Runner)

// WithHub broadcasts progress on hub.
func WithHub(hub *realtime.Hub) RunnerOption {
	return func(r *Runner) {
		r.hub = hub
	}
}

// WithHistory records finished batches.
func WithHistory(h *storage.History) RunnerOption {
	return func(r *Runner) {
		r.history = h
	}
}

// WithFormat sets the default output format.
func WithFormat(f table.Format) RunnerOption {
	return func(r *Runner) {
		r.format = f
	}
}

// NewRunner creates a runner. Batches stop when ctx is cancelled.
func NewRunner(ctx context.Context, fetcher download.Fetcher, outputDir string, opts ...RunnerOption) *Runner {
	r := &Runner{
		ctx:       ctx,
		fetcher:   fetcher,
		outputDir: outputDir,
		format:    table.FormatCSV,
		state:     State{Outcomes: []download.Outcome{}},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Start validates sel against cat and runs the batch in the background.
// Validation errors and ErrBusy are returned before anything is fetched.
func (r *Runner) Start(cat *catalog.Catalog, sel download.Selection) error {
	if err := sel.Validate(cat); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Running {
		return ErrBusy
	}
	r.state = State{
		Running:    true,
		AreaTypeID: sel.AreaTypeID,
		Total:      len(sel.IndicatorIDs),
		Outcomes:   []download.Outcome{},
	}

	d := download.New(r.fetcher, cat, r.outputDir,
		download.WithDefaultFormat(r.format),
		download.WithObserver(r.observe),
	)
	r.wg.Add(1)
	go r.run(d, sel)
	return nil
}

func (r *Runner) run(d *download.Downloader, sel download.Selection) {
	defer r.wg.Done()
	l := log.ForService("api")

	report, err := d.Download(r.ctx, sel)

	r.mu.Lock()
	r.state.Running = false
	r.state.Report = report
	if err != nil {
		r.state.Error = err.Error()
	}
	r.mu.Unlock()

	if err != nil {
		l.Warnf("download batch stopped: %v", err)
		if r.hub != nil {
			r.hub.Broadcast(realtime.Event{Type: realtime.TypeBatchError, Message: err.Error()})
		}
	}
	if report != nil && r.history != nil {
		if err := r.history.Record(report); err != nil {
			l.Warnf("recording batch %s: %v", report.ID, err)
		}
	}
}

func (r *Runner) observe(e download.Event) {
	r.mu.Lock()
	r.state.BatchID = e.BatchID
	switch e.Type {
	case download.EventIndicatorStart:
		r.state.Done = e.Index - 1
	case download.EventIndicatorDone:
		r.state.Done = e.Index
		r.state.Outcomes = append(r.state.Outcomes, e.Outcome)
	case download.EventBatchDone:
		r.state.Done = e.Total
	}
	r.mu.Unlock()

	if r.hub != nil {
		r.hub.Broadcast(realtime.FromDownload(e))
	}
}

// Current returns a snapshot of the batch state.
func (r *Runner) Current() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.state
	s.Outcomes = slices.Clone(r.state.Outcomes)
	return s
}

// Running reports whether a batch is in flight.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Running
}

// Wait blocks until the running batch, if any, has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
