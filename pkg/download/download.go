// Package download fetches the selected indicators for one area type,
// optionally reduces each to its latest period and its non-empty columns,
// and saves them as one file per indicator or as a single combined file.
//
// Failures are isolated per indicator: a failed fetch or save is recorded
// on the indicator's Outcome and the batch moves on.
package download

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rubiojr/fingertips/pkg/catalog"
	"github.com/rubiojr/fingertips/pkg/log"
	"github.com/rubiojr/fingertips/pkg/table"
)

const (
	colTimePeriod     = "Time period"
	colTimePeriodSort = "Time period Sortable"

	// CombinedBase is the file name, without extension, of a combined batch.
	CombinedBase = "combined_fingertips_data"
)

// Fetcher retrieves the rows of one indicator for one area type.
type Fetcher interface {
	IndicatorData(ctx context.Context, indicatorID, areaTypeID string) (*table.Table, error)
}

// Catalog is the catalog lookup the downloader needs.
type Catalog interface {
	HasAreaType(areaTypeID string) bool
	IndicatorIDs(areaTypeID string) []string
	Indicator(id string) (catalog.Indicator, bool)
}

// Event types sent to an Observer.
const (
	EventIndicatorStart = "indicator_start"
	EventIndicatorDone  = "indicator_done"
	EventBatchDone      = "batch_done"
)

// Event is a progress notification.
type Event struct {
	Type    string
	BatchID string
	Index   int // 1-based position in the selection
	Total   int
	Outcome Outcome
	Report  *Report // set on EventBatchDone
}

// Observer receives progress events. It is called synchronously from the
// goroutine running Download and must not block.
type Observer func(Event)

type Option func(*Downloader)

// WithObserver sets the progress observer.
func WithObserver(o Observer) Option {
	return func(d *Downloader) {
		d.observer = o
	}
}

// WithDefaultFormat sets the format used when a selection names none.
func WithDefaultFormat(f table.Format) Option {
	return func(d *Downloader) {
		d.format = f
	}
}

type Downloader struct {
	fetcher   Fetcher
	catalog   Catalog
	outputDir string
	format    table.Format
	observer  Observer
	log       *log.Logger
}

func New(fetcher Fetcher, cat Catalog, outputDir string, opts ...Option) *Downloader {
	d := &Downloader{
		fetcher:   fetcher,
		catalog:   cat,
		outputDir: outputDir,
		format:    table.FormatCSV,
		log:       log.ForService("download"),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// OutputDir returns the directory files are written to.
func (d *Downloader) OutputDir() string {
	return d.outputDir
}

// FileName returns the output file name of one indicator.
func FileName(name, indicatorID, areaTypeID string, format table.Format) string {
	frag := catalog.FileFragment(name)
	if frag == "" {
		frag = "indicator"
	}
	return fmt.Sprintf("%s_%s_area_%s.%s", frag, indicatorID, areaTypeID, format.Ext())
}

// Download runs a batch. Only selection problems and cancellation are
// returned as errors; everything else ends up in the report.
func (d *Downloader) Download(ctx context.Context, sel Selection) (*Report, error) {
	if err := sel.Validate(d.catalog); err != nil {
		return nil, err
	}
	format := d.format
	if sel.Options.Format != "" {
		format, _ = table.ParseFormat(string(sel.Options.Format))
	}
	sel.Options.Format = format

	report := &Report{
		ID:         uuid.NewString(),
		AreaTypeID: sel.AreaTypeID,
		Options:    sel.Options,
		Outcomes:   make([]Outcome, 0, len(sel.IndicatorIDs)),
		StartedAt:  time.Now().UTC(),
	}
	d.log.Infof("batch %s: %d indicators for area type %s", report.ID, len(sel.IndicatorIDs), sel.AreaTypeID)

	var kept []*table.Table
	total := len(sel.IndicatorIDs)
	for i, id := range sel.IndicatorIDs {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = time.Now().UTC()
			return report, err
		}

		name := id
		if d.catalog != nil {
			if ind, ok := d.catalog.Indicator(id); ok {
				name = ind.Name
			}
		}
		d.emit(Event{Type: EventIndicatorStart, BatchID: report.ID, Index: i + 1, Total: total,
			Outcome: Outcome{IndicatorID: id, Name: name}})

		out, t := d.process(ctx, id, name, sel, format)
		if t != nil {
			kept = append(kept, t)
		}
		report.Outcomes = append(report.Outcomes, out)
		d.emit(Event{Type: EventIndicatorDone, BatchID: report.ID, Index: i + 1, Total: total, Outcome: out})
	}

	if sel.Options.Combine && len(kept) > 0 {
		d.writeCombined(report, kept, sel.Options, format)
	}

	report.FinishedAt = time.Now().UTC()
	d.log.Infof("batch %s finished in %s: %d saved, %d empty, %d failed",
		report.ID, report.Duration().Round(time.Millisecond),
		report.Count(StatusSaved)+report.Count(StatusKept), report.Count(StatusEmpty), report.Count(StatusFailed))
	d.emit(Event{Type: EventBatchDone, BatchID: report.ID, Total: total, Report: report})
	return report, nil
}

// process handles one indicator. The returned table is non-nil only when
// the rows are held back for the combined file.
func (d *Downloader) process(ctx context.Context, id, name string, sel Selection, format table.Format) (Outcome, *table.Table) {
	out := Outcome{IndicatorID: id, Name: name}
	fail := func(op string, err error) (Outcome, *table.Table) {
		err = &IndicatorError{ID: id, Op: op, Err: err}
		d.log.Warnf("%v", err)
		out.Status = StatusFailed
		out.Error = err.Error()
		out.err = err
		return out, nil
	}

	t, err := d.fetcher.IndicatorData(ctx, id, sel.AreaTypeID)
	if err != nil {
		return fail("fetch", err)
	}
	if t.Empty() {
		d.log.Infof("no data for indicator %s in area type %s", id, sel.AreaTypeID)
		out.Status = StatusEmpty
		return out, nil
	}

	if sel.Options.KeepLatest {
		col := colTimePeriodSort
		if !t.HasColumn(col) {
			col = colTimePeriod
		}
		latest, period, err := t.KeepLatest(col)
		if err != nil {
			return fail("keep latest", err)
		}
		t = latest
		if period != "" && t.Len() > 0 {
			out.LatestPeriod = t.Value(0, colTimePeriod)
			if out.LatestPeriod == "" {
				out.LatestPeriod = period
			}
		}
		d.log.Infof("latest period for %s is %s", id, out.LatestPeriod)
	}
	out.Rows = t.Len()

	if sel.Options.Combine {
		out.Status = StatusKept
		return out, t
	}

	if sel.Options.DropEmptyColumns {
		t = t.DropEmptyColumns()
	}
	path := filepath.Join(d.outputDir, FileName(name, id, sel.AreaTypeID, format))
	if err := table.WriteFile(path, t, format); err != nil {
		return fail("save", err)
	}
	d.log.Infof("saved %d rows for indicator %s to %s", t.Len(), id, path)
	out.Status = StatusSaved
	out.Path = path
	return out, nil
}

func (d *Downloader) writeCombined(report *Report, kept []*table.Table, opts Options, format table.Format) {
	combined := table.Concat(kept...)
	if opts.DropEmptyColumns {
		combined = combined.DropEmptyColumns()
	}
	path := filepath.Join(d.outputDir, CombinedBase+"."+format.Ext())
	if err := table.WriteFile(path, combined, format); err != nil {
		d.log.Warnf("saving combined file: %v", err)
		report.CombinedError = fmt.Sprintf("saving combined file: %v", err)
		return
	}
	d.log.Infof("saved %d combined rows to %s", combined.Len(), path)
	report.CombinedPath = path
	report.CombinedRows = combined.Len()
}

func (d *Downloader) emit(e Event) {
	if d.observer != nil {
		d.observer(e)
	}
}
