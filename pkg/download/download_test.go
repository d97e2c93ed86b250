package download

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/rubiojr/fingertips/pkg/catalog"
	"github.com/rubiojr/fingertips/pkg/table"
)

var rawHeader = []string{"Indicator ID", "Area Code", "Time period", "Time period Sortable", "Value", "Count", "Denominator"}

type fakeFetcher struct {
	mu     sync.Mutex
	tables map[string]*table.Table
	errs   map[string]error
	calls  []string
}

func (f *fakeFetcher) IndicatorData(_ context.Context, id, areaType string) (*table.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id+"@"+areaType)
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	if t, ok := f.tables[id]; ok {
		return t, nil
	}
	return table.New(rawHeader), nil
}

func rows(id string, periods ...string) *table.Table {
	t := table.New(rawHeader)
	for i, p := range periods {
		t.Append([]string{id, "A" + string(rune('0'+i)), p + "/" + p, p + "0000", "1.5", "", ""})
	}
	return t
}

func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Indicator{
		{ID: "1", AreaTypes: []string{"7"}, Name: "Diabetes: % achieving target/goal", DataSource: "QOF"},
		{ID: "2", AreaTypes: []string{"7"}, Name: "Asthma prevalence", DataSource: "QOF"},
		{ID: "3", AreaTypes: []string{"7"}, Name: "Smoking", DataSource: ""},
	}, []catalog.AreaType{{ID: "7", Name: "General Practice", Short: "GPs"}})
}

func TestValidationMakesNoCalls(t *testing.T) {
	tests := []struct {
		name string
		sel  Selection
		want error
	}{
		{"no area type", Selection{IndicatorIDs: []string{"1"}}, ErrNoAreaType},
		{"no indicators", Selection{AreaTypeID: "7"}, ErrNoIndicators},
		{"unknown area type", Selection{AreaTypeID: "99", IndicatorIDs: []string{"1"}}, ErrUnknownAreaType},
		{"unknown indicator", Selection{AreaTypeID: "7", IndicatorIDs: []string{"404"}}, ErrUnknownIndicator},
		{"bad format", Selection{AreaTypeID: "7", IndicatorIDs: []string{"1"}, Options: Options{Format: "pdf"}}, ErrBadFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{}
			d := New(f, testCatalog(), t.TempDir())

			_, err := d.Download(context.Background(), tt.sel)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !IsValidation(err) {
				t.Errorf("expected a validation error")
			}
			if len(f.calls) != 0 {
				t.Errorf("expected no fetches, got %v", f.calls)
			}
		})
	}
}

func TestDownloadSeparateFiles(t *testing.T) {
	dir := t.TempDir()
	f := &fakeFetcher{tables: map[string]*table.Table{
		"1": rows("1", "2019", "2020"),
		"2": rows("2", "2021"),
	}}
	d := New(f, testCatalog(), dir)

	report, err := d.Download(context.Background(), Selection{AreaTypeID: "7", IndicatorIDs: []string{"1", "2"}})
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if report.ID == "" {
		t.Error("expected a batch id")
	}
	if !reflect.DeepEqual(f.calls, []string{"1@7", "2@7"}) {
		t.Errorf("unexpected fetch order %v", f.calls)
	}

	want := filepath.Join(dir, "Diabetes_percent_achieving_targetgoal_1_area_7.csv")
	if report.Outcomes[0].Path != want {
		t.Fatalf("expected path %s, got %s", want, report.Outcomes[0].Path)
	}
	got, err := table.ReadCSVFile(want)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if got.Len() != 2 {
		t.Errorf("expected 2 rows without keep_latest, got %d", got.Len())
	}
	if !reflect.DeepEqual(got.Header, rawHeader) {
		t.Errorf("expected all columns kept, got %v", got.Header)
	}
}

func TestDownloadKeepLatest(t *testing.T) {
	dir := t.TempDir()
	f := &fakeFetcher{tables: map[string]*table.Table{
		"1": rows("1", "2018", "2020", "2019", "2020"),
	}}
	d := New(f, testCatalog(), dir)

	report, err := d.Download(context.Background(), Selection{
		AreaTypeID:   "7",
		IndicatorIDs: []string{"1"},
		Options:      Options{KeepLatest: true},
	})
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	out := report.Outcomes[0]
	if out.Rows != 2 {
		t.Errorf("expected both 2020 rows, got %d", out.Rows)
	}
	if out.LatestPeriod != "2020/2020" {
		t.Errorf("expected latest period 2020/2020, got %q", out.LatestPeriod)
	}

	got, err := table.ReadCSVFile(out.Path)
	if err != nil {
		t.Fatal(err)
	}
	for i := range got.Rows {
		if v := got.Value(i, "Time period Sortable"); v != "20200000" {
			t.Errorf("row %d has period %s", i, v)
		}
	}
}

func TestDownloadDropEmptyColumns(t *testing.T) {
	dir := t.TempDir()
	f := &fakeFetcher{tables: map[string]*table.Table{"1": rows("1", "2020")}}
	d := New(f, testCatalog(), dir)

	report, err := d.Download(context.Background(), Selection{
		AreaTypeID:   "7",
		IndicatorIDs: []string{"1"},
		Options:      Options{DropEmptyColumns: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := table.ReadCSVFile(report.Outcomes[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	if got.HasColumn("Count") || got.HasColumn("Denominator") {
		t.Errorf("expected empty columns dropped, got %v", got.Header)
	}
	if !got.HasColumn("Value") {
		t.Errorf("expected Value to be kept, got %v", got.Header)
	}
}

func TestDownloadCombine(t *testing.T) {
	dir := t.TempDir()
	other := table.New([]string{"Indicator ID", "Area Code", "Extra"})
	other.Append([]string{"2", "B1", "x"})
	f := &fakeFetcher{tables: map[string]*table.Table{
		"1": rows("1", "2020"),
		"2": other,
	}}
	d := New(f, testCatalog(), dir)

	report, err := d.Download(context.Background(), Selection{
		AreaTypeID:   "7",
		IndicatorIDs: []string{"1", "3", "2"},
		Options:      Options{Combine: true, DropEmptyColumns: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.Outcomes[1].Status != StatusEmpty {
		t.Errorf("expected indicator 3 to be empty, got %s", report.Outcomes[1].Status)
	}
	if report.Outcomes[0].Path != "" {
		t.Error("expected no per-indicator file when combining")
	}
	if report.CombinedPath != filepath.Join(dir, "combined_fingertips_data.csv") {
		t.Fatalf("unexpected combined path %q", report.CombinedPath)
	}

	got, err := table.ReadCSVFile(report.CombinedPath)
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 2 {
		t.Fatalf("expected 2 combined rows, got %d", got.Len())
	}
	wantHeader := []string{"Indicator ID", "Area Code", "Time period", "Time period Sortable", "Value", "Extra"}
	if !reflect.DeepEqual(got.Header, wantHeader) {
		t.Errorf("expected header %v, got %v", wantHeader, got.Header)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the combined file, found %d files", len(entries))
	}
}

func TestDownloadCombineNothingKept(t *testing.T) {
	dir := t.TempDir()
	d := New(&fakeFetcher{}, testCatalog(), dir)

	report, err := d.Download(context.Background(), Selection{
		AreaTypeID:   "7",
		IndicatorIDs: []string{"1"},
		Options:      Options{Combine: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.CombinedPath != "" {
		t.Error("expected no combined file when every indicator is empty")
	}
}

func TestDownloadIsolatesFailures(t *testing.T) {
	boom := errors.New("connection reset")
	f := &fakeFetcher{
		tables: map[string]*table.Table{"2": rows("2", "2020")},
		errs:   map[string]error{"1": boom},
	}
	var events []string
	d := New(f, testCatalog(), t.TempDir(), WithObserver(func(e Event) {
		events = append(events, e.Type)
	}))

	report, err := d.Download(context.Background(), Selection{AreaTypeID: "7", IndicatorIDs: []string{"1", "2"}})
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	first := report.Outcomes[0]
	if first.Status != StatusFailed {
		t.Fatalf("expected indicator 1 to fail, got %s", first.Status)
	}
	if !errors.Is(first.Err(), boom) {
		t.Errorf("expected wrapped fetch error, got %v", first.Err())
	}
	var ie *IndicatorError
	if !errors.As(first.Err(), &ie) || ie.ID != "1" {
		t.Errorf("expected IndicatorError for 1, got %v", first.Err())
	}
	if report.Outcomes[1].Status != StatusSaved {
		t.Errorf("expected indicator 2 saved, got %s", report.Outcomes[1].Status)
	}
	if !report.Failed() {
		t.Error("expected report to be marked failed")
	}

	wantEvents := []string{
		EventIndicatorStart, EventIndicatorDone,
		EventIndicatorStart, EventIndicatorDone,
		EventBatchDone,
	}
	if !reflect.DeepEqual(events, wantEvents) {
		t.Errorf("expected events %v, got %v", wantEvents, events)
	}
}

func TestDownloadSaveFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	f := &fakeFetcher{tables: map[string]*table.Table{
		"1": rows("1", "2020"),
		"2": rows("2", "2020"),
	}}
	d := New(f, testCatalog(), filepath.Join(blocker, "out"))

	report, err := d.Download(context.Background(), Selection{AreaTypeID: "7", IndicatorIDs: []string{"1", "2"}})
	if err != nil {
		t.Fatal(err)
	}
	for _, o := range report.Outcomes {
		if o.Status != StatusFailed {
			t.Errorf("expected save failure for %s, got %s", o.IndicatorID, o.Status)
		}
	}
	if len(f.calls) != 2 {
		t.Errorf("expected the batch to continue after a save failure, got %d calls", len(f.calls))
	}
}

func TestDownloadXLSX(t *testing.T) {
	dir := t.TempDir()
	f := &fakeFetcher{tables: map[string]*table.Table{"2": rows("2", "2020")}}
	d := New(f, testCatalog(), dir, WithDefaultFormat(table.FormatXLSX))

	report, err := d.Download(context.Background(), Selection{AreaTypeID: "7", IndicatorIDs: []string{"2"}})
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "Asthma_prevalence_2_area_7.xlsx")
	if report.Outcomes[0].Path != want {
		t.Fatalf("expected %s, got %s", want, report.Outcomes[0].Path)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("expected xlsx file: %v", err)
	}
}

func TestDownloadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakeFetcher{}
	d := New(f, testCatalog(), t.TempDir())

	_, err := d.Download(ctx, Selection{AreaTypeID: "7", IndicatorIDs: []string{"1"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(f.calls) != 0 {
		t.Errorf("expected no fetches after cancellation")
	}
}

func TestWithAreaTypeResetsIndicators(t *testing.T) {
	sel := Selection{AreaTypeID: "7", IndicatorIDs: []string{"1", "2"}}

	if same := sel.WithAreaType("7"); len(same.IndicatorIDs) != 2 {
		t.Error("expected choices kept for the same area type")
	}
	if next := sel.WithAreaType("102"); next.AreaTypeID != "102" || len(next.IndicatorIDs) != 0 {
		t.Errorf("expected choices reset, got %+v", next)
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("  ", "5", "7", table.FormatCSV); got != "indicator_5_area_7.csv" {
		t.Errorf("unexpected name %q", got)
	}
}
