package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rubiojr/fingertips/pkg/fingertips"
)

func sampleAvailability() []fingertips.Availability {
	return []fingertips.Availability{
		{IndicatorID: "93553", AreaTypeID: "7"},
		{IndicatorID: "1679", AreaTypeID: "7"},
		{IndicatorID: "1679", AreaTypeID: "102"},
		{IndicatorID: "555", AreaTypeID: "7"},
		{IndicatorID: "92588", AreaTypeID: "7"},
	}
}

func sampleMetadata() map[string]fingertips.IndicatorMetadata {
	return map[string]fingertips.IndicatorMetadata{
		"93553": {ID: "93553", Name: "Diabetes: % achieving target/goal", DataSource: "<p>QOF. Published yearly</p>"},
		"1679":  {ID: "1679", Name: "Asthma prevalence", DataSource: "QOF"},
		"92588": {ID: "92588", Name: "Alcohol admissions", DataSource: ""},
	}
}

func sampleAreaTypes() []fingertips.AreaType {
	return []fingertips.AreaType{
		{ID: "7", Name: "General Practice", Short: "GPs"},
		{ID: "102", Name: "Counties and Unitary Authorities", Short: "Upper tier LAs"},
		{ID: "999", Name: "Unused", Short: "Unused"},
	}
}

func sampleCatalog() *Catalog {
	return Build(sampleAvailability(), sampleMetadata(), sampleAreaTypes())
}

func TestBuildDropsIndicatorsWithoutMetadata(t *testing.T) {
	c := sampleCatalog()

	if _, ok := c.Indicator("555"); ok {
		t.Fatal("expected indicator 555 without metadata to be dropped")
	}
	var ids []string
	for _, ind := range c.Indicators() {
		ids = append(ids, ind.ID)
	}
	want := []string{"93553", "1679", "92588"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("expected indicators %v, got %v", want, ids)
	}

	ind, _ := c.Indicator("1679")
	if !reflect.DeepEqual(ind.AreaTypes, []string{"7", "102"}) {
		t.Errorf("expected area types [7 102], got %v", ind.AreaTypes)
	}
	if got := c.IndicatorIDs("7"); !reflect.DeepEqual(got, []string{"93553", "1679", "92588"}) {
		t.Errorf("unexpected index for area 7: %v", got)
	}
}

func TestSelectableAreaTypesSkipsEmpty(t *testing.T) {
	c := sampleCatalog()

	var labels []string
	for _, at := range c.SelectableAreaTypes() {
		labels = append(labels, at.Label())
	}
	want := []string{"GPs", "Upper tier LAs"}
	if !reflect.DeepEqual(labels, want) {
		t.Fatalf("expected %v, got %v", want, labels)
	}
	if c.HasAreaType("999") {
		t.Error("area type without indicators must not be selectable")
	}
	if len(c.AreaTypes()) != 3 {
		t.Errorf("expected all 3 area types to be kept, got %d", len(c.AreaTypes()))
	}
}

func TestGroups(t *testing.T) {
	c := sampleCatalog()

	groups := c.Groups("7")
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Source != "QOF" || groups[1].Source != UnknownSource {
		t.Fatalf("unexpected group order: %q, %q", groups[0].Source, groups[1].Source)
	}

	var names []string
	for _, ind := range groups[0].Indicators {
		names = append(names, CleanName(ind.Name))
	}
	want := []string{"Asthma prevalence", "Diabetes percent achieving targetgoal"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("expected %v, got %v", want, names)
	}

	again := c.Groups("7")
	if !reflect.DeepEqual(groups, again) {
		t.Error("expected grouping to be deterministic")
	}
	if len(c.Groups("999")) != 0 {
		t.Error("expected no groups for an area type without indicators")
	}
}

func TestGroupsTieBreaksOnID(t *testing.T) {
	c := New([]Indicator{
		{ID: "20", AreaTypes: []string{"7"}, Name: "Same", DataSource: "S"},
		{ID: "3", AreaTypes: []string{"7"}, Name: "Same", DataSource: "S"},
	}, nil)

	g := c.Groups("7")
	if g[0].Indicators[0].ID != "3" || g[0].Indicators[1].ID != "20" {
		t.Fatalf("expected numeric id order 3, 20; got %s, %s", g[0].Indicators[0].ID, g[0].Indicators[1].ID)
	}
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Diabetes: % achieving target/goal", "Diabetes percent achieving targetgoal"},
		{"  Obesity   prevalence ", "Obesity prevalence"},
		{`a<b>c"d|e?f*g\h`, "abcdefgh"},
	}
	for _, tt := range tests {
		if got := CleanName(tt.in); got != tt.want {
			t.Errorf("CleanName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFileFragment(t *testing.T) {
	if got := FileFragment("Diabetes: % achieving target/goal"); got != "Diabetes_percent_achieving_targetgoal" {
		t.Fatalf("unexpected fragment %q", got)
	}
}

func TestCleanDataSource(t *testing.T) {
	long := strings.Repeat("x", 200)
	tests := []struct {
		name, in, want string
	}{
		{"empty", "", UnknownSource},
		{"markup", "<p>Quality and Outcomes Framework. More text</p>", "Quality and Outcomes Framework"},
		{"first line", "NHS Digital\nsecond line", "NHS Digital"},
		{"entities", "ONS &amp; PHE", "ONS & PHE"},
		{"markup only", "<br/>", UnknownSource},
		{"truncated", long, strings.Repeat("x", 125) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanDataSource(tt.in); got != tt.want {
				t.Errorf("CleanDataSource(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "helpers"))
	if store.Exists() {
		t.Fatal("expected empty store")
	}
	if _, err := store.Load(); !errors.Is(err, ErrNoHelpers) {
		t.Fatalf("expected ErrNoHelpers, got %v", err)
	}

	c := sampleCatalog()
	if err := store.Save(c); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	for _, f := range []string{IndicatorsFile, AreasFile, AreasCSVFile, IndexFile} {
		if _, err := os.Stat(filepath.Join(store.Dir(), f)); err != nil {
			t.Errorf("expected %s to exist: %v", f, err)
		}
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(loaded.Indicators(), c.Indicators()) {
		t.Errorf("indicators differ after round trip")
	}
	if !reflect.DeepEqual(loaded.Index(), c.Index()) {
		t.Errorf("index differs after round trip: %v vs %v", loaded.Index(), c.Index())
	}
	if !reflect.DeepEqual(loaded.Groups("7"), c.Groups("7")) {
		t.Errorf("groups differ after round trip")
	}
}

func TestStoreLoadFiltersUnknownIndexEntries(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Save(sampleCatalog()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data := `{"7":["1679","404"],"50":["404"]}`
	if err := os.WriteFile(filepath.Join(store.Dir(), IndexFile), []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := c.IndicatorIDs("7"); !reflect.DeepEqual(got, []string{"1679"}) {
		t.Errorf("expected [1679], got %v", got)
	}
	if c.HasAreaType("50") {
		t.Error("expected area type with only unknown indicators to be dropped")
	}
}

type fakeSource struct {
	err error
}

func (f fakeSource) AvailableData(context.Context) ([]fingertips.Availability, error) {
	return sampleAvailability(), f.err
}

func (f fakeSource) IndicatorMetadata(context.Context) (map[string]fingertips.IndicatorMetadata, error) {
	return sampleMetadata(), nil
}

func (f fakeSource) AreaTypes(context.Context) ([]fingertips.AreaType, error) {
	return sampleAreaTypes(), nil
}

func TestRefresh(t *testing.T) {
	store := NewStore(t.TempDir())

	c, err := Refresh(context.Background(), fakeSource{}, store)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(c.Indicators()) != 3 {
		t.Errorf("expected 3 indicators, got %d", len(c.Indicators()))
	}
	if !store.Exists() {
		t.Error("expected helper files to be written")
	}

	boom := errors.New("boom")
	if _, err := Refresh(context.Background(), fakeSource{err: boom}, NewStore(t.TempDir())); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestWatchReloadsOnChange(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Save(New(nil, nil)); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *Catalog, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, store, func(c *Catalog) { changed <- c })
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	if err := store.Save(sampleCatalog()); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-changed:
		if len(c.Indicators()) != 3 {
			t.Errorf("expected reloaded catalog with 3 indicators, got %d", len(c.Indicators()))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch returned error: %v", err)
	}
}
