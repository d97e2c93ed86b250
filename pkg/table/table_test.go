package table

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestDropEmptyColumns(t *testing.T) {
	tbl := New([]string{"Area Code", "Value_X", "Denominator_X", "Count_X"})
	tbl.Append([]string{"A1", "10", "", ""})
	tbl.Append([]string{"A2", "", "  ", "3"})

	got := tbl.DropEmptyColumns()

	want := []string{"Area Code", "Value_X", "Count_X"}
	if !reflect.DeepEqual(got.Header, want) {
		t.Fatalf("expected header %v, got %v", want, got.Header)
	}
	if got.Rows[1][2] != "3" {
		t.Errorf("expected Count_X of second row to be 3, got %q", got.Rows[1][2])
	}
}

func TestDropEmptyColumnsKeepsPinned(t *testing.T) {
	tbl := New([]string{"Area Code", "Area Name", "Value_X"})

	got := tbl.DropEmptyColumns("Area Code", "Area Name")

	want := []string{"Area Code", "Area Name"}
	if !reflect.DeepEqual(got.Header, want) {
		t.Fatalf("expected header %v, got %v", want, got.Header)
	}
}

func TestKeepLatest(t *testing.T) {
	tbl := New([]string{"Indicator ID", "Time period", "Time period Sortable"})
	tbl.Append([]string{"1", "2018", "20180000"})
	tbl.Append([]string{"1", "2020", "20200000"})
	tbl.Append([]string{"1", "2019", "20190000"})
	tbl.Append([]string{"1", "2020", "20200000"})

	got, max, err := tbl.KeepLatest("Time period Sortable")
	if err != nil {
		t.Fatalf("KeepLatest failed: %v", err)
	}
	if max != "20200000" {
		t.Errorf("expected max 20200000, got %q", max)
	}
	if got.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", got.Len())
	}
	for i := range got.Rows {
		if got.Value(i, "Time period") != "2020" {
			t.Errorf("row %d: expected period 2020, got %q", i, got.Value(i, "Time period"))
		}
	}
}

func TestKeepLatestMissingColumn(t *testing.T) {
	tbl := New([]string{"Value"})
	_, _, err := tbl.KeepLatest("Time period Sortable")
	if !errors.Is(err, ErrNoColumn) {
		t.Fatalf("expected ErrNoColumn, got %v", err)
	}
}

func TestComparePeriods(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"2019", "2020", -1},
		{"900", "1000", -1},
		{"2021", "2021", 0},
		{"2020/21", "2019/20", 1},
		{"b", "a", 1},
	}
	for _, tt := range tests {
		if got := ComparePeriods(tt.a, tt.b); got != tt.want {
			t.Errorf("ComparePeriods(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestConcatUnionsHeaders(t *testing.T) {
	a := New([]string{"Indicator ID", "Value"})
	a.Append([]string{"1", "10"})
	b := New([]string{"Indicator ID", "Category", "Value"})
	b.Append([]string{"2", "Male", "20"})

	got := Concat(a, nil, b)

	wantHeader := []string{"Indicator ID", "Value", "Category"}
	if !reflect.DeepEqual(got.Header, wantHeader) {
		t.Fatalf("expected header %v, got %v", wantHeader, got.Header)
	}
	wantRows := [][]string{{"1", "10", ""}, {"2", "20", "Male"}}
	if !reflect.DeepEqual(got.Rows, wantRows) {
		t.Fatalf("expected rows %v, got %v", wantRows, got.Rows)
	}
}

func TestReadCSV(t *testing.T) {
	input := "\ufeffArea Code,Area Name,Value\nE1,\"Leeds, West\",3\nE2,Bradford\n"

	tbl, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if tbl.Header[0] != "Area Code" {
		t.Errorf("expected BOM to be stripped, got %q", tbl.Header[0])
	}
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.Len())
	}
	if tbl.Value(0, "Area Name") != "Leeds, West" {
		t.Errorf("unexpected area name %q", tbl.Value(0, "Area Name"))
	}
	if len(tbl.Rows[1]) != 3 {
		t.Errorf("expected short row to be padded, got %v", tbl.Rows[1])
	}
}

func TestReadCSVEmpty(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if !tbl.Empty() || len(tbl.Header) != 0 {
		t.Fatalf("expected empty table, got %+v", tbl)
	}
}

func TestWriteCSV(t *testing.T) {
	tbl := New([]string{"A", "B"})
	tbl.Append([]string{"1", "x,y"})

	var buf bytes.Buffer
	if err := WriteCSV(&buf, tbl); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	want := "A,B\n1,\"x,y\"\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestWriteFileXLSX(t *testing.T) {
	tbl := New([]string{"Area Code", "Value"})
	tbl.Append([]string{"00A", "1.5"})

	path := filepath.Join(t.TempDir(), "out", "data.xlsx")
	if err := WriteFile(path, tbl, FormatXLSX); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer func() {
		_ = f.Close()
	}()

	v, err := f.GetCellValue(xlsxSheet, "A2")
	if err != nil {
		t.Fatalf("reading cell: %v", err)
	}
	if v != "00A" {
		t.Errorf("expected A2 to be 00A, got %q", v)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatCSV {
		t.Errorf("expected csv default, got %q, %v", f, err)
	}
	if f, err := ParseFormat("XLSX"); err != nil || f != FormatXLSX {
		t.Errorf("expected xlsx, got %q, %v", f, err)
	}
	if _, err := ParseFormat("parquet"); err == nil {
		t.Error("expected error for unsupported format")
	}
}
