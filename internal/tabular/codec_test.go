package tabular

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func sampleTable() *Table {
	tbl := New("assignee", "application_year", "note")
	tbl.Append("Acme Corp", "1995", "comma, inside")
	tbl.Append("Nestlé S.A.", "1996", `quoted "text"`)
	return tbl
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facts.csv")
	if err := Write(path, sampleTable()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := sampleTable()
	if !reflect.DeepEqual(got.Columns, want.Columns) {
		t.Fatalf("columns = %v, want %v", got.Columns, want.Columns)
	}
	if !reflect.DeepEqual(got.Rows, want.Rows) {
		t.Fatalf("rows = %v, want %v", got.Rows, want.Rows)
	}
	if got.Source != "facts.csv" {
		t.Errorf("source = %q", got.Source)
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facts.xlsx")
	if err := Write(path, sampleTable()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := sampleTable()
	if !reflect.DeepEqual(got.Columns, want.Columns) {
		t.Fatalf("columns = %v, want %v", got.Columns, want.Columns)
	}
	if !reflect.DeepEqual(got.Rows, want.Rows) {
		t.Fatalf("rows = %v, want %v", got.Rows, want.Rows)
	}
}

func TestReadDispatchIsCaseInsensitive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "FACTS.XLSX")
	if err := Write(path, sampleTable()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := Read(path); err != nil {
		t.Fatalf("Read: %v", err)
	}
}

func TestReadCSVToleratesRaggedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragged.csv")
	data := "a,b,c\n1,2\n3,4,5,6\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	tbl, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("got %d rows", len(tbl.Rows))
	}
	if got := tbl.Cell(0, "c"); got != "" {
		t.Errorf("short row cell = %q", got)
	}
	if got := tbl.Cell(1, "c"); got != "5" {
		t.Errorf("long row cell = %q", got)
	}
}

func TestReadCSVEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	tbl, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(tbl.Columns) != 0 || len(tbl.Rows) != 0 {
		t.Fatalf("empty file produced %v / %v", tbl.Columns, tbl.Rows)
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatal("missing file read without error")
	}
}
