package aggregate

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/joelkehle/entitymatch/internal/tabular"
)

func TestParseFacts(t *testing.T) {
	tbl := tabular.New("assignee", "application_year", "inventors", "inventor_name1", "inventor_name2")
	tbl.Append("Acme Corp", "1995", "3", "kim", "lee")
	tbl.Append("Beta Inc", "1996.0", "", "park", "")
	tbl.Append("", "1995", "", "", "")          // blank assignee skipped
	tbl.Append("Gamma LLC", "n/a", "", "", "")  // bad year skipped
	tbl.Append("Delta Co", "1997", "x", "", "") // bad declared count ignored

	facts, err := ParseFacts(tbl)
	if err != nil {
		t.Fatalf("ParseFacts: %v", err)
	}
	want := []FactRecord{
		{RawName: "Acme Corp", Year: 1995, DeclaredInventors: 3, InventorNames: []string{"kim", "lee"}},
		{RawName: "Beta Inc", Year: 1996, InventorNames: []string{"park"}},
		{RawName: "Delta Co", Year: 1997},
	}
	if !reflect.DeepEqual(facts, want) {
		t.Fatalf("facts:\n%v\nwant:\n%v", facts, want)
	}
}

func TestParseFactsRequiresSchema(t *testing.T) {
	tbl := tabular.New("assignee")
	_, err := ParseFacts(tbl)
	if err == nil {
		t.Fatal("missing application_year accepted")
	}
	var schemaErr *tabular.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("error type %T, want *tabular.SchemaError", err)
	}
}

func TestExportTableWideLayout(t *testing.T) {
	dict := testDictionary(t)
	facts := []FactRecord{
		{RawName: "Acme Corp", Year: 1995, InventorNames: []string{"kim", "lee"}},
		{RawName: "ACME INC", Year: 1996, InventorNames: []string{"lee"}},
		{RawName: "Beta Industries Inc", Year: 1995, DeclaredInventors: 4},
	}
	result := Aggregate(context.Background(), dict, facts)
	tbl := ExportTable(result, dict)

	wantCols := []string{
		"acquiror_name", "entity_id",
		"patent_1995", "patent_1996",
		"patent_inventor_1995", "patent_inventor_1996",
		"patent_name", "patent_name_1",
	}
	if !reflect.DeepEqual(tbl.Columns, wantCols) {
		t.Fatalf("columns:\n%v\nwant:\n%v", tbl.Columns, wantCols)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(tbl.Rows))
	}

	// Entities come out in ID order, so Acme (E1) leads.
	if got := tbl.Cell(0, "acquiror_name"); got != "Acme" {
		t.Errorf("row 0 name %q", got)
	}
	if got := tbl.Cell(0, "patent_1995"); got != "1" {
		t.Errorf("acme patent_1995 = %q", got)
	}
	if got := tbl.Cell(0, "patent_inventor_1995"); got != "2" {
		t.Errorf("acme patent_inventor_1995 = %q", got)
	}
	if got := tbl.Cell(0, "patent_name"); got != "ACME INC" {
		t.Errorf("acme patent_name = %q", got)
	}
	if got := tbl.Cell(0, "patent_name_1"); got != "Acme Corp" {
		t.Errorf("acme patent_name_1 = %q", got)
	}

	// Years an entity never filed in render as zero, not blank.
	if got := tbl.Cell(1, "patent_1996"); got != "0" {
		t.Errorf("beta patent_1996 = %q", got)
	}
	// Beta has one alias; its second alias column pads empty.
	if got := tbl.Cell(1, "patent_name_1"); got != "" {
		t.Errorf("beta patent_name_1 = %q", got)
	}
}

func TestUnmatchedTable(t *testing.T) {
	result := Result{Unmatched: []UnmatchedName{
		{RawName: "Unknown Widgets", Count: 2},
		{RawName: "Mystery Metals", Count: 1},
	}}
	tbl := UnmatchedTable(result)
	if len(tbl.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(tbl.Rows))
	}
	if tbl.Cell(0, "raw_name") != "Unknown Widgets" || tbl.Cell(0, "fact_count") != "2" {
		t.Fatalf("row 0 = %v", tbl.Rows[0])
	}
}

func TestParseYear(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"1995", 1995, false},
		{" 1995 ", 1995, false},
		{"1995.0", 1995, false},
		{"", 0, true},
		{"abc", 0, true},
	}
	for _, tc := range cases {
		got, err := parseYear(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseYear(%q) err = %v", tc.in, err)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("parseYear(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
