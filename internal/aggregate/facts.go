package aggregate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/joelkehle/entitymatch/internal/dictionary"
	"github.com/joelkehle/entitymatch/internal/tabular"
)

// Patent fact file schema. The inventor name columns are numbered
// inventor_name1..inventor_nameN; files that predate the wider layout
// simply have fewer of them.
const (
	ColAssignee        = "assignee"
	ColApplicationYear = "application_year"
	ColInventors       = "inventors"
	inventorNamePrefix = "inventor_name"
)

// ParseFacts reads patent fact records from a table. The assignee and year
// columns are required; rows with a blank assignee or an unparseable year
// are skipped, matching how the source files mix complete and partial rows.
func ParseFacts(t *tabular.Table) ([]FactRecord, error) {
	if err := t.Require(ColAssignee, ColApplicationYear); err != nil {
		return nil, err
	}

	var inventorCols []string
	for _, col := range t.Columns {
		if strings.HasPrefix(col, inventorNamePrefix) {
			inventorCols = append(inventorCols, col)
		}
	}

	var facts []FactRecord
	for i := range t.Rows {
		raw := strings.TrimSpace(t.Cell(i, ColAssignee))
		if raw == "" {
			continue
		}
		year, err := parseYear(t.Cell(i, ColApplicationYear))
		if err != nil {
			continue
		}

		fact := FactRecord{RawName: raw, Year: year}
		if declared := strings.TrimSpace(t.Cell(i, ColInventors)); declared != "" {
			if n, err := strconv.Atoi(declared); err == nil && n > 0 {
				fact.DeclaredInventors = n
			}
		}
		for _, col := range inventorCols {
			if name := strings.TrimSpace(t.Cell(i, col)); name != "" {
				fact.InventorNames = append(fact.InventorNames, name)
			}
		}
		facts = append(facts, fact)
	}
	return facts, nil
}

// ExportTable renders the aggregate result in the wide per-entity layout:
// one row per entity, patent_<year> and patent_inventor_<year> columns for
// every year observed, then patent_name, patent_name_1, ... alias columns.
func ExportTable(result Result, dict *dictionary.Dictionary) *tabular.Table {
	yearSet := map[int]bool{}
	rowsByEntity := map[dictionary.EntityID][]Row{}
	for _, row := range result.Rows {
		yearSet[row.Year] = true
		rowsByEntity[row.Entity] = append(rowsByEntity[row.Entity], row)
	}
	var years []int
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)

	maxAliases := 0
	for _, aliases := range result.AliasesByEntity {
		if len(aliases) > maxAliases {
			maxAliases = len(aliases)
		}
	}

	columns := []string{"acquiror_name", "entity_id"}
	for _, y := range years {
		columns = append(columns, fmt.Sprintf("patent_%d", y))
	}
	for _, y := range years {
		columns = append(columns, fmt.Sprintf("patent_inventor_%d", y))
	}
	for i := 0; i < maxAliases; i++ {
		if i == 0 {
			columns = append(columns, "patent_name")
		} else {
			columns = append(columns, fmt.Sprintf("patent_name_%d", i))
		}
	}

	t := tabular.New(columns...)
	for _, entity := range dict.Entities() {
		rows, ok := rowsByEntity[entity.ID]
		if !ok {
			continue
		}
		patents := map[int]int{}
		inventors := map[int]int{}
		for _, row := range rows {
			patents[row.Year] = row.PatentCount
			inventors[row.Year] = row.DistinctInventors
		}

		cells := []string{entity.DisplayName, string(entity.ID)}
		for _, y := range years {
			cells = append(cells, strconv.Itoa(patents[y]))
		}
		for _, y := range years {
			cells = append(cells, strconv.Itoa(inventors[y]))
		}
		for _, alias := range result.AliasesByEntity[entity.ID] {
			cells = append(cells, alias)
		}
		t.Append(cells...)
	}
	return t
}

// UnmatchedTable renders the unmatched report.
func UnmatchedTable(result Result) *tabular.Table {
	t := tabular.New("raw_name", "fact_count")
	for _, u := range result.Unmatched {
		t.Append(u.RawName, strconv.Itoa(u.Count))
	}
	return t
}

func parseYear(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty year")
	}
	// Year cells exported from spreadsheets sometimes carry a decimal
	// part ("1995.0").
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		s = s[:dot]
	}
	return strconv.Atoi(s)
}
