// Package refmatch runs the second matching pass: canonical entities
// against the financial-reference database, followed by an identifier-fill
// merge. Unlike display aliases, reference identifiers are join keys for
// downstream financial analysis, so a conflicting assignment is a fatal
// data-quality error and never auto-resolved.
package refmatch

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/joelkehle/entitymatch/internal/dictionary"
	"github.com/joelkehle/entitymatch/internal/match"
	"github.com/joelkehle/entitymatch/internal/tabular"
)

// Reference file schema (Compustat column names).
const (
	ColReferenceName = "conm"
	ColGVKey         = "gvkey"
	ColCUSIP         = "cusip"
	ColCIK           = "cik"
)

// Identifiers is one reference entity's identifier set. All fields are
// strings end-to-end: gvkey/cusip/cik carry leading zeros that integer
// parsing would destroy.
type Identifiers struct {
	ReferenceName string
	GVKey         string
	CUSIP         string
	CIK           string
}

func (ids Identifiers) Equal(other Identifiers) bool {
	return ids.GVKey == other.GVKey && ids.CUSIP == other.CUSIP && ids.CIK == other.CIK
}

// Reference is the loaded reference dataset: its distinct names (for
// matching) and the identifier set per name.
type Reference struct {
	Names  []string
	ByName map[string]Identifiers
}

// LoadReference projects the reference table down to the name and
// identifier columns and indexes it by name, keeping the first row per
// name. Only the name column is required; identifier columns may be absent
// when the caller only needs the matching pass.
func LoadReference(t *tabular.Table) (*Reference, error) {
	if err := t.Require(ColReferenceName); err != nil {
		return nil, err
	}

	ref := &Reference{ByName: map[string]Identifiers{}}
	for i := range t.Rows {
		name := strings.TrimSpace(t.Cell(i, ColReferenceName))
		if name == "" {
			continue
		}
		if _, ok := ref.ByName[name]; ok {
			continue
		}
		ref.ByName[name] = Identifiers{
			ReferenceName: name,
			GVKey:         strings.TrimSpace(t.Cell(i, ColGVKey)),
			CUSIP:         strings.TrimSpace(t.Cell(i, ColCUSIP)),
			CIK:           strings.TrimSpace(t.Cell(i, ColCIK)),
		}
		ref.Names = append(ref.Names, name)
	}
	sort.Strings(ref.Names)
	return ref, nil
}

// MatchEntities runs the tiered matcher with the canonical entities'
// display names as sources and the reference names as targets. Workload
// banding is disabled: every entity matters equally here, and the stricter
// merge policy downstream is the safety net.
func MatchEntities(ctx context.Context, cfg match.Config, entities []*dictionary.Entity, ref *Reference) ([]match.Candidate, error) {
	cfg.HeadFraction = 0
	m, err := match.New(cfg, ref.Names)
	if err != nil {
		return nil, err
	}
	sources := make([]match.Source, 0, len(entities))
	for _, e := range entities {
		sources = append(sources, match.Source{Raw: e.DisplayName})
	}
	return m.Match(ctx, sources)
}

// IdentifierConflictError is fatal: two reviewed batches assigned different
// identifier sets to one entity. It names both batches and both assignments
// so the operator can resolve the disagreement at the source.
type IdentifierConflictError struct {
	Entity        dictionary.EntityID
	EntityName    string
	Existing      Identifiers
	ExistingBatch string
	Incoming      Identifiers
	IncomingBatch string
}

func (e *IdentifierConflictError) Error() string {
	return fmt.Sprintf(
		"identifier conflict for entity %s (%q): batch %q assigned gvkey=%s cusip=%s cik=%s, batch %q assigned gvkey=%s cusip=%s cik=%s",
		e.Entity, e.EntityName,
		e.ExistingBatch, e.Existing.GVKey, e.Existing.CUSIP, e.Existing.CIK,
		e.IncomingBatch, e.Incoming.GVKey, e.Incoming.CUSIP, e.Incoming.CIK,
	)
}

// ReviewedBatch is one reviewed verification file: accepted entity-to-
// reference pairings.
type ReviewedBatch struct {
	Label    string
	Accepted []match.Accepted
}

// Assignment is the merged outcome for one entity.
type Assignment struct {
	Entity      dictionary.EntityID
	EntityName  string
	Identifiers Identifiers
	Batch       string
}

// Merge folds reviewed batches into one identifier assignment per entity.
// Re-asserting the same identifier set is a no-op; asserting a different
// one aborts the merge with an IdentifierConflictError.
func Merge(dict *dictionary.Dictionary, ref *Reference, batches []ReviewedBatch) ([]Assignment, error) {
	assigned := map[dictionary.EntityID]*Assignment{}

	for _, batch := range batches {
		for _, row := range batch.Accepted {
			id, ok := dict.EntityByName(row.SourceRaw)
			if !ok {
				return nil, fmt.Errorf("batch %q names unknown entity %q", batch.Label, row.SourceRaw)
			}
			ids, ok := ref.ByName[row.TargetRaw]
			if !ok {
				return nil, fmt.Errorf("batch %q names unknown reference company %q", batch.Label, row.TargetRaw)
			}

			if existing, ok := assigned[id]; ok {
				if existing.Identifiers.Equal(ids) {
					continue
				}
				return nil, &IdentifierConflictError{
					Entity:        id,
					EntityName:    row.SourceRaw,
					Existing:      existing.Identifiers,
					ExistingBatch: existing.Batch,
					Incoming:      ids,
					IncomingBatch: batch.Label,
				}
			}
			assigned[id] = &Assignment{
				Entity:      id,
				EntityName:  row.SourceRaw,
				Identifiers: ids,
				Batch:       batch.Label,
			}
		}
	}

	out := make([]Assignment, 0, len(assigned))
	for _, a := range assigned {
		out = append(out, *a)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Entity.Ordinal() < out[b].Entity.Ordinal() })
	return out, nil
}

// FillTable fills the identifier columns of the main table, keyed by the
// entity display name column. Only empty cells are written: identifiers an
// operator placed by hand are never overwritten. Missing identifier
// columns are added. Returns the updated table and the number of rows
// touched.
func FillTable(main *tabular.Table, nameColumn string, assignments []Assignment) (*tabular.Table, int, error) {
	if err := main.Require(nameColumn); err != nil {
		return nil, 0, err
	}

	byName := map[string]Identifiers{}
	for _, a := range assignments {
		byName[a.EntityName] = a.Identifiers
	}

	out := &tabular.Table{Source: main.Source, Columns: append([]string(nil), main.Columns...)}
	idColumns := []string{ColGVKey, ColCUSIP, ColCIK, "compustat_name"}
	for _, col := range idColumns {
		if out.ColumnIndex(col) < 0 {
			out.Columns = append(out.Columns, col)
		}
	}

	filled := 0
	for i := range main.Rows {
		row := make([]string, len(out.Columns))
		for j, col := range out.Columns {
			if main.ColumnIndex(col) >= 0 {
				row[j] = main.Cell(i, col)
			}
		}
		ids, ok := byName[main.Cell(i, nameColumn)]
		if ok {
			touched := false
			touched = fillCell(out, row, ColGVKey, ids.GVKey) || touched
			touched = fillCell(out, row, ColCUSIP, ids.CUSIP) || touched
			touched = fillCell(out, row, ColCIK, ids.CIK) || touched
			touched = fillCell(out, row, "compustat_name", ids.ReferenceName) || touched
			if touched {
				filled++
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out, filled, nil
}

func fillCell(t *tabular.Table, row []string, column, value string) bool {
	idx := t.ColumnIndex(column)
	if idx < 0 || value == "" || strings.TrimSpace(row[idx]) != "" {
		return false
	}
	row[idx] = value
	return true
}
