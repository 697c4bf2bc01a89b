// Package aggregate resolves raw fact records through the canonical
// dictionary and rolls them up into per-entity per-year activity counts.
// Records whose names the dictionary cannot resolve are never dropped
// silently; they land in an explicit unmatched report, since a silent drop
// would understate the affected entity's activity.
package aggregate

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/joelkehle/entitymatch/internal/dictionary"
	"github.com/joelkehle/entitymatch/internal/normalize"
)

var tracer = otel.Tracer("entitymatch/aggregate")

// FactRecord is one observation to aggregate: a patent filed under a raw
// company name in a given year.
type FactRecord struct {
	RawName string
	Year    int
	// DeclaredInventors is the filing's declared inventor count, when
	// the source carries one.
	DeclaredInventors int
	// InventorNames are the per-filing inventor identifiers. They feed
	// both the per-fact count and the distinct-inventor cardinality.
	InventorNames []string
}

// InventorCount is the per-fact inventor figure: the larger of the declared
// count and the number of named inventors, since sources disagree on which
// of the two is filled in.
func (f FactRecord) InventorCount() int {
	if f.DeclaredInventors > len(f.InventorNames) {
		return f.DeclaredInventors
	}
	return len(f.InventorNames)
}

// Row is one (entity, year) aggregate.
type Row struct {
	Entity dictionary.EntityID
	Year   int
	// PatentCount is the number of resolved facts in the group.
	PatentCount int
	// DistinctInventors is the cardinality of the group's inventor
	// identifier set.
	DistinctInventors int
	// InventorSum is the per-fact inventor counts summed over the group.
	InventorSum int
}

// UnmatchedName is one raw name the dictionary could not resolve, with the
// number of facts lost to it.
type UnmatchedName struct {
	RawName string
	Count   int
}

type Result struct {
	Rows []Row
	// AliasesByEntity is the set of distinct raw names observed per
	// entity across all years, sorted. Aliases are entity-level, not
	// year-level.
	AliasesByEntity map[dictionary.EntityID][]string
	Unmatched       []UnmatchedName
	TotalFacts      int
	ResolvedFacts   int
}

// Aggregate resolves and groups the facts. Rows come back sorted by entity
// then year for determinism.
func Aggregate(ctx context.Context, dict *dictionary.Dictionary, facts []FactRecord) Result {
	_, span := tracer.Start(ctx, "aggregate.Aggregate")
	defer span.End()

	type groupKey struct {
		entity dictionary.EntityID
		year   int
	}
	type group struct {
		patents     int
		inventorSet map[string]bool
		inventorSum int
	}

	groups := map[groupKey]*group{}
	aliases := map[dictionary.EntityID]map[string]bool{}
	unmatched := map[string]int{}

	for _, fact := range facts {
		key := normalize.Name(fact.RawName)
		id, ok := dict.ResolveKey(key)
		if !ok {
			unmatched[fact.RawName]++
			continue
		}

		gk := groupKey{entity: id, year: fact.Year}
		g := groups[gk]
		if g == nil {
			g = &group{inventorSet: map[string]bool{}}
			groups[gk] = g
		}
		g.patents++
		g.inventorSum += fact.InventorCount()
		for _, inv := range fact.InventorNames {
			g.inventorSet[inv] = true
		}

		if aliases[id] == nil {
			aliases[id] = map[string]bool{}
		}
		aliases[id][fact.RawName] = true
	}

	result := Result{
		AliasesByEntity: map[dictionary.EntityID][]string{},
		TotalFacts:      len(facts),
	}
	for gk, g := range groups {
		result.Rows = append(result.Rows, Row{
			Entity:            gk.entity,
			Year:              gk.year,
			PatentCount:       g.patents,
			DistinctInventors: len(g.inventorSet),
			InventorSum:       g.inventorSum,
		})
		result.ResolvedFacts += g.patents
	}
	sort.Slice(result.Rows, func(a, b int) bool {
		if result.Rows[a].Entity != result.Rows[b].Entity {
			return result.Rows[a].Entity.Ordinal() < result.Rows[b].Entity.Ordinal()
		}
		return result.Rows[a].Year < result.Rows[b].Year
	})

	for id, set := range aliases {
		var list []string
		for raw := range set {
			list = append(list, raw)
		}
		sort.Strings(list)
		result.AliasesByEntity[id] = list
	}

	for raw, count := range unmatched {
		result.Unmatched = append(result.Unmatched, UnmatchedName{RawName: raw, Count: count})
	}
	sort.Slice(result.Unmatched, func(a, b int) bool {
		if result.Unmatched[a].Count != result.Unmatched[b].Count {
			return result.Unmatched[a].Count > result.Unmatched[b].Count
		}
		return result.Unmatched[a].RawName < result.Unmatched[b].RawName
	})

	span.SetAttributes(
		attribute.Int("facts", result.TotalFacts),
		attribute.Int("resolved", result.ResolvedFacts),
		attribute.Int("unmatched_names", len(result.Unmatched)),
	)
	return result
}
