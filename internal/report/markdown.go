// Package report renders operator-facing reports for the pipeline: the
// dictionary build summary with its conflict log, and the match quality
// summary. Reports are markdown first; the PDF renderer turns them into a
// printable document for the review binder.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joelkehle/entitymatch/internal/aggregate"
	"github.com/joelkehle/entitymatch/internal/dictionary"
	"github.com/joelkehle/entitymatch/internal/match"
)

// BuildMarkdown renders the dictionary build report: totals, per-batch
// contributions, the companies with the most name variants, and every
// conflict with its resolution.
func BuildMarkdown(dict *dictionary.Dictionary, stats dictionary.BuildStatistics, conflicts []dictionary.ConflictRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Canonical Dictionary Build Report\n\n")
	fmt.Fprintf(&b, "- Date: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Aliases: %d\n", stats.TotalAliases)
	fmt.Fprintf(&b, "- Entities: %d\n", stats.TotalEntities)
	fmt.Fprintf(&b, "- Conflicts: %d\n", stats.TotalConflicts)
	fmt.Fprintf(&b, "- New log entries this run: %d\n\n", stats.AppendedEntries)

	fmt.Fprintf(&b, "## Batch Contributions\n\n")
	fmt.Fprintf(&b, "| Batch | Assertions | New aliases | Duplicates | Conflicts |\n")
	fmt.Fprintf(&b, "| --- | ---: | ---: | ---: | ---: |\n")
	for _, batch := range stats.PerBatch {
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %d |\n",
			batch.Label, batch.Assertions, batch.NewAliases, batch.Duplicates, batch.Conflicts)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Most Name Variants\n\n")
	entities := dict.Entities()
	sort.SliceStable(entities, func(a, b int) bool {
		if len(entities[a].Aliases) != len(entities[b].Aliases) {
			return len(entities[a].Aliases) > len(entities[b].Aliases)
		}
		return entities[a].ID.Ordinal() < entities[b].ID.Ordinal()
	})
	limit := 10
	if len(entities) < limit {
		limit = len(entities)
	}
	for _, e := range entities[:limit] {
		fmt.Fprintf(&b, "- %s (%s): %d variants\n", e.DisplayName, e.ID, len(e.Aliases))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Conflicts\n\n")
	if len(conflicts) == 0 {
		fmt.Fprintf(&b, "No conflicts detected.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Resolution policy: the most recent batch wins; the prior mapping is retained below.\n\n")
	fmt.Fprintf(&b, "| Alias | Prior entity | Prior batch | New entity | New batch |\n")
	fmt.Fprintf(&b, "| --- | --- | --- | --- | --- |\n")
	for _, c := range conflicts {
		fmt.Fprintf(&b, "| %s | %s (%s) | %s | %s (%s) | %s |\n",
			c.Alias, c.ExistingName, c.ExistingEntity, c.ExistingBatch,
			c.IncomingName, c.IncomingEntity, c.IncomingBatch)
	}
	return b.String()
}

// MatchMarkdown renders the match run summary with the quality findings.
func MatchMarkdown(cands []match.Candidate, quality match.QualityReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Match Run Report\n\n")
	fmt.Fprintf(&b, "- Date: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Candidates: %d\n", len(cands))
	fmt.Fprintf(&b, "- Auto-accepted: %d\n", quality.DecisionCounts[match.DecisionAutoAccepted])
	fmt.Fprintf(&b, "- Needs review: %d\n\n", quality.DecisionCounts[match.DecisionNeedsReview])

	fmt.Fprintf(&b, "## Tier Distribution\n\n")
	for _, tier := range []match.Tier{match.TierExact, match.TierStrict, match.TierFuzzy} {
		fmt.Fprintf(&b, "- %s: %d\n", tier, quality.TierCounts[tier])
	}
	b.WriteString("\n")

	warnings := quality.Warnings()
	fmt.Fprintf(&b, "## Quality Findings\n\n")
	if len(warnings) == 0 {
		fmt.Fprintf(&b, "No findings.\n")
		return b.String()
	}
	for _, w := range warnings {
		fmt.Fprintf(&b, "- %s\n", w)
	}
	if len(quality.OneToMany) > 0 {
		b.WriteString("\n")
		fmt.Fprintf(&b, "### Sources With Multiple Targets\n\n")
		for _, o := range quality.OneToMany {
			fmt.Fprintf(&b, "- %s: %s\n", o.SourceRaw, strings.Join(o.Targets, "; "))
		}
	}
	return b.String()
}

// AggregateMarkdown renders the aggregation run summary.
func AggregateMarkdown(result aggregate.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Aggregation Report\n\n")
	fmt.Fprintf(&b, "- Date: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Fact records: %d\n", result.TotalFacts)
	fmt.Fprintf(&b, "- Resolved: %d\n", result.ResolvedFacts)
	fmt.Fprintf(&b, "- Unmatched names: %d\n\n", len(result.Unmatched))

	if len(result.Unmatched) > 0 {
		fmt.Fprintf(&b, "## Top Unmatched Names\n\n")
		limit := 20
		if len(result.Unmatched) < limit {
			limit = len(result.Unmatched)
		}
		for _, u := range result.Unmatched[:limit] {
			fmt.Fprintf(&b, "- %s (%d facts)\n", u.RawName, u.Count)
		}
	}
	return b.String()
}
