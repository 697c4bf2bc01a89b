package match

import (
	"fmt"
	"sort"
)

// QualityReport summarizes the checks run over a match output before it is
// handed to review: the conditions are not errors, but each one historically
// correlates with bad matches and deserves a human look.
type QualityReport struct {
	// OneToMany lists source names matched to more than one distinct
	// target, sorted by source name.
	OneToMany []OneToManySource
	// LowScoreCount is the number of candidates scoring under 95.
	LowScoreCount int
	// ShortNames lists source names whose canonical key is under three
	// characters, where fuzzy scores are close to meaningless.
	ShortNames []string
	// TierCounts and DecisionCounts are the distribution of the output.
	TierCounts     map[Tier]int
	DecisionCounts map[Decision]int
}

type OneToManySource struct {
	SourceRaw string
	Targets   []string
}

// Check runs the quality checks over a candidate set.
func Check(cands []Candidate) QualityReport {
	report := QualityReport{
		TierCounts:     map[Tier]int{},
		DecisionCounts: map[Decision]int{},
	}

	targetsBySource := map[string]map[string]bool{}
	shortSeen := map[string]bool{}
	for _, c := range cands {
		report.TierCounts[c.Tier]++
		report.DecisionCounts[c.Decision]++
		if c.Score < 95 {
			report.LowScoreCount++
		}
		if len(c.SourceKey) < 3 && !shortSeen[c.SourceRaw] {
			shortSeen[c.SourceRaw] = true
			report.ShortNames = append(report.ShortNames, c.SourceRaw)
		}
		if targetsBySource[c.SourceRaw] == nil {
			targetsBySource[c.SourceRaw] = map[string]bool{}
		}
		targetsBySource[c.SourceRaw][c.TargetRaw] = true
	}
	sort.Strings(report.ShortNames)

	for source, targets := range targetsBySource {
		if len(targets) < 2 {
			continue
		}
		var list []string
		for t := range targets {
			list = append(list, t)
		}
		sort.Strings(list)
		report.OneToMany = append(report.OneToMany, OneToManySource{SourceRaw: source, Targets: list})
	}
	sort.Slice(report.OneToMany, func(a, b int) bool {
		return report.OneToMany[a].SourceRaw < report.OneToMany[b].SourceRaw
	})
	return report
}

// Warnings renders the report's noteworthy findings as operator-facing
// lines. An empty slice means nothing needs attention.
func (r QualityReport) Warnings() []string {
	var out []string
	if n := len(r.OneToMany); n > 0 {
		out = append(out, fmt.Sprintf("%d source names matched multiple targets; manual check recommended", n))
	}
	if r.LowScoreCount > 0 {
		out = append(out, fmt.Sprintf("%d candidates scored under 95; review closely", r.LowScoreCount))
	}
	if n := len(r.ShortNames); n > 0 {
		out = append(out, fmt.Sprintf("%d source names are shorter than 3 characters after cleanup; manual check recommended", n))
	}
	return out
}
