package match

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/joelkehle/entitymatch/internal/tabular"
)

// Review file schema. The reviewer deletes rows they judge wrong and hands
// the file back otherwise untouched; row identity is the
// (source_name, target_name) pair.
const (
	ColSourceName = "source_name"
	ColSourceKey  = "source_key"
	ColTargetName = "target_name"
	ColTargetKey  = "target_key"
	ColTier       = "tier"
	ColScore      = "score"
	ColDecision   = "decision"
	ColBand       = "band"
)

var reviewColumns = []string{
	ColSourceName, ColSourceKey, ColTargetName, ColTargetKey,
	ColTier, ColScore, ColDecision, ColBand,
}

// ReviewTable renders the needs-review candidates for the human reviewer.
// Rows are ordered weakest-first (fuzzy before the deterministic tiers,
// ascending score) so reviewer attention lands on the matches most likely
// to be wrong.
func ReviewTable(cands []Candidate) *tabular.Table {
	review := filterByDecision(cands, DecisionNeedsReview)
	sort.SliceStable(review, func(a, b int) bool {
		if tierRank[review[a].Tier] != tierRank[review[b].Tier] {
			return tierRank[review[a].Tier] > tierRank[review[b].Tier]
		}
		if review[a].Score != review[b].Score {
			return review[a].Score < review[b].Score
		}
		return review[a].SourceRaw < review[b].SourceRaw
	})
	return candidateTable(review)
}

// VerificationTable renders every candidate, weakest-first, for passes
// where the whole output goes to review regardless of decision.
func VerificationTable(cands []Candidate) *tabular.Table {
	all := append([]Candidate(nil), cands...)
	sort.SliceStable(all, func(a, b int) bool {
		if tierRank[all[a].Tier] != tierRank[all[b].Tier] {
			return tierRank[all[a].Tier] > tierRank[all[b].Tier]
		}
		if all[a].Score != all[b].Score {
			return all[a].Score < all[b].Score
		}
		return all[a].SourceRaw < all[b].SourceRaw
	})
	return candidateTable(all)
}

// AutoAcceptTable renders the auto-accepted candidates in the canonical
// candidate order.
func AutoAcceptTable(cands []Candidate) *tabular.Table {
	return candidateTable(filterByDecision(cands, DecisionAutoAccepted))
}

func filterByDecision(cands []Candidate, d Decision) []Candidate {
	var out []Candidate
	for _, c := range cands {
		if c.Decision == d {
			out = append(out, c)
		}
	}
	return out
}

func candidateTable(cands []Candidate) *tabular.Table {
	t := tabular.New(reviewColumns...)
	for _, c := range cands {
		t.Append(
			c.SourceRaw, string(c.SourceKey), c.TargetRaw, string(c.TargetKey),
			string(c.Tier), strconv.Itoa(c.Score), string(c.Decision), string(c.Band),
		)
	}
	return t
}

// Accepted is one surviving row of a reviewed (or auto-accepted) match
// file: a ground-truth assertion that the source name belongs to the
// target's entity.
type Accepted struct {
	SourceRaw string
	TargetRaw string
	Tier      Tier
	Score     int
}

// ParseAccepted reads back a reviewed match file. Only the identity and
// provenance columns are required; the reviewer may have dropped or
// reordered presentation columns without harm.
func ParseAccepted(t *tabular.Table) ([]Accepted, error) {
	if err := t.Require(ColSourceName, ColTargetName); err != nil {
		return nil, err
	}
	var out []Accepted
	for i := range t.Rows {
		source := t.Cell(i, ColSourceName)
		target := t.Cell(i, ColTargetName)
		if source == "" || target == "" {
			continue
		}
		a := Accepted{SourceRaw: source, TargetRaw: target, Tier: Tier(t.Cell(i, ColTier))}
		if raw := t.Cell(i, ColScore); raw != "" {
			score, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: bad score %q: %w", t.Source, i+2, raw, err)
			}
			a.Score = score
		}
		out = append(out, a)
	}
	return out, nil
}
