package match

import (
	"context"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/joelkehle/entitymatch/internal/normalize"
)

var tracer = otel.Tracer("entitymatch/match")

// Matcher resolves source names against a fixed target list. Construct one
// per target list; the target index is immutable after construction and
// safe to share across the fuzzy-tier workers.
type Matcher struct {
	cfg     Config
	targets *targetIndex
}

func New(cfg Config, targets []string) (*Matcher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Matcher{cfg: cfg, targets: newTargetIndex(targets)}, nil
}

// Match runs the tier cascade for every source name and returns the
// surviving candidates in the canonical order: tier, then descending score,
// then source name. The ordering is byte-stable across runs and across
// worker counts, which is what makes review files and re-merges
// reproducible.
func (m *Matcher) Match(ctx context.Context, sources []Source) ([]Candidate, error) {
	ctx, span := tracer.Start(ctx, "match.Match")
	defer span.End()
	span.SetAttributes(
		attribute.Int("sources", len(sources)),
		attribute.Int("targets", m.targets.len()),
	)

	bands := assignBands(sources, m.cfg)
	banded := m.cfg.HeadFraction > 0

	var out []Candidate
	var fuzzyPending []pendingSource
	for i, src := range sources {
		key := normalize.Name(src.Raw)
		if key == normalize.Empty {
			continue
		}
		band := bands[i]

		if cand, ok := m.matchExact(src.Raw, key); ok {
			cand.Band = band
			if band == BandHead {
				cand.Decision = DecisionNeedsReview
			}
			out = append(out, cand)
			continue
		}
		if cand, ok := m.matchStrict(src.Raw, key); ok {
			cand.Band = band
			if band == BandHead {
				cand.Decision = DecisionNeedsReview
			}
			out = append(out, cand)
			continue
		}
		if band == BandTail {
			continue
		}
		fuzzyPending = append(fuzzyPending, pendingSource{raw: src.Raw, key: key, band: band, banded: banded})
	}

	fuzzyCands, err := m.scoreFuzzy(ctx, fuzzyPending)
	if err != nil {
		return nil, err
	}
	out = append(out, fuzzyCands...)

	sortCandidates(out)
	span.SetAttributes(attribute.Int("candidates", len(out)))
	return out, nil
}

type pendingSource struct {
	raw    string
	key    normalize.Key
	band   WorkloadBand
	banded bool
}

func (m *Matcher) matchExact(raw string, key normalize.Key) (Candidate, bool) {
	targetRaw, ok := m.targets.byKey[key]
	if !ok {
		return Candidate{}, false
	}
	return Candidate{
		SourceRaw: raw,
		SourceKey: key,
		TargetRaw: targetRaw,
		TargetKey: key,
		Tier:      TierExact,
		Score:     100,
		Decision:  DecisionAutoAccepted,
	}, true
}

// matchStrict applies the deterministic transforms that are trusted without
// scoring: acronym equivalence and full containment of one name in the
// other. A transform only fires when it selects exactly one target;
// anything ambiguous falls through to the fuzzy tier.
func (m *Matcher) matchStrict(raw string, key normalize.Key) (Candidate, bool) {
	if target, ok := m.targets.uniqueAcronymMatch(key); ok {
		return strictCandidate(raw, key, target), true
	}
	if len(key) >= m.cfg.MinContainmentLen {
		if target, ok := m.targets.uniqueContainmentMatch(key, m.cfg.MinContainmentLen); ok {
			return strictCandidate(raw, key, target), true
		}
	}
	return Candidate{}, false
}

func strictCandidate(raw string, key normalize.Key, target targetEntry) Candidate {
	return Candidate{
		SourceRaw: raw,
		SourceKey: key,
		TargetRaw: target.raw,
		TargetKey: target.key,
		Tier:      TierStrict,
		Score:     100,
		Decision:  DecisionAutoAccepted,
	}
}

// bestFuzzy scores one source key against every target and returns the
// winning candidate, if any clears the reject floor. Ties at the top score
// break on longer common-token overlap, then on the lexicographically
// smallest target name, so the winner never depends on target order or on
// how the workload was chunked. With banding enabled every fuzzy candidate
// goes to review; the threshold only auto-accepts when banding is off.
func (m *Matcher) bestFuzzy(p pendingSource) (Candidate, bool) {
	bestScore := -1
	bestOverlap := -1
	var bestTarget targetEntry
	for _, target := range m.targets.entries {
		score := tokenSetScore(p.key, target.key)
		if score < bestScore || score < m.cfg.RejectFloor {
			continue
		}
		overlap := commonTokenCount(p.key, target.key)
		switch {
		case score > bestScore:
		case overlap > bestOverlap:
		case overlap == bestOverlap && target.raw < bestTarget.raw:
		default:
			continue
		}
		bestScore = score
		bestOverlap = overlap
		bestTarget = target
	}
	if bestScore < m.cfg.RejectFloor || bestScore < 0 {
		return Candidate{}, false
	}

	decision := DecisionNeedsReview
	if bestScore >= m.cfg.FuzzyThreshold && !p.banded {
		decision = DecisionAutoAccepted
	}
	return Candidate{
		SourceRaw: p.raw,
		SourceKey: p.key,
		TargetRaw: bestTarget.raw,
		TargetKey: bestTarget.key,
		Tier:      TierFuzzy,
		Score:     bestScore,
		Decision:  decision,
		Band:      p.band,
	}, true
}

// assignBands ranks sources by descending weight and cuts the list into
// head, mid, and tail bands per the config. With banding disabled every
// source is mid.
func assignBands(sources []Source, cfg Config) []WorkloadBand {
	bands := make([]WorkloadBand, len(sources))
	if cfg.HeadFraction <= 0 {
		for i := range bands {
			bands[i] = BandMid
		}
		return bands
	}

	order := make([]int, len(sources))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if sources[order[a]].Weight != sources[order[b]].Weight {
			return sources[order[a]].Weight > sources[order[b]].Weight
		}
		return sources[order[a]].Raw < sources[order[b]].Raw
	})

	headCount := int(float64(len(sources)) * cfg.HeadFraction)
	for rank, idx := range order {
		switch {
		case rank < headCount:
			bands[idx] = BandHead
		case sources[idx].Weight >= cfg.MidMinWeight:
			bands[idx] = BandMid
		default:
			bands[idx] = BandTail
		}
	}
	return bands
}

var tierRank = map[Tier]int{TierExact: 0, TierStrict: 1, TierFuzzy: 2}

func sortCandidates(cands []Candidate) {
	sort.SliceStable(cands, func(a, b int) bool {
		if tierRank[cands[a].Tier] != tierRank[cands[b].Tier] {
			return tierRank[cands[a].Tier] < tierRank[cands[b].Tier]
		}
		if cands[a].Score != cands[b].Score {
			return cands[a].Score > cands[b].Score
		}
		return cands[a].SourceRaw < cands[b].SourceRaw
	})
}

type targetEntry struct {
	raw     string
	key     normalize.Key
	acronym string
}

type targetIndex struct {
	entries []targetEntry
	byKey   map[normalize.Key]string
}

func newTargetIndex(targets []string) *targetIndex {
	idx := &targetIndex{byKey: map[normalize.Key]string{}}
	seen := map[normalize.Key]bool{}
	for _, raw := range targets {
		key := normalize.Name(raw)
		if key == normalize.Empty {
			continue
		}
		// Many raws can share a key; keep the smallest raw so the
		// representative never depends on input order.
		if existing, ok := idx.byKey[key]; !ok || raw < existing {
			idx.byKey[key] = raw
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		idx.entries = append(idx.entries, targetEntry{raw: raw, key: key, acronym: acronymOf(key)})
	}
	// Re-point each entry at the chosen representative raw.
	for i := range idx.entries {
		idx.entries[i].raw = idx.byKey[idx.entries[i].key]
	}
	sort.Slice(idx.entries, func(a, b int) bool { return idx.entries[a].key < idx.entries[b].key })
	return idx
}

func (idx *targetIndex) len() int { return len(idx.entries) }

// uniqueAcronymMatch fires when a single-token source key is exactly the
// initials of one multi-token target (or the reverse). "ibm" meets
// "international business machines"; it stays silent if two targets share
// the initials.
func (idx *targetIndex) uniqueAcronymMatch(key normalize.Key) (targetEntry, bool) {
	srcTokens := key.Tokens()
	srcAcronym := acronymOf(key)

	var found targetEntry
	count := 0
	for _, entry := range idx.entries {
		hit := false
		if len(srcTokens) == 1 && len(string(key)) >= 3 && entry.acronym == string(key) {
			hit = true
		}
		if srcAcronym != "" && len(entry.key.Tokens()) == 1 && len(string(entry.key)) >= 3 && srcAcronym == string(entry.key) {
			hit = true
		}
		if hit {
			count++
			if count > 1 {
				return targetEntry{}, false
			}
			found = entry
		}
	}
	return found, count == 1
}

// uniqueContainmentMatch fires when one key contains the other whole, on
// token boundaries, and the shorter side is long enough to be distinctive.
func (idx *targetIndex) uniqueContainmentMatch(key normalize.Key, minLen int) (targetEntry, bool) {
	var found targetEntry
	count := 0
	for _, entry := range idx.entries {
		if !tokenContains(key, entry.key, minLen) {
			continue
		}
		count++
		if count > 1 {
			return targetEntry{}, false
		}
		found = entry
	}
	return found, count == 1
}

func tokenContains(a, b normalize.Key, minLen int) bool {
	shorter, longer := string(a), string(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) < minLen || shorter == longer {
		return false
	}
	idx := strings.Index(longer, shorter)
	for idx >= 0 {
		startOK := idx == 0 || longer[idx-1] == ' '
		end := idx + len(shorter)
		endOK := end == len(longer) || longer[end] == ' '
		if startOK && endOK {
			return true
		}
		next := strings.Index(longer[idx+1:], shorter)
		if next < 0 {
			break
		}
		idx += 1 + next
	}
	return false
}

// acronymOf builds the initials of a multi-token key. Single-token keys
// have no acronym, and short acronyms are too ambiguous to use.
func acronymOf(key normalize.Key) string {
	tokens := key.Tokens()
	if len(tokens) < 3 {
		return ""
	}
	var b strings.Builder
	for _, tok := range tokens {
		b.WriteByte(tok[0])
	}
	return b.String()
}
