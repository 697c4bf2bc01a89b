// Package match pairs source company names with reference names at
// increasing levels of looseness: exact canonical-key equality, a small set
// of deterministic rules, then token-based fuzzy scoring. Candidates above
// the auto-accept threshold skip human review; candidates below the reject
// floor are discarded before review so reviewer workload stays bounded.
package match

import (
	"fmt"

	"github.com/joelkehle/entitymatch/internal/normalize"
)

type Tier string

const (
	TierExact  Tier = "exact"
	TierStrict Tier = "strict"
	TierFuzzy  Tier = "fuzzy"
)

type Decision string

const (
	DecisionAutoAccepted Decision = "auto_accepted"
	DecisionNeedsReview  Decision = "needs_review"
)

// WorkloadBand ranks a source name by how much fact data hangs off it.
// Heavier names get stricter review routing: a mismatch on a name carrying
// thousands of patents corrupts far more output than one carrying two.
// The band policies below apply when banding is enabled; with banding
// disabled (HeadFraction 0) every source is mid and fuzzy scores at or
// above the threshold auto-accept.
type WorkloadBand string

const (
	// BandHead is the top slice of sources by fact weight. Every
	// candidate for a head name is routed to review, even exact hits.
	BandHead WorkloadBand = "head"
	// BandMid auto-accepts the deterministic tiers and routes fuzzy
	// candidates to review regardless of score.
	BandMid WorkloadBand = "mid"
	// BandTail auto-accepts the deterministic tiers and skips the fuzzy
	// tier entirely.
	BandTail WorkloadBand = "tail"
)

// Candidate is one proposed pairing of a source name with a target name.
// SourceRaw and TargetRaw are the strings exactly as they appeared in the
// inputs; the cleaned keys ride along for the reviewer's benefit.
type Candidate struct {
	SourceRaw string
	SourceKey normalize.Key
	TargetRaw string
	TargetKey normalize.Key
	Tier      Tier
	Score     int
	Decision  Decision
	Band      WorkloadBand
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s -> %s (%s, %d, %s)", c.SourceRaw, c.TargetRaw, c.Tier, c.Score, c.Decision)
}

// Source is a name to resolve plus the fact weight used for workload
// banding. Weight is typically the patent count observed for the name.
type Source struct {
	Raw    string
	Weight int
}

type Config struct {
	// FuzzyThreshold is the auto-accept cutoff for fuzzy scores, 0-100.
	FuzzyThreshold int
	// RejectFloor discards fuzzy candidates scoring below it before they
	// ever reach review.
	RejectFloor int
	// Workers bounds the fuzzy-tier worker pool. 1 disables parallelism;
	// 0 means available cores minus one, capped at MaxWorkers.
	Workers int
	// MaxWorkers caps the derived worker count when Workers is 0.
	MaxWorkers int
	// HeadFraction is the share of sources (by descending weight) placed
	// in the head band. Zero disables banding: everything is mid.
	HeadFraction float64
	// MidMinWeight is the minimum fact weight for the mid band; lighter
	// sources fall into the tail band.
	MidMinWeight int
	// MinContainmentLen is the minimum key length before the strict-rule
	// containment transform is trusted as unambiguous.
	MinContainmentLen int
}

func DefaultConfig() Config {
	return Config{
		FuzzyThreshold:    90,
		RejectFloor:       60,
		Workers:           0,
		MaxWorkers:        4,
		HeadFraction:      0.05,
		MidMinWeight:      6,
		MinContainmentLen: 8,
	}
}

func (c Config) validate() error {
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 100 {
		return fmt.Errorf("fuzzy threshold %d out of range 0-100", c.FuzzyThreshold)
	}
	if c.RejectFloor < 0 || c.RejectFloor > c.FuzzyThreshold {
		return fmt.Errorf("reject floor %d out of range 0-%d", c.RejectFloor, c.FuzzyThreshold)
	}
	if c.Workers < 0 {
		return fmt.Errorf("worker count %d is negative", c.Workers)
	}
	return nil
}
