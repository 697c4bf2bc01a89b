// Package dictionary maintains the canonical alias-to-entity mapping. The
// dictionary is stored as an append-only log of reviewed assertions; the
// alias table, entity registry, and conflict report are all derived by
// replaying that log in order. Derivation is deterministic, so reloading or
// rebuilding from the same log always reproduces the same mapping, and the
// alias-uniqueness invariant (every alias resolves to exactly one entity)
// holds by construction.
package dictionary

import (
	"fmt"
	"sort"

	"github.com/joelkehle/entitymatch/internal/normalize"
)

// EntityID is the stable surrogate key for one real-world company.
// IDs are assigned sequentially in replay order and never reused.
type EntityID string

// Assertion is one reviewed claim: the alias names the entity identified by
// the target display name.
type Assertion struct {
	Alias  string
	Entity string
}

// Batch is an ordered group of assertions from one reviewed match file.
type Batch struct {
	Label      string
	Assertions []Assertion
}

// loggedAssertion is one entry of the append-only log.
type loggedAssertion struct {
	Position int
	Batch    string
	Alias    string
	Entity   string
}

// Entity is a canonical company and everything the pipeline knows about it.
type Entity struct {
	ID EntityID
	// DisplayName is the reference-side name that introduced the entity.
	DisplayName string
	// Aliases are the raw source names currently mapped to this entity,
	// sorted, retained for audit.
	Aliases []string
	// Batches are the labels of every batch that contributed an alias.
	Batches []string
}

// ConflictRecord is emitted when a later batch asserts a different entity
// for an alias that is already mapped. The prior assignment is retained
// here rather than silently dropped, so the resolution is auditable and
// reversible.
type ConflictRecord struct {
	Alias          string
	AliasKey       normalize.Key
	ExistingEntity EntityID
	ExistingName   string
	ExistingBatch  string
	IncomingEntity EntityID
	IncomingName   string
	IncomingBatch  string
	// Resolution names the policy applied; the current builder always
	// lets the most recent batch win.
	Resolution string
}

const ResolutionRecentWins = "recent_batch_wins"

// BatchStats is one batch's contribution to a build.
type BatchStats struct {
	Label      string
	Assertions int
	NewAliases int
	Duplicates int
	Conflicts  int
}

type BuildStatistics struct {
	TotalAliases    int
	TotalEntities   int
	TotalConflicts  int
	AppendedEntries int
	PerBatch        []BatchStats
}

// Dictionary is the canonical mapping plus its underlying log. Mutate it
// only through Builder; readers treat it as immutable.
type Dictionary struct {
	log []loggedAssertion

	aliasEntity map[normalize.Key]EntityID
	// aliasRaw holds every raw spelling observed per key, in first-seen
	// order. On a conflict the whole set moves to the winning entity, so
	// no entity keeps listing spellings its key no longer resolves to.
	aliasRaw map[normalize.Key][]string
	entities    map[EntityID]*Entity
	entityByKey map[string]EntityID
	conflicts   []ConflictRecord
	nextID      int
}

func NewDictionary() *Dictionary {
	return &Dictionary{
		aliasEntity: map[normalize.Key]EntityID{},
		aliasRaw:    map[normalize.Key][]string{},
		entities:    map[EntityID]*Entity{},
		entityByKey: map[string]EntityID{},
	}
}

// Resolve maps a raw name to its entity via the canonical key.
func (d *Dictionary) Resolve(raw string) (EntityID, bool) {
	id, ok := d.aliasEntity[normalize.Name(raw)]
	return id, ok
}

// ResolveKey maps an already-normalized key to its entity.
func (d *Dictionary) ResolveKey(key normalize.Key) (EntityID, bool) {
	id, ok := d.aliasEntity[key]
	return id, ok
}

func (d *Dictionary) Entity(id EntityID) (*Entity, bool) {
	e, ok := d.entities[id]
	return e, ok
}

// EntityByName looks an entity up by its display name.
func (d *Dictionary) EntityByName(displayName string) (EntityID, bool) {
	id, ok := d.entityByKey[displayName]
	return id, ok
}

// Entities returns every entity sorted by ID's numeric suffix order, which
// is replay order.
func (d *Dictionary) Entities() []*Entity {
	out := make([]*Entity, 0, len(d.entities))
	for _, e := range d.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID.Ordinal() < out[b].ID.Ordinal() })
	return out
}

// Conflicts returns the conflict report derived from the current log.
func (d *Dictionary) Conflicts() []ConflictRecord {
	return append([]ConflictRecord(nil), d.conflicts...)
}

func (d *Dictionary) AliasCount() int  { return len(d.aliasEntity) }
func (d *Dictionary) EntityCount() int { return len(d.entities) }
func (d *Dictionary) LogLen() int      { return len(d.log) }

// Ordinal is the numeric part of the ID, which is replay order.
func (id EntityID) Ordinal() int {
	var n int
	fmt.Sscanf(string(id), "E%d", &n)
	return n
}
