// Package dedup holds the per-session similarity index used for
// duplicate detection during a bulk upload.
//
// An Index lives for exactly one upload session. It is seeded from the
// catalog's known signatures when the session starts, grows as images
// are accepted, and is discarded when the session ends. There is no
// process-global index; cross-session duplicates are caught by the
// seed data and, failing that, by the catalog's uniqueness constraint.
package dedup

import (
	"sync"

	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/phash"
)

// Outcome is the verdict of a CheckAndInsert call.
type Outcome int

const (
	Accepted Outcome = iota
	Duplicate
)

func (o Outcome) String() string {
	if o == Duplicate {
		return "duplicate"
	}
	return "accepted"
}

// SeedEntry is a known signature loaded from the catalog.
type SeedEntry struct {
	DesignID  string
	Signature phash.Signature
}

// Index is a mutex-guarded signature set. The only mutating entry
// point is CheckAndInsert, which runs the duplicate comparison and the
// insert under a single lock so concurrent workers cannot both accept
// a near-identical pair.
type Index struct {
	threshold int
	mode      phash.CombineMode

	mu      sync.Mutex
	entries []entry
}

type entry struct {
	sig phash.Signature
	id  string
}

// NewIndex returns an empty index. Signatures whose combined distance
// is at most threshold under the given mode count as duplicates.
func NewIndex(threshold int, mode phash.CombineMode) *Index {
	return &Index{threshold: threshold, mode: mode}
}

// Seed bulk-loads known signatures without duplicate checking.
// Call it before workers start; seeding is not synchronized against
// concurrent CheckAndInsert beyond the index lock.
func (ix *Index) Seed(entries []SeedEntry) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, e := range entries {
		ix.entries = append(ix.entries, entry{sig: e.Signature, id: e.DesignID})
	}
}

// CheckAndInsert compares sig against every indexed signature. When the
// nearest match is within the threshold it reports Duplicate and the
// matched design ID, leaving the index unchanged. Otherwise it records
// sig under id and reports Accepted.
func (ix *Index) CheckAndInsert(sig phash.Signature, id string) (Outcome, string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	best := -1
	bestID := ""
	for _, e := range ix.entries {
		d := phash.Distance(sig, e.sig, ix.mode)
		if best < 0 || d < best {
			best = d
			bestID = e.id
		}
	}

	if best >= 0 && best <= ix.threshold {
		return Duplicate, bestID
	}

	ix.entries = append(ix.entries, entry{sig: sig, id: id})
	return Accepted, ""
}

// Remove drops the entry recorded under id, if present. It unwinds an
// accepted insert whose catalog write later failed, so files that
// follow cannot match against a design that was never persisted.
func (ix *Index) Remove(id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for i, e := range ix.entries {
		if e.id == id {
			ix.entries = append(ix.entries[:i], ix.entries[i+1:]...)
			return
		}
	}
}

// Len reports how many signatures the index holds.
func (ix *Index) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.entries)
}
