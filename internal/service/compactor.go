package service

import (
	"sort"

	"github.com/spec-kit/sync-service/internal/domain"
)

// Compactor reduces a counter-ordered batch of change rows to the minimal
// equivalent set: at most one merged record per item, plus every distinct
// move/share Update that must survive individually because clients need each
// parent/share transition, not just the net state.
//
// Compaction is a pure function of its input; compacting already-compacted
// output is a no-op.
type Compactor struct{}

// NewCompactor constructs the compactor.
func NewCompactor() *Compactor {
	return &Compactor{}
}

type compactEntry struct {
	change domain.Change
	order  int
}

// Compact applies the per-item left-to-right reduction. Input must be sorted
// by counter ascending; output is sorted by the counter of each surviving
// record, ties broken by original position.
func (c *Compactor) Compact(changes []domain.Change) []domain.Change {
	merged := make(map[string]*compactEntry)
	// itemID -> previousItem fingerprint -> frozen non-mergeable Update
	frozen := make(map[string]map[string]compactEntry)

	freeze := func(change domain.Change, order int) {
		byFingerprint := frozen[change.ItemID]
		if byFingerprint == nil {
			byFingerprint = make(map[string]compactEntry)
			frozen[change.ItemID] = byFingerprint
		}
		fp := change.PreviousItem.Fingerprint()
		if _, exists := byFingerprint[fp]; !exists {
			byFingerprint[fp] = compactEntry{change: change, order: order}
		}
	}

	for i, change := range changes {
		cur, ok := merged[change.ItemID]
		if !ok {
			merged[change.ItemID] = &compactEntry{change: change, order: i}
			continue
		}

		switch cur.change.Type {
		case domain.ChangeTypeCreate:
			switch change.Type {
			case domain.ChangeTypeUpdate:
				if change.PreviousItem != nil {
					// clients need the transition even though the net
					// state is still "freshly created"
					freeze(change, i)
				}
				if change.ItemName != "" {
					cur.change.ItemName = change.ItemName
				}
			case domain.ChangeTypeDelete:
				// annihilated: the item never observably existed within
				// this window. Already-frozen transitions stay, so that
				// compacting pages separately and compacting the whole
				// window agree.
				delete(merged, change.ItemID)
			case domain.ChangeTypeCreate:
				cur.change, cur.order = change, i
			}

		case domain.ChangeTypeUpdate:
			switch change.Type {
			case domain.ChangeTypeUpdate:
				if cur.change.PreviousItem != nil {
					freeze(cur.change, cur.order)
				}
				cur.change, cur.order = change, i
			case domain.ChangeTypeDelete:
				cur.change, cur.order = change, i
			case domain.ChangeTypeCreate:
				cur.change, cur.order = change, i
			}

		case domain.ChangeTypeDelete:
			switch change.Type {
			case domain.ChangeTypeCreate:
				// resurrection: dropping it would hide a real re-creation
				cur.change, cur.order = change, i
			case domain.ChangeTypeDelete:
				cur.change, cur.order = change, i
			case domain.ChangeTypeUpdate:
				// stale update for a gone item; the delete wins
			}
		}
	}

	out := make([]compactEntry, 0, len(merged))
	for _, entry := range merged {
		out = append(out, *entry)
	}
	for _, byFingerprint := range frozen {
		for _, entry := range byFingerprint {
			out = append(out, entry)
		}
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].change.Counter != out[b].change.Counter {
			return out[a].change.Counter < out[b].change.Counter
		}
		return out[a].order < out[b].order
	})

	result := make([]domain.Change, len(out))
	for i, entry := range out {
		result[i] = entry.change
	}
	return result
}
