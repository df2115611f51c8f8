package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// ChangeType enumerates the mutation kinds tracked in the change log.
type ChangeType string

const (
	ChangeTypeCreate ChangeType = "create"
	ChangeTypeUpdate ChangeType = "update"
	ChangeTypeDelete ChangeType = "delete"
)

// Valid reports whether the type is one of the known mutation kinds.
func (t ChangeType) Valid() bool {
	switch t {
	case ChangeTypeCreate, ChangeTypeUpdate, ChangeTypeDelete:
		return true
	}
	return false
}

// PreviousItem captures the prior field values recorded on Updates that are
// relevant to move/share detection. Such Updates must survive compaction
// individually: clients need every parent/share transition, not just the
// net state.
type PreviousItem struct {
	ParentID    *string  `json:"parent_id,omitempty"`
	Name        *string  `json:"name,omitempty"`
	ShareID     *string  `json:"share_id,omitempty"`
	ResourceIDs []string `json:"resource_ids,omitempty"`
}

// Fingerprint returns a stable digest of the payload, used to deduplicate
// non-mergeable Updates during compaction.
func (p *PreviousItem) Fingerprint() string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	writeField := func(v *string) {
		if v != nil {
			b.WriteString(*v)
		}
		b.WriteByte(0x1f)
	}
	writeField(p.ParentID)
	writeField(p.Name)
	writeField(p.ShareID)
	for _, id := range p.ResourceIDs {
		b.WriteString(id)
		b.WriteByte(0x1e)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Change is one immutable log record of a mutation to one item.
//
// ID is the opaque identifier handed to clients as a cursor. Counter is the
// private monotonic ordering key assigned by the store at commit time; the
// two are deliberately distinct so the client contract never leaks storage
// semantics.
type Change struct {
	ID           string
	Counter      int64
	ItemID       string
	ItemName     string
	Type         ChangeType
	UserID       *string
	PreviousItem *PreviousItem
	CreatedTime  time.Time
}
