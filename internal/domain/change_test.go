package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestPreviousItemFingerprint(t *testing.T) {
	a := &PreviousItem{ParentID: strPtr("F1")}
	b := &PreviousItem{ParentID: strPtr("F1")}
	c := &PreviousItem{ParentID: strPtr("F2")}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	// a zero-value payload still fingerprints; a nil payload does not
	d := &PreviousItem{ParentID: strPtr("")}
	var e *PreviousItem
	assert.NotEmpty(t, d.Fingerprint())
	assert.Empty(t, e.Fingerprint())

	// share and resource transitions fingerprint independently
	f := &PreviousItem{ShareID: strPtr("s1")}
	g := &PreviousItem{ResourceIDs: []string{"r1", "r2"}}
	assert.NotEqual(t, f.Fingerprint(), g.Fingerprint())
}

func TestChangeTypeValid(t *testing.T) {
	assert.True(t, ChangeTypeCreate.Valid())
	assert.True(t, ChangeTypeUpdate.Valid())
	assert.True(t, ChangeTypeDelete.Valid())
	assert.False(t, ChangeType("rename").Valid())
}
