package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduceNoopUnderLimit(t *testing.T) {
	in := []Ideal{{ID: 1, Mask: 0x1FFFFFFF}, {ID: 2, Mask: 0x1FFFFFFF}}
	out := Reduce(in, 4)
	assert.ElementsMatch(t, in, out)
}

func TestReduceUnlimitedReturnsUnchanged(t *testing.T) {
	in := []Ideal{{ID: 1, Mask: 0x1FFFFFFF}, {ID: 2, Mask: 0x1FFFFFFF}, {ID: 3, Mask: 0x1FFFFFFF}}
	out := Reduce(in, 0)
	assert.ElementsMatch(t, in, out)
}

func TestReduceMergesDownToBudget(t *testing.T) {
	in := []Ideal{
		{ID: 0b0000, Mask: 0x1FFFFFFF},
		{ID: 0b0001, Mask: 0x1FFFFFFF},
		{ID: 0b0010, Mask: 0x1FFFFFFF},
		{ID: 0b0011, Mask: 0x1FFFFFFF},
	}
	out := Reduce(in, 2)
	require.Len(t, out, 2)

	// Every original id must still be accepted by some merged filter --
	// reduction may widen acceptance, never narrow it.
	for _, ideal := range in {
		accepted := false
		for _, f := range out {
			if f.Accepts(ideal.ID) {
				accepted = true
			}
		}
		assert.True(t, accepted, "id %#x not accepted by any reduced filter", ideal.ID)
	}
}

func TestReduceToSingleFilterAcceptsEverythingOriginallyWanted(t *testing.T) {
	in := []Ideal{
		{ID: 0x100, Mask: 0x1FFFFFFF},
		{ID: 0x200, Mask: 0x1FFFFFFF},
		{ID: 0x300, Mask: 0x1FFFFFFF},
	}
	out := Reduce(in, 1)
	require.Len(t, out, 1)
	for _, ideal := range in {
		assert.True(t, out[0].Accepts(ideal.ID))
	}
}

func TestMergeNeverNarrowsMask(t *testing.T) {
	a := Ideal{ID: 0b1010, Mask: 0b1111}
	b := Ideal{ID: 0b1011, Mask: 0b1111}
	m := merge(a, b)
	// Differ only in bit 0 -> that bit must be dropped from the mask.
	assert.EqualValues(t, 0b1110, m.Mask)
	assert.True(t, m.Accepts(0b1010))
	assert.True(t, m.Accepts(0b1011))
}

func TestAcceptsRespectsMask(t *testing.T) {
	f := Ideal{ID: 0b1100, Mask: 0b1100}
	assert.True(t, f.Accepts(0b1100))
	assert.True(t, f.Accepts(0b1101)) // bit 0 unmasked, don't care
	assert.False(t, f.Accepts(0b1000))
}
