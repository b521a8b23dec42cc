// Package filter synthesizes CAN hardware acceptance filters from the set
// of CanId/mask pairs a node actually wants to receive, per SPEC_FULL.md
// §4.7: most CAN controllers expose only a handful of (id, mask) filter
// banks, far fewer than the number of subjects/services a node subscribes
// to, so the ideal one-filter-per-subscription set has to be merged down.
package filter

import "math/bits"

// Ideal is one acceptance rule a subscription wants enforced exactly:
// accept frames where (frameID & Mask) == (ID & Mask).
type Ideal struct {
	ID   uint32
	Mask uint32
}

// merge combines two filters into the smallest single filter that accepts
// everything either of them would have, by construction: a bit the two
// inputs disagree on (their ids differ at that bit) can no longer be
// masked, since one wants it 0-and-checked and the other wants it
// 1-and-checked; `a.Mask & b.Mask &^ (a.ID ^ b.ID)` is exactly "keep masking bits
// both inputs mask and agree on, drop the rest".
func merge(a, b Ideal) Ideal {
	return Ideal{
		ID:   a.ID & b.ID,
		Mask: a.Mask & b.Mask &^ (a.ID ^ b.ID),
	}
}

// cost estimates how many CAN identifiers beyond what was actually asked
// for a filter now spuriously accepts: every mask bit a merge had to drop
// doubles the acceptance space, so cost is 2^(unmasked bits) - 1,
// approximated here (for ranking purposes only) by population count of
// the cleared mask bits.
func cost(f Ideal) int {
	return bits.OnesCount32(^f.Mask & 0x1FFFFFFF)
}

// mergeCost is the cost increase merging a and b would cause, used to pick
// the cheapest pairwise merge at each step of the greedy reduction.
func mergeCost(a, b Ideal) int {
	return cost(merge(a, b)) - cost(a) - cost(b)
}

// Reduce merges ideal down to at most maxFilters hardware filters, greedily
// combining whichever pair increases total spurious-acceptance cost the
// least at each step, until the count fits. If len(ideal) <= maxFilters
// already, it is returned unchanged (as a copy). maxFilters <= 0 is
// treated as "no limit" and ideal is returned unchanged.
func Reduce(ideal []Ideal, maxFilters int) []Ideal {
	cur := make([]Ideal, len(ideal))
	copy(cur, ideal)

	if maxFilters <= 0 || len(cur) <= maxFilters {
		return cur
	}

	for len(cur) > maxFilters {
		bi, bj, bestCost := -1, -1, 0
		for i := 0; i < len(cur); i++ {
			for j := i + 1; j < len(cur); j++ {
				c := mergeCost(cur[i], cur[j])
				if bi == -1 || c < bestCost {
					bi, bj, bestCost = i, j, c
				}
			}
		}
		merged := merge(cur[bi], cur[bj])
		next := make([]Ideal, 0, len(cur)-1)
		for i, f := range cur {
			if i == bi || i == bj {
				continue
			}
			next = append(next, f)
		}
		next = append(next, merged)
		cur = next
	}
	return cur
}

// Accepts reports whether a hardware filter f would let a frame with the
// given CanId through.
func (f Ideal) Accepts(id uint32) bool {
	return id&f.Mask == f.ID&f.Mask
}
