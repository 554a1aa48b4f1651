package hmm

import (
	"github.com/pangenie-go/genotyper/colindex"
	"github.com/pangenie-go/genotyper/emission"
	"github.com/pangenie-go/genotyper/genotype"
)

// viterbiCell is a candidate source state and the value it carries, used
// while hunting for the best predecessor of a destination state.
type viterbiCell struct {
	value  float64
	p1, p2 int
}

// unsetCell marks a viterbiCell with no candidate (fewer than two distinct
// sources existed to fill it, e.g. a row of width 1). Probabilities are
// never negative, so -1 always loses to any real candidate.
var unsetCell = viterbiCell{value: -1, p1: -1, p2: -1}

// rowTop2 returns, for every p1, the best and second-best column p2 by
// value in that row — O(numPaths^2) total, reused by every destination
// state that fixes p1=q1 (the single-recombination-in-p2 candidate) and by
// the grouped double-recombination precomputation below.
func rowTop2(col []float64, ix *colindex.Indexer, numPaths int) (best, second []viterbiCell) {
	best = make([]viterbiCell, numPaths)
	second = make([]viterbiCell, numPaths)
	for p1 := 0; p1 < numPaths; p1++ {
		b, s := unsetCell, unsetCell
		for p2 := 0; p2 < numPaths; p2++ {
			v := col[ix.IndexOf(p1, p2)]
			if v > b.value {
				s = b
				b = viterbiCell{value: v, p1: p1, p2: p2}
			} else if v > s.value {
				s = viterbiCell{value: v, p1: p1, p2: p2}
			}
		}
		best[p1], second[p1] = b, s
	}
	return
}

// colTop2 is rowTop2's transpose: for every p2, the best and second-best row
// p1 by value in that column.
func colTop2(col []float64, ix *colindex.Indexer, numPaths int) (best, second []viterbiCell) {
	best = make([]viterbiCell, numPaths)
	second = make([]viterbiCell, numPaths)
	for p2 := 0; p2 < numPaths; p2++ {
		b, s := unsetCell, unsetCell
		for p1 := 0; p1 < numPaths; p1++ {
			v := col[ix.IndexOf(p1, p2)]
			if v > b.value {
				s = b
				b = viterbiCell{value: v, p1: p1, p2: p2}
			} else if v > s.value {
				s = viterbiCell{value: v, p1: p1, p2: p2}
			}
		}
		best[p2], second[p2] = b, s
	}
	return
}

// doubleTop2 answers, for every destination column q2, "the best and
// second-best rows, each row scored by its best entry outside column q2"
// (a row whose best entry sits in column q2 uses its second-best) — the
// value needed for the double-recombination candidate (p1 != q1 AND
// p2 != q2), computed for every q2 in one O(numPaths^2) sweep instead of a
// per-destination O(numPaths) scan (which would cost O(numPaths^3) overall).
func doubleTop2(rowBest, rowSecond []viterbiCell, numPaths int) (best, second []viterbiCell) {
	best = make([]viterbiCell, numPaths)
	second = make([]viterbiCell, numPaths)
	for q2 := 0; q2 < numPaths; q2++ {
		b, s := unsetCell, unsetCell
		for p1 := 0; p1 < numPaths; p1++ {
			patched := rowBest[p1]
			if patched.p2 == q2 {
				patched = rowSecond[p1]
			}
			if patched.value < 0 {
				continue
			}
			if patched.value > b.value {
				s = b
				b = patched
			} else if patched.value > s.value {
				s = patched
			}
		}
		best[q2], second[q2] = b, s
	}
	return
}

// viterbi runs the Viterbi pass (spec.md §4.6) and attaches the chosen
// (p1,p2) haplotype pair to every site's Result.Haplotypes.
func (h *HMM) viterbi(emitters []*emission.Computer, results []genotype.Result, cancel func() bool) error {
	numStates := h.ix.NumStates()
	numPaths := h.numPaths

	col := h.pool.acquireColumn(numStates)
	for idx := 0; idx < numStates; idx++ {
		p1, p2 := h.ix.PairOf(idx)
		col[idx] = emitters[0].Emission(p1, p2)
	}
	scaleColumnMax(col)

	backtraces := make([][]uint64, len(h.sites))
	for s := 0; s+1 < len(h.sites); s++ {
		if isCancelled(cancel) {
			h.pool.releaseColumn(col)
			h.stats.Cancelled = true
			return &cancelledAt{lastCompleted: s}
		}
		trans := h.transitionAt(s)
		em := emitters[s+1]

		rowBest, rowSecond := rowTop2(col, h.ix, numPaths)
		colBest, colSecond := colTop2(col, h.ix, numPaths)
		dblBest, dblSecond := doubleTop2(rowBest, rowSecond, numPaths)

		next := h.pool.acquireColumn(numStates)
		bt := h.pool.acquireBacktrace(numStates)
		for idx := 0; idx < numStates; idx++ {
			q1, q2 := h.ix.PairOf(idx)

			bestVal, bestSrc := col[idx]*trans.NoRecombination, h.ix.IndexOf(q1, q2)

			candA := rowBest[q1]
			if candA.p2 == q2 {
				candA = rowSecond[q1]
			}
			if candA.value >= 0 {
				if v := candA.value * trans.SingleRecombination; v > bestVal || (v == bestVal && h.ix.IndexOf(q1, candA.p2) < bestSrc) {
					bestVal, bestSrc = v, h.ix.IndexOf(q1, candA.p2)
				}
			}

			candB := colBest[q2]
			if candB.p1 == q1 {
				candB = colSecond[q2]
			}
			if candB.value >= 0 {
				if v := candB.value * trans.SingleRecombination; v > bestVal || (v == bestVal && h.ix.IndexOf(candB.p1, q2) < bestSrc) {
					bestVal, bestSrc = v, h.ix.IndexOf(candB.p1, q2)
				}
			}

			candD := dblBest[q2]
			if candD.p1 == q1 {
				candD = dblSecond[q2]
			}
			if candD.value >= 0 {
				if v := candD.value * trans.DoubleRecombination; v > bestVal || (v == bestVal && h.ix.IndexOf(candD.p1, candD.p2) < bestSrc) {
					bestVal, bestSrc = v, h.ix.IndexOf(candD.p1, candD.p2)
				}
			}

			next[idx] = em.Emission(q1, q2) * bestVal
			bt[idx] = uint64(bestSrc)
		}
		scaleColumnMax(next)
		h.pool.releaseColumn(col)
		col = next
		backtraces[s+1] = bt
	}

	finalIdx := 0
	for idx := 1; idx < numStates; idx++ {
		if col[idx] > col[finalIdx] {
			finalIdx = idx
		}
	}
	h.pool.releaseColumn(col)

	current := finalIdx
	for s := len(h.sites) - 1; s >= 0; s-- {
		p1, p2 := h.ix.PairOf(current)
		results[s].Haplotypes = append(results[s].Haplotypes, genotype.Haplotype{Path1: p1, Path2: p2})
		if s > 0 {
			current = int(backtraces[s][current])
			h.pool.releaseBacktrace(backtraces[s])
		}
	}
	return nil
}

// scaleColumnMax divides col by its maximum value, keeping Viterbi scores in
// a stable range without affecting the backtrace (spec.md §4.6: "the
// backtrace is invariant to monotone per-column rescaling"). A column that
// is all zero (every state impossible) is left as-is.
func scaleColumnMax(col []float64) {
	max := 0.0
	for _, v := range col {
		if v > max {
			max = v
		}
	}
	if max == 0 {
		return
	}
	for i := range col {
		col[i] /= max
	}
}
