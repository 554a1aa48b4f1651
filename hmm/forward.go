package hmm

import "github.com/pangenie-go/genotyper/emission"

// forward runs the forward pass (spec.md §4.6) over every site, returning
// the per-site normalization sums and the full sequence of scaled forward
// columns. Columns are retained for the whole run (the backward pass needs
// F[s] at every s as it streams right to left) and must be released by the
// caller via h.pool.releaseColumn once the backward pass is done with them.
func (h *HMM) forward(emitters []*emission.Computer, cancel func() bool) ([]float64, [][]float64, error) {
	numStates := h.ix.NumStates()
	norm := make([]float64, len(h.sites))
	cols := make([][]float64, len(h.sites))

	col := h.pool.acquireColumn(numStates)
	for idx := 0; idx < numStates; idx++ {
		p1, p2 := h.ix.PairOf(idx)
		col[idx] = emitters[0].Emission(p1, p2)
	}
	norm[0] = scaleColumn(col, numStates)
	cols[0] = col
	if norm[0] == 0 {
		h.stats.SitesUninformative++
		h.logger.Printf("hmm: site %d has zero total emission mass, marking uninformative", 0)
	}

	for s := 0; s+1 < len(h.sites); s++ {
		if isCancelled(cancel) {
			h.stats.Cancelled = true
			return norm[:s+1], cols[:s+1], &cancelledAt{lastCompleted: s}
		}
		trans := h.transitionAt(s)
		prev := cols[s]
		rowSum, colSum, total := transitionMarginals(prev, h.ix, h.numPaths)

		next := h.pool.acquireColumn(numStates)
		em := emitters[s+1]
		for idx := 0; idx < numStates; idx++ {
			q1, q2 := h.ix.PairOf(idx)
			weighted := transitionWeightedSum(prev, h.ix, rowSum, colSum, total, trans, q1, q2)
			next[idx] = em.Emission(q1, q2) * weighted
		}
		norm[s+1] = scaleColumn(next, numStates)
		cols[s+1] = next
		if norm[s+1] == 0 {
			h.stats.SitesUninformative++
			h.logger.Printf("hmm: site %d has zero total emission mass, marking uninformative", s+1)
		}
	}
	h.stats.SitesProcessed = len(h.sites)
	return norm, cols, nil
}

// scaleColumn normalizes col to sum to 1 and returns the pre-scaling total.
// If the total is 0 (every state's weight is zero — e.g. every defined
// allele became undefined after path restriction), col is reseeded to a
// uniform distribution instead of left as NaN, so propagation to later sites
// remains well-defined; the caller records the 0 total so the site's own
// posterior is left empty (spec.md §4.6's failure semantics).
func scaleColumn(col []float64, numStates int) float64 {
	total := 0.0
	for _, v := range col {
		total += v
	}
	if total == 0 {
		uniform := 1.0 / float64(numStates)
		for i := range col {
			col[i] = uniform
		}
		return 0
	}
	for i := range col {
		col[i] /= total
	}
	return total
}
