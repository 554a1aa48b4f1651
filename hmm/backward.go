package hmm

import (
	"github.com/pangenie-go/genotyper/emission"
	"github.com/pangenie-go/genotyper/genotype"
)

// backwardAndAggregate runs the backward pass right to left (spec.md §4.6),
// retaining only one backward column at a time, and at each site multiplies
// it into the already-computed forward column to aggregate that site's
// posterior into results. forwardCols and norm come from forward; results
// must already be sized to len(h.sites).
func (h *HMM) backwardAndAggregate(emitters []*emission.Computer, norm []float64, forwardCols [][]float64, results []genotype.Result, cancel func() bool) error {
	numStates := h.ix.NumStates()
	last := len(h.sites) - 1

	b := h.pool.acquireColumn(numStates)
	for i := range b {
		b[i] = 1
	}
	h.aggregatePosterior(last, forwardCols[last], b, norm[last], &results[last])

	for s := last - 1; s >= 0; s-- {
		if isCancelled(cancel) {
			h.pool.releaseColumn(b)
			h.stats.Cancelled = true
			for i := 0; i <= s; i++ {
				results[i].Uninformative = true
			}
			return &cancelledAt{lastCompleted: s + 1}
		}

		next := h.pool.acquireColumn(numStates)
		if norm[s+1] == 0 {
			// Site s+1 carried no emission mass and the forward pass reseeded
			// after it, so the backward column restarts here as at the last
			// site: site s's posterior is not zeroed by its empty neighbor.
			for idx := range next {
				next[idx] = 1
			}
		} else {
			trans := h.transitionAt(s)
			em := emitters[s+1]

			weighted := h.pool.acquireColumn(numStates)
			for idx := 0; idx < numStates; idx++ {
				q1, q2 := h.ix.PairOf(idx)
				weighted[idx] = em.Emission(q1, q2) * b[idx]
			}
			rowSum, colSum, total := transitionMarginals(weighted, h.ix, h.numPaths)

			for idx := 0; idx < numStates; idx++ {
				p1, p2 := h.ix.PairOf(idx)
				next[idx] = transitionWeightedSum(weighted, h.ix, rowSum, colSum, total, trans, p1, p2) / norm[s+1]
			}
			h.pool.releaseColumn(weighted)
		}
		h.pool.releaseColumn(b)
		b = next

		h.aggregatePosterior(s, forwardCols[s], b, norm[s], &results[s])
	}
	h.pool.releaseColumn(b)
	return nil
}

// aggregatePosterior computes, for an informative site, γ(state) =
// forward(state)*backward(state) for every state and adds it into result's
// posterior under the state's unordered allele pair (spec.md §4.6's
// posterior aggregation). A site whose forward total was 0 is left with an
// empty posterior and marked Uninformative instead (spec.md's failure
// semantics; invariant 1 exempts these sites from the Σ=1 check).
func (h *HMM) aggregatePosterior(siteIdx int, fCol, bCol []float64, siteNorm float64, result *genotype.Result) {
	if siteNorm == 0 {
		result.Uninformative = true
		return
	}
	site := h.sites[siteIdx]
	numStates := h.ix.NumStates()
	for idx := 0; idx < numStates; idx++ {
		p1, p2 := h.ix.PairOf(idx)
		gamma := fCol[idx] * bCol[idx]
		pair := genotype.NewAllelePair(site.AlleleOf(p1), site.AlleleOf(p2))
		result.Posteriors.Add(pair, gamma)
	}
}
