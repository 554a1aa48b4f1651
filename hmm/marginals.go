package hmm

import (
	"github.com/pangenie-go/genotyper/colindex"
	"github.com/pangenie-go/genotyper/transition"
)

// transitionMarginals computes, for a column col of P*P state weights, the
// per-row sums (fixing the first coordinate), per-column sums (fixing the
// second coordinate), and the grand total — the three quantities the
// factorized Li-Stephens kernel needs to answer a transitionWeightedSum
// query for any destination state in O(1), turning what would otherwise be
// an O(P^2) source scan per destination into one O(P^2) precomputation over
// the column (spec.md §4.4, §4.6).
func transitionMarginals(col []float64, ix *colindex.Indexer, numPaths int) (rowSum, colSum []float64, total float64) {
	rowSum = make([]float64, numPaths)
	colSum = make([]float64, numPaths)
	for p1 := 0; p1 < numPaths; p1++ {
		for p2 := 0; p2 < numPaths; p2++ {
			v := col[ix.IndexOf(p1, p2)]
			rowSum[p1] += v
			colSum[p2] += v
			total += v
		}
	}
	return
}

// transitionWeightedSum returns Σ_{src} col[src] * T(src -> (q1,q2)), using
// the three-class decomposition and the precomputed marginals from
// transitionMarginals. This is the same computation whether col holds
// forward probabilities (query = destination state) or an emission-weighted
// backward column (query = source state): the kernel's class only depends
// on which coordinates match, so the algebra is identical either way.
func transitionWeightedSum(col []float64, ix *colindex.Indexer, rowSum, colSum []float64, total float64, trans transition.Probabilities, q1, q2 int) float64 {
	v := col[ix.IndexOf(q1, q2)]
	sameRowOtherCol := rowSum[q1] - v
	sameColOtherRow := colSum[q2] - v
	neitherMatch := total - rowSum[q1] - colSum[q2] + v
	return trans.NoRecombination*v +
		trans.SingleRecombination*(sameRowOtherCol+sameColOtherRow) +
		trans.DoubleRecombination*neitherMatch
}
