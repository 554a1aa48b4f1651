// Package transition implements the haplotype-recombination transition
// model between adjacent variant sites (spec.md §4.4): the closed-form
// two-haplotype Li-Stephens kernel, factored into three classes so the HMM
// engine's inner loop stays O(P^2) instead of the naive O(P^4).
package transition

import "math"

// Probabilities holds the three transition-probability classes between two
// adjacent sites, for a hidden state space of P*P ordered path pairs.
//
//   - NoRecombination applies when both paths are unchanged: (p1,p2)->(p1,p2).
//   - SingleRecombination applies when exactly one path changes:
//     (p1,p2)->(p1,p2') or (p1,p2)->(p1',p2), p1'!=p1, p2'!=p2.
//   - DoubleRecombination applies when both paths change:
//     (p1,p2)->(p1',p2'), p1'!=p1 and p2'!=p2.
//
// Because the kernel only depends on whether a path changed, not on which
// path it changed to, every destination state falls into exactly one class
// and the class probability is the same no matter which specific p1'/p2' is
// involved. This is what makes the O(P^2) forward/backward/Viterbi inner
// loop possible (spec.md §4.6).
type Probabilities struct {
	NumPaths             int
	NoRecombination      float64
	SingleRecombination  float64
	DoubleRecombination  float64
}

// Rho is the per-meiosis recombination probability between two sites, per
// spec.md §4.4.
func Rho(distance float64, recombrate, effectiveN float64, numPaths int, uniform bool) float64 {
	if uniform {
		return 1 / float64(numPaths)
	}
	return 1 - math.Exp(-distance*recombrate*4*effectiveN/(float64(numPaths)*1e8))
}

// New computes the three transition-probability classes for the boundary
// between two sites with the given genomic distance, recombination rate,
// effective population size, and active path count.
//
// Guarantee (spec.md §8 invariant 3): for every source state, the sum of
// outgoing transition probabilities over all P*P destination states equals 1
// within 1e-9; New's results satisfy this for any numPaths >= 1.
func New(distance, recombrate, effectiveN float64, numPaths int, uniform bool) Probabilities {
	rho := Rho(distance, recombrate, effectiveN, numPaths, uniform)
	p := float64(numPaths)

	noRecomb := (1-rho)*(1-rho) + (1/p)*rho*(1-rho)*2 + (1/p)*(1/p)*rho*rho
	single := (1-rho)*rho/p + rho*rho/(p*p)
	double := rho * rho / (p * p)

	return Probabilities{
		NumPaths:            numPaths,
		NoRecombination:     noRecomb,
		SingleRecombination: single,
		DoubleRecombination: double,
	}
}

// Of returns the transition probability from (p1,p2) to (p1p,p2p) under the
// three-class decomposition: it is NoRecombination if neither path changed,
// DoubleRecombination if both changed, and SingleRecombination otherwise.
func (t Probabilities) Of(p1, p2, p1p, p2p int) float64 {
	changed1, changed2 := p1 != p1p, p2 != p2p
	switch {
	case !changed1 && !changed2:
		return t.NoRecombination
	case changed1 && changed2:
		return t.DoubleRecombination
	default:
		return t.SingleRecombination
	}
}

// RowSum returns the sum of outgoing transition probabilities from any one
// source state across all P*P destination states — always 1 for a
// well-formed Probabilities (used by tests to verify invariant 3). There is
// exactly 1 no-recombination destination, 2*(P-1) single-recombination
// destinations, and (P-1)^2 double-recombination destinations.
func (t Probabilities) RowSum() float64 {
	p := float64(t.NumPaths)
	return t.NoRecombination + 2*(p-1)*t.SingleRecombination + (p-1)*(p-1)*t.DoubleRecombination
}
