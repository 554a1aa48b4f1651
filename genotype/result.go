// Package genotype holds the per-site genotyping output of the HMM engine
// (spec.md §3's GenotypingResult) and the ResultAggregator that combines
// results from independent HMM runs on disjoint path subsets (spec.md §4.7).
package genotype

import "fmt"

// AllelePair is an unordered pair of allele indices {a, b}, canonicalized so
// A <= B.
type AllelePair struct {
	A, B uint8
}

// NewAllelePair returns the AllelePair for alleles a and b in canonical
// (sorted) order.
func NewAllelePair(a, b uint8) AllelePair {
	if a > b {
		a, b = b, a
	}
	return AllelePair{A: a, B: b}
}

// pairEntry is one entry in a PairMap.
type pairEntry struct {
	pair  AllelePair
	value float64
}

// PairMap maps AllelePair to a posterior probability. Sites typically carry
// only a handful of distinct allele pairs, so PairMap is a small ordered
// slice scanned linearly rather than a native Go map — adapted directly from
// the teacher's utils.SmallMap, which makes the same trade for the same
// reason (few entries, and deterministic iteration order, which here matters
// for the Σ-to-1 normalization check in spec.md §8 invariant 1).
type PairMap []pairEntry

// Get returns the probability associated with pair, and whether pair has an
// entry at all.
func (m PairMap) Get(pair AllelePair) (float64, bool) {
	for i := range m {
		if m[i].pair == pair {
			return m[i].value, true
		}
	}
	return 0, false
}

// Add adds delta to the entry for pair, creating it (at value delta) if it
// does not yet exist.
func (m *PairMap) Add(pair AllelePair, delta float64) {
	for i := range *m {
		if (*m)[i].pair == pair {
			(*m)[i].value += delta
			return
		}
	}
	*m = append(*m, pairEntry{pair: pair, value: delta})
}

// Set overwrites (or creates) the entry for pair with value.
func (m *PairMap) Set(pair AllelePair, value float64) {
	for i := range *m {
		if (*m)[i].pair == pair {
			(*m)[i].value = value
			return
		}
	}
	*m = append(*m, pairEntry{pair: pair, value: value})
}

// Sum returns the sum of every entry's value.
func (m PairMap) Sum() float64 {
	var sum float64
	for i := range m {
		sum += m[i].value
	}
	return sum
}

// Pairs returns every AllelePair with an entry, in insertion order.
func (m PairMap) Pairs() []AllelePair {
	result := make([]AllelePair, len(m))
	for i := range m {
		result[i] = m[i].pair
	}
	return result
}

// ForEach calls f once for each entry, in insertion order.
func (m PairMap) ForEach(f func(pair AllelePair, value float64)) {
	for i := range m {
		f(m[i].pair, m[i].value)
	}
}

// Haplotype is a Viterbi phasing hypothesis: the pair of path indices chosen
// at one site.
type Haplotype struct {
	Path1, Path2 int
}

// Result is the genotyping outcome for one variant site: posterior
// probabilities over unordered allele pairs, plus zero or more phasing
// hypotheses (normally one, from a single HMM run's Viterbi pass; more if
// several HMM runs' Viterbi results were combined — spec.md §4.7).
type Result struct {
	Posteriors    PairMap
	Haplotypes    []Haplotype
	Uninformative bool
}

// NewResult returns an empty Result: no posteriors, no haplotypes, and
// Uninformative false.
func NewResult() Result {
	return Result{}
}

// SumCheck returns an error if, for an informative result, the posteriors do
// not sum to 1 within tolerance — spec.md §8 invariant 1. Uninformative
// results are exempt.
func (r Result) SumCheck(tolerance float64) error {
	if r.Uninformative {
		return nil
	}
	sum := r.Posteriors.Sum()
	if diff := sum - 1; diff > tolerance || diff < -tolerance {
		return fmt.Errorf("genotype: posteriors sum to %v, want 1 (+-%v)", sum, tolerance)
	}
	return nil
}
