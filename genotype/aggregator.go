package genotype

import "fmt"

// Aggregator combines per-site Results from several independent HMM runs on
// disjoint path subsets into one final sequence of Results (spec.md §4.7).
// The zero Aggregator is ready to use.
type Aggregator struct {
	results []Result
}

// NewAggregator returns an Aggregator seeded with the given per-site
// results, typically the output of one HMM run.
func NewAggregator(results []Result) *Aggregator {
	return &Aggregator{results: append([]Result(nil), results...)}
}

// Results returns the aggregator's current per-site results. The returned
// slice must not be mutated by callers.
func (agg *Aggregator) Results() []Result {
	return agg.results
}

// CombineLikelihoods adds other's posteriors into the aggregator's own,
// site by site, with no normalization, and appends other's Viterbi
// haplotypes to the corresponding site's haplotype list — spec.md §4.7's
// combine_likelihoods. It is the caller's responsibility to synchronize
// concurrent calls (spec.md §5); typically each HMM instance writes to its
// own Aggregator and results are merged serially afterward, as here.
//
// CombineLikelihoods is commutative and associative up to floating-point
// ULP (spec.md §8 invariant 5): it only ever adds already-computed
// posteriors, never divides, so call order does not affect the result
// beyond floating-point summation order.
func (agg *Aggregator) CombineLikelihoods(other *Aggregator) error {
	if len(agg.results) == 0 {
		agg.results = make([]Result, len(other.results))
	}
	if len(agg.results) != len(other.results) {
		return fmt.Errorf("genotype: cannot combine results of different lengths (%d vs %d)", len(agg.results), len(other.results))
	}
	for s := range other.results {
		dst, src := &agg.results[s], &other.results[s]
		src.Posteriors.ForEach(func(pair AllelePair, value float64) {
			dst.Posteriors.Add(pair, value)
		})
		dst.Haplotypes = append(dst.Haplotypes, src.Haplotypes...)
		if !src.Uninformative {
			dst.Uninformative = false
		} else if len(dst.Posteriors) == 0 {
			dst.Uninformative = true
		}
	}
	return nil
}

// Normalize divides every site's allele-pair posteriors by that site's
// total, so they sum to 1 — spec.md §4.7's normalize. Sites whose total is 0
// are left unchanged and tagged Uninformative, per spec.md §4.7 and §8
// invariant 1's exemption for uninformative sites.
func (agg *Aggregator) Normalize() {
	for s := range agg.results {
		r := &agg.results[s]
		total := r.Posteriors.Sum()
		if total == 0 {
			r.Uninformative = true
			continue
		}
		for i := range r.Posteriors {
			r.Posteriors[i].value /= total
		}
	}
}
