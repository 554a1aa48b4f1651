// Package emission scores the likelihood of an ordered path pair at a
// variant site given the site's unique-k-mer read support (spec.md §4.3).
package emission

import (
	"github.com/pangenie-go/genotyper/kmer"
	"github.com/pangenie-go/genotyper/probability"
)

// logKmerThreshold is the unique-k-mer count at or above which the per-allele-pair
// product is accumulated in log-space to guard against underflow, per
// spec.md §4.3 ("sites with fewer than a threshold (~300) unique k-mers do
// not require log-space").
const logKmerThreshold = 300

// Computer scores ordered path pairs at one SiteSummary. It caches the
// emission product per unordered *allele* pair (not per path pair), since
// many path pairs collapse onto the same allele pair — the same caching
// trick the teacher uses per-read in filters/pairhmm.go's computeReadLikelihoods,
// adapted here to be per-site instead of per-read.
type Computer struct {
	site  *kmer.SiteSummary
	table *probability.Table

	numAlleles int
	cache      []float64 // cache[a1*numAlleles+a2], -1 until computed
}

// New returns a Computer for site, using table for the per-k-mer emission
// terms.
func New(site *kmer.SiteSummary, table *probability.Table) *Computer {
	n := site.NumAlleles()
	cache := make([]float64, n*n)
	for i := range cache {
		cache[i] = -1 // sentinel: "not yet computed" (probabilities are >= 0)
	}
	return &Computer{site: site, table: table, numAlleles: n, cache: cache}
}

// Emission returns the emission probability of the ordered state (p1,p2),
// i.e. of observing this site's k-mer read counts given that the two
// haplotypes at this site follow paths p1 and p2. Emission is symmetric:
// Emission(p1,p2) == Emission(p2,p1) (spec.md §4.3).
func (c *Computer) Emission(p1, p2 int) float64 {
	a1, a2 := c.site.AlleleOf(p1), c.site.AlleleOf(p2)
	return c.emissionForAlleles(a1, a2)
}

func (c *Computer) emissionForAlleles(a1, a2 uint8) float64 {
	if c.site.IsUndefined(a1) || c.site.IsUndefined(a2) {
		return 0
	}
	// allele pairs are symmetric; canonicalize so (a1,a2) and (a2,a1) share
	// one cache slot.
	if a1 > a2 {
		a1, a2 = a2, a1
	}
	idx := int(a1)*c.numAlleles + int(a2)
	if c.cache[idx] >= 0 {
		return c.cache[idx]
	}
	v := c.computeForAlleles(a1, a2)
	c.cache[idx] = v
	return v
}

func (c *Computer) computeForAlleles(a1, a2 uint8) float64 {
	kmers := c.site.Kmers()
	if len(kmers) < logKmerThreshold {
		product := 1.0
		for i := range kmers {
			product *= c.termFor(&kmers[i], a1, a2)
		}
		return product
	}
	return c.computeLogSpace(kmers, a1, a2)
}

func (c *Computer) computeLogSpace(kmers []kmer.KmerRecord, a1, a2 uint8) float64 {
	logSum := 0.0
	for i := range kmers {
		term := c.termFor(&kmers[i], a1, a2)
		if term <= 0 {
			return 0
		}
		logSum += safeLog(term)
	}
	return safeExp(logSum)
}

func (c *Computer) termFor(k *kmer.KmerRecord, a1, a2 uint8) float64 {
	copies := 0
	if k.AlleleSet.Test(uint(a1)) {
		copies++
	}
	if k.AlleleSet.Test(uint(a2)) {
		copies++
	}
	return c.table.Get(copies, k.ReadCount)
}
