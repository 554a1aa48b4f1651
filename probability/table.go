// Package probability implements the emission-kernel lookup table the HMM
// engine treats as an opaque oracle (spec.md §4.2): for every
// (expected copy number, observed read count) pair it holds a precomputed
// probability term, populated once before any HMM runs and shared read-only
// across every concurrent HMM instance (spec.md §5).
package probability

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// MaxCount is the largest observed read count the table indexes directly;
// higher counts saturate to MaxCount before lookup, as spec.md §4.2 requires.
const MaxCount = 1000

// backgroundDecay is the per-read-count decay rate of the geometric
// background term used for expected_copies == 0 (error k-mers). It plays the
// same role as the fixed constants the teacher precomputes once at package
// scope in filters/pairhmm.go (e.g. indelToIndel, globalReadMismappingRate).
const backgroundDecay = 0.4

// Table is a precomputed, read-only lookup from (expected copies, observed
// count) to an emission probability term. The zero Table is not usable; use
// New or NewWithBackgroundDecay to build one.
type Table struct {
	// rows[c][n] holds the probability term for expected_copies==c and a
	// saturated observed count of n. There are three rows: 0, 1, 2 copies.
	rows [3][]float64
}

// New builds a Table for the given expected haploid coverage — the same
// unit as kmer.SiteSummary's local_coverage (spec.md §3). Row 0 uses a
// geometric background term; rows 1 and 2 use Poisson distributions with
// mean coverage and 2*coverage respectively, since a k-mer carried by two
// haplotype copies sees twice the read support of one carried by a single
// copy (spec.md §4.2).
func New(coverage float64) (*Table, error) {
	return NewWithBackgroundDecay(coverage, backgroundDecay)
}

// NewWithBackgroundDecay is New with an explicit background decay rate,
// exposed for callers (and tests) that want to deviate from the default.
func NewWithBackgroundDecay(coverage, decay float64) (*Table, error) {
	if coverage < 0 {
		return nil, fmt.Errorf("probability: negative coverage %v", coverage)
	}
	if decay <= 0 || decay >= 1 {
		return nil, fmt.Errorf("probability: background decay %v must be in (0,1)", decay)
	}
	t := &Table{}
	t.rows[0] = make([]float64, MaxCount+1)
	for n := 0; n <= MaxCount; n++ {
		t.rows[0][n] = (1 - decay) * math.Pow(decay, float64(n))
	}

	onePloid := distuv.Poisson{Lambda: math.Max(coverage, minLambda)}
	twoPloid := distuv.Poisson{Lambda: math.Max(2*coverage, minLambda)}
	t.rows[1] = make([]float64, MaxCount+1)
	t.rows[2] = make([]float64, MaxCount+1)
	for n := 0; n <= MaxCount; n++ {
		t.rows[1][n] = onePloid.Prob(float64(n))
		t.rows[2][n] = twoPloid.Prob(float64(n))
	}
	return t, nil
}

// minLambda keeps distuv.Poisson well defined even at zero coverage (a
// Poisson with Lambda==0 would hand all mass to count 0, which is also
// correct, but gonum requires Lambda > 0).
const minLambda = 1e-6

// Get returns the probability term for the given expected copy number
// (0, 1, or 2) and observed read count, saturating count to [0, MaxCount]
// first. Get panics if copies is outside [0,2], which indicates a bug in the
// caller (EmissionProbabilityComputer never produces any other value).
func (t *Table) Get(copies int, count uint16) float64 {
	if copies < 0 || copies > 2 {
		panic(fmt.Sprintf("probability: copies=%d out of range [0,2]", copies))
	}
	n := int(count)
	if n > MaxCount {
		n = MaxCount
	}
	return t.rows[copies][n]
}
