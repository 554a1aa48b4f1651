package hmm

import (
	"math"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/pangenie-go/genotyper/genotype"
	"github.com/pangenie-go/genotyper/kmer"
	"github.com/pangenie-go/genotyper/probability"
)

func set(ids ...uint) *bitset.BitSet {
	b := bitset.New(8)
	for _, id := range ids {
		b.Set(id)
	}
	return b
}

func mustSite(t *testing.T, pos int, pathToAllele []uint8, numAlleles int) *kmer.SiteSummary {
	t.Helper()
	s, err := kmer.New(pos, pathToAllele, numAlleles)
	if err != nil {
		t.Fatalf("kmer.New: %v", err)
	}
	return s
}

func mustKmerID(t *testing.T, bases string) kmer.ID {
	t.Helper()
	id, err := kmer.Pack(bases)
	if err != nil {
		t.Fatalf("kmer.Pack(%q): %v", bases, err)
	}
	return id
}

// TestSingleSiteTwoPathsS1 covers spec.md scenario S1.
func TestSingleSiteTwoPathsS1(t *testing.T) {
	site := mustSite(t, 100, []uint8{0, 1}, 2)
	if err := site.InsertKmer(mustKmerID(t, "ACGTACGT"), 20, set(0)); err != nil {
		t.Fatalf("InsertKmer: %v", err)
	}
	site.SetCoverage(20)
	table, err := probability.New(20)
	if err != nil {
		t.Fatalf("probability.New: %v", err)
	}

	h, err := New([]*kmer.SiteSummary{site}, table, DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	results, err := h.Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	r := results[0]
	if r.Uninformative {
		t.Fatalf("result marked uninformative, want informative")
	}
	het, _ := r.Posteriors.Get(genotype.NewAllelePair(0, 1))
	homRef, _ := r.Posteriors.Get(genotype.NewAllelePair(0, 0))
	homAlt, _ := r.Posteriors.Get(genotype.NewAllelePair(1, 1))
	if het < 0.99 {
		t.Errorf("posterior({a0,a1}) = %v, want >= 0.99", het)
	}
	if homRef > 0.01 || homAlt > 0.01 {
		t.Errorf("posterior(hom) = %v/%v, want both <= 0.01", homRef, homAlt)
	}
	if len(r.Haplotypes) != 1 {
		t.Fatalf("len(Haplotypes) = %d, want 1", len(r.Haplotypes))
	}
	hap := r.Haplotypes[0]
	if !((hap.Path1 == 0 && hap.Path2 == 1) || (hap.Path1 == 1 && hap.Path2 == 0)) {
		t.Errorf("Viterbi haplotype = %+v, want (0,1) or (1,0)", hap)
	}
}

// buildConsistentSites builds n sites with two paths (path 0 carrying allele
// 0, path 1 carrying allele 1) whose k-mer counts are consistent with both
// haplotypes following path 0: one allele-0 k-mer read 40 times at haploid
// coverage 20, i.e. two copies. Used for S2.
func buildConsistentSites(t *testing.T, n int) []*kmer.SiteSummary {
	t.Helper()
	sites := make([]*kmer.SiteSummary, n)
	for i := 0; i < n; i++ {
		site := mustSite(t, 1000*(i+1), []uint8{0, 1}, 2)
		bases := []byte("AAAAAAAA")
		bases[0] = "ACGT"[i%4]
		if err := site.InsertKmer(mustKmerID(t, string(bases)), 40, set(0)); err != nil {
			t.Fatalf("InsertKmer: %v", err)
		}
		site.SetCoverage(20)
		sites[i] = site
	}
	return sites
}

// TestThreeSitesNoRecombinationS2 covers spec.md scenario S2.
func TestThreeSitesNoRecombinationS2(t *testing.T) {
	sites := buildConsistentSites(t, 3)
	table, _ := probability.New(20)
	cfg := DefaultConfig()
	cfg.Recombrate = 1.26
	h, err := New(sites, table, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	results, err := h.Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, r := range results {
		if r.Uninformative {
			t.Fatalf("site %d marked uninformative", i)
		}
		homRef, _ := r.Posteriors.Get(genotype.NewAllelePair(0, 0))
		if homRef <= 0.99 {
			t.Errorf("site %d: posterior({a0,a0}) = %v, want > 0.99", i, homRef)
		}
		if len(r.Haplotypes) != 1 {
			t.Fatalf("site %d: len(Haplotypes) = %d, want 1", i, len(r.Haplotypes))
		}
		hap := r.Haplotypes[0]
		if hap.Path1 != hap.Path2 {
			t.Errorf("site %d: Viterbi haplotype = %+v, want both paths equal", i, hap)
		}
	}
}

// TestAllZeroEmissionsUninformativeS3 covers spec.md scenario S3.
func TestAllZeroEmissionsUninformativeS3(t *testing.T) {
	sites := make([]*kmer.SiteSummary, 2)
	for i := range sites {
		site := mustSite(t, 100*(i+1), []uint8{0, 1, 2, 3}, 4)
		// no k-mers inserted at all: every state's emission is the empty
		// product, which is 1, not 0 -- so force zero emission mass by
		// marking every allele undefined instead.
		for a := uint8(0); a < 4; a++ {
			site.SetUndefined(a)
		}
		sites[i] = site
	}
	table, _ := probability.New(20)
	cfg := DefaultConfig()
	cfg.Uniform = true
	h, err := New(sites, table, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	results, err := h.Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, r := range results {
		if !r.Uninformative {
			t.Errorf("site %d: want uninformative, got posteriors %v", i, r.Posteriors)
		}
	}
}

// TestOnlyPathsRestrictionS4 covers spec.md scenario S4: only_paths=[0,2] on
// a 4-path site matches a direct 2-path HMM on the same underlying data.
func TestOnlyPathsRestrictionS4(t *testing.T) {
	full := mustSite(t, 100, []uint8{0, 1, 0, 1}, 2)
	if err := full.InsertKmer(mustKmerID(t, "ACGTACGT"), 20, set(0)); err != nil {
		t.Fatalf("InsertKmer: %v", err)
	}
	full.SetCoverage(20)
	table, _ := probability.New(20)

	cfg := DefaultConfig()
	cfg.OnlyPaths = []int{0, 2}
	h, err := New([]*kmer.SiteSummary{full}, table, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	restricted, err := h.Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	direct := mustSite(t, 100, []uint8{0, 0}, 2)
	if err := direct.InsertKmer(mustKmerID(t, "ACGTACGT"), 20, set(0)); err != nil {
		t.Fatalf("InsertKmer: %v", err)
	}
	direct.SetCoverage(20)
	h2, err := New([]*kmer.SiteSummary{direct}, table, DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	directResults, err := h2.Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, pair := range []genotype.AllelePair{genotype.NewAllelePair(0, 0), genotype.NewAllelePair(0, 1), genotype.NewAllelePair(1, 1)} {
		got, _ := restricted[0].Posteriors.Get(pair)
		want, _ := directResults[0].Posteriors.Get(pair)
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("pair %v: restricted posterior = %v, direct 2-path posterior = %v", pair, got, want)
		}
	}
	if full.NumPaths() != 4 {
		t.Errorf("hmm.New mutated the caller's SiteSummary: NumPaths() = %d, want 4", full.NumPaths())
	}
}

// TestUndefinedAlleleDoesNotContaminateNeighborsS6 covers spec.md scenario S6.
func TestUndefinedAlleleDoesNotContaminateNeighborsS6(t *testing.T) {
	before := mustSite(t, 100, []uint8{0, 1}, 2)
	_ = before.InsertKmer(mustKmerID(t, "AAAACCCC"), 20, set(0))
	before.SetCoverage(20)

	undefined := mustSite(t, 200, []uint8{0, 1}, 2)
	// mark every allele undefined: a single undefined allele still leaves the
	// homozygous defined-allele state with an empty-product emission of 1,
	// which keeps the column informative instead of forcing zero mass.
	undefined.SetUndefined(0)
	undefined.SetUndefined(1)

	after := mustSite(t, 300, []uint8{0, 1}, 2)
	_ = after.InsertKmer(mustKmerID(t, "GGGGTTTT"), 20, set(0))
	after.SetCoverage(20)

	table, _ := probability.New(20)
	h, err := New([]*kmer.SiteSummary{before, undefined, after}, table, DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	results, err := h.Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !results[1].Uninformative {
		t.Errorf("site 1 (undefined allele, zero emission mass) should be uninformative")
	}
	if results[0].Uninformative {
		t.Errorf("site 0 should not be contaminated by site 1's zero mass")
	}
	if results[2].Uninformative {
		t.Errorf("site 2 should not be contaminated by site 1's zero mass")
	}
	if err := results[0].SumCheck(1e-6); err != nil {
		t.Errorf("site 0 SumCheck: %v", err)
	}
	if err := results[2].SumCheck(1e-6); err != nil {
		t.Errorf("site 2 SumCheck: %v", err)
	}
}

// TestForwardBackwardConsistency covers spec.md invariant 2: at every
// informative site, posteriors already sum to 1 before any final
// normalize() pass (forward*backward/norm is itself a probability
// distribution, not merely proportional to one).
func TestForwardBackwardConsistency(t *testing.T) {
	sites := buildConsistentSites(t, 4)
	table, _ := probability.New(20)
	cfg := DefaultConfig()
	cfg.Normalize = false
	h, err := New(sites, table, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	results, err := h.Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, r := range results {
		if r.Uninformative {
			t.Fatalf("site %d unexpectedly uninformative", i)
		}
		if err := r.SumCheck(1e-6); err != nil {
			t.Errorf("site %d: %v", i, err)
		}
	}
}

// TestUniformEmissionsEqualPosterior covers spec.md invariant 6: with
// uniform=true and every state's emission equal (achieved here via no
// k-mers at all, so every allele pair's product is the empty product, 1),
// every diagonal (homozygous) pair gets equal posterior, and every
// off-diagonal (heterozygous) pair gets exactly twice that, since aggregation
// sums both ordered states (p1,p2) and (p2,p1) into the one unordered pair.
func TestUniformEmissionsEqualPosterior(t *testing.T) {
	sites := make([]*kmer.SiteSummary, 2)
	for i := range sites {
		sites[i] = mustSite(t, 100*(i+1), []uint8{0, 1, 2}, 3)
	}
	table, _ := probability.New(20)
	cfg := DefaultConfig()
	cfg.Uniform = true
	h, err := New(sites, table, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	results, err := h.Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	diagonal := []genotype.AllelePair{
		genotype.NewAllelePair(0, 0), genotype.NewAllelePair(1, 1), genotype.NewAllelePair(2, 2),
	}
	offDiagonal := []genotype.AllelePair{
		genotype.NewAllelePair(0, 1), genotype.NewAllelePair(0, 2), genotype.NewAllelePair(1, 2),
	}
	for i, r := range results {
		if r.Uninformative {
			t.Fatalf("site %d unexpectedly uninformative", i)
		}
		base, _ := r.Posteriors.Get(diagonal[0])
		for _, p := range diagonal[1:] {
			v, ok := r.Posteriors.Get(p)
			if !ok {
				t.Fatalf("site %d: missing pair %v", i, p)
			}
			if math.Abs(v-base) > 1e-9 {
				t.Errorf("site %d: posterior(%v) = %v, posterior(%v) = %v, want equal", i, diagonal[0], base, p, v)
			}
		}
		for _, p := range offDiagonal {
			v, ok := r.Posteriors.Get(p)
			if !ok {
				t.Fatalf("site %d: missing pair %v", i, p)
			}
			if math.Abs(v-2*base) > 1e-9 {
				t.Errorf("site %d: posterior(%v) = %v, want 2*posterior(%v) = %v", i, p, v, diagonal[0], 2*base)
			}
		}
	}
}

// TestPathRestrictionIdempotence covers spec.md invariant 7: only_paths =
// [0..P-1] (the full path set, just reordered identically) yields identical
// results to not restricting at all.
func TestPathRestrictionIdempotence(t *testing.T) {
	sites := buildConsistentSites(t, 3)
	table, _ := probability.New(20)

	baseline, err := New(sites, table, DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	baseResults, err := baseline.Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	cfg := DefaultConfig()
	cfg.OnlyPaths = []int{0, 1}
	restricted, err := New(sites, table, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	restrictedResults, err := restricted.Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i := range sites {
		for _, pair := range []genotype.AllelePair{genotype.NewAllelePair(0, 0), genotype.NewAllelePair(0, 1), genotype.NewAllelePair(1, 1)} {
			want, _ := baseResults[i].Posteriors.Get(pair)
			got, _ := restrictedResults[i].Posteriors.Get(pair)
			if math.Abs(got-want) > 1e-9 {
				t.Errorf("site %d pair %v: restricted=%v baseline=%v", i, pair, got, want)
			}
		}
	}
}

func TestNewRejectsBothPassesDisabled(t *testing.T) {
	table, _ := probability.New(20)
	cfg := Config{}
	if _, err := New(nil, table, cfg, nil); err == nil {
		t.Errorf("expected ConfigError when both run_genotyping and run_phasing are false")
	} else if _, ok := err.(*ConfigError); !ok {
		t.Errorf("expected *ConfigError, got %T", err)
	}
}

func TestNewRejectsMismatchedPathCounts(t *testing.T) {
	site1 := mustSite(t, 100, []uint8{0, 1}, 2)
	site2 := mustSite(t, 200, []uint8{0, 1, 0}, 2)
	table, _ := probability.New(20)
	if _, err := New([]*kmer.SiteSummary{site1, site2}, table, DefaultConfig(), nil); err == nil {
		t.Errorf("expected DataError for mismatched path counts across sites")
	}
}

func TestRunReportsStats(t *testing.T) {
	sites := buildConsistentSites(t, 5)
	table, _ := probability.New(20)
	h, err := New(sites, table, DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := h.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	stats := h.Stats()
	if stats.SitesProcessed != 5 {
		t.Errorf("SitesProcessed = %d, want 5", stats.SitesProcessed)
	}
	if stats.Cancelled {
		t.Errorf("Cancelled = true, want false")
	}
}

func TestRunRespectsCancellation(t *testing.T) {
	sites := buildConsistentSites(t, 10)
	table, _ := probability.New(20)
	h, err := New(sites, table, DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	calls := 0
	cancel := func() bool {
		calls++
		return calls > 2
	}
	results, err := h.Run(cancel)
	if err == nil {
		t.Fatalf("expected a cancellation error")
	}
	if !h.Stats().Cancelled {
		t.Errorf("Stats().Cancelled = false, want true")
	}
	found := false
	for _, r := range results {
		if r.Uninformative {
			found = true
		}
	}
	if !found {
		t.Errorf("expected at least one uninformative tail result after cancellation")
	}
}
