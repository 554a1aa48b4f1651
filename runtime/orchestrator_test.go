package runtime

import (
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/pangenie-go/genotyper/hmm"
	"github.com/pangenie-go/genotyper/kmer"
	"github.com/pangenie-go/genotyper/probability"
)

func mustSite(t *testing.T, pos int, pathToAllele []uint8, numAlleles int) *kmer.SiteSummary {
	t.Helper()
	s, err := kmer.New(pos, pathToAllele, numAlleles)
	if err != nil {
		t.Fatalf("kmer.New: %v", err)
	}
	return s
}

func mustTable(t *testing.T) *probability.Table {
	t.Helper()
	table, err := probability.New(20)
	if err != nil {
		t.Fatalf("probability.New: %v", err)
	}
	return table
}

func chromosomeSites(t *testing.T, basePos int) []*kmer.SiteSummary {
	t.Helper()
	site := mustSite(t, basePos, []uint8{0, 1}, 2)
	id, err := kmer.Pack("ACGTACGT")
	if err != nil {
		t.Fatalf("kmer.Pack: %v", err)
	}
	alleles := bitset.New(2)
	alleles.Set(0)
	if err := site.InsertKmer(id, 20, alleles); err != nil {
		t.Fatalf("InsertKmer: %v", err)
	}
	site.SetCoverage(20)
	return []*kmer.SiteSummary{site}
}

func TestRunChromosomesRunsEachJobIndependently(t *testing.T) {
	table := mustTable(t)
	jobs := []ChromosomeJob{
		{Name: "chr1", Sites: chromosomeSites(t, 100)},
		{Name: "chr2", Sites: chromosomeSites(t, 500)},
		{Name: "chr3", Sites: chromosomeSites(t, 900)},
	}
	results, errs := RunChromosomes(jobs, table, hmm.DefaultConfig(), nil, nil)
	if len(results) != len(jobs) || len(errs) != len(jobs) {
		t.Fatalf("len(results)=%d len(errs)=%d, want %d", len(results), len(errs), len(jobs))
	}
	for i, err := range errs {
		if err != nil {
			t.Fatalf("job %d (%s): %v", i, jobs[i].Name, err)
		}
		if len(results[i]) != 1 {
			t.Errorf("job %d: len(results) = %d, want 1", i, len(results[i]))
		}
		if results[i][0].Uninformative {
			t.Errorf("job %d: result marked uninformative, want informative", i)
		}
	}
}

func TestRunChromosomesIsolatesJobErrors(t *testing.T) {
	table := mustTable(t)
	jobs := []ChromosomeJob{
		{Name: "good", Sites: chromosomeSites(t, 100)},
		{Name: "empty", Sites: nil},
	}
	results, errs := RunChromosomes(jobs, table, hmm.DefaultConfig(), nil, nil)
	if errs[0] != nil {
		t.Errorf("good job returned error: %v", errs[0])
	}
	if errs[1] == nil {
		t.Errorf("empty job should have failed HMM construction")
	}
	if results[0] == nil {
		t.Errorf("good job's results should still be populated despite neighbor's failure")
	}
}

func TestRunPathSubsetsCombinesToFullPathSet(t *testing.T) {
	table := mustTable(t)
	site := mustSite(t, 100, []uint8{0, 1, 0, 1}, 2)
	id, err := kmer.Pack("ACGTACGT")
	if err != nil {
		t.Fatalf("kmer.Pack: %v", err)
	}
	alleles := bitset.New(2)
	alleles.Set(0)
	if err := site.InsertKmer(id, 20, alleles); err != nil {
		t.Fatalf("InsertKmer: %v", err)
	}
	site.SetCoverage(20)
	sites := []*kmer.SiteSummary{site}

	full, err := hmm.New(sites, table, hmm.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("hmm.New (full): %v", err)
	}
	fullResults, err := full.Run(nil)
	if err != nil {
		t.Fatalf("full Run: %v", err)
	}

	cfg := hmm.DefaultConfig()
	combined, err := RunPathSubsets(sites, table, cfg, [][]int{{0, 1}, {2, 3}}, nil, nil)
	if err != nil {
		t.Fatalf("RunPathSubsets: %v", err)
	}
	if len(combined) != 1 {
		t.Fatalf("len(combined) = %d, want 1", len(combined))
	}

	fullTotal := fullResults[0].Posteriors.Sum()
	combinedTotal := combined[0].Posteriors.Sum()
	if combinedTotal < 0.99 || combinedTotal > 1.01 {
		t.Errorf("combined posterior total = %v, want ~1 after normalization", combinedTotal)
	}
	if fullTotal < 0.99 || fullTotal > 1.01 {
		t.Errorf("full posterior total = %v, want ~1", fullTotal)
	}
}

func TestRunPathSubsetsRejectsEmptySubsetList(t *testing.T) {
	table := mustTable(t)
	sites := chromosomeSites(t, 100)
	if _, err := RunPathSubsets(sites, table, hmm.DefaultConfig(), nil, nil, nil); err == nil {
		t.Errorf("expected an error for an empty subset list")
	}
}

func TestRunPathSubsetsPropagatesSubsetError(t *testing.T) {
	table := mustTable(t)
	sites := chromosomeSites(t, 100)
	if _, err := RunPathSubsets(sites, table, hmm.DefaultConfig(), [][]int{{0, 1}, {5}}, nil, nil); err == nil {
		t.Errorf("expected an error for an out-of-range path subset")
	}
}
