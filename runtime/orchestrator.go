// Package runtime schedules independent HMM runs across worker goroutines
// and combines their results, implementing the coarse-grained parallelism
// model of spec.md §5: separate chromosomes, or separate only_paths subsets
// of one chromosome, run concurrently and are merged serially afterward.
package runtime

import (
	"fmt"
	"log"

	"github.com/exascience/pargo/parallel"
	"github.com/pangenie-go/genotyper/genotype"
	"github.com/pangenie-go/genotyper/hmm"
	"github.com/pangenie-go/genotyper/kmer"
	"github.com/pangenie-go/genotyper/probability"
)

// ChromosomeJob is one chromosome's site sequence: a complete, independent
// unit of HMM work that shares the genome-wide ProbabilityTable and base
// Config with every other job.
type ChromosomeJob struct {
	Name  string
	Sites []*kmer.SiteSummary
}

// RunChromosomes runs one HMM per job, fanned out across
// runtime.NumCPU() workers via pargo's parallel.Range — the same coarse
// scheduling primitive the teacher uses in filters/pairhmm.go and
// filters/assigngls.go — and returns each job's results and error in the
// same order as jobs. One job's error never aborts its neighbors
// (spec.md §7: "No error aborts a neighbor site's computation" extends
// naturally to neighbor chromosomes).
func RunChromosomes(jobs []ChromosomeJob, table *probability.Table, config hmm.Config, logger *log.Logger, cancel func() bool) ([][]genotype.Result, []error) {
	results := make([][]genotype.Result, len(jobs))
	errs := make([]error, len(jobs))
	parallel.Range(0, len(jobs), 1, func(low, high int) {
		for i := low; i < high; i++ {
			h, err := hmm.New(jobs[i].Sites, table, config, logger)
			if err != nil {
				errs[i] = err
				continue
			}
			res, err := h.Run(cancel)
			results[i] = res
			errs[i] = err
		}
	})
	return results, errs
}

// RunPathSubsets runs one HMM per disjoint only_paths subset of a single
// chromosome concurrently, then serially combines every subset's posteriors
// via genotype.Aggregator.CombineLikelihoods and, if baseConfig.Normalize is
// set, normalizes once at the end — spec.md §4.7's combine_likelihoods plus
// §5's "merged serially at the end." Each subset HMM runs with Normalize
// disabled regardless of baseConfig, since normalizing per-subset before
// combining would double-count the final Σ=1 renormalization.
func RunPathSubsets(sites []*kmer.SiteSummary, table *probability.Table, baseConfig hmm.Config, subsets [][]int, logger *log.Logger, cancel func() bool) ([]genotype.Result, error) {
	if len(subsets) == 0 {
		return nil, fmt.Errorf("runtime: no path subsets given")
	}
	perSubset := make([][]genotype.Result, len(subsets))
	errs := make([]error, len(subsets))
	parallel.Range(0, len(subsets), 1, func(low, high int) {
		for i := low; i < high; i++ {
			cfg := baseConfig
			cfg.OnlyPaths = subsets[i]
			cfg.Normalize = false

			h, err := hmm.New(sites, table, cfg, logger)
			if err != nil {
				errs[i] = err
				continue
			}
			res, err := h.Run(cancel)
			perSubset[i] = res
			errs[i] = err
		}
	})
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("runtime: path subset %d (%v): %w", i, subsets[i], err)
		}
	}

	agg := genotype.NewAggregator(perSubset[0])
	for _, res := range perSubset[1:] {
		if err := agg.CombineLikelihoods(genotype.NewAggregator(res)); err != nil {
			return nil, fmt.Errorf("runtime: combining path subsets: %w", err)
		}
	}
	if baseConfig.Normalize {
		agg.Normalize()
	}
	return agg.Results(), nil
}
