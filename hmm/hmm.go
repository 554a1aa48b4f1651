// Package hmm implements the per-chromosome genotyping and phasing engine
// (spec.md §4.6): forward, backward, and Viterbi passes over a sequence of
// SiteSummary values, using the factorized Li-Stephens transition kernel and
// the emission model to produce per-site genotype posteriors and, optionally,
// a most-likely haplotype path assignment.
package hmm

import (
	"fmt"
	"log"

	"github.com/pangenie-go/genotyper/colindex"
	"github.com/pangenie-go/genotyper/emission"
	"github.com/pangenie-go/genotyper/genotype"
	"github.com/pangenie-go/genotyper/kmer"
	"github.com/pangenie-go/genotyper/probability"
	"github.com/pangenie-go/genotyper/transition"
)

// Config is the HMM constructor's parameter set (spec.md §6).
type Config struct {
	RunGenotyping bool
	RunPhasing    bool
	Recombrate    float64
	Uniform       bool
	EffectiveN    float64
	OnlyPaths     []int
	Normalize     bool
}

// DefaultConfig returns the configuration defaults named in spec.md §6:
// recombrate 1.26, effective_N 25000, normalize true, uniform false, and
// both passes enabled.
func DefaultConfig() Config {
	return Config{
		RunGenotyping: true,
		RunPhasing:    true,
		Recombrate:    1.26,
		EffectiveN:    25000,
		Normalize:     true,
	}
}

// Stats are per-run diagnostics, the extension point SPEC_FULL.md §10 names
// for callers that want to feed a metrics system of their own.
type Stats struct {
	SitesProcessed     int
	SitesUninformative int
	Cancelled          bool
}

// HMM is one run of the genotyping/phasing engine over a fixed sequence of
// sites and a fixed active path set. Construct with New; an HMM is used for
// exactly one Run.
type HMM struct {
	sites  []*kmer.SiteSummary
	table  *probability.Table
	config Config
	logger *log.Logger

	numPaths int
	ix       *colindex.Indexer
	pool     columnPool
	stats    Stats
}

// New validates config and sites and returns an HMM ready to Run. If
// config.OnlyPaths is non-empty, every site is restricted to that path
// subset via kmer.SiteSummary.RestrictPaths on a private working copy — the
// caller's sites slice and its SiteSummary values are never mutated
// (spec.md §4.6, SPEC_FULL.md §9). logger may be nil, in which case
// log.Default() is used for NumericWarning diagnostics (spec.md §7).
func New(sites []*kmer.SiteSummary, table *probability.Table, config Config, logger *log.Logger) (*HMM, error) {
	if !config.RunGenotyping && !config.RunPhasing {
		return nil, &ConfigError{Reason: "run_genotyping and run_phasing are both false: nothing to compute"}
	}
	if table == nil {
		return nil, &ConfigError{Reason: "probability table is nil"}
	}
	if logger == nil {
		logger = log.Default()
	}
	if len(sites) == 0 {
		return nil, &DataError{SiteIndex: 0, Reason: "empty site sequence: zero active paths"}
	}

	working := make([]*kmer.SiteSummary, len(sites))
	numPaths := 0
	for i, site := range sites {
		if site == nil {
			return nil, &DataError{SiteIndex: i, Reason: "nil SiteSummary"}
		}
		s := site
		if len(config.OnlyPaths) > 0 {
			restricted, err := site.RestrictPaths(config.OnlyPaths)
			if err != nil {
				return nil, &DataError{SiteIndex: i, Reason: err.Error()}
			}
			s = restricted
		}
		if s.NumPaths() == 0 {
			return nil, &DataError{SiteIndex: i, Reason: "zero active paths"}
		}
		if i == 0 {
			numPaths = s.NumPaths()
		} else if s.NumPaths() != numPaths {
			return nil, &DataError{SiteIndex: i, Reason: fmt.Sprintf("site has %d active paths, run started with %d", s.NumPaths(), numPaths)}
		}
		working[i] = s
	}

	return &HMM{
		sites:    working,
		table:    table,
		config:   config,
		logger:   logger,
		numPaths: numPaths,
		ix:       colindex.New(numPaths),
	}, nil
}

// Stats returns diagnostics for the most recent (or in-progress) Run.
func (h *HMM) Stats() Stats { return h.stats }

// Run executes the configured passes over the HMM's site sequence. cancel,
// if non-nil, is polled between sites (spec.md §5's cooperative cancellation
// point); when it returns true, Run stops, releases its column memory, and
// returns the partial results gathered so far together with an error
// wrapping ErrCancelled. Untouched sites in the partial result are marked
// Uninformative.
func (h *HMM) Run(cancel func() bool) ([]genotype.Result, error) {
	results := make([]genotype.Result, len(h.sites))
	for i := range results {
		results[i] = genotype.NewResult()
	}
	if len(h.sites) == 0 {
		return results, nil
	}

	emitters := make([]*emission.Computer, len(h.sites))
	for i, site := range h.sites {
		emitters[i] = emission.New(site, h.table)
	}

	if h.config.RunGenotyping {
		norm, forwardCols, err := h.forward(emitters, cancel)
		defer func() {
			for _, col := range forwardCols {
				if col != nil {
					h.pool.releaseColumn(col)
				}
			}
		}()
		if err != nil {
			h.applyUninformativeTail(results, len(forwardCols))
			return results, err
		}
		if err := h.backwardAndAggregate(emitters, norm, forwardCols, results, cancel); err != nil {
			return results, err
		}
		if h.config.Normalize {
			agg := genotype.NewAggregator(results)
			agg.Normalize()
			results = agg.Results()
		}
	}

	if h.config.RunPhasing {
		if err := h.viterbi(emitters, results, cancel); err != nil {
			return results, err
		}
	}

	return results, nil
}

// applyUninformativeTail marks every result from index completed onward as
// uninformative, used when Run stops early (cancellation or a pass error).
func (h *HMM) applyUninformativeTail(results []genotype.Result, completed int) {
	for i := completed; i < len(results); i++ {
		results[i].Uninformative = true
	}
}

// distance returns the genomic distance between sites i and i+1.
func (h *HMM) distance(i int) float64 {
	return float64(h.sites[i+1].VariantPosition() - h.sites[i].VariantPosition())
}

func (h *HMM) transitionAt(i int) transition.Probabilities {
	return transition.New(h.distance(i), h.config.Recombrate, h.config.EffectiveN, h.numPaths, h.config.Uniform)
}

func isCancelled(cancel func() bool) bool {
	return cancel != nil && cancel()
}
