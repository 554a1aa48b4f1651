package cmd

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pangenie-go/genotyper/genotype"
	"github.com/pangenie-go/genotyper/kmer"
)

const resultsHeader = "#chromosome\tposition\tposteriors\thaplotype\tuninformative\n"

// writeResults renders one HMM run's results as a plain TSV, one line per
// site: the genomic position, every allele pair in the site's posterior map,
// zero-valued entries included (sorted for deterministic output), the first
// Viterbi haplotype if one was
// computed, and the uninformative flag. There is no VCF writer here —
// producing a VCF is explicitly out of scope (spec.md §1).
func writeResults(w io.Writer, chromosome string, sites []*kmer.SiteSummary, results []genotype.Result) error {
	if len(sites) != len(results) {
		return fmt.Errorf("cmd: %d sites but %d results", len(sites), len(results))
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(resultsHeader); err != nil {
		return err
	}
	for i, r := range results {
		pairs := r.Posteriors.Pairs()
		sort.Slice(pairs, func(a, b int) bool {
			if pairs[a].A != pairs[b].A {
				return pairs[a].A < pairs[b].A
			}
			return pairs[a].B < pairs[b].B
		})
		terms := make([]string, 0, len(pairs))
		for _, pair := range pairs {
			value, _ := r.Posteriors.Get(pair)
			terms = append(terms, fmt.Sprintf("%d/%d:%.6g", pair.A, pair.B, value))
		}
		posteriorField := strings.Join(terms, ",")
		if posteriorField == "" {
			posteriorField = "nan"
		}

		haplotypeField := "nan"
		if len(r.Haplotypes) > 0 {
			h := r.Haplotypes[0]
			haplotypeField = fmt.Sprintf("%d|%d", h.Path1, h.Path2)
		}

		line := fmt.Sprintf("%s\t%d\t%s\t%s\t%v\n",
			chromosome, sites[i].VariantPosition(), posteriorField, haplotypeField, r.Uninformative)
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}
