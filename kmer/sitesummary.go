package kmer

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// MaxPaths and MaxAlleles mirror the data model's bounds: P <= 65534 paths,
// A_s <= 255 alleles at any one site.
const (
	MaxPaths   = 65534
	MaxAlleles = 255
)

// KmerRecord is one unique k-mer observed at a site: its read-support count
// and the set of alleles it occurs on.
type KmerRecord struct {
	ID        ID
	ReadCount uint16
	AlleleSet *bitset.BitSet
}

// SiteSummary is the per-variant-site container the HMM consumes: which
// allele each active path carries, which alleles are undefined, the unique
// k-mers observed at the site together with their read support, and the
// site's expected local coverage. It corresponds to UniqueKmers in the
// pack's original_source/src/uniquekmers.hpp.
//
// SiteSummary is built and owned by the external k-mer-counting producer
// (see siteio for one concrete on-disk source); the HMM engine treats it as
// read-only except through RestrictPaths, which never mutates the receiver
// (see DESIGN.md's discussion of the original's mutating update_paths).
type SiteSummary struct {
	variantPosition int
	pathToAllele    []uint8
	undefined       *bitset.BitSet
	kmers           []KmerRecord
	localCoverage   uint16
	numAlleles      int
}

// New creates a SiteSummary at the given 0-based genomic position, with
// pathToAllele giving the allele index carried by each active path (path i
// carries allele pathToAllele[i]). numAlleles is the number of distinct
// alleles at this site (A_s); all alleles start out defined.
func New(variantPosition int, pathToAllele []uint8, numAlleles int) (*SiteSummary, error) {
	if len(pathToAllele) == 0 {
		return nil, fmt.Errorf("kmer: SiteSummary at position %d has zero paths", variantPosition)
	}
	if len(pathToAllele) > MaxPaths {
		return nil, fmt.Errorf("kmer: SiteSummary at position %d has %d paths, exceeds MaxPaths=%d", variantPosition, len(pathToAllele), MaxPaths)
	}
	if numAlleles <= 0 || numAlleles > MaxAlleles {
		return nil, fmt.Errorf("kmer: SiteSummary at position %d has invalid numAlleles=%d", variantPosition, numAlleles)
	}
	for _, a := range pathToAllele {
		if int(a) >= numAlleles {
			return nil, fmt.Errorf("kmer: SiteSummary at position %d: path carries allele %d but only %d alleles declared", variantPosition, a, numAlleles)
		}
	}
	return &SiteSummary{
		variantPosition: variantPosition,
		pathToAllele:    append([]uint8(nil), pathToAllele...),
		undefined:       bitset.New(uint(numAlleles)),
		numAlleles:      numAlleles,
	}, nil
}

// VariantPosition returns the site's 0-based genomic coordinate.
func (s *SiteSummary) VariantPosition() int { return s.variantPosition }

// NumPaths returns the number of active paths at this site (P_s).
func (s *SiteSummary) NumPaths() int { return len(s.pathToAllele) }

// NumAlleles returns the number of distinct alleles declared at this site (A_s).
func (s *SiteSummary) NumAlleles() int { return s.numAlleles }

// AlleleOf returns the allele index carried by path p.
func (s *SiteSummary) AlleleOf(p int) uint8 {
	return s.pathToAllele[p]
}

// SetUndefined marks allele a as undefined: its k-mers are excluded from
// emission scoring and paths carrying it contribute zero emission mass.
func (s *SiteSummary) SetUndefined(a uint8) {
	s.undefined.Set(uint(a))
}

// IsUndefined reports whether allele a is marked undefined.
func (s *SiteSummary) IsUndefined(a uint8) bool {
	return s.undefined.Test(uint(a))
}

// InsertKmer appends a unique k-mer observation in insertion order. It fails
// if alleleSet is empty, references an allele outside [0, NumAlleles), or
// references an allele already marked undefined. It does not reject a set
// that covers every defined allele; keeping allele sets proper subsets is
// left to the producer (spec.md §3).
func (s *SiteSummary) InsertKmer(id ID, readcount uint16, alleleSet *bitset.BitSet) error {
	if alleleSet == nil || alleleSet.None() {
		return fmt.Errorf("kmer: InsertKmer at position %d: empty allele set", s.variantPosition)
	}
	if next, ok := alleleSet.NextSet(0); ok {
		for ; ok; next, ok = alleleSet.NextSet(next + 1) {
			if int(next) >= s.numAlleles {
				return fmt.Errorf("kmer: InsertKmer at position %d: allele %d out of range [0,%d)", s.variantPosition, next, s.numAlleles)
			}
			if s.undefined.Test(next) {
				return fmt.Errorf("kmer: InsertKmer at position %d: allele %d is undefined", s.variantPosition, next)
			}
		}
	}
	s.kmers = append(s.kmers, KmerRecord{ID: id, ReadCount: readcount, AlleleSet: alleleSet.Clone()})
	return nil
}

// NumKmers returns the number of unique k-mers recorded at this site.
func (s *SiteSummary) NumKmers() int { return len(s.kmers) }

// Kmer returns the i-th unique k-mer record, in insertion order.
func (s *SiteSummary) Kmer(i int) KmerRecord { return s.kmers[i] }

// Kmers returns all unique k-mer records, in insertion order. The returned
// slice must not be mutated by callers.
func (s *SiteSummary) Kmers() []KmerRecord { return s.kmers }

// KmerOnAllele reports whether the i-th k-mer occurs on allele a.
func (s *SiteSummary) KmerOnAllele(i int, a uint8) bool {
	return s.kmers[i].AlleleSet.Test(uint(a))
}

// KmerOnPath reports whether the i-th k-mer occurs on path p, i.e. whether it
// occurs on the allele path p carries. Restored from the original's
// kmer_on_path, dropped by spec.md's distillation but useful standalone.
func (s *SiteSummary) KmerOnPath(i int, p int) bool {
	return s.KmerOnAllele(i, s.pathToAllele[p])
}

// ReadCountOf returns the read-support count of the i-th k-mer. Restored
// from the original's get_readcount_of.
func (s *SiteSummary) ReadCountOf(i int) uint16 {
	return s.kmers[i].ReadCount
}

// UpdateReadCount overwrites the read-support count of the i-th k-mer with
// newCount, stored as given. Restored from the original's
// update_readcount, useful if a coverage-recalibration pass revises counts
// after an initial insertion pass.
func (s *SiteSummary) UpdateReadCount(i int, newCount uint16) {
	s.kmers[i].ReadCount = newCount
}

// KmersOnAllele returns the number of unique k-mers whose allele set
// contains a.
func (s *SiteSummary) KmersOnAllele(a uint8) int {
	count := 0
	for i := range s.kmers {
		if s.kmers[i].AlleleSet.Test(uint(a)) {
			count++
		}
	}
	return count
}

// PresentKmersOnAllele returns the number of unique k-mers on allele a that
// have nonzero read support.
func (s *SiteSummary) PresentKmersOnAllele(a uint8) int {
	count := 0
	for i := range s.kmers {
		if s.kmers[i].ReadCount > 0 && s.kmers[i].AlleleSet.Test(uint(a)) {
			count++
		}
	}
	return count
}

// FractionPresentKmersOnAllele returns PresentKmersOnAllele(a) /
// KmersOnAllele(a), or 0 if allele a has no unique k-mers at all. Restored
// from the original's fraction_present_kmers_on_allele.
func (s *SiteSummary) FractionPresentKmersOnAllele(a uint8) float64 {
	total := s.KmersOnAllele(a)
	if total == 0 {
		return 0
	}
	return float64(s.PresentKmersOnAllele(a)) / float64(total)
}

// SetCoverage sets the expected haploid read k-mer coverage at this site.
func (s *SiteSummary) SetCoverage(c uint16) { s.localCoverage = c }

// GetCoverage returns the expected haploid read k-mer coverage at this site.
func (s *SiteSummary) GetCoverage() uint16 { return s.localCoverage }

// RestrictPaths returns a new SiteSummary whose active path set is the
// subsequence of the receiver's paths named by keepPaths (each in
// [0, NumPaths)); the k-mer table, undefined flags, and coverage are shared
// with the receiver, since restricting paths never changes which k-mers or
// alleles exist at the site.
//
// Unlike the original's update_paths, which rewrites the receiver in place,
// RestrictPaths never mutates the receiver: it returns an independent view,
// so concurrent HMM runs over the same underlying SiteSummary sequence can
// each restrict to a different path subset without racing (spec.md §5;
// design note in SPEC_FULL.md §9).
func (s *SiteSummary) RestrictPaths(keepPaths []int) (*SiteSummary, error) {
	if len(keepPaths) == 0 {
		return nil, fmt.Errorf("kmer: RestrictPaths at position %d: empty path list", s.variantPosition)
	}
	newPathToAllele := make([]uint8, len(keepPaths))
	for i, p := range keepPaths {
		if p < 0 || p >= len(s.pathToAllele) {
			return nil, fmt.Errorf("kmer: RestrictPaths at position %d: path %d out of range [0,%d)", s.variantPosition, p, len(s.pathToAllele))
		}
		newPathToAllele[i] = s.pathToAllele[p]
	}
	return &SiteSummary{
		variantPosition: s.variantPosition,
		pathToAllele:    newPathToAllele,
		undefined:       s.undefined,
		kmers:           s.kmers,
		localCoverage:   s.localCoverage,
		numAlleles:      s.numAlleles,
	}, nil
}

// DefinedAlleleIDs returns the alleles at this site that are not marked
// undefined, in ascending order.
func (s *SiteSummary) DefinedAlleleIDs() []uint8 {
	result := make([]uint8, 0, s.numAlleles)
	for a := 0; a < s.numAlleles; a++ {
		if !s.undefined.Test(uint(a)) {
			result = append(result, uint8(a))
		}
	}
	return result
}
