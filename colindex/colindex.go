// Package colindex enumerates the ordered pairs of paths that form hidden
// states at a variant site and gives them stable, canonical indices
// (spec.md §4.5).
package colindex

// Indexer canonically enumerates the P*P ordered pairs (p1,p2) of path
// indices at one site, row-major by p1 then p2, matching the order paths
// appear in the site's path_to_allele. Indexer holds no reference to any
// SiteSummary; it only needs the path count, so the same Indexer can be
// reused across sites that happen to share a path count.
type Indexer struct {
	numPaths int
}

// New returns an Indexer for a site with the given number of active paths.
func New(numPaths int) *Indexer {
	return &Indexer{numPaths: numPaths}
}

// NumPaths returns the number of active paths (P) this Indexer was built for.
func (ix *Indexer) NumPaths() int { return ix.numPaths }

// NumStates returns the size of the hidden state space, P*P.
func (ix *Indexer) NumStates() int { return ix.numPaths * ix.numPaths }

// IndexOf returns the canonical column offset of the ordered pair (p1,p2).
func (ix *Indexer) IndexOf(p1, p2 int) int {
	return p1*ix.numPaths + p2
}

// PairOf returns the ordered pair (p1,p2) at canonical index idx.
func (ix *Indexer) PairOf(idx int) (p1, p2 int) {
	return idx / ix.numPaths, idx % ix.numPaths
}
