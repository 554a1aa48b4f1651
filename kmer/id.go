package kmer

import "fmt"

// MaxBases is the largest number of nucleotides an ID can encode, imposed by
// packing 2 bits per base into two uint64 words.
const MaxBases = 64

// ID is an opaque, fixed-width bit-packed encoding of a k-mer's nucleotide
// sequence. Identity is assigned by the external k-mer producer (see
// uniquekmercomputer in the retrieval pack's original_source); the HMM core
// never inspects the encoded bases, only compares and hashes IDs. ID is a
// plain comparable struct, not a pointer, so it can be used directly as a
// map key and copied freely.
//
// The packing itself is adapted from the teacher's Nibbles type (4 bits per
// value, variable length) down to 2 bits per base, since a k-mer ID never
// needs Get/Set-by-index the way a nibble sequence does — only equality and
// hashing, per the data model. length is kept alongside the two packed words
// so that k-mers of different lengths whose packed bits happen to coincide
// (e.g. "A" and "AA", both all-zero bits) still compare unequal.
type ID struct {
	lo, hi uint64
	length uint8
}

var baseCode = [256]int8{}

func init() {
	for i := range baseCode {
		baseCode[i] = -1
	}
	baseCode['A'], baseCode['a'] = 0, 0
	baseCode['C'], baseCode['c'] = 1, 1
	baseCode['G'], baseCode['g'] = 2, 2
	baseCode['T'], baseCode['t'] = 3, 3
}

// Pack encodes an ACGT nucleotide string (case-insensitive) into an ID. It
// fails if bases is empty, longer than MaxBases, or contains a character
// other than A, C, G, or T.
func Pack(bases string) (ID, error) {
	if len(bases) == 0 {
		return ID{}, fmt.Errorf("kmer: empty base string")
	}
	if len(bases) > MaxBases {
		return ID{}, fmt.Errorf("kmer: %d bases exceeds MaxBases=%d", len(bases), MaxBases)
	}
	var id ID
	id.length = uint8(len(bases))
	for i := 0; i < len(bases); i++ {
		code := baseCode[bases[i]]
		if code < 0 {
			return ID{}, fmt.Errorf("kmer: invalid base %q at offset %d", bases[i], i)
		}
		shift := uint((i % 32) * 2)
		if i < 32 {
			id.lo |= uint64(code) << shift
		} else {
			id.hi |= uint64(code) << shift
		}
	}
	return id, nil
}

// Len returns the number of bases this ID was packed from.
func (id ID) Len() int {
	return int(id.length)
}

var baseChar = [4]byte{'A', 'C', 'G', 'T'}

// Unpack reconstructs the nucleotide string id was built from. The HMM core
// never calls this (identity only needs equality and hashing), but siteio
// needs it to persist and reload SiteSummary fixtures bit-exactly.
func (id ID) Unpack() string {
	bases := make([]byte, id.length)
	for i := 0; i < int(id.length); i++ {
		shift := uint((i % 32) * 2)
		var word uint64
		if i < 32 {
			word = id.lo
		} else {
			word = id.hi
		}
		bases[i] = baseChar[(word>>shift)&3]
	}
	return string(bases)
}
