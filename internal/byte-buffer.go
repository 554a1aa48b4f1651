// Package internal holds small helpers shared across the genotyper's
// packages that are not meant to be part of its public API.
package internal

import "sync"

var float64BufPool = sync.Pool{New: func() interface{} {
	return []float64(nil)
}}

// ReserveFloat64Buffer uses a sync.Pool to either reuse or allocate a slice
// of float64 of length 0 but of capacity potentially larger than 0.
//
// Use ReleaseFloat64Buffer to return slices to the pool.
func ReserveFloat64Buffer() []float64 {
	return float64BufPool.Get().([]float64)[:0]
}

// ReleaseFloat64Buffer returns buf to the pool from which
// ReserveFloat64Buffer can fetch it again.
func ReleaseFloat64Buffer(buf []float64) {
	float64BufPool.Put(buf)
}

var uint64BufPool = sync.Pool{New: func() interface{} {
	return []uint64(nil)
}}

// ReserveUint64Buffer is the uint64 analogue of ReserveFloat64Buffer, used
// for Viterbi backtrace columns.
func ReserveUint64Buffer() []uint64 {
	return uint64BufPool.Get().([]uint64)[:0]
}

// ReleaseUint64Buffer returns buf to the pool from which
// ReserveUint64Buffer can fetch it again.
func ReleaseUint64Buffer(buf []uint64) {
	uint64BufPool.Put(buf)
}
