package hmm

import (
	"github.com/pangenie-go/genotyper/internal"
)

// columnPool hands out forward/backward/Viterbi columns of float64 (and, for
// Viterbi, the matching backtrace column of uint64) from a shared sync.Pool,
// adapted directly from the teacher's pairHMMMatricesPool in
// filters/pairhmm.go: the HMM engine allocates one column per site per pass
// and would otherwise churn the allocator on every site boundary.
type columnPool struct{}

// acquireColumn returns a float64 slice of length n, its contents undefined
// (callers always overwrite every entry before reading).
func (columnPool) acquireColumn(n int) []float64 {
	buf := internal.ReserveFloat64Buffer()
	if cap(buf) < n {
		buf = make([]float64, n)
	} else {
		buf = buf[:n]
	}
	return buf
}

// releaseColumn returns buf to the pool. Callers must not use buf again
// after releasing it.
func (columnPool) releaseColumn(buf []float64) {
	internal.ReleaseFloat64Buffer(buf)
}

// acquireBacktrace returns a uint64 slice of length n used to record, per
// Viterbi column entry, the source state index that produced the column's
// max — one uint64 per destination state is more than enough range for any
// P*P <= 65534*65534 state space, and keeps the backtrace column the same
// shape as the probability column it shadows.
func (columnPool) acquireBacktrace(n int) []uint64 {
	buf := internal.ReserveUint64Buffer()
	if cap(buf) < n {
		buf = make([]uint64, n)
	} else {
		buf = buf[:n]
	}
	return buf
}

func (columnPool) releaseBacktrace(buf []uint64) {
	internal.ReleaseUint64Buffer(buf)
}
