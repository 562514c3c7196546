// Package rwstore provides a wait-free single-writer, multi-reader versioned
// value store and the growable double-ended ring buffer it uses to queue
// superseded values for reuse.
//
// One goroutine publishes values with Store.Write. Any number of goroutines
// read the latest value through a Handle without blocking the writer or each
// other. Superseded values that no reader looked at are reused by the very
// next write; values that were read age through the queue until every live
// handle has moved past them.
package rwstore

const goschedEvery = 64 // reduce runtime.Gosched() frequency in spin loops
