// Package evaluator evaluates a geometry tree at many points at once.
//
// Points are queued with Add and evaluated together by Flush, in fixed-size
// batches. Large flushes are spread over a bounded worker pool; results are
// always returned in submission order.
package evaluator
