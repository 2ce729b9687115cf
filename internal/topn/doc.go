// Package topn keeps the N largest distinct file sizes seen in a stream of
// (size, path) observations, together with every path that shares each size.
//
// Memory is bounded by the number of retained sizes, not by the number of
// observations. A size is the unit of retention: when a larger size arrives
// at capacity the smallest size is evicted with all of its paths at once.
package topn
