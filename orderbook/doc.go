// Package orderbook implements a single-instrument, single-threaded limit
// order book: a direct-addressed table of price levels, each a circular
// doubly-linked chain node owning a chunked FIFO of resting orders, and the
// add/cancel/match operations that mutate them under strict price-time
// priority.
//
// The book is not safe for concurrent use from multiple goroutines; it is
// designed to be owned by a single actor, with multiple books able to run
// independently in parallel.
package orderbook
