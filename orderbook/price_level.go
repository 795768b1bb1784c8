// Package orderbook implements the price-level chain and the order book
// that owns it: price-indexed order placement, cancellation, and matching
// against the best opposite-side liquidity.
package orderbook

import (
	"matchengine/memory"
	"matchengine/models"
	"matchengine/orderqueue"
)

// PriceLevel is one side's FIFO at a single price, and a node in that
// side's circular doubly-linked chain of active levels.
type PriceLevel struct {
	Side  models.Side
	Price models.Price
	Queue *orderqueue.OrderQueue

	prev *PriceLevel
	next *PriceLevel
}

// init (re)initializes lvl in place, leaving its chain links
// self-referential — the singleton-circular-list state spec.md requires
// before the level is spliced into its side's chain. Used instead of a
// constructor so a pool-allocated slot can be initialized without copying
// a freshly built value over it and clobbering its own self-pointers.
func (lvl *PriceLevel) init(side models.Side, price models.Price, chunks *memory.Pool[orderqueue.Chunk]) {
	lvl.Side = side
	lvl.Price = price
	lvl.Queue = orderqueue.New(chunks)
	lvl.prev = lvl
	lvl.next = lvl
}

// IsMatchable reports whether an aggressor quoting price crosses this resting
// level: for a buy level, the aggressor's sell price must be <= this price;
// for a sell level, the aggressor's buy price must be >= this price.
func (p *PriceLevel) IsMatchable(price models.Price) bool {
	if p.Side == models.SideBuy {
		return p.Price >= price
	}
	return p.Price <= price
}

// IsBetter reports whether p is strictly more favourable than other on the
// same side: higher for buys, lower for sells.
func (p *PriceLevel) IsBetter(other *PriceLevel) bool {
	if p.Side == models.SideBuy {
		return p.Price > other.Price
	}
	return p.Price < other.Price
}

// spliceBefore inserts p into the circular chain immediately before mark.
func (p *PriceLevel) spliceBefore(mark *PriceLevel) {
	p.next = mark
	p.prev = mark.prev
	mark.prev.next = p
	mark.prev = p
}

// unlink removes p from whatever chain it participates in. Calling it on a
// singleton (self-referential) level is a no-op other than re-pointing its
// own links to itself, which is harmless since the level is about to be
// discarded.
func (p *PriceLevel) unlink() {
	p.prev.next = p.next
	p.next.prev = p.prev
	p.prev = p
	p.next = p
}
