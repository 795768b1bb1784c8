package orderbook

import (
	"fmt"

	"matchengine/memory"
	"matchengine/models"
	"matchengine/orderqueue"
)

// Config sizes a book's allocators and output buffer from static maxima,
// fixed for the book's lifetime. Zero fields are replaced by the suggested
// starting values from spec.md §6, the same zero-means-default convention
// the write-ahead log config in this codebase's lineage uses.
type Config struct {
	MaxNumClients  int
	MaxNumOrders   int
	MaxPriceLevels int
	MaxMatchEvents int
	ChunkSize      int
}

func (c Config) withDefaults() Config {
	if c.MaxNumClients == 0 {
		c.MaxNumClients = 10
	}
	if c.MaxNumOrders == 0 {
		c.MaxNumOrders = 1_000_000
	}
	if c.MaxPriceLevels == 0 {
		c.MaxPriceLevels = 256
	}
	if c.MaxMatchEvents == 0 {
		c.MaxMatchEvents = 100
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = orderqueue.DefaultChunkSize
	}
	if c.ChunkSize != orderqueue.DefaultChunkSize {
		panic(fmt.Sprintf("orderbook: ChunkSize is fixed at compile time (%d); got %d",
			orderqueue.DefaultChunkSize, c.ChunkSize))
	}
	return c
}

// OrderInfo is the per-client index entry: a client-order-id's handle into
// its resting queue slot, the externally visible market-order-id, and the
// resting price it was placed at.
type OrderInfo struct {
	Handle        orderqueue.Handle
	MarketOrderId models.OrderId
	Price         models.Price
}

// MatchResult is a single trade emitted by Match.
type MatchResult struct {
	IncomingOrderId  models.OrderId
	MatchedOrderId   models.OrderId
	Price            models.Price
	Quantity         models.Quantity
	RestingRemaining models.Quantity
	IncomingClientId models.ClientId
	MatchedClientId  models.ClientId
	IncomingSide     models.Side
	MatchedSide      models.Side
}

// MatchResultSet is the return value of Match. Results is a view into the
// book's internal output buffer: valid only until the next book operation,
// matching spec.md §6's "shared output buffer" lifetime contract.
type MatchResultSet struct {
	Results           []MatchResult
	RemainingQuantity models.Quantity
	Instrument        models.InstrumentId
	Overflow          bool
}

// OrderBook owns every price level and the per-client order index for one
// instrument. It is non-copyable in spirit: its allocators hand out
// address-stable pointers that the price-level chain and client index rely
// on, so a Book must always be used through a pointer.
type OrderBook struct {
	instrument models.InstrumentId
	cfg        Config

	priceLevels []*PriceLevel // direct-addressed by price mod cfg.MaxPriceLevels
	bestBid     *PriceLevel
	bestAsk     *PriceLevel

	clientOrders map[models.ClientId]map[models.OrderId]OrderInfo

	levels *memory.Pool[PriceLevel]
	chunks *memory.Pool[orderqueue.Chunk]

	matchBuf []MatchResult
}

// NewOrderBook constructs an empty book for instrument, sizing its
// allocators and output buffer from cfg (defaulted where zero).
func NewOrderBook(instrument models.InstrumentId, cfg Config) *OrderBook {
	cfg = cfg.withDefaults()
	return &OrderBook{
		instrument:   instrument,
		cfg:          cfg,
		priceLevels:  make([]*PriceLevel, cfg.MaxPriceLevels),
		clientOrders: make(map[models.ClientId]map[models.OrderId]OrderInfo, cfg.MaxNumClients),
		levels:       memory.NewPool[PriceLevel](cfg.MaxPriceLevels),
		chunks:       memory.NewPool[orderqueue.Chunk](cfg.MaxNumOrders/cfg.ChunkSize + cfg.MaxPriceLevels),
		matchBuf:     make([]MatchResult, cfg.MaxMatchEvents),
	}
}

// priceIndex computes price mod cfg.MaxPriceLevels, wrapped into
// [0, MaxPriceLevels) so negative prices index correctly.
func (b *OrderBook) priceIndex(price models.Price) int {
	n := int64(b.cfg.MaxPriceLevels)
	idx := int64(price) % n
	if idx < 0 {
		idx += n
	}
	return int(idx)
}

// lookupLevel returns the level occupying price's slot, or nil, panicking
// if the slot is occupied by a different price — a modulus collision,
// which spec.md treats as a hard configuration error rather than a
// recoverable condition.
func (b *OrderBook) lookupLevel(price models.Price) *PriceLevel {
	lvl := b.priceLevels[b.priceIndex(price)]
	if lvl != nil && lvl.Price != price {
		panic(fmt.Sprintf("orderbook: price index collision between %s and %s (MaxPriceLevels=%d)",
			price, lvl.Price, b.cfg.MaxPriceLevels))
	}
	return lvl
}

// GetPriceLevel returns the active level at price, or nil if none exists.
func (b *OrderBook) GetPriceLevel(price models.Price) *PriceLevel {
	return b.lookupLevel(price)
}

// GetOrder returns the resting order-info for (clientId, orderId) and
// whether it is currently resting. A cancelled or never-placed order
// reports ok=false rather than a stale handle.
func (b *OrderBook) GetOrder(clientId models.ClientId, orderId models.OrderId) (OrderInfo, bool) {
	info, ok := b.clientOrders[clientId][orderId]
	return info, ok
}

func (b *OrderBook) bestFor(side models.Side) **PriceLevel {
	if side == models.SideBuy {
		return &b.bestBid
	}
	return &b.bestAsk
}

// insertLevel splices a newly allocated, singleton level into its side's
// circular chain per spec.md §4.4.3, updating best if needed.
func (b *OrderBook) insertLevel(lvl *PriceLevel) {
	best := b.bestFor(lvl.Side)
	if *best == nil {
		*best = lvl
		return
	}
	if lvl.IsBetter(*best) {
		lvl.spliceBefore(*best)
		*best = lvl
		return
	}
	for c := (*best).next; c != *best; c = c.next {
		if lvl.IsBetter(c) {
			lvl.spliceBefore(c)
			return
		}
	}
	lvl.spliceBefore(*best)
}

// removeLevel detaches lvl from its chain, promotes best if necessary, and
// returns it to the level pool.
func (b *OrderBook) removeLevel(lvl *PriceLevel) {
	best := b.bestFor(lvl.Side)
	if *best == lvl {
		if lvl.next == lvl {
			*best = nil
		} else {
			*best = lvl.next
		}
	}
	lvl.unlink()
	b.priceLevels[b.priceIndex(lvl.Price)] = nil
	b.levels.Free(lvl)
}

func (b *OrderBook) clientTable(clientId models.ClientId) map[models.OrderId]OrderInfo {
	table := b.clientOrders[clientId]
	if table == nil {
		table = make(map[models.OrderId]OrderInfo)
		b.clientOrders[clientId] = table
	}
	return table
}

// AddOrder places a resting order into the book per spec.md §4.4.1.
func (b *OrderBook) AddOrder(clientId models.ClientId, clientOrderId, marketOrderId models.OrderId, side models.Side, price models.Price, qty models.Quantity) {
	lvl := b.lookupLevel(price)
	if lvl == nil {
		lvl = b.levels.Alloc()
		lvl.init(side, price, b.chunks)
		b.priceLevels[b.priceIndex(price)] = lvl
		b.insertLevel(lvl)
	}

	handle := lvl.Queue.Push(models.BasicOrder{OrderId: clientOrderId, Qty: qty, ClientId: clientId})
	b.clientTable(clientId)[clientOrderId] = OrderInfo{
		Handle:        handle,
		MarketOrderId: marketOrderId,
		Price:         price,
	}
}

// RemoveOrder cancels a resting order per spec.md §4.4.2. Unknown
// (clientId, orderId) pairs and double-cancels are silent no-ops.
func (b *OrderBook) RemoveOrder(clientId models.ClientId, orderId models.OrderId) {
	table := b.clientOrders[clientId]
	if table == nil {
		return
	}
	info, ok := table[orderId]
	if !ok {
		return
	}
	delete(table, orderId)

	lvl := b.lookupLevel(info.Price)
	if lvl == nil {
		return
	}
	lvl.Queue.Remove(info.Handle)
	if lvl.Queue.Empty() {
		b.removeLevel(lvl)
	}
}

// opposite returns the side a side matches against.
func opposite(side models.Side) models.Side {
	if side == models.SideBuy {
		return models.SideSell
	}
	return models.SideBuy
}

// Match executes an aggressor order against the opposite side's best
// liquidity per spec.md §4.4.4/§4.4.5, returning a view into the book's
// reusable output buffer.
func (b *OrderBook) Match(clientId models.ClientId, orderId models.OrderId, side models.Side, price models.Price, qty models.Quantity) MatchResultSet {
	remaining := qty
	count := 0
	best := b.bestFor(opposite(side))

	for remaining > 0 && *best != nil && (*best).IsMatchable(price) && count < b.cfg.MaxMatchEvents {
		lvl := *best
		head := lvl.Queue.Front()

		traded := remaining
		if head.Qty < traded {
			traded = head.Qty
		}
		remaining -= traded
		head.Qty -= traded

		b.matchBuf[count] = MatchResult{
			IncomingOrderId:  orderId,
			MatchedOrderId:   head.OrderId,
			Price:            lvl.Price,
			Quantity:         traded,
			RestingRemaining: head.Qty,
			IncomingClientId: clientId,
			MatchedClientId:  head.ClientId,
			IncomingSide:     side,
			MatchedSide:      lvl.Side,
		}
		count++

		if head.Qty == 0 {
			matchedClient := head.ClientId
			matchedOrderId := head.OrderId
			lvl.Queue.Pop()
			if table := b.clientOrders[matchedClient]; table != nil {
				delete(table, matchedOrderId)
			}
			if lvl.Queue.Empty() {
				b.removeLevel(lvl)
			}
		}
	}

	overflow := count == b.cfg.MaxMatchEvents && *best != nil && (*best).IsMatchable(price)

	return MatchResultSet{
		Results:           b.matchBuf[:count],
		RemainingQuantity: remaining,
		Instrument:        b.instrument,
		Overflow:          overflow,
	}
}
