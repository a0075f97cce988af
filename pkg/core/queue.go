package core

import (
	"container/heap"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/nikolaydubina/fpdecimal"
)

// QueueRole tells whether a queue holds resting limit orders or dormant stops
type QueueRole int

// Queue roles
const (
	LimitRole QueueRole = iota
	StopRole
)

// String returns role as string
func (r QueueRole) String() string {
	if r == StopRole {
		return "STOP"
	}
	return "LIMIT"
}

// tombstone marks a cancelled entry. The engine only admits positive ids,
// so it never collides with a live id.
const tombstone int64 = math.MinInt64

// prioritySign maps (side, role) to the factor applied to price so that a
// single min-heap surfaces the right order first:
//
//	LIMIT BUY  -1  highest bid first
//	LIMIT SELL +1  lowest ask first
//	STOP  BUY  +1  lowest stop first
//	STOP  SELL -1  highest stop first
func prioritySign(side Side, role QueueRole) int {
	sign := 1
	if side == Buy {
		sign = -1
	}
	if role == StopRole {
		sign = -sign
	}
	return sign
}

// Resting is a live order as seen outside a queue
type Resting struct {
	ID     int64
	Side   Side
	Price  fpdecimal.Decimal
	Volume int64
}

// queueEntry is one heap slot. rank is the original id and never changes,
// which keeps the heap ordering valid after id is overwritten by tombstone.
type queueEntry struct {
	key    fpdecimal.Decimal
	price  fpdecimal.Decimal
	rank   int64
	id     int64
	volume int64
}

func (e *queueEntry) removed() bool {
	return e.id == tombstone
}

func entryLess(a, b *queueEntry) bool {
	if a.key.Equal(b.key) {
		return a.rank < b.rank
	}
	return a.key.LessThan(b.key)
}

type entryHeap []*queueEntry

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(i, j int) bool { return entryLess(h[i], h[j]) }
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x interface{}) {
	*h = append(*h, x.(*queueEntry))
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return item
}

// OrderQueue is a side-aware priority queue over resting orders keyed by
// (signed price, id). Cancels are lazy: the entry is tombstoned and only
// physically dropped when it reaches the top of the heap.
type OrderQueue struct {
	name      string
	side      Side
	role      QueueRole
	sign      int
	entries   entryHeap
	index     map[int64]*queueEntry
	numOrders int
}

// NewLimitQueue creates the resting limit queue for side
func NewLimitQueue(side Side) *OrderQueue {
	return newOrderQueue(side, LimitRole)
}

// NewStopQueue creates the stop queue for side. Its ordering is inverted
// relative to the limit queue of the same side.
func NewStopQueue(side Side) *OrderQueue {
	return newOrderQueue(side, StopRole)
}

func newOrderQueue(side Side, role QueueRole) *OrderQueue {
	return &OrderQueue{
		name:    strings.ToLower(side.String()) + "_" + strings.ToLower(role.String()),
		side:    side,
		role:    role,
		sign:    prioritySign(side, role),
		entries: make(entryHeap, 0),
		index:   make(map[int64]*queueEntry),
	}
}

// Name returns a short queue label such as "buy_limit"
func (q *OrderQueue) Name() string {
	return q.name
}

// Side returns the side of the orders held
func (q *OrderQueue) Side() Side {
	return q.side
}

// Role returns whether this is a limit or a stop queue
func (q *OrderQueue) Role() QueueRole {
	return q.role
}

// Len returns the number of live orders
func (q *OrderQueue) Len() int {
	return q.numOrders
}

// Contains reports whether id is live in the queue
func (q *OrderQueue) Contains(id int64) bool {
	_, ok := q.index[id]
	return ok
}

func (q *OrderQueue) priorityKey(price fpdecimal.Decimal) fpdecimal.Decimal {
	if q.sign < 0 {
		return fpdecimal.Zero.Sub(price)
	}
	return price
}

// Insert adds an order. A live order with the same id is replaced.
func (q *OrderQueue) Insert(price fpdecimal.Decimal, id int64, volume int64) {
	if q.Contains(id) {
		_ = q.Cancel(id)
	}

	entry := &queueEntry{
		key:    q.priorityKey(price),
		price:  price,
		rank:   id,
		id:     id,
		volume: volume,
	}
	q.index[id] = entry
	heap.Push(&q.entries, entry)
	q.numOrders++
}

// Cancel tombstones the live order id
func (q *OrderQueue) Cancel(id int64) error {
	entry, ok := q.index[id]
	if !ok {
		return fmt.Errorf("%w: %d in %s", ErrNotFound, id, q.name)
	}

	delete(q.index, id)
	entry.id = tombstone
	q.numOrders--

	if len(q.entries) > 0 && q.entries[0] == entry {
		heap.Pop(&q.entries)
	}
	return nil
}

// PopBest removes and returns the best live order
func (q *OrderQueue) PopBest() (Resting, error) {
	for len(q.entries) > 0 {
		entry := heap.Pop(&q.entries).(*queueEntry)
		if entry.removed() {
			continue
		}

		delete(q.index, entry.id)
		q.numOrders--
		return q.toResting(entry), nil
	}
	return Resting{}, fmt.Errorf("%w: %s", ErrEmptyQueue, q.name)
}

// PeekBestPrice returns the price of the best live order
func (q *OrderQueue) PeekBestPrice() (fpdecimal.Decimal, error) {
	entry, err := q.top()
	if err != nil {
		return fpdecimal.Zero, err
	}
	return entry.price, nil
}

// PeekBestVolume returns the volume of the best live order
func (q *OrderQueue) PeekBestVolume() (int64, error) {
	entry, err := q.top()
	if err != nil {
		return 0, err
	}
	return entry.volume, nil
}

// top drops tombstones sitting at the head of the heap and returns the head
func (q *OrderQueue) top() (*queueEntry, error) {
	for len(q.entries) > 0 {
		if !q.entries[0].removed() {
			return q.entries[0], nil
		}
		heap.Pop(&q.entries)
	}
	return nil, fmt.Errorf("%w: %s", ErrEmptyQueue, q.name)
}

// Orders returns the live orders in priority order without mutating the queue
func (q *OrderQueue) Orders() []Resting {
	live := make([]*queueEntry, 0, q.numOrders)
	for _, entry := range q.entries {
		if !entry.removed() {
			live = append(live, entry)
		}
	}
	sort.Slice(live, func(i, j int) bool { return entryLess(live[i], live[j]) })

	orders := make([]Resting, 0, len(live))
	for _, entry := range live {
		orders = append(orders, q.toResting(entry))
	}
	return orders
}

func (q *OrderQueue) toResting(entry *queueEntry) Resting {
	return Resting{
		ID:     entry.id,
		Side:   q.side,
		Price:  entry.price,
		Volume: entry.volume,
	}
}

// String implements fmt.Stringer interface
func (q *OrderQueue) String() string {
	sb := strings.Builder{}
	sb.WriteString(q.name)
	for _, o := range q.Orders() {
		sb.WriteString(fmt.Sprintf("\n%s -> #%d x %d", FormatPrice(o.Price), o.ID, o.Volume))
	}
	return sb.String()
}
