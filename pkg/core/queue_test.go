package core

import (
	"errors"
	"testing"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func px(f float64) fpdecimal.Decimal {
	return PriceFromFloat(f)
}

func popIDs(t *testing.T, q *OrderQueue) []int64 {
	t.Helper()
	ids := make([]int64, 0, q.Len())
	for q.Len() > 0 {
		r, err := q.PopBest()
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}
	return ids
}

func TestPrioritySign(t *testing.T) {
	tests := []struct {
		side Side
		role QueueRole
		want int
	}{
		{Buy, LimitRole, -1},
		{Sell, LimitRole, 1},
		{Buy, StopRole, 1},
		{Sell, StopRole, -1},
	}

	for _, tt := range tests {
		t.Run(tt.side.String()+"_"+tt.role.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, prioritySign(tt.side, tt.role))
		})
	}
}

func TestOrderQueue_Names(t *testing.T) {
	assert.Equal(t, "buy_limit", NewLimitQueue(Buy).Name())
	assert.Equal(t, "sell_limit", NewLimitQueue(Sell).Name())
	assert.Equal(t, "buy_stop", NewStopQueue(Buy).Name())
	assert.Equal(t, "sell_stop", NewStopQueue(Sell).Name())
}

func TestOrderQueue_Ordering(t *testing.T) {
	tests := []struct {
		name  string
		queue *OrderQueue
		want  []int64
	}{
		// highest price first, earliest id on ties
		{"buy limit", NewLimitQueue(Buy), []int64{3, 2, 4, 1}},
		// lowest price first
		{"sell limit", NewLimitQueue(Sell), []int64{1, 2, 4, 3}},
		// lowest stop first
		{"buy stop", NewStopQueue(Buy), []int64{1, 2, 4, 3}},
		// highest stop first
		{"sell stop", NewStopQueue(Sell), []int64{3, 2, 4, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.queue.Insert(px(9), 1, 10)
			tt.queue.Insert(px(10), 2, 10)
			tt.queue.Insert(px(11), 3, 10)
			tt.queue.Insert(px(10), 4, 10)

			assert.Equal(t, 4, tt.queue.Len())
			assert.Equal(t, tt.want, popIDs(t, tt.queue))
			assert.Equal(t, 0, tt.queue.Len())
		})
	}
}

func TestOrderQueue_PeekDoesNotMutate(t *testing.T) {
	q := NewLimitQueue(Sell)
	q.Insert(px(10.5), 1, 7)
	q.Insert(px(10.25), 2, 3)

	price, err := q.PeekBestPrice()
	require.NoError(t, err)
	assert.True(t, price.Equal(px(10.25)))

	volume, err := q.PeekBestVolume()
	require.NoError(t, err)
	assert.Equal(t, int64(3), volume)
	assert.Equal(t, 2, q.Len())

	best, err := q.PopBest()
	require.NoError(t, err)
	assert.Equal(t, Resting{ID: 2, Side: Sell, Price: px(10.25), Volume: 3}, best)
}

func TestOrderQueue_Empty(t *testing.T) {
	q := NewLimitQueue(Buy)

	_, err := q.PopBest()
	assert.True(t, errors.Is(err, ErrEmptyQueue))

	_, err = q.PeekBestPrice()
	assert.True(t, errors.Is(err, ErrEmptyQueue))

	_, err = q.PeekBestVolume()
	assert.True(t, errors.Is(err, ErrEmptyQueue))
}

func TestOrderQueue_Cancel(t *testing.T) {
	q := NewLimitQueue(Buy)
	q.Insert(px(10), 1, 5)
	q.Insert(px(9), 2, 5)
	q.Insert(px(8), 3, 5)

	// cancel below the top leaves a tombstone in the heap
	require.NoError(t, q.Cancel(2))
	assert.Equal(t, 2, q.Len())
	assert.False(t, q.Contains(2))
	assert.Len(t, q.entries, 3)

	assert.Equal(t, []int64{1, 3}, popIDs(t, q))
	assert.Empty(t, q.entries)
}

func TestOrderQueue_CancelAtTopPopsEagerly(t *testing.T) {
	q := NewLimitQueue(Sell)
	q.Insert(px(10), 1, 5)
	q.Insert(px(11), 2, 5)

	require.NoError(t, q.Cancel(1))
	assert.Len(t, q.entries, 1)

	price, err := q.PeekBestPrice()
	require.NoError(t, err)
	assert.True(t, price.Equal(px(11)))
}

func TestOrderQueue_CancelNotFound(t *testing.T) {
	q := NewStopQueue(Sell)
	q.Insert(px(10), 1, 5)

	err := q.Cancel(42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, 1, q.Len())

	// a second cancel of the same id is also a miss
	require.NoError(t, q.Cancel(1))
	assert.True(t, errors.Is(q.Cancel(1), ErrNotFound))
	assert.Equal(t, 0, q.Len())
}

func TestOrderQueue_TombstonesOnly(t *testing.T) {
	q := NewLimitQueue(Buy)
	q.Insert(px(10), 1, 5)
	q.Insert(px(9), 2, 5)
	require.NoError(t, q.Cancel(2))
	require.NoError(t, q.Cancel(1))

	assert.Equal(t, 0, q.Len())
	_, err := q.PopBest()
	assert.True(t, errors.Is(err, ErrEmptyQueue))
	assert.Empty(t, q.entries)
}

func TestOrderQueue_ReinsertKeepsPriority(t *testing.T) {
	q := NewLimitQueue(Sell)
	q.Insert(px(10), 1, 5)
	q.Insert(px(10), 2, 5)

	r, err := q.PopBest()
	require.NoError(t, err)
	require.Equal(t, int64(1), r.ID)

	// a partially filled maker goes back with its original id
	q.Insert(r.Price, r.ID, 2)
	q.Insert(px(10), 3, 5)

	best, err := q.PopBest()
	require.NoError(t, err)
	assert.Equal(t, int64(1), best.ID)
	assert.Equal(t, int64(2), best.Volume)
}

func TestOrderQueue_InsertReplacesLiveID(t *testing.T) {
	q := NewLimitQueue(Buy)
	q.Insert(px(10), 1, 5)
	q.Insert(px(12), 1, 8)

	assert.Equal(t, 1, q.Len())
	orders := q.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, int64(8), orders[0].Volume)
	assert.True(t, orders[0].Price.Equal(px(12)))
}

func TestOrderQueue_Orders(t *testing.T) {
	q := NewLimitQueue(Buy)
	q.Insert(px(9), 1, 1)
	q.Insert(px(11), 2, 2)
	q.Insert(px(10), 3, 3)
	require.NoError(t, q.Cancel(3))

	orders := q.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, int64(2), orders[0].ID)
	assert.Equal(t, int64(1), orders[1].ID)
	assert.Equal(t, 2, q.Len())
}

func TestOrderQueue_String(t *testing.T) {
	q := NewLimitQueue(Sell)
	q.Insert(px(10.5), 1, 5)

	assert.Equal(t, "sell_limit\n10.50 -> #1 x 5", q.String())
}

func TestOrderQueue_CancelThenReinsertSameID(t *testing.T) {
	q := NewLimitQueue(Buy)
	q.Insert(px(11), 1, 5)
	q.Insert(px(10), 2, 5)
	q.Insert(px(10), 3, 5)

	// id 2 is below the top, so its tombstone stays in the heap
	require.NoError(t, q.Cancel(2))
	q.Insert(px(10), 2, 5)

	assert.Equal(t, 3, q.Len())
	assert.True(t, q.Contains(2))
	assert.Equal(t, []int64{1, 2, 3}, popIDs(t, q))
	assert.Empty(t, q.entries)
}

func TestOrderQueue_NumOrdersTracksLiveEntries(t *testing.T) {
	q := NewStopQueue(Buy)
	for id := int64(1); id <= 20; id++ {
		q.Insert(px(float64(100+id%4)), id, id)
	}

	cancelled := 0
	for id := int64(2); id <= 20; id += 3 {
		require.NoError(t, q.Cancel(id))
		cancelled++
	}
	assert.Equal(t, 20-cancelled, q.Len())

	popped := 0
	prev := fpdecimal.Zero
	for q.Len() > 0 {
		r, err := q.PopBest()
		require.NoError(t, err)
		assert.False(t, r.ID%3 == 2, "cancelled id %d was popped", r.ID)
		assert.True(t, prev.LessThanOrEqual(r.Price), "stop prices must not decrease")
		prev = r.Price
		popped++
		assert.GreaterOrEqual(t, q.Len(), 0)
	}
	assert.Equal(t, 20-cancelled, popped)
}
