package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrade_String(t *testing.T) {
	tr := Trade{Price: px(10.5), Volume: 20, IncomingID: 4, RestingID: 2}
	assert.Equal(t, "match 4 2 20 10.50", tr.String())
}

func TestTradeLog(t *testing.T) {
	l := NewTradeLog()

	_, ok := l.Last()
	assert.False(t, ok)
	_, ok = l.LastPrice()
	assert.False(t, ok)
	assert.Empty(t, l.Trades())

	l.Append(Trade{Price: px(10), Volume: 1, IncomingID: 2, RestingID: 1})
	l.Append(Trade{Price: px(11), Volume: 2, IncomingID: 3, RestingID: 1})
	l.Append(Trade{Price: px(12), Volume: 3, IncomingID: 4, RestingID: 1})

	assert.Equal(t, 3, l.Len())

	price, ok := l.LastPrice()
	require.True(t, ok)
	assert.True(t, price.Equal(px(12)))

	since := l.Since(1)
	require.Len(t, since, 2)
	assert.Equal(t, int64(3), since[0].IncomingID)
	assert.Empty(t, l.Since(3))
	assert.Len(t, l.Since(-1), 3)

	// copies do not alias the log
	all := l.Trades()
	all[0].Volume = 99
	first := l.Trades()[0]
	assert.Equal(t, int64(1), first.Volume)
}
