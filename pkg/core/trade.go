package core

import (
	"fmt"

	"github.com/nikolaydubina/fpdecimal"
)

// Trade is one execution between an incoming order and a resting order.
// It always prints at the resting (maker) price.
type Trade struct {
	Price      fpdecimal.Decimal
	Volume     int64
	IncomingID int64
	RestingID  int64
}

// String renders the trade in the output record format
func (t Trade) String() string {
	return fmt.Sprintf("match %d %d %d %s", t.IncomingID, t.RestingID, t.Volume, FormatPrice(t.Price))
}

// TradeLog is the append-only execution history of an engine
type TradeLog struct {
	trades []Trade
}

// NewTradeLog creates an empty trade log
func NewTradeLog() *TradeLog {
	return &TradeLog{trades: make([]Trade, 0)}
}

// Append records a trade
func (l *TradeLog) Append(t Trade) {
	l.trades = append(l.trades, t)
}

// Len returns the number of trades recorded
func (l *TradeLog) Len() int {
	return len(l.trades)
}

// Last returns the most recent trade
func (l *TradeLog) Last() (Trade, bool) {
	if len(l.trades) == 0 {
		return Trade{}, false
	}
	return l.trades[len(l.trades)-1], true
}

// LastPrice returns the most recent trade price
func (l *TradeLog) LastPrice() (fpdecimal.Decimal, bool) {
	t, ok := l.Last()
	return t.Price, ok
}

// Since returns a copy of the trades recorded at or after position n
func (l *TradeLog) Since(n int) []Trade {
	if n < 0 {
		n = 0
	}
	if n >= len(l.trades) {
		return []Trade{}
	}
	out := make([]Trade, len(l.trades)-n)
	copy(out, l.trades[n:])
	return out
}

// Trades returns a copy of the full history
func (l *TradeLog) Trades() []Trade {
	return l.Since(0)
}
