package core

import (
	"github.com/erain9/cdamatch/pkg/messaging"
	"github.com/rs/zerolog"
)

// Done contains information about the result of one Submit call
type Done struct {
	// Event processed
	Event *OrderEvent
	// Trades executed while processing the event, including any stop cascade
	Trades []Trade
	// Orders canceled by the event
	Canceled []int64
	// Stop orders converted to market orders by the cascade, in trigger order
	Activated []int64
	// Remaining volume of the submitted order after matching
	Left int64
	// Volume of the submitted order that traded
	Processed int64
	// Whether the submitted order (or its remainder) now rests in a queue
	Stored bool
}

// newDone creates a new Done object for the given event
func newDone(ev *OrderEvent) *Done {
	return &Done{
		Event:     ev,
		Trades:    make([]Trade, 0),
		Canceled:  make([]int64, 0),
		Activated: make([]int64, 0),
		Left:      ev.Volume(),
	}
}

// appendTrade records a trade and updates the submitted order's fill state
// when it took part on either side. A resting remainder can be hit later in
// the same call by a triggered stop.
func (d *Done) appendTrade(t Trade) {
	d.Trades = append(d.Trades, t)
	if t.IncomingID == d.Event.ID() || t.RestingID == d.Event.ID() {
		d.Processed += t.Volume
		d.Left = d.Event.Volume() - d.Processed
	}
}

// appendCanceled adds a canceled order id
func (d *Done) appendCanceled(id int64) {
	d.Canceled = append(d.Canceled, id)
}

// appendActivated adds a triggered stop id
func (d *Done) appendActivated(id int64) {
	d.Activated = append(d.Activated, id)
}

// TradesFor returns the trades in which id took part on either side
func (d *Done) TradesFor(id int64) []Trade {
	out := make([]Trade, 0)
	for _, t := range d.Trades {
		if t.IncomingID == id || t.RestingID == id {
			out = append(out, t)
		}
	}
	return out
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler
func (d *Done) MarshalZerologObject(e *zerolog.Event) {
	e.Int64("event_id", d.Event.ID()).
		Int("trades", len(d.Trades)).
		Int64("processed", d.Processed).
		Int64("left", d.Left).
		Bool("stored", d.Stored)
	if len(d.Activated) > 0 {
		e.Ints64("activated", d.Activated)
	}
	if len(d.Canceled) > 0 {
		e.Ints64("canceled", d.Canceled)
	}
}

// ToTradeRecords converts the trades to output records
func (d *Done) ToTradeRecords() []messaging.TradeRecord {
	return convertTrades(d.Trades)
}

func convertTrades(trades []Trade) []messaging.TradeRecord {
	converted := make([]messaging.TradeRecord, len(trades))
	for i, t := range trades {
		converted[i] = toTradeRecord(t)
	}
	return converted
}

func toTradeRecord(t Trade) messaging.TradeRecord {
	return messaging.TradeRecord{
		IncomingID: t.IncomingID,
		RestingID:  t.RestingID,
		Volume:     t.Volume,
		Price:      FormatPrice(t.Price),
	}
}
