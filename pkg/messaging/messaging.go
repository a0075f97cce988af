package messaging

import (
	"context"
	"fmt"
)

// TradeSender defines an interface for handing executed trades to a sink.
type TradeSender interface {
	SendTrade(ctx context.Context, trade TradeRecord) error
}

// TradeRecord is the output record of a single execution
type TradeRecord struct {
	IncomingID int64
	RestingID  int64
	Volume     int64
	// Price formatted with two decimal places
	Price string
}

// String renders the record as "match <incoming> <resting> <volume> <price>"
func (r TradeRecord) String() string {
	return fmt.Sprintf("match %d %d %d %s", r.IncomingID, r.RestingID, r.Volume, r.Price)
}
