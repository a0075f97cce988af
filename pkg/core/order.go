package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/rs/zerolog"
)

// Side represents buy or sell side of the order
type Side int

// Order sides
const (
	Sell Side = iota
	Buy
)

// String returns side as string
func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether s is Buy or Sell
func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// Opposite returns the other side of the book
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// ParseSide parses a side name case-insensitively
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	default:
		return Side(-1), fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, s)
	}
}

// OrderType represents type of the order event
type OrderType string

// Order types
const (
	TypeLimit  OrderType = "LIMIT"
	TypeMarket OrderType = "MARKET"
	TypeStop   OrderType = "STOP"
	TypeCancel OrderType = "CANCEL"
)

// Valid reports whether t is one of the known event types
func (t OrderType) Valid() bool {
	switch t {
	case TypeLimit, TypeMarket, TypeStop, TypeCancel:
		return true
	}
	return false
}

// ParseOrderType parses an event type name case-insensitively
func ParseOrderType(s string) (OrderType, error) {
	t := OrderType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown order type %q", ErrInvalidOrder, s)
	}
	return t, nil
}

// OrderEvent is one immutable input record handed to the engine.
// The id is the feed's arrival sequence number and doubles as the order id.
type OrderEvent struct {
	id     int64
	typ    OrderType
	side   Side
	volume int64
	price  fpdecimal.Decimal
	target int64
}

// NewLimitEvent creates a limit order event
func NewLimitEvent(id int64, side Side, volume int64, price fpdecimal.Decimal) (*OrderEvent, error) {
	return NewOrderEvent(id, TypeLimit, side, volume, price)
}

// NewMarketEvent creates a market order event. Market orders carry no price.
func NewMarketEvent(id int64, side Side, volume int64) (*OrderEvent, error) {
	return NewOrderEvent(id, TypeMarket, side, volume, fpdecimal.Zero)
}

// NewStopEvent creates a stop order event triggering at price
func NewStopEvent(id int64, side Side, volume int64, price fpdecimal.Decimal) (*OrderEvent, error) {
	return NewOrderEvent(id, TypeStop, side, volume, price)
}

// NewCancelEvent creates an event cancelling the order with id target
func NewCancelEvent(id, target int64) *OrderEvent {
	return &OrderEvent{
		id:     id,
		typ:    TypeCancel,
		side:   Buy,
		target: target,
		price:  fpdecimal.Zero,
	}
}

// NewOrderEvent validates and builds an event. For TypeCancel the volume
// argument is taken as the cancel target id and side is ignored.
func NewOrderEvent(id int64, typ OrderType, side Side, volume int64, price fpdecimal.Decimal) (*OrderEvent, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: unknown order type %q", ErrInvalidOrder, string(typ))
	}

	if typ == TypeCancel {
		return NewCancelEvent(id, volume), nil
	}

	if !side.Valid() {
		return nil, fmt.Errorf("%w: unknown side %d", ErrInvalidOrder, int(side))
	}

	if volume <= 0 {
		return nil, ErrInvalidQuantity
	}

	return &OrderEvent{
		id:     id,
		typ:    typ,
		side:   side,
		volume: volume,
		price:  price,
	}, nil
}

// ID returns the event sequence id
func (e *OrderEvent) ID() int64 {
	return e.id
}

// Type returns the event type
func (e *OrderEvent) Type() OrderType {
	return e.typ
}

// Side returns the side of the order
func (e *OrderEvent) Side() Side {
	return e.side
}

// Volume returns the order volume
func (e *OrderEvent) Volume() int64 {
	return e.volume
}

// Price returns the limit or stop price
func (e *OrderEvent) Price() fpdecimal.Decimal {
	return e.price
}

// Target returns the id a cancel event refers to
func (e *OrderEvent) Target() int64 {
	return e.target
}

// IsLimitOrder returns true if the event is LIMIT
func (e *OrderEvent) IsLimitOrder() bool {
	return e.typ == TypeLimit
}

// IsMarketOrder returns true if the event is MARKET
func (e *OrderEvent) IsMarketOrder() bool {
	return e.typ == TypeMarket
}

// IsStopOrder returns true if the event is STOP
func (e *OrderEvent) IsStopOrder() bool {
	return e.typ == TypeStop
}

// IsCancel returns true if the event is CANCEL
func (e *OrderEvent) IsCancel() bool {
	return e.typ == TypeCancel
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler
func (e *OrderEvent) MarshalZerologObject(ev *zerolog.Event) {
	ev.Int64("id", e.id).Str("type", string(e.typ))
	if e.typ == TypeCancel {
		ev.Int64("target", e.target)
		return
	}
	ev.Str("side", e.side.String()).Int64("volume", e.volume)
	if e.typ != TypeMarket {
		ev.Str("price", FormatPrice(e.price))
	}
}

// String implements Stringer interface
func (e *OrderEvent) String() string {
	switch e.typ {
	case TypeCancel:
		return fmt.Sprintf("#%d CANCEL %d", e.id, e.target)
	case TypeMarket:
		return fmt.Sprintf("#%d MARKET %s %d", e.id, e.side, e.volume)
	default:
		return fmt.Sprintf("#%d %s %s %d @ %s", e.id, e.typ, e.side, e.volume, FormatPrice(e.price))
	}
}

// ParsePrice parses a decimal price. Prices with more fraction digits than
// fpdecimal.FractionDigits are rejected rather than truncated, so two
// distinct input prices never compare equal.
func ParsePrice(s string) (fpdecimal.Decimal, error) {
	if _, frac, ok := strings.Cut(s, "."); ok {
		if len(strings.TrimRight(frac, "0")) > int(fpdecimal.FractionDigits) {
			return fpdecimal.Zero, fmt.Errorf("%w: price %q has more than %d decimal places",
				ErrInvalidOrder, s, fpdecimal.FractionDigits)
		}
	}

	p, err := fpdecimal.FromString(s)
	if err != nil {
		return fpdecimal.Zero, fmt.Errorf("%w: bad price %q", ErrInvalidOrder, s)
	}
	return p, nil
}

// PriceFromFloat converts f to the nearest representable price.
// fpdecimal.FromFloat truncates, which turns 2.01 into 2.009.
func PriceFromFloat(f float64) fpdecimal.Decimal {
	scale := math.Pow10(int(fpdecimal.FractionDigits))
	return fpdecimal.FromIntScaled(int64(math.Round(f * scale)))
}

// FormatPrice renders a price with two decimal places
func FormatPrice(p fpdecimal.Decimal) string {
	return fmt.Sprintf("%.2f", p.Float64())
}
