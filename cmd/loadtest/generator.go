package main

import (
	"math"
	"math/rand"

	"github.com/erain9/cdamatch/pkg/core"
	"github.com/nikolaydubina/fpdecimal"
)

// generator produces a random but reproducible event mix around a mid price
type generator struct {
	rng    *rand.Rand
	mid    float64
	spread float64
}

func newGenerator(seed int64, mid, spread float64) *generator {
	return &generator{
		rng:    rand.New(rand.NewSource(seed)),
		mid:    mid,
		spread: spread,
	}
}

// next builds the event for arrival id. The mix is roughly 55% limit,
// 20% market, 15% stop and 10% cancel of an earlier id.
func (g *generator) next(id int64) (*core.OrderEvent, error) {
	side := core.Buy
	if g.rng.Intn(2) == 0 {
		side = core.Sell
	}
	volume := int64(1 + g.rng.Intn(20))

	switch r := g.rng.Float64(); {
	case r < 0.55:
		return core.NewLimitEvent(id, side, volume, g.price(g.mid+g.offset()))
	case r < 0.75:
		return core.NewMarketEvent(id, side, volume)
	case r < 0.90:
		// buy stops sit above the mid, sell stops below
		off := math.Abs(g.offset())
		if side == core.Sell {
			off = -off
		}
		return core.NewStopEvent(id, side, volume, g.price(g.mid+off))
	default:
		if id <= 1 {
			return core.NewMarketEvent(id, side, volume)
		}
		return core.NewCancelEvent(id, 1+g.rng.Int63n(id-1)), nil
	}
}

func (g *generator) offset() float64 {
	return (g.rng.Float64()*2 - 1) * g.spread
}

func (g *generator) price(p float64) fpdecimal.Decimal {
	p = math.Round(p*100) / 100
	if p < 0.01 {
		p = 0.01
	}
	return core.PriceFromFloat(p)
}
