package main

import (
	"context"
	"fmt"
	"os"

	"github.com/erain9/cdamatch/pkg/core"
	"github.com/erain9/cdamatch/pkg/messaging"
	"github.com/nikolaydubina/fpdecimal"
	"github.com/rs/zerolog"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	engine := core.NewEngine(core.WithTradeSender(messaging.NewWriterSender(os.Stdout, true)))
	ctx := context.Background()

	steps := []struct {
		title string
		build func() (*core.OrderEvent, error)
	}{
		{"Rest an ask at 10.00", func() (*core.OrderEvent, error) {
			return core.NewLimitEvent(1, core.Sell, 10, fpdecimal.FromFloat(10.0))
		}},
		{"Rest a bid at 9.50", func() (*core.OrderEvent, error) {
			return core.NewLimitEvent(2, core.Buy, 10, fpdecimal.FromFloat(9.5))
		}},
		{"Buy stop at 10.00 waits for a trade", func() (*core.OrderEvent, error) {
			return core.NewStopEvent(3, core.Buy, 3, fpdecimal.FromFloat(10.0))
		}},
		{"Crossing bid trades at the ask and fires the stop", func() (*core.OrderEvent, error) {
			return core.NewLimitEvent(4, core.Buy, 4, fpdecimal.FromFloat(10.5))
		}},
		{"Market sell sweeps the bid", func() (*core.OrderEvent, error) {
			return core.NewMarketEvent(5, core.Sell, 4)
		}},
		{"Cancel what is left of the ask", func() (*core.OrderEvent, error) {
			return core.NewCancelEvent(6, 1), nil
		}},
	}

	for _, step := range steps {
		ev, err := step.build()
		if err != nil {
			panic(err)
		}

		fmt.Printf("\n== %s: %s\n", step.title, ev)
		done, err := engine.Submit(ctx, ev)
		if err != nil {
			fmt.Printf("rejected: %v\n", err)
			continue
		}
		if len(done.Activated) > 0 {
			fmt.Printf("stops activated: %v\n", done.Activated)
		}
		if len(done.Canceled) > 0 {
			fmt.Printf("canceled: %v\n", done.Canceled)
		}
	}

	fmt.Println("\nFinal book:")
	fmt.Print(engine.String())
}
