package feed

import (
	"context"
	"errors"
	"io"

	"github.com/erain9/cdamatch/pkg/core"
	"github.com/erain9/cdamatch/pkg/logging"
)

// Stats summarizes a replay
type Stats struct {
	// Records read, including malformed ones
	Records int
	// Events accepted by the engine
	Submitted int
	// Malformed records and events the engine rejected
	Rejected int
	// Cancels whose target was not live
	CancelMisses int
	Trades       int
	Activated    int
}

// Run submits every event of r to engine in feed order. Per-event failures
// are logged and counted; only read errors and context cancellation stop the
// replay.
func Run(ctx context.Context, r *Reader, engine *core.Engine) (Stats, error) {
	logger := logging.FromContext(ctx)
	var stats Stats

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if !isRecordError(err) {
				return stats, err
			}
			stats.Records++
			stats.Rejected++
			logger.Warn().Err(err).Msg("Skipping malformed feed record")
			continue
		}
		stats.Records++

		done, err := engine.Submit(ctx, ev)
		switch {
		case errors.Is(err, core.ErrNotFound):
			stats.CancelMisses++
		case err != nil:
			stats.Rejected++
			logger.Warn().Err(err).Int64("event_id", ev.ID()).Msg("Order event rejected")
			continue
		default:
			stats.Submitted++
		}

		if done != nil {
			stats.Trades += len(done.Trades)
			stats.Activated += len(done.Activated)
		}
	}

	logger.Info().
		Int("records", stats.Records).
		Int("submitted", stats.Submitted).
		Int("rejected", stats.Rejected).
		Int("cancel_misses", stats.CancelMisses).
		Int("trades", stats.Trades).
		Int("stops_triggered", stats.Activated).
		Msg("Feed replay finished")
	return stats, nil
}

func isRecordError(err error) bool {
	return errors.Is(err, core.ErrInvalidOrder) || errors.Is(err, core.ErrInvalidQuantity)
}
