package messaging

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// WriterSender writes one text line per trade to an io.Writer
type WriterSender struct {
	mu    sync.Mutex
	w     io.Writer
	label *color.Color
	body  *color.Color
}

// NewWriterSender creates a sender writing to w. With colorize the "match"
// label and the trade fields are printed with terminal colours.
func NewWriterSender(w io.Writer, colorize bool) *WriterSender {
	label := color.New(color.FgCyan, color.Bold)
	body := color.New(color.FgGreen)
	if colorize {
		label.EnableColor()
		body.EnableColor()
	} else {
		label.DisableColor()
		body.DisableColor()
	}

	return &WriterSender{
		w:     w,
		label: label,
		body:  body,
	}
}

// SendTrade writes the record
func (s *WriterSender) SendTrade(_ context.Context, trade TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line := s.label.Sprint("match") + " " +
		s.body.Sprintf("%d %d %d %s", trade.IncomingID, trade.RestingID, trade.Volume, trade.Price)
	if _, err := fmt.Fprintln(s.w, line); err != nil {
		return fmt.Errorf("failed to write trade: %w", err)
	}
	return nil
}

// Ensure WriterSender implements TradeSender
var _ TradeSender = (*WriterSender)(nil)
