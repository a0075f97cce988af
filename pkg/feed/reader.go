package feed

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/erain9/cdamatch/pkg/core"
	"github.com/nikolaydubina/fpdecimal"
)

// Reader parses order events from a line-oriented feed.
//
// Each record is "type side volume price". For CANCEL the third field is
// the target id and the price is ignored. Records are numbered from 1 and
// the number is the event id; blank lines and lines starting with '#' are
// skipped without taking a number.
type Reader struct {
	scanner *bufio.Scanner
	line    int
	seq     int64
}

// NewReader creates a feed reader over r
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next returns the next event. A malformed record still consumes its id and
// is reported as an error wrapping core.ErrInvalidOrder or
// core.ErrInvalidQuantity; the caller may keep reading. io.EOF marks the end.
func (r *Reader) Next() (*core.OrderEvent, error) {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		r.seq++
		ev, err := parseRecord(r.seq, strings.Fields(text))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
		return ev, nil
	}

	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}
	return nil, io.EOF
}

// Line returns the number of the last line read
func (r *Reader) Line() int {
	return r.line
}

func parseRecord(id int64, fields []string) (*core.OrderEvent, error) {
	if len(fields) < 3 || len(fields) > 4 {
		return nil, fmt.Errorf("%w: expected 4 fields, got %d", core.ErrInvalidOrder, len(fields))
	}

	typ, err := core.ParseOrderType(fields[0])
	if err != nil {
		return nil, err
	}

	volume, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidQuantity, fields[2])
	}

	if typ == core.TypeCancel {
		return core.NewCancelEvent(id, volume), nil
	}

	side, err := core.ParseSide(fields[1])
	if err != nil {
		return nil, err
	}

	price := fpdecimal.Zero
	switch {
	case len(fields) == 4:
		price, err = core.ParsePrice(fields[3])
		if err != nil {
			return nil, err
		}
	case typ != core.TypeMarket:
		return nil, fmt.Errorf("%w: %s order without price", core.ErrInvalidOrder, typ)
	}

	return core.NewOrderEvent(id, typ, side, volume, price)
}
