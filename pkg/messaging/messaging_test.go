package messaging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeRecord_String(t *testing.T) {
	r := TradeRecord{IncomingID: 2, RestingID: 1, Volume: 5, Price: "100.00"}
	assert.Equal(t, "match 2 1 5 100.00", r.String())
}

func TestWriterSender_Plain(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriterSender(&buf, false)

	require.NoError(t, s.SendTrade(context.Background(), TradeRecord{IncomingID: 2, RestingID: 1, Volume: 5, Price: "100.00"}))
	require.NoError(t, s.SendTrade(context.Background(), TradeRecord{IncomingID: 4, RestingID: 3, Volume: 1, Price: "99.50"}))

	assert.Equal(t, "match 2 1 5 100.00\nmatch 4 3 1 99.50\n", buf.String())
}

func TestWriterSender_Colorized(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriterSender(&buf, true)

	require.NoError(t, s.SendTrade(context.Background(), TradeRecord{IncomingID: 2, RestingID: 1, Volume: 5, Price: "100.00"}))

	out := buf.String()
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "match")
	assert.Contains(t, out, "2 1 5 100.00")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriterSender_WriteError(t *testing.T) {
	s := NewWriterSender(failingWriter{}, false)

	err := s.SendTrade(context.Background(), TradeRecord{IncomingID: 1, RestingID: 2, Volume: 1, Price: "1.00"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRecordingSender(t *testing.T) {
	s := NewRecordingSender()

	require.NoError(t, s.SendTrade(context.Background(), TradeRecord{IncomingID: 1}))
	require.NoError(t, s.SendTrade(context.Background(), TradeRecord{IncomingID: 2}))

	records := s.Records()
	require.Len(t, records, 2)
	assert.Equal(t, int64(1), records[0].IncomingID)

	// returned slice is a copy
	records[0].IncomingID = 99
	assert.Equal(t, int64(1), s.Records()[0].IncomingID)

	boom := errors.New("boom")
	s.FailWith(boom)
	assert.ErrorIs(t, s.SendTrade(context.Background(), TradeRecord{IncomingID: 3}), boom)
	assert.Len(t, s.Records(), 2)
}
