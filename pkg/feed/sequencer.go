package feed

import (
	"context"
	"sync"

	"github.com/erain9/cdamatch/pkg/core"
)

// BuildFunc creates an event for the arrival id it is given
type BuildFunc func(id int64) (*core.OrderEvent, error)

// Sequencer feeds an engine from several producers. It assigns arrival ids
// and submits under one lock, so id order is always submission order.
type Sequencer struct {
	mu     sync.Mutex
	engine *core.Engine
	last   int64
}

// NewSequencer creates a sequencer in front of engine
func NewSequencer(engine *core.Engine) *Sequencer {
	return &Sequencer{engine: engine}
}

// Submit takes the next id, builds the event and submits it. An event that
// fails to build still uses up its id, as a malformed feed record does.
func (s *Sequencer) Submit(ctx context.Context, build BuildFunc) (*core.Done, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last++
	ev, err := build(s.last)
	if err != nil {
		return nil, err
	}
	return s.engine.Submit(ctx, ev)
}

// LastID returns the most recently assigned id
func (s *Sequencer) LastID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Engine returns the engine behind the sequencer
func (s *Sequencer) Engine() *core.Engine {
	return s.engine
}
