package engine

import "sync/atomic"

// StoppingSignal is a cooperative cancellation flag read between decode
// steps. The zero value is ready to use and a nil signal never stops.
type StoppingSignal struct {
	interrupted atomic.Bool
}

func NewStoppingSignal() *StoppingSignal { return &StoppingSignal{} }

// Reset clears a previous interrupt.
func (s *StoppingSignal) Reset() {
	if s != nil {
		s.interrupted.Store(false)
	}
}

// Interrupt asks the generation holding this signal to stop.
func (s *StoppingSignal) Interrupt() {
	if s != nil {
		s.interrupted.Store(true)
	}
}

func (s *StoppingSignal) Interrupted() bool {
	return s != nil && s.interrupted.Load()
}
