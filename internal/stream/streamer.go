// Package stream turns raw token pieces into text deltas with running
// throughput metrics.
package stream

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Stopper is polled before each piece is accepted.
type Stopper interface {
	Interrupted() bool
}

// Update is one emitted delta. TPS is zero until the second token.
type Update struct {
	Delta         string
	TPS           float64
	NumTokens     int
	ContextTokens int
}

// Streamer accumulates token pieces. Byte sequences that do not yet form
// complete UTF-8 runes are held back until a later piece completes them.
// Not safe for concurrent use.
type Streamer struct {
	promptTokens int
	stop         Stopper
	onUpdate     func(Update)
	now          func() time.Time

	start     time.Time
	numTokens int
	tps       float64
	pending   []byte
	text      strings.Builder
}

// New returns a Streamer for a prompt of promptTokens tokens. stop and
// onUpdate may be nil.
func New(promptTokens int, stop Stopper, onUpdate func(Update)) *Streamer {
	return &Streamer{promptTokens: promptTokens, stop: stop, onUpdate: onUpdate, now: time.Now}
}

// Put accepts one token piece. It returns false once the stopper has
// tripped; the piece is then discarded.
func (s *Streamer) Put(piece string) bool {
	if s.stop != nil && s.stop.Interrupted() {
		return false
	}
	s.numTokens++
	now := s.now()
	if s.numTokens == 1 {
		s.start = now
	} else if ms := float64(now.Sub(s.start).Microseconds()) / 1000; ms > 0 {
		s.tps = float64(s.numTokens-1) / ms * 1000
	}
	s.pending = append(s.pending, piece...)
	s.emit(s.takeComplete())
	return true
}

// End flushes held-back bytes, replacing invalid sequences. After an
// interrupt the held-back bytes are dropped.
func (s *Streamer) End() {
	if len(s.pending) == 0 {
		return
	}
	if s.stop != nil && s.stop.Interrupted() {
		s.pending = s.pending[:0]
		return
	}
	rest := strings.ToValidUTF8(string(s.pending), string(utf8.RuneError))
	s.pending = s.pending[:0]
	s.emit(rest)
}

// Text returns everything emitted so far.
func (s *Streamer) Text() string { return s.text.String() }

// NumTokens returns the number of accepted pieces.
func (s *Streamer) NumTokens() int { return s.numTokens }

// TPS returns the latest throughput.
func (s *Streamer) TPS() float64 { return s.tps }

func (s *Streamer) emit(delta string) {
	if delta == "" {
		return
	}
	s.text.WriteString(delta)
	if s.onUpdate != nil {
		s.onUpdate(Update{
			Delta:         delta,
			TPS:           s.tps,
			NumTokens:     s.numTokens,
			ContextTokens: s.promptTokens + s.numTokens,
		})
	}
}

// takeComplete removes and returns the longest prefix of pending that
// does not end inside a partial rune.
func (s *Streamer) takeComplete() string {
	b := s.pending
	cut := len(b)
	// Look back at most UTFMax bytes for the last rune start.
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				cut = i
			}
			break
		}
	}
	out := string(b[:cut])
	s.pending = append(b[:0], b[cut:]...)
	return out
}
