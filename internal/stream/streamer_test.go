package stream

import (
	"testing"
	"time"
)

type flag bool

func (f *flag) Interrupted() bool { return bool(*f) }

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestStreamer_MetricsAndContext(t *testing.T) {
	var ups []Update
	s := New(10, nil, func(u Update) { ups = append(ups, u) })
	c := &clock{t: time.Unix(0, 0)}
	s.now = c.now

	s.Put("Hel")
	c.advance(100 * time.Millisecond)
	s.Put("lo")
	c.advance(100 * time.Millisecond)
	s.Put("!")
	s.End()

	if len(ups) != 3 {
		t.Fatalf("expected 3 updates, got %d", len(ups))
	}
	if ups[0].TPS != 0 {
		t.Fatalf("first token tps should be 0, got %v", ups[0].TPS)
	}
	if ups[1].TPS != 10 {
		t.Fatalf("second token tps = %v want 10", ups[1].TPS)
	}
	if ups[2].TPS != 10 || ups[2].NumTokens != 3 || ups[2].ContextTokens != 13 {
		t.Fatalf("last update = %+v", ups[2])
	}
	if s.Text() != "Hello!" {
		t.Fatalf("text = %q", s.Text())
	}
}

func TestStreamer_HoldsPartialRunes(t *testing.T) {
	var deltas []string
	s := New(0, nil, func(u Update) { deltas = append(deltas, u.Delta) })
	euro := "€" // 3 bytes
	s.Put("a" + euro[:1])
	s.Put(euro[1:2])
	s.Put(euro[2:] + "b")
	s.End()
	if len(deltas) != 2 || deltas[0] != "a" || deltas[1] != euro+"b" {
		t.Fatalf("deltas = %q", deltas)
	}
	if s.NumTokens() != 3 {
		t.Fatalf("tokens = %d", s.NumTokens())
	}
}

func TestStreamer_EndFlushesInvalid(t *testing.T) {
	var deltas []string
	s := New(0, nil, func(u Update) { deltas = append(deltas, u.Delta) })
	s.Put("x\xe2\x82")
	s.End()
	if s.Text() != "x�" {
		t.Fatalf("text = %q", s.Text())
	}
	if len(deltas) != 2 {
		t.Fatalf("deltas = %q", deltas)
	}
}

func TestStreamer_StopsWhenInterrupted(t *testing.T) {
	var f flag
	n := 0
	s := New(0, &f, func(Update) { n++ })
	if !s.Put("a") {
		t.Fatalf("put should succeed")
	}
	f = true
	if s.Put("b") {
		t.Fatalf("put should report stop")
	}
	if n != 1 || s.Text() != "a" || s.NumTokens() != 1 {
		t.Fatalf("interrupted piece leaked: n=%d text=%q", n, s.Text())
	}
}

func TestStreamer_EmptyPieceNoUpdate(t *testing.T) {
	n := 0
	s := New(0, nil, func(Update) { n++ })
	s.Put("")
	if n != 0 || s.NumTokens() != 1 {
		t.Fatalf("empty piece: updates=%d tokens=%d", n, s.NumTokens())
	}
}

func TestStreamer_EndAfterInterruptDropsPending(t *testing.T) {
	var f flag
	n := 0
	s := New(0, &f, func(Update) { n++ })
	s.Put("ok\xe2")
	f = true
	s.End()
	if n != 1 || s.Text() != "ok" {
		t.Fatalf("updates=%d text=%q", n, s.Text())
	}
}
