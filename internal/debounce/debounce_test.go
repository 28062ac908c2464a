package debounce

import (
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu  sync.Mutex
	got []string
}

func (r *recorder) settle(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, v)
}

func (r *recorder) values() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func TestGate_BurstSettlesOnceWithLastValue(t *testing.T) {
	rec := &recorder{}
	g := New(40*time.Millisecond, "", rec.settle)
	defer g.Stop()

	for _, v := range []string{"b", "bo", "bob", "bobb", "bobby"} {
		if settled := g.Observe(v); settled != "" {
			t.Fatalf("Observe(%q) returned settled %q mid-burst", v, settled)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if g.Raw() != "bobby" {
		t.Errorf("Raw = %q", g.Raw())
	}

	time.Sleep(200 * time.Millisecond)

	got := rec.values()
	if len(got) != 1 || got[0] != "bobby" {
		t.Fatalf("settlements = %v, want [bobby]", got)
	}
	if g.Settled() != "bobby" {
		t.Errorf("Settled = %q", g.Settled())
	}
	if g.Pending() {
		t.Error("still pending after settlement")
	}
}

func TestGate_SeparateBurstsSettleSeparately(t *testing.T) {
	rec := &recorder{}
	g := New(20*time.Millisecond, "", rec.settle)
	defer g.Stop()

	g.Observe("a")
	time.Sleep(120 * time.Millisecond)
	g.Observe("b")
	time.Sleep(120 * time.Millisecond)

	got := rec.values()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("settlements = %v, want [a b]", got)
	}
}

func TestGate_StopCancelsPending(t *testing.T) {
	rec := &recorder{}
	g := New(20*time.Millisecond, "", rec.settle)

	g.Observe("x")
	g.Stop()
	time.Sleep(100 * time.Millisecond)

	if got := rec.values(); len(got) != 0 {
		t.Fatalf("settlements after Stop = %v", got)
	}
	g.Observe("y")
	if g.Pending() {
		t.Error("Observe after Stop scheduled a settlement")
	}
}

func TestGate_Flush(t *testing.T) {
	rec := &recorder{}
	g := New(time.Hour, "", rec.settle)
	defer g.Stop()

	g.Observe("now")
	g.Flush()

	got := rec.values()
	if len(got) != 1 || got[0] != "now" {
		t.Fatalf("settlements = %v, want [now]", got)
	}
	g.Flush()
	if len(rec.values()) != 1 {
		t.Error("second Flush settled again")
	}
}

func TestGate_ObservingSettledValueIsNoop(t *testing.T) {
	rec := &recorder{}
	g := New(20*time.Millisecond, "same", rec.settle)
	defer g.Stop()

	g.Observe("same")
	if g.Pending() {
		t.Error("observing the settled value scheduled a settlement")
	}
	time.Sleep(60 * time.Millisecond)
	if got := rec.values(); len(got) != 0 {
		t.Errorf("settlements = %v", got)
	}
}
