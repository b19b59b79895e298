package notify

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"

	"github.com/dshills/livesettings/internal/settings/document"
)

func TestSource_String(t *testing.T) {
	tests := []struct {
		s    Source
		want string
	}{
		{SourceSet, "set"},
		{SourceLoad, "load"},
		{SourceOnConnect, "on-connect"},
		{SourcePatch, "patch"},
		{SourceRemove, "remove"},
		{Source(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestSignal_Order(t *testing.T) {
	var s Signal
	var order []int

	for i := range 3 {
		s.Subscribe(func(document.Node, Args) {
			order = append(order, i)
		})
	}

	s.Emit(gjson.Parse(`1`), Args{})

	if diff := cmp.Diff([]int{0, 1, 2}, order); diff != "" {
		t.Errorf("invocation order mismatch (-want +got):\n%s", diff)
	}
}

func TestSignal_PassesNodeAndArgs(t *testing.T) {
	var s Signal
	var gotRaw string
	var gotArgs Args

	s.Subscribe(func(n document.Node, args Args) {
		gotRaw = n.Raw
		gotArgs = args
	})
	s.Emit(gjson.Parse(`{"a":1}`), Args{Source: SourceLoad, Path: "/x", Origin: "test"})

	if gotRaw != `{"a":1}` {
		t.Errorf("node = %s", gotRaw)
	}
	if gotArgs.Source != SourceLoad || gotArgs.Path != "/x" || gotArgs.Origin != "test" {
		t.Errorf("args = %+v", gotArgs)
	}
}

func TestSubscription_Unsubscribe(t *testing.T) {
	var s Signal
	var a, b atomic.Int32

	subA := s.Subscribe(func(document.Node, Args) { a.Add(1) })
	s.Subscribe(func(document.Node, Args) { b.Add(1) })

	s.Emit(gjson.Result{}, Args{})
	subA.Unsubscribe()
	subA.Unsubscribe()
	s.Emit(gjson.Result{}, Args{})

	if a.Load() != 1 {
		t.Errorf("a called %d times, want 1", a.Load())
	}
	if b.Load() != 2 {
		t.Errorf("b called %d times, want 2", b.Load())
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
	if subA.Active() {
		t.Error("Active() = true after Unsubscribe")
	}

	var nilSub *Subscription
	nilSub.Unsubscribe()
}

func TestSignal_SubscribeDuringEmit(t *testing.T) {
	var s Signal
	var late atomic.Int32

	s.Subscribe(func(document.Node, Args) {
		s.Subscribe(func(document.Node, Args) { late.Add(1) })
	})

	s.Emit(gjson.Result{}, Args{})
	if late.Load() != 0 {
		t.Errorf("observer added during Emit was called %d times", late.Load())
	}

	s.Emit(gjson.Result{}, Args{})
	if late.Load() != 1 {
		t.Errorf("late observer called %d times on second Emit, want 1", late.Load())
	}
}

func TestSignal_UnsubscribeDuringEmit(t *testing.T) {
	var s Signal
	var second atomic.Int32
	var subB *Subscription

	s.Subscribe(func(document.Node, Args) {
		subB.Unsubscribe()
	})
	subB = s.Subscribe(func(document.Node, Args) { second.Add(1) })

	s.Emit(gjson.Result{}, Args{})

	if second.Load() != 0 {
		t.Errorf("observer disposed mid-delivery was called %d times", second.Load())
	}
}

func TestSignal_Reset(t *testing.T) {
	var s Signal
	var calls atomic.Int32
	sub := s.Subscribe(func(document.Node, Args) { calls.Add(1) })

	s.Reset()
	s.Emit(gjson.Result{}, Args{})

	if calls.Load() != 0 || s.Len() != 0 || sub.Active() {
		t.Errorf("after Reset: calls = %d, Len = %d, Active = %v", calls.Load(), s.Len(), sub.Active())
	}
}

func TestSignal_Concurrent(t *testing.T) {
	var s Signal
	var calls atomic.Int64
	var wg sync.WaitGroup

	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := s.Subscribe(func(document.Node, Args) { calls.Add(1) })
			s.Emit(gjson.Result{}, Args{})
			sub.Unsubscribe()
		}()
	}
	wg.Wait()

	if s.Len() != 0 {
		t.Errorf("Len = %d after all unsubscribed", s.Len())
	}
	if calls.Load() < 10 {
		t.Errorf("calls = %d, want at least 10", calls.Load())
	}
}

func TestGroup(t *testing.T) {
	var s Signal
	var g Group
	var calls atomic.Int32

	g.Add(
		s.Subscribe(func(document.Node, Args) { calls.Add(1) }),
		s.Subscribe(func(document.Node, Args) { calls.Add(1) }),
		nil,
	)
	if g.Len() != 2 {
		t.Errorf("Len = %d, want 2", g.Len())
	}

	g.Close()
	s.Emit(gjson.Result{}, Args{})

	if calls.Load() != 0 {
		t.Errorf("calls after Close = %d, want 0", calls.Load())
	}
	g.Close()
}

func TestBatch(t *testing.T) {
	var s1, s2 Signal
	var got []Args

	record := func(_ document.Node, args Args) { got = append(got, args) }
	s1.Subscribe(record)
	s2.Subscribe(record)

	b := NewBatch()
	var hooked int
	b.OnDelivery(func(document.Node, Args) { hooked++ })

	b.Add(&s1, gjson.Parse(`1`), Args{Path: "/a", Source: SourceLoad})
	b.Add(&s2, gjson.Parse(`2`), Args{Path: "/b", Source: SourceLoad})

	if len(got) != 0 {
		t.Fatal("Add delivered before Commit")
	}
	if b.Len() != 2 {
		t.Errorf("Len = %d, want 2", b.Len())
	}

	b.Commit()

	if len(got) != 2 {
		t.Fatalf("delivered %d, want 2", len(got))
	}
	if got[0].Path != "/a" || got[1].Path != "/b" {
		t.Errorf("delivery order = %s, %s", got[0].Path, got[1].Path)
	}
	if got[0].Batch == "" || got[0].Batch != got[1].Batch || got[0].Batch != b.ID() {
		t.Errorf("batch ids = %q, %q; want shared %q", got[0].Batch, got[1].Batch, b.ID())
	}
	if !got[0].Time.Equal(got[1].Time) || got[0].Time.IsZero() {
		t.Error("deliveries should share a non-zero time")
	}
	if hooked != 2 {
		t.Errorf("hook called %d times, want 2", hooked)
	}

	b.Commit()
	if len(got) != 2 {
		t.Error("second Commit redelivered")
	}
}

func TestBatch_Discard(t *testing.T) {
	var s Signal
	var calls int
	s.Subscribe(func(document.Node, Args) { calls++ })

	b := NewBatch()
	b.Add(&s, gjson.Result{}, Args{})
	b.Discard()
	b.Commit()

	if calls != 0 {
		t.Errorf("calls = %d after Discard", calls)
	}
}
