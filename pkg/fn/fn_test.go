package fn

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// --- Result ---

func TestOkAndErr(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("Ok should be ok")
	}
	v, err := r.Unwrap()
	if v != 42 || err != nil {
		t.Fatal("wrong unwrap")
	}

	e := Err[int](errors.New("fail"))
	if e.IsOk() || !e.IsErr() {
		t.Fatal("Err should be err")
	}
}

func TestErrNilStillFails(t *testing.T) {
	r := Err[int](nil)
	if r.IsOk() {
		t.Fatal("Err(nil) must not be ok")
	}
	if _, err := r.Unwrap(); err == nil {
		t.Fatal("Err(nil) should carry a placeholder error")
	}
}

func TestFromPair(t *testing.T) {
	if v, _ := FromPair(strconv.Atoi("42")).Unwrap(); v != 42 {
		t.Fatal("FromPair failed")
	}
	if FromPair(strconv.Atoi("nope")).IsOk() {
		t.Fatal("FromPair should fail")
	}
}

func TestCollect(t *testing.T) {
	v, err := Collect([]Result[int]{Ok(1), Ok(2), Ok(3)}).Unwrap()
	if err != nil || len(v) != 3 || v[0] != 1 {
		t.Fatal("Collect failed")
	}

	_, err = Collect([]Result[int]{Ok(1), Err[int](errors.New("e1")), Err[int](errors.New("e2"))}).Unwrap()
	if err == nil || err.Error() != "e1" {
		t.Fatal("Collect should return first error")
	}
}

func TestCollectAllJoinsEveryError(t *testing.T) {
	e1, e2 := errors.New("e1"), errors.New("e2")
	_, err := CollectAll([]Result[int]{Err[int](e1), Ok(2), Err[int](e2)}).Unwrap()
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Fatalf("both errors should be joined, got %v", err)
	}

	v, err := CollectAll([]Result[int]{}).Unwrap()
	if err != nil || len(v) != 0 {
		t.Fatal("CollectAll empty should be ok")
	}
}

// --- Slice ---

func TestFilterKeepsOrderAndDoesNotAlias(t *testing.T) {
	in := []int{1, 2, 3, 4}
	out := Filter(in, func(v int) bool { return v%2 == 0 })
	if len(out) != 2 || out[0] != 2 || out[1] != 4 {
		t.Fatalf("Filter failed: %v", out)
	}
	all := Filter(in, func(int) bool { return true })
	all[0] = 99
	if in[0] != 1 {
		t.Fatal("Filter result must not alias the input")
	}
	if none := Filter(in, func(int) bool { return false }); none == nil {
		t.Fatal("Filter should return an empty, non-nil slice")
	}
}

func TestMapAndFind(t *testing.T) {
	out := Map([]int{1, 2, 3}, func(v int) int { return v * 2 })
	if len(out) != 3 || out[2] != 6 {
		t.Fatal("Map failed")
	}
	v, ok := Find([]string{"a", "bb", "ccc"}, func(s string) bool { return len(s) == 2 })
	if !ok || v != "bb" {
		t.Fatal("Find failed")
	}
	if _, ok := Find([]int{}, func(int) bool { return true }); ok {
		t.Fatal("Find on empty should miss")
	}
}

func TestIndexByAndDuplicates(t *testing.T) {
	type item struct {
		id   int
		name string
	}
	items := []item{{1, "a"}, {2, "b"}, {1, "c"}, {1, "d"}}
	idx := IndexBy(items, func(i item) int { return i.id })
	if len(idx) != 2 || idx[1].name != "d" {
		t.Fatalf("IndexBy failed: %v", idx)
	}
	dups := Duplicates(items, func(i item) int { return i.id })
	if len(dups) != 1 || dups[0] != 1 {
		t.Fatalf("Duplicates failed: %v", dups)
	}
}

// --- Parallel ---

func TestParMapResultOrderAndBound(t *testing.T) {
	var inflight, peak atomic.Int32
	out := ParMapResult([]int{1, 2, 3, 4, 5}, 2, func(v int) Result[int] {
		n := inflight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inflight.Add(-1)
		return Ok(v * 10)
	})
	for i, r := range out {
		if v, _ := r.Unwrap(); v != (i+1)*10 {
			t.Fatalf("ParMapResult order broken at %d", i)
		}
	}
	if peak.Load() > 2 {
		t.Fatalf("expected at most 2 workers, saw %d", peak.Load())
	}
}

func TestParMapResultEmpty(t *testing.T) {
	if out := ParMapResult([]int{}, 3, func(v int) Result[int] { return Ok(v) }); len(out) != 0 {
		t.Fatal("expected empty output")
	}
}

func TestFanOutResult(t *testing.T) {
	v, err := FanOutResult(
		func() Result[int] { return Ok(1) },
		func() Result[int] { return Ok(2) },
	).Unwrap()
	if err != nil || v[0] != 1 || v[1] != 2 {
		t.Fatal("FanOutResult failed")
	}
	if FanOutResult(
		func() Result[int] { return Ok(1) },
		func() Result[int] { return Errf[int]("down") },
	).IsOk() {
		t.Fatal("FanOutResult should fail when one branch fails")
	}
}

// --- Retry ---

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 3}, func(_ context.Context) Result[string] {
		calls++
		if calls < 3 {
			return Errf[string]("attempt %d", calls)
		}
		return Ok("done")
	})
	if v, err := r.Unwrap(); err != nil || v != "done" || calls != 3 {
		t.Fatalf("got %q, %v after %d calls", v, err, calls)
	}
}

func TestRetryStopsOnPermanent(t *testing.T) {
	sentinel := errors.New("not found")
	calls := 0
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 5}, func(_ context.Context) Result[int] {
		calls++
		return Err[int](Permanent(sentinel))
	})
	_, err := r.Unwrap()
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
}

func TestRetryHonoursRetryable(t *testing.T) {
	calls := 0
	Retry(context.Background(), RetryOpts{
		MaxAttempts: 4,
		Retryable:   func(err error) bool { return !strings.Contains(err.Error(), "fatal") },
	}, func(_ context.Context) Result[int] {
		calls++
		return Errf[int]("fatal")
	})
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := Retry(ctx, RetryOpts{MaxAttempts: 3, InitialWait: time.Second}, func(_ context.Context) Result[int] {
		return Errf[int]("fail")
	})
	if _, err := r.Unwrap(); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
