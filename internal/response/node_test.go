package response

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func value(v any) Pending {
	return func(context.Context) (any, error) { return v, nil }
}

func delayed(d time.Duration, v any) Pending {
	return func(ctx context.Context) (any, error) {
		select {
		case <-time.After(d):
			return v, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func TestNode_ImmediateAndPending(t *testing.T) {
	n := NewRoot()
	n.Set("whiskers", 9000)
	n.MergePending(value(map[string]any{"weight": 5}))

	got, err := n.Envelope(context.Background())
	require.NoError(t, err)
	want := map[string]any{"data": map[string]any{"whiskers": 9000, "weight": 5}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("envelope mismatch (-want +got):\n%s", diff)
	}
}

func TestNode_MergeIsCommutative(t *testing.T) {
	build := func(first, second time.Duration) map[string]any {
		n := New("cat")
		n.MergePending(delayed(first, map[string]any{"a": 1}))
		n.MergePending(delayed(second, map[string]any{"b": 2}))
		got, err := n.Resolve(context.Background())
		require.NoError(t, err)
		return got
	}

	ab := build(0, 20*time.Millisecond)
	ba := build(20*time.Millisecond, 0)
	require.Equal(t, map[string]any{"a": 1, "b": 2}, ab)
	if diff := cmp.Diff(ab, ba); diff != "" {
		t.Fatalf("result depends on completion order (-ab +ba):\n%s", diff)
	}
}

func TestNode_LastWriteWins(t *testing.T) {
	n := New("x")
	n.AddPending("k", delayed(20*time.Millisecond, "first"))
	n.Set("k", "second")
	n.Merge(map[string]any{"m": 1})
	n.AddPending("m", value(2))

	got, err := n.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]any{"k": "second", "m": 2}, got)
}

func TestNode_FailFast(t *testing.T) {
	boom := errors.New("boom")
	var cancelled atomic.Bool

	n := NewRoot()
	n.Set("ok", true)
	n.AddPending("slow", func(ctx context.Context) (any, error) {
		select {
		case <-ctx.Done():
			cancelled.Store(true)
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return "late", nil
		}
	})
	n.AddPending("bad", func(context.Context) (any, error) { return nil, boom })

	start := time.Now()
	got, err := n.Resolve(context.Background())
	require.ErrorIs(t, err, boom)
	require.Nil(t, got)
	require.True(t, cancelled.Load())
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestNode_Nesting(t *testing.T) {
	root := NewRoot()
	root.Set("version", "1")
	root.On("echo", func(ctx context.Context, child *Node) error {
		require.Equal(t, []string{"data", "echo"}, child.Path())
		child.Set("index", 1)
		child.AddPending("message", value("hi"))
		return nil
	})

	sub := root.Child("stats")
	sub.Set("count", 3)
	root.Nest(sub)

	a, b := New("echoes", "0"), New("echoes", "1")
	a.Set("index", 0)
	b.AddPending("index", value(1))
	root.NestList("echoes", []*Node{a, nil, b})

	got, err := root.Envelope(context.Background())
	require.NoError(t, err)
	want := map[string]any{"data": map[string]any{
		"version": "1",
		"echo":    map[string]any{"index": 1, "message": "hi"},
		"stats":   map[string]any{"count": 3},
		"echoes":  []any{map[string]any{"index": 0}, nil, map[string]any{"index": 1}},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("nested result mismatch (-want +got):\n%s", diff)
	}
}

func TestNode_ChildFailurePropagates(t *testing.T) {
	boom := errors.New("boom")
	root := NewRoot()
	root.On("a", func(ctx context.Context, child *Node) error {
		child.On("b", func(ctx context.Context, child *Node) error { return boom })
		return nil
	})

	_, err := root.Resolve(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestNode_MergeNonObject(t *testing.T) {
	n := New("x")
	n.MergePending(value([]any{1}))
	n.MergePending(value(nil))

	_, err := n.Resolve(context.Background())
	require.Error(t, err)
}

func TestNode_ResolveOnce(t *testing.T) {
	n := New("x")
	n.Set("a", 1)
	_, err := n.Resolve(context.Background())
	require.NoError(t, err)

	_, err = n.Resolve(context.Background())
	require.ErrorIs(t, err, ErrResolved)
	require.NotPanics(t, func() { n.Set("b", 2) })
}

func TestNode_OutcomeAddedDuringResolve(t *testing.T) {
	n := New("x")
	n.Set("a", 1)
	n.AddPending("b", func(context.Context) (any, error) {
		n.Set("c", 3)
		return 2, nil
	})

	obj, err := n.Resolve(context.Background())
	require.ErrorIs(t, err, ErrLateOutcome)
	require.Contains(t, err.Error(), "x")
	require.Nil(t, obj)
}

func TestNode_ConcurrentAdds(t *testing.T) {
	n := New("x")
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.AddPending(string(rune('a'+i%26))+string(rune('a'+i/26)), value(i))
		}()
	}
	wg.Wait()

	got, err := n.Resolve(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 50)
}
