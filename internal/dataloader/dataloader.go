// Package dataloader batches key lookups made while resolving one request.
//
// Resolvers Attach the keys they need and await the returned channel. A
// single LoadMore call then fetches every key attached so far in one batch
// and delivers each attachment its values in the order of its keys.
package dataloader

import (
	"context"
	"sync"
)

// FetchFunc loads the values of keys. Keys without a value are left out of
// the returned map.
type FetchFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

// Result is delivered to one attachment. Values and Found are aligned with
// the attached keys.
type Result[V any] struct {
	Values []V
	Found  []bool
	Err    error
}

type attachment[K comparable, V any] struct {
	keys []K
	ch   chan Result[V]
}

// Loader collects attachments until LoadMore dispatches them. A Loader
// belongs to a single request.
type Loader[K comparable, V any] struct {
	fetch FetchFunc[K, V]

	mu       sync.Mutex
	attached []attachment[K, V]
}

func New[K comparable, V any](fetch FetchFunc[K, V]) *Loader[K, V] {
	return &Loader[K, V]{fetch: fetch}
}

// Attach queues keys for the next batch. The channel receives exactly one
// Result.
func (l *Loader[K, V]) Attach(keys ...K) <-chan Result[V] {
	ch := make(chan Result[V], 1)
	l.mu.Lock()
	l.attached = append(l.attached, attachment[K, V]{keys: append([]K(nil), keys...), ch: ch})
	l.mu.Unlock()
	return ch
}

// Len reports the number of attachments waiting for a batch.
func (l *Loader[K, V]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attached)
}

// Keys returns the distinct keys attached so far, in first-attached order.
func (l *Loader[K, V]) Keys() []K {
	l.mu.Lock()
	defer l.mu.Unlock()
	return distinctKeys(l.attached)
}

func distinctKeys[K comparable, V any](attached []attachment[K, V]) []K {
	seen := make(map[K]struct{})
	var keys []K
	for _, a := range attached {
		for _, k := range a.keys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys
}

// LoadMore fetches all attached keys in one call and resolves every pending
// attachment. Attachments made while the fetch runs wait for the next call.
// A fetch error is delivered to every attachment of the batch and returned.
func (l *Loader[K, V]) LoadMore(ctx context.Context) error {
	l.mu.Lock()
	batch := l.attached
	l.attached = nil
	l.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	items, err := l.fetch(ctx, distinctKeys(batch))
	for _, a := range batch {
		if err != nil {
			a.ch <- Result[V]{Err: err}
			continue
		}
		res := Result[V]{Values: make([]V, len(a.keys)), Found: make([]bool, len(a.keys))}
		for i, k := range a.keys {
			res.Values[i], res.Found[i] = items[k]
		}
		a.ch <- res
	}
	return err
}

// Await waits for the result of an attachment.
func Await[V any](ctx context.Context, ch <-chan Result[V]) (Result[V], error) {
	select {
	case res := <-ch:
		return res, res.Err
	case <-ctx.Done():
		return Result[V]{}, ctx.Err()
	}
}

// Load attaches keys and waits for a batch that some other goroutine
// dispatches with LoadMore.
func (l *Loader[K, V]) Load(ctx context.Context, keys ...K) (Result[V], error) {
	return Await(ctx, l.Attach(keys...))
}
