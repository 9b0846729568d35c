// Package response assembles resolved field outcomes into JSON-shaped objects.
//
// A Node collects immediate values and pending computations. Resolve runs the
// pending computations concurrently, waits for all of them, and applies every
// outcome in the order it was added, so the resulting object does not depend
// on completion order. When a key is written twice the later registration
// wins. The first failing computation cancels the context seen by its
// siblings and fails the whole node; no partial object is returned.
package response

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// RootKey is the path of the node holding an operation's result.
const RootKey = "data"

// Pending computes a value once awaited.
type Pending func(ctx context.Context) (any, error)

// ErrResolved is returned when a node is resolved more than once.
var ErrResolved = errors.New("response: node already resolved")

// ErrLateOutcome is returned by Resolve when an outcome was added to the node
// after Resolve started. Such outcomes are dropped.
var ErrLateOutcome = errors.New("response: outcome added after resolution started")

type outcome struct {
	key     string
	spread  bool
	value   any
	pending Pending
}

// Node is a response object under construction. Adding outcomes is safe from
// multiple goroutines; a Node must not be shared between requests. Outcomes
// must be added before Resolve is called: later ones are dropped and reported
// by Resolve as ErrLateOutcome while it is still running.
type Node struct {
	path []string

	mu       sync.Mutex
	outcomes []outcome
	resolved bool
	late     error
}

// NewRoot returns the node for an operation result, at path ["data"].
func NewRoot() *Node { return New(RootKey) }

// New returns an empty node at path.
func New(path ...string) *Node {
	return &Node{path: append([]string(nil), path...)}
}

// Path returns a copy of the node's path.
func (n *Node) Path() []string { return append([]string(nil), n.path...) }

// Key is the last path element: the key the node's object is stored under
// when it is nested into its parent.
func (n *Node) Key() string {
	if len(n.path) == 0 {
		return ""
	}
	return n.path[len(n.path)-1]
}

func (n *Node) String() string { return strings.Join(n.path, ".") }

// Child returns an empty node one level below n at key.
func (n *Node) Child(key string) *Node {
	path := make([]string, len(n.path), len(n.path)+1)
	copy(path, n.path)
	return &Node{path: append(path, key)}
}

func (n *Node) add(o outcome) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.resolved {
		if n.late == nil {
			n.late = fmt.Errorf("%w: %s", ErrLateOutcome, n)
		}
		return
	}
	n.outcomes = append(n.outcomes, o)
}

// Set records an immediate value under key. Like every method adding an
// outcome, it has no effect once Resolve has started.
func (n *Node) Set(key string, value any) { n.add(outcome{key: key, value: value}) }

// Merge spreads the entries of obj into the node.
func (n *Node) Merge(obj map[string]any) { n.add(outcome{spread: true, value: obj}) }

// AddPending records a computation whose result is stored under key.
func (n *Node) AddPending(key string, fn Pending) { n.add(outcome{key: key, pending: fn}) }

// MergePending records a computation whose result, an object or nil, is
// spread into the node.
func (n *Node) MergePending(fn Pending) { n.add(outcome{spread: true, pending: fn}) }

// Nest resolves child as part of n and stores its object under child.Key().
func (n *Node) Nest(child *Node) {
	n.AddPending(child.Key(), func(ctx context.Context) (any, error) {
		return child.Resolve(ctx)
	})
}

// On adds a child node at key, filled by build once n resolves. The child
// is resolved after build returns and stored under key.
func (n *Node) On(key string, build func(ctx context.Context, child *Node) error) {
	n.AddPending(key, func(ctx context.Context) (any, error) {
		child := n.Child(key)
		if err := build(ctx, child); err != nil {
			return nil, err
		}
		return child.Resolve(ctx)
	})
}

// NestList stores the objects of children, resolved concurrently, as a list
// under key. A nil child yields a null element.
func (n *Node) NestList(key string, children []*Node) {
	n.AddPending(key, func(ctx context.Context) (any, error) {
		return ResolveList(ctx, children)
	})
}

// ResolveList resolves nodes concurrently into a list of their objects.
func ResolveList(ctx context.Context, nodes []*Node) ([]any, error) {
	out := make([]any, len(nodes))
	g, gctx := errgroup.WithContext(ctx)
	for i, node := range nodes {
		if node == nil {
			continue
		}
		g.Go(func() error {
			obj, err := node.Resolve(gctx)
			if err != nil {
				return err
			}
			out[i] = obj
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Resolve awaits all pending computations and returns the node's object.
func (n *Node) Resolve(ctx context.Context) (map[string]any, error) {
	n.mu.Lock()
	if n.resolved {
		n.mu.Unlock()
		return nil, ErrResolved
	}
	n.resolved = true
	outcomes := n.outcomes
	n.outcomes = nil
	n.mu.Unlock()

	results := make([]any, len(outcomes))
	g, gctx := errgroup.WithContext(ctx)
	for i, o := range outcomes {
		if o.pending == nil {
			continue
		}
		g.Go(func() error {
			v, err := o.pending(gctx)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	n.mu.Lock()
	late := n.late
	n.mu.Unlock()
	if late != nil {
		return nil, late
	}

	obj := make(map[string]any, len(outcomes))
	for i, o := range outcomes {
		v := o.value
		if o.pending != nil {
			v = results[i]
		}
		if !o.spread {
			obj[o.key] = v
			continue
		}
		if err := spread(obj, v); err != nil {
			return nil, fmt.Errorf("response: %s: %w", n, err)
		}
	}
	return obj, nil
}

// Envelope resolves n and wraps its object under n.Key(), for example
// {"data": {...}} for a root node.
func (n *Node) Envelope(ctx context.Context) (map[string]any, error) {
	obj, err := n.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{n.Key(): obj}, nil
}

func spread(dst map[string]any, v any) error {
	switch v := v.(type) {
	case nil:
		return nil
	case map[string]any:
		for k, item := range v {
			dst[k] = item
		}
		return nil
	}
	return fmt.Errorf("cannot merge %T into an object", v)
}
