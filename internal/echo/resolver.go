package echo

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	coercion "github.com/hanpama/matchbox/internal/coercion"
	dataloader "github.com/hanpama/matchbox/internal/dataloader"
	language "github.com/hanpama/matchbox/internal/language"
	response "github.com/hanpama/matchbox/internal/response"
)

// Resolver answers echo operations from an Archive.
type Resolver struct {
	archive *Archive
	log     logr.Logger
}

func NewResolver(archive *Archive, log logr.Logger) *Resolver {
	return &Resolver{archive: archive, log: log}
}

func (r *Resolver) Resolve(ctx context.Context, op *coercion.Operation, data *response.Node) error {
	switch op.Kind {
	case language.Query:
		return r.query(ctx, op.Selection, data)
	case language.Mutation:
		return r.mutation(op.Selection, data)
	}
	return fmt.Errorf("echo: %s operations are not supported", op.Kind)
}

func (r *Resolver) query(ctx context.Context, sel []coercion.Selection, data *response.Node) error {
	// Every echo and echoes field of the request shares one archive lookup.
	loader := dataloader.New(func(_ context.Context, indices []int32) (map[int32]string, error) {
		r.log.V(2).Info("loading echoes", "indices", indices)
		return r.archive.Get(indices), nil
	})

	for _, f := range coercion.ForType(sel, "EchoQuery") {
		key := f.ResponseKey()
		switch f.Name {
		case "__typename":
			data.Set(key, "EchoQuery")
		case "pastEchoes":
			data.Set(key, r.archive.All())
		case "count":
			data.Set(key, r.archive.Len())
		case "echo":
			index, _ := f.Arg("index").(int32)
			ch := loader.Attach(index)
			data.AddPending(key, func(ctx context.Context) (any, error) {
				res, err := dataloader.Await(ctx, ch)
				if err != nil {
					return nil, err
				}
				if !res.Found[0] {
					return nil, nil
				}
				node := data.Child(key)
				if err := fillEcho(node, f.Selection, index, res.Values[0]); err != nil {
					return nil, err
				}
				return node.Resolve(ctx)
			})
		case "echoes":
			indices := int32s(f.Arg("indices"))
			ch := loader.Attach(indices...)
			data.AddPending(key, func(ctx context.Context) (any, error) {
				res, err := dataloader.Await(ctx, ch)
				if err != nil {
					return nil, err
				}
				nodes := make([]*response.Node, len(indices))
				for i, index := range indices {
					if !res.Found[i] {
						continue
					}
					nodes[i] = data.Child(key).Child(fmt.Sprint(i))
					if err := fillEcho(nodes[i], f.Selection, index, res.Values[i]); err != nil {
						return nil, err
					}
				}
				return response.ResolveList(ctx, nodes)
			})
		default:
			return fmt.Errorf("echo: unknown query field %q", f.Name)
		}
	}

	if loader.Len() > 0 {
		data.MergePending(func(ctx context.Context) (any, error) {
			return nil, loader.LoadMore(ctx)
		})
	}
	return nil
}

func (r *Resolver) mutation(sel []coercion.Selection, data *response.Node) error {
	for _, f := range coercion.ForType(sel, "EchoMutation") {
		key := f.ResponseKey()
		switch f.Name {
		case "__typename":
			data.Set(key, "EchoMutation")
		case "echo":
			msg, _ := f.Arg("message").(string)
			index := r.archive.Append(msg)
			r.log.V(1).Info("archived echo", "index", index)
			node := data.Child(key)
			if err := fillEcho(node, f.Selection, index, msg); err != nil {
				return err
			}
			data.Nest(node)
		default:
			return fmt.Errorf("echo: unknown mutation field %q", f.Name)
		}
	}
	return nil
}

func fillEcho(node *response.Node, sel []coercion.Selection, index int32, msg string) error {
	for _, f := range coercion.ForType(sel, "Echo") {
		key := f.ResponseKey()
		switch f.Name {
		case "__typename":
			node.Set(key, "Echo")
		case "index":
			node.Set(key, index)
		case "message":
			node.Set(key, msg)
		case "shout":
			times, _ := f.Arg("times").(int32)
			if times < 0 {
				return fmt.Errorf("echo: shout times must not be negative, got %d", times)
			}
			node.Set(key, strings.Repeat(strings.ToUpper(msg)+"!", int(times)))
		default:
			return fmt.Errorf("echo: unknown Echo field %q", f.Name)
		}
	}
	return nil
}

func int32s(v any) []int32 {
	items, _ := v.([]any)
	out := make([]int32, 0, len(items))
	for _, item := range items {
		if i, ok := item.(int32); ok {
			out = append(out, i)
		}
	}
	return out
}
