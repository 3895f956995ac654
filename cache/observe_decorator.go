package cache

import (
	"context"
	"time"

	"github.com/jonwraymond/permcache/observe"
)

// ObservingFacade wraps an Interface with tracing, metrics, and structured
// logging, grounded on the teacher's observe.Middleware / CacheMiddleware
// composition pattern: a struct wrapping an interface, each call
// delegating then recording. It never changes the wrapped call's return
// value or error, so instrumentation cannot alter engine semantics (spec
// §7's error kinds are surfaced exactly as the inner Facade produced
// them).
type ObservingFacade struct {
	inner      Interface
	middleware *observe.Middleware
}

// NewObservingFacade builds an ObservingFacade from any Interface (usually
// a *Facade) and an observe.Observer.
func NewObservingFacade(inner Interface, obs observe.Observer) (*ObservingFacade, error) {
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return nil, err
	}
	return &ObservingFacade{inner: inner, middleware: mw}, nil
}

func opMeta(name, category string) observe.OpMeta {
	return observe.OpMeta{Namespace: "cache", Name: name, Category: category}
}

type setInput struct {
	itemKey  string
	value    []byte
	ttl      time.Duration
	clientID string
	perms    []string
}

func (o *ObservingFacade) Set(ctx context.Context, itemKey string, value []byte, ttl time.Duration, clientID string, perms ...string) error {
	_, err := o.middleware.Wrap(func(ctx context.Context, _ observe.OpMeta, input any) (any, error) {
		in := input.(setInput)
		return nil, o.inner.Set(ctx, in.itemKey, in.value, in.ttl, in.clientID, in.perms...)
	})(ctx, opMeta("set", "write"), setInput{itemKey, value, ttl, clientID, perms})
	return err
}

func (o *ObservingFacade) Get(ctx context.Context, clientID, itemKey string) (Result, error) {
	out, err := o.middleware.Wrap(func(ctx context.Context, _ observe.OpMeta, input any) (any, error) {
		ids := input.([2]string)
		return o.inner.Get(ctx, ids[0], ids[1])
	})(ctx, opMeta("get", "read"), [2]string{clientID, itemKey})
	if err != nil {
		return Result{}, err
	}
	return out.(Result), nil
}

type privateWrite struct {
	itemKey, clientID string
	value             []byte
	ttl               time.Duration
}

func (o *ObservingFacade) SetPrivate(ctx context.Context, itemKey, clientID string, value []byte, ttl time.Duration) error {
	_, err := o.middleware.Wrap(func(ctx context.Context, _ observe.OpMeta, input any) (any, error) {
		in := input.(privateWrite)
		return nil, o.inner.SetPrivate(ctx, in.itemKey, in.clientID, in.value, in.ttl)
	})(ctx, opMeta("set_private", "write"), privateWrite{itemKey, clientID, value, ttl})
	return err
}

func (o *ObservingFacade) GetPrivate(ctx context.Context, itemKey, clientID string) (Result, error) {
	out, err := o.middleware.Wrap(func(ctx context.Context, _ observe.OpMeta, input any) (any, error) {
		ids := input.([2]string)
		return o.inner.GetPrivate(ctx, ids[0], ids[1])
	})(ctx, opMeta("get_private", "read"), [2]string{itemKey, clientID})
	if err != nil {
		return Result{}, err
	}
	return out.(Result), nil
}

type unprotectedWrite struct {
	itemKey string
	value   []byte
	ttl     time.Duration
}

func (o *ObservingFacade) SetUnprotected(ctx context.Context, itemKey string, value []byte, ttl time.Duration) error {
	_, err := o.middleware.Wrap(func(ctx context.Context, _ observe.OpMeta, input any) (any, error) {
		in := input.(unprotectedWrite)
		return nil, o.inner.SetUnprotected(ctx, in.itemKey, in.value, in.ttl)
	})(ctx, opMeta("set_unprotected", "write"), unprotectedWrite{itemKey, value, ttl})
	return err
}

func (o *ObservingFacade) GetUnprotected(ctx context.Context, itemKey string) (Result, error) {
	out, err := o.middleware.Wrap(func(ctx context.Context, _ observe.OpMeta, input any) (any, error) {
		return o.inner.GetUnprotected(ctx, input.(string))
	})(ctx, opMeta("get_unprotected", "read"), itemKey)
	if err != nil {
		return Result{}, err
	}
	return out.(Result), nil
}

type setCollectionInput struct {
	clientID, collectionKey string
	itemKeys                []string
	ttl                     time.Duration
	filter                  string
}

func (o *ObservingFacade) SetCollection(ctx context.Context, clientID, collectionKey string, itemKeys []string, ttl time.Duration, filter string) (string, error) {
	out, err := o.middleware.Wrap(func(ctx context.Context, _ observe.OpMeta, input any) (any, error) {
		in := input.(setCollectionInput)
		return o.inner.SetCollection(ctx, in.clientID, in.collectionKey, in.itemKeys, in.ttl, in.filter)
	})(ctx, opMeta("set_collection", "write"), setCollectionInput{clientID, collectionKey, itemKeys, ttl, filter})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (o *ObservingFacade) GetCollection(ctx context.Context, clientID, collectionKey string) (CollectionResult, error) {
	out, err := o.middleware.Wrap(func(ctx context.Context, _ observe.OpMeta, input any) (any, error) {
		ids := input.([2]string)
		return o.inner.GetCollection(ctx, ids[0], ids[1])
	})(ctx, opMeta("get_collection", "read"), [2]string{clientID, collectionKey})
	if err != nil {
		return CollectionResult{}, err
	}
	return out.(CollectionResult), nil
}

type backpropInput struct {
	collectionKey, typeToken, targetItemKey string
}

func (o *ObservingFacade) SetBackpropagation(ctx context.Context, collectionKey, typeToken, targetItemKey string) error {
	_, err := o.middleware.Wrap(func(ctx context.Context, _ observe.OpMeta, input any) (any, error) {
		in := input.(backpropInput)
		return nil, o.inner.SetBackpropagation(ctx, in.collectionKey, in.typeToken, in.targetItemKey)
	})(ctx, opMeta("set_backpropagation", "admin"), backpropInput{collectionKey, typeToken, targetItemKey})
	return err
}

func (o *ObservingFacade) SetPermissionUnion(ctx context.Context, itemKeys ...string) error {
	_, err := o.middleware.Wrap(func(ctx context.Context, _ observe.OpMeta, input any) (any, error) {
		return nil, o.inner.SetPermissionUnion(ctx, input.([]string)...)
	})(ctx, opMeta("set_permission_union", "admin"), itemKeys)
	return err
}

var _ Interface = (*ObservingFacade)(nil)
