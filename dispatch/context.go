package dispatch

import (
	"context"
	"sync"

	"github.com/wippyai/genfun/errors"
)

type contextKey struct{}

// chain is the ordered applicable-method list of one top-level dispatch
// together with the position of the method currently running.
type chain struct {
	gf      *GenericFunction
	methods []*Method
	cursor  int
	mu      sync.Mutex
}

// Context is the dispatch state visible to a running method: the method
// chain, the receiver and the arguments the method was called with.
//
// Contexts obtained from GetContext are snapshots. They advance their own
// cursor independently of the dispatch they were taken from and stay valid
// after the method that captured them has returned.
type Context struct {
	chain    *chain
	receiver any
	args     []any
}

func newContext(gf *GenericFunction, methods []*Method, receiver any, args []any) *Context {
	return &Context{
		chain:    &chain{gf: gf, methods: methods},
		receiver: receiver,
		args:     args,
	}
}

func withContext(ctx context.Context, c *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

func contextFrom(ctx context.Context) *Context {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(contextKey{}).(*Context)
	return c
}

// GetContext returns a snapshot of the dispatch context active in ctx.
func GetContext(ctx context.Context) (*Context, error) {
	c := contextFrom(ctx)
	if c == nil {
		return nil, errors.NoActiveContext("GetContext")
	}
	return c.snapshot(), nil
}

// HasNextMethod reports whether the method running in ctx has a less
// specific method to defer to.
func HasNextMethod(ctx context.Context) (bool, error) {
	c := contextFrom(ctx)
	if c == nil {
		return false, errors.NoActiveContext("HasNextMethod")
	}
	return c.HasNext(), nil
}

// CallNextMethod invokes the next less specific method with the current
// receiver. Without args the next method receives the arguments of the
// current one; otherwise it receives args.
func CallNextMethod(ctx context.Context, args ...any) (any, error) {
	c := contextFrom(ctx)
	if c == nil {
		return nil, errors.NoActiveContext("CallNextMethod")
	}
	return c.CallNext(ctx, args...)
}

func (c *Context) snapshot() *Context {
	ch := c.chain
	ch.mu.Lock()
	cursor := ch.cursor
	ch.mu.Unlock()

	return &Context{
		chain:    &chain{gf: ch.gf, methods: ch.methods, cursor: cursor},
		receiver: c.receiver,
		args:     c.args,
	}
}

// HasNext reports whether a method remains after the current one.
func (c *Context) HasNext() bool {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	return c.chain.cursor+1 < len(c.chain.methods)
}

// CallNext advances the cursor and invokes the next method. See CallNextMethod.
func (c *Context) CallNext(ctx context.Context, args ...any) (any, error) {
	ch := c.chain
	ch.mu.Lock()
	if ch.cursor+1 >= len(ch.methods) {
		ch.mu.Unlock()
		return nil, errors.NoNextMethod(ch.gf.name)
	}
	ch.cursor++
	m := ch.methods[ch.cursor]
	ch.mu.Unlock()

	callArgs := c.args
	if len(args) > 0 {
		callArgs = args
	}
	next := &Context{chain: ch, receiver: c.receiver, args: callArgs}
	if ctx == nil {
		ctx = context.Background()
	}
	return m.fn(withContext(ctx, next), c.receiver, callArgs...)
}

// GenericFunction returns the generic function being dispatched.
func (c *Context) GenericFunction() *GenericFunction {
	return c.chain.gf
}

// Receiver returns the receiver of the dispatch.
func (c *Context) Receiver() any {
	return c.receiver
}

// Args returns the arguments the current method was called with.
func (c *Context) Args() []any {
	return append([]any(nil), c.args...)
}

// Methods returns the full applicable-method chain, most specific first.
func (c *Context) Methods() []*Method {
	return append([]*Method(nil), c.chain.methods...)
}

// Cursor returns the index of the current method in Methods.
func (c *Context) Cursor() int {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	return c.chain.cursor
}
