package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/genfun"
	"github.com/wippyai/genfun/errors"
)

// MaxPrecedenceLength bounds the precedence lists dispatch accepts from a
// registry. Longer lists are treated as a broken hierarchy.
const MaxPrecedenceLength = 1024

// Options configures a GenericFunction.
type Options struct {
	// Hook receives calls that have no applicable method, dispatched on
	// (generic function, receiver, args). Nil selects the hook shared by
	// every generic function of the same registry.
	Hook *GenericFunction

	// MaxCacheSize is the number of signatures cached before the cache goes
	// megamorphic. Non-positive selects DefaultMaxCacheSize.
	MaxCacheSize int
}

// DefaultOptions returns the default generic function options.
func DefaultOptions() Options {
	return Options{MaxCacheSize: DefaultMaxCacheSize}
}

// GenericFunction is a named operation whose implementation is chosen per
// call from its methods by the dispatch types of all arguments.
type GenericFunction struct {
	registry      genfun.TypeRegistry
	instances     genfun.InstanceResolver
	namer         genfun.TypeNamer
	hook          *GenericFunction
	cache         *Cache
	roles         *roleIndex
	defaultMethod *Method
	name          string
	methods       []*Method
	handler       atomic.Pointer[NoApplicableMethodFunc]
	seq           uint64
	mu            sync.RWMutex
	handlerMu     sync.Mutex
}

// New creates a generic function with default options.
func New(name string, registry genfun.TypeRegistry) *GenericFunction {
	return NewWithOptions(name, registry, DefaultOptions())
}

// NewWithOptions creates a generic function with the given options.
func NewWithOptions(name string, registry genfun.TypeRegistry, opts Options) *GenericFunction {
	gf := newGeneric(name, registry, opts.MaxCacheSize)
	gf.hook = opts.Hook
	if gf.hook == nil {
		gf.hook = sharedHook(registry)
	}
	return gf
}

func newGeneric(name string, registry genfun.TypeRegistry, maxCache int) *GenericFunction {
	gf := &GenericFunction{
		registry: registry,
		cache:    NewCache(maxCache),
		roles:    newRoleIndex(),
		name:     name,
	}
	gf.instances, _ = registry.(genfun.InstanceResolver)
	gf.namer, _ = registry.(genfun.TypeNamer)
	return gf
}

// Name returns the generic function's name.
func (gf *GenericFunction) Name() string {
	return gf.name
}

// Registry returns the type registry the generic function dispatches with.
func (gf *GenericFunction) Registry() genfun.TypeRegistry {
	return gf.registry
}

func (gf *GenericFunction) String() string {
	return "#<GenericFunction " + gf.name + ">"
}

// AddMethod registers body for calls whose arguments match selector.
// Wildcard entries match any argument. An empty selector installs the
// default method, replacing any previous one. Every registration resets the
// dispatch cache.
func (gf *GenericFunction) AddMethod(selector []genfun.Handle, body MethodFunc) (*Method, error) {
	if body == nil {
		return nil, errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			Function(gf.name).
			Detail("method body is nil").
			Build()
	}

	gf.mu.Lock()
	defer gf.mu.Unlock()

	gf.seq++
	m := newMethod(gf, selector, body, gf.seq)

	if m.IsDefault() {
		gf.defaultMethod = m
	} else {
		for i := 0; i < m.minimalArity; i++ {
			gf.roles.register(m.selector[i], i, m)
		}
		gf.methods = append(gf.methods, m)
	}
	gf.cache.Reset()

	Logger().Debug("method added",
		zap.String("function", gf.name),
		zap.Stringer("method", m),
		zap.Int("arity", len(m.selector)),
		zap.Int("minimal_arity", m.minimalArity))
	return m, nil
}

// Call dispatches on args with a nil receiver.
func (gf *GenericFunction) Call(ctx context.Context, args ...any) (any, error) {
	return gf.CallWith(ctx, nil, args...)
}

// CallWith dispatches on args and invokes the most specific applicable
// method with receiver as self. When nothing applies the no-applicable-method
// hook decides the result.
func (gf *GenericFunction) CallWith(ctx context.Context, receiver any, args ...any) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	methods, err := gf.applicable(args)
	if err != nil {
		return nil, err
	}
	if len(methods) == 0 {
		return gf.noApplicable(ctx, receiver, args)
	}

	c := newContext(gf, methods, receiver, args)
	return methods[0].fn(withContext(ctx, c), receiver, args...)
}

// HasMethod reports whether a call with args would find an applicable method,
// the default method included.
func (gf *GenericFunction) HasMethod(args ...any) (bool, error) {
	methods, err := gf.applicable(args)
	if err != nil {
		return false, err
	}
	return len(methods) > 0, nil
}

// ApplicableMethods returns the methods a call with args would run, most
// specific first.
func (gf *GenericFunction) ApplicableMethods(args ...any) ([]*Method, error) {
	methods, err := gf.applicable(args)
	if err != nil {
		return nil, err
	}
	return append([]*Method(nil), methods...), nil
}

// Methods returns the non-default methods in registration order.
func (gf *GenericFunction) Methods() []*Method {
	gf.mu.RLock()
	defer gf.mu.RUnlock()
	return append([]*Method(nil), gf.methods...)
}

// DefaultMethod returns the default method, or nil.
func (gf *GenericFunction) DefaultMethod() *Method {
	gf.mu.RLock()
	defer gf.mu.RUnlock()
	return gf.defaultMethod
}

// CacheState returns the state of the dispatch cache.
func (gf *GenericFunction) CacheState() CacheState {
	return gf.cache.State()
}

// CacheLen returns the number of cached signatures.
func (gf *GenericFunction) CacheLen() int {
	return gf.cache.Len()
}

// applicable resolves the sorted method list for args, consulting the cache
// when the signature is cacheable. The read lock is held across key
// computation, lookup and store so a concurrent AddMethod cannot interleave.
func (gf *GenericFunction) applicable(args []any) ([]*Method, error) {
	gf.mu.RLock()
	defer gf.mu.RUnlock()

	key, starts, cacheable := gf.resolve(args)
	if cacheable {
		if methods, ok := gf.cache.Lookup(key); ok {
			return methods, nil
		}
	}

	methods, err := gf.computeApplicable(starts)
	if err != nil {
		return nil, err
	}

	if cacheable {
		from, to := gf.cache.Store(key, methods)
		if from != to {
			if to == Megamorphic {
				Logger().Debug("dispatch cache megamorphic, caching disabled until next registration",
					zap.String("function", gf.name),
					zap.Stringer("from", from))
			} else {
				Logger().Debug("dispatch cache state changed",
					zap.String("function", gf.name),
					zap.Stringer("from", from),
					zap.Stringer("to", to))
			}
		}
	}
	return methods, nil
}

// resolve returns the cache key (concrete dispatch types) and the handle
// each argument's precedence walk starts from. An argument that is an
// instance with a role in this generic function starts at the instance and
// makes the call uncacheable, since the key cannot tell it from other values
// of its type.
func (gf *GenericFunction) resolve(args []any) (key, starts []genfun.Handle, cacheable bool) {
	key = make([]genfun.Handle, len(args))
	starts = make([]genfun.Handle, len(args))
	cacheable = true

	for i, arg := range args {
		t := gf.registry.DispatchType(arg)
		key[i] = t
		starts[i] = t
		if gf.instances == nil {
			continue
		}
		if ih, ok := gf.instances.InstanceOf(arg); ok && gf.roles.hasAny(ih) {
			starts[i] = ih
			cacheable = false
		}
	}
	return key, starts, cacheable
}

type rank struct {
	pos    []int
	length int
}

func (r *rank) set(i, d int) {
	for len(r.pos) <= i {
		r.pos = append(r.pos, -1)
	}
	r.pos[i] = d
	if i+1 > r.length {
		r.length = i + 1
	}
}

func (r *rank) fullySpecified(n, minimal int) bool {
	if r.length != n {
		return false
	}
	for i := 0; i < minimal; i++ {
		if i >= len(r.pos) || r.pos[i] < 0 {
			return false
		}
	}
	return true
}

func (r *rank) score() int {
	s := 0
	for _, d := range r.pos {
		if d > 0 {
			s += d
		}
	}
	return s
}

type scored struct {
	method *Method
	score  int
}

// computeApplicable walks each argument's precedence list collecting the
// methods with a role at that position, keeps those whose every position is
// matched, and orders them by total distance. Ties go to the earlier
// registration. Callers hold gf.mu.
func (gf *GenericFunction) computeApplicable(starts []genfun.Handle) ([]*Method, error) {
	if len(starts) == 0 {
		// only the default method accepts a call without arguments
		if gf.defaultMethod == nil {
			return nil, nil
		}
		return []*Method{gf.defaultMethod}, nil
	}
	n := len(starts)

	ranks := make(map[*Method]*rank)
	var discovered []*Method

	for i, start := range starts {
		prec, err := gf.precedence(start)
		if err != nil {
			return nil, err
		}
		for d, t := range prec {
			for _, r := range gf.roles.lookup(t, i) {
				rk, ok := ranks[r.method]
				if !ok {
					rk = &rank{}
					ranks[r.method] = rk
					discovered = append(discovered, r.method)
				}
				rk.set(i, d)
			}
			if t == genfun.Root {
				// methods not specializing past position i match any trailing argument
				for _, m := range discovered {
					if m.minimalArity <= i {
						ranks[m].set(i, d)
					}
				}
			}
		}
	}

	candidates := make([]scored, 0, len(discovered))
	for _, m := range discovered {
		rk := ranks[m]
		if rk.fullySpecified(n, m.minimalArity) {
			candidates = append(candidates, scored{method: m, score: rk.score()})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score < candidates[j].score
		}
		return candidates[i].method.seq < candidates[j].method.seq
	})

	methods := make([]*Method, 0, len(candidates)+1)
	for _, c := range candidates {
		methods = append(methods, c.method)
	}
	if gf.defaultMethod != nil {
		methods = append(methods, gf.defaultMethod)
	}
	return methods, nil
}

// precedence fetches and validates the precedence list of h.
func (gf *GenericFunction) precedence(h genfun.Handle) ([]genfun.Handle, error) {
	if h == genfun.Root {
		return []genfun.Handle{genfun.Root}, nil
	}

	prec, err := gf.registry.PrecedenceList(h)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidTypeHierarchy) {
			return nil, err
		}
		return nil, errors.New(errors.PhaseRegistry, errors.KindInvalidTypeHierarchy).
			Function(gf.name).
			Value(h).
			Cause(err).
			Detail("precedence list unavailable").
			Build()
	}

	if detail := validatePrecedence(h, prec); detail != "" {
		Logger().Warn("invalid type hierarchy",
			zap.String("function", gf.name),
			zap.Uint32("handle", uint32(h)),
			zap.String("detail", detail))
		e := errors.InvalidTypeHierarchy(h, detail)
		e.Function = gf.name
		return nil, e
	}
	return prec, nil
}

func validatePrecedence(h genfun.Handle, prec []genfun.Handle) string {
	switch {
	case len(prec) == 0:
		return "empty precedence list"
	case len(prec) > MaxPrecedenceLength:
		return fmt.Sprintf("precedence list longer than %d", MaxPrecedenceLength)
	case prec[0] != h:
		return fmt.Sprintf("precedence list starts with %d", prec[0])
	case prec[len(prec)-1] != genfun.Root:
		return "precedence list does not end at Root"
	}
	for i := 1; i < len(prec); i++ {
		for j := 0; j < i; j++ {
			if prec[i] == prec[j] {
				return fmt.Sprintf("handle %d repeats in precedence list", prec[i])
			}
		}
	}
	return ""
}

func (gf *GenericFunction) typeName(h genfun.Handle) string {
	if gf.namer != nil {
		return gf.namer.TypeName(h)
	}
	switch h {
	case genfun.Root:
		return "Root"
	case genfun.NullType:
		return "nil"
	case genfun.MissingType:
		return "undefined"
	}
	return fmt.Sprintf("#%d", h)
}

// argTypeNames names the dispatch type of each argument for diagnostics.
func (gf *GenericFunction) argTypeNames(args []any) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		if gf.namer != nil {
			out[i] = gf.namer.TypeName(gf.registry.DispatchType(arg))
			continue
		}
		out[i] = fmt.Sprintf("%T", arg)
	}
	return out
}
