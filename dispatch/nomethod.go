package dispatch

import (
	"context"
	"sync"

	"github.com/wippyai/genfun"
	"github.com/wippyai/genfun/errors"
)

// HookName is the name of the no-applicable-method generic function.
const HookName = "no-applicable-method"

// NoApplicableMethodFunc handles a call of gf that found no applicable method.
type NoApplicableMethodFunc func(ctx context.Context, gf *GenericFunction, receiver any, args []any) (any, error)

var (
	hooksMu sync.Mutex
	hooks   = make(map[genfun.TypeRegistry]*GenericFunction)
)

// NoApplicableMethodHook returns the hook shared by the generic functions of
// registry. Its default method fails with errors.KindNoApplicableMethod.
//
// Shared hooks are kept for the life of the process, and so is every
// registry they are keyed by. Hosts that create short-lived registries should
// pass their own hook through Options.Hook.
func NoApplicableMethodHook(registry genfun.TypeRegistry) *GenericFunction {
	return sharedHook(registry)
}

// NewNoApplicableMethodHook creates an unshared hook for Options.Hook.
func NewNoApplicableMethodHook(registry genfun.TypeRegistry) *GenericFunction {
	hook := newGeneric(HookName, registry, DefaultMaxCacheSize)
	hook.defaultMethod = newMethod(hook, nil, noApplicableMethod, 0)
	return hook
}

func sharedHook(registry genfun.TypeRegistry) *GenericFunction {
	if registry == nil || !genfun.Hashable(registry) {
		return NewNoApplicableMethodHook(registry)
	}

	hooksMu.Lock()
	defer hooksMu.Unlock()

	if hook, ok := hooks[registry]; ok {
		return hook
	}
	hook := NewNoApplicableMethodHook(registry)
	hooks[registry] = hook
	return hook
}

func noApplicableMethod(_ context.Context, _ any, args ...any) (any, error) {
	gf, receiver, callArgs := hookArgs(args)
	if gf == nil {
		return nil, errors.NoApplicableMethod(HookName, receiver, args, nil)
	}
	return nil, errors.NoApplicableMethod(gf.name, receiver, callArgs, gf.argTypeNames(callArgs))
}

func hookArgs(args []any) (gf *GenericFunction, receiver any, callArgs []any) {
	if len(args) != 3 {
		return nil, nil, nil
	}
	gf, _ = args[0].(*GenericFunction)
	callArgs, _ = args[2].([]any)
	return gf, args[1], callArgs
}

func (gf *GenericFunction) noApplicable(ctx context.Context, receiver any, args []any) (any, error) {
	if gf.hook == nil || gf.hook == gf {
		return nil, errors.NoApplicableMethod(gf.name, receiver, args, gf.argTypeNames(args))
	}
	return gf.hook.Call(ctx, gf, receiver, args)
}

// instanceRegistry is implemented by registries that can mint instance handles.
type instanceRegistry interface {
	Instance(v any) (genfun.Handle, error)
}

// SetNoApplicableMethodHandler overrides what happens when a call of gf has no
// applicable method. The first call adds a method to gf's hook selecting on
// gf itself, so the registry must support instance handles. Later calls
// replace the handler.
func (gf *GenericFunction) SetNoApplicableMethodHandler(fn NoApplicableMethodFunc) error {
	if fn == nil {
		return errors.InvalidInput(errors.PhaseRegister, "no-applicable-method handler is nil")
	}

	gf.handlerMu.Lock()
	defer gf.handlerMu.Unlock()

	if gf.handler.Load() != nil {
		gf.handler.Store(&fn)
		return nil
	}

	reg, ok := gf.hook.registry.(instanceRegistry)
	if !ok {
		return errors.Unsupported(errors.PhaseRegister, "registry does not support instance selectors")
	}
	self, err := reg.Instance(gf)
	if err != nil {
		return err
	}

	gf.handler.Store(&fn)
	_, err = gf.hook.AddMethod([]genfun.Handle{self}, func(ctx context.Context, _ any, args ...any) (any, error) {
		_, receiver, callArgs := hookArgs(args)
		return (*gf.handler.Load())(ctx, gf, receiver, callArgs)
	})
	if err != nil {
		gf.handler.Store(nil)
	}
	return err
}

// Hook returns the generic function consulted when no method applies.
func (gf *GenericFunction) Hook() *GenericFunction {
	return gf.hook
}
