package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/genfun"
	"github.com/wippyai/genfun/dispatch"
	"github.com/wippyai/genfun/types"
)

// Method returns a method body calling x on the instance. The receiver is
// ignored; arguments are converted to the export's parameter types.
func (i *WazeroInstance) Method(x Export) dispatch.MethodFunc {
	return func(ctx context.Context, _ any, args ...any) (any, error) {
		return i.Call(ctx, x, args...)
	}
}

// Selector maps the export's parameter types to registry handles, so the
// method applies to calls whose arguments have exactly those Go types.
func Selector(reg *types.Registry, x Export) ([]genfun.Handle, error) {
	sel := make([]genfun.Handle, len(x.Params))
	for n, p := range x.Params {
		t, err := GoType(p)
		if err != nil {
			return nil, err
		}
		sel[n] = reg.Type(t)
	}
	return sel, nil
}

// Bind adds x as a method of gf, selecting on its parameter types.
// An export without parameters becomes the default method.
func Bind(gf *dispatch.GenericFunction, reg *types.Registry, inst *WazeroInstance, x Export) (*dispatch.Method, error) {
	sel, err := Selector(reg, x)
	if err != nil {
		return nil, err
	}
	m, err := gf.AddMethod(sel, inst.Method(x))
	if err != nil {
		return nil, err
	}

	Logger().Debug("export bound",
		zap.String("function", gf.Name()),
		zap.String("export", x.Signature()),
		zap.Stringer("method", m))
	return m, nil
}
