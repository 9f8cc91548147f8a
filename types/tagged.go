package types

import (
	"fmt"

	"github.com/wippyai/genfun"
)

// Value is a payload tagged with a nominal dispatch type.
// It lets hosts dispatch on types that have no Go counterpart.
type Value struct {
	Data any
	Tag  genfun.Handle
}

// Tag wraps data so it dispatches as h.
func Tag(h genfun.Handle, data any) Value {
	return Value{Tag: h, Data: data}
}

// DispatchTag implements genfun.Tagged.
func (v Value) DispatchTag() genfun.Handle {
	return v.Tag
}

func (v Value) String() string {
	if v.Data == nil {
		return fmt.Sprintf("#%d{}", uint32(v.Tag))
	}
	return fmt.Sprintf("#%d{%v}", uint32(v.Tag), v.Data)
}
