package types

import (
	"reflect"
	"sync"

	"github.com/wippyai/genfun"
)

// Kind tells how a handle was created.
type Kind uint8

const (
	KindReserved  Kind = iota // Root, NullType, MissingType
	KindNominal               // named type with no Go counterpart
	KindGo                    // concrete Go type
	KindInterface             // Go interface type
	KindInstance              // individual value
)

func (k Kind) String() string {
	switch k {
	case KindReserved:
		return "reserved"
	case KindNominal:
		return "nominal"
	case KindGo:
		return "go"
	case KindInterface:
		return "interface"
	case KindInstance:
		return "instance"
	default:
		return "unknown"
	}
}

// Info describes a registered handle.
// Precedence is shared with the registry and must not be modified.
type Info struct {
	GoType     reflect.Type
	Instance   any
	Name       string
	Supers     []genfun.Handle
	Precedence []genfun.Handle
	Kind       Kind
}

// Table is an append-only arena mapping handles to type information.
// Handles are never reused, so a handle stays valid for the table's lifetime.
type Table struct {
	entries []Info
	mu      sync.RWMutex
}

// NewTable creates a table holding the reserved handles.
func NewTable() *Table {
	t := &Table{
		entries: make([]Info, 0, 64),
	}
	t.entries = append(t.entries,
		Info{Name: "Root", Kind: KindReserved, Precedence: []genfun.Handle{genfun.Root}},
		Info{Name: "nil", Kind: KindReserved, Precedence: []genfun.Handle{genfun.NullType, genfun.Root}},
		Info{Name: "undefined", Kind: KindReserved, Precedence: []genfun.Handle{genfun.MissingType, genfun.Root}},
	)
	return t
}

// Next returns the handle the next Insert will allocate.
func (t *Table) Next() genfun.Handle {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return genfun.Handle(len(t.entries) + 1)
}

// Insert stores info and returns its handle.
// Precedence must already start with the returned handle; callers
// serialize Next and Insert.
func (t *Table) Insert(info Info) genfun.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append(t.entries, info)
	return genfun.Handle(len(t.entries))
}

// Get retrieves the info for a handle.
func (t *Table) Get(h genfun.Handle) (Info, bool) {
	if h == genfun.Wildcard {
		return Info{}, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := int(h) - 1
	if idx >= len(t.entries) {
		return Info{}, false
	}
	return t.entries[idx], true
}

// Len returns the number of handles, reserved ones included.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Each iterates over all handles in allocation order.
func (t *Table) Each(fn func(genfun.Handle, Info) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i, e := range t.entries {
		if !fn(genfun.Handle(i+1), e) {
			break
		}
	}
}
