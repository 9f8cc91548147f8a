package types

import (
	"sync"
	"testing"

	"github.com/wippyai/genfun"
)

func TestTable_Reserved(t *testing.T) {
	tbl := NewTable()

	if tbl.Len() != 3 {
		t.Fatalf("Expected 3 reserved handles, got %d", tbl.Len())
	}
	if tbl.Next() != genfun.FirstUserHandle {
		t.Fatalf("Next() = %d, want %d", tbl.Next(), genfun.FirstUserHandle)
	}

	for _, h := range []genfun.Handle{genfun.Root, genfun.NullType, genfun.MissingType} {
		info, ok := tbl.Get(h)
		if !ok {
			t.Fatalf("Get(%d) failed", h)
		}
		if info.Kind != KindReserved {
			t.Errorf("handle %d kind = %v, want reserved", h, info.Kind)
		}
		if info.Precedence[0] != h || info.Precedence[len(info.Precedence)-1] != genfun.Root {
			t.Errorf("handle %d precedence = %v", h, info.Precedence)
		}
	}

	if _, ok := tbl.Get(genfun.Wildcard); ok {
		t.Fatal("Wildcard should not resolve")
	}
	if _, ok := tbl.Get(99); ok {
		t.Fatal("Unallocated handle should not resolve")
	}
}

func TestTable_InsertAndEach(t *testing.T) {
	tbl := NewTable()

	h := tbl.Next()
	got := tbl.Insert(Info{Name: "A", Kind: KindNominal, Precedence: []genfun.Handle{h, genfun.Root}})
	if got != h {
		t.Fatalf("Insert returned %d, Next promised %d", got, h)
	}

	var names []string
	tbl.Each(func(_ genfun.Handle, info Info) bool {
		names = append(names, info.Name)
		return true
	})
	if len(names) != 4 || names[3] != "A" {
		t.Fatalf("Each visited %v", names)
	}

	count := 0
	tbl.Each(func(genfun.Handle, Info) bool {
		count++
		return false
	})
	if count != 1 {
		t.Fatalf("Each should stop early, visited %d", count)
	}
}

func TestTable_ConcurrentReads(t *testing.T) {
	tbl := NewTable()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tbl.Get(genfun.Root)
			tbl.Len()
		}()
		go func() {
			defer wg.Done()
			tbl.Insert(Info{Name: "x"})
		}()
	}

	wg.Wait()
	if tbl.Len() != 53 {
		t.Fatalf("Expected 53 entries, got %d", tbl.Len())
	}
}
