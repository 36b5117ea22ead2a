package table

import (
	"fmt"
	"testing"

	"github.com/chazu/ember/internal/value"
)

func key(s string) *value.ObjString {
	return value.NewString(s, value.HashString(s))
}

func TestSetGetDelete(t *testing.T) {
	tbl := NewTable()
	k := key("name")

	if _, ok := tbl.Get(k); ok {
		t.Fatal("empty table should not find any key")
	}

	isNew := tbl.Set(k, value.NumberValue(1))
	if !isNew {
		t.Fatal("first Set should report a new entry")
	}
	if v, ok := tbl.Get(k); !ok || v.AsNumber() != 1 {
		t.Fatalf("Get after Set = (%v, %v), want (1, true)", v, ok)
	}

	isNew = tbl.Set(k, value.NumberValue(2))
	if isNew {
		t.Fatal("overwriting Set should not report a new entry")
	}
	if v, _ := tbl.Get(k); v.AsNumber() != 2 {
		t.Fatalf("Get after overwrite = %v, want 2", v)
	}

	if !tbl.Delete(k) {
		t.Fatal("Delete of a present key should succeed")
	}
	if _, ok := tbl.Get(k); ok {
		t.Fatal("deleted key should not be found")
	}
}

func TestTombstonePreservesProbeChain(t *testing.T) {
	tbl := NewTable()
	a, b, c := key("a"), key("b"), key("c")
	tbl.Set(a, value.NumberValue(1))
	tbl.Set(b, value.NumberValue(2))
	tbl.Set(c, value.NumberValue(3))

	tbl.Delete(b)

	if v, ok := tbl.Get(a); !ok || v.AsNumber() != 1 {
		t.Fatalf("a lost after deleting b: (%v, %v)", v, ok)
	}
	if v, ok := tbl.Get(c); !ok || v.AsNumber() != 3 {
		t.Fatalf("c lost after deleting b: (%v, %v)", v, ok)
	}
}

func TestGrowthPreservesAllKeys(t *testing.T) {
	tbl := NewTable()
	const n = 200
	keys := make([]*value.ObjString, n)
	for i := 0; i < n; i++ {
		keys[i] = key(fmt.Sprintf("key-%d", i))
		tbl.Set(keys[i], value.NumberValue(float64(i)))
	}
	for i := 0; i < n; i++ {
		v, ok := tbl.Get(keys[i])
		if !ok || v.AsNumber() != float64(i) {
			t.Fatalf("key-%d lost across growth: (%v, %v)", i, v, ok)
		}
	}
}

func TestFindStringDedupesByContent(t *testing.T) {
	tbl := NewTable()
	s := key("hello")
	tbl.Set(s, value.NilValue())

	found := tbl.FindString("hello", value.HashString("hello"))
	if found != s {
		t.Fatal("FindString should return the exact interned object for matching content")
	}
	if tbl.FindString("goodbye", value.HashString("goodbye")) != nil {
		t.Fatal("FindString should return nil for content never inserted")
	}
}

func TestAddAllCopiesLiveEntries(t *testing.T) {
	src := NewTable()
	src.Set(key("x"), value.NumberValue(1))
	src.Set(key("y"), value.NumberValue(2))

	dst := NewTable()
	dst.Set(key("z"), value.NumberValue(3))
	dst.AddAll(src)

	for _, name := range []string{"x", "y", "z"} {
		if _, ok := dst.Get(key(name)); !ok {
			t.Fatalf("AddAll dropped key %q", name)
		}
	}
}

func TestRemoveWhiteEvictsUnmarkedKeys(t *testing.T) {
	tbl := NewTable()
	marked := key("kept")
	marked.Marked = true
	unmarked := key("dropped")

	tbl.Set(marked, value.NilValue())
	tbl.Set(unmarked, value.NilValue())

	tbl.RemoveWhite()

	if _, ok := tbl.Get(marked); !ok {
		t.Fatal("marked key should survive RemoveWhite")
	}
	if _, ok := tbl.Get(unmarked); ok {
		t.Fatal("unmarked key should be evicted by RemoveWhite")
	}
}
