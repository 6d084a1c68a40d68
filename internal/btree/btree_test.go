package btree

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func intCmp(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func TestInsertAndGet(t *testing.T) {
	r := require.New(t)
	tr := New[int, string](4, intCmp)

	tr.Insert(5, "five")
	tr.Insert(3, "three")
	tr.Insert(8, "eight")

	v, ok := tr.Get(5)
	r.True(ok)
	r.Equal("five", v)

	_, ok = tr.Get(99)
	r.False(ok)

	r.Equal(3, tr.Len())
}

func TestInsertOverwritesExistingKey(t *testing.T) {
	r := require.New(t)
	tr := New[int, string](4, intCmp)
	tr.Insert(1, "a")
	tr.Insert(1, "b")
	r.Equal(1, tr.Len())
	v, _ := tr.Get(1)
	r.Equal("b", v)
}

func TestSplitExactFanoutFive(t *testing.T) {
	r := require.New(t)
	tr := New[int, int](5, intCmp)
	for i := 1; i <= 6; i++ {
		tr.Insert(i, i*10)
	}
	// the 6th insert lands in a leaf already holding 5 keys and forces a
	// split; every key must remain retrievable afterward.
	for i := 1; i <= 6; i++ {
		v, ok := tr.Get(i)
		r.True(ok)
		r.Equal(i*10, v)
	}
	assertSortedIteration(t, tr)
}

func TestIterationYieldsSortedOrder(t *testing.T) {
	tr := New[int, int](4, intCmp)
	values := []int{50, 10, 40, 20, 30, 5, 90, 1, 77, 33}
	for _, v := range values {
		tr.Insert(v, v)
	}
	assertSortedIteration(t, tr)
}

func assertSortedIteration(t *testing.T, tr *BTree[int, int]) {
	t.Helper()
	r := require.New(t)
	it := tr.Iter()
	var out []int
	for {
		k, _, ok, err := it.Next()
		r.NoError(err)
		if !ok {
			break
		}
		out = append(out, k)
	}
	r.Len(out, tr.Len())
	r.True(sort.IntsAreSorted(out))
}

// TestBelowMinIsCeilDivByThree pins belowMin to ceil(fanout/3) rather than
// the floor: for fanout 5, a node holding exactly 1 member is under the
// minimum and must trigger a merge or steal on removal.
func TestBelowMinIsCeilDivByThree(t *testing.T) {
	r := require.New(t)
	n := &node[int, int]{keys: []int{1}, values: []int{1}}
	r.True(n.belowMin(5))

	n2 := &node[int, int]{keys: []int{1, 2}, values: []int{1, 2}}
	r.False(n2.belowMin(5))

	for fanout := 4; fanout <= 10; fanout++ {
		want := (fanout + 2) / 3
		for count := 0; count <= fanout; count++ {
			n := &node[int, int]{keys: make([]int, count), values: make([]int, count)}
			r.Equal(count < want, n.belowMin(fanout), "fanout=%d count=%d", fanout, count)
		}
	}
}

// TestMergeOnRemovalFanoutFive walks the fanout-5 removal sequence that
// forces a leaf down to a single member, checking every key stays
// retrievable and iteration stays sorted once rebalance has run.
func TestMergeOnRemovalFanoutFive(t *testing.T) {
	r := require.New(t)
	tr := New[int, int](5, intCmp)
	for i := 1; i <= 12; i++ {
		tr.Insert(i, i*10)
	}
	for _, k := range []int{1, 2, 3, 4, 5, 6, 7, 8, 9} {
		r.True(tr.Remove(k))
	}
	for _, k := range []int{10, 11, 12} {
		v, ok := tr.Get(k)
		r.True(ok)
		r.Equal(k*10, v)
	}
	r.Equal(3, tr.Len())
	assertSortedIteration(t, tr)
}

func TestRemoveMissingKeyIsNoop(t *testing.T) {
	r := require.New(t)
	tr := New[int, int](4, intCmp)
	tr.Insert(1, 1)
	r.False(tr.Remove(99))
	r.Equal(1, tr.Len())
}

func TestRemoveAllKeysEmptiesTree(t *testing.T) {
	r := require.New(t)
	tr := New[int, int](4, intCmp)
	for i := 0; i < 50; i++ {
		tr.Insert(i, i)
	}
	for i := 0; i < 50; i++ {
		r.True(tr.Remove(i))
	}
	r.Equal(0, tr.Len())
	_, ok := tr.Get(0)
	r.False(ok)
}

func TestIteratorInvalidatedByMutation(t *testing.T) {
	r := require.New(t)
	tr := New[int, int](4, intCmp)
	tr.Insert(1, 1)
	it := tr.Iter()
	tr.Insert(2, 2)
	_, _, _, err := it.Next()
	r.ErrorIs(err, ErrStaleIterator)
}

// TestAgainstReferenceMap inserts and removes a large pseudo-random
// sequence of keys, checking after every operation that the tree agrees
// with a plain Go map on membership and that iteration stays sorted —
// the same property a reference-model state machine check buys in a
// language with a built-in proptest harness.
func TestAgainstReferenceMap(t *testing.T) {
	r := require.New(t)
	rng := rand.New(rand.NewSource(1))
	tr := New[int, int](7, intCmp)
	reference := make(map[int]int)

	for i := 0; i < 2000; i++ {
		key := rng.Intn(300)
		if rng.Intn(3) == 0 {
			existedInRef := false
			if _, ok := reference[key]; ok {
				existedInRef = true
			}
			delete(reference, key)
			removed := tr.Remove(key)
			r.Equal(existedInRef, removed)
		} else {
			reference[key] = key * 2
			tr.Insert(key, key*2)
		}
		r.Equal(len(reference), tr.Len())
	}

	for k, want := range reference {
		got, ok := tr.Get(k)
		r.True(ok)
		r.Equal(want, got)
	}
	assertSortedIterationAgainstReference(t, tr, reference)
}

func assertSortedIterationAgainstReference(t *testing.T, tr *BTree[int, int], reference map[int]int) {
	t.Helper()
	r := require.New(t)
	want := make([]int, 0, len(reference))
	for k := range reference {
		want = append(want, k)
	}
	sort.Ints(want)

	it := tr.Iter()
	var got []int
	for {
		k, _, ok, err := it.Next()
		r.NoError(err)
		if !ok {
			break
		}
		got = append(got, k)
	}
	r.Equal(want, got)
}
