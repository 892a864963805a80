package table_test

import (
	"testing"

	enc "github.com/usi-icn/nfnd/encoding"
	"github.com/usi-icn/nfnd/table"
	"github.com/usi-icn/nfnd/types/optional"
	"github.com/stretchr/testify/assert"
)

func name(t *testing.T, s string) enc.Name {
	t.Helper()
	n, err := enc.NameFromStr(s)
	if err != nil {
		t.Fatalf("NameFromStr(%q): %v", s, err)
	}
	return n
}

// For all names A, B with A a strict prefix of B, inserting (A, f_a, d_a)
// then (B, f_b, d_b) routes B-matching Interests via f_b and A-matching
// via f_a (§8).
func TestFibLongestPrefixMatch(t *testing.T) {
	fib := table.NewFib()
	a := name(t, "/foo")
	b := name(t, "/foo/bar")

	fib.Add(a, 1, false, optional.None[uint64]())
	fib.Add(b, 2, false, optional.None[uint64]())

	eb := fib.Find(b, nil, nil)
	assert.NotNil(t, eb)
	assert.Equal(t, uint64(2), eb.FaceId)

	ea := fib.Find(a, nil, nil)
	assert.NotNil(t, ea)
	assert.Equal(t, uint64(1), ea.FaceId)

	deeper := name(t, "/foo/bar/baz")
	ed := fib.Find(deeper, nil, nil)
	assert.NotNil(t, ed)
	assert.Equal(t, uint64(2), ed.FaceId)
}

func TestFibNoMatchReturnsNil(t *testing.T) {
	fib := table.NewFib()
	fib.Add(name(t, "/foo"), 1, false, optional.None[uint64]())
	assert.Nil(t, fib.Find(name(t, "/bar"), nil, nil))
}

func TestFibHeadInsertionTieBreak(t *testing.T) {
	fib := table.NewFib()
	n := name(t, "/foo")
	fib.Add(n, 1, false, optional.None[uint64]())
	fib.Add(n, 2, false, optional.None[uint64]())

	e := fib.Find(n, nil, nil)
	assert.Equal(t, uint64(2), e.FaceId, "most recently inserted entry should win equal-length ties")
}

func TestFibAlreadyUsedSkipsToNextBest(t *testing.T) {
	fib := table.NewFib()
	n := name(t, "/foo")
	fib.Add(n, 1, false, optional.None[uint64]())
	fib.Add(n, 2, false, optional.None[uint64]())

	best := fib.Find(n, nil, nil)
	assert.Equal(t, uint64(2), best.FaceId)

	next := fib.Find(n, []table.FibEntry{*best}, nil)
	assert.Equal(t, uint64(1), next.FaceId)
}

func TestFibIncomingFaceExcluded(t *testing.T) {
	fib := table.NewFib()
	n := name(t, "/foo")
	fib.Add(n, 7, false, optional.None[uint64]())

	assert.Nil(t, fib.Find(n, nil, []uint64{7}))
}

func TestFibClearKeepsStatic(t *testing.T) {
	fib := table.NewFib()
	fib.Add(name(t, "/static"), 1, true, optional.None[uint64]())
	fib.Add(name(t, "/dynamic"), 2, false, optional.None[uint64]())

	fib.Clear()

	assert.NotNil(t, fib.Find(name(t, "/static"), nil, nil))
	assert.Nil(t, fib.Find(name(t, "/dynamic"), nil, nil))
}

func TestFibRemove(t *testing.T) {
	fib := table.NewFib()
	n := name(t, "/foo")
	fib.Add(n, 1, false, optional.None[uint64]())
	fib.Remove(n)
	assert.Nil(t, fib.Find(n, nil, nil))
}
