package table_test

import (
	"testing"
	"time"

	"github.com/usi-icn/nfnd/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCsExactMatchOnly(t *testing.T) {
	cs := table.NewCs(0)
	exp := time.Now().Add(time.Minute)
	cs.Add(name(t, "/foo/bar"), []byte("payload"), false, exp)

	assert.NotNil(t, cs.Find(name(t, "/foo/bar")))
	assert.Nil(t, cs.Find(name(t, "/foo")), "CS must not longest-prefix match")
	assert.Nil(t, cs.Find(name(t, "/foo/bar/baz")))
}

// For all Interests I, if cs.Find(I.Name) returns content C, forwarding I
// produces exactly one Content whose payload equals C's payload (§8); here
// we just check the CS half of that invariant.
func TestCsFindReturnsStoredPayload(t *testing.T) {
	cs := table.NewCs(0)
	exp := time.Now().Add(time.Minute)
	cs.Add(name(t, "/x"), []byte("hello"), false, exp)

	e := cs.Find(name(t, "/x"))
	require.NotNil(t, e)
	assert.Equal(t, []byte("hello"), e.Content)
}

func TestCsFIFOEviction(t *testing.T) {
	cs := table.NewCs(2)
	exp := time.Now().Add(time.Minute)
	cs.Add(name(t, "/a"), []byte("1"), false, exp)
	cs.Add(name(t, "/b"), []byte("2"), false, exp)
	cs.Add(name(t, "/c"), []byte("3"), false, exp)

	assert.Nil(t, cs.Find(name(t, "/a")), "oldest entry should be evicted")
	assert.NotNil(t, cs.Find(name(t, "/b")))
	assert.NotNil(t, cs.Find(name(t, "/c")))
	assert.Equal(t, 2, cs.Size())
}

func TestCsStaticSurvivesClear(t *testing.T) {
	cs := table.NewCs(0)
	exp := time.Now().Add(time.Minute)
	cs.Add(name(t, "/static"), []byte("s"), true, exp)
	cs.Add(name(t, "/dynamic"), []byte("d"), false, exp)

	cs.Clear()

	assert.NotNil(t, cs.Find(name(t, "/static")))
	assert.Nil(t, cs.Find(name(t, "/dynamic")))
}

func TestCsAgeingEvictsExpired(t *testing.T) {
	cs := table.NewCs(0)
	now := time.Now()
	cs.Add(name(t, "/stale"), []byte("x"), false, now.Add(-time.Second))
	cs.Add(name(t, "/fresh"), []byte("y"), false, now.Add(time.Hour))

	cs.Ageing(now)

	assert.Nil(t, cs.Find(name(t, "/stale")))
	assert.NotNil(t, cs.Find(name(t, "/fresh")))
}
