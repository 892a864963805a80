package table_test

import (
	"testing"
	"time"

	"github.com/usi-icn/nfnd/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// PIT merge is idempotent: two successive AddOrMerge(name, f) calls leave
// the incoming-face set equal to {f} (§8).
func TestPitMergeIdempotent(t *testing.T) {
	pit := table.NewPit()
	n := name(t, "/foo/bar")
	exp := time.Now().Add(time.Second)

	_, created1 := pit.AddOrMerge(n, 5, false, false, exp)
	assert.True(t, created1)
	_, created2 := pit.AddOrMerge(n, 5, false, false, exp)
	assert.False(t, created2)

	e := pit.Find(n)
	require.NotNil(t, e)
	assert.Equal(t, 1, len(e.InFaces))
	_, ok := e.InFaces[5]
	assert.True(t, ok)
}

func TestPitMergeUnionsFaces(t *testing.T) {
	pit := table.NewPit()
	n := name(t, "/foo/bar")
	exp := time.Now().Add(time.Second)

	pit.AddOrMerge(n, 1, false, false, exp)
	pit.AddOrMerge(n, 2, false, false, exp)

	e := pit.Find(n)
	require.NotNil(t, e)
	assert.Equal(t, 2, len(e.InFaces))
}

func TestPitMergeDoesNotResetExpiry(t *testing.T) {
	pit := table.NewPit()
	n := name(t, "/foo/bar")
	exp := time.Now().Add(time.Second)

	pit.AddOrMerge(n, 1, false, false, exp)
	pit.AddOrMerge(n, 2, false, false, exp.Add(time.Hour))

	e := pit.Find(n)
	require.NotNil(t, e)
	assert.True(t, e.Expiry.Equal(exp), "merge must not reset the original expiry")
}

func TestPitRemoveReturnsFaceSet(t *testing.T) {
	pit := table.NewPit()
	n := name(t, "/foo/bar")
	exp := time.Now().Add(time.Second)

	pit.AddOrMerge(n, 1, false, false, exp)
	pit.AddOrMerge(n, 2, false, false, exp)

	removed := pit.Remove(n)
	require.NotNil(t, removed)
	assert.Equal(t, 2, len(removed.InFaces))
	assert.Nil(t, pit.Find(n))
}

func TestPitAgeingReapsExpired(t *testing.T) {
	pit := table.NewPit()
	now := time.Now()
	fresh := name(t, "/fresh")
	stale := name(t, "/stale")

	pit.AddOrMerge(fresh, 1, false, false, now.Add(time.Hour))
	pit.AddOrMerge(stale, 1, true, false, now.Add(-time.Second))

	reaped := pit.Ageing(now)
	require.Equal(t, 1, len(reaped))
	assert.True(t, reaped[0].Name.Equal(stale))
	assert.True(t, reaped[0].Local)

	assert.NotNil(t, pit.Find(fresh))
	assert.Nil(t, pit.Find(stale))
}
