package fw_test

import (
	"testing"
	"time"

	enc "github.com/usi-icn/nfnd/encoding"
	"github.com/usi-icn/nfnd/fw"
	"github.com/usi-icn/nfnd/types/optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustName(t *testing.T, s string) enc.Name {
	t.Helper()
	n, err := enc.NameFromStr(s)
	require.NoError(t, err)
	return n
}

type harness struct {
	fwd                   *fw.Forwarder
	toLower, fromLower    chan fw.Message
	toHigher, fromHigher  chan fw.Message
}

func newHarness() *harness {
	h := &harness{
		toLower:    make(chan fw.Message, 16),
		fromLower:  make(chan fw.Message, 16),
		toHigher:   make(chan fw.Message, 16),
		fromHigher: make(chan fw.Message, 16),
	}
	h.fwd = fw.NewForwarder(0, time.Second, h.fromLower, h.fromHigher, h.toLower, h.toHigher)
	return h
}

func recv(t *testing.T, ch chan fw.Message) fw.Message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return fw.Message{}
	}
}

func assertEmpty(t *testing.T, ch chan fw.Message) {
	t.Helper()
	select {
	case m := <-ch:
		t.Fatalf("unexpected message: %+v", m)
	default:
	}
}

// §8 invariant: if cs.find(I.name) returns C, forwarding I produces exactly
// one Content whose name equals I.name and payload equals C's payload.
func TestCsHitAnswersDirectly(t *testing.T) {
	h := newHarness()
	n := mustName(t, "/foo/bar")
	h.fwd.Cs.Add(n, []byte("payload"), false, time.Now().Add(time.Minute))

	go h.fwd.Run()
	defer h.fwd.Stop()

	h.fromLower <- fw.Message{FaceId: 1, Packet: enc.Packet{Interest: &enc.Interest{NameV: n}}}

	out := recv(t, h.toLower)
	require.NotNil(t, out.Packet.Content)
	assert.Equal(t, uint64(1), out.FaceId)
	assert.True(t, out.Packet.Content.NameV.Equal(n))
	assert.Equal(t, []byte("payload"), out.Packet.Content.ContentV)

	assertEmpty(t, h.toLower)
	assertEmpty(t, h.toHigher)
}

func TestNoRouteProducesNack(t *testing.T) {
	h := newHarness()
	n := mustName(t, "/no/route")

	go h.fwd.Run()
	defer h.fwd.Stop()

	h.fromLower <- fw.Message{FaceId: 1, Packet: enc.Packet{Interest: &enc.Interest{NameV: n}}}

	out := recv(t, h.toLower)
	require.NotNil(t, out.Packet.Nack)
	assert.Equal(t, uint64(1), out.FaceId)
	assert.Equal(t, enc.NackNoRoute, out.Packet.Nack.Reason)
	assert.Nil(t, h.fwd.Pit.Find(n), "PIT entry must not survive a NO_ROUTE Nack")
}

func TestFibMatchForwardsAndPitRecorded(t *testing.T) {
	h := newHarness()
	n := mustName(t, "/served")
	h.fwd.Fib.Add(n, 9, false, optional.None[uint64]())

	go h.fwd.Run()
	defer h.fwd.Stop()

	h.fromLower <- fw.Message{FaceId: 1, Packet: enc.Packet{Interest: &enc.Interest{NameV: n}}}

	out := recv(t, h.toLower)
	require.NotNil(t, out.Packet.Interest)
	assert.Equal(t, uint64(9), out.FaceId)

	e := h.fwd.Pit.Find(n)
	require.NotNil(t, e)
	_, ok := e.InFaces[1]
	assert.True(t, ok)
}

// Duplicate Interests for the same name merge into the existing PIT entry
// instead of being forwarded again.
func TestDuplicateInterestMerges(t *testing.T) {
	h := newHarness()
	n := mustName(t, "/served")
	h.fwd.Fib.Add(n, 9, false, optional.None[uint64]())

	go h.fwd.Run()
	defer h.fwd.Stop()

	h.fromLower <- fw.Message{FaceId: 1, Packet: enc.Packet{Interest: &enc.Interest{NameV: n}}}
	recv(t, h.toLower)

	h.fromLower <- fw.Message{FaceId: 2, Packet: enc.Packet{Interest: &enc.Interest{NameV: n}}}

	assertEmpty(t, h.toLower)

	e := h.fwd.Pit.Find(n)
	require.NotNil(t, e)
	assert.Equal(t, 2, len(e.InFaces))
}

// Content fans out to every incoming face but the one it arrived on, and
// populates the CS.
func TestContentFansOutAndCaches(t *testing.T) {
	h := newHarness()
	n := mustName(t, "/served")
	h.fwd.Pit.AddOrMerge(n, 1, false, false, time.Now().Add(time.Minute))
	h.fwd.Pit.AddOrMerge(n, 2, false, false, time.Now().Add(time.Minute))

	go h.fwd.Run()
	defer h.fwd.Stop()

	h.fromLower <- fw.Message{FaceId: 9, Packet: enc.Packet{Content: &enc.Content{NameV: n, ContentV: []byte("x")}}}

	seen := map[uint64]bool{}
	for i := 0; i < 2; i++ {
		out := recv(t, h.toLower)
		seen[out.FaceId] = true
	}
	assert.True(t, seen[1])
	assert.True(t, seen[2])
	assert.False(t, seen[9])

	assert.Nil(t, h.fwd.Pit.Find(n))
	assert.NotNil(t, h.fwd.Cs.Find(n))
}

func TestUnsolicitedContentDropped(t *testing.T) {
	h := newHarness()
	n := mustName(t, "/nobody/asked")

	go h.fwd.Run()
	defer h.fwd.Stop()

	h.fromLower <- fw.Message{FaceId: 1, Packet: enc.Packet{Content: &enc.Content{NameV: n, ContentV: []byte("x")}}}

	assertEmpty(t, h.toLower)
	assertEmpty(t, h.toHigher)
	assert.Nil(t, h.fwd.Cs.Find(n))
}

// A Nack with an alternate FIB entry available retries there instead of
// propagating to PIT incoming faces.
func TestNackRetriesAlternateFace(t *testing.T) {
	h := newHarness()
	n := mustName(t, "/retry")
	h.fwd.Fib.Add(n, 5, false, optional.None[uint64]())
	h.fwd.Fib.Add(n, 6, false, optional.None[uint64]())

	go h.fwd.Run()
	defer h.fwd.Stop()

	h.fromLower <- fw.Message{FaceId: 1, Packet: enc.Packet{Interest: &enc.Interest{NameV: n}}}
	first := recv(t, h.toLower)
	require.NotNil(t, first.Packet.Interest)
	tried := first.FaceId

	orig := &enc.Interest{NameV: n}
	h.fromLower <- fw.Message{FaceId: tried, Packet: enc.Packet{Nack: &enc.Nack{Interest: orig, NameV: n, Reason: enc.NackNoRoute}}}

	retry := recv(t, h.toLower)
	require.NotNil(t, retry.Packet.Interest)
	assert.NotEqual(t, tried, retry.FaceId)

	assert.NotNil(t, h.fwd.Pit.Find(n), "PIT entry survives while an alternate is retried")
}

// The same retry must work when the matching FIB entry is a prefix of the
// Interest name rather than an exact match, since excluding the failed
// nexthop has to key off the face, not the full name Find was called with.
func TestNackRetriesAlternateFaceForPrefixRoute(t *testing.T) {
	h := newHarness()
	prefix := mustName(t, "/retry")
	n := mustName(t, "/retry/deeper/name")
	h.fwd.Fib.Add(prefix, 5, false, optional.None[uint64]())
	h.fwd.Fib.Add(prefix, 6, false, optional.None[uint64]())

	go h.fwd.Run()
	defer h.fwd.Stop()

	h.fromLower <- fw.Message{FaceId: 1, Packet: enc.Packet{Interest: &enc.Interest{NameV: n}}}
	first := recv(t, h.toLower)
	require.NotNil(t, first.Packet.Interest)
	tried := first.FaceId

	orig := &enc.Interest{NameV: n}
	h.fromLower <- fw.Message{FaceId: tried, Packet: enc.Packet{Nack: &enc.Nack{Interest: orig, NameV: n, Reason: enc.NackNoRoute}}}

	retry := recv(t, h.toLower)
	require.NotNil(t, retry.Packet.Interest)
	assert.NotEqual(t, tried, retry.FaceId)

	assert.NotNil(t, h.fwd.Pit.Find(n), "PIT entry survives while an alternate is retried")
}

// When no alternate FIB entry remains, the Nack propagates to every PIT
// incoming face and the entry is removed.
func TestNackPropagatesWhenExhausted(t *testing.T) {
	h := newHarness()
	n := mustName(t, "/exhausted")
	h.fwd.Fib.Add(n, 5, false, optional.None[uint64]())

	go h.fwd.Run()
	defer h.fwd.Stop()

	h.fromLower <- fw.Message{FaceId: 1, Packet: enc.Packet{Interest: &enc.Interest{NameV: n}}}
	fwdOut := recv(t, h.toLower)

	orig := &enc.Interest{NameV: n}
	h.fromLower <- fw.Message{FaceId: fwdOut.FaceId, Packet: enc.Packet{Nack: &enc.Nack{Interest: orig, NameV: n, Reason: enc.NackNoRoute}}}

	propagated := recv(t, h.toLower)
	require.NotNil(t, propagated.Packet.Nack)
	assert.Equal(t, uint64(1), propagated.FaceId)
	assert.Nil(t, h.fwd.Pit.Find(n))
}

// A PIT entry created from a higher-layer (local) Interest routes its
// satisfying Content back up through ToHigher, not ToLower.
func TestLocalInterestAnsweredUpward(t *testing.T) {
	h := newHarness()
	n := mustName(t, "/local/req")
	h.fwd.Fib.Add(n, 5, false, optional.None[uint64]())

	go h.fwd.Run()
	defer h.fwd.Stop()

	h.fromHigher <- fw.Message{FaceId: 1, Packet: enc.Packet{Interest: &enc.Interest{NameV: n}}}
	recv(t, h.toLower) // forwarded interest

	h.fromLower <- fw.Message{FaceId: 5, Packet: enc.Packet{Content: &enc.Content{NameV: n, ContentV: []byte("y")}}}

	out := recv(t, h.toHigher)
	require.NotNil(t, out.Packet.Content)
	assert.Equal(t, uint64(1), out.FaceId)
	assertEmpty(t, h.toLower)
}
