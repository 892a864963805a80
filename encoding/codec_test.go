package encoding_test

import (
	"testing"

	enc "github.com/usi-icn/nfnd/encoding"
	"github.com/usi-icn/nfnd/types/optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameFromStrAndString(t *testing.T) {
	n, err := enc.NameFromStr("/foo/bar")
	require.NoError(t, err)
	assert.Equal(t, 2, len(n))
	assert.Equal(t, "/foo/bar", n.String())

	root, err := enc.NameFromStr("/")
	require.NoError(t, err)
	assert.Equal(t, 0, len(root))
}

func TestNameIsPrefix(t *testing.T) {
	a, _ := enc.NameFromStr("/foo")
	b, _ := enc.NameFromStr("/foo/bar")
	assert.True(t, a.IsPrefix(b))
	assert.False(t, b.IsPrefix(a))
	assert.True(t, a.IsPrefix(a))

	empty := enc.Name{}
	assert.True(t, empty.IsPrefix(b))
}

func TestNameEqual(t *testing.T) {
	a, _ := enc.NameFromStr("/foo/bar")
	b, _ := enc.NameFromStr("/foo/bar")
	c, _ := enc.NameFromStr("/foo/baz")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

// Encode-then-decode is the identity on Interest packets modulo Nonce (§8).
func TestInterestRoundTrip(t *testing.T) {
	name, _ := enc.NameFromStr("/ndn/edu/ucla/ping")
	i := &enc.Interest{NameV: name, NonceV: optional.Some(uint32(1234))}
	wire := enc.EncodeInterest(i)

	pkt := enc.DecodePacket(wire.Join())
	require.NotNil(t, pkt.Interest)
	assert.True(t, pkt.Interest.NameV.Equal(name))
	nonce, ok := pkt.Interest.NonceV.Get()
	require.True(t, ok)
	assert.Equal(t, uint32(1234), nonce)
}

// Encode-then-decode is the identity on Content packets (§8).
func TestContentRoundTrip(t *testing.T) {
	name, _ := enc.NameFromStr("/test/prefix/repos/testrepo/testcontent")
	c := &enc.Content{NameV: name, ContentV: []byte("testcontent")}
	wire := enc.EncodeContent(c)

	pkt := enc.DecodePacket(wire.Join())
	require.NotNil(t, pkt.Content)
	assert.True(t, pkt.Content.NameV.Equal(name))
	assert.Equal(t, []byte("testcontent"), pkt.Content.ContentV)
}

func TestNackRoundTrip(t *testing.T) {
	name, _ := enc.NameFromStr("/no/route/here")
	i := &enc.Interest{NameV: name, NonceV: optional.Some(uint32(7))}
	n := &enc.Nack{Interest: i, NameV: name, Reason: enc.NackNoRoute}
	wire := enc.EncodeNack(n)

	pkt := enc.DecodePacket(wire.Join())
	require.NotNil(t, pkt.Nack)
	assert.True(t, pkt.Nack.NameV.Equal(name))
	assert.Equal(t, enc.NackNoRoute, pkt.Nack.Reason)
}

func TestDecodeUnknownOnGarbage(t *testing.T) {
	pkt := enc.DecodePacket([]byte{0xff})
	assert.NotNil(t, pkt.Unknown)
	assert.Nil(t, pkt.Interest)
	assert.Nil(t, pkt.Content)
	assert.Nil(t, pkt.Nack)
}

func TestDecodeUnknownOnUnrecognizedType(t *testing.T) {
	// A well-formed TLV (type=0x99, length=1, value=0x00) that is none of
	// Interest/Data/LpPacket.
	pkt := enc.DecodePacket([]byte{0x99, 0x01, 0x00})
	assert.NotNil(t, pkt.Unknown)
}
