package autoconf_test

import (
	"strings"
	"testing"
	"time"

	"github.com/usi-icn/nfnd/autoconf"
	enc "github.com/usi-icn/nfnd/encoding"
	"github.com/usi-icn/nfnd/face"
	"github.com/usi-icn/nfnd/fw"
	"github.com/usi-icn/nfnd/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newForwarderResponder(t *testing.T, prefixes []string) (*autoconf.ForwarderResponder, chan fw.Message, chan fw.Message, chan fw.Message) {
	t.Helper()
	fib := table.NewFib()
	toLower := make(chan fw.Message, 64)
	fromLower := make(chan fw.Message, 64)
	passOut := make(chan fw.Message, 64)
	faceToIcn := make(chan fw.Message, 64)
	faces := face.NewTable(faceToIcn, make(chan fw.Message, 64))

	r := autoconf.NewForwarderResponder(autoconf.ForwarderConfig{
		Host:     "10.0.0.5",
		Port:     6363,
		Prefixes: prefixes,
	}, fib, faces, toLower, fromLower, passOut)
	go r.Run()
	t.Cleanup(r.Stop)
	return r, toLower, fromLower, passOut
}

func TestForwarderResponderAnswersForwardersSolicitation(t *testing.T) {
	_, toLower, fromLower, _ := newForwarderResponder(t, []string{"/test/prefix/repos", "/other/prefix"})

	name, err := enc.NameFromStr(autoconf.ForwardersPrefix)
	require.NoError(t, err)
	fromLower <- fw.Message{FaceId: fw.UpstreamFace, Packet: enc.Packet{Interest: &enc.Interest{NameV: name}}}

	select {
	case msg := <-toLower:
		require.NotNil(t, msg.Packet.Content)
		lines := strings.Split(string(msg.Packet.Content.ContentV), "\n")
		assert.Equal(t, "10.0.0.5:6363", lines[0])
		assert.Contains(t, lines, "p:/test/prefix/repos")
		assert.Contains(t, lines, "p:/other/prefix")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for forwarders reply")
	}
}

func TestForwarderResponderInstallsFibEntryOnRegistration(t *testing.T) {
	fib := table.NewFib()
	toLower := make(chan fw.Message, 64)
	fromLower := make(chan fw.Message, 64)
	faceToIcn := make(chan fw.Message, 64)
	faces := face.NewTable(faceToIcn, make(chan fw.Message, 64))

	r := autoconf.NewForwarderResponder(autoconf.ForwarderConfig{
		Host: "10.0.0.5",
		Port: 6363,
	}, fib, faces, toLower, fromLower, make(chan fw.Message, 64))
	go r.Run()
	t.Cleanup(r.Stop)

	regName, err := enc.NameFromStr("/autoconfig/service/10.0.0.9:9001/test/prefix/repos/nfnd")
	require.NoError(t, err)
	fromLower <- fw.Message{FaceId: fw.UpstreamFace, Packet: enc.Packet{Interest: &enc.Interest{NameV: regName}}}

	select {
	case msg := <-toLower:
		require.NotNil(t, msg.Packet.Content)
		assert.True(t, regName.Equal(msg.Packet.Content.NameV))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for registration acknowledgement")
	}

	prefix, err := enc.NameFromStr("/test/prefix/repos")
	require.NoError(t, err)
	entry := fib.Find(prefix, nil, nil)
	require.NotNil(t, entry)
	assert.True(t, prefix.Equal(entry.Name))
}

func TestForwarderResponderPassesThroughUnrelatedInterests(t *testing.T) {
	_, _, fromLower, passOut := newForwarderResponder(t, nil)

	name, err := enc.NameFromStr("/some/other/content")
	require.NoError(t, err)
	fromLower <- fw.Message{FaceId: fw.UpstreamFace, Packet: enc.Packet{Interest: &enc.Interest{NameV: name}}}

	select {
	case msg := <-passOut:
		require.NotNil(t, msg.Packet.Interest)
		assert.True(t, name.Equal(msg.Packet.Interest.NameV))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for passthrough")
	}
}
