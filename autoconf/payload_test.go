package autoconf_test

import (
	"testing"

	"github.com/usi-icn/nfnd/autoconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepoReply(t *testing.T) {
	payload := []byte("10.0.0.1:9001\np:/test/prefix/repos\np:/other/prefix\n")
	reply, err := autoconf.ParseRepoReply(payload)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", reply.Host)
	assert.Equal(t, 9001, reply.Port)
	assert.Equal(t, []string{"/test/prefix/repos", "/other/prefix"}, reply.Prefix)
}

func TestParseRouterReply(t *testing.T) {
	payload := []byte("udp4://10.0.0.1:9001\nr:0:/ndn/edu/ucla/ping\nr:-1:/ndn/discarded\nr:2:/ndn/ch/unibas\n")
	reply, err := autoconf.ParseRouterReply(payload)
	require.NoError(t, err)
	assert.Equal(t, "udp4://10.0.0.1:9001", reply.ForwarderURI)
	require.Equal(t, 2, len(reply.Routes))
	assert.Equal(t, autoconf.Route{Distance: 0, Prefix: "/ndn/edu/ucla/ping"}, reply.Routes[0])
	assert.Equal(t, autoconf.Route{Distance: 2, Prefix: "/ndn/ch/unibas"}, reply.Routes[1])
}

func TestReservedBinaryPayloadRejected(t *testing.T) {
	_, err := autoconf.ParseRepoReply([]byte{0x80, 0x01, 0x02})
	assert.ErrorIs(t, err, autoconf.ErrReservedBinaryPayload)

	_, err = autoconf.ParseRouterReply([]byte{0x80, 0x01, 0x02})
	assert.ErrorIs(t, err, autoconf.ErrReservedBinaryPayload)
}
