package face

import enc "github.com/usi-icn/nfnd/encoding"

// ChanFace is an in-process, channel-backed Face used by tests and by the
// autoconfiguration scenario to wire a forwarder and a repository together
// without a real socket (§4.9). Unlike the network-backed faces, it never
// serializes to wire bytes: Packets are passed by value directly, since
// both ends live in the same process.
type ChanFace struct {
	faceBase
	out chan enc.Packet
	in  chan enc.Packet
}

// NewChanPair builds two ChanFaces whose out/in channels cross-connect:
// a's Send delivers to b's runReceive and vice versa.
func NewChanPair(localURI, remoteURI string) (a, b *ChanFace) {
	c1 := make(chan enc.Packet, 64)
	c2 := make(chan enc.Packet, 64)
	a = &ChanFace{out: c1, in: c2}
	a.localURI, a.remoteURI = localURI, remoteURI
	a.setRunning(true)
	b = &ChanFace{out: c2, in: c1}
	b.localURI, b.remoteURI = remoteURI, localURI
	b.setRunning(true)
	return a, b
}

func (f *ChanFace) String() string { return "chan-face:" + f.remoteURI }

func (f *ChanFace) Send(pkt enc.Packet) error {
	if !f.IsRunning() {
		return nil
	}
	f.out <- pkt
	return nil
}

func (f *ChanFace) runReceive(deliver func(enc.Packet)) {
	for pkt := range f.in {
		deliver(pkt)
	}
}

func (f *ChanFace) Close() {
	f.setRunning(false)
	close(f.out)
}
