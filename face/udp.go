package face

import (
	"net"

	"github.com/usi-icn/nfnd/core"
	enc "github.com/usi-icn/nfnd/encoding"
)

// UDPFace is a net.UDPConn-backed Face, exactly §2 layer 1's transport:
// the face the autoconfiguration handshake and the §8 scenario 5 scenario
// run over. Grounded on the teacher's unicast-udp-transport.go, simplified
// to a single dialed *net.UDPConn since this core has no persistency/MTU
// negotiation concerns.
type UDPFace struct {
	faceBase
	conn *net.UDPConn
}

// NewUDPFace dials remoteAddr ("host:port") over UDP.
func NewUDPFace(remoteAddr string) (*UDPFace, error) {
	raddr, err := net.ResolveUDPAddr("udp4", remoteAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp4", nil, raddr)
	if err != nil {
		return nil, err
	}
	f := &UDPFace{conn: conn}
	f.localURI = conn.LocalAddr().String()
	f.remoteURI = remoteAddr
	f.setRunning(true)
	return f, nil
}

func (f *UDPFace) String() string { return "udp-face:" + f.remoteURI }

func (f *UDPFace) Send(pkt enc.Packet) error {
	wire := encodePacket(pkt)
	_, err := f.conn.Write(wire)
	return err
}

func (f *UDPFace) runReceive(deliver func(enc.Packet)) {
	buf := make([]byte, 65536)
	for {
		n, err := f.conn.Read(buf)
		if err != nil {
			f.setRunning(false)
			return
		}
		pkt := enc.DecodePacket(buf[:n])
		deliver(pkt)
	}
}

func (f *UDPFace) Close() {
	f.setRunning(false)
	_ = f.conn.Close()
}

// UDPListenerFace wraps a bound, unconnected *net.UDPConn so a single
// socket can serve many remote peers (broadcast solicitation replies,
// a forwarder's well-known autoconfig port). ReadFrom returns each
// datagram's source address, but the receive loop drops it and delivers
// only the packet; it does not itself participate in the Table's
// id-per-peer model.
type UDPListenerFace struct {
	faceBase
	conn *net.UDPConn
}

// NewUDPListenerFace binds addr ("host:port", host may be empty for all
// interfaces) for receiving.
func NewUDPListenerFace(addr string) (*UDPListenerFace, error) {
	laddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, err
	}
	f := &UDPListenerFace{conn: conn}
	f.localURI = conn.LocalAddr().String()
	f.setRunning(true)
	return f, nil
}

func (f *UDPListenerFace) String() string { return "udp-listener:" + f.localURI }

// SendTo writes pkt's wire encoding to a specific peer address, used when
// replying to a broadcast solicitation.
func (f *UDPListenerFace) SendTo(pkt enc.Packet, addr *net.UDPAddr) error {
	_, err := f.conn.WriteToUDP(encodePacket(pkt), addr)
	return err
}

func (f *UDPListenerFace) Send(pkt enc.Packet) error {
	core.Log.Warn(f, "Send called on listener face with no fixed peer; dropping")
	return nil
}

// ReadFrom blocks for the next datagram and decodes it.
func (f *UDPListenerFace) ReadFrom() (enc.Packet, *net.UDPAddr, error) {
	buf := make([]byte, 65536)
	n, addr, err := f.conn.ReadFromUDP(buf)
	if err != nil {
		return enc.Packet{}, nil, err
	}
	return enc.DecodePacket(buf[:n]), addr, nil
}

func (f *UDPListenerFace) runReceive(deliver func(enc.Packet)) {
	for {
		pkt, _, err := f.ReadFrom()
		if err != nil {
			f.setRunning(false)
			return
		}
		deliver(pkt)
	}
}

func (f *UDPListenerFace) Close() {
	f.setRunning(false)
	_ = f.conn.Close()
}

func encodePacket(pkt enc.Packet) []byte {
	switch {
	case pkt.Interest != nil:
		return enc.EncodeInterest(pkt.Interest).Join()
	case pkt.Content != nil:
		return enc.EncodeContent(pkt.Content).Join()
	case pkt.Nack != nil:
		return enc.EncodeNack(pkt.Nack).Join()
	default:
		return nil
	}
}
