package face

import (
	"fmt"

	"github.com/gorilla/websocket"
	enc "github.com/usi-icn/nfnd/encoding"
)

// WSFace wraps a gorilla/websocket connection as a Face, giving the
// repository/app layer a browser-reachable transport without changing the
// Face contract. Grounded on the teacher's web-socket-transport.go.
type WSFace struct {
	faceBase
	c *websocket.Conn
}

// NewWSFace wraps an already-established websocket connection (dialed by a
// client, or accepted by a listener upgrader).
func NewWSFace(c *websocket.Conn) *WSFace {
	f := &WSFace{c: c}
	f.remoteURI = c.RemoteAddr().String()
	f.localURI = c.LocalAddr().String()
	f.setRunning(true)
	return f
}

func (f *WSFace) String() string {
	return fmt.Sprintf("ws-face (faceid=%d remote=%s)", f.faceID, f.remoteURI)
}

func (f *WSFace) Send(pkt enc.Packet) error {
	wire := encodePacket(pkt)
	if wire == nil {
		return nil
	}
	return f.c.WriteMessage(websocket.BinaryMessage, wire)
}

func (f *WSFace) runReceive(deliver func(enc.Packet)) {
	for {
		mt, data, err := f.c.ReadMessage()
		if err != nil {
			f.setRunning(false)
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		deliver(enc.DecodePacket(data))
	}
}

func (f *WSFace) Close() {
	f.setRunning(false)
	_ = f.c.Close()
}
