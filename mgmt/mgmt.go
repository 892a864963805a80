// Package mgmt implements §6's local management protocol: a TCP channel
// accepting one text command per line and replying with a single text
// line, "error" on any syntactically or semantically invalid request.
// Grounded on PiCN's Executable/Mgmt.py command set (shutdown,
// getrepoprefix, getrepopath, newface, newforwardingrule, newcontent) and
// shaped, on the server side, after the teacher's fw/mgmt verb-dispatch
// package (one type per concern, a single listener goroutine per server).
package mgmt

import (
	"bufio"
	"net"
	"strconv"
	"strings"

	"github.com/usi-icn/nfnd/core"
	enc "github.com/usi-icn/nfnd/encoding"
	"github.com/usi-icn/nfnd/face"
	"github.com/usi-icn/nfnd/repo"
	"github.com/usi-icn/nfnd/table"
	"github.com/usi-icn/nfnd/types/optional"
)

// Server is the local TCP management endpoint.
type Server struct {
	Fib   *table.Fib
	Faces *face.Table
	Repo  repo.Repository

	// Shutdown is invoked once, from the connection goroutine that
	// receives "shutdown"; it should terminate the process with exit
	// code 0.
	Shutdown func()

	ln net.Listener
}

// NewServer wires a management Server to the shared FIB/face table/
// repository it operates on.
func NewServer(fib *table.Fib, faces *face.Table, r repo.Repository, shutdown func()) *Server {
	return &Server{Fib: fib, Faces: faces, Repo: r, Shutdown: shutdown}
}

func (s *Server) String() string { return "mgmt-server" }

// ListenAndServe binds addr ("host:port") and accepts connections until
// the listener is closed.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.ln = ln
	return s.Serve(ln)
}

// Serve accepts connections on an already-bound listener until it closes.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return nil
		}
		go s.handleConn(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		reply := s.dispatch(line)
		if _, err := conn.Write([]byte(reply + "\n")); err != nil {
			return
		}
		if line == "shutdown" {
			return
		}
	}
}

const errReply = "error"

func (s *Server) dispatch(line string) string {
	fields := strings.SplitN(line, " ", 2)
	cmd := fields[0]
	var param string
	if len(fields) == 2 {
		param = fields[1]
	}

	switch cmd {
	case "shutdown":
		if s.Shutdown != nil {
			go s.Shutdown()
		}
		return "ok"
	case "getrepoprefix":
		if s.Repo == nil {
			return errReply
		}
		return s.Repo.GetPrefix().String()
	case "getrepopath":
		if s.Repo == nil {
			return errReply
		}
		return s.Repo.GetPath()
	case "newface":
		return s.newFace(param)
	case "newforwardingrule":
		return s.newForwardingRule(param)
	case "newcontent":
		return s.newContent(param)
	default:
		core.Log.Warn(s, "unknown management command", "cmd", cmd)
		return errReply
	}
}

func (s *Server) newFace(param string) string {
	if param == "" || s.Faces == nil {
		return errReply
	}
	f, err := face.NewUDPFace(param)
	if err != nil {
		core.Log.Warn(s, "newface failed", "err", err)
		return errReply
	}
	id := s.Faces.Add(f)
	return strconv.FormatUint(id, 10)
}

func (s *Server) newForwardingRule(param string) string {
	parts := strings.SplitN(param, ":", 2)
	if len(parts) != 2 || s.Fib == nil {
		return errReply
	}
	name, err := enc.NameFromStr(parts[0])
	if err != nil {
		return errReply
	}
	faceID, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return errReply
	}
	s.Fib.Add(name, faceID, true, optional.None[uint64]())
	return "ok"
}

func (s *Server) newContent(param string) string {
	parts := strings.SplitN(param, ":", 2)
	if len(parts) != 2 || s.Repo == nil {
		return errReply
	}
	name, err := enc.NameFromStr(parts[0])
	if err != nil {
		return errReply
	}
	if err := s.Repo.Add(name, []byte(parts[1])); err != nil {
		return errReply
	}
	return "ok"
}
