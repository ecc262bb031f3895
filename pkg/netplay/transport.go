package netplay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"time"
)

const (
	// DefaultPort is the fixed well-known port a host listens on.
	DefaultPort = 58008

	// QueueSize bounds the two channels coupling the socket loops to
	// the single-threaded game loop.
	QueueSize = 20

	// PingInterval is how often the joining side sends a keepalive
	// while it has nothing else to say.
	PingInterval = 500 * time.Millisecond

	maxMessageSize = 1024 * 1024
)

// serve is the listening side: advertise until the single peer
// connects, then run a strict request/response loop. A keepalive gets
// no formal reply, but it is the slot through which queued local
// operations reach the peer.
func (ng *NetGame) serve(port int) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		log.Printf("listen: %v", err)
		ng.in <- Message{Tag: TagDisconnected}
		return
	}
	defer ln.Close()

	stop, err := Advertise(port)
	if err != nil {
		// Still reachable by direct address.
		log.Printf("advertise: %v", err)
	}
	log.Println("waiting for connection...")
	conn, err := ln.Accept()
	if stop != nil {
		stop()
	}
	if err != nil {
		log.Printf("accept: %v", err)
		ng.in <- Message{Tag: TagDisconnected}
		return
	}
	defer conn.Close()
	log.Printf("%s connected", conn.RemoteAddr())

	ng.serveConn(conn)
}

// serveConn runs the host's request/response loop over an established
// connection.
func (ng *NetGame) serveConn(conn net.Conn) {
	scanner := newMessageScanner(conn)
	for scanner.Scan() {
		var msg Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			log.Printf("malformed message: %v", err)
			continue
		}
		if msg.Tag == TagPing {
			if !ng.flushOut(conn) {
				break
			}
			continue
		}
		ng.in <- msg
		// The game loop answers every non-ping request exactly once.
		// Anything queued before the answer (a local operation) is
		// written first; the peer handles either in any order.
		if err := writeMessage(conn, <-ng.out); err != nil {
			log.Printf("write: %v", err)
			break
		}
		if !ng.flushOut(conn) {
			break
		}
	}
	ng.in <- Message{Tag: TagDisconnected}
}

// flushOut writes everything currently queued without blocking.
func (ng *NetGame) flushOut(conn net.Conn) bool {
	for {
		select {
		case m := <-ng.out:
			if err := writeMessage(conn, m); err != nil {
				log.Printf("write: %v", err)
				return false
			}
		default:
			return true
		}
	}
}

// readLoop is the joining side's receive loop: block on the socket,
// decode one message per line, push it onto the incoming queue. A
// zero-byte read ends the loop and injects the disconnected sentinel.
func (ng *NetGame) readLoop(conn net.Conn) {
	scanner := newMessageScanner(conn)
	for scanner.Scan() {
		var msg Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			log.Printf("malformed message: %v", err)
			continue
		}
		ng.in <- msg
	}
	ng.in <- Message{Tag: TagDisconnected}
}

// writeLoop drains the outgoing queue opportunistically and sends a
// keepalive whenever the queue stays idle for a full interval.
func (ng *NetGame) writeLoop(conn net.Conn) {
	t := time.NewTicker(PingInterval)
	defer t.Stop()
	for {
		select {
		case msg := <-ng.out:
			if err := writeMessage(conn, msg); err != nil {
				log.Printf("write: %v", err)
				return
			}
		case <-t.C:
			if err := writeMessage(conn, Message{Tag: TagPing}); err != nil {
				log.Printf("write: %v", err)
				return
			}
		}
	}
}

func newMessageScanner(conn net.Conn) *bufio.Scanner {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	return scanner
}

func writeMessage(conn net.Conn, m Message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = conn.Write(b)
	return err
}
