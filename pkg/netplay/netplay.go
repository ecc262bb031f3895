// Package netplay keeps two independently running rules engines
// consistent: each side applies its own operations locally, transmits
// them to the peer, and re-validates everything the peer reports. Only
// the initial deal crosses the wire as full state; afterwards both
// engines replay the same ordered operation stream and stay identical
// without ever exchanging boards again.
package netplay

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net"
	"time"

	"github.com/L3viathan/halali/pkg/halali"
)

// Version is compared between peers in the status exchange. Engines
// with different rule semantics must not play each other.
const Version = "0.3.0"

const syncTimeout = 10 * time.Second

type role int

const (
	roleHost role = iota
	roleJoin
)

// NetGame wraps a rules engine pinned to one concrete team. Locally
// issued operations are applied and then enqueued for the peer;
// peer-reported operations are applied with the forEnemy flag, which
// re-runs the full validation on this side too.
type NetGame struct {
	*halali.Game

	role role
	in   chan Message
	out  chan Message

	peerGone bool
}

func newNetGame(g *halali.Game, r role) *NetGame {
	return &NetGame{
		Game: g,
		role: r,
		in:   make(chan Message, QueueSize),
		out:  make(chan Message, QueueSize),
	}
}

// Host deals the authoritative board, picks this side's team at random
// if none is set, and starts listening for the single peer. The peer
// fetches the deal through the cards message once it connects.
func Host(g *halali.Game, port int) *NetGame {
	if g.Team == halali.Either {
		if rand.Intn(2) == 0 {
			g.Team = halali.Animals
		} else {
			g.Team = halali.Humans
		}
	}
	ng := newNetGame(g, roleHost)
	go ng.serve(port)
	return ng
}

// Join locates a host (via mDNS unless addr is given), connects, and
// blocks until the authoritative status and board snapshot have been
// applied to g. g should come from halali.NewEmpty.
func Join(g *halali.Game, addr string) (*NetGame, error) {
	var err error
	if addr == "" {
		addr, err = Discover(DiscoveryTimeout)
		if err != nil {
			return nil, err
		}
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	log.Printf("connected to %s", addr)
	ng := newNetGame(g, roleJoin)
	go ng.readLoop(conn)
	go ng.writeLoop(conn)
	if err := ng.syncFromHost(); err != nil {
		conn.Close()
		return nil, err
	}
	return ng, nil
}

// syncFromHost performs the initial status and cards exchange.
func (ng *NetGame) syncFromHost() error {
	ng.out <- Message{Tag: TagStatus}
	msg, err := ng.await(TagStatus)
	if err != nil {
		return err
	}
	if err := ng.applyStatus(msg.Status); err != nil {
		return err
	}
	ng.out <- Message{Tag: TagCards}
	msg, err = ng.await(TagCards)
	if err != nil {
		return err
	}
	return ng.Game.Restore(msg.Cards)
}

func (ng *NetGame) await(tag string) (Message, error) {
	deadline := time.After(syncTimeout)
	for {
		select {
		case msg := <-ng.in:
			switch msg.Tag {
			case tag:
				return msg, nil
			case TagOK:
			case TagDisconnected:
				return Message{}, errors.New("peer disconnected during initial sync")
			default:
				log.Printf("ignoring %q while waiting for %q", msg.Tag, tag)
			}
		case <-deadline:
			return Message{}, fmt.Errorf("timed out waiting for %q", tag)
		}
	}
}

// PeerGone reports whether the connection was lost. Local play keeps
// working; remote operations simply stop arriving.
func (ng *NetGame) PeerGone() bool { return ng.peerGone }

// Reveal applies a local reveal and forwards it to the peer.
func (ng *NetGame) Reveal(loc halali.Loc) error {
	if err := ng.Game.Reveal(loc, false); err != nil {
		return err
	}
	ng.send(Message{Tag: TagReveal, From: loc})
	return nil
}

// Move applies a local move and forwards it to the peer.
func (ng *NetGame) Move(from, to halali.Loc) error {
	if err := ng.Game.Move(from, to, false); err != nil {
		return err
	}
	ng.send(Message{Tag: TagMove, From: from, To: to})
	return nil
}

// Rescue applies a local rescue and forwards it to the peer.
func (ng *NetGame) Rescue(loc halali.Loc) error {
	if err := ng.Game.Rescue(loc, false); err != nil {
		return err
	}
	ng.send(Message{Tag: TagRescue, From: loc})
	return nil
}

func (ng *NetGame) send(m Message) {
	select {
	case ng.out <- m:
	default:
		log.Printf("outgoing queue full, dropping %q", m.Tag)
	}
}

// Update drains the incoming queue without blocking and applies every
// message currently available. Called once per frame by the game loop;
// a returned error is fatal for the connection (version mismatch).
func (ng *NetGame) Update() error {
	for {
		select {
		case msg := <-ng.in:
			if err := ng.handle(msg); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (ng *NetGame) handle(msg Message) error {
	if msg.Tag == TagDisconnected {
		ng.peerGone = true
		log.Println("peer disconnected")
		return nil
	}
	if ng.role == roleHost {
		ng.handleRequest(msg)
		return nil
	}
	return ng.handleReply(msg)
}

// handleRequest answers the joining side. Every non-ping request gets
// exactly one response; the transport loop is blocked on ng.out until
// it is produced.
func (ng *NetGame) handleRequest(msg Message) {
	switch msg.Tag {
	case TagStatus:
		ng.out <- Message{Tag: TagStatus, Status: ng.status()}
	case TagCards:
		ng.out <- Message{Tag: TagCards, Cards: ng.Game.Snapshot()}
	case TagMove:
		ng.applyEnemy("wrong move", func() error {
			return ng.Game.Move(msg.From, msg.To, true)
		})
	case TagReveal:
		ng.applyEnemy("wrong reveal", func() error {
			return ng.Game.Reveal(msg.From, true)
		})
	case TagRescue:
		ng.applyEnemy("wrong rescue", func() error {
			return ng.Game.Rescue(msg.From, true)
		})
	default:
		log.Printf("unexpected request %q", msg.Tag)
		ng.out <- Message{Tag: TagError, What: "unknown message", Reason: msg.Tag}
	}
}

func (ng *NetGame) applyEnemy(what string, op func() error) {
	if err := op(); err != nil {
		// Both engines replay the same rules from the same deal; a
		// rejection here means they have diverged.
		log.Printf("rejected peer operation: %v", err)
		ng.out <- Message{Tag: TagError, What: what, Reason: reasonOf(err)}
		return
	}
	ng.out <- Message{Tag: TagOK}
}

// handleReply processes everything the host sends: acknowledgements of
// our own operations, and the host's operations to replay.
func (ng *NetGame) handleReply(msg Message) error {
	switch msg.Tag {
	case TagOK:
	case TagError:
		log.Printf("peer rejected our %s: %s (engines may have diverged)", msg.What, msg.Reason)
	case TagStatus:
		return ng.applyStatus(msg.Status)
	case TagCards:
		return ng.Game.Restore(msg.Cards)
	case TagMove:
		if err := ng.Game.Move(msg.From, msg.To, true); err != nil {
			log.Printf("diverged applying peer move: %v", err)
		}
	case TagReveal:
		if err := ng.Game.Reveal(msg.From, true); err != nil {
			log.Printf("diverged applying peer reveal: %v", err)
		}
	case TagRescue:
		if err := ng.Game.Rescue(msg.From, true); err != nil {
			log.Printf("diverged applying peer rescue: %v", err)
		}
	default:
		log.Printf("unexpected reply %q", msg.Tag)
	}
	return nil
}

func (ng *NetGame) applyStatus(s *Status) error {
	if s == nil {
		return errors.New("status reply without a body")
	}
	if s.Version != Version {
		return fmt.Errorf("version mismatch: peer runs %s, this build is %s", s.Version, Version)
	}
	ng.Game.Team = s.ClientTeam
	ng.Game.SyncStatus(s.ToPlay, s.Points, s.TurnsLeft)
	return nil
}

func (ng *NetGame) status() *Status {
	s := &Status{
		ToPlay:     ng.Game.ToPlay(),
		ClientTeam: ng.Game.Team.Opponent(),
		Points: map[halali.Team]int{
			halali.Animals: ng.Game.Points(halali.Animals),
			halali.Humans:  ng.Game.Points(halali.Humans),
		},
		Version: Version,
	}
	if t, ok := ng.Game.TurnsLeft(); ok {
		s.TurnsLeft = &t
	}
	return s
}

func reasonOf(err error) string {
	var im *halali.InvalidMove
	if errors.As(err, &im) {
		return im.Reason
	}
	return err.Error()
}
