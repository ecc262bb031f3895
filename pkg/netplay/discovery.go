package netplay

import (
	"context"
	"errors"
	"log"
	"net"
	"strconv"
	"time"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/grandcat/zeroconf"
)

const (
	serviceName   = "_halali._tcp"
	serviceDomain = "local."

	// DiscoveryTimeout bounds how long a joining side browses for a
	// host before giving up.
	DiscoveryTimeout = 4 * time.Second
)

// Advertise publishes this host's address and port on the local
// network so a peer can find it without manual configuration. The
// returned function withdraws the record.
func Advertise(port int) (stop func(), err error) {
	name := petname.Generate(2, "-")
	srv, err := zeroconf.Register(name, serviceName, serviceDomain, port, []string{"version=" + Version}, nil)
	if err != nil {
		return nil, err
	}
	log.Printf("advertising %q on the local network", name)
	return srv.Shutdown, nil
}

// Discover browses for an advertised game and returns the first
// host:port found, or an error once the timeout elapses.
func Discover(timeout time.Duration) (string, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, serviceName, serviceDomain, entries); err != nil {
		return "", err
	}
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return "", errors.New("no game found on the local network")
			}
			if entry == nil || len(entry.AddrIPv4) == 0 {
				continue
			}
			addr := net.JoinHostPort(entry.AddrIPv4[0].String(), strconv.Itoa(entry.Port))
			log.Printf("found game %q at %s", entry.Instance, addr)
			return addr, nil
		case <-ctx.Done():
			return "", errors.New("no game found on the local network")
		}
	}
}
