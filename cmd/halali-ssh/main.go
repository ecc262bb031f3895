// halali-ssh serves the terminal client over ssh, so a peer can join a
// hosted game from any machine with an ssh client.
package main

import (
	"flag"
	"log"

	"github.com/L3viathan/halali/pkg/netplay/ssh"
)

func main() {
	listen := flag.String("listen-ssh", ":2222", "host the ssh server on this address")
	binary := flag.String("halali", "halali", "path to the halali client binary")
	game := flag.String("connect", "", "game address the spawned clients join")
	flag.Parse()

	if *game == "" {
		log.Fatal("a game address is required (--connect)")
	}

	server := &ssh.Server{
		ListenAddress: *listen,
		HalaliBinary:  *binary,
		GameAddress:   *game,
	}
	log.Printf("serving halali over ssh on %s", *listen)
	if err := server.Host(); err != nil {
		log.Fatal(err)
	}
}
