package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/L3viathan/halali/pkg/config"
	"github.com/L3viathan/halali/pkg/halali"
	"github.com/L3viathan/halali/pkg/netplay"
)

func main() {
	single := flag.Bool("single", false, "play against the computer")
	host := flag.Bool("host", false, "host a network game")
	join := flag.Bool("join", false, "join a network game")
	connect := flag.String("connect", "", "host address, skips discovery")
	seed := flag.Int64("seed", 0, "board seed (0 = random)")
	configPath := flag.String("config", "", "path to config file")
	logPath := flag.String("log", "halali.log", "path to log file")
	flag.Parse()

	halali.InitLog(*logPath, "CLIENT: ")

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	var (
		g  *halali.Game
		ng *netplay.NetGame
	)
	switch {
	case *join:
		g = halali.NewEmpty()
		ng, err = netplay.Join(g, *connect)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case *host:
		g = halali.New(*seed)
		ng = netplay.Host(g, cfg.Port)
	case *single:
		g = halali.New(*seed)
		if rand.Intn(2) == 0 {
			g.Team = halali.Animals
		} else {
			g.Team = halali.Humans
		}
		log.Printf("single player as %s", g.Team)
	default:
		g = halali.New(*seed) // hotseat
	}
	g.TieBreak = cfg.TieBreak

	ui := NewGUI(g, ng, cfg.AIDelay(), *single)
	if err := ui.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	printResults(g)
}

func printResults(g *halali.Game) {
	animals := color.New(color.FgHiBlue, color.Bold)
	humans := color.New(color.FgHiYellow, color.Bold)

	fmt.Printf("%s %d : %d %s\n",
		animals.Sprint("Animals"), g.Points(halali.Animals),
		g.Points(halali.Humans), humans.Sprint("Humans"),
	)
	if g.Over() {
		winner := animals
		if g.Winner() == halali.Humans {
			winner = humans
		}
		fmt.Printf("%s win!\n", winner.Sprint(g.Winner()))
	}
}
