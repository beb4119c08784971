package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pigeonchat/pigeon/internal/config"
	"github.com/pigeonchat/pigeon/internal/daemon"
	"github.com/pigeonchat/pigeon/internal/profile"
	"go.uber.org/fx"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	listenFlag := flag.String("listen", "", "listen address (overrides config)")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(profile.ConfigPath())
	if err != nil {
		cfg = config.Default()
	}
	listenAddr := cfg.ListenAddr
	if *listenFlag != "" {
		listenAddr = *listenFlag
	}

	app := fx.New(
		daemon.Module(daemon.Params{
			ProfileName: profileName,
			ListenAddr:  listenAddr,
			Store:       cfg.Store,
		}),
	)

	app.Run()
}
