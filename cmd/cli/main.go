package main

import (
	"context"
	"log"
	"os"

	"github.com/briefpulse/briefpulse/internal/buildinfo"
	"github.com/briefpulse/briefpulse/internal/client/cli"
	"github.com/briefpulse/briefpulse/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := cli.NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}
