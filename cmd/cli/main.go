package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/consentkeeper/internal/cli"
	"github.com/dmitrijs2005/consentkeeper/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	command := cli.CommandFrom(os.Args[1:])

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	if err := app.Run(ctx, command); err != nil {
		log.Printf("%v", err)
		app.Close()
		os.Exit(1)
	}

}
