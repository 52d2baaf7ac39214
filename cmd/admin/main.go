package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/gatekeeper/internal/admin"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server"
	"github.com/dmitrijs2005/gatekeeper/internal/server/config"
)

func main() {

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, admin.Usage)
		os.Exit(2)
	}

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.New(cfg.Env, os.Stderr)

	repos, err := server.OpenRepositories(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer repos.Close()

	notifier, err := server.NewNotifier(cfg, logger)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app := admin.NewApp(server.NewAccountService(cfg, repos, notifier, logger), os.Stdin, os.Stdout)
	if err := app.Run(ctx, os.Args[1]); err != nil {
		log.Printf("%v", err)
		return
	}

}
