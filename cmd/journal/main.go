package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/captainslog/internal/client/cli"
	"github.com/dmitrijs2005/captainslog/internal/client/config"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "journal: %v\n", err)
		os.Exit(2)
	}

	if err := cli.Execute(ctx, cfg, cli.Options{}, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "journal: %v\n", err)
		stop()
		os.Exit(1)
	}

}
