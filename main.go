package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"board-relay/bot"
	"board-relay/config"
	"board-relay/database"
	"board-relay/state"

	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Name:  "board-relay",
		Usage: "relay board media to a Pleroma account, paced by engagement",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config.yaml",
				EnvVars: []string{"RELAY_CONFIG"},
			},
		},
	}
	app.Commands = []*cli.Command{
		{
			Name:   "run",
			Usage:  "run the relay daemon",
			Action: runDaemon,
		},
		{
			Name:   "verify",
			Usage:  "check the bearer token and print the account",
			Action: runVerify,
		},
		{
			Name:   "status",
			Usage:  "print the scheduler state as JSON",
			Action: runStatus,
		},
	}
	app.RunAndExitOnError()
}

func runDaemon(cctx *cli.Context) error {
	cfg, err := config.LoadConfig(cctx.String("config"))
	if err != nil {
		return err
	}
	return bot.Run(cfg)
}

func runVerify(cctx *cli.Context) error {
	cfg, err := config.LoadConfig(cctx.String("config"))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cctx.Context, cfg.HTTPTimeout)
	defer cancel()

	acct, err := bot.NewAPIClient(cfg).VerifyCredentials(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("logged in as %s (id %s)\n", acct.Acct, acct.ID)
	return nil
}

func runStatus(cctx *cli.Context) error {
	cfg, err := config.LoadConfig(cctx.String("config"))
	if err != nil {
		return err
	}
	doc, err := database.NewStateStore(cfg.StateFile).Load()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(state.New(doc).Snapshot(time.Now()))
}
