// Package main provides the flowgate trigger daemon: cron schedules for time
// and condition triggers plus a Redis queue receiver for event triggers.
package main

import (
	"context"
	"os"

	"github.com/mbarbosa/flowgate/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "flowgate-trigger",
		Usage:                 "Fire workflow triggers from schedules and CRM event queues",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL (postgres://... or a file path)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config with schedules, queue, and collaborator settings",
				Value:   "./flowgate.yaml",
				Sources: cli.EnvVars("FLOWGATE_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			return runDaemon(ctx, command.String("database-url"), command.String("config"))
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
