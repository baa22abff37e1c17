package main

import (
	"os"

	_ "github.com/jimmicro/version"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/jimyag/hostagent/internal/hostagent"
	"github.com/jimyag/hostagent/internal/hostagent/config"
)

func main() {
	app := &cli.App{
		Name:  "hostagent",
		Usage: "Hypervisor resource agent serving management server commands over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file",
				EnvVars: []string{"HOSTAGENT_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "address",
				Aliases: []string{"a"},
				Usage:   "HTTP listen address, overrides the config file",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("Failed to run hostagent")
	}
}

func run(cliCtx *cli.Context) error {
	cfg, err := config.New(cliCtx.String("config"))
	if err != nil {
		return err
	}
	if addr := cliCtx.String("address"); addr != "" {
		cfg.Address = addr
	}

	server, err := hostagent.New(cfg)
	if err != nil {
		return err
	}

	defer server.Close()
	return server.Run(cliCtx.Context)
}
