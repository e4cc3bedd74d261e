// Command upnpctl inspects UPnP devices from the command line and mints
// API tokens for the inventory service.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/nerrad567/gray-logic-upnp/internal/infrastructure/config"
)

var version = "dev"

var configFlag = &cli.StringFlag{
	Name:    "config",
	Usage:   "Path to the service configuration file",
	EnvVars: []string{"GRAYLOGIC_CONFIG"},
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "upnpctl",
		Usage:   "Inspect UPnP devices and manage inventory API access",
		Version: version,
		Flags:   []cli.Flag{configFlag},
		Commands: []*cli.Command{
			describeCommand,
			searchCommand,
			tokenCommand,
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads --config when given and falls back to defaults.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	path := ctx.String(configFlag.Name)
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}
