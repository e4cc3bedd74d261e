package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/nerrad567/gray-logic-upnp/internal/scanner"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/client"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/discovery"
)

var (
	targetFlag = &cli.StringSliceFlag{
		Name:  "target",
		Usage: "Device kind name or URN to search for (repeatable, default all standard types)",
	}
	timeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Usage: "Overall time limit for the search and description fetches",
		Value: 30 * time.Second,
	}
	mxFlag = &cli.IntFlag{
		Name:  "mx",
		Usage: "Seconds devices may wait before answering (SSDP MX)",
	}
)

var searchCommand = &cli.Command{
	Name:   "search",
	Usage:  "Searches the LAN with SSDP and prints every device tree found",
	Flags:  []cli.Flag{targetFlag, timeoutFlag, mxFlag},
	Action: search,
}

func search(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if mx := ctx.Int(mxFlag.Name); mx > 0 {
		cfg.Discovery.MaxWait = mx
	}

	c, err := client.New(cfg.Fetch, cfg.Discovery, nil)
	if err != nil {
		return err
	}
	defer c.Close() //nolint:errcheck // Best-effort socket close

	targets := cfg.Discovery.Targets
	if ctx.IsSet(targetFlag.Name) {
		targets = ctx.StringSlice(targetFlag.Name)
	}
	kinds, err := scanner.ResolveTargets(c.Kinds, targets)
	if err != nil {
		return err
	}

	disc, err := c.Discoverer()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx.Context, ctx.Duration(timeoutFlag.Name))
	defer cancel()

	w := ctx.App.Writer
	var found, failed int
	err = disc.DiscoverEach(runCtx, func(r discovery.Result) {
		if r.Err != nil {
			failed++
			fmt.Fprintf(ctx.App.ErrWriter, "%s: %v\n", r.Response.Location, r.Err)
			return
		}
		found++
		fmt.Fprintf(w, "# %s\n", r.Response.Location)
		printTree(w, r.Device)
	}, kinds...)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	fmt.Fprintf(w, "%d device trees, %d failed\n", found, failed)
	return nil
}
