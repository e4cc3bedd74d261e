package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/nerrad567/gray-logic-upnp/internal/inventory"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/client"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/control"
)

var (
	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "Print inventory records as JSON",
	}
	scpdFlag = &cli.BoolFlag{
		Name:  "scpd",
		Usage: "Fetch service descriptions and list their actions",
	}
	urlBaseFlag = &cli.BoolFlag{
		Name:  "urlbase",
		Usage: "Resolve relative URLs against the description's URLBase",
	}
)

var describeCommand = &cli.Command{
	Name:      "describe",
	Usage:     "Builds and prints the device tree served at a description URL",
	ArgsUsage: "<location>",
	Flags:     []cli.Flag{jsonFlag, scpdFlag, urlBaseFlag},
	Action:    describe,
}

func describe(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("need description location as argument")
	}
	location := ctx.Args().First()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if ctx.IsSet(scpdFlag.Name) {
		cfg.Fetch.LoadSCPD = ctx.Bool(scpdFlag.Name)
	}

	c, err := client.New(cfg.Fetch, cfg.Discovery, nil)
	if err != nil {
		return err
	}

	var root *control.Device
	if ctx.Bool(urlBaseFlag.Name) {
		root, err = c.Builder.FromLocation(ctx.Context, location)
	} else {
		root, err = c.Builder.Create(ctx.Context, location)
	}
	if err != nil {
		return fmt.Errorf("describing %s: %w", location, err)
	}

	if ctx.Bool(jsonFlag.Name) {
		return writeRecords(ctx.App.Writer, inventory.RecordsFromTree(root, time.Now()))
	}
	printTree(ctx.App.Writer, root)
	return nil
}

func writeRecords(w io.Writer, records []inventory.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// printTree writes one line per device, indented by depth, with its
// services below it.
func printTree(w io.Writer, root *control.Device) {
	var walk func(d *control.Device, depth int)
	walk = func(d *control.Device, depth int) {
		indent := strings.Repeat("  ", depth)
		kind := d.Type
		if d.Kind != nil {
			kind = d.Kind.Name
		}
		fmt.Fprintf(w, "%s%s [%s] %q\n", indent, d.Name, kind, d.FriendlyName)
		for _, s := range d.SubServices() {
			fmt.Fprintf(w, "%s  - %s (%s)\n", indent, s.Type, s.ID)
			for _, a := range s.Actions() {
				fmt.Fprintf(w, "%s      %s()\n", indent, a.Name)
			}
		}
		for _, sub := range d.SubDevices() {
			walk(sub, depth+1)
		}
	}
	walk(root, 0)
}
