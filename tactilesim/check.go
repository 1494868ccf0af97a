package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/cKohl10/TactileSim/tactile"
)

func checkAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("check takes exactly one sensor table")
	}
	t, err := tactile.ParseFile(c.Args().First())
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetTitle(fmt.Sprintf("%d sensors", t.Len()))
	tw.AppendHeader(table.Row{"#", "Name", "X", "Y", "Z", "Radius", "Sensor path"})
	for i, def := range t.Definitions() {
		tw.AppendRow(table.Row{i, def.Name, def.Offset.X, def.Offset.Y, def.Offset.Z, def.Radius, def.Path()})
	}
	_, err = fmt.Fprintln(c.App.Writer, tw.Render())
	return err
}
