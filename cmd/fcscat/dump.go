package main

import (
	"fmt"

	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"

	"github.com/flowstd/fcs"
	"github.com/flowstd/fcs/fcsio"
)

func newDumpCommand() *cli.Command {
	return &cli.Command{
		Name:      "dump",
		Usage:     "print a file's resolved TEXT keywords and parameter table",
		ArgsUsage: "PATH",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("%w: PATH is required", ErrFlagParse)
			}
			d := dump{path: path}
			return d.Run()
		},
	}
}

type dump struct {
	path string
}

func (d *dump) Run() error {
	src, closer, err := fcsio.OpenAuto(d.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFcscat, err)
	}
	defer closer.Close()

	ds, err := fcs.Read(src)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrFcscat, d.path, err)
	}

	fmt.Printf("version FCS%s, %d events, %d parameters\n", ds.Version, ds.EventCount, ds.ParameterCount)
	for _, w := range ds.Warnings() {
		fmt.Printf("warning: %s\n", w)
	}

	kwTbl := table.New("keyword", "value")
	for _, k := range ds.Metadata().Keywords() {
		kwTbl.AddRow(k, ds.Text[k])
	}
	kwTbl.Print()

	fmt.Println()

	pTbl := table.New("#", "$PnN", "$PnS", "$PnB", "$PnR", "$PnE")
	for _, p := range ds.Channels {
		pTbl.AddRow(p.Index, p.ShortName, p.LongName, p.BitWidth, p.Range, p.Amplification)
	}
	pTbl.Print()

	return nil
}
