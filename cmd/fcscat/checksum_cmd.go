package main

import (
	"fmt"

	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"

	"github.com/flowstd/fcs"
	"github.com/flowstd/fcs/fcsio"
)

func newChecksumCommand() *cli.Command {
	return &cli.Command{
		Name:      "checksum",
		Usage:     "print the event-table checksum of one or more files",
		ArgsUsage: "PATH...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("%w: at least one PATH is required", ErrFlagParse)
			}
			cs := checksumCmd{paths: c.Args().Slice()}
			return cs.Run()
		},
	}
}

type checksumCmd struct {
	paths []string
}

func (cs *checksumCmd) Run() error {
	tbl := table.New("checksum", "events", "parameters", "path")
	for _, path := range cs.paths {
		src, closer, err := fcsio.OpenAuto(path)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrFcscat, err)
		}

		ds, err := fcs.Read(src)
		closer.Close()
		if err != nil {
			return fmt.Errorf("%w: reading %s: %v", ErrFcscat, path, err)
		}

		tbl.AddRow(fmt.Sprintf("%016x", ds.Checksum()), ds.EventCount, ds.ParameterCount, path)
	}
	tbl.Print()
	return nil
}
