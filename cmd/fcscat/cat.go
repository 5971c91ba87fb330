package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/flowstd/fcs"
	"github.com/flowstd/fcs/fcsio"
)

func newCatCommand() *cli.Command {
	return &cli.Command{
		Name:      "cat",
		Usage:     "print a file's event table as CSV",
		ArgsUsage: "PATH",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "delimiter",
				Usage: "field delimiter",
				Value: ",",
			},
		},
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("%w: PATH is required", ErrFlagParse)
			}
			ct := cat{path: path, delimiter: c.String("delimiter")}
			return ct.Run()
		},
	}
}

type cat struct {
	path      string
	delimiter string
}

func (ct *cat) Run() error {
	src, closer, err := fcsio.OpenAuto(ct.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFcscat, err)
	}
	defer closer.Close()

	ds, err := fcs.Read(src)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrFcscat, ct.path, err)
	}

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	names := make([]string, len(ds.Channels))
	for i, p := range ds.Channels {
		names[i] = p.ShortName
	}
	fmt.Fprintln(w, strings.Join(names, ct.delimiter))

	nch := ds.ParameterCount
	row := make([]string, nch)
	for e := 0; e < ds.EventCount; e++ {
		for c := 0; c < nch; c++ {
			row[c] = strconv.FormatFloat(ds.Events[e*nch+c], 'g', -1, 64)
		}
		fmt.Fprintln(w, strings.Join(row, ct.delimiter))
	}

	return nil
}
