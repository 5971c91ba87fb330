package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"sigs.k8s.io/release-utils/version"
)

const (
	// ExitCodeSuccess is the successful exit code.
	ExitCodeSuccess int = iota

	// ExitCodeFlagParseError is the exit code for a flag parsing error.
	ExitCodeFlagParseError

	// ExitCodeUnknownError is the exit code for any other error.
	ExitCodeUnknownError
)

// ErrFlagParse is a flag parsing error.
var ErrFlagParse = errors.New("parsing flags")

// ErrFcscat wraps every error this command returns directly (as opposed
// to one surfaced verbatim from the fcs package).
var ErrFcscat = errors.New("fcscat")

func must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

func newFcscatApp() *cli.App {
	return &cli.App{
		Name:  filepath.Base(os.Args[0]),
		Usage: "Inspect and convert Flow Cytometry Standard (FCS) files.",
		Description: strings.Join([]string{
			"fcscat reads FCS 2.0/3.0/3.1 files without a vendor tool.",
			"https://github.com/flowstd/fcs",
		}, "\n"),
		Commands: []*cli.Command{
			newDumpCommand(),
			newCatCommand(),
			newChecksumCommand(),
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:               "version",
				Usage:              "print version information and exit",
				Aliases:            []string{"v"},
				DisableDefaultText: true,
			},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("version") {
				versionInfo := version.GetVersionInfo()
				_ = must(fmt.Fprintf(c.App.Writer, "%s %s\n%s", c.App.Name, versionInfo.GitVersion, versionInfo.String()))
				return nil
			}
			return cli.ShowAppHelp(c)
		},
		ExitErrHandler: func(c *cli.Context, err error) {
			if err == nil {
				return
			}
			_ = must(fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", c.App.Name, err))
			if errors.Is(err, ErrFlagParse) {
				cli.OsExiter(ExitCodeFlagParseError)
				return
			}
			cli.OsExiter(ExitCodeUnknownError)
		},
	}
}
