// Command fcscat dumps and converts Flow Cytometry Standard (FCS) files.
package main

import "os"

func main() {
	app := newFcscatApp()
	if err := app.Run(os.Args); err != nil {
		os.Exit(ExitCodeUnknownError)
	}
}
