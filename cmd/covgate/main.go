// Command covgate gates a change on the test coverage of its changed lines.
package main

import (
	"os"

	"github.com/linebyline/covgate/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args, os.Stdout, os.Stderr, cli.BuildService(os.Stdout)))
}
