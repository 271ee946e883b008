// Command covgate fails a build when the lines a change adds are not covered.
package main

import (
	"os"

	"github.com/linebyline/covgate/internal/cli"
)

func main() {
	code := cli.Run(os.Args, os.Stdout, os.Stderr, cli.BuildService(os.Stdout))
	os.Exit(code)
}
