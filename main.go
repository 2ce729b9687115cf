// Command largest reports the largest files found in one or more directory trees.
package main

import (
	"fmt"
	"os"

	"github.com/idelchi/largest/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
//
//nolint:gochecknoglobals // Build-time variable
var version = "unknown - unofficial & generated by unknown"

func main() {
	err := cli.New(version).Execute()
	if err != nil && !cli.Silent(err) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}

	os.Exit(cli.ExitCode(err))
}
