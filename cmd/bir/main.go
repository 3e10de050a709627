// Command bir compiles, inspects and runs bir binary IR modules.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/bir/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "bir:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
