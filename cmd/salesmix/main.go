// Command salesmix attributes marketplace unit sales to sales types and
// publishes the result.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/salesmix/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
