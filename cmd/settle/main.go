// Command settle reconciles a batch of account updates into a
// last-write-wins ledger and reports the top account per category.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/settle/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "settle:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
