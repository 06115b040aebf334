// Command cartctl drives the cart state and pricing engine from the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/cartengine/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		code := cli.GetExitCode(err)

		// Rejected operations and failed scenarios were already reported
		// on stdout.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || code != cli.ExitFailure {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(code)
	}
}
