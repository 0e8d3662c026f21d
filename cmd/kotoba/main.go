package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/bdobrica/Kotoba/internal/kotoba/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			// parse and rules validate already printed their verdict.
			if exitErr.Code == cli.ExitCommandError {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitCommandError)
	}
}
