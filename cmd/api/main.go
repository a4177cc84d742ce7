// Command api runs the HTTP server. It is shorthand for `dcf serve`.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/cli"
)

func main() {
	c := cli.NewCLI(cli.Options{Output: os.Stdout, Error: os.Stderr})
	c.SetArgs(append([]string{"serve"}, os.Args[1:]...))
	if err := c.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
