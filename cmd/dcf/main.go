package main

import (
	"context"
	"fmt"
	"os"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/cli"
)

func main() {
	c := cli.NewCLI(cli.Options{Output: os.Stdout, Error: os.Stderr})
	if err := c.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
