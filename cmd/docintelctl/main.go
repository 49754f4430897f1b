package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/ai-libre/docintel/internal/cli"
)

var version = "dev"

func main() {
	var c cli.CLI

	ctx := kong.Parse(&c,
		kong.Name("docintelctl"),
		kong.Description("Inspect and drive the docintel document-intelligence core"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
	)

	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
