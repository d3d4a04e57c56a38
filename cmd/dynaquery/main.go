package main

import (
	"os"

	"github.com/pay-theory/dynaquery/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
