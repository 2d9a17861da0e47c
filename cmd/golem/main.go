package main

import (
	"os"

	"github.com/golemcli/golem/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
