package main

import (
	"os"

	"github.com/phpwdk/apidoc/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
