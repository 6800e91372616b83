package main

import (
	"os"

	"db2-script-step/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
