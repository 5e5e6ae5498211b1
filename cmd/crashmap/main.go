package main

import (
	"os"

	"crashmap/internal/cliapp"
)

func main() {
	os.Exit(cliapp.Run(os.Args[1:]))
}
