package main

import (
	"os"

	"github.com/EfrenHaskell/Cosi166Project/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
