package main

import (
	"os"

	"github.com/skalibog/medallion/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
