package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
)

func main() {
	cmd := BuildCLI(&App{})
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
