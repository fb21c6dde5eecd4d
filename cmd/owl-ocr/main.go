package main

import (
	"fmt"
	"os"

	"github.com/sakamer71/owl-ocr/cmd/owl-ocr/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
