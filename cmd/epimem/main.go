// Package main provides the entry point for the epimem CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/epimem/cmd/epimem/cmd"
)

func main() {
	err := cmd.Execute()
	os.Exit(cmd.ExitCodeFor(err))
}
