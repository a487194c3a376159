package main

import (
	"os"

	"github.com/NamanBalaji/dltrack/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
