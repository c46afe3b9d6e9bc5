package main

import (
	"os"

	"github.com/telbank/voiceline/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
