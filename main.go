package main

import (
	"os"

	"github.com/skillsync/skillsync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
