package main

import (
	"os"

	"github.com/mdcollab/backend/cmd/admin/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
