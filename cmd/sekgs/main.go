package main

import (
	"fmt"
	"os"

	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sekgs: %v\n", err)
		os.Exit(1)
	}
}
