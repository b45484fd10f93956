package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{Use: "betedge"}

	root.AddCommand(serveCMD(), migrateCMD(), ingestCMD(), askCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
