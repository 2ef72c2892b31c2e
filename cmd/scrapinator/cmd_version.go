package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the scrapinator version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println("scrapinator", version)
	},
}
