package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var bannerCmd = &cobra.Command{
	Use:   "banner",
	Short: "Display the spbatch banner and version information",
	Run: func(cmd *cobra.Command, args []string) {
		banner := `
  ___ _ __ | |__   __ _| |_ ___| |__
 / __| '_ \| '_ \ / _' | __/ __| '_ \
 \__ \ |_) | |_) | (_| | || (__| | | |
 |___/ .__/|_.__/ \__,_|\__\___|_| |_|
     |_|

 spbatch - a REST/Graph batch dispatch engine
 Version 0.1.0
`
		fmt.Print(banner)
		fmt.Println("\nRun 'spbatch batch get <file>' to execute a batch of GET requests.")
		fmt.Println("Run 'spbatch batch console <file>' for a live progress view.")
	},
}

func init() {
	rootCmd.AddCommand(bannerCmd)
}
