// Package main provides the statutefinder server and CLI.
//
// Usage:
//
//	statutefinder [flags] <command> [args]
//
// Commands:
//
//	serve     - HTTP API server
//	embed     - build the statute name embedding table
//	rank      - list statutes by similarity to a query
//	narrow    - narrow the catalog down to the applicable statutes
//	sections  - rank the sections of one act for a query
//	chat      - interactive statute search session
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
