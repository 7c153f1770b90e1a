// Package main provides the offgate CLI for running and managing the
// mentesana offline cache gateway.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
