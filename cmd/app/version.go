package main

import "fmt"

var (
	Version    = "0.1.0"
	CommitHash = ""
)

func PrintVersion() {
	fmt.Printf("peersync version: %s\n", Version)
	if CommitHash != "" {
		fmt.Printf("commit hash: %s\n", CommitHash)
	}
}
