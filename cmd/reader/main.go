// Package main provides the study reader.
//
// Usage:
//
//	reader [flags] <command> [args]
//
// Commands:
//
//	serve    - Run the reader for a browser client (HTTP, websocket, metrics, gRPC health)
//	console  - Run the reader in the terminal, typing instead of speaking
//	catalog  - Validate or show a study catalog
//	say      - Drive a running server over the client websocket
package main

import (
	"fmt"
	"os"

	"voicereader/agent/cmd/reader/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
