// Command rolerag is the entry point for the role-partitioned retrieval
// service. It provides the HTTP server, an in-process question client, the
// partition builder, and credential tooling via Cobra subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/rolerag/cmd/rolerag/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
