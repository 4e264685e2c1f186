/*
main.go - Application entry point

PURPOSE:
  Runs the slotengine command line. The HTTP server and the offline
  allocator are subcommands; see root.go.

COMMANDS:
  serve     Start the HTTP API backed by SQLite
  allocate  Run the engine over a YAML scenario file and print outcomes

CONFIGURATION:
  Defaults < slotengine.yaml < SLOTENGINE_* environment < flags.
  See config/config.go.

EXAMPLES:
  # Run with file database
  slotengine serve --db=./data/slots.db

  # Run with in-memory database on another port
  slotengine serve --db=":memory:" --port=3000

  # Resource a scenario file without a server
  slotengine allocate -f scenario.yaml --format json

SEE ALSO:
  - serve.go: Server startup and graceful shutdown
  - allocate.go: Offline allocation
*/
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
