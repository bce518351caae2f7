// Command docforge generates branded business documents from templates.
//
// It serves the editing workflow over HTTP (docforge server), to AI
// assistants over MCP (docforge mcp) and as a one-shot CLI export
// (docforge export).
package main

import "os"

func main() {
	os.Exit(Run())
}
