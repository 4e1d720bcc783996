// Command nexiroctl administers credit accounts and runs the generation
// pipeline from the terminal.
//
// Usage:
//
//	nexiroctl <command> [flags]
//
// Commands:
//
//	migrate     - Create the ledger and credential tables
//	credits     - Show an account balance
//	plan        - Switch an account plan
//	geminikey   - Manage the stored Gemini API key
//	compile     - Print the instruction document for a request file
//	enhance     - Run a request file through the full pipeline
package main

import (
	"fmt"
	"os"

	"nexiro/cmd/nexiroctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
