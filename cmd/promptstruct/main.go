/*
Package main is the entry point for the promptstruct CLI.

promptstruct converts natural language prompts into structured JSON (function
definitions, tool schemas, agent prompts) and learns from the feedback you
record on the results.

Usage:

	promptstruct [command]

Examples:

	# Convert a prompt with the configured provider
	promptstruct convert "a tool that looks up the weather for a city"

	# Rate the output
	promptstruct feedback record --prompt "..." --json-file out.json --rating 5

	# Run as MCP server
	promptstruct serve
*/
package main

import (
	"fmt"
	"os"

	"github.com/khanglvm/promptstruct/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
