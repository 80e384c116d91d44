// Command stakelens reads staking project state from chain, derives metrics
// and serves them over HTTP.
//
// Usage:
//
//	stakelens snapshot <token> [--user <address>]
//	stakelens allocation <token> <claimant> [--table <path>]
//	stakelens serve [--listen :8080]
//
// Settings come from STAKELENS_* environment variables (optionally from a
// .env file); flags override them.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
